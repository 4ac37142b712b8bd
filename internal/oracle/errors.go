package oracle

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable reports that the oracle could not produce a response:
// transport failures, timeouts and provider side errors.
var ErrUnavailable = errors.New("oracle unavailable")

// CallError describes a failed provider call. It matches ErrUnavailable with
// errors.Is.
type CallError struct {
	Provider   string
	StatusCode int
	// Transient marks failures that may succeed when repeated.
	Transient bool
	// RetryAfter is the delay requested by the provider, if any.
	RetryAfter time.Duration
	Err        error
}

func (e *CallError) Error() string {
	var b strings.Builder
	b.WriteString(ErrUnavailable.Error())
	if e.Provider != "" {
		b.WriteString(": ")
		b.WriteString(e.Provider)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CallError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnavailable}
	}
	return []error{ErrUnavailable, e.Err}
}

// NewCallError wraps err for provider, classifying it by status code.
// A zero status means a transport failure, which is transient.
func NewCallError(provider string, status int, err error) *CallError {
	return &CallError{
		Provider:   provider,
		StatusCode: status,
		Transient:  status == 0 || TransientStatus(status),
		Err:        err,
	}
}

// TransientStatus reports whether an HTTP status is worth retrying.
func TransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err is a CallError marked transient.
func IsTransient(err error) bool {
	var callErr *CallError
	return errors.As(err, &callErr) && callErr.Transient
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry(?:\s+(?:after|in))?\s+(\d+(?:\.\d+)?)\s*(ms|s|sec|secs|seconds?)?\b`)

// ParseRetryAfter extracts a delay hint such as "retry after 60 seconds" or
// "retry in 1.5s" from a provider message.
func ParseRetryAfter(text string) time.Duration {
	match := retryAfterPattern.FindStringSubmatch(text)
	if match == nil {
		return 0
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}

	if strings.EqualFold(match[2], "ms") {
		return time.Duration(value * float64(time.Millisecond))
	}
	return time.Duration(value * float64(time.Second))
}

func asCallError(err error) (*CallError, bool) {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr, true
	}
	return nil, false
}
