package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/spigell/skillsynx/internal/oracle"
)

type fakeCompleter struct {
	responses []*openai.ChatCompletion
	errs      []error
	params    []openai.ChatCompletionNewParams
}

func (f *fakeCompleter) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	idx := len(f.params)
	f.params = append(f.params, body)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return nil, errors.New("unexpected call")
}

func completion(contents ...string) *openai.ChatCompletion {
	resp := &openai.ChatCompletion{}
	for _, content := range contents {
		resp.Choices = append(resp.Choices, openai.ChatCompletionChoice{
			Message: openai.ChatCompletionMessage{Content: content},
		})
	}
	return resp
}

func apiError(status int, retryAfter string) *openai.Error {
	header := http.Header{}
	if retryAfter != "" {
		header.Set("Retry-After", retryAfter)
	}
	return &openai.Error{
		StatusCode: status,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil),
		Response:   &http.Response{StatusCode: status, Header: header},
	}
}

func TestCompleteReturnsMessagePerChoice(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{responses: []*openai.ChatCompletion{completion("```json\n{\"a\":1}\n```", "second")}}
	c := newClient(fake, Options{Model: "gpt-4o"})

	env, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if env.Kind() != oracle.KindArray || len(env.Items()) != 2 {
		t.Fatalf("expected array of 2 messages, got %s with %d items", env.Kind(), len(env.Items()))
	}
	if got := oracle.Sanitize(env); got != `{"a":1}` {
		t.Fatalf("Sanitize() = %q", got)
	}
	if got := string(fake.params[0].Model); got != "gpt-4o" {
		t.Fatalf("model = %q", got)
	}
	if len(fake.params[0].Messages) != 1 || fake.params[0].Messages[0].OfUser == nil {
		t.Fatalf("expected a single user message, got %+v", fake.params[0].Messages)
	}
}

func TestCompleteDefaultsModel(t *testing.T) {
	t.Parallel()

	if got := newClient(&fakeCompleter{}, Options{}).Model(); got != defaultModel {
		t.Fatalf("Model() = %q", got)
	}
}

func TestCompleteMapsErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{errs: []error{apiError(http.StatusServiceUnavailable, "")}}
	c := newClient(fake, Options{})

	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(fake.params) != 1 {
		t.Fatalf("default policy must not retry, got %d calls", len(fake.params))
	}
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{
		errs:      []error{apiError(http.StatusTooManyRequests, ""), nil},
		responses: []*openai.ChatCompletion{nil, completion("ok")},
	}
	c := newClient(fake, Options{Retry: oracle.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}})

	env, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if env.String() != "ok" || len(fake.params) != 2 {
		t.Fatalf("unexpected result %q after %d calls", env.String(), len(fake.params))
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	err := classify(apiError(http.StatusTooManyRequests, "12"))
	var callErr *oracle.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %T", err)
	}
	if !callErr.Transient || callErr.RetryAfter != 12*time.Second || callErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected classification %+v", callErr)
	}

	if oracle.IsTransient(classify(apiError(http.StatusUnauthorized, ""))) {
		t.Fatal("401 must be permanent")
	}
	if !oracle.IsTransient(classify(context.DeadlineExceeded)) {
		t.Fatal("transport errors must be transient")
	}
}

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := New(" ", Options{}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := New("sk-test", Options{BaseURL: "http://localhost:1234/v1"}); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}
