package httpchat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spigell/skillsynx/internal/oracle"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts.URL = srv.URL
	opts.HTTPClient = srv.Client()
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCompleteClassifiesBodies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		body     string
		wantKind oracle.Kind
		want     string
	}{
		{name: "raw json string", body: `"{\"a\":1}"`, wantKind: oracle.KindRaw, want: `{"a":1}`},
		{name: "message", body: `{"message":{"role":"assistant","content":"{\"a\":1}"}}`, wantKind: oracle.KindMessage, want: `{"a":1}`},
		{name: "array", body: `[{"message":{"content":"{\"a\":1}"}}]`, wantKind: oracle.KindArray, want: `{"a":1}`},
		{name: "opaque", body: `{"a":1}`, wantKind: oracle.KindOpaque, want: `{"a":1}`},
		{name: "plain text", body: "```json\n{\"a\":1}\n```", wantKind: oracle.KindRaw, want: `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			}, Options{})

			env, err := c.Complete(context.Background(), "prompt")
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if env.Kind() != tc.wantKind {
				t.Fatalf("kind = %s, want %s", env.Kind(), tc.wantKind)
			}
			if got := oracle.Sanitize(env); got != tc.want {
				t.Fatalf("Sanitize() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCompleteSendsPromptAndToken(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		gotAuth string
		gotBody chatRequest
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `"ok"`)
	}, Options{Model: "chat-model", Token: "static"})

	if _, err := c.Complete(context.Background(), " hello "); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "Bearer static" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotBody.Prompt != "hello" || gotBody.Model != "chat-model" || len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "hello" {
		t.Fatalf("unexpected body %+v", gotBody)
	}

	mu.Unlock()

	ctx := oracle.WithSessionToken(context.Background(), "user-session")
	if _, err := c.Complete(ctx, "hello"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	mu.Lock()
	if gotAuth != "Bearer user-session" {
		t.Fatalf("session token not preferred, Authorization = %q", gotAuth)
	}
}

func TestCompleteMapsFailuresToUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}, Options{})

	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var callErr *oracle.CallError
	if !errors.As(err, &callErr) || callErr.StatusCode != http.StatusServiceUnavailable || callErr.RetryAfter != time.Second {
		t.Fatalf("unexpected error details %+v", callErr)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestCompleteTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, Options{Timeout: 20 * time.Millisecond})
	defer close(release)

	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", err)
	}
}

func TestNewValidatesURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := New(Options{URL: "ftp://example.com"}); err == nil {
		t.Fatal("expected error for non-http url")
	}
}
