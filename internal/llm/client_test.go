package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(Options{
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 5 * time.Second,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	})
}

func TestCompleteSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization header = %q, want bearer token", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	c := testClient(t)
	ep := Endpoint{URL: srv.URL, Token: "test-token", Model: "sonar"}

	content, err := c.Complete(context.Background(), ep, []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if content != "hello" {
		t.Errorf("Complete() = %q, want %q", content, "hello")
	}
}

func TestCompleteMissingCredential(t *testing.T) {
	t.Parallel()

	c := testClient(t)
	_, err := c.Complete(context.Background(), Endpoint{URL: "http://localhost:1", Model: "sonar"}, nil)
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("Complete() error = %v, want ErrNoCredential", err)
	}
}

func TestCompleteStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	c := testClient(t)
	ep := Endpoint{URL: srv.URL, Token: "t", Model: "sonar"}

	_, err := c.Complete(context.Background(), ep, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Complete() error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusUnauthorized {
		t.Errorf("StatusError.Code = %d, want 401", statusErr.Code)
	}
}

func TestCompleteModelError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer srv.Close()

	c := testClient(t)
	ep := Endpoint{URL: srv.URL, Token: "t", Model: "sonar"}

	_, err := c.Complete(context.Background(), ep, nil)
	var modelErr *ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("Complete() error = %v, want *ModelError", err)
	}
	if modelErr.Message != "model overloaded" {
		t.Errorf("ModelError.Message = %q", modelErr.Message)
	}
}

func TestCompleteDecodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	c := testClient(t)
	ep := Endpoint{URL: srv.URL, Token: "t", Model: "sonar"}

	_, err := c.Complete(context.Background(), ep, nil)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Complete() error = %v, want *DecodeError", err)
	}
}

func TestCompleteWithRetryRecoversFrom429(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := testClient(t)
	ep := Endpoint{URL: srv.URL, Token: "t", Model: "sonar"}

	content, err := c.CompleteWithRetry(context.Background(), ep, nil)
	if err != nil {
		t.Fatalf("CompleteWithRetry() error = %v", err)
	}
	if content != "ok" {
		t.Errorf("CompleteWithRetry() = %q, want %q", content, "ok")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server received %d calls, want 3", got)
	}
}

func TestCompleteWithRetryStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t)
	ep := Endpoint{URL: srv.URL, Token: "t", Model: "sonar"}

	_, err := c.CompleteWithRetry(context.Background(), ep, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("CompleteWithRetry() error = %v, want *StatusError", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server received %d calls, want 1 (no retry on 400)", got)
	}
}

func TestCompleteWithRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(t)
	ep := Endpoint{URL: srv.URL, Token: "t", Model: "sonar"}

	_, err := c.CompleteWithRetry(context.Background(), ep, nil)
	if err == nil {
		t.Fatal("CompleteWithRetry() expected error after exhausting attempts")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server received %d calls, want 3", got)
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"status 429", &StatusError{Code: 429}, true},
		{"status 500", &StatusError{Code: 500}, true},
		{"status 503", &StatusError{Code: 503}, true},
		{"status 400", &StatusError{Code: 400}, false},
		{"status 401", &StatusError{Code: 401}, false},
		{"model error", &ModelError{Message: "x"}, false},
		{"decode error", &DecodeError{Err: errors.New("x")}, false},
		{"no credential", ErrNoCredential, false},
		{"nil-ish plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
