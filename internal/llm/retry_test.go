package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newTestRetry(p Provider, attempts int) *RetryProvider {
	r := WithRetry(p, RetryConfig{
		MaxAttempts: attempts,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}).(*RetryProvider)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestWithRetry_SingleAttemptIsPassThrough(t *testing.T) {
	mock := NewMockProvider()
	if got := WithRetry(mock, RetryConfig{MaxAttempts: 1}); got != Provider(mock) {
		t.Fatalf("expected the inner provider back, got %T", got)
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)

	resp, err := newTestRetry(mock, 3).Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}},
	)

	_, err := newTestRetry(mock, 3).Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetry_NonRetryableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"max tokens", &ErrMaxTokensExceeded{}},
		{"not configured", ErrNotConfigured},
		{"canceled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(MockResponse{Err: tt.err}, MockResponse{Content: json.RawMessage(`{}`)})

			_, err := newTestRetry(mock, 3).Generate(context.Background(), Request{})
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if mock.CallCount() != 1 {
				t.Fatalf("expected 1 call, got %d", mock.CallCount())
			}
		})
	}
}

func TestRetry_InvalidResponseRetriedOnce(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}},
		MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)

	_, err := newTestRetry(mock, 5).Generate(context.Background(), Request{})
	if !IsInvalidResponse(err) {
		t.Fatalf("expected invalid response, got %v", err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_BackoffHonorsRetryAfter(t *testing.T) {
	r := newTestRetry(NewMockProvider(), 3)
	got := r.backoff(0, &ErrRateLimit{RetryAfter: 7 * time.Second})
	if got != 7*time.Second {
		t.Fatalf("expected 7s, got %s", got)
	}

	got = r.backoff(10, errors.New("x"))
	if got > 12*time.Millisecond {
		t.Fatalf("backoff not capped: %s", got)
	}
}
