package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "validation error should not retry",
			err:      Validation(CodeWordTooShort, "too short"),
			expected: false,
		},
		{
			name:     "validation code range outside validation class",
			err:      &Error{Code: CodeMissingField, Class: ClassProvider},
			expected: false,
		},
		{
			name:     "server error should retry",
			err:      Provider("oxford", http.StatusBadGateway, "provider down", nil),
			expected: true,
		},
		{
			name:     "not found should not retry",
			err:      Provider("oxford", http.StatusNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "missing key should not retry",
			err:      MissingKey("forvo"),
			expected: false,
		},
		{
			name:     "rate limit should retry",
			err:      RateLimited("oxford", time.Second),
			expected: true,
		},
		{
			name:     "timeout should retry",
			err:      Timeout("cambridge", 10*time.Second, context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "plain error should retry",
			err:      errors.New("connection reset"),
			expected: true,
		},
		{
			name:     "wrapped validation error should not retry",
			err:      fmt.Errorf("lookup: %w", Validation(CodeInvalidCharacters, "bad")),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "provider error with status and cause",
			err:      Provider("merriam-webster", http.StatusInternalServerError, "provider down", errors.New("boom")),
			expected: "merriam-webster: provider down (status 500) [3002]: boom",
		},
		{
			name:     "validation error",
			err:      Validation(CodeWordTooLong, "word is too long (maximum %d characters)", 50),
			expected: "word is too long (maximum 50 characters) [1003]",
		},
		{
			name:     "transport error uses network code",
			err:      Provider("free", 0, "request failed", errors.New("dial tcp")),
			expected: "free: request failed [3006]: dial tcp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("attempt 2: %w", Timeout("oxford", time.Second, context.DeadlineExceeded))

	if !errors.Is(err, ErrTimeout) {
		t.Error("expected errors.Is(err, ErrTimeout)")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("timeout must not match ErrRateLimited")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected the wrapped cause to stay reachable")
	}
	if !errors.Is(err, &Error{Code: CodeAPITimeout}) {
		t.Error("expected code match")
	}
}

func TestRetryAfterOf(t *testing.T) {
	d, ok := RetryAfterOf(fmt.Errorf("wrap: %w", RateLimited("x", 1500*time.Millisecond)))
	if !ok || d != 1500*time.Millisecond {
		t.Errorf("RetryAfterOf = (%v, %v), want (1.5s, true)", d, ok)
	}

	if _, ok := RetryAfterOf(errors.New("other")); ok {
		t.Error("plain errors carry no retry hint")
	}
}

func TestClassOf(t *testing.T) {
	if got := ClassOf(CacheUnavailable("get", errors.New("down"))); got != ClassCacheUnavailable {
		t.Errorf("ClassOf = %q, want %q", got, ClassCacheUnavailable)
	}
	if got := ClassOf(errors.New("x")); got != "" {
		t.Errorf("ClassOf(plain) = %q, want empty", got)
	}
}
