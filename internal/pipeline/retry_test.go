package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("Rate Limit exceeded"), true},
		{"http 429", errors.New("got status 429"), true},
		{"http 503", errors.New("503 service unavailable"), true},
		{"timeout", errors.New("request timeout"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"quota", errors.New("quota exceeded for project"), true},
		{"bad request", errors.New("invalid argument"), false},
		{"auth", errors.New("API key not valid"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStageError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := stageError("retrieve", ErrRetrieval, cause)

	if !errors.Is(err, ErrRetrieval) {
		t.Error("errors.Is(err, ErrRetrieval) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if errors.Is(err, ErrSynthesis) {
		t.Error("errors.Is(err, ErrSynthesis) = true for a retrieval error")
	}

	var stage *StageError
	if !errors.As(err, &stage) {
		t.Fatal("errors.As(StageError) = false")
	}
	if stage.Stage != "retrieve" {
		t.Errorf("Stage = %q, want %q", stage.Stage, "retrieve")
	}

	wrapped := fmt.Errorf("handling request: %w", err)
	if !errors.Is(wrapped, ErrRetrieval) {
		t.Error("sentinel lost through an extra wrapping layer")
	}
}
