package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/firebase/genkit/go/genkit"
)

// NewGenkit initializes a bare Genkit instance for tests. No provider plugins
// are loaded; register mocks on it with MockLLM.RegisterModel.
func NewGenkit(t *testing.T) *genkit.Genkit {
	t.Helper()
	return genkit.Init(context.Background())
}

// DiscardLogger returns a slog.Logger that discards all output. Use it to
// keep test output quiet; log.Logger is an alias for *slog.Logger, so it is
// accepted everywhere the internal/log package is.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
