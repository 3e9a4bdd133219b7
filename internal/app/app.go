// Package app wires configuration, the database pool, the Genkit provider,
// and the answer pipeline into a running application.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/pipeline"
	"github.com/ragline/ragline/internal/thread"

	"github.com/ragline/ragline/internal/corpus"
)

// App is the application container. Build it with Setup and release its
// resources with Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Corpus   *corpus.Store
	Threads  thread.Store
	Pipeline *pipeline.Pipeline
}

// Close releases application resources. Safe to call on a partially
// initialized App.
func (a *App) Close() {
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Debug("database pool closed")
	}
}
