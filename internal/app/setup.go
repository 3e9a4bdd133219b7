package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/ragline/ragline/db"
	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/corpus"
	"github.com/ragline/ragline/internal/pipeline"
	"github.com/ragline/ragline/internal/retriever"
	"github.com/ragline/ragline/internal/thread"
)

// RetrieverName is the Genkit registry name of the corpus retriever.
const RetrieverName = "ragline/corpus"

// Setup creates and initializes the application: migrations, database pool,
// Genkit provider, corpus store, thread store, and the answer pipeline.
// On error everything already initialized is released.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Corpus = corpus.NewStore(pool, embedder, logger)
	if err := a.Corpus.VerifyEmbeddingConfig(ctx, corpus.EmbeddingConfig{
		Provider:  cfg.Provider,
		Model:     cfg.EmbedderModel,
		Dimension: cfg.EmbeddingDim,
	}); err != nil {
		return nil, err
	}

	aiRetriever := corpus.DefineRetriever(g, RetrieverName, a.Corpus, cfg.TopK)

	a.Threads, err = provideThreadStore(cfg, pool, logger)
	if err != nil {
		return nil, err
	}

	a.Pipeline = pipeline.New(g, pipeline.Config{
		ModelName:            cfg.FullModelName(),
		MaxQuestionLen:       cfg.MaxQuestionLen,
		MaxHistoryMessages:   cfg.MaxHistoryMessages,
		ContextualizeTimeout: cfg.ContextualizeTimeout,
		RetrieveTimeout:      cfg.RetrieveTimeout,
		SynthesizeTimeout:    cfg.SynthesizeTimeout,
	}, retriever.New(aiRetriever, cfg.TopK), a.Threads, logger)

	return a, nil
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
// pgvector types are registered on every connection so embedding columns
// scan natively.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Ollama embedders are keyed by server address (see provideGenkit).
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideThreadStore selects the conversation state backend.
func provideThreadStore(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (thread.Store, error) {
	switch cfg.ThreadStore {
	case config.ThreadStorePostgres:
		return thread.NewPostgresStore(pool, logger), nil
	case config.ThreadStoreMemory:
		return thread.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidThreadStore, cfg.ThreadStore)
	}
}
