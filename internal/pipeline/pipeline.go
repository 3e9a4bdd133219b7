// Package pipeline orchestrates a conversational retrieval-augmented answer
// turn: contextualize the question against the thread's history, search the
// corpus, synthesize a grounded answer, then commit the exchange to the
// thread's history.
//
// A turn either completes fully or leaves the persisted history untouched.
// Turns on the same thread are serialized; distinct threads run in parallel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/ragline/ragline/internal/corpus"
	"github.com/ragline/ragline/internal/thread"
)

// Retriever returns the chunks most relevant to a query, ordered by
// descending similarity. An empty corpus yields an empty slice, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]corpus.Chunk, error)
}

// Config tunes a Pipeline. Zero values fall back to the defaults below.
type Config struct {
	ModelName            string
	MaxQuestionLen       int           // longest accepted question in runes
	MaxHistoryMessages   int           // history window sent to the model
	ContextualizeTimeout time.Duration // per-stage deadlines
	RetrieveTimeout      time.Duration
	SynthesizeTimeout    time.Duration
	Retry                RetryConfig

	// RateLimiter throttles model calls client-side, ahead of each attempt.
	// nil gets the default below.
	RateLimiter *rate.Limiter
}

const (
	defaultMaxQuestionLen     = 1000
	defaultMaxHistoryMessages = 100
	defaultStageTimeout       = 30 * time.Second
)

func (c *Config) applyDefaults() {
	if c.MaxQuestionLen <= 0 {
		c.MaxQuestionLen = defaultMaxQuestionLen
	}
	if c.MaxHistoryMessages <= 0 {
		c.MaxHistoryMessages = defaultMaxHistoryMessages
	}
	if c.ContextualizeTimeout <= 0 {
		c.ContextualizeTimeout = defaultStageTimeout
	}
	if c.RetrieveTimeout <= 0 {
		c.RetrieveTimeout = defaultStageTimeout
	}
	if c.SynthesizeTimeout <= 0 {
		c.SynthesizeTimeout = defaultStageTimeout
	}
	if c.Retry.MaxRetries == 0 && c.Retry.InitialInterval == 0 {
		c.Retry = DefaultRetryConfig()
	}
	// Default: 10 requests/sec sustained, burst of 30.
	if c.RateLimiter == nil {
		c.RateLimiter = rate.NewLimiter(10, 30)
	}
}

// Pipeline executes answer turns. Safe for concurrent use.
type Pipeline struct {
	g         *genkit.Genkit
	modelName string
	retriever Retriever
	threads   thread.Store
	logger    *slog.Logger

	cfg     Config
	retry   RetryConfig
	limiter *rate.Limiter
	locks   sync.Map // thread id -> *sync.Mutex
}

// New creates a Pipeline. A nil logger falls back to slog.Default().
func New(g *genkit.Genkit, cfg Config, retriever Retriever, threads thread.Store, logger *slog.Logger) *Pipeline {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		g:         g,
		modelName: cfg.ModelName,
		retriever: retriever,
		threads:   threads,
		logger:    logger,
		cfg:       cfg,
		retry:     cfg.Retry,
		limiter:   cfg.RateLimiter,
	}
}

// Turn is the result of one completed exchange.
type Turn struct {
	ThreadID           string
	Question           string // the user's input as asked
	StandaloneQuestion string // input after contextualization
	Answer             string
	Context            []corpus.Chunk // chunks the answer was grounded on
	HistoryLen         int            // messages persisted after this turn
}

// Ask runs one turn for a thread. On any failure the thread's persisted
// history is exactly as it was before the call.
func (p *Pipeline) Ask(ctx context.Context, threadID, question string) (*Turn, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, fmt.Errorf("%w: thread id is empty", ErrValidation)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrValidation)
	}
	if utf8.RuneCountInString(question) > p.cfg.MaxQuestionLen {
		return nil, fmt.Errorf("%w: question exceeds %d characters", ErrValidation, p.cfg.MaxQuestionLen)
	}

	// Serialize turns on the same thread; other threads proceed in parallel.
	mu := p.lockThread(threadID)
	mu.Lock()
	defer mu.Unlock()

	state, err := p.threads.Load(ctx, threadID)
	if errors.Is(err, thread.ErrNotFound) {
		state = thread.NewState(threadID)
	} else if err != nil {
		return nil, stageError("load", ErrState, err)
	}

	window := p.window(state.History)
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, p.cfg.ContextualizeTimeout)
	standalone, err := p.contextualize(cctx, window, question)
	cancel()
	if err != nil {
		return nil, stageError("contextualize", ErrRetrieval, err)
	}

	rctx, cancel := context.WithTimeout(ctx, p.cfg.RetrieveTimeout)
	chunks, err := p.retriever.Retrieve(rctx, standalone)
	cancel()
	if err != nil {
		return nil, stageError("retrieve", ErrRetrieval, err)
	}

	sctx, cancel := context.WithTimeout(ctx, p.cfg.SynthesizeTimeout)
	answer, err := p.synthesize(sctx, chunks, standalone, window)
	cancel()
	if err != nil {
		return nil, stageError("synthesize", ErrSynthesis, err)
	}

	// Commit: the original input is recorded, not the rewritten question.
	state.AppendTurn(question, answer)
	if err := p.threads.Save(ctx, state); err != nil {
		return nil, stageError("commit", ErrState, err)
	}

	p.logger.Info("turn completed",
		"thread_id", threadID,
		"context_chunks", len(chunks),
		"history_len", len(state.History),
		"elapsed", time.Since(start),
	)

	return &Turn{
		ThreadID:           threadID,
		Question:           question,
		StandaloneQuestion: standalone,
		Answer:             answer,
		Context:            chunks,
		HistoryLen:         len(state.History),
	}, nil
}

// lockThread returns the mutex for a thread, creating it on first use.
// Entries live for the process lifetime; thread cardinality is bounded by
// actual conversation traffic.
func (p *Pipeline) lockThread(threadID string) *sync.Mutex {
	v, _ := p.locks.LoadOrStore(threadID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// window returns the most recent MaxHistoryMessages messages. Persisted
// history is unbounded; only the model-facing view is trimmed.
func (p *Pipeline) window(history []*ai.Message) []*ai.Message {
	if len(history) <= p.cfg.MaxHistoryMessages {
		return history
	}
	return history[len(history)-p.cfg.MaxHistoryMessages:]
}
