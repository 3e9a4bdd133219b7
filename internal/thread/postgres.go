package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists thread state in PostgreSQL so conversations survive
// restarts. History rows are append-only; Save only writes messages beyond
// the highest stored sequence number.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore. A nil logger falls back to
// slog.Default().
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// Load implements Store.
func (p *PostgresStore) Load(ctx context.Context, threadID string) (*State, error) {
	state := &State{ThreadID: threadID}

	err := p.pool.QueryRow(ctx,
		`SELECT last_answer, updated_at FROM threads WHERE id = $1`,
		threadID,
	).Scan(&state.LastAnswer, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading thread %q: %w", threadID, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT role, content FROM thread_messages WHERE thread_id = $1 ORDER BY seq`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages for thread %q: %w", threadID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		state.History = append(state.History, messageFromRow(role, content))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}

	return state, nil
}

// Save implements Store. The thread row and any new history messages are
// written in a single transaction.
func (p *PostgresStore) Save(ctx context.Context, state *State) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO threads (id, last_answer, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			last_answer = EXCLUDED.last_answer,
			updated_at = EXCLUDED.updated_at`,
		state.ThreadID, state.LastAnswer, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting thread %q: %w", state.ThreadID, err)
	}

	var maxSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), -1) FROM thread_messages WHERE thread_id = $1`,
		state.ThreadID,
	).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("reading message count for thread %q: %w", state.ThreadID, err)
	}

	for seq := maxSeq + 1; seq < len(state.History); seq++ {
		msg := state.History[seq]
		_, err = tx.Exec(ctx, `
			INSERT INTO thread_messages (thread_id, seq, role, content)
			VALUES ($1, $2, $3, $4)`,
			state.ThreadID, seq, string(msg.Role), msg.Text(),
		)
		if err != nil {
			return fmt.Errorf("inserting message %d for thread %q: %w", seq, state.ThreadID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing thread %q: %w", state.ThreadID, err)
	}

	p.logger.Debug("thread saved",
		"thread_id", state.ThreadID,
		"messages", len(state.History),
		"new_messages", len(state.History)-maxSeq-1,
	)
	return nil
}

func messageFromRow(role, content string) *ai.Message {
	if role == string(ai.RoleModel) {
		return ai.NewModelMessage(ai.NewTextPart(content))
	}
	return ai.NewUserMessage(ai.NewTextPart(content))
}
