package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrEmbeddingMismatch indicates the index was built with a different
// embedding configuration than the one currently configured. Querying such
// an index silently degrades relevance, so startup refuses to proceed.
var ErrEmbeddingMismatch = errors.New("embedding configuration mismatch")

// EmbeddingConfig identifies the embedding function an index was built with.
// It is stored alongside the index and validated at startup so the
// build-time/query-time identity requirement is checked, not assumed.
type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

// Store is the pgvector-backed corpus store. Chunk content is embedded with
// the configured embedder on both the index and search paths.
//
// Store is safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default().
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}
}

// embedText runs one text through the embedder and returns its vector.
func embedText(ctx context.Context, embedder ai.Embedder, text string) ([]float32, error) {
	resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("embedder returned no vector")
	}
	return resp.Embeddings[0].Embedding, nil
}

// Index embeds and upserts chunks. Chunk IDs are stable, so re-ingesting the
// same document replaces its chunks in place.
func (s *Store) Index(ctx context.Context, chunks []Chunk) error {
	for _, chunk := range chunks {
		vec, err := embedText(ctx, s.embedder, chunk.Content)
		if err != nil {
			return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
		}

		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %q: %w", chunk.ID, err)
		}

		_, err = s.pool.Exec(ctx, `
			INSERT INTO documents (id, document_id, content, start_offset, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata`,
			chunk.ID, chunk.DocumentID, chunk.Content, chunk.StartOffset,
			pgvector.NewVector(vec), metadata, chunk.CreatedAt)
		if err != nil {
			return fmt.Errorf("upserting chunk %q: %w", chunk.ID, err)
		}
	}

	s.logger.Debug("indexed chunks", "count", len(chunks))
	return nil
}

// Search embeds the query and returns the most similar chunks, ordered by
// descending cosine similarity with ties broken by ingestion order. An empty
// index yields an empty slice, not an error.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	vec, err := embedText(ctx, s.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, content, start_offset, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM documents
		ORDER BY embedding <=> $1, seq
		LIMIT $2`,
		pgvector.NewVector(vec), cfg.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r        Result
			metadata []byte
		)
		if err := rows.Scan(&r.Chunk.ID, &r.Chunk.DocumentID, &r.Chunk.Content,
			&r.Chunk.StartOffset, &metadata, &r.Chunk.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Chunk.Metadata); err != nil {
				s.logger.Warn("unparseable chunk metadata", "chunk_id", r.Chunk.ID, "error", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}

	return results, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// DeleteDocument removes every chunk of one source document. Used by
// re-ingestion when a document shrinks.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("deleting document %q: %w", documentID, err)
	}
	return nil
}

// WriteEmbeddingConfig records the embedding identity for this index.
// Called by the ingestion job before indexing.
func (s *Store) WriteEmbeddingConfig(ctx context.Context, cfg EmbeddingConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO embedding_config (id, provider, model, dimension)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			dimension = EXCLUDED.dimension,
			updated_at = now()`,
		cfg.Provider, cfg.Model, cfg.Dimension)
	if err != nil {
		return fmt.Errorf("writing embedding config: %w", err)
	}
	return nil
}

// VerifyEmbeddingConfig compares the stored embedding identity against the
// runtime configuration. A missing row (index never built) passes; search
// over an empty index is legal and returns nothing.
func (s *Store) VerifyEmbeddingConfig(ctx context.Context, want EmbeddingConfig) error {
	var got EmbeddingConfig
	err := s.pool.QueryRow(ctx,
		`SELECT provider, model, dimension FROM embedding_config WHERE id = 1`).
		Scan(&got.Provider, &got.Model, &got.Dimension)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("no embedding config stored, index is empty or was built externally")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading embedding config: %w", err)
	}

	if got != want {
		return fmt.Errorf("%w: index built with %s/%s dim=%d, configured %s/%s dim=%d",
			ErrEmbeddingMismatch,
			got.Provider, got.Model, got.Dimension,
			want.Provider, want.Model, want.Dimension)
	}
	return nil
}
