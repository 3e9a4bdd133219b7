// Package corpus manages the document corpus: chunking at ingest time and
// vector similarity search at query time.
//
// Chunks are produced once by the ingestion job and are immutable afterwards.
// The pgvector-backed Store is the production backend; MemoryStore serves
// tests and single-process development.
package corpus

import "time"

// Chunk is a contiguous span of source text together with its originating
// document and byte offset. Immutable after ingestion.
type Chunk struct {
	ID          string            // stable hash of (document, offset)
	DocumentID  string            // originating document (file path or logical name)
	Content     string            // chunk text
	StartOffset int               // byte offset of Content within the document
	Metadata    map[string]string // optional source metadata
	CreatedAt   time.Time
}

// Result is a single search hit.
type Result struct {
	Chunk      Chunk
	Similarity float32 // cosine similarity, higher is more relevant
}

// SearchOption configures a search via the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK int
}

// WithTopK caps the number of results. Default is 4.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: 4}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
