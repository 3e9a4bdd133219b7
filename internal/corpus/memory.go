package corpus

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/firebase/genkit/go/ai"
)

// MemoryStore is an in-memory corpus store with brute-force cosine search.
// It implements the same Search contract as Store and backs tests and
// single-process development runs.
//
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder ai.Embedder
	entries  []memoryEntry
}

type memoryEntry struct {
	chunk  Chunk
	vector []float32
	seq    int // ingestion order, tie-breaker for equal scores
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embedder ai.Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

// Index embeds and stores chunks. Duplicate chunk IDs replace the prior
// entry, matching the pgvector store's upsert behavior.
func (m *MemoryStore) Index(ctx context.Context, chunks []Chunk) error {
	for _, chunk := range chunks {
		vec, err := embedText(ctx, m.embedder, chunk.Content)
		if err != nil {
			return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
		}

		m.mu.Lock()
		replaced := false
		for i := range m.entries {
			if m.entries[i].chunk.ID == chunk.ID {
				m.entries[i].chunk = chunk
				m.entries[i].vector = vec
				replaced = true
				break
			}
		}
		if !replaced {
			m.entries = append(m.entries, memoryEntry{
				chunk:  chunk,
				vector: vec,
				seq:    len(m.entries),
			})
		}
		m.mu.Unlock()
	}
	return nil
}

// Search returns the topK most similar chunks by cosine similarity,
// ties broken by ingestion order. An empty store returns an empty slice.
func (m *MemoryStore) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, nil
	}

	queryVec, err := embedText(ctx, m.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	type scored struct {
		entry memoryEntry
		score float32
	}
	all := make([]scored, len(m.entries))
	for i, e := range m.entries {
		all[i] = scored{entry: e, score: cosineSimilarity(queryVec, e.vector)}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].entry.seq < all[j].entry.seq
	})

	n := cfg.topK
	if n > len(all) {
		n = len(all)
	}
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{Chunk: all[i].entry.chunk, Similarity: all[i].score}
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
