package corpus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ragline/ragline/internal/corpus"
	"github.com/ragline/ragline/internal/testutil"
)

func seedChunks(contents ...string) []corpus.Chunk {
	chunks := make([]corpus.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = corpus.Chunk{
			ID:          c, // test-only: content doubles as a readable id
			DocumentID:  "doc",
			Content:     c,
			StartOffset: i * 100,
			CreatedAt:   time.Now(),
		}
	}
	return chunks
}

func TestMemoryStore_SearchOrdering(t *testing.T) {
	t.Parallel()

	embedder := testutil.NewMockEmbedder(4)
	embedder.SetVector("query", []float32{1, 0, 0, 0})
	embedder.SetVector("exact match", []float32{1, 0, 0, 0})
	embedder.SetVector("close match", []float32{0.9, 0.1, 0, 0})
	embedder.SetVector("unrelated", []float32{0, 0, 1, 0})

	store := corpus.NewMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Index(ctx, seedChunks("unrelated", "close match", "exact match")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	results, err := store.Search(ctx, "query", corpus.WithTopK(2))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Chunk.Content != "exact match" {
		t.Errorf("results[0] = %q, want %q", results[0].Chunk.Content, "exact match")
	}
	if results[1].Chunk.Content != "close match" {
		t.Errorf("results[1] = %q, want %q", results[1].Chunk.Content, "close match")
	}
	if results[0].Similarity < results[1].Similarity {
		t.Errorf("similarities not descending: %v then %v", results[0].Similarity, results[1].Similarity)
	}
}

func TestMemoryStore_TiesBreakByIngestionOrder(t *testing.T) {
	t.Parallel()

	embedder := testutil.NewMockEmbedder(4)
	// Two chunks with identical vectors: identical similarity to any query.
	embedder.SetVector("first in", []float32{0, 1, 0, 0})
	embedder.SetVector("second in", []float32{0, 1, 0, 0})
	embedder.SetVector("query", []float32{0, 1, 0, 0})

	store := corpus.NewMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Index(ctx, seedChunks("first in", "second in")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	results, err := store.Search(ctx, "query")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Chunk.Content != "first in" || results[1].Chunk.Content != "second in" {
		t.Errorf("tie not broken by ingestion order: got %q, %q",
			results[0].Chunk.Content, results[1].Chunk.Content)
	}
}

func TestMemoryStore_EmptyStore(t *testing.T) {
	t.Parallel()

	store := corpus.NewMemoryStore(testutil.NewMockEmbedder(4))

	results, err := store.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search() on empty store error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() on empty store returned %d results, want 0", len(results))
	}
}

func TestMemoryStore_UpsertByID(t *testing.T) {
	t.Parallel()

	embedder := testutil.NewMockEmbedder(4)
	store := corpus.NewMemoryStore(embedder)
	ctx := context.Background()

	chunk := corpus.Chunk{ID: "c1", DocumentID: "doc", Content: "original"}
	if err := store.Index(ctx, []corpus.Chunk{chunk}); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	chunk.Content = "revised"
	if err := store.Index(ctx, []corpus.Chunk{chunk}); err != nil {
		t.Fatalf("Index() upsert error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d after upsert, want 1", count)
	}

	results, err := store.Search(ctx, "revised")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Content != "revised" {
		t.Errorf("Search() after upsert = %+v, want the revised chunk", results)
	}
}

func TestMemoryStore_TopKClamped(t *testing.T) {
	t.Parallel()

	store := corpus.NewMemoryStore(testutil.NewMockEmbedder(4))
	ctx := context.Background()

	if err := store.Index(ctx, seedChunks("one", "two")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	results, err := store.Search(ctx, "one", corpus.WithTopK(10))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Search() returned %d results, want all 2", len(results))
	}
}

func TestMemoryStore_EmbedderFailure(t *testing.T) {
	t.Parallel()

	embedder := testutil.NewMockEmbedder(4)
	store := corpus.NewMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Index(ctx, seedChunks("content")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	embedErr := errors.New("embedder unavailable")
	embedder.FailWith(embedErr)

	if _, err := store.Search(ctx, "query"); !errors.Is(err, embedErr) {
		t.Errorf("Search() error = %v, want wrapped %v", err, embedErr)
	}
	if err := store.Index(ctx, seedChunks("more")); !errors.Is(err, embedErr) {
		t.Errorf("Index() error = %v, want wrapped %v", err, embedErr)
	}
}
