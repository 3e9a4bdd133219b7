package corpus_test

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/ragline/ragline/internal/corpus"
	"github.com/ragline/ragline/internal/testutil"
)

func TestDefineRetriever_ReturnsRankedDocuments(t *testing.T) {
	g := testutil.NewGenkit(t)

	embedder := testutil.NewMockEmbedder(4)
	embedder.SetVector("query", []float32{1, 0, 0, 0})
	embedder.SetVector("best", []float32{1, 0, 0, 0})
	embedder.SetVector("worst", []float32{0, 0, 0, 1})

	store := corpus.NewMemoryStore(embedder)
	ctx := context.Background()
	if err := store.Index(ctx, seedChunks("worst", "best")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	retriever := corpus.DefineRetriever(g, "ragline", store, 4)

	resp, err := retriever.Retrieve(ctx, &ai.RetrieverRequest{
		Query: ai.DocumentFromText("query", nil),
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("Retrieve() returned %d documents, want 2", len(resp.Documents))
	}

	first := resp.Documents[0]
	if got := first.Content[0].Text; got != "best" {
		t.Errorf("first document text = %q, want %q", got, "best")
	}
	if first.Metadata[corpus.MetaChunkID] != "best" {
		t.Errorf("first document chunk_id = %v, want %q", first.Metadata[corpus.MetaChunkID], "best")
	}
	if _, ok := first.Metadata[corpus.MetaSimilarity]; !ok {
		t.Error("document metadata missing similarity")
	}
}

func TestDefineRetriever_HonorsKOption(t *testing.T) {
	g := testutil.NewGenkit(t)

	store := corpus.NewMemoryStore(testutil.NewMockEmbedder(4))
	ctx := context.Background()
	if err := store.Index(ctx, seedChunks("a", "b", "c")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	retriever := corpus.DefineRetriever(g, "ragline", store, 4)

	resp, err := retriever.Retrieve(ctx, &ai.RetrieverRequest{
		Query:   ai.DocumentFromText("a", nil),
		Options: map[string]any{"k": 1},
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(resp.Documents) != 1 {
		t.Errorf("Retrieve() with k=1 returned %d documents, want 1", len(resp.Documents))
	}
}

func TestDefineRetriever_EmptyIndex(t *testing.T) {
	g := testutil.NewGenkit(t)

	store := corpus.NewMemoryStore(testutil.NewMockEmbedder(4))
	retriever := corpus.DefineRetriever(g, "ragline", store, 4)

	resp, err := retriever.Retrieve(context.Background(), &ai.RetrieverRequest{
		Query: ai.DocumentFromText("anything", nil),
	})
	if err != nil {
		t.Fatalf("Retrieve() on empty index error = %v", err)
	}
	if len(resp.Documents) != 0 {
		t.Errorf("Retrieve() on empty index returned %d documents, want 0", len(resp.Documents))
	}
}
