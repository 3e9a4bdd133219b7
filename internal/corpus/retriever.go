package corpus

import (
	"context"
	"strconv"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Searcher is the search capability consumed by the retriever bridge.
// Both Store and MemoryStore satisfy it.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error)
}

// Metadata keys attached to retrieved documents.
const (
	MetaChunkID     = "chunk_id"
	MetaDocumentID  = "document_id"
	MetaStartOffset = "start_offset"
	MetaSimilarity  = "similarity"
)

// DefineRetriever registers a Genkit retriever backed by a Searcher.
// The retriever honors an integer "k" option and falls back to defaultK.
func DefineRetriever(g *genkit.Genkit, name string, store Searcher, defaultK int) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(ctx context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			queryText := ""
			if req.Query != nil && len(req.Query.Content) > 0 {
				queryText = req.Query.Content[0].Text
			}

			topK := defaultK
			if opts, ok := req.Options.(map[string]any); ok {
				if k, exists := opts["k"]; exists {
					if kInt, ok := asInt(k); ok && kInt >= 1 {
						topK = kInt
					}
				}
			}

			results, err := store.Search(ctx, queryText, WithTopK(topK))
			if err != nil {
				return nil, err
			}

			return &ai.RetrieverResponse{Documents: toDocuments(results)}, nil
		},
	)
}

// toDocuments converts search results into Genkit documents, carrying chunk
// identity and score through metadata so callers can reconstruct Chunks.
func toDocuments(results []Result) []*ai.Document {
	docs := make([]*ai.Document, len(results))
	for i, r := range results {
		metadata := map[string]any{
			MetaChunkID:     r.Chunk.ID,
			MetaDocumentID:  r.Chunk.DocumentID,
			MetaStartOffset: r.Chunk.StartOffset,
			MetaSimilarity:  r.Similarity,
		}
		for k, v := range r.Chunk.Metadata {
			metadata[k] = v
		}
		docs[i] = ai.DocumentFromText(r.Chunk.Content, metadata)
	}
	return docs
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
