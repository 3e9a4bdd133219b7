// Package retriever adapts a Genkit retriever into the chunk-oriented
// interface the answer pipeline consumes.
package retriever

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/ragline/ragline/internal/corpus"
)

// Adapter wraps an ai.Retriever and converts its documents back into corpus
// chunks. Results keep the retriever's order: descending similarity, ties by
// ingestion order. It holds no cache; every call re-embeds and re-searches.
type Adapter struct {
	retriever ai.Retriever
	topK      int
}

// New creates an Adapter requesting topK results per query.
func New(r ai.Retriever, topK int) *Adapter {
	return &Adapter{retriever: r, topK: topK}
}

// Retrieve returns the chunks most relevant to query. An empty index yields
// an empty slice and a nil error.
func (a *Adapter) Retrieve(ctx context.Context, query string) ([]corpus.Chunk, error) {
	resp, err := a.retriever.Retrieve(ctx, &ai.RetrieverRequest{
		Query:   ai.DocumentFromText(query, nil),
		Options: map[string]any{"k": a.topK},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	chunks := make([]corpus.Chunk, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		chunks = append(chunks, chunkFromDocument(doc))
	}
	return chunks, nil
}

// chunkFromDocument rebuilds a Chunk from the metadata the corpus retriever
// attaches. Unknown metadata keys are carried through as string metadata.
func chunkFromDocument(doc *ai.Document) corpus.Chunk {
	chunk := corpus.Chunk{Content: documentText(doc)}

	for key, value := range doc.Metadata {
		switch key {
		case corpus.MetaChunkID:
			chunk.ID, _ = value.(string)
		case corpus.MetaDocumentID:
			chunk.DocumentID, _ = value.(string)
		case corpus.MetaStartOffset:
			chunk.StartOffset = metaInt(value)
		case corpus.MetaSimilarity:
			// score is positional, not persisted on the chunk
		default:
			if s, ok := value.(string); ok {
				if chunk.Metadata == nil {
					chunk.Metadata = make(map[string]string)
				}
				chunk.Metadata[key] = s
			}
		}
	}
	return chunk
}

func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// metaInt tolerates the numeric widenings a metadata round trip can apply.
func metaInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
