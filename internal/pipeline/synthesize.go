package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/ragline/ragline/internal/corpus"
)

// synthesizeSystemPrompt grounds the answer in retrieved context and bounds
// its length. The context block is substituted at call time.
const synthesizeSystemPrompt = `You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Use three to seven sentences maximum and keep the answer concise, while still giving depth to the answer.

Context:
%s`

// synthesize produces the grounded answer for a standalone question. Empty
// chunks still produce an answer; the model is expected to say it lacks
// context rather than fabricate.
func (p *Pipeline) synthesize(ctx context.Context, chunks []corpus.Chunk, question string, history []*ai.Message) (string, error) {
	messages := make([]*ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))

	resp, err := p.generateWithRetry(ctx,
		ai.WithModelName(p.modelName),
		ai.WithSystem(fmt.Sprintf(synthesizeSystemPrompt, contextBlock(chunks))),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", errors.New("model returned an empty answer")
	}
	return answer, nil
}

// contextBlock joins chunk texts into the prompt's context section.
func contextBlock(chunks []corpus.Chunk) string {
	if len(chunks) == 0 {
		return "(no relevant context found)"
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return strings.Join(texts, "\n\n")
}
