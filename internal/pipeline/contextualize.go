package pipeline

import (
	"context"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// contextualizeSystemPrompt instructs the model to rewrite a follow-up
// question so it stands alone. It must never answer.
const contextualizeSystemPrompt = `Given a chat history and the latest user question which might reference context in the chat history, formulate a standalone question which can be understood without the chat history. Do NOT answer the question, just reformulate it if needed and otherwise return it as is.`

// contextualize rewrites question into a standalone form using the chat
// history. An empty history short-circuits: the input is returned unchanged
// with no model call.
func (p *Pipeline) contextualize(ctx context.Context, history []*ai.Message, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	messages := make([]*ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))

	resp, err := p.generateWithRetry(ctx,
		ai.WithModelName(p.modelName),
		ai.WithSystem(contextualizeSystemPrompt),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return "", err
	}

	standalone := strings.TrimSpace(resp.Text())
	if standalone == "" {
		// The model declined to rewrite; the raw question is still usable.
		return question, nil
	}
	return standalone, nil
}
