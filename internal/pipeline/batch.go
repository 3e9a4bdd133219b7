package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// MaxBatchSize is the largest batch a single AskBatch call accepts.
const MaxBatchSize = 10

// BatchItem is one question in a batch request.
type BatchItem struct {
	ThreadID string
	Question string
}

// BatchResult is the outcome of one batch item. Exactly one of Turn and Err
// is set.
type BatchResult struct {
	Turn *Turn
	Err  error
}

// AskBatch runs up to MaxBatchSize turns concurrently. Oversized or empty
// batches are rejected wholesale before any turn runs. Individual failures
// land in the corresponding BatchResult; they never abort the batch.
// Items addressing the same thread are still serialized by the thread lock.
func (p *Pipeline) AskBatch(ctx context.Context, items []BatchItem) ([]BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", ErrValidation)
	}
	if len(items) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size %d exceeds maximum %d", ErrValidation, len(items), MaxBatchSize)
	}

	results := make([]BatchResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			turn, err := p.Ask(ctx, item.ThreadID, item.Question)
			results[i] = BatchResult{Turn: turn, Err: err}
		}()
	}
	wg.Wait()

	return results, nil
}
