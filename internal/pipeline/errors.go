package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying turn failures. Every error returned by Ask and
// AskBatch wraps exactly one of these; check with errors.Is().
var (
	// ErrValidation indicates the input was rejected before any external call.
	ErrValidation = errors.New("validation failed")

	// ErrRetrieval indicates contextualization or corpus search failed.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrSynthesis indicates answer generation failed.
	ErrSynthesis = errors.New("synthesis failed")

	// ErrState indicates thread state could not be loaded or persisted.
	ErrState = errors.New("state error")
)

// StageError carries the pipeline stage that failed alongside its sentinel
// category and cause. errors.Is matches both the sentinel and the cause.
type StageError struct {
	Stage string // "contextualize", "retrieve", "synthesize", "load", "commit"
	Kind  error  // one of the sentinels above
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageError(stage string, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
