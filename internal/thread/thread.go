// Package thread persists per-conversation state keyed by thread id.
//
// A thread's history is append-only: each completed turn adds exactly one
// user message and one model message. Stores return copies so callers can
// never mutate persisted state in place.
package thread

import (
	"errors"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// ErrNotFound indicates the requested thread does not exist in the store.
// Check with errors.Is().
var ErrNotFound = errors.New("thread not found")

// State is the persisted conversation state for a single thread.
type State struct {
	ThreadID   string
	History    []*ai.Message // alternating user/model messages, oldest first
	LastAnswer string
	UpdatedAt  time.Time
}

// NewState creates an empty state for a thread.
func NewState(threadID string) *State {
	return &State{ThreadID: threadID}
}

// Clone returns a copy of the state with its own history slice. Message
// pointers are shared; messages are treated as immutable once appended.
func (s *State) Clone() *State {
	cp := *s
	cp.History = make([]*ai.Message, len(s.History))
	copy(cp.History, s.History)
	return &cp
}

// AppendTurn records one completed question/answer exchange.
func (s *State) AppendTurn(question, answer string) {
	s.History = append(s.History,
		ai.NewUserMessage(ai.NewTextPart(question)),
		ai.NewModelMessage(ai.NewTextPart(answer)),
	)
	s.LastAnswer = answer
	s.UpdatedAt = time.Now()
}

// Turns returns the number of completed exchanges.
func (s *State) Turns() int {
	return len(s.History) / 2
}
