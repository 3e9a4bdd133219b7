package thread

import (
	"context"
	"sync"
)

// Store is the persistence surface the pipeline depends on. Implementations
// must be safe for concurrent use; the pipeline serializes access per thread
// but distinct threads load and save in parallel.
type Store interface {
	// Load returns the state for a thread, or ErrNotFound.
	Load(ctx context.Context, threadID string) (*State, error)
	// Save persists the full state, replacing any previous version.
	Save(ctx context.Context, state *State) error
}

// MemoryStore keeps thread state in process memory. It is the default
// backend; state does not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*State)}
}

// Load implements Store. The returned state is a copy.
func (m *MemoryStore) Load(_ context.Context, threadID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

// Save implements Store. The stored state is a copy, so later mutations of
// the argument do not leak into the store.
func (m *MemoryStore) Save(_ context.Context, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[state.ThreadID] = state.Clone()
	return nil
}

// Len returns the number of stored threads.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.threads)
}
