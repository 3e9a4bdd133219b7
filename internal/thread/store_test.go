package thread

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestMemoryStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	state := NewState("t1")
	state.AppendTurn("what is Go?", "Go is a programming language.")

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ThreadID != "t1" {
		t.Errorf("ThreadID = %q, want %q", loaded.ThreadID, "t1")
	}
	if len(loaded.History) != 2 {
		t.Fatalf("History length = %d, want 2", len(loaded.History))
	}
	if loaded.History[0].Role != ai.RoleUser || loaded.History[1].Role != ai.RoleModel {
		t.Errorf("roles = %v, %v, want user then model", loaded.History[0].Role, loaded.History[1].Role)
	}
	if loaded.LastAnswer != "Go is a programming language." {
		t.Errorf("LastAnswer = %q", loaded.LastAnswer)
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	state := NewState("t1")
	state.AppendTurn("q1", "a1")
	if err := store.Save(ctx, state); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	loaded.AppendTurn("q2", "a2")

	again, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(again.History) != 2 {
		t.Errorf("mutating a loaded state leaked into the store: history length = %d, want 2", len(again.History))
	}
}

func TestMemoryStore_SaveStoresCopy(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	state := NewState("t1")
	state.AppendTurn("q1", "a1")
	if err := store.Save(ctx, state); err != nil {
		t.Fatal(err)
	}

	state.AppendTurn("q2", "a2")

	loaded, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.History) != 2 {
		t.Errorf("mutating a saved state leaked into the store: history length = %d, want 2", len(loaded.History))
	}
}

func TestMemoryStore_ConcurrentThreads(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("thread-%d", i)
			state := NewState(id)
			state.AppendTurn("question", "answer")
			if err := store.Save(ctx, state); err != nil {
				t.Errorf("Save(%s) error = %v", id, err)
				return
			}
			if _, err := store.Load(ctx, id); err != nil {
				t.Errorf("Load(%s) error = %v", id, err)
			}
		}()
	}
	wg.Wait()

	if store.Len() != 20 {
		t.Errorf("Len() = %d, want 20", store.Len())
	}
}

func TestState_AppendTurn(t *testing.T) {
	t.Parallel()

	state := NewState("t1")
	for i := range 3 {
		state.AppendTurn(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	if got := len(state.History); got != 6 {
		t.Fatalf("history length = %d, want 6", got)
	}
	if state.Turns() != 3 {
		t.Errorf("Turns() = %d, want 3", state.Turns())
	}
	for i, msg := range state.History {
		want := ai.RoleUser
		if i%2 == 1 {
			want = ai.RoleModel
		}
		if msg.Role != want {
			t.Errorf("History[%d].Role = %v, want %v", i, msg.Role, want)
		}
	}
	if state.LastAnswer != "a2" {
		t.Errorf("LastAnswer = %q, want %q", state.LastAnswer, "a2")
	}
	if state.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}
