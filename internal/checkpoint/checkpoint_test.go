package checkpoint

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChunkDoneRoundTrip(t *testing.T) {
	s := openTestStore(t)

	done, err := s.IsChunkDone(3, 100)
	if err != nil {
		t.Fatalf("IsChunkDone: %v", err)
	}
	if done {
		t.Fatalf("chunk should not be marked done yet")
	}

	if err := s.MarkChunkDone(3, 100); err != nil {
		t.Fatalf("MarkChunkDone: %v", err)
	}

	done, err = s.IsChunkDone(3, 100)
	if err != nil {
		t.Fatalf("IsChunkDone: %v", err)
	}
	if !done {
		t.Fatalf("chunk should be marked done")
	}

	// A different phase/chunk key must be unaffected.
	done, err = s.IsChunkDone(3, 101)
	if err != nil {
		t.Fatalf("IsChunkDone: %v", err)
	}
	if done {
		t.Fatalf("unrelated chunk should not be marked done")
	}
}

func TestAutomationStateDefaultsThenPersists(t *testing.T) {
	s := openTestStore(t)

	st, err := s.LoadAutomationState("alice", "machine-1")
	if err != nil {
		t.Fatalf("LoadAutomationState: %v", err)
	}
	if st.BackoffCurrent != 5*time.Second {
		t.Fatalf("default backoff = %v, want 5s", st.BackoffCurrent)
	}

	st.LastPhase = 7
	st.LastChunk = 42
	st.BackoffCurrent = 40 * time.Second
	if err := s.SaveAutomationState(st); err != nil {
		t.Fatalf("SaveAutomationState: %v", err)
	}

	reloaded, err := s.LoadAutomationState("alice", "machine-1")
	if err != nil {
		t.Fatalf("LoadAutomationState: %v", err)
	}
	if reloaded.LastPhase != 7 || reloaded.LastChunk != 42 || reloaded.BackoffCurrent != 40*time.Second {
		t.Fatalf("reloaded state = %+v", reloaded)
	}
}
