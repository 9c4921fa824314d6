package phase

import (
	"testing"

	"github.com/maksverver/pushfight-solver/internal/board"
	"github.com/maksverver/pushfight-solver/internal/perm"
)

// mapOutcomes is a trivial in-memory Outcomes/MutableOutcomes
// implementation for unit tests, standing in for a real storage.RN
// accessor backed by a memory-mapped file.
type mapOutcomes struct {
	values map[int64]board.Outcome
}

func newMapOutcomes() *mapOutcomes {
	return &mapOutcomes{values: make(map[int64]board.Outcome)}
}

func (m *mapOutcomes) Get(i int64) board.Outcome {
	return m.values[i] // zero value is board.Tie
}

func (m *mapOutcomes) Set(i int64, o board.Outcome) error {
	m.values[i] = o
	return nil
}

func TestPhase0PartRejectsBadCount(t *testing.T) {
	if _, err := Phase0Part(0, 7); err == nil {
		t.Fatalf("Phase0Part with count not a multiple of 8 should fail")
	}
}

func TestPhase0PartMatchesHasWinningMove(t *testing.T) {
	const start, count = 0, 16
	out, err := Phase0Part(start, count)
	if err != nil {
		t.Fatalf("Phase0Part: %v", err)
	}
	if len(out) != count/8 {
		t.Fatalf("len(out) = %d, want %d", len(out), count/8)
	}
	q := perm.Unrank(start)
	for i := int64(0); i < count; i++ {
		bit := out[i/8]>>uint(i%8)&1 != 0
		want := board.HasWinningMove(q)
		if bit != want {
			t.Fatalf("bit %d = %v, want %v", i, bit, want)
		}
		if i+1 < count {
			perm.Next(&q)
		}
	}
}

func TestSolveOddPartCarriesForwardDecidedOutcomes(t *testing.T) {
	prev := newMapOutcomes()
	prev.values[5] = board.Win
	prev.values[6] = board.Loss
	out := newMapOutcomes()
	if err := SolveOddPart(prev, out, 5, 2); err != nil {
		t.Fatalf("SolveOddPart: %v", err)
	}
	if out.Get(5) != board.Win {
		t.Fatalf("Get(5) = %v, want Win", out.Get(5))
	}
	if out.Get(6) != board.Loss {
		t.Fatalf("Get(6) = %v, want Loss", out.Get(6))
	}
}

func TestNewLosses(t *testing.T) {
	twoBack := newMapOutcomes()
	oneBack := newMapOutcomes()
	oneBack.values[10] = board.Loss // was Tie in twoBack (zero value) -> new loss
	oneBack.values[11] = board.Win  // not a loss
	twoBack.values[12] = board.Loss
	oneBack.values[12] = board.Loss // already a loss last phase, not new

	losses := NewLosses(twoBack, oneBack, 10, 3)
	if len(losses) != 1 || losses[0] != 10 {
		t.Fatalf("NewLosses = %v, want [10]", losses)
	}
}
