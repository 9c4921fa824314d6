package verify

import (
	"testing"

	"github.com/maksverver/pushfight-solver/internal/board"
	"github.com/maksverver/pushfight-solver/internal/ef"
)

type mapOutcomes struct {
	values map[int64]board.Outcome
}

func newMapOutcomes() *mapOutcomes {
	return &mapOutcomes{values: make(map[int64]board.Outcome)}
}

func (m *mapOutcomes) Get(i int64) board.Outcome { return m.values[i] }

func (m *mapOutcomes) Set(i int64, o board.Outcome) error {
	m.values[i] = o
	return nil
}

func TestApplyChunkDelta(t *testing.T) {
	losses := ef.Encode([]uint64{3, 7})
	wins := ef.Encode([]uint64{1, 2})
	delta := append(append([]byte(nil), losses...), wins...)

	out := newMapOutcomes()
	if err := ApplyChunkDelta(out, delta); err != nil {
		t.Fatalf("ApplyChunkDelta: %v", err)
	}
	for _, i := range []int64{3, 7} {
		if out.Get(i) != board.Loss {
			t.Fatalf("Get(%d) = %v, want Loss", i, out.Get(i))
		}
	}
	for _, i := range []int64{1, 2} {
		if out.Get(i) != board.Win {
			t.Fatalf("Get(%d) = %v, want Win", i, out.Get(i))
		}
	}
}

func TestApplyChunkDeltaIdempotent(t *testing.T) {
	delta := append(ef.Encode([]uint64{4}), ef.Encode(nil)...)
	out := newMapOutcomes()
	out.values[4] = board.Loss // already applied by a previous run
	if err := ApplyChunkDelta(out, delta); err != nil {
		t.Fatalf("ApplyChunkDelta: %v", err)
	}
	if out.Get(4) != board.Loss {
		t.Fatalf("Get(4) = %v, want Loss", out.Get(4))
	}
}

func TestApplyChunkDeltaConflict(t *testing.T) {
	delta := append(ef.Encode([]uint64{4}), ef.Encode(nil)...)
	out := newMapOutcomes()
	out.values[4] = board.Win // conflicts with the delta's Loss
	if err := ApplyChunkDelta(out, delta); err == nil {
		t.Fatalf("expected integrity error")
	}
}

func TestSHA256HexDeterministic(t *testing.T) {
	a := SHA256Hex([]byte("push fight"))
	b := SHA256Hex([]byte("push fight"))
	if a != b {
		t.Fatalf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("len(hash) = %d, want 64", len(a))
	}
}

func TestVerifyChunksDetectsMismatch(t *testing.T) {
	table := NewChecksumTable([]Digest{
		{Phase: 1, Chunk: 0, SHA256Hex: SHA256Hex([]byte("expected"))},
	})
	r := fakeChunkReader{0: []byte("not expected")}
	mismatches, err := VerifyChunks(r, table, 1, []int64{0})
	if err != nil {
		t.Fatalf("VerifyChunks: %v", err)
	}
	if mismatches != 1 {
		t.Fatalf("mismatches = %d, want 1", mismatches)
	}
}

type fakeChunkReader map[int64][]byte

func (r fakeChunkReader) ReadChunk(c int64) ([]byte, error) { return r[c], nil }
