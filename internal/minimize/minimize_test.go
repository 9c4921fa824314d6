package minimize

import (
	"testing"

	"github.com/maksverver/pushfight-solver/internal/perm"
)

func TestBuilderAssignsIncreasingIndices(t *testing.T) {
	b := NewBuilder()
	var seen []perm.Perm
	for i := 0; i < 5; i++ {
		p, mi, ok := b.Advance()
		if !ok {
			t.Fatalf("Advance() exhausted unexpectedly at step %d", i)
		}
		if mi != int64(i) {
			t.Fatalf("Advance() step %d: minIndex = %d, want %d", i, mi, i)
		}
		if !isCanonicalReachable(p) {
			t.Fatalf("Advance() step %d returned a position that isn't canonical+reachable", i)
		}
		seen = append(seen, p)
	}
	if b.Count() != 5 {
		t.Fatalf("Count() = %d, want 5", b.Count())
	}
}

func TestPermAtMinIndexMatchesBuilder(t *testing.T) {
	b := NewBuilder()
	first, mi, ok := b.Advance()
	if !ok {
		t.Fatalf("Advance() found nothing")
	}
	if mi != 0 {
		t.Fatalf("first Advance() minIndex = %d, want 0", mi)
	}
	got, err := PermAtMinIndex(0)
	if err != nil {
		t.Fatalf("PermAtMinIndex(0): %v", err)
	}
	if got != first {
		t.Fatalf("PermAtMinIndex(0) = %v, want %v", got, first)
	}
}

func TestMinIndexOfRoundTrip(t *testing.T) {
	p, err := PermAtMinIndex(0)
	if err != nil {
		t.Fatalf("PermAtMinIndex(0): %v", err)
	}
	mi, err := MinIndexOf(p)
	if err != nil {
		t.Fatalf("MinIndexOf: %v", err)
	}
	if mi != 0 {
		t.Fatalf("MinIndexOf(PermAtMinIndex(0)) = %d, want 0", mi)
	}
}

func TestPermAtMinIndexOutOfRange(t *testing.T) {
	if _, err := PermAtMinIndex(-1); err == nil {
		t.Fatalf("PermAtMinIndex(-1) should fail")
	}
	if _, err := PermAtMinIndex(Size); err == nil {
		t.Fatalf("PermAtMinIndex(Size) should fail")
	}
}
