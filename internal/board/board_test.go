package board

import (
	"testing"

	"github.com/maksverver/pushfight-solver/internal/perm"
)

// TestIsValidPushRejectsEjectingOwnPiece builds a position where a
// white pusher faces a short, unanchored run of its own pieces ending
// at the edge of the board. Pushing it off the board is illegal, so
// IsValidPush must reject it even though the run has no anchor and no
// gap.
func TestIsValidPushRejectsEjectingOwnPiece(t *testing.T) {
	var p perm.Perm
	for i := range p {
		p[i] = perm.Empty
	}
	// Field 1 (row 0, col 3) pushing Left runs straight into field 0 (row
	// 0, col 2), whose left neighbour (row 0, col 1) is off the board. A
	// white mover sitting on field 0 would be the piece ejected.
	p[1] = perm.WhitePusher
	p[0] = perm.WhiteMover

	if IsValidPush(&p, 1, Left) {
		t.Fatalf("pushing a white pusher's own piece off the board should be illegal")
	}
}

// TestHasWinningMoveFalseWhenOnlyPushEjectsOwnPiece extends the same
// scenario to HasWinningMove and to every direction tried from the
// pusher's cell: with no black piece on the board at all, there is no
// danger cell to threaten, so HasWinningMove must report false, and the
// only push available from the pusher's cell (toward its own piece at
// the edge) must be rejected by IsValidPush in every direction.
func TestHasWinningMoveFalseWhenOnlyPushEjectsOwnPiece(t *testing.T) {
	var p perm.Perm
	for i := range p {
		p[i] = perm.Empty
	}
	p[1] = perm.WhitePusher
	p[0] = perm.WhiteMover

	if HasWinningMove(p) {
		t.Fatalf("HasWinningMove should be false with no black piece on a danger cell")
	}
	for d := Direction(0); d < NumDirections; d++ {
		if IsValidPush(&p, 1, d) {
			t.Fatalf("IsValidPush(1, %v) should be false; the only piece in line is the pusher's own", d)
		}
	}
}

// TestGenerateSuccessorsPredecessorSymmetry checks property 4: for
// every successor q of p (reached by some push), p (or an equivalent
// position under GeneratePredecessors' documented over-approximation)
// appears among the candidates GeneratePredecessors produces from q,
// once q's pieces are interpreted from the pusher's perspective.
//
// GeneratePredecessors is documented to return a superset of true
// predecessors, so this only checks that some candidate matches p
// exactly rather than requiring an exact inverse.
func TestGenerateSuccessorsPredecessorSymmetry(t *testing.T) {
	successors := GenerateAllSuccessors(InitialPosition)
	checked := 0
	for _, s := range successors {
		if s.State.Outcome != Tie {
			// Terminal pushes end the game; there is no predecessor
			// search performed for them by the solver.
			continue
		}
		found := false
		GeneratePredecessors(s.State.Perm, func(q perm.Perm) bool {
			if q == InitialPosition {
				found = true
				return false
			}
			return true
		})
		if !found {
			t.Errorf("GeneratePredecessors(%v) did not include the known predecessor", s.State.Perm)
		}
		checked++
		if checked >= 20 {
			break
		}
	}
	if checked == 0 {
		t.Fatalf("no non-terminal successors found to check")
	}
}
