package board

import (
	"sort"

	"github.com/maksverver/pushfight-solver/internal/perm"
)

// SuccessorFunc is invoked once per legal turn reachable from the
// position passed to GenerateSuccessors. Returning false aborts
// enumeration early.
type SuccessorFunc func(moves Moves, state State) bool

// GenerateSuccessors enumerates every legal turn (0, 1 or 2 piece moves
// followed by exactly one push) reachable from p. It mutates a working
// copy internally and is safe to call with p unmodified afterwards.
//
// The kernel runs three separate passes: exactly zero moves, exactly
// one move, exactly two moves before the mandatory push, unioning their
// results, matching the structure of the original C++ search-impl.h
// (and mirrored here by GeneratePredecessors' own 0/1/2-move passes).
func GenerateSuccessors(p perm.Perm, callback SuccessorFunc) bool {
	var moves Moves
	var buf [3]Step
	moves.Steps = buf[:0]
	return generateSuccessors(&p, &moves, 0, callback) &&
		generateSuccessors(&p, &moves, 1, callback) &&
		generateSuccessors(&p, &moves, 2, callback)
}

func generateSuccessors(p *perm.Perm, moves *Moves, movesLeft int, callback SuccessorFunc) bool {
	if movesLeft > 0 {
		for i0 := 0; i0 < perm.L; i0++ {
			if p[i0] != perm.WhiteMover && p[i0] != perm.WhitePusher {
				continue
			}
			// Never re-move the piece that was just moved.
			if n := len(moves.Steps); n > 0 && int(moves.Steps[n-1].To) == i0 {
				continue
			}
			ok := bfsMovesDest(p, moves, i0, func(int) bool {
				return generateSuccessors(p, moves, movesLeft-1, callback)
			})
			if !ok {
				return false
			}
		}
		return true
	}
	// Generate push moves.
	for i := 0; i < perm.L; i++ {
		if p[i] != perm.WhitePusher {
			continue
		}
		for d := Direction(0); d < NumDirections; d++ {
			if !IsValidPush(p, i, d) {
				continue
			}
			moves.Steps = append(moves.Steps, Step{From: int8(i), To: int8(Neighbor(i, d))})

			state := State{Perm: *p}
			state.Outcome = ExecutePush(&state.Perm, i, d)

			ok := callback(*moves, state)

			moves.Steps = moves.Steps[:len(moves.Steps)-1]
			if !ok {
				return false
			}
		}
	}
	return true
}

// bfsMovesDest explores every empty cell reachable from i0 by a single
// piece move (breadth-first over adjacency). For each one it appends
// the move to moves, swaps the piece into place, and invokes next with
// the destination field; the move and piece position are restored
// afterwards regardless of next's result.
func bfsMovesDest(p *perm.Perm, moves *Moves, i0 int, next func(dest int) bool) bool {
	var todo [perm.L]int8
	todoSize := 0
	todo[todoSize] = int8(i0)
	todoSize++
	var visited uint32 = 1 << uint(i0)
	for j := 0; j < todoSize; j++ {
		i1 := int(todo[j])
		for _, i2 := range Neighbors(i1) {
			bit := uint32(1) << uint(i2)
			if p[i2] != perm.Empty || visited&bit != 0 {
				continue
			}
			visited |= bit
			todo[todoSize] = i2
			todoSize++

			moves.Steps = append(moves.Steps, Step{From: int8(i0), To: i2})
			p[i0], p[i2] = p[i2], p[i0]
			ok := next(int(i2))
			p[i0], p[i2] = p[i2], p[i0]
			moves.Steps = moves.Steps[:len(moves.Steps)-1]

			if !ok {
				return false
			}
		}
	}
	return true
}

// Successor pairs the move sequence that was played with the resulting
// state.
type Successor struct {
	Moves Moves
	State State
}

// GenerateAllSuccessors returns every successor of p as a slice, for
// callers that don't need early-abort.
func GenerateAllSuccessors(p perm.Perm) []Successor {
	var result []Successor
	GenerateSuccessors(p, func(moves Moves, state State) bool {
		stepsCopy := append([]Step(nil), moves.Steps...)
		result = append(result, Successor{Moves{Steps: stepsCopy}, state})
		return true
	})
	return result
}

// Deduplicate collapses successors that differ only in the move
// sequence but lead to the same resulting position, keeping the
// shortest move sequence for each distinct position.
func Deduplicate(successors []Successor) []Successor {
	sort.SliceStable(successors, func(i, j int) bool {
		a, b := successors[i], successors[j]
		if a.State.Perm != b.State.Perm {
			return perm.Less(a.State.Perm, b.State.Perm)
		}
		return len(a.Moves.Steps) < len(b.Moves.Steps)
	})
	out := successors[:0:0]
	for i, s := range successors {
		if i == 0 || s.State.Perm != successors[i-1].State.Perm {
			out = append(out, s)
		}
	}
	return out
}
