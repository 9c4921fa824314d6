// Package phase implements the forward-search and back-propagation
// drivers that advance the solver's ternary outcome arrays from one
// phase to the next.
package phase

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/maksverver/pushfight-solver/internal/board"
	"github.com/maksverver/pushfight-solver/internal/ef"
	"github.com/maksverver/pushfight-solver/internal/perm"
)

// Outcomes is the read side of a phase's ternary array, satisfied by
// *storage.RN (and by fakes in tests).
type Outcomes interface {
	Get(i int64) board.Outcome
}

// MutableOutcomes additionally allows writing a new outcome.
type MutableOutcomes interface {
	Outcomes
	Set(i int64, o board.Outcome) error
}

// Phase0Part evaluates board.HasWinningMove for each of the count
// positions starting at start, packing Win as bit 1 and Tie as bit 0,
// LSB-first within each output byte. count must be a multiple of 8 (in
// practice it is a multiple of 16, the part-size alignment).
func Phase0Part(start, count int64) ([]byte, error) {
	if count%8 != 0 {
		return nil, errors.Errorf("phase: part size %d is not a multiple of 8", count)
	}
	out := make([]byte, count/8)
	p := perm.Unrank(start)
	for i := int64(0); i < count; i++ {
		if board.HasWinningMove(p) {
			out[i/8] |= 1 << uint(i%8)
		}
		if i+1 < count {
			if !perm.Next(&p) {
				return nil, errors.Errorf("phase: ran out of permutations before filling part of size %d", count)
			}
		}
	}
	return out, nil
}

// SolveOddPart advances positions [start, start+count) from prev (the
// RN-1 array) to an odd-numbered RN. Positions already Win or Loss in
// prev are carried forward unchanged. A Tie position becomes Loss iff
// every successor's outcome, viewed from the opponent who is about to
// move there, is Win; otherwise it stays Tie, left for a later even
// phase's back-propagation to resolve as Win if warranted.
func SolveOddPart(prev Outcomes, out MutableOutcomes, start, count int64) error {
	p := perm.Unrank(start)
	for i := int64(0); i < count; i++ {
		idx := start + i
		switch o := prev.Get(idx); o {
		case board.Win, board.Loss:
			if err := out.Set(idx, o); err != nil {
				return errors.Wrapf(err, "phase: carrying forward outcome at %d", idx)
			}
		default:
			result := board.Tie
			if allSuccessorsOpponentWin(p, prev) {
				result = board.Loss
			}
			if err := out.Set(idx, result); err != nil {
				return errors.Wrapf(err, "phase: writing outcome at %d", idx)
			}
		}
		if i+1 < count {
			if !perm.Next(&p) {
				return errors.Errorf("phase: ran out of permutations before filling part of size %d", count)
			}
		}
	}
	return nil
}

// allSuccessorsOpponentWin reports whether p has at least one
// successor and every successor's effective outcome, from the
// perspective of the opponent who is now to move, is Win.
func allSuccessorsOpponentWin(p perm.Perm, prev Outcomes) bool {
	anyFound := false
	allWin := true
	board.GenerateSuccessors(p, func(moves board.Moves, state board.State) bool {
		anyFound = true
		opponentOutcome := state.Outcome
		if opponentOutcome == board.Tie {
			opponentOutcome = prev.Get(perm.Rank(state.Perm))
		}
		if opponentOutcome != board.Win {
			allWin = false
			return false
		}
		return true
	})
	return anyFound && allWin
}

// NewLosses scans [start, start+count) and returns, in increasing
// order, every index whose outcome transitioned from Tie in twoBack
// (RN-2) to Loss in oneBack (RN-1). This is the input to back-
// propagation: every new loss's predecessors are candidate new wins.
func NewLosses(twoBack, oneBack Outcomes, start, count int64) []int64 {
	var losses []int64
	for i := int64(0); i < count; i++ {
		idx := start + i
		if twoBack.Get(idx) == board.Tie && oneBack.Get(idx) == board.Loss {
			losses = append(losses, idx)
		}
	}
	return losses
}

// BackPropagate enumerates the predecessors of every index in
// newLosses and marks each predecessor Win in out, provided out
// currently holds Tie there (an already Win/Loss predecessor is left
// untouched; per the outcome-monotonicity invariant outcomes never
// regress). Predecessor candidates that GeneratePredecessors emits are
// a superset of the true predecessor set, so each candidate is
// filtered by board.IsReachable before being marked.
//
// newWins collects, in the order discovered, every index that was
// actually changed from Tie to Win by this call.
func BackPropagate(cur MutableOutcomes, newLosses []int64) (newWins []int64, err error) {
	for _, lossIdx := range newLosses {
		p := perm.Unrank(lossIdx)
		aborted := false
		board.GeneratePredecessors(p, func(q perm.Perm) bool {
			if perm.Validate(q) != perm.InProgress || !board.IsReachable(q) {
				return true
			}
			qIdx := perm.Rank(q)
			if cur.Get(qIdx) != board.Tie {
				return true
			}
			if setErr := cur.Set(qIdx, board.Win); setErr != nil {
				err = errors.Wrapf(setErr, "phase: marking win at %d", qIdx)
				aborted = true
				return false
			}
			newWins = append(newWins, qIdx)
			return true
		})
		if aborted {
			return newWins, err
		}
	}
	return newWins, nil
}

// Solve2Chunk fuses a forward new-losses scan over [start,
// start+count) with immediate back-propagation of those losses,
// returning the chunk's delta as EF(losses) ++ EF(wins). cur is the
// mutable RN array being brought up to date in place (new wins are
// written into it as they're discovered so a later chunk in the same
// pass sees them as already Tie->Win, matching the forward-scan order
// guaranteed by chunk-sequential processing).
func Solve2Chunk(twoBack, oneBack Outcomes, cur MutableOutcomes, start, count int64) ([]byte, error) {
	losses := NewLosses(twoBack, oneBack, start, count)
	for _, idx := range losses {
		if err := cur.Set(idx, board.Loss); err != nil {
			return nil, errors.Wrapf(err, "phase: writing loss at %d", idx)
		}
	}
	wins, err := BackPropagate(cur, losses)
	if err != nil {
		return nil, errors.Wrap(err, "phase: back-propagating chunk losses")
	}
	sort.Slice(wins, func(i, j int) bool { return wins[i] < wins[j] })
	lossVals := make([]uint64, len(losses))
	for i, v := range losses {
		lossVals[i] = uint64(v)
	}
	winVals := make([]uint64, len(wins))
	for i, v := range wins {
		winVals[i] = uint64(v)
	}
	buf := append(ef.Encode(lossVals), ef.Encode(winVals)...)
	return buf, nil
}
