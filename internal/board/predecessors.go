package board

import "github.com/maksverver/pushfight-solver/internal/perm"

// PredecessorFunc is invoked once per predecessor candidate generated by
// GeneratePredecessors.
type PredecessorFunc func(p perm.Perm) bool

// GeneratePredecessors enumerates candidate predecessors of p: positions
// from which some turn (by the player who is now the opponent) could
// have led to p.
//
// As documented in the original implementation, this is a superset of
// the true predecessor set: the choice of which black pusher was
// anchored before the push is ambiguous (any un-pushed black pusher is
// tried), and the number of pieces actually displaced by the push isn't
// recoverable from p alone, so every prefix of the displaced chain is
// tried too. Some candidates are themselves unreachable; callers must
// filter using IsReachable or an equivalent check.
func GeneratePredecessors(p perm.Perm, callback PredecessorFunc) bool {
	for anchorIdx := 0; anchorIdx < perm.L; anchorIdx++ {
		if p[anchorIdx] != perm.BlackAnchor {
			continue
		}
		for d := Direction(0); d < NumDirections; d++ {
			if !predecessorsForPull(p, anchorIdx, d, callback) {
				return false
			}
		}
	}
	return true
}

// predecessorsForPull tries reconstructing the position(s) that could
// have preceded a push that left the anchor at anchorIdx, assuming the
// pusher's pre-push cell lies in direction d from the anchor (d is the
// "pull" direction: the reverse of the push itself).
func predecessorsForPull(p perm.Perm, anchorIdx int, d Direction, callback PredecessorFunc) bool {
	r := FieldRow[anchorIdx]
	c := FieldCol[anchorIdx]

	// The pusher's pre-push cell, which it vacated; must be empty now.
	origin := FieldAt(r+dr[d], c+dc[d])
	if origin < 0 || p[origin] != perm.Empty {
		return true
	}
	// The cell that received the first displaced piece; must be occupied.
	firstPushed := FieldAt(r-dr[d], c-dc[d])
	if firstPushed < 0 || p[firstPushed] == perm.Empty {
		return true
	}

	// Undo the color flip that ExecutePush applies; this also turns the
	// anchor back into an unanchored pusher.
	var q perm.Perm
	for j := 0; j < perm.L; j++ {
		q[j] = InversePiece[p[j]]
	}
	// Return the pusher to its pre-push cell.
	q[origin] = q[anchorIdx]

	// Walk the displaced chain backward (towards the push direction, -d),
	// trying every possible chain length: at each length, some other
	// black pusher not yet part of the reconstructed chain could have
	// been the anchor one ply further back.
	j := anchorIdx
	i := firstPushed
	rr, cc := FieldRow[firstPushed], FieldCol[firstPushed]
	var pushed uint32
	for i >= 0 && q[i] != perm.Empty {
		pushed |= 1 << uint(j)
		q[j] = q[i]
		j = i
		rr -= dr[d]
		cc -= dc[d]
		i = FieldAt(rr, cc)
		q[j] = perm.Empty

		for k := 0; k < perm.L; k++ {
			if q[k] != perm.BlackPusher || pushed&(1<<uint(k)) != 0 {
				continue
			}
			q[k] = perm.BlackAnchor
			ok := generatePredecessorMoves(&q, 0, -1, callback) &&
				generatePredecessorMoves(&q, 1, -1, callback) &&
				generatePredecessorMoves(&q, 2, -1, callback)
			q[k] = perm.BlackPusher
			if !ok {
				return false
			}
		}
	}
	return true
}

// generatePredecessorMoves prepends exactly movesLeft piece moves (by
// the player to move in q) before invoking callback, reusing the same
// BFS helper that drives forward move generation. lastDest excludes the
// piece that was just relocated by the enclosing recursive call, so it
// isn't immediately moved again.
func generatePredecessorMoves(q *perm.Perm, movesLeft int, lastDest int, callback PredecessorFunc) bool {
	if movesLeft == 0 {
		return callback(*q)
	}
	var moves Moves
	var buf [2]Step
	moves.Steps = buf[:0]
	for i0 := 0; i0 < perm.L; i0++ {
		if i0 == lastDest {
			continue
		}
		if q[i0] != perm.WhiteMover && q[i0] != perm.WhitePusher {
			continue
		}
		ok := bfsMovesDest(q, &moves, i0, func(dest int) bool {
			return generatePredecessorMoves(q, movesLeft-1, dest, callback)
		})
		if !ok {
			return false
		}
	}
	return true
}

// IsReachable reports whether p has at least one predecessor candidate
// that is itself a well-formed (InProgress) position. This is the
// canonical reachability test: a position is reachable if some turn by
// the opponent could plausibly have produced it.
func IsReachable(p perm.Perm) bool {
	reachable := false
	GeneratePredecessors(p, func(q perm.Perm) bool {
		if perm.Validate(q) == perm.InProgress {
			reachable = true
			return false
		}
		return true
	})
	return reachable
}
