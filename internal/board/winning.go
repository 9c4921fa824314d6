package board

import "github.com/maksverver/pushfight-solver/internal/perm"

// HasWinningMove reports whether the side to move can win this turn: a
// black piece sits on a danger cell flush against the edge of the
// board in some direction, and some white pusher can reach a cell in
// line with it (after 0, 1 or 2 ordinary moves) so that pushing would
// eject it.
func HasWinningMove(p perm.Perm) bool {
	var dangerBuf [len(DangerPositions)]int
	n := 0
	for _, i := range DangerPositions {
		if p[i] == perm.BlackMover || p[i] == perm.BlackPusher {
			dangerBuf[n] = i
			n++
		}
	}
	if n == 0 {
		return false
	}
	return hasWinningMove(dangerBuf[:n], &p, 2, -1)
}

func hasWinningMove(danger []int, p *perm.Perm, movesLeft int, lastMove int) bool {
	for _, di := range danger {
		for d := Direction(0); d < NumDirections; d++ {
			r := FieldRow[di]
			c := FieldCol[di]
			rr := r + dr[d]
			cc := c + dc[d]
			if rr < 0 || rr >= Rows {
				continue
			}
			offBoard := cc < 0 || cc >= Cols || FieldAt(rr, cc) < 0
			if !offBoard {
				continue
			}
			for {
				r -= dr[d]
				c -= dc[d]
				i := FieldAt(r, c)
				if i < 0 || p[i] == perm.BlackAnchor || p[i] == perm.Empty {
					break
				}
				if p[i] == perm.WhitePusher {
					return true
				}
			}
		}
	}

	if movesLeft <= 0 {
		return false
	}

	var moves Moves
	var buf [1]Step
	won := false
	for i0 := 0; i0 < perm.L && !won; i0++ {
		if i0 == lastMove {
			continue
		}
		if p[i0] != perm.WhiteMover && p[i0] != perm.WhitePusher {
			continue
		}
		moves.Steps = buf[:0]
		bfsMovesDest(p, &moves, i0, func(dest int) bool {
			if hasWinningMove(danger, p, movesLeft-1, dest) {
				won = true
				return false
			}
			return true
		})
	}
	return won
}
