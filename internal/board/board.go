// Package board implements Push Fight board geometry and move rules:
// field adjacency, push validity, push execution, and the immediate-win
// test used by the phase-0 driver.
package board

import (
	"fmt"

	"github.com/maksverver/pushfight-solver/internal/perm"
)

// Board dimensions. The playing field is a 4x8 grid with the four
// corners and two extra cells removed, leaving 26 usable cells.
const (
	Rows = 4
	Cols = 8
)

// fieldIndex[r][c] maps a (row, col) grid coordinate to a field index in
// [0, L), or -1 if that coordinate is off the board.
var fieldIndex = [Rows][Cols]int{
	{-1, -1, 0, 1, 2, 3, 4, -1},
	{5, 6, 7, 8, 9, 10, 11, 12},
	{13, 14, 15, 16, 17, 18, 19, 20},
	{-1, 21, 22, 23, 24, 25, -1, -1},
}

// FieldRow and FieldCol are the inverse of fieldIndex: the grid row/col
// of a given field index.
var FieldRow [perm.L]int
var FieldCol [perm.L]int

func init() {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if i := fieldIndex[r][c]; i >= 0 {
				FieldRow[i] = r
				FieldCol[i] = c
			}
		}
	}
}

// Direction indexes into the DR/DC delta tables.
type Direction int

const (
	Up Direction = iota
	Left
	Right
	Down
	NumDirections
)

var dr = [NumDirections]int{-1, 0, 0, 1}
var dc = [NumDirections]int{0, -1, 1, 0}

// noField is returned by FieldAt for off-board coordinates.
const noField = -1

// FieldAt returns the field index at grid coordinate (r, c), or -1 if
// that coordinate is off the board.
func FieldAt(r, c int) int {
	if r < 0 || r >= Rows || c < 0 || c >= Cols {
		return noField
	}
	return fieldIndex[r][c]
}

// Neighbor returns the field index adjacent to field i in direction d,
// or -1 if there is none.
func Neighbor(i int, d Direction) int {
	return FieldAt(FieldRow[i]+dr[d], FieldCol[i]+dc[d])
}

// neighbors[i] lists the (up to 4) valid neighbor field indices of field
// i, terminated by -1.
var neighbors [perm.L][NumDirections + 1]int8

func init() {
	for i := 0; i < perm.L; i++ {
		n := 0
		for d := Direction(0); d < NumDirections; d++ {
			if j := Neighbor(i, d); j >= 0 {
				neighbors[i][n] = int8(j)
				n++
			}
		}
		neighbors[i][n] = -1
	}
}

// Neighbors returns the valid neighbor field indices of field i.
func Neighbors(i int) []int8 {
	n := &neighbors[i]
	k := 0
	for n[k] != -1 {
		k++
	}
	return n[:k]
}

// DangerPositions are the ten edge cells from which a push can eject a
// piece off the board.
var DangerPositions = [...]int{0, 4, 5, 6, 12, 13, 19, 20, 21, 25}

// InversePiece maps a symbol to its color-swapped, anchor-stripped
// counterpart. Used when executing a push, which always flips the
// perspective to the opponent.
var InversePiece = [perm.NumSymbols]byte{
	perm.Empty:       perm.Empty,
	perm.WhiteMover:  perm.BlackMover,
	perm.WhitePusher: perm.BlackPusher,
	perm.BlackMover:  perm.WhiteMover,
	perm.BlackPusher: perm.WhitePusher,
	perm.BlackAnchor: perm.WhitePusher,
}

// InitialPosition is a fixed sample layout with all ten pieces on the
// board and one black pusher anchored (an InProgress position).
var InitialPosition = perm.Perm{
	0, 2, 4, 0, 0,
	0, 0, 0, 1, 3, 5, 0, 0,
	0, 0, 2, 1, 3, 0, 0, 0,
	0, 0, 2, 4, 0,
}

// Outcome is a position's game-theoretic result relative to the side to
// move: Tie (undetermined or drawn by this phase), Loss, or Win.
type Outcome int

const (
	Tie Outcome = iota
	Loss
	Win
)

func (o Outcome) String() string {
	switch o {
	case Tie:
		return "Tie"
	case Loss:
		return "Loss"
	case Win:
		return "Win"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Inverse returns the outcome as seen by the opposing player.
func (o Outcome) Inverse() Outcome {
	switch o {
	case Win:
		return Loss
	case Loss:
		return Win
	default:
		return Tie
	}
}

// Max returns the better of two outcomes from the perspective of the
// player choosing between them (Win > Tie > Loss).
func Max(a, b Outcome) Outcome {
	if a == Win || b == Win {
		return Win
	}
	if a == Tie || b == Tie {
		return Tie
	}
	return Loss
}

// Step is a single (from, to) field-index pair: either a piece move (to
// is empty) or the final push (to is an adjacent occupied field).
type Step struct {
	From, To int8
}

// Moves is a turn: 0, 1 or 2 piece moves followed by exactly one push.
type Moves struct {
	Steps []Step
}

// State pairs a resulting position with the outcome of reaching it.
type State struct {
	Perm    perm.Perm
	Outcome Outcome
}

// IsValidPush reports whether a push from field i in direction d is
// legal in the given position: there must be a contiguous run of
// occupied, non-anchored cells starting at i+d, ending either at an
// empty cell (a normal push) or at the edge of the board as long as the
// last piece ejected is black (pushing one's own piece off is illegal).
func IsValidPush(p *perm.Perm, i int, d Direction) bool {
	r := FieldRow[i] + dr[d]
	c := FieldCol[i] + dc[d]
	j := FieldAt(r, c)
	if j < 0 {
		return false
	}
	last := p[j]
	if last == perm.Empty {
		return false
	}
	for last != perm.Empty {
		if last == perm.BlackAnchor {
			return false
		}
		r += dr[d]
		c += dc[d]
		if r < 0 || r >= Rows {
			return false
		}
		j = FieldAt(r, c)
		if j < 0 {
			return last != perm.WhiteMover && last != perm.WhitePusher
		}
		last = p[j]
	}
	return true
}

// ExecutePush executes a push from field i in direction d: it first
// flips every piece's color (and strips the anchor), places a new
// anchor at the pusher's destination, then shifts the pushed run of
// pieces one cell further in direction d. It reports the outcome for
// the player about to move next: Loss if a (now-flipped) white piece
// fell off the board, Win if a black piece did, Tie otherwise.
//
// p is modified in place. IsValidPush(p, i, d) must hold beforehand.
func ExecutePush(p *perm.Perm, i int, d Direction) Outcome {
	for j := 0; j < perm.L; j++ {
		p[j] = InversePiece[p[j]]
	}
	p[i] = perm.BlackAnchor

	r := FieldRow[i]
	c := FieldCol[i]
	carried := byte(perm.Empty)
	for {
		j := FieldAt(r, c)
		if j < 0 {
			if carried == perm.WhiteMover || carried == perm.WhitePusher {
				return Loss
			}
			return Win
		}
		next := p[j]
		p[j] = carried
		carried = next
		if carried == perm.Empty {
			return Tie
		}
		r += dr[d]
		c += dc[d]
	}
}
