// Package perm implements the permutation codec: a bijection between
// Push Fight mid-game positions and a dense integer index.
//
// A position is a 26-symbol sequence drawn from the multiset
// {0x16, 1x2, 2x3, 3x2, 4x2, 5x1} (see Symbol constants). There are
// exactly 26! / (16! 2! 3! 2! 2! 1!) = 401,567,166,000 distinct
// permutations of that multiset; Rank and Unrank are the forward and
// inverse side of that bijection.
package perm

import "fmt"

// L is the number of cells on the Push Fight board.
const L = 26

// Symbol values that make up the master multiset. Each cell of the board
// holds exactly one of these.
const (
	Empty       = 0
	WhiteMover  = 1
	WhitePusher = 2
	BlackMover  = 3
	BlackPusher = 4
	BlackAnchor = 5

	NumSymbols = 6
)

// freq holds the multiset frequency of each symbol: 16 empties, 2 white
// movers, 3 white pushers, 2 black movers, 2 black pushers, 1 anchor.
var freq = [NumSymbols]int{16, 2, 3, 2, 2, 1}

// TotalPerms is the number of distinct permutations of the master
// multiset, i.e. the size of the InProgress index range.
const TotalPerms int64 = 401567166000

// Perm is a Push Fight position encoded as a sequence of L symbols.
type Perm [L]byte

// FirstPerm is the permutation at index 0: all empties first, then the
// remaining symbols in ascending order.
var FirstPerm = Perm{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 2, 2, 2, 3, 3, 4, 4, 5,
}

// LastPerm is the permutation at index TotalPerms-1: the reverse ordering.
var LastPerm = Perm{
	5, 4, 4, 3, 3, 2, 2, 2, 1, 1,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Type classifies a Perm by how many of the master multiset's symbols
// are present.
type Type int

const (
	// Invalid permutations do not match the master multiset at all, nor
	// any one-symbol-short variant of it.
	Invalid Type = iota
	// Started positions have all pieces placed but no anchor yet (i.e.
	// no move has been made).
	Started
	// InProgress positions have exactly one anchor placed. Only these
	// have a defined Rank.
	InProgress
	// Finished positions are missing exactly one piece (it was pushed
	// off the board).
	Finished
)

func (t Type) String() string {
	switch t {
	case Invalid:
		return "Invalid"
	case Started:
		return "Started"
	case InProgress:
		return "InProgress"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// numPerms[a][b][c][d][e][f] is the number of distinct permutations of a
// multiset string with a 0s, b 1s, c 2s, d 3s, e 4s and f 5s.
var numPerms [17][3][4][3][3][2]int64

// rankPrefix[x][a][b][c][d][e][f] is the number of permutations of the
// multiset (a,b,c,d,e,f) whose first symbol is strictly less than x.
var rankPrefix [NumSymbols][17][3][4][3][3][2]int64

func init() {
	for a := 0; a <= 16; a++ {
		for b := 0; b <= 2; b++ {
			for c := 0; c <= 3; c++ {
				for d := 0; d <= 2; d++ {
					for e := 0; e <= 2; e++ {
						for f := 0; f <= 1; f++ {
							// n = total! / (a! b! c! d! e! f!), summed over the
							// possible first symbols (26! itself overflows int64).
							freqArr := [NumSymbols]int{a, b, c, d, e, f}
							var n int64
							if a+b+c+d+e+f == 0 {
								n = 1
							}
							for y := 0; y < NumSymbols; y++ {
								if freqArr[y] > 0 {
									freqArr[y]--
									n += count(freqArr)
									freqArr[y]++
								}
							}
							numPerms[a][b][c][d][e][f] = n
						}
					}
				}
			}
		}
	}

	for a := 0; a <= 16; a++ {
		for b := 0; b <= 2; b++ {
			for c := 0; c <= 3; c++ {
				for d := 0; d <= 2; d++ {
					for e := 0; e <= 2; e++ {
						for f := 0; f <= 1; f++ {
							freqArr := [NumSymbols]int{a, b, c, d, e, f}
							for x := 0; x < NumSymbols; x++ {
								var n int64
								for y := 0; y < x; y++ {
									if freqArr[y] > 0 {
										freqArr[y]--
										n += numPerms[freqArr[0]][freqArr[1]][freqArr[2]][freqArr[3]][freqArr[4]][freqArr[5]]
										freqArr[y]++
									}
								}
								rankPrefix[x][a][b][c][d][e][f] = n
							}
						}
					}
				}
			}
		}
	}

	if numPerms[16][2][3][2][2][1] != TotalPerms {
		panic(fmt.Sprintf("perm: table mismatch, got %d want %d", numPerms[16][2][3][2][2][1], TotalPerms))
	}
}

// count returns the multiset permutation count table entry for the given
// remaining frequencies.
func count(f [NumSymbols]int) int64 {
	return numPerms[f[0]][f[1]][f[2]][f[3]][f[4]][f[5]]
}

// Rank returns the index of an InProgress permutation p. Behavior is
// undefined if p is not InProgress.
func Rank(p Perm) int64 {
	var f [NumSymbols]int
	var idx int64
	for i := L - 1; i >= 0; i-- {
		x := int(p[i])
		f[x]++
		idx += rankPrefix[x][f[0]][f[1]][f[2]][f[3]][f[4]][f[5]]
	}
	return idx
}

// Unrank returns the permutation at the given index. idx must be in
// [0, TotalPerms).
func Unrank(idx int64) Perm {
	if idx < 0 || idx >= TotalPerms {
		panic(fmt.Sprintf("perm: index %d out of range [0, %d)", idx, TotalPerms))
	}
	f := freq
	var p Perm
	for i := 0; i < L; i++ {
		for x := 0; x < NumSymbols; x++ {
			if f[x] == 0 {
				continue
			}
			f[x]--
			n := count(f)
			if n > idx {
				p[i] = byte(x)
				break
			}
			f[x]++
			idx -= n
		}
	}
	return p
}

// Next advances p to the lexicographically next permutation of the same
// multiset (the standard "next permutation" algorithm), returning false
// if p is already the last permutation.
func Next(p *Perm) bool {
	// Find the largest i such that p[i] < p[i+1].
	i := L - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	// Find the largest j > i such that p[j] > p[i], then swap.
	j := L - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	// Reverse the suffix after i.
	for l, r := i+1, L-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return true
}

// startedTarget is the symbol histogram of a Started position: all ten
// pieces placed, no anchor (the would-be anchor is an ordinary black
// pusher).
var startedTarget = [NumSymbols]int{16, 2, 3, 2, 3, 0}

// inProgressTarget is the symbol histogram of an InProgress position:
// ten pieces placed, one of the black pushers anchored.
var inProgressTarget = [NumSymbols]int{16, 2, 3, 2, 2, 1}

// Validate classifies p by comparing its symbol histogram against the
// master multiset, disambiguating Started/InProgress/Finished by anchor
// count and total piece count.
func Validate(p Perm) Type {
	var f [NumSymbols]int
	for _, x := range p {
		if int(x) >= NumSymbols {
			return Invalid
		}
		f[x]++
	}

	if f == startedTarget {
		return Started
	}
	if f == inProgressTarget {
		return InProgress
	}
	// Finished: one non-empty symbol of either target histogram is short
	// by exactly one (that piece was pushed off the board).
	for _, target := range [2][NumSymbols]int{startedTarget, inProgressTarget} {
		for x := 1; x < NumSymbols; x++ {
			if target[x] == 0 {
				continue
			}
			cand := target
			cand[x]--
			cand[0]++
			if f == cand {
				return Finished
			}
		}
	}
	return Invalid
}

// Rotate reverses the 26-element sequence in place, equivalent to
// rotating the board 180 degrees.
func Rotate(p *Perm) {
	for l, r := 0, L-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
}

// Rotated returns a rotated copy of p, leaving p unmodified.
func Rotated(p Perm) Perm {
	Rotate(&p)
	return p
}

// Less reports whether a is lexicographically smaller than b.
func Less(a, b Perm) bool {
	for i := 0; i < L; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Canonical returns the lexicographically smaller of p and its 180
// degree rotation, along with whether p itself had to be rotated to
// obtain it.
func Canonical(p Perm) (canon Perm, rotated bool) {
	r := Rotated(p)
	if Less(r, p) {
		return r, true
	}
	return p, false
}
