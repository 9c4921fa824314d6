// Package chunk defines the fixed partitioning of the index space into
// chunks and parts, and the progress-line formatting shared by the
// phase drivers and the worker pool.
package chunk

import (
	"fmt"

	"github.com/maksverver/pushfight-solver/internal/perm"
)

// Size is the number of positions in one chunk. There are NumChunks of
// these covering [0, perm.TotalPerms) exactly.
const Size int64 = 54054000

// NumChunks is the number of chunks covering the full index range.
const NumChunks int64 = 7429

// PartSize is the number of positions in one part; a chunk is divided
// into NumParts of these for thread dispatch. PartSize is a multiple of
// 16 so that packed files never split a byte across two parts.
const PartSize int64 = 240240

// NumParts is the number of parts per chunk.
const NumParts int64 = 225

func init() {
	if Size*NumChunks != perm.TotalPerms {
		panic(fmt.Sprintf("chunk: size*numChunks = %d, want %d", Size*NumChunks, perm.TotalPerms))
	}
	if PartSize*NumParts != Size {
		panic(fmt.Sprintf("chunk: partSize*numParts = %d, want %d", PartSize*NumParts, Size))
	}
	if PartSize%16 != 0 {
		panic("chunk: partSize must be a multiple of 16")
	}
}

// Start returns the first index covered by chunk c.
func Start(c int64) int64 { return c * Size }

// End returns one past the last index covered by chunk c.
func End(c int64) int64 { return (c + 1) * Size }

// PartStart returns the first index of part p within chunk c.
func PartStart(c, p int64) int64 { return Start(c) + p*PartSize }

// Of returns the chunk index containing position i.
func Of(i int64) int64 { return i / Size }

// Progress renders a single-line, carriage-return-terminated status
// update for the given chunk and part, in the style of the original
// tool's PrintChunkUpdate.
func Progress(c int64, partsDone int64) string {
	pct := float64(partsDone) / float64(NumParts) * 100
	return fmt.Sprintf("\rchunk %d/%d: %d/%d parts (%.1f%%)", c, NumChunks, partsDone, NumParts, pct)
}

// ClearProgress returns the escape sequence that erases a previously
// printed Progress line.
func ClearProgress() string {
	return "\r" + spaces(80) + "\r"
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
