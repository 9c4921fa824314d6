// Package verify implements input generation (applying a phase's EF
// delta onto the previous RN file) and the checksum spot-check that
// guards the result before it's committed.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/maksverver/pushfight-solver/internal/board"
	"github.com/maksverver/pushfight-solver/internal/ef"
	"github.com/maksverver/pushfight-solver/internal/phase"
)

// Digest is a known-good SHA-256 hex digest for one chunk of a phase's
// output file, checked by VerifyChunks.
type Digest struct {
	Phase     int
	Chunk     int64
	SHA256Hex string
}

// ChecksumTable maps (phase, chunk) to its known-good digest. It is
// built by NewChecksumTable from a list of digests; this package ships
// no digest list of its own. Lookups for a (phase, chunk) pair that isn't in the table are skipped rather than
// treated as failures, since not every chunk of every phase needs a
// checked digest to catch a systemic decode or alignment bug.
type ChecksumTable map[[2]int64]string

// NewChecksumTable builds a lookup table from a flat list of digests.
func NewChecksumTable(digests []Digest) ChecksumTable {
	t := make(ChecksumTable, len(digests))
	for _, d := range digests {
		t[[2]int64{int64(d.Phase), d.Chunk}] = d.SHA256Hex
	}
	return t
}

// ChunkReader reads the raw bytes of one chunk's region of a phase
// output file, for hashing.
type ChunkReader interface {
	ReadChunk(c int64) ([]byte, error)
}

// VerifyChunks reads every chunk named in chunks using r and, when
// table has an entry for (phaseNum, chunk), hashes it and compares the
// digest against that entry. It returns
// the number of chunks that had a table entry but didn't match; a
// nonzero count is an integrity error per the solver's error taxonomy
// and the caller must abort rather than commit the file.
func VerifyChunks(r ChunkReader, table ChecksumTable, phaseNum int, chunks []int64) (mismatches int, err error) {
	for _, c := range chunks {
		data, readErr := r.ReadChunk(c)
		if readErr != nil {
			return mismatches, errors.Wrapf(readErr, "verify: reading chunk %d", c)
		}
		want, ok := table[[2]int64{int64(phaseNum), c}]
		if !ok {
			continue
		}
		if got := SHA256Hex(data); got != want {
			mismatches++
		}
	}
	return mismatches, nil
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ApplyChunkDelta applies one chunk's EF(losses)++EF(wins) delta onto
// a mutable RN accessor already positioned at the predecessor outcome
// array (conventionally RN-2 renamed into place as the working file).
// For each indicated index, the current outcome must be Tie; if it
// already equals the new outcome the index is skipped (idempotent
// resume after a crash mid-delta); any other non-Tie value is an
// integrity error.
func ApplyChunkDelta(out phase.MutableOutcomes, delta []byte) error {
	losses, pos, ok := ef.Decode(delta, 0)
	if !ok {
		return errors.New("verify: failed to decode loss list from chunk delta")
	}
	wins, _, ok := ef.Decode(delta, pos)
	if !ok {
		return errors.New("verify: failed to decode win list from chunk delta")
	}
	if err := applyOutcome(out, losses, board.Loss); err != nil {
		return err
	}
	if err := applyOutcome(out, wins, board.Win); err != nil {
		return err
	}
	return nil
}

func applyOutcome(out phase.MutableOutcomes, indices []uint64, want board.Outcome) error {
	for _, u := range indices {
		i := int64(u)
		switch cur := out.Get(i); cur {
		case board.Tie:
			if err := out.Set(i, want); err != nil {
				return errors.Wrapf(err, "verify: setting outcome at %d", i)
			}
		case want:
			// Already applied by a previous, interrupted run.
		default:
			return errors.Errorf("verify: integrity error at index %d: stored outcome %v conflicts with delta outcome %v", i, cur, want)
		}
	}
	return nil
}

// AtomicReplace renames tmpPath to finalPath only after callers have
// finished verifying tmpPath's contents, matching the input-generation
// commit protocol: a verification failure anywhere leaves tmpPath on
// disk so a re-run can resume from it.
func AtomicReplace(tmpPath, finalPath string) error {
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errors.Wrapf(err, "verify: renaming %s to %s", tmpPath, finalPath)
	}
	return nil
}

// PreserveOriginal renames path to a temp sibling name before
// generation begins, so the original survives if generation aborts.
func PreserveOriginal(path string) (tmpPath string, err error) {
	tmpPath = fmt.Sprintf("%s.generating", path)
	if err := os.Rename(path, tmpPath); err != nil {
		return "", errors.Wrapf(err, "verify: preserving original %s", path)
	}
	return tmpPath, nil
}
