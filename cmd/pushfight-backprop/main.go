// Command pushfight-backprop runs an even-numbered back-propagation
// phase: given RN-2 and RN-1, it finds every position that newly
// became a Loss and marks each of its predecessors Win in a shared
// loss-propagation scratch bitmap, then, once every chunk in the index
// space has been scanned, folds that bitmap into a freshly generated
// rN.bin.
//
// Predecessors of a newly-lost position can land in any chunk, not
// just the one currently being processed, so (unlike odd-phase
// solve-rN) this driver needs the atomic, shared-mutable scratch
// bitmap rather than disjoint per-part output ranges.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/maksverver/pushfight-solver/internal/board"
	"github.com/maksverver/pushfight-solver/internal/chunk"
	"github.com/maksverver/pushfight-solver/internal/cliflags"
	"github.com/maksverver/pushfight-solver/internal/ef"
	"github.com/maksverver/pushfight-solver/internal/perm"
	"github.com/maksverver/pushfight-solver/internal/phase"
	"github.com/maksverver/pushfight-solver/internal/storage"
	"github.com/maksverver/pushfight-solver/internal/verify"
	"github.com/maksverver/pushfight-solver/internal/workerpool"
)

const toolName = "pushfight-backprop"

func main() {
	app := cliflags.App(toolName, "back-propagate new losses into wins for one even phase", run)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dataDir() string {
	if dir := os.Getenv("PUSHFIGHT_SOLVER_DATA_DIR"); dir != "" {
		return dir
	}
	return "."
}

func run(args []string) error {
	manual, _, err := cliflags.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, cliflags.Usage(toolName))
		return err
	}
	if manual == nil {
		return fmt.Errorf("%s only supports manual mode (--phase --start --end)", toolName)
	}
	if manual.Phase < 2 || manual.Phase%2 != 0 {
		return fmt.Errorf("%s: back-propagation requires an even phase >= 2", toolName)
	}

	twoBack, closeTwoBack, err := openTwoBack(manual.Phase)
	if err != nil {
		log.Fatalf("%s: opening phase %d input: %v", toolName, manual.Phase-2, err)
	}
	defer closeTwoBack()

	oneBack, err := storage.OpenRN(filepath.Join(dataDir(), fmt.Sprintf("r%d.bin", manual.Phase-1)), false)
	if err != nil {
		log.Fatalf("%s: opening phase %d input: %v", toolName, manual.Phase-1, err)
	}
	defer oneBack.Close()

	lpPath := filepath.Join(dataDir(), fmt.Sprintf("r%d-wins.bin", manual.Phase))
	lp, err := openOrCreateLossPropagation(lpPath)
	if err != nil {
		log.Fatalf("%s: opening loss-propagation scratch: %v", toolName, err)
	}
	defer lp.Close()

	numWorkers := runtime.NumCPU()
	ctx := context.Background()
	for c := manual.Start; c < manual.End; c++ {
		if lp.IsChunkComplete(c) {
			continue
		}
		err := workerpool.RunChunk(ctx, c, numWorkers, func(ctx context.Context, c int64, p int64) error {
			return backPropagatePart(twoBack, oneBack, lp, chunk.PartStart(c, p), chunk.PartSize)
		}, func(c int64, partsDone int64) {
			fmt.Print(chunk.Progress(c, partsDone))
			if partsDone == chunk.NumParts {
				fmt.Print(chunk.ClearProgress())
			}
		})
		if err != nil {
			log.Fatalf("%s: phase %d chunk %d: %v", toolName, manual.Phase, c, err)
		}
		lp.MarkChunkComplete(c)
	}

	if !allChunksComplete(lp) {
		fmt.Printf("%s: phase %d chunks [%d, %d) done; other chunks remain, skipping r%d.bin generation\n",
			toolName, manual.Phase, manual.Start, manual.End, manual.Phase)
		return nil
	}
	return finalize(manual.Phase, twoBack, oneBack, lp)
}

// openOrCreateLossPropagation resumes an existing scratch file if a
// previous invocation already started one, so chunk-complete bits
// already set survive across runs covering different --start/--end
// ranges of the same phase.
func openOrCreateLossPropagation(path string) (*storage.LossPropagation, error) {
	if _, err := os.Stat(path); err == nil {
		return storage.OpenLossPropagation(path)
	}
	return storage.CreateLossPropagation(path)
}

// openTwoBack opens phaseNum-2's output as a phase.Outcomes source.
// Phase 2's RN-2 is phase 0, stored as storage.R0's bit-packed Win/Tie
// file rather than a ternary RN file, so it needs a thin adapter;
// every later even phase reads a real ternary RN-2 directly.
func openTwoBack(phaseNum int) (phase.Outcomes, func() error, error) {
	if phaseNum == 2 {
		r0, err := storage.OpenR0(filepath.Join(dataDir(), "r0.bin"), false)
		if err != nil {
			return nil, nil, err
		}
		return r0Outcomes{r0}, r0.Close, nil
	}
	rn, err := storage.OpenRN(filepath.Join(dataDir(), fmt.Sprintf("r%d.bin", phaseNum-2)), false)
	if err != nil {
		return nil, nil, err
	}
	return rn, rn.Close, nil
}

// r0Outcomes adapts storage.R0's bool Win/Tie bitmap to phase.Outcomes.
type r0Outcomes struct{ r *storage.R0 }

func (w r0Outcomes) Get(i int64) board.Outcome {
	if w.r.Get(i) {
		return board.Win
	}
	return board.Tie
}

// backPropagatePart scans one part for positions that transitioned
// from Tie (twoBack) to Loss (oneBack), and marks every reachable
// predecessor's win bit in lp. Predecessor indices can fall in any
// chunk, so the mark uses lp's atomic bit-set rather than a disjoint
// output range.
func backPropagatePart(twoBack phase.Outcomes, oneBack *storage.RN, lp *storage.LossPropagation, start, count int64) error {
	for i := int64(0); i < count; i++ {
		idx := start + i
		if twoBack.Get(idx) != board.Tie || oneBack.Get(idx) != board.Loss {
			continue
		}
		p := perm.Unrank(idx)
		board.GeneratePredecessors(p, func(q perm.Perm) bool {
			if perm.Validate(q) != perm.InProgress || !board.IsReachable(q) {
				return true
			}
			qIdx := perm.Rank(q)
			if oneBack.Get(qIdx) == board.Tie {
				lp.MarkWin(qIdx)
			}
			return true
		})
	}
	return nil
}

// allChunksComplete reports whether every chunk across the full index
// space, not just the range this invocation covered, has been marked
// complete in lp. Finalization folds the whole phase's wins into
// rN.bin at once, so a run covering only part of the range must leave
// it for a later invocation once the rest has been scanned.
func allChunksComplete(lp *storage.LossPropagation) bool {
	for c := int64(0); c < chunk.NumChunks; c++ {
		if !lp.IsChunkComplete(c) {
			return false
		}
	}
	return true
}

// finalize produces rN.bin from RN-2 and the win bits recorded in lp,
// following the input-generation pipeline: position a mutable RN
// accessor at RN-2's carried-forward outcomes, apply each chunk's new
// losses and new wins via verify.ApplyChunkDelta, spot-check digests,
// then atomically commit.
func finalize(phaseNum int, twoBack phase.Outcomes, oneBack *storage.RN, lp *storage.LossPropagation) error {
	outPath := filepath.Join(dataDir(), fmt.Sprintf("r%d.bin", phaseNum))
	cur, tmpPath, err := openFinalizeTarget(phaseNum, twoBack, outPath)
	if err != nil {
		return err
	}
	defer cur.Close()

	chunks := make([]int64, chunk.NumChunks)
	for c := range chunks {
		chunks[c] = int64(c)
	}
	for _, c := range chunks {
		delta := buildChunkDelta(twoBack, oneBack, lp, chunk.Start(c), chunk.Size)
		if err := verify.ApplyChunkDelta(cur, delta); err != nil {
			return errors.Wrapf(err, "%s: applying phase %d chunk %d delta", toolName, phaseNum, c)
		}
	}

	// No embedded known-good digest table ships with this build; an
	// empty table makes VerifyChunks a no-op check rather than a false
	// failure, while still exercising the chunk read path end to end.
	mismatches, err := verify.VerifyChunks(rnChunkReader{cur}, verify.NewChecksumTable(nil), phaseNum, chunks)
	if err != nil {
		return err
	}
	if mismatches > 0 {
		return fmt.Errorf("%s: %d chunk(s) of phase %d failed checksum verification; %s left in place for resume", toolName, mismatches, phaseNum, tmpPath)
	}
	return verify.AtomicReplace(tmpPath, outPath)
}

// openFinalizeTarget returns the mutable RN accessor finalize writes
// into, plus the temp path AtomicReplace commits from. For phaseNum >
// 2, RN-2 already exists as a ternary file and is renamed into place
// per the input-generation protocol (verify.PreserveOriginal). Phase
// 2's RN-2 is really r0.bin's bit-packed format, which can't be
// renamed into a ternary file directly, so a fresh ternary file is
// created instead and R0's wins are carried forward by hand before any
// delta is applied.
func openFinalizeTarget(phaseNum int, twoBack phase.Outcomes, outPath string) (cur *storage.RN, tmpPath string, err error) {
	if phaseNum == 2 {
		tmpPath = outPath + ".generating"
		if _, statErr := os.Stat(tmpPath); statErr == nil {
			// A prior run already materialized and began filling this
			// file; resume from it instead of truncating it again.
			cur, err = storage.OpenRN(tmpPath, true)
			if err != nil {
				return nil, "", errors.Wrapf(err, "%s: opening %s", toolName, tmpPath)
			}
			return cur, tmpPath, nil
		}
		cur, err = storage.CreateRN(tmpPath)
		if err != nil {
			return nil, "", errors.Wrapf(err, "%s: creating %s", toolName, tmpPath)
		}
		if err := carryForward(twoBack, cur); err != nil {
			return nil, "", err
		}
		return cur, tmpPath, nil
	}
	rnMinus2Path := filepath.Join(dataDir(), fmt.Sprintf("r%d.bin", phaseNum-2))
	tmpPath = rnMinus2Path + ".generating"
	if _, statErr := os.Stat(tmpPath); statErr != nil {
		// First attempt: RN-2 hasn't been renamed away yet.
		tmpPath, err = verify.PreserveOriginal(rnMinus2Path)
		if err != nil {
			return nil, "", err
		}
	}
	// Else: a prior run already renamed RN-2 into tmpPath and aborted
	// partway through applying deltas or verifying; resume from it
	// rather than trying (and failing) to preserve an original that no
	// longer exists at its old path.
	cur, err = storage.OpenRN(tmpPath, true)
	if err != nil {
		return nil, "", errors.Wrapf(err, "%s: opening %s", toolName, tmpPath)
	}
	return cur, tmpPath, nil
}

// carryForward copies every decided (non-Tie) outcome from twoBack
// into cur, chunk by chunk. Only phase 2 needs this: later phases get
// RN-2's values for free since PreserveOriginal renames the file
// directly into tmpPath instead of copying it position by position.
func carryForward(twoBack phase.Outcomes, cur *storage.RN) error {
	numWorkers := runtime.NumCPU()
	ctx := context.Background()
	for c := int64(0); c < chunk.NumChunks; c++ {
		err := workerpool.RunChunk(ctx, c, numWorkers, func(ctx context.Context, c int64, p int64) error {
			start := chunk.PartStart(c, p)
			for i := int64(0); i < chunk.PartSize; i++ {
				idx := start + i
				if o := twoBack.Get(idx); o != board.Tie {
					if err := cur.Set(idx, o); err != nil {
						return err
					}
				}
			}
			return nil
		}, nil)
		if err != nil {
			return errors.Wrapf(err, "%s: carrying r0 wins forward into chunk %d", toolName, c)
		}
	}
	return nil
}

// buildChunkDelta reconstructs chunk c's EF(losses)++EF(wins) payload
// from twoBack, oneBack, and lp's completed win bits, in the same
// format phase.Solve2Chunk produces, so verify.ApplyChunkDelta can
// fold it into cur.
func buildChunkDelta(twoBack phase.Outcomes, oneBack phase.Outcomes, lp *storage.LossPropagation, start, count int64) []byte {
	var losses, wins []uint64
	for i := int64(0); i < count; i++ {
		idx := start + i
		if twoBack.Get(idx) == board.Tie && oneBack.Get(idx) == board.Loss {
			losses = append(losses, uint64(idx))
		}
		if lp.HasWin(idx) {
			wins = append(wins, uint64(idx))
		}
	}
	return append(ef.Encode(losses), ef.Encode(wins)...)
}

// rnChunkReader adapts *storage.RN to verify.ChunkReader.
type rnChunkReader struct{ rn *storage.RN }

func (r rnChunkReader) ReadChunk(c int64) ([]byte, error) {
	return r.rn.RawBytes(chunk.Start(c), chunk.Size)
}
