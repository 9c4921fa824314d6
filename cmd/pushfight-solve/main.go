// Command pushfight-solve runs one phase of the retrograde solver,
// either over a fixed local chunk range (manual mode) or by fetching
// work from a network coordinator (automatic mode).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/maksverver/pushfight-solver/internal/board"
	"github.com/maksverver/pushfight-solver/internal/checkpoint"
	"github.com/maksverver/pushfight-solver/internal/chunk"
	"github.com/maksverver/pushfight-solver/internal/cliflags"
	"github.com/maksverver/pushfight-solver/internal/coordinator"
	"github.com/maksverver/pushfight-solver/internal/phase"
	"github.com/maksverver/pushfight-solver/internal/storage"
	"github.com/maksverver/pushfight-solver/internal/verify"
	"github.com/maksverver/pushfight-solver/internal/workerpool"
)

const toolName = "pushfight-solve"

func main() {
	app := cliflags.App(toolName, "run one phase of the Push Fight retrograde solver", run)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	manual, automatic, err := cliflags.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, cliflags.Usage(toolName))
		return err
	}
	store, err := checkpoint.Open(checkpointDir())
	if err != nil {
		log.Fatalf("pushfight-solve: opening checkpoint store: %v", err)
	}
	defer store.Close()

	if manual != nil {
		return runManual(store, *manual)
	}
	return runAutomatic(store, *automatic)
}

func checkpointDir() string {
	if dir := os.Getenv("PUSHFIGHT_SOLVER_STATE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), "pushfight-solver-state")
}

func dataDir() string {
	if dir := os.Getenv("PUSHFIGHT_SOLVER_DATA_DIR"); dir != "" {
		return dir
	}
	return "."
}

// runManual processes chunks [m.Start, m.End) of m.Phase sequentially, dispatching each chunk's parts across the host's CPUs
// and writing results straight into the phase's local output file.
func runManual(store *checkpoint.Store, m cliflags.Manual) error {
	numWorkers := numThreads()
	out, err := openOutput(m.Phase, true)
	if err != nil {
		log.Fatalf("pushfight-solve: opening phase %d output: %v", m.Phase, err)
	}
	defer out.Close()

	prev, err := openOutput(m.Phase-1, false)
	if err != nil && m.Phase > 0 {
		log.Fatalf("pushfight-solve: opening phase %d input: %v", m.Phase-1, err)
	}
	if prev != nil {
		defer prev.Close()
	}

	for c := m.Start; c < m.End; c++ {
		done, err := store.IsChunkDone(m.Phase, c)
		if err != nil {
			log.Fatalf("pushfight-solve: checking chunk %d: %v", c, err)
		}
		if done {
			continue
		}
		if err := solveChunk(m.Phase, c, numWorkers, prev, out); err != nil {
			log.Fatalf("pushfight-solve: phase %d chunk %d: %v", m.Phase, c, err)
		}
		if err := store.MarkChunkDone(m.Phase, c); err != nil {
			log.Fatalf("pushfight-solve: recording chunk %d done: %v", c, err)
		}
	}
	return nil
}

// runAutomatic drives the fetch/solve/report cycle against a network
// coordinator, retrying with exponential backoff on transient errors
// and no-work responses.
func runAutomatic(store *checkpoint.Store, a cliflags.Automatic) error {
	st, err := store.LoadAutomationState(a.User, a.Machine)
	if err != nil {
		log.Fatalf("pushfight-solve: loading automation state: %v", err)
	}
	backoff := coordinator.NewBackoff()
	numWorkers := numThreads()

	for {
		client, err := coordinator.Dial(fmt.Sprintf("%s:%d", a.Host, a.Port), toolName, a.User, a.Machine)
		if err != nil {
			log.Printf("pushfight-solve: connect failed: %v; retrying in %v", err, backoff.Duration())
			time.Sleep(backoff.Duration())
			backoff.Fail()
			continue
		}

		phaseNum, err := client.GetCurrentPhase()
		if err != nil {
			log.Printf("pushfight-solve: GetCurrentPhase failed: %v", err)
			client.Close()
			time.Sleep(backoff.Duration())
			backoff.Fail()
			continue
		}
		chunks, err := client.GetChunks(phaseNum)
		if err != nil || len(chunks) == 0 {
			if err != nil {
				log.Printf("pushfight-solve: GetChunks failed: %v", err)
			}
			client.Close()
			time.Sleep(backoff.Duration())
			backoff.Fail()
			continue
		}

		out, err := openOutput(phaseNum, true)
		if err != nil {
			log.Fatalf("pushfight-solve: opening phase %d output: %v", phaseNum, err)
		}
		prev, err := openOutput(phaseNum-1, false)
		if err != nil && phaseNum > 0 {
			log.Fatalf("pushfight-solve: opening phase %d input: %v", phaseNum-1, err)
		}

		for _, c := range chunks {
			data, err := buildChunkUpload(phaseNum, c, numWorkers, prev, out)
			if err != nil {
				log.Fatalf("pushfight-solve: phase %d chunk %d: %v", phaseNum, c, err)
			}
			digest := verify.SHA256Hex(data)
			if err := client.ReportChunkComplete(phaseNum, c, int64(len(data)), digest); err != nil {
				log.Printf("pushfight-solve: ReportChunkComplete failed: %v", err)
				break
			}
			if err := client.UploadChunk(phaseNum, c, data); err != nil {
				log.Printf("pushfight-solve: UploadChunk failed: %v", err)
				break
			}
			st.LastPhase = phaseNum
			st.LastChunk = c
			if err := store.SaveAutomationState(st); err != nil {
				log.Printf("pushfight-solve: saving automation state: %v", err)
			}
		}
		out.Close()
		if prev != nil {
			prev.Close()
		}
		client.Close()
		backoff.Success()
	}
}

// phaseRN is the subset of storage.RN (or storage.R0, wrapped) that
// the chunk drivers need.
type phaseRN interface {
	phase.Outcomes
}

// outputRN is phaseRN plus the write side and raw-byte access needed
// to upload a chunk's packed result, satisfied by *storage.RN.
type outputRN interface {
	phase.MutableOutcomes
	RawBytes(start, count int64) ([]byte, error)
	Close() error
}

// openOutput memory-maps phaseNum's output file: phase 0 is r0.bin, a
// 1-bit-per-position bitmap (storage.R0), wrapped in r0Output so it
// satisfies the same outputRN contract every later ternary phase does;
// every other phase opens its ternary rN.bin directly via storage.RN.
func openOutput(phaseNum int, writable bool) (outputRN, error) {
	if phaseNum < 0 {
		return nil, nil
	}
	if phaseNum == 0 {
		r0, err := storage.OpenR0(filepath.Join(dataDir(), "r0.bin"), writable)
		if err != nil {
			return nil, err
		}
		return r0Output{r0}, nil
	}
	path := filepath.Join(dataDir(), fmt.Sprintf("r%d.bin", phaseNum))
	return storage.OpenRN(path, writable)
}

// r0Output adapts storage.R0's bit-packed Win/Tie format to the
// outputRN interface, so phase 0 flows through the same chunk-driving
// code (solveChunk, buildChunkUpload) as every ternary phase while the
// bytes it reads and writes stay bit-exact to R0Size on disk.
type r0Output struct {
	r *storage.R0
}

func (o r0Output) Get(i int64) board.Outcome {
	if o.r.Get(i) {
		return board.Win
	}
	return board.Tie
}

func (o r0Output) Set(i int64, out board.Outcome) error {
	return o.r.SetBit(i, out == board.Win)
}

func (o r0Output) RawBytes(start, count int64) ([]byte, error) {
	return o.r.RawBytes(start, count)
}

func (o r0Output) Close() error { return o.r.Close() }

// solveChunk computes chunk c of phaseNum across numWorkers goroutines
// and writes results directly into out (the local phase output file).
func solveChunk(phaseNum int, c int64, numWorkers int, prev phaseRN, out outputRN) error {
	ctx := context.Background()
	return workerpool.RunChunk(ctx, c, numWorkers, func(ctx context.Context, c int64, p int64) error {
		start := chunk.PartStart(c, p)
		if phaseNum == 0 {
			return solvePhase0Part(start, out)
		}
		return phase.SolveOddPart(prev, out, start, chunk.PartSize)
	}, func(c int64, partsDone int64) {
		fmt.Print(chunk.Progress(c, partsDone))
		if partsDone == chunk.NumParts {
			fmt.Print(chunk.ClearProgress())
		}
	})
}

// solvePhase0Part computes phase 0 for one part and writes the
// resulting Win/Tie outcomes into out, which for phase 0 is r0Output
// wrapping storage.R0: each Set call flips a single bit in the
// underlying bitmap rather than a ternary digit.
func solvePhase0Part(start int64, out outputRN) error {
	bits, err := phase.Phase0Part(start, chunk.PartSize)
	if err != nil {
		return err
	}
	for i := int64(0); i < chunk.PartSize; i++ {
		o := board.Tie
		if bits[i/8]>>uint(i%8)&1 != 0 {
			o = board.Win
		}
		if err := out.Set(start+i, o); err != nil {
			return err
		}
	}
	return nil
}

// buildChunkUpload runs the same per-part computation as solveChunk,
// then returns the chunk's packed bytes (R0's bitmap for phase 0,
// ternary for later phases) straight from the memory-mapped output
// file for upload to a coordinator.
func buildChunkUpload(phaseNum int, c int64, numWorkers int, prev phaseRN, out outputRN) ([]byte, error) {
	if err := solveChunk(phaseNum, c, numWorkers, prev, out); err != nil {
		return nil, err
	}
	raw, err := out.RawBytes(chunk.Start(c), chunk.Size)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), raw...), nil
}

func numThreads() int {
	if n := os.Getenv("PUSHFIGHT_SOLVER_NUM_THREADS"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			return v
		}
	}
	return runtime.NumCPU()
}
