// Package workerpool drives the part-level fan-out within a single
// chunk: numWorkers goroutines pull part indices from a shared atomic
// counter until the chunk is exhausted, mirroring the worker dispatch
// loop of a Lazy-SMP search pool but keyed on work-stealing over a
// fixed part range instead of search depth.
package workerpool

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/maksverver/pushfight-solver/internal/chunk"
)

// PartFunc computes and commits the result for chunk c, part index p
// (0 <= p < chunk.NumParts). It must write only to the disjoint output
// range owned by (c, p); no two parts ever run over the same range.
type PartFunc func(ctx context.Context, c int64, p int64) error

// ProgressFunc is invoked after a part completes, by the worker that
// completed it, once at least numWorkers parts of the chunk have
// completed; partsDone is the number completed so far. Any worker may
// make the call, so calls can run concurrently and are not guaranteed
// to arrive in increasing partsDone order.
type ProgressFunc func(c int64, partsDone int64)

// RunChunk dispatches chunk.NumParts parts of chunk c across
// numWorkers goroutines, each looping on a shared atomic counter. It
// blocks until every part has been dispatched and every worker has
// returned. If a part returns a non-nil error, the context passed to
// parts still running or started later is canceled, the remaining
// parts are still dispatched, and the first error is returned.
func RunChunk(ctx context.Context, c int64, numWorkers int, fn PartFunc, onProgress ProgressFunc) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	var nextPart int64 = -1
	var partsDone int64

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < numWorkers; w++ {
		g.Go(func() error {
			for {
				p := atomic.AddInt64(&nextPart, 1)
				if p >= chunk.NumParts {
					return nil
				}
				if err := fn(ctx, c, p); err != nil {
					return err
				}
				done := atomic.AddInt64(&partsDone, 1)
				// Only report progress once numWorkers parts have
				// completed, so early throughput numbers aren't
				// skewed by pool warm-up.
				if onProgress != nil && done >= int64(numWorkers) {
					onProgress(c, done)
				}
			}
		})
	}
	return g.Wait()
}

// Stats accumulates per-chunk counters that workers merge only after
// all parts of a chunk have completed (no synchronization is needed
// during the chunk itself since each worker owns a private Stats and
// merge happens strictly after errgroup.Wait returns).
type Stats struct {
	PositionsProcessed int64
	Wins               int64
	Losses             int64
}

// Add merges other into s.
func (s *Stats) Add(other Stats) {
	s.PositionsProcessed += other.PositionsProcessed
	s.Wins += other.Wins
	s.Losses += other.Losses
}
