package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/maksverver/pushfight-solver/internal/chunk"
)

func TestRunChunkCoversEveryPart(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int64]bool)
	var count int64

	err := RunChunk(context.Background(), 3, 4, func(ctx context.Context, c int64, p int64) error {
		if c != 3 {
			t.Fatalf("unexpected chunk %d", c)
		}
		mu.Lock()
		if seen[p] {
			t.Fatalf("part %d visited twice", p)
		}
		seen[p] = true
		mu.Unlock()
		atomic.AddInt64(&count, 1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("RunChunk: %v", err)
	}
	if count != chunk.NumParts {
		t.Fatalf("processed %d parts, want %d", count, chunk.NumParts)
	}
	if int64(len(seen)) != chunk.NumParts {
		t.Fatalf("saw %d distinct parts, want %d", len(seen), chunk.NumParts)
	}
}

func TestRunChunkPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	err := RunChunk(context.Background(), 0, 4, func(ctx context.Context, c int64, p int64) error {
		if p == 5 {
			return wantErr
		}
		return nil
	}, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("RunChunk error = %v, want %v", err, wantErr)
	}
}

func TestStatsAdd(t *testing.T) {
	var total Stats
	total.Add(Stats{PositionsProcessed: 10, Wins: 2, Losses: 3})
	total.Add(Stats{PositionsProcessed: 5, Wins: 1, Losses: 0})
	if total.PositionsProcessed != 15 || total.Wins != 3 || total.Losses != 3 {
		t.Fatalf("total = %+v", total)
	}
}
