// Package dispatch runs independent per-item jobs across a fixed worker
// pool. Work is chunked to amortize scheduling overhead, results come back
// unordered, and a single collector goroutine folds them into whatever
// observer the caller supplies, so counters never need their own locking.
//
// A panicking item never takes down the pool and never goes missing: the
// worker recovers, logs the cause, and substitutes the caller's fallback
// value, keeping the result count equal to the item count.
package dispatch

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cbusmaps/agemap/internal/logctx"
)

// Options configures a dispatch run.
type Options struct {
	// Workers is the number of concurrent workers. Default: NumCPU.
	Workers int

	// ChunkFactor controls chunk sizing: items are split into roughly
	// ChunkFactor chunks per worker, so chunk count scales with both data
	// size and worker count. Default: 8.
	ChunkFactor int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.ChunkFactor <= 0 {
		o.ChunkFactor = 8
	}
	return o
}

// chunk is a half-open range of item indices.
type chunk struct {
	start, end int
}

// Run applies fn to every item and returns the results in arbitrary order.
// Shared read-only state (a spatial index, a parcel set) is carried by the
// fn closure; workers must only read it.
//
// fallback supplies the per-item result when fn panics; it must be cheap
// and must not panic itself. observe, if non-nil, is called exactly once
// per item from a single goroutine, in arrival order.
//
// Run returns an error only when ctx is cancelled; per-item failures are
// absorbed via fallback per the engine's worst-case-outcome policy.
func Run[I, O any](ctx context.Context, items []I, opts Options, fn func(I) O, fallback func(I) O, observe func(O)) ([]O, error) {
	opts = opts.withDefaults()
	if len(items) == 0 {
		return nil, nil
	}

	chunkSize := (len(items) + opts.Workers*opts.ChunkFactor - 1) / (opts.Workers * opts.ChunkFactor)
	if chunkSize < 1 {
		chunkSize = 1
	}
	numChunks := (len(items) + chunkSize - 1) / chunkSize

	jobs := make(chan chunk, numChunks)
	results := make(chan []O, numChunks)

	workers := min(opts.Workers, numChunks)
	for w := 0; w < workers; w++ {
		wctx := logctx.WithInt(ctx, "worker", w)
		go func() {
			for c := range jobs {
				if ctx.Err() != nil {
					return
				}
				out := make([]O, 0, c.end-c.start)
				for i := c.start; i < c.end; i++ {
					out = append(out, safeApply(wctx, items[i], fn, fallback))
				}
				select {
				case results <- out:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for start := 0; start < len(items); start += chunkSize {
		end := min(start+chunkSize, len(items))
		jobs <- chunk{start: start, end: end}
	}
	close(jobs)

	// Single-collector fold: results stream back unordered, but every
	// dispatched chunk is observed before the run is considered done.
	collected := make([]O, 0, len(items))
	for n := 0; n < numChunks; n++ {
		select {
		case out := <-results:
			collected = append(collected, out...)
			if observe != nil {
				for _, o := range out {
					observe(o)
				}
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("dispatch cancelled: %w", ctx.Err())
		}
	}

	return collected, nil
}

// safeApply evaluates fn(item), converting a panic into the fallback result.
func safeApply[I, O any](ctx context.Context, item I, fn, fallback func(I) O) (out O) {
	defer func() {
		if r := recover(); r != nil {
			log := logctx.FromContext(ctx)
			log.Error().
				Interface("cause", r).
				Msg("worker item failed, recording worst-case outcome")
			out = fallback(item)
		}
	}()
	return fn(item)
}
