package una

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/observability"
)

// Progress is called after each origin completes, with the number of
// finished origins and the total. Calls may arrive from multiple
// goroutines.
type Progress func(done, total int)

// runOrigins fans the origin IDs out over a fixed worker pool. Each worker
// gets its own state from newWorker (typically a cloned view), pulls
// origins from a shared channel, and the first error cancels the whole run:
// the caller sees that error and no partial results.
func runOrigins(ctx context.Context, origins []int, workers int, progress Progress,
	newWorker func() (func(ctx context.Context, origin int) error, error)) error {

	if len(origins) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(origins) {
		workers = len(origins)
	}

	// All worker state is prepared before any goroutine starts; a failed
	// clone aborts the run with nothing to unwind.
	works := make([]func(ctx context.Context, origin int) error, workers)
	for i := range works {
		work, err := newWorker()
		if err != nil {
			return err
		}
		works[i] = work
	}

	started := time.Now()
	queue := make(chan int)
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for _, origin := range origins {
			select {
			case queue <- origin:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for _, work := range works {
		work := work
		g.Go(func() error {
			for origin := range queue {
				t0 := time.Now()
				err := work(ctx, origin)
				observability.Worker().OnOriginComplete(ctx, origin, time.Since(t0), err)
				if err != nil {
					return errors.Wrap(errors.ErrCodeWorkerFailed, err,
						"origin %s", errors.FormatID(origin))
				}
				if progress != nil {
					progress(int(done.Add(1)), len(origins))
				}
			}
			return nil
		})
	}

	err := g.Wait()
	observability.Worker().OnRunComplete(ctx, len(origins), workers, time.Since(started), err)
	return err
}
