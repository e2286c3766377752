package engine

import (
	"context"
	"sync"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Throttle runs transfer for every item with at most parallel transfers in
// flight and returns the total bytes and the wall-clock time from the first
// dispatch to the last completion.
//
// onProgress (may be nil) is called once per completed item while holding
// the lock that guards the counters, so Percent and TotalBytes never go
// backwards. The first transfer error cancels the remaining work and is
// returned along with the partial result.
func Throttle[T any](ctx context.Context, items []T, parallel int, transfer func(context.Context, T) (int64, error), onProgress func(model.Progress)) (model.Result, error) {
	total := len(items)
	if total == 0 {
		return model.Result{}, nil
	}
	if parallel < 1 {
		parallel = 1
	}

	permits := semaphore.NewWeighted(int64(parallel))
	g, gctx := errgroup.WithContext(ctx)

	var (
		mu        sync.Mutex
		completed int
		processed int64
	)

	start := time.Now()
	for _, item := range items {
		if err := permits.Acquire(gctx, 1); err != nil {
			// Cancelled: stop dispatching, let in-flight items drain.
			break
		}
		g.Go(func() error {
			defer permits.Release(1)

			n, err := transfer(gctx, item)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			completed++
			processed += n
			if onProgress != nil {
				elapsed := max(time.Since(start), model.MinElapsed)
				onProgress(model.Progress{
					Bytes:      n,
					TotalBytes: processed,
					Speed:      float64(processed) / elapsed.Seconds(),
					Percent:    completed * 100 / total,
				})
			}
			return nil
		})
	}

	err := g.Wait()
	res := model.Result{
		Bytes:   processed,
		Elapsed: max(time.Since(start), model.MinElapsed),
	}
	if err == nil {
		err = ctx.Err()
	}
	return res, err
}
