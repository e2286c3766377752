package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSizes(n int) ([]int64, int64) {
	sizes := make([]int64, n)
	var sum int64
	for i := range sizes {
		sizes[i] = rand.Int64N(100000)
		sum += sizes[i]
	}
	return sizes, sum
}

func TestThrottle_AggregatesRegardlessOfOrder(t *testing.T) {
	for _, parallel := range []int{1, 3, 8, 40} {
		sizes, sum := randomSizes(40)

		var (
			mu       sync.Mutex
			updates  []model.Progress
			transfer = func(ctx context.Context, n int64) (int64, error) {
				time.Sleep(time.Duration(rand.IntN(3000)) * time.Microsecond)
				return n, nil
			}
		)

		res, err := Throttle(context.Background(), sizes, parallel, transfer, func(p model.Progress) {
			mu.Lock()
			updates = append(updates, p)
			mu.Unlock()
		})
		require.NoError(t, err, "parallel=%d", parallel)

		assert.Equal(t, sum, res.Bytes, "parallel=%d", parallel)
		assert.GreaterOrEqual(t, res.Elapsed, model.MinElapsed)

		require.Len(t, updates, len(sizes))
		assert.Equal(t, 100, updates[len(updates)-1].Percent)
		assert.Equal(t, sum, updates[len(updates)-1].TotalBytes)

		var incrementSum int64
		for i, u := range updates {
			incrementSum += u.Bytes
			assert.LessOrEqual(t, u.Percent, 100)
			assert.GreaterOrEqual(t, u.Speed, 0.0)
			if i > 0 {
				assert.GreaterOrEqual(t, u.Percent, updates[i-1].Percent)
				assert.GreaterOrEqual(t, u.TotalBytes, updates[i-1].TotalBytes)
			}
		}
		assert.Equal(t, sum, incrementSum)
	}
}

func TestThrottle_NeverExceedsParallel(t *testing.T) {
	for _, parallel := range []int{1, 2, 8} {
		var inFlight, peak atomic.Int64

		transfer := func(ctx context.Context, _ int) (int64, error) {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(time.Duration(1+rand.IntN(4)) * time.Millisecond)
			inFlight.Add(-1)
			return 1, nil
		}

		items := make([]int, 32)
		res, err := Throttle(context.Background(), items, parallel, transfer, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(32), res.Bytes)
		assert.LessOrEqual(t, peak.Load(), int64(parallel), "parallel=%d", parallel)
		assert.GreaterOrEqual(t, peak.Load(), int64(1))
	}
}

func TestThrottle_ErrorAbortsAndReleasesPermits(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int64

	transfer := func(ctx context.Context, i int) (int64, error) {
		calls.Add(1)
		if i == 0 {
			return 0, boom
		}
		time.Sleep(2 * time.Millisecond)
		return 10, nil
	}

	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = Throttle(context.Background(), items, 1, transfer, nil)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Throttle did not return after a failing transfer")
	}

	assert.ErrorIs(t, err, boom)
	// With one permit the failure cancels dispatch right after the first item.
	assert.Less(t, calls.Load(), int64(len(items)))
}

func TestThrottle_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int64

	transfer := func(ctx context.Context, _ int) (int64, error) {
		if started.Add(1) == 2 {
			cancel()
		}
		<-ctx.Done()
		return 0, ctx.Err()
	}

	_, err := Throttle(ctx, make([]int, 50), 2, transfer, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, started.Load(), int64(3))
}

func TestThrottle_CancelledWhileTransfersIgnoreContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Throttle(ctx, make([]int, 5), 2, func(context.Context, int) (int64, error) { return 1, nil }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThrottle_Empty(t *testing.T) {
	called := false
	res, err := Throttle(context.Background(), []int{}, 4, func(context.Context, int) (int64, error) {
		called = true
		return 1, nil
	}, func(model.Progress) { called = true })

	require.NoError(t, err)
	assert.Equal(t, model.Result{}, res)
	assert.False(t, called)
}

func TestThrottle_NonPositiveParallelRunsSerially(t *testing.T) {
	var inFlight, peak atomic.Int64
	transfer := func(ctx context.Context, _ int) (int64, error) {
		cur := inFlight.Add(1)
		if cur > peak.Load() {
			peak.Store(cur)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return 1, nil
	}

	res, err := Throttle(context.Background(), make([]int, 5), 0, transfer, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Bytes)
	assert.Equal(t, int64(1), peak.Load())
}

func TestThrottle_InstantTransfersHaveElapsedFloor(t *testing.T) {
	res, err := Throttle(context.Background(), []int{1, 2, 3}, 3, func(_ context.Context, n int) (int64, error) {
		return int64(n), nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Bytes)
	assert.GreaterOrEqual(t, res.Elapsed, model.MinElapsed)
}
