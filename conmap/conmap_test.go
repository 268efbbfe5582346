package conmap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesInputOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	// later items finish first
	results, errs := Map(context.Background(), items, 4, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(10-n) * 5 * time.Millisecond)
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	for i, n := range items {
		assert.NoError(t, errs[i])
		assert.Equal(t, n*10, results[i])
	}
}

func TestMapNeverExceedsLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak int64

	items := make([]int, 20)
	Map(context.Background(), items, limit, func(_ context.Context, n int) (int, error) {
		cur := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return n, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(limit))
	assert.Greater(t, atomic.LoadInt64(&peak), int64(0))
}

func TestMapFailureDoesNotBlockOthers(t *testing.T) {
	boom := errors.New("boom")
	items := []int{1, 2, 3, 4}

	results, errs := Map(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})

	assert.Equal(t, []int{1, 0, 3, 4}, results)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
	assert.NoError(t, errs[3])
}

func TestMapStopsDispatchingWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started int64
	items := make([]int, 50)
	_, errs := Map(ctx, items, 1, func(_ context.Context, n int) (int, error) {
		if atomic.AddInt64(&started, 1) == 3 {
			cancel()
		}
		return n, nil
	})

	assert.Less(t, atomic.LoadInt64(&started), int64(50))
	assert.ErrorIs(t, errs[len(errs)-1], context.Canceled)
}

func TestMapTreatsBadLimitAsOne(t *testing.T) {
	results, errs := Map(context.Background(), []int{1, 2}, 0, func(_ context.Context, n int) (int, error) {
		return n + 1, nil
	})
	assert.Equal(t, []int{2, 3}, results)
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}
