package ingestion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-monitor/internal/observability"
)

func TestQuery_FreshValueServedFromCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()
	var calls atomic.Int64
	q := NewQuery("stats", func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, 30*time.Second, 15*time.Second, clock, metrics)

	v, err := q.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(10 * time.Second)
	v, err = q.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v, "value younger than the stale window is cached")

	clock.Advance(5 * time.Second)
	v, err = q.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v, "value at the stale window is refetched")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueryCache.WithLabelValues("stats", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.QueryCache.WithLabelValues("stats", "miss")))
}

func TestQuery_ErrorKeepsLastValue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fail := errors.New("upstream down")
	var failing atomic.Bool
	q := NewQuery("reports", func(ctx context.Context) ([]string, error) {
		if failing.Load() {
			return nil, fail
		}
		return []string{"a", "b"}, nil
	}, time.Minute, 15*time.Second, clock, nil)

	_, err := q.Get(context.Background())
	require.NoError(t, err)

	failing.Store(true)
	clock.Advance(time.Minute)

	v, err := q.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
	assert.ErrorIs(t, q.LastError(), fail)

	_, err = q.Refresh(context.Background())
	assert.ErrorIs(t, err, fail, "Refresh reports the failure")
}

func TestQuery_ErrorWithoutCache(t *testing.T) {
	fail := errors.New("upstream down")
	q := NewQuery("events", func(ctx context.Context) (int, error) {
		return 0, fail
	}, time.Minute, time.Second, clockwork.NewFakeClock(), nil)

	_, err := q.Get(context.Background())
	assert.ErrorIs(t, err, fail)

	_, _, ok := q.Cached()
	assert.False(t, ok)
}

func TestQuery_ConcurrentRefreshesCollapse(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	q := NewQuery("summary", func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}, time.Minute, time.Second, clockwork.NewFakeClock(), nil)

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = q.Refresh(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, []int{7, 7, 7, 7, 7}, results)
}

func TestQuery_RunPollsOnEveryTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int64
	q := NewQuery("events", func(ctx context.Context) (int64, error) {
		return calls.Add(1), nil
	}, time.Minute, 30*time.Second, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond, "initial poll")

	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	v, _, ok := q.Cached()
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, int64(3))
}
