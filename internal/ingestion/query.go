package ingestion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/mr1hm/go-disaster-monitor/internal/observability"
)

// DefaultFetchTimeout bounds one shared fetch when no timeout is configured.
const DefaultFetchTimeout = time.Minute

type FetchFunc[T any] func(ctx context.Context) (T, error)

type QueryOption func(*queryOptions)

type queryOptions struct {
	fetchTimeout time.Duration
}

// WithFetchTimeout bounds each fetch. Fetches do not inherit the caller's
// cancellation, so this is their only deadline.
func WithFetchTimeout(d time.Duration) QueryOption {
	return func(o *queryOptions) {
		if d > 0 {
			o.fetchTimeout = d
		}
	}
}

// Query is a polled, cached remote value. A value younger than staleTime is
// served from cache; anything older is refetched, with concurrent refetches
// collapsed into one request.
type Query[T any] struct {
	name         string
	fetch        FetchFunc[T]
	interval     time.Duration
	staleTime    time.Duration
	fetchTimeout time.Duration
	clock        clockwork.Clock
	metrics      *observability.Metrics
	group        singleflight.Group

	mu        sync.RWMutex
	value     T
	fetchedAt time.Time
	loaded    bool
	lastErr   error
}

func NewQuery[T any](name string, fetch FetchFunc[T], interval, staleTime time.Duration, clock clockwork.Clock, metrics *observability.Metrics, opts ...QueryOption) *Query[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	o := queryOptions{fetchTimeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Query[T]{
		name:         name,
		fetch:        fetch,
		interval:     interval,
		staleTime:    staleTime,
		fetchTimeout: o.fetchTimeout,
		clock:        clock,
		metrics:      metrics,
	}
}

func (q *Query[T]) Name() string {
	return q.name
}

// Get returns the cached value while it is fresh and refetches otherwise.
// When a refetch fails the last good value is returned if there is one.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	q.mu.RLock()
	fresh := q.loaded && q.clock.Since(q.fetchedAt) < q.staleTime
	value := q.value
	q.mu.RUnlock()

	if fresh {
		q.count("hit")
		return value, nil
	}
	q.count("miss")

	v, err := q.Refresh(ctx)
	if err != nil {
		if cached, _, ok := q.Cached(); ok {
			return cached, nil
		}
		return v, err
	}
	return v, nil
}

// Refresh fetches the value now, regardless of its age. The fetch is shared
// by every concurrent caller and runs detached from ctx: a caller that gives
// up gets ctx.Err() while the fetch still completes and updates the cache.
func (q *Query[T]) Refresh(ctx context.Context) (T, error) {
	ch := q.group.DoChan(q.name, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.fetchTimeout)
		defer cancel()
		val, err := q.fetch(fetchCtx)

		q.mu.Lock()
		defer q.mu.Unlock()
		if err != nil {
			q.lastErr = err
			return val, err
		}
		q.value = val
		q.fetchedAt = q.clock.Now()
		q.loaded = true
		q.lastErr = nil
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Cached returns the last good value and when it was fetched.
func (q *Query[T]) Cached() (T, time.Time, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.value, q.fetchedAt, q.loaded
}

func (q *Query[T]) LastError() error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.lastErr
}

// Run refetches on every interval tick until ctx is cancelled.
func (q *Query[T]) Run(ctx context.Context) {
	slog.Info("starting poller", "query", q.name, "interval", q.interval)

	ticker := q.clock.NewTicker(q.interval)
	defer ticker.Stop()

	q.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller shutting down", "query", q.name)
			return
		case <-ticker.Chan():
			q.poll(ctx)
		}
	}
}

func (q *Query[T]) poll(ctx context.Context) {
	slog.Debug("polling", "query", q.name)
	if _, err := q.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("poll failed", "query", q.name, "error", err)
		return
	}
	slog.Debug("poll complete", "query", q.name)
}

func (q *Query[T]) count(result string) {
	if q.metrics != nil {
		q.metrics.QueryCache.WithLabelValues(q.name, result).Inc()
	}
}
