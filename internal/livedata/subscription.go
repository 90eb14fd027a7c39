package livedata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
	"github.com/mr1hm/go-disaster-monitor/internal/observability"
)

const (
	DefaultRetryInterval    = time.Second
	DefaultMaxRetryInterval = time.Minute
)

type subscribeOptions struct {
	retryInterval    time.Duration
	maxRetryInterval time.Duration
	metrics          *observability.Metrics
	clock            clockwork.Clock
}

type SubscribeOption func(*subscribeOptions)

// WithRetryInterval sets the first and the largest delay before listening
// again after the stream fails.
func WithRetryInterval(initial, maxInterval time.Duration) SubscribeOption {
	return func(o *subscribeOptions) {
		o.retryInterval = initial
		o.maxRetryInterval = maxInterval
	}
}

func WithMetrics(m *observability.Metrics) SubscribeOption {
	return func(o *subscribeOptions) { o.metrics = m }
}

// WithClock sets the clock that times the delay before listening again.
func WithClock(clock clockwork.Clock) SubscribeOption {
	return func(o *subscribeOptions) { o.clock = clock }
}

// Subscription is the handle of a running Subscribe call.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe calls fn with every snapshot of q. When the listener fails fn
// receives an empty snapshot and the query is listened to again after a
// backoff delay. Calls to fn are serialized.
func Subscribe(ctx context.Context, l Listener, q Query, fn func([]normalize.Document), opts ...SubscribeOption) *Subscription {
	o := subscribeOptions{
		retryInterval:    DefaultRetryInterval,
		maxRetryInterval: DefaultMaxRetryInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx, l, q, fn, o)
	return s
}

func (s *Subscription) run(ctx context.Context, l Listener, q Query, fn func([]normalize.Document), o subscribeOptions) {
	defer close(s.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.retryInterval
	b.MaxInterval = o.maxRetryInterval
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		slog.Debug("listening to collection", "collection", q.Collection, "order_by", q.OrderBy)
		err := l.Listen(ctx, q, func(docs []normalize.Document) {
			b.Reset()
			if o.metrics != nil {
				o.metrics.SnapshotsReceived.WithLabelValues(q.Collection).Inc()
			}
			fn(docs)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("collection listener failed", "collection", q.Collection, "error", err)
			if o.metrics != nil {
				o.metrics.ListenerErrors.WithLabelValues(q.Collection).Inc()
			}
			fn([]normalize.Document{})
		}

		timer := o.clock.NewTimer(b.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

// Stop ends the subscription and waits for an in-flight callback to return.
// It is safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}
