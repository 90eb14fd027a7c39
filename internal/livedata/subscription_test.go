package livedata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
	"github.com/mr1hm/go-disaster-monitor/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeListener replays what the test pushes: a []normalize.Document is
// emitted as a snapshot, an error ends the current Listen call.
type fakeListener struct {
	events chan any

	mu      sync.Mutex
	listens int
	queries []Query
}

func newFakeListener() *fakeListener {
	return &fakeListener{events: make(chan any)}
}

func (l *fakeListener) Listen(ctx context.Context, q Query, emit func([]normalize.Document)) error {
	l.mu.Lock()
	l.listens++
	l.queries = append(l.queries, q)
	l.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-l.events:
			switch v := ev.(type) {
			case []normalize.Document:
				emit(v)
			case error:
				return v
			}
		}
	}
}

func (l *fakeListener) Listens() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listens
}

func docs(ids ...string) []normalize.Document {
	out := make([]normalize.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, normalize.Document{ID: id, Data: map[string]any{"summary": "report " + id}})
	}
	return out
}

func docIDs(d []normalize.Document) []string {
	out := make([]string, len(d))
	for i, doc := range d {
		out[i] = doc.ID
	}
	return out
}

// holder keeps the latest snapshot the way a consumer does.
type holder struct {
	mu       sync.Mutex
	current  []normalize.Document
	received chan []normalize.Document
}

func newHolder() *holder {
	return &holder{received: make(chan []normalize.Document, 10)}
}

func (h *holder) set(d []normalize.Document) {
	h.mu.Lock()
	h.current = d
	h.mu.Unlock()
	h.received <- d
}

func (h *holder) next(t *testing.T) []normalize.Document {
	t.Helper()
	select {
	case d := <-h.received:
		return d
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribe_SnapshotReplaces(t *testing.T) {
	l := newFakeListener()
	h := newHolder()

	sub := Subscribe(context.Background(), l, IVRReports, h.set)
	defer sub.Stop()

	l.events <- docs("a", "b")
	assert.Equal(t, []string{"a", "b"}, docIDs(h.next(t)))

	l.events <- docs("c")
	assert.Equal(t, []string{"c"}, docIDs(h.next(t)))

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []string{"c"}, docIDs(h.current))
}

func TestSubscribe_ErrorEmitsEmptyAndRelistens(t *testing.T) {
	l := newFakeListener()
	h := newHolder()
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClock()

	sub := Subscribe(context.Background(), l, AppReports, h.set,
		WithRetryInterval(time.Second, 10*time.Second),
		WithMetrics(metrics),
		WithClock(clock),
	)
	defer sub.Stop()

	l.events <- docs("x")
	assert.Equal(t, []string{"x"}, docIDs(h.next(t)))

	l.events <- errors.New("permission denied")
	empty := h.next(t)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	assert.Equal(t, 1, l.Listens(), "no relisten before the retry delay")
	clock.Advance(2 * time.Second)

	// The second Listen call picks up the next event.
	l.events <- docs("y")
	assert.Equal(t, []string{"y"}, docIDs(h.next(t)))

	assert.Equal(t, 2, l.Listens())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ListenerErrors.WithLabelValues("reports")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SnapshotsReceived.WithLabelValues("reports")))
}

func TestSubscribe_StopIsIdempotent(t *testing.T) {
	l := newFakeListener()
	h := newHolder()

	sub := Subscribe(context.Background(), l, Alerts, h.set)
	l.events <- docs("a")
	h.next(t)

	sub.Stop()
	sub.Stop()

	select {
	case l.events <- docs("late"):
		t.Error("listener should not be running after Stop")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubscribe_StopsWithParentContext(t *testing.T) {
	l := newFakeListener()
	ctx, cancel := context.WithCancel(context.Background())

	sub := Subscribe(ctx, l, DisasterReports, func([]normalize.Document) {})
	require.Eventually(t, func() bool { return l.Listens() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	sub.Stop()
}

func TestDecodeAlert(t *testing.T) {
	created := time.Date(2025, time.July, 14, 9, 0, 0, 0, time.UTC)
	alerts := DecodeAlerts([]normalize.Document{
		{ID: "al-1", Data: map[string]any{
			"title":      "Heavy rainfall warning",
			"severity":   "High",
			"district":   "Andheri",
			"status":     "expired",
			"created_at": created,
		}},
		{ID: "al-2", Data: map[string]any{"title": "No status"}},
	})

	require.Len(t, alerts, 2)
	assert.Equal(t, models.Alert{
		ID:        "al-1",
		Title:     "Heavy rainfall warning",
		Severity:  "High",
		District:  "Andheri",
		Status:    models.AlertStatusExpired,
		CreatedAt: created,
	}, alerts[0])
	assert.Equal(t, models.AlertStatusActive, alerts[1].Status)
	assert.True(t, alerts[1].CreatedAt.IsZero())
}
