package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mr1hm/go-disaster-monitor/internal/feed"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

// upstreamConn stands in for the push channel the feed client reads from.
type upstreamConn struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *upstreamConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return websocket.TextMessage, f, nil
	case <-c.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *upstreamConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *upstreamConn) send(frame string) {
	c.frames <- []byte(frame)
}

type upstreamDialer struct {
	conn *upstreamConn
}

func (d *upstreamDialer) Dial(ctx context.Context, url string) (feed.Conn, error) {
	return d.conn, nil
}

func connectedFeed(t *testing.T) (*feed.Client, *upstreamConn) {
	t.Helper()
	conn := &upstreamConn{frames: make(chan []byte, 16), done: make(chan struct{})}
	fc := feed.New(feed.DefaultConfig(),
		feed.WithDialer(&upstreamDialer{conn: conn}),
		feed.WithClock(clockwork.NewFakeClock()),
	)
	t.Cleanup(func() { fc.Close() })

	fc.Connect()
	waitFor(t, fc.Connected)
	return fc, conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dialStream(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/feed" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial stream: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestStreamFeed_SnapshotThenEntries(t *testing.T) {
	fc, upstream := connectedFeed(t)
	env := setupTestRouter(t, fc)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	upstream.send(`{"id":"old-1","text":"earlier post"}`)
	waitFor(t, func() bool { return len(fc.Posts()) == 1 })

	conn := dialStream(t, srv, "")

	var snapshot streamMessage
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if snapshot.Type != "snapshot" || len(snapshot.Entries) != 1 || snapshot.Entries[0].ID != "old-1" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	waitFor(t, func() bool { return testutil.ToFloat64(env.metrics.StreamClients) == 1 })

	upstream.send(`{"id":"new-1","text":"bridge closed","is_disaster":true}`)

	var msg streamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read entry: %v", err)
	}
	if msg.Type != "entry" || msg.Entry == nil || msg.Entry.ID != "new-1" || !msg.Entry.IsDisaster {
		t.Errorf("unexpected entry: %+v", msg)
	}

	conn.Close()
	waitFor(t, func() bool { return testutil.ToFloat64(env.metrics.StreamClients) == 0 })
}

func TestStreamFeed_Filters(t *testing.T) {
	fc, upstream := connectedFeed(t)
	env := setupTestRouter(t, fc)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialStream(t, srv, "?disasters_only=true&severity=high")

	var snapshot streamMessage
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}

	upstream.send(`{"id":"n1","text":"concert tonight","is_disaster":false}`)
	upstream.send(`{"id":"d-low","text":"minor waterlogging","is_disaster":true,"severity":"low"}`)
	upstream.send(`{"id":"d-high","text":"building collapse","is_disaster":true,"severity":"critical"}`)

	var msg streamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read entry: %v", err)
	}
	if msg.Entry == nil || msg.Entry.ID != "d-high" {
		t.Errorf("expected only d-high to pass the filter, got %+v", msg.Entry)
	}
	if *msg.Entry.Severity != models.SeverityHigh {
		t.Errorf("expected High severity, got %s", *msg.Entry.Severity)
	}
}

func TestStreamFeed_ClosesWithFeed(t *testing.T) {
	fc, _ := connectedFeed(t)
	env := setupTestRouter(t, fc)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialStream(t, srv, "")
	var snapshot streamMessage
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}

	fc.Close()

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
}

func TestBacklogGuard_SkipsEntriesAlreadyInSnapshot(t *testing.T) {
	backlog := []models.FeedEntry{{ID: "p3"}, {ID: "p2"}, {ID: "p1"}}
	guard := newBacklogGuard(backlog)

	// p2 and p3 raced the snapshot and are replayed by the subscription.
	for _, id := range []string{"p2", "p3"} {
		if !guard.sent(models.FeedEntry{ID: id}) {
			t.Errorf("expected %s to be skipped as already sent", id)
		}
	}
	if guard.sent(models.FeedEntry{ID: "p4"}) {
		t.Error("expected p4 to be relayed")
	}
	// Once past the backlog a repeated id is a new push and is relayed.
	if guard.sent(models.FeedEntry{ID: "p1"}) {
		t.Error("expected guard to be disarmed after the first new entry")
	}
}
