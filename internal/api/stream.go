package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

const writeWait = 10 * time.Second

// streamMessage is one frame sent to stream clients.
type streamMessage struct {
	Type    string             `json:"type"` // "snapshot" or "entry"
	Entries []models.FeedEntry `json:"entries,omitempty"`
	Entry   *models.FeedEntry  `json:"entry,omitempty"`
}

type streamFilter struct {
	disastersOnly bool
	severity      *models.Severity
}

func (f streamFilter) match(e models.FeedEntry) bool {
	if f.disastersOnly && !e.IsDisaster {
		return false
	}
	if f.severity != nil && (e.Severity == nil || *e.Severity != *f.severity) {
		return false
	}
	return true
}

// streamFeed relays the live feed to a websocket client: the buffered entries
// first, then every new entry as it arrives.
func (h *Handler) streamFeed(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed disabled"})
		return
	}

	var filter streamFilter
	if v, err := strconv.ParseBool(c.Query("disasters_only")); err == nil {
		filter.disastersOnly = v
	}
	if s := c.Query("severity"); s != "" {
		if sev, ok := parseSeverity(s); ok {
			filter.severity = &sev
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	subID, entries := h.feed.Subscribe()
	defer h.feed.Unsubscribe(subID)

	if h.metrics != nil {
		h.metrics.StreamClients.Inc()
		defer h.metrics.StreamClients.Dec()
	}
	slog.Info("client subscribed to feed stream", "client_id", clientID)

	// The read side only watches for the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	posts := h.feed.Posts()
	replayed := newBacklogGuard(posts)
	backlog := []models.FeedEntry{}
	for _, e := range posts {
		if filter.match(e) {
			backlog = append(backlog, e)
		}
	}
	if err := writeJSON(conn, streamMessage{Type: "snapshot", Entries: backlog}); err != nil {
		slog.Warn("failed to send feed snapshot", "client_id", clientID, "error", err)
		return
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			slog.Info("client disconnected from feed stream", "client_id", clientID)
			return
		case <-c.Request.Context().Done():
			return
		case e, ok := <-entries:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(writeWait))
				return
			}
			if replayed.sent(e) || !filter.match(e) {
				continue
			}
			if err := writeJSON(conn, streamMessage{Type: "entry", Entry: &e}); err != nil {
				slog.Error("failed to send feed entry", "client_id", clientID, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// backlogGuard drops subscription entries already sent in the snapshot.
// Entries pushed between Subscribe and Posts arrive on both and lead the
// subscription, so the guard disarms at the first entry not in the backlog.
type backlogGuard struct {
	ids map[string]struct{}
}

func newBacklogGuard(backlog []models.FeedEntry) *backlogGuard {
	ids := make(map[string]struct{}, len(backlog))
	for _, e := range backlog {
		ids[e.ID] = struct{}{}
	}
	return &backlogGuard{ids: ids}
}

func (g *backlogGuard) sent(e models.FeedEntry) bool {
	if g.ids == nil {
		return false
	}
	if _, ok := g.ids[e.ID]; ok {
		return true
	}
	g.ids = nil
	return false
}

func writeJSON(conn *websocket.Conn, msg streamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
