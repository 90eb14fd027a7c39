package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mr1hm/go-disaster-monitor/internal/backend"
	"github.com/mr1hm/go-disaster-monitor/internal/feed"
	"github.com/mr1hm/go-disaster-monitor/internal/ingestion"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/observability"
	"github.com/mr1hm/go-disaster-monitor/internal/repository"
)

// FeedBrowser is the social feed browsing surface passed through to clients.
type FeedBrowser interface {
	Feed(ctx context.Context, params backend.FeedParams) []models.FeedPost
	FeedPost(ctx context.Context, id string) (models.FeedPost, bool)
	Platforms(ctx context.Context) map[string]int
	Trending(ctx context.Context, topN int) []models.TrendingHashtag
}

type Services struct {
	Data    *ingestion.Manager
	Reports repository.ReportRepository
	Alerts  repository.AlertRepository
	Browser FeedBrowser
	Metrics *observability.Metrics
}

type Handler struct {
	data     *ingestion.Manager
	reports  repository.ReportRepository
	alerts   repository.AlertRepository
	browser  FeedBrowser
	feed     *feed.Client
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	pingInterval time.Duration
}

func NewHandler(s Services) *Handler {
	return &Handler{
		data:    s.Data,
		reports: s.Reports,
		alerts:  s.Alerts,
		browser: s.Browser,
		feed:    s.Data.Feed(),
		metrics: s.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/ws/feed", h.streamFeed)

	api := r.Group("/api")
	api.GET("/reports", h.getReports)
	api.GET("/reports.geojson", h.getReportsGeoJSON)
	api.GET("/stats", h.getStats)
	api.GET("/summary", h.getSummary)

	api.GET("/events", h.getEvents)
	api.GET("/events/:id/geojson", h.getEventGeoJSON)
	api.POST("/events/select", h.selectEvent)
	api.GET("/events/selected", h.getSelectedEvent)

	api.GET("/feed/live", h.getLiveFeed)
	api.GET("/feed/latest-disaster", h.getLatestDisaster)
	api.GET("/feed/status", h.getFeedStatus)
	api.GET("/feed/browse", h.browseFeed)
	api.GET("/feed/platforms", h.getPlatforms)
	api.GET("/feed/trending", h.getTrending)
	api.GET("/feed/posts/:id", h.getFeedPost)

	api.GET("/alerts", h.getAlerts)
	api.POST("/alerts", h.createAlert)
	api.PATCH("/alerts/:id", h.updateAlert)
	api.DELETE("/alerts/:id", h.deleteAlert)
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.feed != nil {
		resp["feed"] = h.feed.State().String()
	} else {
		resp["feed"] = "disabled"
	}
	resp["live_collections"] = h.data.LiveCollections()
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getStats(c *gin.Context) {
	stats, _ := h.data.Stats.Get(c.Request.Context())
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) getSummary(c *gin.Context) {
	summary, _ := h.data.Summary.Get(c.Request.Context())
	if summary.ByType == nil {
		summary = models.EmptySummary()
	}
	c.JSON(http.StatusOK, summary)
}
