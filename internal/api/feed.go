package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-monitor/internal/backend"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

func (h *Handler) getLiveFeed(c *gin.Context) {
	posts := []models.FeedEntry{}
	if h.feed != nil {
		posts = h.feed.Posts()
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) getLatestDisaster(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no disaster seen"})
		return
	}
	entry, ok := h.feed.LatestDisaster()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no disaster seen"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) getFeedStatus(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusOK, gin.H{"state": "disabled", "connected": false})
		return
	}
	c.JSON(http.StatusOK, h.feed.Status())
}

func (h *Handler) browseFeed(c *gin.Context) {
	params := backend.FeedParams{
		Platform:     c.Query("platform"),
		DisasterType: c.Query("disaster_type"),
		Urgency:      c.Query("urgency"),
		Search:       c.Query("search"),
	}
	if v, err := strconv.ParseBool(c.Query("disasters_only")); err == nil {
		params.DisastersOnly = v
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		params.Limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o >= 0 {
		params.Offset = o
	}

	posts := h.browser.Feed(c.Request.Context(), params)
	if posts == nil {
		posts = []models.FeedPost{}
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) getFeedPost(c *gin.Context) {
	post, ok := h.browser.FeedPost(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) getPlatforms(c *gin.Context) {
	platforms := h.browser.Platforms(c.Request.Context())
	if platforms == nil {
		platforms = map[string]int{}
	}
	c.JSON(http.StatusOK, platforms)
}

func (h *Handler) getTrending(c *gin.Context) {
	topN := backend.DefaultTrendingTopN
	if n, err := strconv.Atoi(c.Query("top_n")); err == nil && n > 0 {
		topN = n
	}
	trending := h.browser.Trending(c.Request.Context(), topN)
	if trending == nil {
		trending = []models.TrendingHashtag{}
	}
	c.JSON(http.StatusOK, trending)
}
