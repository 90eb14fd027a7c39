package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-monitor/internal/ingestion"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

func (h *Handler) getEvents(c *gin.Context) {
	events, _ := h.data.Events.Get(c.Request.Context())
	if events == nil {
		events = []models.SatelliteEvent{}
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) getEventGeoJSON(c *gin.Context) {
	id := c.Param("id")
	fc, err := h.data.GeoJSON.Fetch(c.Request.Context(), id, c.Query("layer"))
	if err != nil {
		slog.Warn("flood polygons unavailable", "event", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "failed to fetch flood polygons",
		})
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

type selectEventRequest struct {
	ID    string `json:"id"`
	Layer string `json:"layer"`
}

func (h *Handler) selectEvent(c *gin.Context) {
	var req selectEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	fc, err := h.data.GeoJSON.Select(c.Request.Context(), req.ID, req.Layer)
	switch {
	case errors.Is(err, ingestion.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": "selection superseded"})
		return
	case err != nil:
		slog.Warn("flood polygons unavailable", "event", req.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch flood polygons"})
		return
	}

	if req.ID == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getSelectedEvent(c *gin.Context) {
	id, layer, fc, ok := h.data.GeoJSON.Current()
	resp := gin.H{
		"id":     id,
		"layer":  layer,
		"loaded": ok,
	}
	if ok {
		resp["geojson"] = fc
	}
	c.JSON(http.StatusOK, resp)
}
