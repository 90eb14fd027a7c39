package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

// getAlerts serves the live snapshot once it has arrived and reads the store
// otherwise.
func (h *Handler) getAlerts(c *gin.Context) {
	if alerts, ok := h.data.Alerts(); ok {
		c.JSON(http.StatusOK, alerts)
		return
	}

	alerts, err := h.alerts.ListAlerts(c.Request.Context())
	if err != nil {
		slog.Error("error listing alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) createAlert(c *gin.Context) {
	var in models.NewAlert
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and severity are required"})
		return
	}

	alert, err := h.alerts.CreateAlert(c.Request.Context(), in)
	if err != nil {
		slog.Error("error creating alert", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert"})
		return
	}
	slog.Info("alert created", "id", alert.ID, "severity", alert.Severity)
	c.JSON(http.StatusCreated, alert)
}

func (h *Handler) updateAlert(c *gin.Context) {
	var upd models.AlertUpdate
	if err := c.ShouldBindJSON(&upd); err != nil || upd.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	id := c.Param("id")
	if err := h.alerts.UpdateAlert(c.Request.Context(), id, upd); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		slog.Error("error updating alert", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "updated"})
}

func (h *Handler) deleteAlert(c *gin.Context) {
	id := c.Param("id")
	if err := h.alerts.DeleteAlert(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		slog.Error("error deleting alert", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete alert"})
		return
	}
	c.Status(http.StatusNoContent)
}
