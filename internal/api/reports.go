package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/repository"
)

const (
	defaultReportLimit = 100
	maxReportLimit     = 500
)

func (h *Handler) getReports(c *gin.Context) {
	reports, ok := h.listReports(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *Handler) getReportsGeoJSON(c *gin.Context) {
	reports, ok := h.listReports(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(reports))
}

func (h *Handler) listReports(c *gin.Context) ([]models.Report, bool) {
	reports, err := h.reports.ListReports(c.Request.Context(), reportFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch reports",
		})
		return nil, false
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, true
}

// reportFilter reads the query string. Unknown values are ignored rather than
// rejected.
func reportFilter(c *gin.Context) repository.Filter {
	filter := repository.Filter{
		Limit: defaultReportLimit,
	}

	if s := c.Query("source"); s != "" {
		if src, ok := parseSource(s); ok {
			filter.Source = &src
		}
	}
	if s := c.Query("severity"); s != "" {
		if sev, ok := parseSeverity(s); ok {
			filter.Severity = &sev
		}
	}
	if f := c.Query("feed"); f != "" {
		filter.Feed = f
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= maxReportLimit {
			filter.Limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off >= 0 {
			filter.Offset = off
		}
	}
	return filter
}

func parseSource(s string) (models.Source, bool) {
	switch src := models.Source(strings.ToLower(s)); src {
	case models.SourceSocial, models.SourceIVR, models.SourceApp:
		return src, true
	default:
		return "", false
	}
}

// parseSeverity accepts the three severity names only, unlike the lenient
// normalization of upstream records.
func parseSeverity(s string) (models.Severity, bool) {
	switch strings.ToLower(s) {
	case "low":
		return models.SeverityLow, true
	case "medium":
		return models.SeverityMedium, true
	case "high":
		return models.SeverityHigh, true
	default:
		return "", false
	}
}
