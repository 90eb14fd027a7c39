package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

type Filter struct {
	Limit    int
	Offset   int
	Since    *time.Time
	Feed     string
	Source   *models.Source
	Severity *models.Severity
}

// ReportRepository stores the latest snapshot of each report feed. A feed is
// one upstream collection such as the polled social pins or a live collection.
type ReportRepository interface {
	ReplaceSnapshot(ctx context.Context, feed string, reports []models.Report) error
	ListReports(ctx context.Context, opts Filter) ([]models.Report, error)
}

type AlertRepository interface {
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	CreateAlert(ctx context.Context, in models.NewAlert) (models.Alert, error)
	UpdateAlert(ctx context.Context, id string, upd models.AlertUpdate) error
	DeleteAlert(ctx context.Context, id string) error
}
