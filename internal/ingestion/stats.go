package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/observability"
)

type StatsSource interface {
	Stats(ctx context.Context) (models.Stats, error)
	MapReports(ctx context.Context) ([]models.Report, error)
}

// StatsWithFallback fetches the dashboard stats. If the stats endpoint fails
// they are derived from the map reports, and if that fails too every counter
// is zero. The only error it returns is ctx's, once ctx is done.
func StatsWithFallback(src StatsSource, clock clockwork.Clock, metrics *observability.Metrics) FetchFunc[models.Stats] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return func(ctx context.Context) (models.Stats, error) {
		stats, err := src.Stats(ctx)
		if err == nil {
			return stats, nil
		}
		if ctx.Err() != nil {
			return models.Stats{}, ctx.Err()
		}
		slog.Warn("stats endpoint failed, deriving from reports", "error", err)
		if metrics != nil {
			metrics.StatsFallbacks.Inc()
		}

		reports, err := src.MapReports(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return models.Stats{}, ctx.Err()
			}
			slog.Warn("reports fetch failed, stats unavailable", "error", err)
			return models.Stats{}, nil
		}
		return DeriveStats(reports, clock.Now()), nil
	}
}

// DeriveStats computes the dashboard counters from a report list. A report
// counts toward the last 24 hours when it is strictly younger than a day.
func DeriveStats(reports []models.Report, now time.Time) models.Stats {
	stats := models.Stats{TotalReports: len(reports)}
	for _, r := range reports {
		if r.Severity == models.SeverityHigh {
			stats.CriticalAlerts++
		}
		if now.Sub(r.Timestamp) < 24*time.Hour {
			stats.SocialMediaPosts24h++
		}
	}
	return stats
}
