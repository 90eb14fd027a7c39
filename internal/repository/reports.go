package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

// ReplaceSnapshot swaps the stored rows of feed for reports in one
// transaction. Rows absent from reports are removed.
func (s *SQLiteDB) ReplaceSnapshot(ctx context.Context, feed string, reports []models.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE feed = ?`, feed); err != nil {
		return fmt.Errorf("error clearing feed %s: %w", feed, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO reports (
			feed, source, id, text, latitude, longitude, disaster_type, severity,
			confidence, source_count, timestamp, platform, urgency, transcription,
			reporter_type, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	now := s.clock.Now().UnixNano()
	for _, r := range reports {
		var sourceCount sql.NullInt64
		if r.SourceCount != nil {
			sourceCount = sql.NullInt64{Int64: int64(*r.SourceCount), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			feed, string(r.Source), r.ID, r.Text, r.Latitude, r.Longitude, r.DisasterType,
			string(r.Severity), r.Confidence, sourceCount, r.Timestamp.UnixNano(),
			r.Platform, r.Urgency, r.Transcription, r.ReporterType, now,
		)
		if err != nil {
			return fmt.Errorf("error inserting report %s: %w", r.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing snapshot for %s: %w", feed, err)
	}
	return nil
}

func (s *SQLiteDB) ListReports(ctx context.Context, opts Filter) ([]models.Report, error) {
	query := `
		SELECT source, id, text, latitude, longitude, disaster_type, severity, confidence,
			source_count, timestamp, platform, urgency, transcription, reporter_type
		FROM reports`

	var (
		where []string
		args  []any
	)
	if opts.Feed != "" {
		where = append(where, "feed = ?")
		args = append(args, opts.Feed)
	}
	if opts.Source != nil {
		where = append(where, "source = ?")
		args = append(args, string(*opts.Source))
	}
	if opts.Severity != nil {
		where = append(where, "severity = ?")
		args = append(args, string(*opts.Severity))
	}
	if opts.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, opts.Since.UnixNano())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, source, id"

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var (
			r                                       models.Report
			source, severity                        string
			sourceCount                             sql.NullInt64
			ts                                      int64
			platform, urgency, transcription, rtype sql.NullString
		)
		if err := rows.Scan(
			&source, &r.ID, &r.Text, &r.Latitude, &r.Longitude, &r.DisasterType, &severity,
			&r.Confidence, &sourceCount, &ts, &platform, &urgency, &transcription, &rtype,
		); err != nil {
			return nil, fmt.Errorf("error scanning report: %w", err)
		}
		r.Source = models.Source(source)
		r.Severity = models.Severity(severity)
		r.Timestamp = time.Unix(0, ts).UTC()
		if sourceCount.Valid {
			n := int(sourceCount.Int64)
			r.SourceCount = &n
		}
		r.Platform = platform.String
		r.Urgency = urgency.String
		r.Transcription = transcription.String
		r.ReporterType = rtype.String
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}
