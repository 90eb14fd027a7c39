package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

// The alert methods back the alerts API when no Firestore project is
// configured.

func (s *SQLiteDB) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, severity, district, expires_at, status, created_at
		FROM alerts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var (
			a       models.Alert
			status  string
			created int64
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Severity, &a.District, &a.ExpiresAt, &status, &created); err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		a.Status = models.AlertStatus(status)
		a.CreatedAt = time.Unix(0, created).UTC()
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

func (s *SQLiteDB) CreateAlert(ctx context.Context, in models.NewAlert) (models.Alert, error) {
	a := models.Alert{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Severity:    in.Severity,
		District:    in.District,
		ExpiresAt:   in.ExpiresAt,
		Status:      models.AlertStatusActive,
		CreatedAt:   s.clock.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, title, description, severity, district, expires_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Description, a.Severity, a.District, a.ExpiresAt, string(a.Status), a.CreatedAt.UnixNano(),
	)
	if err != nil {
		return models.Alert{}, fmt.Errorf("error adding alert: %w", err)
	}
	return a, nil
}

func (s *SQLiteDB) UpdateAlert(ctx context.Context, id string, upd models.AlertUpdate) error {
	fields := upd.Fields()
	if len(fields) == 0 {
		return nil
	}

	// Column names come from AlertUpdate.Fields, never from the caller.
	var (
		sets []string
		args []any
	)
	for _, col := range []string{"title", "description", "severity", "district", "expires_at", "status"} {
		if v, ok := fields[col]; ok {
			sets = append(sets, col+" = ?")
			args = append(args, v)
		}
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE alerts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("error updating alert %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating alert %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (s *SQLiteDB) DeleteAlert(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("error deleting alert %s: %w", id, err)
	}
	return nil
}
