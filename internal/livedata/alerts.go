package livedata

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
)

// AlertStore manages operator alerts in the alerts collection.
type AlertStore struct {
	client *firestore.Client
}

func NewAlertStore(client *firestore.Client) *AlertStore {
	return &AlertStore{client: client}
}

func (s *AlertStore) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	iter := s.client.Collection(Alerts.Collection).OrderBy(Alerts.OrderBy, firestore.Desc).Documents(ctx)
	defer iter.Stop()

	alerts := []models.Alert{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing alerts: %w", err)
		}
		alerts = append(alerts, DecodeAlert(normalize.Document{ID: doc.Ref.ID, Data: doc.Data()}))
	}
	return alerts, nil
}

// CreateAlert adds an active alert stamped with the server time.
func (s *AlertStore) CreateAlert(ctx context.Context, in models.NewAlert) (models.Alert, error) {
	ref, _, err := s.client.Collection(Alerts.Collection).Add(ctx, map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"severity":    in.Severity,
		"district":    in.District,
		"expires_at":  in.ExpiresAt,
		"status":      string(models.AlertStatusActive),
		"created_at":  firestore.ServerTimestamp,
	})
	if err != nil {
		return models.Alert{}, fmt.Errorf("error adding alert: %w", err)
	}

	return models.Alert{
		ID:          ref.ID,
		Title:       in.Title,
		Description: in.Description,
		Severity:    in.Severity,
		District:    in.District,
		ExpiresAt:   in.ExpiresAt,
		Status:      models.AlertStatusActive,
	}, nil
}

func (s *AlertStore) UpdateAlert(ctx context.Context, id string, upd models.AlertUpdate) error {
	fields := upd.Fields()
	if len(fields) == 0 {
		return nil
	}

	updates := make([]firestore.Update, 0, len(fields))
	for path, v := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: v})
	}

	_, err := s.client.Collection(Alerts.Collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("error updating alert %s: %w", id, err)
	}
	return nil
}

func (s *AlertStore) DeleteAlert(ctx context.Context, id string) error {
	if _, err := s.client.Collection(Alerts.Collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("error deleting alert %s: %w", id, err)
	}
	return nil
}

// DecodeAlert reads an alert document. Missing fields are left empty and a
// missing status reads as active.
func DecodeAlert(doc normalize.Document) models.Alert {
	a := models.Alert{
		ID:          doc.ID,
		Title:       doc.String("title"),
		Description: doc.String("description"),
		Severity:    doc.String("severity"),
		District:    doc.String("district"),
		ExpiresAt:   doc.String("expires_at"),
		Status:      models.AlertStatus(doc.String("status")),
	}
	if a.Status == "" {
		a.Status = models.AlertStatusActive
	}
	if t, ok := doc.Time("created_at"); ok {
		a.CreatedAt = t
	}
	return a
}

// DecodeAlerts decodes a whole alerts snapshot.
func DecodeAlerts(docs []normalize.Document) []models.Alert {
	out := make([]models.Alert, 0, len(docs))
	for _, d := range docs {
		out = append(out, DecodeAlert(d))
	}
	return out
}
