package models

import "time"

type AlertStatus string

const (
	AlertStatusActive  AlertStatus = "active"
	AlertStatusExpired AlertStatus = "expired"
)

// Alert is an operator-issued alert kept in the alerts collection.
type Alert struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Severity    string      `json:"severity"`
	District    string      `json:"district"`
	ExpiresAt   string      `json:"expires_at"`
	Status      AlertStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at,omitzero"`
}

type NewAlert struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Severity    string `json:"severity" binding:"required"`
	District    string `json:"district"`
	ExpiresAt   string `json:"expires_at"`
}

// AlertUpdate is a partial update; nil fields are left unchanged.
type AlertUpdate struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Severity    *string      `json:"severity"`
	District    *string      `json:"district"`
	ExpiresAt   *string      `json:"expires_at"`
	Status      *AlertStatus `json:"status"`
}

func (u AlertUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Severity == nil &&
		u.District == nil && u.ExpiresAt == nil && u.Status == nil
}

// Fields returns the set fields keyed by their stored name.
func (u AlertUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Severity != nil {
		fields["severity"] = *u.Severity
	}
	if u.District != nil {
		fields["district"] = *u.District
	}
	if u.ExpiresAt != nil {
		fields["expires_at"] = *u.ExpiresAt
	}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	return fields
}
