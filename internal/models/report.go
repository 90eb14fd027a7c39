package models

import "time"

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

type Source string

const (
	SourceSocial Source = "social"
	SourceIVR    Source = "ivr"
	SourceApp    Source = "app"
)

// Report is the unified shape every social, IVR and app record is normalized
// into. ID is only unique within a Source.
type Report struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	DisasterType string    `json:"disaster_type"`
	Severity     Severity  `json:"severity"`
	Confidence   float64   `json:"confidence"`
	Source       Source    `json:"source"`
	SourceCount  *int      `json:"source_count,omitempty"` // social aggregation only
	Timestamp    time.Time `json:"timestamp"`

	Platform      string `json:"platform,omitempty"` // "twitter", "reddit", ...
	Urgency       string `json:"urgency,omitempty"`
	Transcription string `json:"transcription,omitempty"` // IVR only
	ReporterType  string `json:"reporter_type,omitempty"` // IVR only
}

// Key disambiguates reports whose IDs collide across sources.
func (r *Report) Key() string {
	return string(r.Source) + ":" + r.ID
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (r *Report) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}
