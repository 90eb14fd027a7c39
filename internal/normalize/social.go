package normalize

import (
	"strings"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

const defaultSocialConfidence = 0.8

// SocialReport is a map pin as served by GET /api/map/reports.
type SocialReport struct {
	ID            ID     `json:"id"`
	Title         String `json:"title"`
	Text          String `json:"text"`
	Latitude      Float  `json:"latitude"`
	Longitude     Float  `json:"longitude"`
	Lat           Float  `json:"lat"`
	Lng           Float  `json:"lng"`
	DisasterType  String `json:"disaster_type"`
	Severity      String `json:"severity"`
	Confidence    Float  `json:"confidence"`
	Source        String `json:"source"`
	SourceCount   Int    `json:"source_count"`
	Timestamp     String `json:"timestamp"`
	CreatedAt     String `json:"created_at"`
	Urgency       String `json:"urgency"`
	Transcription String `json:"transcription"`
	ReporterType  String `json:"reporter_type"`
}

// Social normalizes a map pin. Pins without resolvable coordinates, or sitting
// exactly on 0,0, are rejected.
func (n *Normalizer) Social(raw SocialReport) (models.Report, bool) {
	if raw.ID == "" {
		return models.Report{}, false
	}

	lat, lng := raw.Latitude, raw.Longitude
	if !lat.Valid {
		lat = raw.Lat
	}
	if !lng.Valid {
		lng = raw.Lng
	}
	if !lat.Valid || !lng.Valid || !validCoordinates(lat.Value, lng.Value) {
		return models.Report{}, false
	}
	if lat.Value == 0 && lng.Value == 0 {
		return models.Report{}, false
	}

	confidence := defaultSocialConfidence
	if raw.Confidence.Valid {
		confidence = raw.Confidence.Value
	}

	ts, ok := parseTime(firstNonEmpty(string(raw.Timestamp), string(raw.CreatedAt)))
	if !ok {
		ts = n.now()
	}

	source := models.SourceSocial
	if strings.EqualFold(string(raw.Source), string(models.SourceIVR)) {
		source = models.SourceIVR
	}

	return models.Report{
		ID:            string(raw.ID),
		Text:          firstNonEmpty(string(raw.Title), string(raw.Text)),
		Latitude:      lat.Value,
		Longitude:     lng.Value,
		DisasterType:  firstNonEmpty(string(raw.DisasterType), "unknown"),
		Severity:      Severity(string(raw.Severity)),
		Confidence:    confidence,
		Source:        source,
		SourceCount:   raw.SourceCount.Ptr(),
		Timestamp:     ts,
		Platform:      strings.ToLower(string(raw.Source)),
		Urgency:       string(raw.Urgency),
		Transcription: string(raw.Transcription),
		ReporterType:  string(raw.ReporterType),
	}, true
}

// SocialReports normalizes a batch and drops rejected pins.
func (n *Normalizer) SocialReports(raws []SocialReport) []models.Report {
	out := make([]models.Report, 0, len(raws))
	for _, raw := range raws {
		if r, ok := n.Social(raw); ok {
			out = append(out, r)
		}
	}
	return out
}
