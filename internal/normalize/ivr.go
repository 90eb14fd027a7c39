package normalize

import "github.com/mr1hm/go-disaster-monitor/internal/models"

const (
	defaultIVRConfidence   = 0.8
	defaultIVRReporterType = "Citizen"
)

// IVR normalizes an ivr_reports (or disaster_reports) document. The flat
// lat/long strings written by the call pipeline win over the nested location
// object; a record with neither is rejected.
func (n *Normalizer) IVR(doc Document) (models.Report, bool) {
	if doc.ID == "" {
		return models.Report{}, false
	}

	loc := doc.Map("location")
	lat, latOK := doc.Float("lat")
	if !latOK {
		lat, latOK = loc.Float("lat")
	}
	lng, lngOK := doc.Float("long")
	if !lngOK {
		lng, lngOK = loc.Float("lng")
	}
	if !latOK || !lngOK || !validCoordinates(lat, lng) {
		return models.Report{}, false
	}

	severity := models.SeverityMedium
	if raw := doc.String("severity"); raw != "" {
		severity = Severity(raw)
	}

	confidence, ok := doc.Float("trust_score")
	if !ok {
		confidence = defaultIVRConfidence
	}

	ts, ok := doc.Time("created_at")
	if !ok {
		ts = n.now()
	}

	transcript := doc.String("transcript")
	return models.Report{
		ID:            doc.ID,
		Text:          firstNonEmpty(doc.String("summary"), transcript, doc.String("description")),
		Latitude:      lat,
		Longitude:     lng,
		DisasterType:  firstNonEmpty(doc.String("disaster_type"), "Unknown"),
		Severity:      severity,
		Confidence:    confidence,
		Source:        models.SourceIVR,
		Timestamp:     ts,
		Transcription: transcript,
		ReporterType:  firstNonEmpty(doc.String("reporter_type"), defaultIVRReporterType),
	}, true
}
