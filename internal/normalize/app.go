package normalize

import "github.com/mr1hm/go-disaster-monitor/internal/models"

const defaultAppDisasterType = "App Report"

// App normalizes a citizen app submission from the reports collection.
// Only location.lat/lng is consulted for placement.
func (n *Normalizer) App(doc Document) (models.Report, bool) {
	if doc.ID == "" {
		return models.Report{}, false
	}

	loc := doc.Map("location")
	lat, latOK := loc.Float("lat")
	lng, lngOK := loc.Float("lng")
	if !latOK || !lngOK || !validCoordinates(lat, lng) {
		return models.Report{}, false
	}

	disasterType := defaultAppDisasterType
	if rt := doc.String("reportType"); rt != "" {
		disasterType = TitleCase(rt)
	}

	confidence, ok := doc.Float("trustScore")
	if !ok {
		confidence = 0
	}

	ts, ok := doc.Time("submissionTimestamp")
	if !ok {
		ts, ok = doc.Time("createdAt")
	}
	if !ok {
		ts = n.now()
	}

	return models.Report{
		ID:           doc.ID,
		Text:         firstNonEmpty(doc.String("description"), doc.String("reportTitle")),
		Latitude:     lat,
		Longitude:    lng,
		DisasterType: disasterType,
		Severity:     Severity(doc.String("priorityLevel")),
		Confidence:   confidence,
		Source:       models.SourceApp,
		Timestamp:    ts,
	}, true
}

// Reports normalizes a whole snapshot for the given source and drops
// rejected records. Social documents are not produced by live collections.
func (n *Normalizer) Reports(source models.Source, docs []Document) []models.Report {
	convert := n.IVR
	if source == models.SourceApp {
		convert = n.App
	}
	out := make([]models.Report, 0, len(docs))
	for _, doc := range docs {
		if r, ok := convert(doc); ok {
			out = append(out, r)
		}
	}
	return out
}
