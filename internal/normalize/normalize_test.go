package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

var fixedNow = time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(clockwork.NewFakeClockAt(fixedNow))
}

func TestSeverity(t *testing.T) {
	tests := map[string]models.Severity{
		"critical": models.SeverityHigh,
		"CRITICAL": models.SeverityHigh,
		"High":     models.SeverityHigh,
		"medium":   models.SeverityMedium,
		" Medium ": models.SeverityMedium,
		"low":      models.SeverityLow,
		"":         models.SeverityLow,
		"severe":   models.SeverityLow,
	}
	for in, want := range tests {
		assert.Equal(t, want, Severity(in), "input %q", in)
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Building Collapse", TitleCase("building_collapse"))
	assert.Equal(t, "Flood", TitleCase("flood"))
	assert.Equal(t, "Road Block 2b", TitleCase("road_block_2b"))
	assert.Equal(t, "", TitleCase(""))
}

func TestIVR_Fixture(t *testing.T) {
	n := newTestNormalizer()
	doc := Document{ID: "ivr-1", Data: map[string]any{
		"lat":         "19.07",
		"long":        "72.87",
		"summary":     "flooding",
		"severity":    "high",
		"trust_score": 0.9,
	}}

	r, ok := n.IVR(doc)
	require.True(t, ok)
	assert.Equal(t, 19.07, r.Latitude)
	assert.Equal(t, 72.87, r.Longitude)
	assert.Equal(t, "flooding", r.Text)
	assert.Equal(t, models.SeverityHigh, r.Severity)
	assert.Equal(t, 0.9, r.Confidence)
	assert.Equal(t, models.SourceIVR, r.Source)
	assert.Equal(t, "Unknown", r.DisasterType)
	assert.Equal(t, "Citizen", r.ReporterType)
	assert.Equal(t, fixedNow, r.Timestamp)
}

func TestIVR_Fallbacks(t *testing.T) {
	n := newTestNormalizer()
	created := time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)
	doc := Document{ID: "ivr-2", Data: map[string]any{
		"location":   map[string]any{"lat": 12.97, "lng": 77.59},
		"transcript": "water entering homes",
		"created_at": created,
	}}

	r, ok := n.IVR(doc)
	require.True(t, ok)
	assert.Equal(t, 12.97, r.Latitude)
	assert.Equal(t, 77.59, r.Longitude)
	assert.Equal(t, "water entering homes", r.Text)
	assert.Equal(t, "water entering homes", r.Transcription)
	assert.Equal(t, models.SeverityMedium, r.Severity)
	assert.Equal(t, 0.8, r.Confidence)
	assert.Equal(t, created, r.Timestamp)
}

func TestIVR_RejectsMissingLocation(t *testing.T) {
	n := newTestNormalizer()

	_, ok := n.IVR(Document{ID: "ivr-3", Data: map[string]any{"summary": "no location"}})
	assert.False(t, ok)

	_, ok = n.IVR(Document{ID: "ivr-4", Data: map[string]any{"lat": "abc", "long": "NaN"}})
	assert.False(t, ok)

	_, ok = n.IVR(Document{ID: "ivr-5", Data: map[string]any{"lat": "10", "location": nil}})
	assert.False(t, ok)
}

func TestApp_Fixture(t *testing.T) {
	n := newTestNormalizer()
	doc := Document{ID: "app-1", Data: map[string]any{
		"location":      map[string]any{"lat": 28.6, "lng": 77.2},
		"reportType":    "building_collapse",
		"priorityLevel": "critical",
		"trustScore":    0.4,
	}}

	r, ok := n.App(doc)
	require.True(t, ok)
	assert.Equal(t, "Building Collapse", r.DisasterType)
	assert.Equal(t, models.SeverityHigh, r.Severity)
	assert.Equal(t, 0.4, r.Confidence)
	assert.Equal(t, models.SourceApp, r.Source)
}

func TestApp_Defaults(t *testing.T) {
	n := newTestNormalizer()
	doc := Document{ID: "app-2", Data: map[string]any{
		"location":            map[string]any{"lat": 28.6, "lng": 77.2},
		"reportTitle":         "Tree down",
		"submissionTimestamp": "2025-07-10T08:00:00Z",
	}}

	r, ok := n.App(doc)
	require.True(t, ok)
	assert.Equal(t, "App Report", r.DisasterType)
	assert.Equal(t, "Tree down", r.Text)
	assert.Equal(t, models.SeverityLow, r.Severity)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, time.Date(2025, time.July, 10, 8, 0, 0, 0, time.UTC), r.Timestamp)
}

func TestApp_RejectsMissingLocation(t *testing.T) {
	n := newTestNormalizer()
	_, ok := n.App(Document{ID: "app-3", Data: map[string]any{"location": map[string]any{"address": "somewhere"}}})
	assert.False(t, ok)
}

func TestReports_FiltersRejected(t *testing.T) {
	n := newTestNormalizer()
	docs := []Document{
		{ID: "a", Data: map[string]any{"location": map[string]any{"lat": 1.0, "lng": 2.0}}},
		{ID: "b", Data: map[string]any{}},
	}
	out := n.Reports(models.SourceApp, docs)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestSocial(t *testing.T) {
	n := newTestNormalizer()

	var raws []SocialReport
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"s1","title":"Bridge flooded","text":"ignored","latitude":19.1,"longitude":72.9,"severity":"CRITICAL","source":"twitter","source_count":4,"timestamp":"2025-07-14T08:00:00Z"},
		{"id":2,"text":"Heavy rain","lat":"13.08","lng":80.27,"created_at":"2025-07-14 07:00:00","source":"ivr"},
		{"id":"s3","text":"no coordinates"},
		{"id":"s4","text":"null island","latitude":0,"longitude":0}
	]`), &raws))

	out := n.SocialReports(raws)
	require.Len(t, out, 2)

	first := out[0]
	assert.Equal(t, "Bridge flooded", first.Text)
	assert.Equal(t, models.SeverityHigh, first.Severity)
	assert.Equal(t, 0.8, first.Confidence)
	assert.Equal(t, "unknown", first.DisasterType)
	assert.Equal(t, models.SourceSocial, first.Source)
	assert.Equal(t, "twitter", first.Platform)
	require.NotNil(t, first.SourceCount)
	assert.Equal(t, 4, *first.SourceCount)

	second := out[1]
	assert.Equal(t, "2", second.ID)
	assert.Equal(t, 13.08, second.Latitude)
	assert.Equal(t, models.SourceIVR, second.Source)
	assert.Equal(t, models.SeverityLow, second.Severity)
	assert.Equal(t, time.Date(2025, time.July, 14, 7, 0, 0, 0, time.UTC), second.Timestamp)
}

func TestSocial_OddOptionalFieldsKeepThePin(t *testing.T) {
	n := newTestNormalizer()

	var raws []SocialReport
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"s1","latitude":19.1,"longitude":72.9,"timestamp":1700000000,"severity":{"level":"high"}},
		{"id":"s2","lat":13.08,"lng":80.27,"source_count":"3","urgency":2,"title":null,"text":"Rain"}
	]`), &raws))

	out := n.SocialReports(raws)
	require.Len(t, out, 2)

	assert.Equal(t, time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC), out[0].Timestamp)
	assert.Equal(t, models.SeverityLow, out[0].Severity)
	assert.Nil(t, out[0].SourceCount)

	require.NotNil(t, out[1].SourceCount)
	assert.Equal(t, 3, *out[1].SourceCount)
	assert.Equal(t, "2", out[1].Urgency)
	assert.Equal(t, "Rain", out[1].Text)
}

func TestReportKey_DisambiguatesSources(t *testing.T) {
	a := models.Report{ID: "42", Source: models.SourceIVR}
	b := models.Report{ID: "42", Source: models.SourceSocial}
	assert.NotEqual(t, a.Key(), b.Key())
}
