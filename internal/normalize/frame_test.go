package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

func TestDecodeFrame_WrappedFlat(t *testing.T) {
	p, err := DecodeFrame([]byte(`{"type":"new_post","post":{"id":"p1","text":"Flood near river","is_disaster":true,"disaster_type":"flood","confidence":0.93,"latitude":26.1,"longitude":91.7,"severity":"high","timestamp":"2025-07-14T09:00:00Z"}}`))
	require.NoError(t, err)

	assert.Equal(t, FlatPost, p.Shape)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Flood near river", p.Text)
	assert.True(t, p.IsDisaster)
	require.NotNil(t, p.DisasterType)
	assert.Equal(t, "flood", *p.DisasterType)
	assert.Equal(t, 0.93, p.Confidence.Value)
	assert.Equal(t, 26.1, p.Latitude.Value)
}

func TestDecodeFrame_BareNested(t *testing.T) {
	p, err := DecodeFrame([]byte(`{"id":"p2","content":{"text":"Quake felt downtown"},"analysis":{"is_disaster":true,"disaster_type":"earthquake","confidence":0.7,"urgency":"critical"},"location":{"lat":35.6,"lng":139.7}}`))
	require.NoError(t, err)

	assert.Equal(t, NestedPost, p.Shape)
	assert.Equal(t, "Quake felt downtown", p.Text)
	assert.True(t, p.IsDisaster)
	assert.Equal(t, "earthquake", *p.DisasterType)
	assert.Equal(t, "critical", p.Severity)
	assert.Equal(t, 35.6, p.Latitude.Value)
	assert.Equal(t, 139.7, p.Longitude.Value)
}

func TestDecodeFrame_FlatWinsOverNested(t *testing.T) {
	p, err := DecodeFrame([]byte(`{"id":"p3","text":"flat","content":{"text":"nested"},"is_disaster":false,"analysis":{"is_disaster":true}}`))
	require.NoError(t, err)
	assert.Equal(t, "flat", p.Text)
	assert.False(t, p.IsDisaster)
}

func TestDecodeFrame_UnknownTypeUsesWholePayload(t *testing.T) {
	p, err := DecodeFrame([]byte(`{"type":"heartbeat","id":"p4","text":"bare"}`))
	require.NoError(t, err)
	assert.Equal(t, "p4", p.ID)
}

func TestDecodeFrame_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `hello`, ErrMalformedFrame},
		{"truncated", `{"id":"x"`, ErrMalformedFrame},
		{"array", `[1,2]`, ErrMalformedFrame},
		{"null", `null`, ErrMalformedFrame},
		{"missing id", `{"text":"no id"}`, ErrMissingID},
		{"wrapped missing id", `{"type":"new_post","post":{"text":"no id"}}`, ErrMissingID},
		{"empty id", `{"id":""}`, ErrMissingID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFeedEntry(t *testing.T) {
	n := newTestNormalizer()

	e, err := n.Frame([]byte(`{"id":"p5","analysis":{"urgency":"Medium"},"lat":"12.5","lng":"bad"}`))
	require.NoError(t, err)
	require.NotNil(t, e.Severity)
	assert.Equal(t, models.SeverityMedium, *e.Severity)
	assert.Nil(t, e.Latitude, "coordinates are dropped as a pair")
	assert.Nil(t, e.Longitude)
	assert.Equal(t, fixedNow, e.Timestamp)
	assert.False(t, e.IsDisaster)

	e, err = n.Frame([]byte(`{"id":"p6","timestamp":"2025-07-14T08:59:00Z"}`))
	require.NoError(t, err)
	assert.Nil(t, e.Severity)
	assert.Equal(t, time.Date(2025, time.July, 14, 8, 59, 0, 0, time.UTC), e.Timestamp)
}

func TestFrame_OddOptionalFieldsKeepThePost(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, e models.FeedEntry)
	}{
		{
			name:  "place name location",
			frame: `{"id":"p1","text":"Flooding","is_disaster":true,"location":"Mumbai"}`,
			check: func(t *testing.T, e models.FeedEntry) {
				assert.True(t, e.IsDisaster)
				assert.Equal(t, "Flooding", e.Text)
				assert.Nil(t, e.Latitude)
			},
		},
		{
			name:  "unix seconds timestamp",
			frame: `{"id":"p2","timestamp":1700000000}`,
			check: func(t *testing.T, e models.FeedEntry) {
				assert.Equal(t, time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC), e.Timestamp)
			},
		},
		{
			name:  "unix millis timestamp",
			frame: `{"id":"p3","timestamp":"1700000000000"}`,
			check: func(t *testing.T, e models.FeedEntry) {
				assert.Equal(t, time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC), e.Timestamp)
			},
		},
		{
			name:  "numeric urgency",
			frame: `{"id":"p4","analysis":{"is_disaster":true,"urgency":3}}`,
			check: func(t *testing.T, e models.FeedEntry) {
				assert.True(t, e.IsDisaster)
				require.NotNil(t, e.Severity)
				assert.Equal(t, models.SeverityLow, *e.Severity)
			},
		},
		{
			name:  "scalar content and odd types",
			frame: `{"id":"p5","content":"raw","text":42,"is_disaster":"true","disaster_type":["flood"],"severity":null}`,
			check: func(t *testing.T, e models.FeedEntry) {
				assert.Equal(t, "42", e.Text)
				assert.True(t, e.IsDisaster)
				require.NotNil(t, e.DisasterType)
				assert.Empty(t, *e.DisasterType)
				assert.Nil(t, e.Severity)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := n.Frame([]byte(tt.frame))
			require.NoError(t, err)
			tt.check(t, e)
		})
	}
}
