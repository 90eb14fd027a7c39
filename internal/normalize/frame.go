package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingID      = errors.New("post has no id")
)

const newPostType = "new_post"

// PostShape tags which wire layout a push post arrived in.
type PostShape int

const (
	// FlatPost carries text, is_disaster, latitude... at the top level.
	FlatPost PostShape = iota
	// NestedPost carries content.text, analysis.* and location.{lat,lng}.
	NestedPost
)

func (s PostShape) String() string {
	if s == NestedPost {
		return "nested"
	}
	return "flat"
}

// RawPost is a push post after shape resolution. Fields hold whatever the
// frame provided, with flat fields taking precedence over nested ones.
type RawPost struct {
	Shape        PostShape
	ID           string
	Text         string
	IsDisaster   bool
	DisasterType *string
	Confidence   Float
	Latitude     Float
	Longitude    Float
	Severity     string
	Timestamp    string
}

type frameEnvelope struct {
	Type String          `json:"type"`
	Post json.RawMessage `json:"post"`
}

// wirePost decodes every optional field leniently. Only unparsable JSON or a
// missing id rejects a frame.
type wirePost struct {
	ID           ID      `json:"id"`
	Text         *String `json:"text"`
	IsDisaster   *Bool   `json:"is_disaster"`
	DisasterType *String `json:"disaster_type"`
	Confidence   Float   `json:"confidence"`
	Latitude     Float   `json:"latitude"`
	Longitude    Float   `json:"longitude"`
	Lat          Float   `json:"lat"`
	Lng          Float   `json:"lng"`
	Severity     *String `json:"severity"`
	Timestamp    String  `json:"timestamp"`

	Content  json.RawMessage `json:"content"`
	Analysis json.RawMessage `json:"analysis"`
	Location json.RawMessage `json:"location"`
}

type wireContent struct {
	Text *String `json:"text"`
}

type wireAnalysis struct {
	IsDisaster   *Bool   `json:"is_disaster"`
	DisasterType *String `json:"disaster_type"`
	Confidence   Float   `json:"confidence"`
	Urgency      *String `json:"urgency"`
}

type wireLocation struct {
	Lat Float `json:"lat"`
	Lng Float `json:"lng"`
}

// DecodeFrame parses one push-channel frame. Frames may be wrapped as
// {"type":"new_post","post":{...}} or be the bare post.
func DecodeFrame(data []byte) (RawPost, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return RawPost{}, ErrMalformedFrame
	}

	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return RawPost{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	body := data
	if string(env.Type) == newPostType && isObject(env.Post) {
		body = env.Post
	}

	var w wirePost
	if err := json.Unmarshal(body, &w); err != nil {
		return RawPost{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if w.ID == "" {
		return RawPost{}, ErrMissingID
	}
	return w.resolve(), nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func (w *wirePost) resolve() RawPost {
	var (
		content  wireContent
		analysis wireAnalysis
		location wireLocation
	)
	hasContent := decodeObject(w.Content, &content)
	hasAnalysis := decodeObject(w.Analysis, &analysis)
	hasLocation := decodeObject(w.Location, &location)

	p := RawPost{
		Shape:        FlatPost,
		ID:           string(w.ID),
		DisasterType: w.DisasterType.Ptr(),
		Confidence:   w.Confidence,
		Latitude:     w.Latitude,
		Longitude:    w.Longitude,
		Timestamp:    string(w.Timestamp),
	}
	if hasContent || hasAnalysis || hasLocation {
		p.Shape = NestedPost
	}

	switch {
	case w.Text != nil:
		p.Text = string(*w.Text)
	case content.Text != nil:
		p.Text = string(*content.Text)
	}

	switch {
	case w.IsDisaster != nil:
		p.IsDisaster = bool(*w.IsDisaster)
	case analysis.IsDisaster != nil:
		p.IsDisaster = bool(*analysis.IsDisaster)
	}

	if w.Severity != nil {
		p.Severity = string(*w.Severity)
	}

	if p.DisasterType == nil {
		p.DisasterType = analysis.DisasterType.Ptr()
	}
	if !p.Confidence.Valid {
		p.Confidence = analysis.Confidence
	}
	if w.Severity == nil && analysis.Urgency != nil {
		p.Severity = string(*analysis.Urgency)
	}

	if !p.Latitude.Valid {
		p.Latitude = location.Lat
	}
	if !p.Latitude.Valid {
		p.Latitude = w.Lat
	}
	if !p.Longitude.Valid {
		p.Longitude = location.Lng
	}
	if !p.Longitude.Valid {
		p.Longitude = w.Lng
	}
	return p
}

// FeedEntry flattens a decoded post into the entry kept in the live buffer.
// Coordinates are optional here; an unusable pair is dropped, not the entry.
func (n *Normalizer) FeedEntry(p RawPost) (models.FeedEntry, error) {
	if p.ID == "" {
		return models.FeedEntry{}, ErrMissingID
	}

	e := models.FeedEntry{
		ID:           p.ID,
		Text:         p.Text,
		IsDisaster:   p.IsDisaster,
		DisasterType: p.DisasterType,
		Confidence:   p.Confidence.Ptr(),
	}
	if p.Severity != "" {
		sev := Severity(p.Severity)
		e.Severity = &sev
	}
	if p.Latitude.Valid && p.Longitude.Valid && validCoordinates(p.Latitude.Value, p.Longitude.Value) {
		e.Latitude = p.Latitude.Ptr()
		e.Longitude = p.Longitude.Ptr()
	}

	ts, ok := parseTime(p.Timestamp)
	if !ok {
		ts = n.now()
	}
	e.Timestamp = ts
	return e, nil
}

// Frame decodes and flattens in one step.
func (n *Normalizer) Frame(data []byte) (models.FeedEntry, error) {
	p, err := DecodeFrame(data)
	if err != nil {
		return models.FeedEntry{}, err
	}
	return n.FeedEntry(p)
}
