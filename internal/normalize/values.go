package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Float is a JSON number that also tolerates numeric strings and null.
// Anything else decodes as not Valid rather than failing the whole record.
type Float struct {
	Value float64
	Valid bool
}

func (f *Float) UnmarshalJSON(b []byte) error {
	*f = Float{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		f.Value, f.Valid = parseFloat(s)
		return nil
	}
	f.Value, f.Valid = parseFloat(string(b))
	return nil
}

// Ptr returns nil when the value is absent.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// ID accepts both string and numeric identifiers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	*id = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = ID(n.String())
	}
	return nil
}

// String accepts any JSON scalar and keeps its text form. Objects and arrays
// decode as empty.
type String string

func (s *String) UnmarshalJSON(b []byte) error {
	*s = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err == nil {
			*s = String(v)
		}
	case '{', '[', 'n':
	default:
		*s = String(b)
	}
	return nil
}

// Ptr returns nil when the value is absent.
func (s *String) Ptr() *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// Bool accepts true/false, their string forms and numbers.
type Bool bool

func (v *Bool) UnmarshalJSON(b []byte) error {
	*v = false
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		b = []byte(strings.TrimSpace(s))
	}
	if parsed, err := strconv.ParseBool(string(b)); err == nil {
		*v = Bool(parsed)
		return nil
	}
	if f, ok := parseFloat(string(b)); ok {
		*v = f != 0
	}
	return nil
}

// Int is a whole number that also tolerates numeric strings. Fractions are
// truncated.
type Int struct {
	Value int
	Valid bool
}

func (i *Int) UnmarshalJSON(b []byte) error {
	var f Float
	_ = f.UnmarshalJSON(b)
	*i = Int{Value: int(f.Value), Valid: f.Valid}
	return nil
}

func (i Int) Ptr() *int {
	if !i.Valid {
		return nil
	}
	v := i.Value
	return &v
}

// decodeObject decodes raw into v when raw is a JSON object. Any other value,
// or an object that does not decode, leaves v untouched and reports false.
func decodeObject(raw json.RawMessage, v any) bool {
	if !isObject(raw) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// epochMillisThreshold splits unix seconds from unix milliseconds.
const epochMillisThreshold = 1e12

// epochTime reads a unix timestamp in seconds or milliseconds.
func epochTime(v float64) (time.Time, bool) {
	if v <= 0 {
		return time.Time{}, false
	}
	if v >= epochMillisThreshold {
		return time.UnixMilli(int64(v)).UTC(), true
	}
	sec := math.Floor(v)
	return time.Unix(int64(sec), int64((v-sec)*1e9)).UTC(), true
}

// parseTime accepts RFC3339, the timezone-less ISO forms Python backends
// emit (read as UTC) and unix seconds or milliseconds.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if v, ok := parseFloat(s); ok {
		return epochTime(v)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// validCoordinates rejects NaN, infinities and values off the globe.
func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
