package normalize

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Document is one record from a live collection snapshot: the document ID
// plus its field map as delivered by the store.
type Document struct {
	ID   string
	Data map[string]any
}

func (d Document) String(key string) string {
	s, _ := d.Data[key].(string)
	return strings.TrimSpace(s)
}

func (d Document) Float(key string) (float64, bool) {
	return toFloat(d.Data[key])
}

func (d Document) Map(key string) Document {
	m, _ := d.Data[key].(map[string]any)
	return Document{Data: m}
}

func (d Document) Time(key string) (time.Time, bool) {
	return toTime(d.Data[key])
}

// toFloat reads a finite number from the loosely typed values a document
// store hands back, including numeric strings.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case string:
		return parseFloat(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toTime handles native timestamps, ISO strings and the {seconds, nanos}
// map a serialized store timestamp turns into.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		return parseTime(t)
	case float64, float32, int, int32, int64, json.Number:
		f, ok := toFloat(t)
		if !ok {
			return time.Time{}, false
		}
		return epochTime(f)
	case map[string]any:
		secs, ok := toFloat(firstPresent(t, "seconds", "_seconds"))
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := toFloat(firstPresent(t, "nanoseconds", "_nanoseconds", "nanos"))
		return time.Unix(int64(secs), int64(nanos)).UTC(), true
	default:
		return time.Time{}, false
	}
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}
