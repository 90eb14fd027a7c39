package api

import (
	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(reports []models.Report) FeatureCollection {
	features := make([]Feature, 0, len(reports))

	for _, r := range reports {
		props := map[string]any{
			"id":            r.ID,
			"key":           r.Key(),
			"text":          r.Text,
			"disaster_type": r.DisasterType,
			"severity":      r.Severity,
			"confidence":    r.Confidence,
			"source":        r.Source,
			"timestamp":     r.Timestamp,
		}
		if r.SourceCount != nil {
			props["source_count"] = *r.SourceCount
		}
		if r.Platform != "" {
			props["platform"] = r.Platform
		}
		if r.ReporterType != "" {
			props["reporter_type"] = r.ReporterType
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{r.Longitude, r.Latitude},
			},
			Properties: props,
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
