package models

import "encoding/json"

// SatelliteEvent is a CEMS flood activation from the satellite service.
type SatelliteEvent struct {
	CEMSID         string  `json:"cems_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Country        string  `json:"country"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	EventType      string  `json:"event_type"`
	ActivationTime string  `json:"activation_time"`
	Status         string  `json:"status"`
}

// FloodFeatureCollection keeps geometry opaque; it is relayed, never inspected.
type FloodFeatureCollection struct {
	Type     string         `json:"type"`
	Features []FloodFeature `json:"features"`
}

type FloodFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}
