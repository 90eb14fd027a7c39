package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

const DefaultLayer = "change"

// SatelliteEvents lists the flood events known to the satellite service.
// Failures yield an empty list.
func (c *Client) SatelliteEvents(ctx context.Context) []models.SatelliteEvent {
	payload, err := c.fetchJSON(ctx, "satellite_events", c.satelliteURL+"/api/events")
	if err != nil {
		slog.Warn("error fetching satellite events", "error", err)
		return []models.SatelliteEvent{}
	}
	return decodeList[models.SatelliteEvent]("satellite_events", payload)
}

// EventGeoJSON fetches one layer of flood polygons for an event. An empty
// layer selects the change layer.
func (c *Client) EventGeoJSON(ctx context.Context, id, layer string) (models.FloodFeatureCollection, error) {
	if layer == "" {
		layer = DefaultLayer
	}
	u := fmt.Sprintf("%s/api/events/%s/geojson?%s",
		c.satelliteURL, url.PathEscape(id), url.Values{"layer": {layer}}.Encode())

	payload, err := c.fetchJSON(ctx, "event_geojson", u)
	if err != nil {
		return models.FloodFeatureCollection{}, err
	}

	var fc models.FloodFeatureCollection
	if err := json.Unmarshal(payload, &fc); err != nil {
		return models.FloodFeatureCollection{}, fmt.Errorf("error decoding geojson for %s: %w", id, err)
	}
	if fc.Type == "" {
		fc.Type = "FeatureCollection"
	}
	if fc.Features == nil {
		fc.Features = []models.FloodFeature{}
	}
	return fc, nil
}
