package ingestion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

const (
	DefaultGeoJSONTTL       = 60 * time.Second
	DefaultGeoJSONCacheSize = 64
	defaultLayer            = "change"
)

// ErrSuperseded is returned by Select when another selection was made while
// the response was in flight.
var ErrSuperseded = errors.New("selection superseded")

type GeoJSONFetcher interface {
	EventGeoJSON(ctx context.Context, id, layer string) (models.FloodFeatureCollection, error)
}

// GeoJSONSelector loads flood polygons for the selected satellite event. It
// fetches on demand only and keeps results for a short TTL.
type GeoJSONSelector struct {
	fetcher GeoJSONFetcher
	cache   *expirable.LRU[string, models.FloodFeatureCollection]
	group   singleflight.Group

	mu         sync.Mutex
	generation uint64
	selectedID string
	layer      string
	current    *models.FloodFeatureCollection
}

func NewGeoJSONSelector(fetcher GeoJSONFetcher, size int, ttl time.Duration) *GeoJSONSelector {
	if size <= 0 {
		size = DefaultGeoJSONCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultGeoJSONTTL
	}
	return &GeoJSONSelector{
		fetcher: fetcher,
		cache:   expirable.NewLRU[string, models.FloodFeatureCollection](size, nil, ttl),
	}
}

func cacheKey(id, layer string) string {
	return id + "|" + layer
}

// Fetch returns the polygons for one event layer, from cache when possible.
func (s *GeoJSONSelector) Fetch(ctx context.Context, id, layer string) (models.FloodFeatureCollection, error) {
	if layer == "" {
		layer = defaultLayer
	}
	key := cacheKey(id, layer)
	if fc, ok := s.cache.Get(key); ok {
		return fc, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		fc, err := s.fetcher.EventGeoJSON(ctx, id, layer)
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, fc)
		return fc, nil
	})
	if err != nil {
		return models.FloodFeatureCollection{}, err
	}
	return v.(models.FloodFeatureCollection), nil
}

// Select makes id the selected event and loads its polygons. An empty id
// clears the selection without fetching. If the selection changes before the
// response arrives the response is dropped and ErrSuperseded returned.
func (s *GeoJSONSelector) Select(ctx context.Context, id, layer string) (models.FloodFeatureCollection, error) {
	if layer == "" {
		layer = defaultLayer
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.selectedID = id
	s.layer = layer
	s.current = nil
	s.mu.Unlock()

	if id == "" {
		return models.FloodFeatureCollection{}, nil
	}

	fc, err := s.Fetch(ctx, id, layer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return models.FloodFeatureCollection{}, ErrSuperseded
	}
	if err != nil {
		return models.FloodFeatureCollection{}, err
	}
	s.current = &fc
	return fc, nil
}

// Current returns the selected event and its polygons once they are loaded.
func (s *GeoJSONSelector) Current() (id, layer string, fc models.FloodFeatureCollection, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return s.selectedID, s.layer, models.FloodFeatureCollection{}, false
	}
	return s.selectedID, s.layer, *s.current, true
}
