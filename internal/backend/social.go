package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
)

// MapReports fetches the social map pins and normalizes them. Pins that
// cannot be placed on the map are dropped.
func (c *Client) MapReports(ctx context.Context) ([]models.Report, error) {
	payload, err := c.fetchJSON(ctx, "map_reports", c.socialURL+"/api/map/reports")
	if err != nil {
		return nil, err
	}
	raws := decodeList[normalize.SocialReport]("map_reports", payload)
	return c.normalizer.SocialReports(raws), nil
}

// Stats fetches the dashboard counters. Older backends name the fields
// differently, so each counter falls back through its known aliases.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	payload, err := c.fetchJSON(ctx, "stats", c.socialURL+"/api/stats")
	if err != nil {
		return models.Stats{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.Stats{}, fmt.Errorf("error decoding stats: %w", err)
	}

	return models.Stats{
		TotalReports:          firstInt(raw, "total_reports", "verified_reports", "total_posts"),
		CriticalAlerts:        firstInt(raw, "critical_alerts", "critical_reports"),
		ActiveSatelliteEvents: firstInt(raw, "active_satellite_events"),
		SocialMediaPosts24h:   firstInt(raw, "social_media_posts_24h", "disaster_posts"),
	}, nil
}

func firstInt(raw map[string]json.RawMessage, keys ...string) int {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var f normalize.Float
		_ = json.Unmarshal(v, &f)
		if f.Valid {
			return int(f.Value)
		}
	}
	return 0
}

// Summary fetches the post classification summary. Failures yield an empty
// summary.
func (c *Client) Summary(ctx context.Context) models.Summary {
	payload, err := c.fetchJSON(ctx, "summary", c.socialURL+"/api/summary")
	if err != nil {
		slog.Warn("error fetching summary", "error", err)
		return models.EmptySummary()
	}

	summary := models.EmptySummary()
	if err := json.Unmarshal(payload, &summary); err != nil {
		slog.Warn("error decoding summary", "error", err)
		return models.EmptySummary()
	}
	if summary.ByType == nil {
		summary.ByType = map[string]int{}
	}
	return summary
}

type FeedParams struct {
	Platform      string
	DisasterType  string
	Urgency       string
	DisastersOnly bool
	Search        string
	Limit         int
	Offset        int
}

func (p FeedParams) Values() url.Values {
	v := url.Values{}
	if p.Platform != "" {
		v.Set("platform", p.Platform)
	}
	if p.DisasterType != "" {
		v.Set("disaster_type", p.DisasterType)
	}
	if p.Urgency != "" {
		v.Set("urgency", p.Urgency)
	}
	if p.DisastersOnly {
		v.Set("disasters_only", "true")
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	return v
}

// Feed lists social posts matching params. Failures yield an empty list.
func (c *Client) Feed(ctx context.Context, params FeedParams) []models.FeedPost {
	u := c.socialURL + "/api/feed"
	if q := params.Values().Encode(); q != "" {
		u += "?" + q
	}
	payload, err := c.fetchJSON(ctx, "feed", u)
	if err != nil {
		slog.Warn("error fetching feed", "error", err)
		return []models.FeedPost{}
	}
	return decodeList[models.FeedPost]("feed", payload)
}

func (c *Client) FeedPost(ctx context.Context, id string) (models.FeedPost, bool) {
	payload, err := c.fetchJSON(ctx, "feed_post", c.socialURL+"/api/feed/"+url.PathEscape(id))
	if err != nil {
		slog.Warn("error fetching feed post", "id", id, "error", err)
		return models.FeedPost{}, false
	}
	var post models.FeedPost
	if err := json.Unmarshal(payload, &post); err != nil || post.ID == "" {
		return models.FeedPost{}, false
	}
	return post, true
}

// Platforms returns the post count per platform. Failures yield an empty map.
func (c *Client) Platforms(ctx context.Context) map[string]int {
	out := map[string]int{}
	payload, err := c.fetchJSON(ctx, "feed_platforms", c.socialURL+"/api/feed/platforms")
	if err != nil {
		slog.Warn("error fetching platforms", "error", err)
		return out
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		slog.Warn("error decoding platforms", "error", err)
		return map[string]int{}
	}
	return out
}

const DefaultTrendingTopN = 15

// Trending returns the topN hashtags. Failures yield an empty list.
func (c *Client) Trending(ctx context.Context, topN int) []models.TrendingHashtag {
	if topN <= 0 {
		topN = DefaultTrendingTopN
	}
	u := c.socialURL + "/api/feed/trending?top_n=" + strconv.Itoa(topN)
	payload, err := c.fetchJSON(ctx, "feed_trending", u)
	if err != nil {
		slog.Warn("error fetching trending hashtags", "error", err)
		return []models.TrendingHashtag{}
	}
	return decodeList[models.TrendingHashtag]("feed_trending", payload)
}
