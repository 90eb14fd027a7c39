// Package backend is the REST client for the social media API and the
// satellite flood detection API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
	"github.com/mr1hm/go-disaster-monitor/internal/observability"
)

const (
	DefaultSocialURL    = "http://localhost:8000"
	DefaultSatelliteURL = "http://localhost:8001"
	DefaultRetries      = 2
)

// ErrStatus matches any *StatusError.
var ErrStatus = errors.New("unexpected status")

type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

type Config struct {
	SocialURL    string
	SatelliteURL string
	Timeout      time.Duration
	// Retries is the number of extra attempts after a failed request.
	Retries   int
	RetryWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		SocialURL:    DefaultSocialURL,
		SatelliteURL: DefaultSatelliteURL,
		Timeout:      10 * time.Second,
		Retries:      DefaultRetries,
		RetryWait:    time.Second,
	}
}

type Client struct {
	socialURL    string
	satelliteURL string
	httpClient   *http.Client
	retries      int
	retryWait    time.Duration
	normalizer   *normalize.Normalizer
	metrics      *observability.Metrics
}

func NewClient(cfg Config, n *normalize.Normalizer, metrics *observability.Metrics) *Client {
	if n == nil {
		n = normalize.New(nil)
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Client{
		socialURL:    cfg.SocialURL,
		satelliteURL: cfg.SatelliteURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retries:    cfg.Retries,
		retryWait:  cfg.RetryWait,
		normalizer: n,
		metrics:    metrics,
	}
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.retryWait,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         30 * time.Second,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries)), ctx)
}

// fetchJSON GETs url and returns the payload, unwrapped from a
// {"ok","data","meta"} envelope when the body carries a data key.
func (c *Client) fetchJSON(ctx context.Context, endpoint, url string) (json.RawMessage, error) {
	start := time.Now()
	var payload json.RawMessage

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("error fetching %s: %w", url, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", url, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
		}

		payload, err = unwrap(body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error decoding %s: %w", url, err))
		}
		return nil
	}

	err := backoff.Retry(op, c.retryPolicy(ctx))
	c.observe(endpoint, start, err)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func unwrap(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, errors.New("invalid JSON body")
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		if data, ok := envelope["data"]; ok {
			return data, nil
		}
	}
	return trimmed, nil
}

func (c *Client) observe(endpoint string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.BackendRequests.WithLabelValues(endpoint, outcome).Inc()
	c.metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// decodeList decodes a JSON array element by element, skipping elements that
// do not decode. A payload that is not an array yields an empty list.
func decodeList[T any](endpoint string, payload json.RawMessage) []T {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		slog.Warn("expected a list", "endpoint", endpoint, "error", err)
		return []T{}
	}

	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			slog.Debug("skipping undecodable element", "endpoint", endpoint, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}
