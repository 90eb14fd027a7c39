package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ws://localhost:8000/ws/feed", cfg.Feed.URL)
	assert.Equal(t, 3*time.Second, cfg.Feed.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Feed.MaxDelay)
	assert.Equal(t, 50, cfg.Feed.BufferSize)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.SocialURL)
	assert.Equal(t, "http://localhost:8001", cfg.Backend.SatelliteURL)
	assert.Equal(t, 2, cfg.Backend.Retries)
	assert.Equal(t, 30*time.Second, cfg.Polling.ReportsInterval)
	assert.Equal(t, 15*time.Second, cfg.Polling.ReportsStaleTime)
	assert.Equal(t, 60*time.Second, cfg.Polling.EventsInterval)
	assert.Equal(t, 30*time.Second, cfg.Polling.EventsStaleTime)
	assert.False(t, cfg.Firebase.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("FEED_WS_URL", "wss://feed.example.org/ws/feed")
	t.Setenv("FEED_BASE_DELAY", "1s")
	t.Setenv("FIREBASE_PROJECT_ID", "sentinel-test")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wss://feed.example.org/ws/feed", cfg.Feed.URL)
	assert.Equal(t, time.Second, cfg.Feed.BaseDelay)
	assert.True(t, cfg.Firebase.Enabled, "a project id enables live collections")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"port":         {"SERVER_PORT", "70000"},
		"log level":    {"LOG_LEVEL", "verbose"},
		"feed scheme":  {"FEED_WS_URL", "http://localhost:8000/ws/feed"},
		"delay order":  {"FEED_MAX_DELAY", "1s"},
		"social url":   {"SOCIAL_API_URL", "localhost:8000"},
		"poll too low": {"STATS_POLL_INTERVAL", "100ms"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
