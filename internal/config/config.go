package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Feed     FeedConfig
	Backend  BackendConfig
	Polling  PollingConfig
	Firebase FirebaseConfig
	Kafka    KafkaConfig
	Worker   WorkerConfig
	DB       DatabaseConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RateLimit      int
}

type FeedConfig struct {
	Enabled    bool
	URL        string
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	BufferSize int
}

type BackendConfig struct {
	SocialURL    string
	SatelliteURL string
	Timeout      time.Duration
	Retries      int
}

type PollingConfig struct {
	ReportsInterval  time.Duration
	ReportsStaleTime time.Duration
	StatsInterval    time.Duration
	StatsStaleTime   time.Duration
	SummaryInterval  time.Duration
	SummaryStaleTime time.Duration
	EventsInterval   time.Duration
	EventsStaleTime  time.Duration
	GeoJSONTTL       time.Duration
}

type FirebaseConfig struct {
	Enabled     bool
	ProjectID   string
	Credentials string // base64 encoded service account JSON
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	EntriesTopic string
	ReportsTopic string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
			RateLimit:      getEnvInt("RATE_LIMIT_RPS", 20),
		},
		Feed: FeedConfig{
			Enabled:    getEnvBool("FEED_ENABLED", true),
			URL:        getEnv("FEED_WS_URL", "ws://localhost:8000/ws/feed"),
			BaseDelay:  getEnvDuration("FEED_BASE_DELAY", 3*time.Second),
			MaxDelay:   getEnvDuration("FEED_MAX_DELAY", 30*time.Second),
			BufferSize: getEnvInt("FEED_BUFFER_SIZE", 50),
		},
		Backend: BackendConfig{
			SocialURL:    getEnv("SOCIAL_API_URL", "http://localhost:8000"),
			SatelliteURL: getEnv("SATELLITE_API_URL", "http://localhost:8001"),
			Timeout:      getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
			Retries:      getEnvInt("BACKEND_RETRIES", 2),
		},
		Polling: PollingConfig{
			ReportsInterval:  getEnvDuration("REPORTS_POLL_INTERVAL", 30*time.Second),
			ReportsStaleTime: getEnvDuration("REPORTS_STALE_TIME", 15*time.Second),
			StatsInterval:    getEnvDuration("STATS_POLL_INTERVAL", 30*time.Second),
			StatsStaleTime:   getEnvDuration("STATS_STALE_TIME", 15*time.Second),
			SummaryInterval:  getEnvDuration("SUMMARY_POLL_INTERVAL", 30*time.Second),
			SummaryStaleTime: getEnvDuration("SUMMARY_STALE_TIME", 15*time.Second),
			EventsInterval:   getEnvDuration("EVENTS_POLL_INTERVAL", 60*time.Second),
			EventsStaleTime:  getEnvDuration("EVENTS_STALE_TIME", 30*time.Second),
			GeoJSONTTL:       getEnvDuration("GEOJSON_CACHE_TTL", 60*time.Second),
		},
		Firebase: FirebaseConfig{
			ProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
			Credentials: getEnv("FIREBASE_CREDENTIALS", ""),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvBool("KAFKA_ENABLED", false),
			Brokers:      getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			EntriesTopic: getEnv("KAFKA_FEED_TOPIC", "disaster-feed-entries"),
			ReportsTopic: getEnv("KAFKA_REPORTS_TOPIC", "disaster-report-snapshots"),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/disaster-monitor.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
	cfg.Firebase.Enabled = getEnvBool("FIREBASE_ENABLED", cfg.Firebase.ProjectID != "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("rate limit must be at least 1 request per second")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Feed.Enabled {
		u, err := url.Parse(c.Feed.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("invalid feed url: %q", c.Feed.URL)
		}
	}
	if c.Feed.BaseDelay <= 0 || c.Feed.MaxDelay < c.Feed.BaseDelay {
		return fmt.Errorf("feed delays must satisfy 0 < base (%s) <= max (%s)", c.Feed.BaseDelay, c.Feed.MaxDelay)
	}
	if c.Feed.BufferSize < 1 {
		return fmt.Errorf("feed buffer size must be positive")
	}

	for name, raw := range map[string]string{"social": c.Backend.SocialURL, "satellite": c.Backend.SatelliteURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid %s api url: %q", name, raw)
		}
	}
	if c.Backend.Retries < 0 {
		return fmt.Errorf("backend retries cannot be negative")
	}

	for name, d := range map[string]time.Duration{
		"reports": c.Polling.ReportsInterval,
		"stats":   c.Polling.StatsInterval,
		"summary": c.Polling.SummaryInterval,
		"events":  c.Polling.EventsInterval,
	} {
		if d < time.Second {
			return fmt.Errorf("%s poll interval must be at least 1 second", name)
		}
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled without brokers")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
