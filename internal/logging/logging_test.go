package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("feed disconnected", "attempts", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line below warn filtered, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if rec["msg"] != "feed disconnected" || rec["attempts"] != float64(2) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "text").Info("connected", "url", "ws://localhost:8000/ws/feed")

	if !strings.Contains(buf.String(), "msg=connected") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}
