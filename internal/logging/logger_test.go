package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitWriter_JSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := InitWriter(&buf, "info", "json")
	WithRequest(logger, "brief:v3:2025-01-15:technology", "technology").Info("generated", "items", 6)
	logger.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["cache_key"] != "brief:v3:2025-01-15:technology" || rec["items"] != float64(6) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestInitWriter_Text(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitWriter(&buf, "debug", "text")
	slog.Debug("visible")

	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("expected text record, got %q", buf.String())
	}
}
