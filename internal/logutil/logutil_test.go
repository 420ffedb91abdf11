package logutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range cases {
		got, err := parseSlogLevel(in)
		if err != nil || got != want {
			t.Fatalf("parseSlogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseSlogLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewLoggerJSONRedactsTokens(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLoggerFromConfig(loggerConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLoggerFromConfig() error = %v", err)
	}
	logger.Info("slack_start", "bot_token", "xoxb-secret", "channel_id", "C1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if line["bot_token"] != "[redacted]" {
		t.Fatalf("bot_token = %v", line["bot_token"])
	}
	if line["channel_id"] != "C1" {
		t.Fatalf("channel_id = %v", line["channel_id"])
	}
}

func TestNewLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLoggerFromConfig(loggerConfig{Level: "warn", RedactKeys: []string{"secret"}}, &buf)
	if err != nil {
		t.Fatalf("newLoggerFromConfig() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "secret", "x", "token", "kept")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, "secret=[redacted]") || !strings.Contains(out, "token=kept") {
		t.Fatalf("custom redact keys not applied: %q", out)
	}
}

func TestNewLoggerUnknownFormat(t *testing.T) {
	if _, err := newLoggerFromConfig(loggerConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
