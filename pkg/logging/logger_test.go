package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		enable   slog.Level
		disabled slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"warn level", "warn", slog.LevelWarn, slog.LevelInfo},
		{"error level", "ERROR", slog.LevelError, slog.LevelWarn},
		{"default info", "", slog.LevelInfo, slog.LevelDebug},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
			if logger.Enabled(ctx, tt.disabled) {
				t.Fatalf("expected level %s to be disabled", tt.disabled)
			}
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	logger.Info("test message", "key", "value")

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level")
	}

	if logger == Default() {
		t.Error("Default() returned the same instance twice")
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOptions(Options{Level: "info", Output: &buf})

	logger.With("component", "leads").Info("lead capture received", "email", "a@example.com")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "lead capture received" {
		t.Fatalf("unexpected msg %v", record["msg"])
	}
	if record["component"] != "leads" || record["email"] != "a@example.com" {
		t.Fatalf("missing attributes in %v", record)
	}
}

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOptions(Options{Format: "text", Output: &buf})

	logger.Warn("reset failed", "error", "boom")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "error=boom") {
		t.Fatalf("unexpected text output %q", out)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("discard logger should not enable info")
	}
}
