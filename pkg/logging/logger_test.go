package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"upper case", "ERROR", slog.LevelError},
		{"default info", "", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
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
		t.Error("Default() should not enable debug level (info is higher)")
	}
	if logger.Logger == nil {
		t.Fatal("Default() returned Logger with nil slog.Logger")
	}

	logger2 := Default()
	if logger == logger2 {
		t.Error("Default() returned the same instance twice - expected new instances")
	}
}

func TestWithComponentTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("debug", &buf).WithComponent("availability")

	logger.Debug("slot reserved", "doctor_id", "1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["component"] != "availability" {
		t.Fatalf("expected component attribute, got %v", record["component"])
	}
	if record["doctor_id"] != "1" {
		t.Fatalf("expected doctor_id attribute, got %v", record["doctor_id"])
	}
}

func TestWithComponentOnNilLogger(t *testing.T) {
	var logger *Logger
	if got := logger.WithComponent("sweeper"); got == nil || got.Logger == nil {
		t.Fatal("expected a usable logger from a nil receiver")
	}
}
