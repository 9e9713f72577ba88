package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "text", &buf)

	logger.Info("placed", "task", 3)

	output := buf.String()
	if !strings.Contains(output, "placed") {
		t.Errorf("expected 'placed' in output, got: %s", output)
	}
	if !strings.Contains(output, "task=3") {
		t.Errorf("expected 'task=3' in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "JSON", &buf)

	logger.Info("placed", "cpu", 1)

	output := buf.String()
	if !strings.Contains(output, `"msg":"placed"`) {
		t.Errorf("expected JSON msg field in output, got: %s", output)
	}
	if !strings.Contains(output, `"cpu":1`) {
		t.Errorf("expected JSON cpu field in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("should not appear")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Errorf("INFO message should be filtered at WARN level, got: %s", output)
	}
	if !strings.Contains(output, "should appear") {
		t.Errorf("WARN message should appear at WARN level, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewLoggerWithWriter(slog.LevelInfo, "text", &buf), "migrator")

	logger.Info("moved", "task", 7)

	output := buf.String()
	if !strings.Contains(output, "component=migrator") {
		t.Errorf("expected component attribute in output, got: %s", output)
	}
	if !strings.Contains(output, "task=7") {
		t.Errorf("expected 'task=7' in output, got: %s", output)
	}
}

func TestComponent_NilLogger(t *testing.T) {
	if Component(nil, "analyzer") == nil {
		t.Error("expected a logger derived from slog.Default")
	}
}
