package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestNewLogger(t *testing.T) {
	t.Run("with default output", func(t *testing.T) {
		logger := NewLogger(Config{Level: InfoLevel})
		if logger == nil {
			t.Fatal("NewLogger returned nil")
		}
	})

	t.Run("with custom output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(Config{Level: InfoLevel, Output: buf})
		if logger.writer != buf {
			t.Error("Logger should use provided output writer")
		}
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger := NewLogger(Config{Level: "loud"})
		if logger.config.Level != InfoLevel {
			t.Errorf("Level = %q, want %q", logger.config.Level, InfoLevel)
		}
	})
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		configLvl LogLevel
		logLvl    LogLevel
		shouldLog bool
	}{
		{"debug logs debug", DebugLevel, DebugLevel, true},
		{"debug logs error", DebugLevel, ErrorLevel, true},
		{"info skips debug", InfoLevel, DebugLevel, false},
		{"info logs warn", InfoLevel, WarnLevel, true},
		{"warn skips info", WarnLevel, InfoLevel, false},
		{"warn logs warn", WarnLevel, WarnLevel, true},
		{"error skips warn", ErrorLevel, WarnLevel, false},
		{"silent skips error", SilentLevel, ErrorLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewLogger(Config{Level: tt.configLvl, Output: buf})

			logger.log(tt.logLvl, "test message", nil)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.shouldLog {
				t.Errorf("shouldLog = %v, but hasOutput = %v", tt.shouldLog, hasOutput)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  InfoLevel,
		Format: JSONFormat,
		Output: buf,
		Now:    fixedClock,
	})

	logger.Info("test message", Fields{"count": 42, "name": "test"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v\nOutput: %s", err, buf.String())
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want 'info'", entry["level"])
	}
	if entry["timestamp"] != "2024-05-01T12:00:00Z" {
		t.Errorf("timestamp = %v, want fixed clock", entry["timestamp"])
	}
	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("fields should be a map")
	}
	if fields["count"] != float64(42) {
		t.Errorf("fields.count = %v, want 42", fields["count"])
	}
}

func TestHumanFormatSortsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Output: buf, Now: fixedClock})

	logger.Info("scan complete", Fields{"zeta": 1, "alpha": 2, "mid": 3})

	want := "2024-05-01T12:00:00Z [info] scan complete | alpha=2, mid=3, zeta=1\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHumanFormatNoFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Output: buf})

	logger.Info("no fields", nil)

	if strings.Contains(buf.String(), "|") {
		t.Errorf("Output without fields should not contain '|', got: %s", buf.String())
	}
}

func TestWithMergesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: DebugLevel, Output: buf, Now: fixedClock}).
		With(Fields{"kind": "functions"})

	logger.Debug("entry", Fields{"name": "self_obj"})

	out := buf.String()
	if !strings.Contains(out, "kind=functions") || !strings.Contains(out, "name=self_obj") {
		t.Errorf("expected both inherited and call fields, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"WARNING": WarnLevel,
		"error":   ErrorLevel,
		"quiet":   SilentLevel,
		"":        InfoLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("dropped", nil)
	if logger.shouldLog(ErrorLevel) {
		t.Error("Nop logger should not log errors")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("ignored", nil)
}
