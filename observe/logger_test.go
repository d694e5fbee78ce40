package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}
	return logEntry
}

// TestLogger_IncludesOpFromContext verifies the operation stored in the
// context is logged.
func TestLogger_IncludesOpFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	ctx := WithOp(context.Background(), "embed_one")
	logger.Info(ctx, "embed_one: loaded: /tmp/cache/abc.json",
		Field{Key: "path", Value: "/tmp/cache/abc.json"},
	)

	logEntry := decodeEntry(t, &buf)

	if v, ok := logEntry["op"].(string); !ok || v != "embed_one" {
		t.Errorf("expected op='embed_one', got %v", logEntry["op"])
	}
	if v, ok := logEntry["msg"].(string); !ok || v != "embed_one: loaded: /tmp/cache/abc.json" {
		t.Errorf("expected msg to be kept verbatim, got %v", logEntry["msg"])
	}
	if v, ok := logEntry["path"].(string); !ok || v != "/tmp/cache/abc.json" {
		t.Errorf("expected path field, got %v", logEntry["path"])
	}
}

// TestLogger_NoOpWithoutContextValue verifies no op field is written when
// the context carries none.
func TestLogger_NoOpWithoutContextValue(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "plain")

	logEntry := decodeEntry(t, &buf)
	if _, ok := logEntry["op"]; ok {
		t.Errorf("expected no op field, got %v", logEntry["op"])
	}
}

// TestLogger_WithAddsFields verifies With binds fields to every entry.
func TestLogger_WithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(
		F("component", "disk_store"),
		F("dir", "/var/cache/embedcache"),
	)

	logger.Info(context.Background(), "test message")

	logEntry := decodeEntry(t, &buf)
	if v, ok := logEntry["component"].(string); !ok || v != "disk_store" {
		t.Errorf("expected component='disk_store', got %v", logEntry["component"])
	}
	if v, ok := logEntry["dir"].(string); !ok || v != "/var/cache/embedcache" {
		t.Errorf("expected dir='/var/cache/embedcache', got %v", logEntry["dir"])
	}
}

// TestLogger_WithDoesNotMutateParent verifies child fields stay on the child.
func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.With(F("component", "child"))

	parent.Info(context.Background(), "parent message")

	logEntry := decodeEntry(t, &buf)
	if _, ok := logEntry["component"]; ok {
		t.Errorf("parent logger picked up child field: %v", logEntry)
	}
}

// TestLogger_IncludesDuration verifies duration_ms field is present.
func TestLogger_IncludesDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "test message",
		Field{Key: "duration_ms", Value: 50.5},
	)

	logEntry := decodeEntry(t, &buf)
	if v, ok := logEntry["duration_ms"].(float64); !ok || v != 50.5 {
		t.Errorf("expected duration_ms=50.5, got %v", logEntry["duration_ms"])
	}
}

// TestLogger_ErrorLevel verifies error log level and error field.
func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "remote call failed",
		Field{Key: "error", Value: "connection timeout"},
	)

	logEntry := decodeEntry(t, &buf)

	if v, ok := logEntry["level"].(string); !ok || v != "error" {
		t.Errorf("expected level='error', got %v", logEntry["level"])
	}
	if v, ok := logEntry["error"].(string); !ok || v != "connection timeout" {
		t.Errorf("expected error='connection timeout', got %v", logEntry["error"])
	}
}

// TestLogger_TextsRedactedByDefault verifies raw texts and keys are not logged.
func TestLogger_TextsRedactedByDefault(t *testing.T) {
	for _, key := range []string{"text", "texts", "api_key", "input"} {
		t.Run(key, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter("info", &buf)

			logger.Info(context.Background(), "embedding requested",
				Field{Key: key, Value: "sensitive_value_123"},
			)

			output := buf.String()
			if strings.Contains(output, "sensitive_value_123") {
				t.Errorf("%s should be redacted, but found in output", key)
			}
			if !strings.Contains(output, "[REDACTED]") {
				t.Errorf("expected redaction marker in output: %s", output)
			}
		})
	}
}

// TestLogger_WithRedacts verifies bound fields are redacted too.
func TestLogger_WithRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("api_key", "sk-test"))

	logger.Info(context.Background(), "configured")

	if strings.Contains(buf.String(), "sk-test") {
		t.Error("api_key bound with With should be redacted")
	}
}

// TestLogger_LevelFiltering verifies log level filtering.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Info(context.Background(), "info message")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered when level is warn")
	}

	logger.Warn(context.Background(), "warn message")

	output = buf.String()
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should pass through when level is warn")
	}
}

// TestLogger_DebugLevel verifies debug level filtering.
func TestLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Debug(context.Background(), "debug message")

	logEntry := decodeEntry(t, &buf)
	if v, ok := logEntry["level"].(string); !ok || v != "debug" {
		t.Errorf("expected level='debug', got %v", logEntry["level"])
	}
}

// TestLogger_OneLinePerEntry verifies entries are newline-delimited JSON.
func TestLogger_OneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	ctx := WithOp(context.Background(), "fill")
	logger.Info(ctx, "fill: loaded: a.json")
	logger.Info(ctx, "fill: saved: a.json")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Errorf("line is not JSON: %q", line)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
