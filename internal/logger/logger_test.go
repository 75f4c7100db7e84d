package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestNewFromConfig_JSONLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := NewFromConfig(buf, "warn", FormatJSON)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	log.Info().Msg("dropped")
	log.Warn().Int("rows", 3).Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line above warn level, got %d: %q", len(lines), buf.String())
	}

	var event map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("Expected JSON output: %v", err)
	}
	if event["message"] != "kept" || event["rows"] != float64(3) {
		t.Errorf("Unexpected event: %v", event)
	}
}

func TestNewFromConfig_Console(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := NewFromConfig(buf, "info", FormatConsole)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	log.Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("Expected console output to contain 'hello', got: %s", buf.String())
	}
}

func TestNewFromConfig_Errors(t *testing.T) {
	if _, err := NewFromConfig(&bytes.Buffer{}, "loud", FormatJSON); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := NewFromConfig(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultIsDisabled(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() != zerolog.Disabled {
		t.Errorf("Expected disabled logger without context value, got %v", log.GetLevel())
	}
}

func TestWithComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithComponent(NewWithWriter(buf), "pipeline")

	log.Info().Msg("stage done")

	if !strings.Contains(buf.String(), `"component":"pipeline"`) {
		t.Errorf("Expected component field, got: %s", buf.String())
	}
}
