package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "prod", "warn")
	l.Info().Msg("hidden")
	l.Warn().Str("app", "Zoom").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"app":"Zoom"`) || !strings.HasPrefix(out, "{") {
		t.Fatalf("expected JSON line with app field, got %s", out)
	}
}

func TestNewLogger_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "dev", "loud")
	l.Debug().Msg("debug")
	l.Info().Msg("info")
	out := buf.String()
	if strings.Contains(out, "debug") || !strings.Contains(out, "info") {
		t.Fatalf("unexpected output: %s", out)
	}
}
