package shared

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  log.Level
	}{
		{name: "debug", input: "debug", want: log.DebugLevel},
		{name: "mixed case with spaces", input: "  WARN ", want: log.WarnLevel},
		{name: "error", input: "error", want: log.ErrorLevel},
		{name: "unknown falls back to info", input: "chatty", want: log.InfoLevel},
		{name: "empty falls back to info", input: "", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggers(t *testing.T) {
	t.Run("WithLogger Adds Fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "store")
		logger.Info("loaded")

		if !strings.Contains(buf.String(), "component=store") {
			t.Errorf("expected child logger fields in output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger Creates Directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "tunebox.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger() error = %v", err)
		}
		logger.Info("hello")
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string of length 36, got %d", len(a))
	}
}
