package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"quizboard/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "debug",
		"WARN":    "warn",
		"error":   "error",
		"":        "info",
		"verbose": "info",
	}
	for raw, want := range cases {
		if got := ParseLevel(raw).String(); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizboard.log")
	log := New(config.LogConfig{Level: "info", File: path})
	log.Debug("hidden")
	log.Info("submission finalized", zap.Int64("participantId", 7))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"submission finalized"`) || !strings.Contains(out, `"participantId":7`) {
		t.Fatalf("expected structured entry, got %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry must be filtered at info level")
	}
}
