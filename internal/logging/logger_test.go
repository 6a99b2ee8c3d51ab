package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scrivener/internal/config"
	"scrivener/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger.Info("daemon starting", logging.String(logging.FieldTaskID, "abc"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "scrivener.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"task_id":"abc"`) {
		t.Fatalf("expected structured field in log output, got %s", data)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
}
