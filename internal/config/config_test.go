package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"scrivener/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.BaseURL = "http://localhost:9000"
	cfg.DocDB.BaseURL = "http://localhost:9001"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate once endpoints are set: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = ""
	cfg.Daemon.MaxConcurrentTasks = 0
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + dir + `/data"
staging_dir = "` + dir + `/staging"
blob_dir = "` + dir + `/blobs"
log_dir = "` + dir + `/logs"

[daemon]
max_concurrent_tasks = 4
persist_queue = true

[extraction]
base_url = "http://localhost:9000/"

[docdb]
base_url = "http://localhost:9001"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Daemon.MaxConcurrentTasks != 4 {
		t.Fatalf("expected overlay to apply, got %d", cfg.Daemon.MaxConcurrentTasks)
	}
	if !cfg.Daemon.PersistQueue {
		t.Fatal("expected persist_queue=true")
	}
	if cfg.Daemon.BackoffSeconds != 2 {
		t.Fatalf("expected default backoff to survive overlay, got %d", cfg.Daemon.BackoffSeconds)
	}
	if cfg.Extraction.BaseURL != "http://localhost:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Extraction.BaseURL)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected validation failure: defaults have no bridge endpoints")
	}
	_ = cfg
}

func TestQueueDBPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/tmp/scrivener-test"
	if got := cfg.QueueDBPath(); got != "/tmp/scrivener-test/queue.db" {
		t.Fatalf("unexpected queue db path %q", got)
	}
	if got := cfg.LockFilePath(); got != "/tmp/scrivener-test/scrivenerd.lock" {
		t.Fatalf("unexpected lock path %q", got)
	}
}
