package testsupport

import (
	"path/filepath"
	"testing"

	"scrivener/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.BlobDir = filepath.Join(base, "blobs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Daemon.WarmupSeconds = 0
	cfg.Daemon.BackoffSeconds = 1
	cfg.LLM.APIKey = "test"
	cfg.Extraction.BaseURL = "http://127.0.0.1:0"
	cfg.DocDB.BaseURL = "http://127.0.0.1:0"
	cfg.Embeddings.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithExtractionURL points the extraction bridge at a test server.
func WithExtractionURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Extraction.BaseURL = url
	}
}

// WithDocDBURL points the document database bridge at a test server.
func WithDocDBURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.DocDB.BaseURL = url
	}
}

// WithMaxConcurrent caps the daemon's concurrent task limit.
func WithMaxConcurrent(n int) ConfigOption {
	return func(c *config.Config) {
		c.Daemon.MaxConcurrentTasks = n
	}
}
