package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	BlobDir    string `toml:"blob_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Daemon contains loop timing and startup behavior.
type Daemon struct {
	WarmupSeconds      int    `toml:"warmup_seconds"`
	BackoffSeconds     int    `toml:"backoff_seconds"`
	DispatchYieldMS    int    `toml:"dispatch_yield_ms"`
	MaxConcurrentTasks int    `toml:"max_concurrent_tasks"`
	PersistQueue       bool   `toml:"persist_queue"`
	StatusURLBase      string `toml:"status_url_base"`
}

// LLM contains connection settings for the chat-completions endpoint.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	ScoringModel   string `toml:"scoring_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Extraction configures the text-extraction/translation bridge.
type Extraction struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DocDB configures the external document database bridge.
type DocDB struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Embeddings configures the embedding-generation bridge.
type Embeddings struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Ingest contains ingestion behavior toggles.
type Ingest struct {
	DisableIfHashKnown bool `toml:"disable_if_hash_known"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Daemon     Daemon     `toml:"daemon"`
	LLM        LLM        `toml:"llm"`
	Extraction Extraction `toml:"extraction"`
	DocDB      DocDB      `toml:"docdb"`
	Embeddings Embeddings `toml:"embeddings"`
	Ingest     Ingest     `toml:"ingest"`
	Logging    Logging    `toml:"logging"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "scrivener", "config.toml"), nil
}

// Load reads the config at path (or the default location when path is empty),
// overlays it on the defaults, and validates the result. A missing file is
// not an error; defaults apply.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
	}
	resolved = expandHome(resolved)

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// fall through with defaults
	case err != nil:
		return nil, resolved, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the annotated sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	path = expandHome(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the runtime directories the daemon needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.BlobDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the SQLite file backing the task queue.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// LockFilePath returns the daemon single-instance lock file.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "scrivenerd.lock")
}

func (c *Config) normalize() {
	c.Paths.DataDir = expandHome(strings.TrimSpace(c.Paths.DataDir))
	c.Paths.StagingDir = expandHome(strings.TrimSpace(c.Paths.StagingDir))
	c.Paths.BlobDir = expandHome(strings.TrimSpace(c.Paths.BlobDir))
	c.Paths.LogDir = expandHome(strings.TrimSpace(c.Paths.LogDir))
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Daemon.StatusURLBase = strings.TrimRight(strings.TrimSpace(c.Daemon.StatusURLBase), "/")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.Extraction.BaseURL = strings.TrimRight(strings.TrimSpace(c.Extraction.BaseURL), "/")
	c.DocDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.DocDB.BaseURL), "/")
	c.Embeddings.BaseURL = strings.TrimRight(strings.TrimSpace(c.Embeddings.BaseURL), "/")
}

// Validate reports configuration errors that would break the daemon at
// runtime.
func (c *Config) Validate() error {
	var problems []string
	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		problems = append(problems, "paths.staging_dir must be set")
	}
	if c.Paths.BlobDir == "" {
		problems = append(problems, "paths.blob_dir must be set")
	}
	if c.Daemon.MaxConcurrentTasks <= 0 {
		problems = append(problems, "daemon.max_concurrent_tasks must be positive")
	}
	if c.Daemon.BackoffSeconds <= 0 {
		problems = append(problems, "daemon.backoff_seconds must be positive")
	}
	if c.DocDB.BaseURL == "" {
		problems = append(problems, "docdb.base_url must be set")
	}
	if c.Extraction.BaseURL == "" {
		problems = append(problems, "extraction.base_url must be set")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
