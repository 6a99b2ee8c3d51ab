// Package embed triggers embedding generation for completed documents. The
// embedding service owns vectorization; the daemon only tells it that a
// document's text is ready, identified by hash and record id.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"scrivener/internal/document"
	"scrivener/internal/services"
)

const defaultTimeout = 60 * time.Second

// Config captures the settings for the embedding bridge.
type Config struct {
	Enabled        bool
	BaseURL        string
	TimeoutSeconds int
}

// Client talks to the embedding service. A disabled client turns Trigger
// into a no-op so the pipeline does not need its own conditional.
type Client struct {
	enabled    bool
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an embedding client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		enabled:    cfg.Enabled,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Enabled reports whether triggers actually reach the service.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Trigger asks the embedding service to vectorize the record's text.
func (c *Client) Trigger(ctx context.Context, rec *document.Record) error {
	if !c.enabled {
		return nil
	}
	if rec.Hash == "" {
		return services.Wrap(services.ErrInvariant, "embed", "trigger", "record has no hash", nil)
	}
	payload := struct {
		ID       uuid.UUID         `json:"id"`
		Hash     string            `json:"hash"`
		Metadata map[string]string `json:"metadata,omitempty"`
	}{ID: rec.ID, Hash: rec.Hash, Metadata: rec.Metadata}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrInvariant, "embed", "trigger", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ingest", bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrTransient, "embed", "trigger", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "embed", "trigger", "http error", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return services.Wrap(services.ErrExternal, "embed", "trigger", detail, nil)
	}
	return nil
}
