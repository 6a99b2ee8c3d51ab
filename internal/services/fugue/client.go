// Package fugue bridges to the external document database. The daemon never
// stores document records itself; every durable write goes through this
// client. Inserts hand id assignment to the server, updates require a real
// id, and report variants target the report collection.
package fugue

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
	"scrivener/internal/task"
)

const defaultTimeout = 60 * time.Second

// Config captures the settings for the document database bridge.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Client talks to the document database service.
type Client struct {
	baseURL    string
	apiKey     string
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

// NewClient constructs a document database client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Insert creates a new record. The server assigns the id; the returned record
// must carry a fresh non-nil id that differs from whatever the caller sent.
func (c *Client) Insert(ctx context.Context, rec *document.Record) (*document.Record, error) {
	sentID := rec.ID
	updated, err := c.post(ctx, "/v1/files/insert", rec)
	if err != nil {
		return nil, err
	}
	if updated.ID == uuid.Nil {
		return nil, services.Wrap(services.ErrInvariant, "fugue", "insert", "server returned nil id", nil)
	}
	if sentID != uuid.Nil && updated.ID == sentID {
		return nil, services.Wrap(services.ErrInvariant, "fugue", "insert", "server echoed the client id instead of assigning one", nil)
	}
	return updated, nil
}

// Update rewrites an existing record in place.
func (c *Client) Update(ctx context.Context, rec *document.Record) (*document.Record, error) {
	if rec.ID == uuid.Nil {
		return nil, services.Wrap(services.ErrInvariant, "fugue", "update", "record has no id", nil)
	}
	return c.post(ctx, fmt.Sprintf("/v1/files/%s/update", rec.ID), rec)
}

// InsertReport creates a new record in the report collection.
func (c *Client) InsertReport(ctx context.Context, rec *document.Record) (*document.Record, error) {
	sentID := rec.ID
	updated, err := c.post(ctx, "/v1/reports/insert", rec)
	if err != nil {
		return nil, err
	}
	if updated.ID == uuid.Nil {
		return nil, services.Wrap(services.ErrInvariant, "fugue", "insert report", "server returned nil id", nil)
	}
	if sentID != uuid.Nil && updated.ID == sentID {
		return nil, services.Wrap(services.ErrInvariant, "fugue", "insert report", "server echoed the client id instead of assigning one", nil)
	}
	return updated, nil
}

// UpdateReport rewrites an existing report record.
func (c *Client) UpdateReport(ctx context.Context, rec *document.Record) (*document.Record, error) {
	if rec.ID == uuid.Nil {
		return nil, services.Wrap(services.ErrInvariant, "fugue", "update report", "record has no id", nil)
	}
	return c.post(ctx, fmt.Sprintf("/v1/reports/%s/update", rec.ID), rec)
}

// Upsert dispatches on the task's database interaction. InteractionNone is a
// no-op that returns the record unchanged. The deferred variants never reach
// the bridge; they exist only to be evolved into their immediate forms when a
// follow-up task is synthesized.
func (c *Client) Upsert(ctx context.Context, rec *document.Record, interaction task.Interaction) (*document.Record, error) {
	switch interaction {
	case task.InteractNone, task.InteractInsertLater, task.InteractInsertReportLater:
		return rec, nil
	case task.InteractInsert:
		return c.Insert(ctx, rec)
	case task.InteractUpdate:
		return c.Update(ctx, rec)
	case task.InteractInsertReport:
		return c.InsertReport(ctx, rec)
	case task.InteractUpdateReport:
		return c.UpdateReport(ctx, rec)
	default:
		return nil, services.Wrap(services.ErrInvariant, "fugue", "upsert", fmt.Sprintf("unknown interaction %q", interaction), nil)
	}
}

func (c *Client) post(ctx context.Context, endpoint string, rec *document.Record) (*document.Record, error) {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, services.Wrap(services.ErrInvariant, "fugue", "post", "encode record", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fugue", "post", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fugue", "post", "http error", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fugue", "post", "read response", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return nil, services.Wrap(services.ErrExternal, "fugue", "post", detail, nil)
	}

	var updated document.Record
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, services.Wrap(services.ErrExternal, "fugue", "post", "decode record", err)
	}
	return &updated, nil
}
