// Package docex bridges to the external text-extraction service. It turns
// source files (pdf, office documents, html, audio) into markdown text and
// translates non-English text. Markdown and plain-text files are read
// directly without a round trip.
package docex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrivener/internal/document"
	"scrivener/internal/services"
)

const defaultTimeout = 10 * time.Minute

// Config captures the settings for the extraction bridge.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Client talks to the extraction service.
type Client struct {
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

// NewClient constructs an extraction client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ExtractFromFile returns the text content of the file at path. Markup text
// files are read locally; audio goes to the transcription endpoint; everything
// else goes to the document extraction endpoint. An empty result with a nil
// error means the service genuinely produced no text, which callers treat as
// a document-level failure rather than a bridge failure.
func (c *Client) ExtractFromFile(ctx context.Context, path string, ext document.Extension) (string, error) {
	switch ext {
	case document.ExtMD, document.ExtTxt:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", services.Wrap(services.ErrTransient, "docex", "extract", "read local file", err)
		}
		return string(data), nil
	case document.ExtMP3:
		return c.uploadForText(ctx, "/v1/transcribe", path)
	default:
		return c.uploadForText(ctx, "/v1/extract", path)
	}
}

// Translate converts text in sourceLang to English.
func (c *Client) Translate(ctx context.Context, text, sourceLang string) (string, error) {
	payload := struct {
		Text       string `json:"text"`
		SourceLang string `json:"source_lang"`
		TargetLang string `json:"target_lang"`
	}{Text: text, SourceLang: sourceLang, TargetLang: "en"}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrInvariant, "docex", "translate", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/translate", bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "docex", "translate", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "translate")
	if err != nil {
		return "", err
	}
	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternal, "docex", "translate", "decode response", err)
	}
	return decoded.Text, nil
}

func (c *Client) uploadForText(ctx context.Context, endpoint, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "docex", "extract", "open file", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "docex", "extract", "build form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", services.Wrap(services.ErrTransient, "docex", "extract", "copy file into form", err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrTransient, "docex", "extract", "finish form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "docex", "extract", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(req, "extract")
	if err != nil {
		return "", err
	}
	var decoded struct {
		Markdown string `json:"markdown"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternal, "docex", "extract", "decode response", err)
	}
	if decoded.Markdown != "" {
		return decoded.Markdown, nil
	}
	return decoded.Text, nil
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "docex", operation, "http error", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "docex", operation, "read response", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return nil, services.Wrap(services.ErrExternal, "docex", operation, detail, nil)
	}
	return body, nil
}
