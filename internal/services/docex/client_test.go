package docex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"scrivener/internal/document"
	"scrivener/internal/services"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestExtractReadsMarkupLocally(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unreachable.invalid"})
	path := writeTemp(t, "notes.md", "# heading\ntext")

	got, err := client.ExtractFromFile(context.Background(), path, document.ExtMD)
	if err != nil {
		t.Fatalf("ExtractFromFile: %v", err)
	}
	if got != "# heading\ntext" {
		t.Errorf("text = %q", got)
	}
}

func TestExtractUploadsDocument(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("form file: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"markdown": "extracted text"})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	path := writeTemp(t, "filing.pdf", "%PDF-1.4 fake")

	got, err := client.ExtractFromFile(context.Background(), path, document.ExtPDF)
	if err != nil {
		t.Fatalf("ExtractFromFile: %v", err)
	}
	if got != "extracted text" {
		t.Errorf("text = %q", got)
	}
	if gotPath != "/v1/extract" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestExtractRoutesAudioToTranscribe(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"text": "spoken words"})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	path := writeTemp(t, "hearing.mp3", "ID3 fake audio")

	got, err := client.ExtractFromFile(context.Background(), path, document.ExtMP3)
	if err != nil {
		t.Fatalf("ExtractFromFile: %v", err)
	}
	if got != "spoken words" {
		t.Errorf("text = %q", got)
	}
	if gotPath != "/v1/transcribe" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestExtractEmptyResultIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"markdown": ""})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	path := writeTemp(t, "blank.pdf", "%PDF-1.4")

	got, err := client.ExtractFromFile(context.Background(), path, document.ExtPDF)
	if err != nil {
		t.Fatalf("ExtractFromFile: %v", err)
	}
	if got != "" {
		t.Errorf("text = %q, want empty", got)
	}
}

func TestExtractServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "worker crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	path := writeTemp(t, "filing.pdf", "%PDF-1.4")

	_, err := client.ExtractFromFile(context.Background(), path, document.ExtPDF)
	if !errors.Is(err, services.ErrExternal) {
		t.Errorf("error = %v, want external", err)
	}
}

func TestTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text       string `json:"text"`
			SourceLang string `json:"source_lang"`
			TargetLang string `json:"target_lang"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SourceLang != "fr" || req.TargetLang != "en" {
			t.Errorf("langs = %s -> %s", req.SourceLang, req.TargetLang)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "hello"})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	got, err := client.Translate(context.Background(), "bonjour", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hello" {
		t.Errorf("text = %q", got)
	}
}
