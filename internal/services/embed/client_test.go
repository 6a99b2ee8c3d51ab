package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"scrivener/internal/document"
	"scrivener/internal/services"
)

func TestTriggerPostsRecordIdentity(t *testing.T) {
	var got struct {
		ID       uuid.UUID         `json:"id"`
		Hash     string            `json:"hash"`
		Metadata map[string]string `json:"metadata"`
	}
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v1/ingest" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{Enabled: true, BaseURL: srv.URL})
	rec := &document.Record{
		ID:       uuid.New(),
		Hash:     "abc123",
		Metadata: map[string]string{"source": "test"},
	}
	if err := client.Trigger(context.Background(), rec); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if got.ID != rec.ID || got.Hash != rec.Hash {
		t.Errorf("posted identity = (%s, %s), want (%s, %s)", got.ID, got.Hash, rec.ID, rec.Hash)
	}
	if got.Metadata["source"] != "test" {
		t.Errorf("metadata not forwarded: %v", got.Metadata)
	}
}

func TestTriggerDisabledIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("disabled client must not call the service")
	}))
	defer srv.Close()

	client := NewClient(Config{Enabled: false, BaseURL: srv.URL})
	if client.Enabled() {
		t.Fatal("Enabled() = true for disabled config")
	}
	rec := &document.Record{ID: uuid.New(), Hash: "abc"}
	if err := client.Trigger(context.Background(), rec); err != nil {
		t.Fatalf("Trigger on disabled client: %v", err)
	}
}

func TestTriggerRequiresHash(t *testing.T) {
	client := NewClient(Config{Enabled: true, BaseURL: "http://localhost:1"})
	err := client.Trigger(context.Background(), &document.Record{ID: uuid.New()})
	if !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("err = %v, want ErrInvariant", err)
	}
}

func TestTriggerServerErrorIsExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backlog full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(Config{Enabled: true, BaseURL: srv.URL})
	err := client.Trigger(context.Background(), &document.Record{ID: uuid.New(), Hash: "abc"})
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("err = %v, want ErrExternal", err)
	}
}
