package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.pdf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestSaveIsContentAddressed(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	path := writeTemp(t, "document body")

	hash, existed, err := store.Save(path)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if existed {
		t.Error("first save reported existing blob")
	}
	sum := sha256.Sum256([]byte("document body"))
	if want := hex.EncodeToString(sum[:]); hash != want {
		t.Errorf("hash = %s, want %s", hash, want)
	}
	if !store.Exists(hash) {
		t.Error("blob missing after save")
	}

	data, err := os.ReadFile(store.Path(hash))
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != "document body" {
		t.Errorf("blob content = %q", data)
	}
}

func TestSaveDetectsDuplicate(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	first := writeTemp(t, "same bytes")
	second := writeTemp(t, "same bytes")

	hash1, _, err := store.Save(first)
	if err != nil {
		t.Fatalf("first Save: %v", err)
	}
	hash2, existed, err := store.Save(second)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if hash1 != hash2 {
		t.Errorf("hashes differ: %s vs %s", hash1, hash2)
	}
	if !existed {
		t.Error("duplicate save not detected")
	}
}

func TestExistsEmptyHash(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.Exists("") {
		t.Error("empty hash reported as existing")
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/filing.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("pdf bytes"))
	}))
	defer server.Close()

	dest := t.TempDir()
	path, err := Download(context.Background(), server.URL+"/docs/filing.pdf", dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "filing.pdf") {
		t.Errorf("downloaded name = %s, want filing.pdf prefix", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestDownloadSameBaseNameDoesNotCollide(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a/document.pdf":
			w.Write([]byte("first body"))
		case "/b/document.pdf":
			w.Write([]byte("second body"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dest := t.TempDir()
	first, err := Download(context.Background(), server.URL+"/a/document.pdf", dest)
	if err != nil {
		t.Fatalf("first Download: %v", err)
	}
	second, err := Download(context.Background(), server.URL+"/b/document.pdf", dest)
	if err != nil {
		t.Fatalf("second Download: %v", err)
	}
	if first == second {
		t.Fatalf("both downloads landed at %s", first)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if string(data) != "first body" {
		t.Errorf("first download content = %q, want %q", data, "first body")
	}
	data, err = os.ReadFile(second)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if string(data) != "second body" {
		t.Errorf("second download content = %q, want %q", data, "second body")
	}
}

func TestDownloadRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := Download(context.Background(), server.URL+"/gone.pdf", t.TempDir()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
