// Package storage keeps raw document files in a content-addressed blob
// store. A blob's name is the lowercase hex sha256 of its bytes, so saving
// the same file twice is a cheap no-op and ingestion can detect documents it
// has already seen by hash alone.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrivener/internal/services"
)

// Store is a directory of content-addressed blobs.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) a blob store rooted at dir.
func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: blob directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create blob directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save copies the file at path into the store and returns its hash. The
// second return reports whether a blob with that hash already existed, which
// is how ingestion recognizes previously seen documents.
func (s *Store) Save(path string) (string, bool, error) {
	hash, err := HashFile(path)
	if err != nil {
		return "", false, err
	}
	dest := s.Path(hash)
	if _, err := os.Stat(dest); err == nil {
		return hash, true, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, services.Wrap(services.ErrTransient, "storage", "save", "stat blob", err)
	}

	// Write through a temp file so a crash never leaves a truncated blob
	// under its final name.
	tmp, err := os.CreateTemp(s.dir, ".incoming-*")
	if err != nil {
		return "", false, services.Wrap(services.ErrTransient, "storage", "save", "create temp blob", err)
	}
	tmpName := tmp.Name()
	src, err := os.Open(path)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", false, services.Wrap(services.ErrTransient, "storage", "save", "open source", err)
	}
	_, copyErr := io.Copy(tmp, src)
	src.Close()
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpName)
		return "", false, services.Wrap(services.ErrTransient, "storage", "save", "copy into store", errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", false, services.Wrap(services.ErrTransient, "storage", "save", "finalize blob", err)
	}
	return hash, false, nil
}

// Path returns where the blob for hash lives, whether or not it exists.
func (s *Store) Path(hash string) string {
	return filepath.Join(s.dir, hash)
}

// Exists reports whether a blob with the given hash is present.
func (s *Store) Exists(hash string) bool {
	if strings.TrimSpace(hash) == "" {
		return false
	}
	_, err := os.Stat(s.Path(hash))
	return err == nil
}

// HashFile computes the lowercase hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "hash", "open file", err)
	}
	defer file.Close()
	digest := sha256.New()
	if _, err := io.Copy(digest, file); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "hash", "read file", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

const downloadTimeout = 5 * time.Minute

// Download fetches url into destDir and returns the downloaded file's path.
// The file gets a unique name prefixed with the URL's base name, so
// concurrent downloads never collide.
func Download(ctx context.Context, url, destDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "storage", "download", "build request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "download", "http error", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d fetching %s", resp.StatusCode, url)
		return "", services.Wrap(services.ErrExternal, "storage", "download", detail, nil)
	}

	name := filepath.Base(strings.TrimRight(req.URL.Path, "/"))
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	// Unique file per download: concurrent fetches of URLs sharing a base
	// name must not truncate each other mid-write.
	out, err := os.CreateTemp(destDir, name+"-*")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "download", "create file", err)
	}
	dest := out.Name()
	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(dest)
		return "", services.Wrap(services.ErrTransient, "storage", "download", "write file", errors.Join(copyErr, closeErr))
	}
	return dest, nil
}
