package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalArchive writes archives below a directory. Download URLs point at
// BaseURL and are not signed.
type LocalArchive struct {
	dir     string
	baseURL string
	now     func() time.Time
}

// NewLocalArchive creates dir if needed
func NewLocalArchive(dir, baseURL string) (*LocalArchive, error) {
	if dir == "" {
		dir = "archives"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchive{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}, nil
}

func (a *LocalArchive) path(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(a.dir, filepath.FromSlash(key)), nil
}

// Upload writes data to the key's file, replacing any previous content.
// contentType is not stored.
func (a *LocalArchive) Upload(_ context.Context, key string, data []byte, _ string) error {
	p, err := a.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(p), err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return os.Rename(tmp, p)
}

// GenerateDownloadURL returns BaseURL/key for an existing archive
func (a *LocalArchive) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	p, err := a.path(key)
	if err != nil {
		return "", time.Time{}, err
	}
	if _, err := os.Stat(p); err != nil {
		return "", time.Time{}, fmt.Errorf("archive %s: %w", key, err)
	}
	if expiresIn <= 0 {
		expiresIn = defaultPresignExpiration
	}
	expiresAt := a.now().Add(expiresIn)
	u := a.baseURL + "/" + key + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

// Read returns the archive stored under key
func (a *LocalArchive) Read(key string) ([]byte, error) {
	p, err := a.path(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}
