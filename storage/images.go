// Package storage holds uploaded event images on the local filesystem,
// outside the record store, referenced by a stable relative path.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

const MaxImageSize = 5 << 20 // 5 MiB

var ErrInvalidImage = errors.New("only image files up to 5MB are allowed")

// ImageStore is the blob-side contract the event service depends on.
type ImageStore interface {
	Save(data []byte, contentType string) (string, error)
	Remove(ref string)
	Resolve(ref string) string
}

// FSImageStore persists images under Dir and serves them below URLPrefix.
type FSImageStore struct {
	Dir       string
	URLPrefix string // e.g. "/uploads"
	Logger    *slog.Logger

	seq atomic.Int64 // disambiguates same-nanosecond saves
}

func NewFSImageStore(dir string, logger *slog.Logger) *FSImageStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSImageStore{Dir: dir, URLPrefix: "/uploads", Logger: logger}
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Save writes the bytes under a fresh time-based name and returns the
// relative reference. Non-image content types and oversized payloads are
// rejected. The backing directory is created on first use.
func (s *FSImageStore) Save(data []byte, contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrInvalidImage
	}
	if len(data) == 0 || len(data) > MaxImageSize {
		return "", ErrInvalidImage
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext, ok := extByType[contentType]
	if !ok {
		ext = ".img"
	}
	name := fmt.Sprintf("%d-%d%s", time.Now().UnixNano(), s.seq.Add(1), ext)

	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path.Join(s.URLPrefix, name), nil
}

// Remove deletes the referenced blob best-effort. A missing file is fine,
// any other failure is logged and swallowed so callers never fail a request
// over it.
func (s *FSImageStore) Remove(ref string) {
	name, ok := s.localName(ref)
	if !ok {
		return
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.Logger.Warn("failed to remove image", "ref", ref, "error", err)
	}
}

// Resolve maps a stored reference to the path it is served from. References
// already carry the URL prefix, so this is the identity for anything Save
// produced; anything else is returned untouched.
func (s *FSImageStore) Resolve(ref string) string {
	return ref
}

func (s *FSImageStore) localName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, s.URLPrefix+"/") {
		return "", false
	}
	name := path.Base(ref)
	if name == "." || name == "/" {
		return "", false
	}
	return name, true
}
