// Package storage persists downloaded media under a managed directory.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	apperrors "github.com/kimhsiao/tgvault/internal/errors"
)

// Manager writes downloaded payloads into a managed base directory.
type Manager struct {
	baseDir string
}

// NewManager creates a Manager rooted at baseDir, creating it if needed.
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageWrite, "failed to create storage directory", err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the managed storage root.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// StoredFile describes one persisted payload.
type StoredFile struct {
	// Name is the generated file name, including the extension.
	Name string
	// Path is the absolute location under the managed directory.
	Path string
	// ContentHash is the SHA-256 of the payload, hex encoded.
	ContentHash string
	// Size is the payload length in bytes.
	Size int64
	// HumanSize is the payload length formatted for humans, e.g. "1.4 MB".
	HumanSize string
}

// Store writes data under a freshly generated unique file name, preserving
// the supplied extension. An empty extension falls back to ".dat". The bytes
// land via a temp file plus rename so a crash mid-write never leaves a
// partial payload under the final name.
func (m *Manager) Store(data []byte, ext string) (*StoredFile, error) {
	if ext == "" {
		ext = ".dat"
	} else if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	name := uuid.NewString() + ext
	path := filepath.Join(m.baseDir, name)

	tmp, err := os.CreateTemp(m.baseDir, ".download-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageWrite, "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, apperrors.Wrap(apperrors.ErrStorageWrite, "failed to write payload", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, apperrors.Wrap(apperrors.ErrStorageWrite, "failed to close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return nil, apperrors.Wrap(apperrors.ErrStorageWrite, "failed to finalize payload", err)
	}

	sum := sha256.Sum256(data)
	return &StoredFile{
		Name:        name,
		Path:        path,
		ContentHash: hex.EncodeToString(sum[:]),
		Size:        int64(len(data)),
		HumanSize:   humanize.Bytes(uint64(len(data))),
	}, nil
}
