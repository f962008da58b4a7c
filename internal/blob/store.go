// Package blob stores binary payloads (audio, cover art) as
// content-addressed files and tracks the leases the UI holds on them.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"waveshelf/internal/constants"
)

// Store keeps blobs on disk, one file per blob, named by the sha256 of the
// content. Identical content therefore always maps to the same ref, which
// is what lets a track and a playlist share an inherited cover without
// either copying it.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create blob dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put writes data and returns its ref. Writing content that already exists
// is a no-op returning the existing ref.
func (s *Store) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	path := s.path(ref)
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	// Write to a temp file then rename so a reader never sees a partial blob.
	tmp, err := os.CreateTemp(s.dir, "blob-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finalize blob: %w", err)
	}
	return ref, nil
}

// Read returns the blob's bytes, or nil, nil for an unknown ref.
func (s *Store) Read(ref string) ([]byte, error) {
	data, err := os.ReadFile(s.path(ref))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Open returns the blob file for streaming reads.
func (s *Store) Open(ref string) (*os.File, error) {
	return os.Open(s.path(ref))
}

// Exists reports whether the ref is present on disk.
func (s *Store) Exists(ref string) bool {
	_, err := os.Stat(s.path(ref))
	return err == nil
}

// Remove deletes the blob file; removing an unknown ref is not an error.
func (s *Store) Remove(ref string) error {
	err := os.Remove(s.path(ref))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Refs lists all blob refs currently on disk.
func (s *Store) Refs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		refs = append(refs, e.Name())
	}
	return refs, nil
}

func (s *Store) path(ref string) string {
	// Refs are hex digests; Base guards against path traversal from a
	// hostile ref.
	return filepath.Join(s.dir, filepath.Base(ref))
}
