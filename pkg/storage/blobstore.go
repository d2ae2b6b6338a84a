package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// BlobStore is the external byte-storage collaborator. The drive core only
// tracks opaque refs; bytes are never interpreted here or by callers.
type BlobStore struct {
	baseDir string
}

// NewBlobStore ensures the base directory exists and returns a handle.
func NewBlobStore(baseDir string) (*BlobStore, error) {
	if baseDir == "" {
		baseDir = "./blobs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &BlobStore{baseDir: baseDir}, nil
}

// Put streams the reader into a new blob and returns its ref.
func (s *BlobStore) Put(r io.Reader) (string, error) {
	ref := newRef()
	path := s.resolve(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write blob stream: %w", err)
	}
	return ref, nil
}

// Open returns a read-only handle for the blob behind ref.
func (s *BlobStore) Open(ref string) (*os.File, error) {
	file, err := os.Open(s.resolve(ref))
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", ref, err)
	}
	return file, nil
}

// Delete removes the blob if present. A missing blob is not an error.
func (s *BlobStore) Delete(ref string) error {
	if err := os.Remove(s.resolve(ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", ref, err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *BlobStore) Path(ref string) string {
	return s.resolve(ref)
}

func (s *BlobStore) resolve(ref string) string {
	return filepath.Join(s.baseDir, filepath.Clean("/"+ref))
}

// Refs are sharded by their first byte to keep directories small.
func newRef() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%02x/%d", time.Now().Unix()%256, time.Now().UnixNano())
	}
	encoded := hex.EncodeToString(buf)
	return filepath.Join(encoded[:2], encoded)
}
