package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ppiankov/newsbrief/internal/model"
)

// DiskStore keeps one JSON file per key
type DiskStore struct {
	dir string
}

// NewDiskStore creates a new disk store rooted at dir
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

type diskRecord struct {
	Key      string          `json:"key"`
	Meta     Meta            `json:"meta"`
	Artifact *model.Artifact `json:"artifact"`
}

// Get reads the artifact for key. A missing file is a miss, not an error.
func (s *DiskStore) Get(ctx context.Context, key string) (*model.Artifact, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}

	var rec diskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal cache file: %w", err)
	}
	if rec.Key != key || rec.Artifact == nil {
		return nil, false, nil
	}
	return rec.Artifact, true, nil
}

// Put writes the artifact atomically via a temp file and rename
func (s *DiskStore) Put(ctx context.Context, key string, a *model.Artifact, meta Meta) error {
	data, err := json.Marshal(diskRecord{Key: key, Meta: meta, Artifact: a})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Delete removes the file for key
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cached files
func (s *DiskStore) Clear(ctx context.Context) error {
	return os.RemoveAll(s.dir)
}

// Close is a no-op
func (s *DiskStore) Close() error {
	return nil
}

// path hashes the key; keys contain ':' which some filesystems reject
func (s *DiskStore) path(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".json")
}
