package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// ErrStale is returned by Commit when the live dataset was modified after the
// revision the caller loaded. Callers should reload and retry.
var ErrStale = errors.New("dataset changed since load")

// ErrNoDataset is returned by Load when no dataset file exists yet.
var ErrNoDataset = errors.New("no dataset found")

// FileStore keeps the canonical dataset as a single JSON document. Writes go
// through a temp file and rename so the live file is always a complete
// document. A revision check on Commit rejects writes over a dataset that
// changed since it was loaded.
type FileStore struct {
	path        string
	pendingPath string

	mu sync.Mutex
	// loadedStamp is the metadata.last_updated observed by the most recent
	// Load; Commit compares it against the file before overwriting.
	loadedStamp string
}

// NewFileStore creates a file-backed dataset store. The pending candidate
// lives next to the live file with a .pending.json suffix.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:        path,
		pendingPath: pendingPath(path),
	}
}

func pendingPath(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + ".pending" + ext
}

func (s *FileStore) Load(_ context.Context) (*pricing.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := readDataset(s.path)
	if err != nil {
		return nil, err
	}
	s.loadedStamp = ds.Metadata.LastUpdated
	return ds, nil
}

func (s *FileStore) Commit(_ context.Context, ds *pricing.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Optimistic check against the revision on disk. A missing file commits
	// freely (first seed).
	current, err := readDataset(s.path)
	switch {
	case errors.Is(err, ErrNoDataset):
	case err != nil:
		return err
	case s.loadedStamp != "" && current.Metadata.LastUpdated != s.loadedStamp:
		return fmt.Errorf("commit %s: %w", s.path, ErrStale)
	}

	if err := writeDataset(s.path, ds); err != nil {
		return err
	}
	s.loadedStamp = ds.Metadata.LastUpdated
	return nil
}

func (s *FileStore) SavePending(_ context.Context, ds *pricing.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeDataset(s.pendingPath, ds)
}

func (s *FileStore) LoadPending(_ context.Context) (*pricing.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := readDataset(s.pendingPath)
	if errors.Is(err, ErrNoDataset) {
		return nil, nil
	}
	return ds, err
}

func readDataset(path string) (*pricing.Dataset, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, ErrNoDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	var ds pricing.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return &ds, nil
}

func writeDataset(path string, ds *pricing.Dataset) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dataset-*.json")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp dataset: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace dataset %s: %w", path, err)
	}
	return nil
}
