package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/catchment/pkg/domain"
)

// Store implements ports.ResultStore using the local filesystem.
// It stores delineations as JSON files in a configured directory.
type Store struct {
	BasePath string
	now      func() time.Time
}

type record struct {
	Expires     time.Time           `json:"expires,omitzero"`
	Delineation *domain.Delineation `json:"delineation"`
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".catchment/results".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".catchment", "results")
	}
	return &Store{BasePath: basePath, now: time.Now}
}

func (s *Store) path(key string) string {
	// cache keys are "<kind>:<hash>"
	return filepath.Join(s.BasePath, strings.ReplaceAll(key, ":", "_")+".json")
}

// Save persists the delineation to a JSON file atomically.
// It writes to a temporary file first, syncs it, and then renames it over the destination.
func (s *Store) Save(ctx context.Context, key string, d *domain.Delineation, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure result directory: %w", err)
	}

	rec := record{Delineation: d}
	if ttl > 0 {
		rec.Expires = s.now().Add(ttl)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal delineation: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // gone after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := s.path(key)
	if _, err := os.Stat(dest); err == nil {
		// os.Rename does not replace an existing file on Windows
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing result for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load retrieves a delineation. Expired entries are removed and reported as missing.
func (s *Store) Load(ctx context.Context, key string) (*domain.Delineation, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	p := s.path(key)
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("result %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delineation: %w", err)
	}
	if !rec.Expires.IsZero() && !s.now().Before(rec.Expires) {
		_ = os.Remove(p)
		return nil, fmt.Errorf("result %s expired: %w", key, domain.ErrNotFound)
	}
	if rec.Delineation == nil {
		return nil, fmt.Errorf("result %s is empty", key)
	}
	return rec.Delineation, nil
}

// Delete removes the result file.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete result file: %w", err)
	}
	return nil
}

// List returns the stored keys, including expired ones not yet loaded.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		keys = append(keys, strings.Replace(strings.TrimSuffix(name, ".json"), "_", ":", 1))
	}
	return keys, nil
}
