package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/catchment/pkg/domain"
)

type entry struct {
	data    []byte
	expires time.Time // zero means never
}

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]entry
	mu   sync.RWMutex
	now  func() time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

// Save persists the delineation. It is serialised so callers can keep
// mutating their copy.
func (s *Store) Save(ctx context.Context, key string, d *domain.Delineation, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal delineation: %w", err)
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = e
	return nil
}

// Load retrieves a delineation, treating expired entries as missing.
func (s *Store) Load(ctx context.Context, key string) (*domain.Delineation, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok || (!e.expires.IsZero() && !s.now().Before(e.expires)) {
		return nil, fmt.Errorf("result %s: %w", key, domain.ErrNotFound)
	}
	var d domain.Delineation
	if err := json.Unmarshal(e.data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delineation: %w", err)
	}
	return &d, nil
}

// Delete removes the delineation.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	now := s.now()
	for _, e := range s.data {
		if e.expires.IsZero() || now.Before(e.expires) {
			n++
		}
	}
	return n
}
