package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/catchment/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces cached results.
const DefaultPrefix = "catchment:result:"

// Store implements ports.ResultStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for cached results.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client { return s.client }

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Save persists the delineation as JSON. A zero ttl never expires.
func (s *Store) Save(ctx context.Context, key string, d *domain.Delineation, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal delineation: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the delineation from Redis.
func (s *Store) Load(ctx context.Context, key string) (*domain.Delineation, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("result %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var d domain.Delineation
	if err := json.Unmarshal(val, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delineation: %w", err)
	}
	return &d, nil
}

// Delete removes the delineation.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
