package ports

import (
	"context"
	"time"

	"github.com/aretw0/catchment/pkg/domain"
)

// ResultStore caches delineations under a canonical request key.
type ResultStore interface {
	// Save persists a delineation. A zero ttl keeps it until deleted.
	Save(ctx context.Context, key string, d *domain.Delineation, ttl time.Duration) error

	// Load retrieves a delineation.
	// Returns domain.ErrNotFound if the key does not exist or has expired.
	Load(ctx context.Context, key string) (*domain.Delineation, error)

	// Delete removes a delineation. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
