package ports

import (
	"context"

	"github.com/aretw0/catchment/pkg/domain"
)

// Delineator is the engine surface used by adapters (HTTP, MCP).
type Delineator interface {
	// Info returns the metadata of the flow grid without reading it.
	Info(ctx context.Context) (domain.RasterInfo, error)

	// Delineate resolves one region request.
	Delineate(ctx context.Context, req domain.Request) (*domain.Delineation, error)

	// DelineateAll resolves independent requests concurrently; results keep
	// the request order.
	DelineateAll(ctx context.Context, reqs []domain.Request) ([]*domain.Delineation, error)
}
