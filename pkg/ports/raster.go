package ports

import (
	"context"

	"github.com/aretw0/catchment/pkg/domain"
)

// RasterReader provides windowed access to named raster datasets.
// Open must not read cell values, so a caller can plan a window before
// paying for the data.
type RasterReader interface {
	// Open returns the metadata of a dataset.
	// Returns domain.ErrNotFound if the dataset does not exist.
	Open(ctx context.Context, name string) (domain.RasterInfo, error)

	// Read returns the values of a window of the dataset. The window must lie
	// inside the dataset.
	Read(ctx context.Context, name string, w domain.Window) (*domain.Band, error)
}

// BasinIndex lists the basins of a flow grid with their bounds.
type BasinIndex interface {
	// Containing returns the records whose bounds contain p.
	Containing(ctx context.Context, p domain.Point) ([]domain.BasinRecord, error)

	// Intersecting returns the records whose bounds intersect b.
	Intersecting(ctx context.Context, b domain.BBox) ([]domain.BasinRecord, error)
}
