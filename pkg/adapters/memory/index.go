package memory

import (
	"context"

	"github.com/aretw0/catchment/pkg/domain"
)

// BasinIndex implements ports.BasinIndex with a linear scan over records.
type BasinIndex struct {
	records []domain.BasinRecord
}

// NewBasinIndex creates an index over records; the slice is copied.
func NewBasinIndex(records []domain.BasinRecord) *BasinIndex {
	return &BasinIndex{records: append([]domain.BasinRecord(nil), records...)}
}

// Containing returns the records whose bounds contain p, in index order.
func (i *BasinIndex) Containing(ctx context.Context, p domain.Point) ([]domain.BasinRecord, error) {
	var out []domain.BasinRecord
	for _, r := range i.records {
		if r.Bounds.Contains(p) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Intersecting returns the records whose bounds intersect b, in index order.
func (i *BasinIndex) Intersecting(ctx context.Context, b domain.BBox) ([]domain.BasinRecord, error) {
	var out []domain.BasinRecord
	for _, r := range i.records {
		if r.Bounds.Intersects(b) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len returns the number of records.
func (i *BasinIndex) Len() int { return len(i.records) }
