package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/catchment/pkg/domain"
)

// Reader implements ports.RasterReader over bands held in memory.
// Safe for concurrent use.
type Reader struct {
	bands map[string]*domain.Band

	mu    sync.Mutex
	reads []ReadRecord
}

// ReadRecord is one Read call observed by a Reader.
type ReadRecord struct {
	Name   string
	Window domain.Window
}

// NewReader serves full-extent bands under their Info.Name.
func NewReader(bands ...*domain.Band) (*Reader, error) {
	r := &Reader{bands: make(map[string]*domain.Band, len(bands))}
	for _, b := range bands {
		if b.Info.Name == "" {
			return nil, fmt.Errorf("band missing name")
		}
		if b.Window != b.Info.Full() {
			return nil, fmt.Errorf("band %s is not full-extent", b.Info.Name)
		}
		r.bands[b.Info.Name] = b
	}
	return r, nil
}

// Names returns the served dataset names in sorted order.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.bands))
	for n := range r.bands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open returns the metadata of a dataset.
func (r *Reader) Open(ctx context.Context, name string) (domain.RasterInfo, error) {
	b, ok := r.bands[name]
	if !ok {
		return domain.RasterInfo{}, fmt.Errorf("dataset %s: %w", name, domain.ErrNotFound)
	}
	return b.Info, nil
}

// Read copies a window out of a dataset.
func (r *Reader) Read(ctx context.Context, name string, w domain.Window) (*domain.Band, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := r.bands[name]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", name, domain.ErrNotFound)
	}
	if w.Empty() || !b.Info.Full().ContainsWindow(w) {
		return nil, fmt.Errorf("%w: window %v outside dataset %s", domain.ErrOutOfBounds, w, name)
	}

	r.mu.Lock()
	r.reads = append(r.reads, ReadRecord{Name: name, Window: w})
	r.mu.Unlock()

	values := make([]float64, 0, w.Size())
	for row := w.Row; row < w.Row+w.Rows; row++ {
		start := row*b.Info.Cols + w.Col
		values = append(values, b.Values[start:start+w.Cols]...)
	}
	return &domain.Band{Info: b.Info, Window: w, Values: values}, nil
}

// Reads returns the Read calls made so far, in order.
func (r *Reader) Reads() []ReadRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReadRecord(nil), r.reads...)
}
