package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleDelineation is a small result with every field populated.
func sampleDelineation() *domain.Delineation {
	info := domain.RasterInfo{Rows: 3, Cols: 3, Transform: domain.NorthUp(0, 3, 1)}
	m := domain.NewMask(info, domain.Window{Row: 0, Col: 1, Rows: 2, Cols: 2})
	m.Set(domain.Cell{Row: 0, Col: 1})
	m.Set(domain.Cell{Row: 1, Col: 1})
	m.Set(domain.Cell{Row: 1, Col: 2})
	return &domain.Delineation{
		Kind:    domain.KindSubbasin,
		Mask:    m,
		Outlets: domain.OutletSet{{Cell: domain.Cell{Row: 1, Col: 1}, Point: domain.Point{X: 1.5, Y: 1.5}}},
		Warnings: []error{&domain.IncompleteBasinWarning{
			Bounds:    domain.BBox{XMin: 1, YMin: 1, XMax: 3, YMax: 3},
			Truncated: 2,
		}},
	}
}

// RunResultStoreContract verifies that a ResultStore adheres to the port contract.
func RunResultStoreContract(t *testing.T, store ports.ResultStore) {
	t.Helper()
	ctx := context.Background()
	key := fmt.Sprintf("contract-%d", time.Now().UnixNano())

	t.Run("Save and Load", func(t *testing.T) {
		want := sampleDelineation()
		require.NoError(t, store.Save(ctx, key, want, 0))

		got, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want.Kind, got.Kind)
		assert.True(t, want.Mask.Equal(got.Mask), "mask bits must round-trip")
		assert.Equal(t, want.Mask.Transform, got.Mask.Transform)
		assert.Equal(t, want.Outlets, got.Outlets)
		require.Len(t, got.Warnings, 1)
		assert.ErrorIs(t, got.Warnings[0], domain.ErrIncompleteBasin)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+key)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		d := sampleDelineation()
		d.Kind = domain.KindBasin
		require.NoError(t, store.Save(ctx, key, d, 0))
		got, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, domain.KindBasin, got.Kind)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrNotFound, "Load after Delete should return ErrNotFound")
		assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	})
}

// RunRasterReaderContract verifies a RasterReader serving dataset name whose
// full contents are want.
func RunRasterReaderContract(t *testing.T, reader ports.RasterReader, name string, want *domain.Band) {
	t.Helper()
	ctx := context.Background()

	t.Run("Open", func(t *testing.T) {
		info, err := reader.Open(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want.Info.Rows, info.Rows)
		assert.Equal(t, want.Info.Cols, info.Cols)
		assert.Equal(t, want.Info.Transform, info.Transform)
		assert.Equal(t, want.Info.NoData, info.NoData)
	})

	t.Run("Open Non-Existent", func(t *testing.T) {
		_, err := reader.Open(ctx, "missing-"+name)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Read Full", func(t *testing.T) {
		b, err := reader.Read(ctx, name, want.Info.Full())
		require.NoError(t, err)
		assert.Equal(t, want.Info.Full(), b.Window)
		assert.Equal(t, want.Values, b.Values)
	})

	t.Run("Read Window", func(t *testing.T) {
		full := want.Info.Full()
		w := domain.Window{Row: full.Rows / 2, Col: full.Cols / 2, Rows: full.Rows - full.Rows/2, Cols: full.Cols - full.Cols/2}
		b, err := reader.Read(ctx, name, w)
		require.NoError(t, err)
		require.Equal(t, w, b.Window)
		for r := 0; r < w.Rows; r++ {
			for c := 0; c < w.Cols; c++ {
				cell := domain.Cell{Row: w.Row + r, Col: w.Col + c}
				assert.Equal(t, want.Values[cell.Row*full.Cols+cell.Col], b.Values[r*w.Cols+c], "cell %v", cell)
			}
		}
	})

	t.Run("Read Outside", func(t *testing.T) {
		full := want.Info.Full()
		_, err := reader.Read(ctx, name, domain.Window{Row: full.Rows, Col: 0, Rows: 1, Cols: 1})
		assert.ErrorIs(t, err, domain.ErrOutOfBounds)
	})
}

// RunBasinIndexContract verifies a BasinIndex built from records.
func RunBasinIndexContract(t *testing.T, idx ports.BasinIndex, records []domain.BasinRecord) {
	t.Helper()
	ctx := context.Background()
	require.NotEmpty(t, records)

	t.Run("Containing", func(t *testing.T) {
		for _, r := range records {
			got, err := idx.Containing(ctx, r.Outlet)
			require.NoError(t, err)
			ids := make([]int, len(got))
			for i, g := range got {
				ids[i] = g.ID
			}
			assert.Contains(t, ids, r.ID)
		}
	})

	t.Run("Intersecting", func(t *testing.T) {
		var all domain.BBox
		for i, r := range records {
			if i == 0 {
				all = r.Bounds
				continue
			}
			all = all.Union(r.Bounds)
		}
		got, err := idx.Intersecting(ctx, all)
		require.NoError(t, err)
		assert.Len(t, got, len(records))
	})

	t.Run("Nothing", func(t *testing.T) {
		got, err := idx.Containing(ctx, domain.Point{X: 1e12, Y: 1e12})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

// RunLockerContract verifies mutual exclusion and release on a DistributedLocker.
func RunLockerContract(t *testing.T, locker ports.DistributedLocker) {
	t.Helper()
	ctx := context.Background()
	key := fmt.Sprintf("lock-%d", time.Now().UnixNano())

	t.Run("Contention", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, key, 5*time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// other keys are independent
		other, err := locker.Lock(ctx, "other-"+key, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, other(ctx))

		require.NoError(t, unlock(ctx))
	})

	t.Run("Handoff", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			next, err := locker.Lock(ctx, key, 5*time.Second)
			if err == nil {
				_ = next(ctx)
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("second holder acquired a held lock")
		case <-time.After(100 * time.Millisecond):
		}
		require.NoError(t, unlock(ctx))

		select {
		case <-acquired:
		case <-time.After(2 * time.Second):
			t.Fatal("lock was not handed over after unlock")
		}
	})
}
