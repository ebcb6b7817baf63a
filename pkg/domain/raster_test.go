package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func info5x5() domain.RasterInfo {
	return domain.RasterInfo{Name: "flw", Rows: 5, Cols: 5, Transform: domain.NorthUp(0, 5, 1), NoData: 247}
}

func TestRasterInfo_CellAt(t *testing.T) {
	info := info5x5()

	t.Run("Interior", func(t *testing.T) {
		c, err := info.CellAt(domain.Point{X: 2.5, Y: 2.5})
		require.NoError(t, err)
		assert.Equal(t, domain.Cell{Row: 2, Col: 2}, c)
	})

	t.Run("Edges are valid", func(t *testing.T) {
		for _, p := range []domain.Point{{X: 0, Y: 5}, {X: 5, Y: 0}, {X: 5, Y: 5}, {X: 0, Y: 0}} {
			_, err := info.CellAt(p)
			assert.NoError(t, err, "point %v", p)
		}
		c, err := info.CellAt(domain.Point{X: 5, Y: 0})
		require.NoError(t, err)
		assert.Equal(t, domain.Cell{Row: 4, Col: 4}, c)
	})

	t.Run("One cell outside", func(t *testing.T) {
		for _, p := range []domain.Point{{X: -0.5, Y: 2}, {X: 5.5, Y: 2}, {X: 2, Y: 5.5}, {X: 2, Y: -0.5}} {
			_, err := info.CellAt(p)
			var oob *domain.OutOfBoundsError
			require.True(t, errors.As(err, &oob), "point %v", p)
			assert.ErrorIs(t, err, domain.ErrOutOfBounds)
		}
	})
}

func TestRasterInfo_WindowFor(t *testing.T) {
	info := info5x5()

	w, err := info.WindowFor(domain.BBox{XMin: 1, YMin: 1, XMax: 3, YMax: 4})
	require.NoError(t, err)
	assert.Equal(t, domain.Window{Row: 1, Col: 1, Rows: 3, Cols: 2}, w)

	w, err = info.WindowFor(domain.BBox{XMin: -10, YMin: -10, XMax: 1.5, YMax: 20})
	require.NoError(t, err)
	assert.Equal(t, domain.Window{Row: 0, Col: 0, Rows: 5, Cols: 2}, w)

	_, err = info.WindowFor(domain.BBox{XMin: 10, YMin: 10, XMax: 11, YMax: 11})
	assert.ErrorIs(t, err, domain.ErrOutOfBounds)

	assert.Equal(t, domain.BBox{XMin: 1, YMin: 1, XMax: 3, YMax: 4}, info.Bounds(domain.Window{Row: 1, Col: 1, Rows: 3, Cols: 2}))
}

func TestNewFlowGrid(t *testing.T) {
	info := domain.RasterInfo{Rows: 1, Cols: 3, Transform: domain.NorthUp(0, 1, 1), NoData: -9999}
	band := &domain.Band{Info: info, Window: info.Full(), Values: []float64{1, 0, -9999}}

	g, err := domain.NewFlowGrid(band)
	require.NoError(t, err)
	assert.Equal(t, []domain.Direction{domain.DirE, domain.DirPit, domain.DirNoData}, g.Dirs)

	band.Values[1] = 3
	_, err = domain.NewFlowGrid(band)
	var inv *domain.InvalidFlowGridError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, []domain.Cell{{Row: 0, Col: 1}}, inv.Cells)
}

func TestDirection(t *testing.T) {
	for _, d := range domain.Directions {
		dr, dc, ok := d.Offset()
		require.True(t, ok)
		or, oc, _ := d.Opposite().Offset()
		assert.Equal(t, -dr, or, d.String())
		assert.Equal(t, -dc, oc, d.String())
	}
	_, _, ok := domain.DirPit.Offset()
	assert.False(t, ok)
	assert.False(t, domain.Direction(3).Valid())
	assert.True(t, domain.DirNoData.Valid())
}
