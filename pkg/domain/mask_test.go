package domain_test

import (
	"testing"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask_TightAndRuns(t *testing.T) {
	info := info5x5()
	m := domain.NewMask(info, info.Full())
	m.Set(domain.Cell{Row: 1, Col: 2})
	m.Set(domain.Cell{Row: 2, Col: 2})
	m.Set(domain.Cell{Row: 2, Col: 3})
	m.Set(domain.Cell{Row: 9, Col: 9}) // ignored

	assert.Equal(t, 3, m.Count())

	tight := m.Tight()
	assert.Equal(t, domain.Window{Row: 1, Col: 2, Rows: 2, Cols: 2}, tight.Window)
	assert.Equal(t, m.Cells(), tight.Cells())
	assert.Equal(t, domain.BBox{XMin: 2, YMin: 2, XMax: 4, YMax: 4}, tight.Bounds())

	runs := tight.Runs()
	assert.Equal(t, []int{0, 1, 1, 2}, runs)
	back := domain.MaskFromRuns(tight.Window, tight.Transform, runs)
	assert.True(t, back.Equal(tight))
	assert.True(t, m.Contains(tight))
}

func TestMask_Empty(t *testing.T) {
	info := info5x5()
	m := domain.NewMask(info, info.Full())
	_, ok := m.Extent()
	assert.False(t, ok)
	assert.Same(t, m, m.Tight())
	assert.Equal(t, []int{25}, m.Runs())
}

func TestRequest_Check(t *testing.T) {
	pt := []domain.Point{{X: 1, Y: 1}}
	box := &domain.BBox{XMin: 0, YMin: 0, XMax: 2, YMax: 2}

	require.NoError(t, domain.Request{Kind: domain.KindBasin, Points: pt}.Check())
	require.NoError(t, domain.Request{Kind: domain.KindInterbasin, BBox: box}.Check())

	bad := []domain.Request{
		{Kind: domain.KindBasin},
		{Kind: domain.KindBasin, Points: pt, BBox: box},
		{Kind: domain.KindInterbasin, Points: pt},
		{Kind: domain.KindBasin, Points: pt, Bounds: box},
		{Kind: domain.KindSubbasin, Points: pt, Outlets: true},
		{Kind: domain.KindSubbasin, BBox: &domain.BBox{XMin: 2, XMax: 1, YMin: 0, YMax: 1}},
		{Kind: domain.Kind(9), Points: pt},
	}
	for _, r := range bad {
		assert.ErrorIs(t, r.Check(), domain.ErrInvalidRequest, "%+v", r)
	}
}
