package memory_test

import (
	"testing"

	"github.com/aretw0/catchment/internal/testutils"
	"github.com/aretw0/catchment/pkg/adapters/memory"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/ports/tests"
	"github.com/stretchr/testify/require"
)

func TestReader_Contract(t *testing.T) {
	band := testutils.FlowBand(t, testutils.Converging5x5())
	r, err := memory.NewReader(band)
	require.NoError(t, err)
	tests.RunRasterReaderContract(t, r, band.Info.Name, band)
}

func TestReader_RejectsPartialBand(t *testing.T) {
	band := testutils.FlowBand(t, testutils.Converging5x5())
	band.Window = domain.Window{Rows: 2, Cols: 2}
	_, err := memory.NewReader(band)
	require.Error(t, err)
}

func TestBasinIndex_Contract(t *testing.T) {
	records := []domain.BasinRecord{
		{ID: 1, Bounds: domain.BBox{XMin: 0, YMin: 0, XMax: 2, YMax: 2}, Outlet: domain.Point{X: 1, Y: 1}},
		{ID: 2, Bounds: domain.BBox{XMin: 2, YMin: 0, XMax: 5, YMax: 2}, Outlet: domain.Point{X: 4, Y: 0.5}},
	}
	tests.RunBasinIndexContract(t, memory.NewBasinIndex(records), records)
}
