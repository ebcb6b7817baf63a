package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/stretchr/testify/require"
)

// NoData is the no-data value used by the fixtures.
const NoData = 247

// Info describes a north-up grid of unit cells with its upper-left corner at
// (0, rows).
func Info(name string, rows, cols int) domain.RasterInfo {
	return domain.RasterInfo{
		Name:      name,
		Rows:      rows,
		Cols:      cols,
		Transform: domain.NorthUp(0, float64(rows), 1),
		CRS:       "EPSG:4326",
		NoData:    NoData,
	}
}

// Band builds a full-extent band from row slices.
func Band(t testing.TB, name string, rows [][]float64) *domain.Band {
	t.Helper()
	require.NotEmpty(t, rows, "band needs at least one row")
	info := Info(name, len(rows), len(rows[0]))
	values := make([]float64, 0, info.Rows*info.Cols)
	for i, r := range rows {
		require.Len(t, r, info.Cols, "row %d has the wrong width", i)
		values = append(values, r...)
	}
	return &domain.Band{Info: info, Window: info.Full(), Values: values}
}

// FlowBand builds a band of D8 codes.
func FlowBand(t testing.TB, rows [][]int) *domain.Band {
	t.Helper()
	fr := make([][]float64, len(rows))
	for i, r := range rows {
		fr[i] = make([]float64, len(r))
		for j, v := range r {
			fr[i][j] = float64(v)
		}
	}
	return Band(t, "flwdir", fr)
}

// Grid builds a validated flow grid of D8 codes.
func Grid(t testing.TB, rows [][]int) *domain.FlowGrid {
	t.Helper()
	g, err := domain.NewFlowGrid(FlowBand(t, rows))
	require.NoError(t, err)
	return g
}

// Converging5x5 drains every cell of a 5x5 grid to the pit at its centre.
func Converging5x5() [][]int {
	return [][]int{
		{2, 2, 4, 8, 8},
		{2, 2, 4, 8, 8},
		{1, 1, 0, 16, 16},
		{128, 128, 64, 32, 32},
		{128, 128, 64, 32, 32},
	}
}

// Chain10 is a single row of ten cells flowing west into the pit at column 0.
func Chain10() [][]int {
	return [][]int{{0, 16, 16, 16, 16, 16, 16, 16, 16, 16}}
}

// Chain10Order is the stream order along Chain10: column c holds 10-c, so the
// pit is order 10 and the head order 1.
func Chain10Order() [][]float64 {
	row := make([]float64, 10)
	for c := range row {
		row[c] = float64(10 - c)
	}
	return [][]float64{row}
}

// WriteGrid writes rows as an ESRI ASCII grid laid out like Info and
// returns its path.
func WriteGrid[T int | float64](t testing.TB, dir, name string, rows [][]T) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "ncols %d\nnrows %d\nxllcorner 0\nyllcorner 0\ncellsize 1\nNODATA_value %d\n", len(rows[0]), len(rows), NoData)
	for _, r := range rows {
		for i, v := range r {
			if i > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%v", v)
		}
		b.WriteString("\n")
	}
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}
