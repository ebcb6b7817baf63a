package file_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/catchment/internal/testutils"
	"github.com/aretw0/catchment/pkg/adapters/file"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/ports"
	"github.com/aretw0/catchment/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

var (
	_ ports.RasterReader = (*file.Reader)(nil)
	_ ports.ResultStore  = (*file.Store)(nil)
)

func TestReader_Contract(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteGrid(t, dir, "flwdir.asc", testutils.Converging5x5())

	reader := file.NewReader(afs.New(), dir)
	tests.RunRasterReaderContract(t, reader, "flwdir.asc", testutils.FlowBand(t, testutils.Converging5x5()))
}

func TestReader_Header(t *testing.T) {
	dir := t.TempDir()
	data := "NCOLS 3\nNROWS 2\nXLLCENTER 10.5\nYLLCENTER 20.5\nCELLSIZE 1\n1 2 3\n4 5\n6\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "g.asc"), []byte(data), 0o644))

	reader := file.NewReader(nil, dir)
	info, err := reader.Open(context.Background(), "g.asc")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Rows)
	assert.Equal(t, 3, info.Cols)
	assert.Equal(t, float64(file.DefaultNoData), info.NoData)
	assert.Equal(t, domain.NorthUp(10, 22, 1), info.Transform)

	// values need not be laid out one row per line
	b, err := reader.Read(context.Background(), "g.asc", domain.Window{Row: 1, Col: 1, Rows: 1, Cols: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, b.Values)
}

func TestReader_Malformed(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"short.asc":   "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n",
		"long.asc":    "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2\n",
		"noshape.asc": "xllcorner 0\nyllcorner 0\ncellsize 1\n1\n",
	}
	reader := file.NewReader(nil, dir)
	for name, data := range cases {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
		_, err := reader.Open(context.Background(), name)
		assert.Error(t, err, name)
	}
}

func TestReader_ConcurrentOpen(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteGrid(t, dir, "a.asc", testutils.Converging5x5())
	testutils.WriteGrid(t, dir, "b.asc", testutils.Chain10())
	reader := file.NewReader(nil, dir)

	var wg sync.WaitGroup
	infos := make([]domain.RasterInfo, 16)
	errs := make([]error, len(infos))
	for i := range infos {
		name := "a.asc"
		if i%2 == 1 {
			name = "b.asc"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			infos[i], errs[i] = reader.Open(context.Background(), name)
		}()
	}
	wg.Wait()
	for i, info := range infos {
		require.NoError(t, errs[i])
		if i%2 == 0 {
			assert.Equal(t, 5, info.Cols)
		} else {
			assert.Equal(t, 10, info.Cols)
		}
	}
}

func TestReader_RetriesMissing(t *testing.T) {
	dir := t.TempDir()
	reader := file.NewReader(nil, dir)

	_, err := reader.Open(context.Background(), "late.asc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	testutils.WriteGrid(t, dir, "late.asc", testutils.Chain10())
	info, err := reader.Open(context.Background(), "late.asc")
	require.NoError(t, err)
	assert.Equal(t, 10, info.Cols)
}

func TestWriteMask(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	info := testutils.Info("flwdir", 4, 4)
	m := domain.NewMask(info, domain.Window{Row: 1, Col: 1, Rows: 2, Cols: 3})
	m.Set(domain.Cell{Row: 1, Col: 1})
	m.Set(domain.Cell{Row: 2, Col: 3})

	out := filepath.Join(dir, "mask.asc")
	require.NoError(t, file.WriteMask(ctx, afs.New(), out, m))

	reader := file.NewReader(nil, "")
	got, err := reader.Open(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, m.Transform, got.Transform)
	assert.Equal(t, float64(file.MaskNoData), got.NoData)

	b, err := reader.Read(ctx, out, got.Full())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 1}, b.Values)
}

func TestLoadBasinIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	doc := `basins:
  - id: 1
    bounds: {xmin: 0, ymin: 0, xmax: 5, ymax: 5}
    outlet: {x: 2.5, y: 2.5}
  - id: 2
    bounds: {xmin: 5, ymin: 0, xmax: 10, ymax: 5}
    outlet: {x: 7.5, y: 2.5}
    attributes: {uparea: 25}
`
	p := filepath.Join(dir, "basins.yaml")
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))

	idx, err := file.LoadBasinIndex(ctx, afs.New(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	records, err := file.DecodeBasinIndex([]byte(`[{"id": 1, "bounds": {"xmin": 0, "ymin": 0, "xmax": 5, "ymax": 5}, "outlet": {"x": 2.5, "y": 2.5}}]`))
	require.NoError(t, err)
	tests.RunBasinIndexContract(t, idx, append(records, domain.BasinRecord{
		ID: 2, Bounds: domain.BBox{XMin: 5, YMin: 0, XMax: 10, YMax: 5}, Outlet: domain.Point{X: 7.5, Y: 2.5},
	}))

	_, err = file.DecodeBasinIndex([]byte("- id: 1\n  bounds: {xmin: 5, ymin: 0, xmax: 1, ymax: 5}\n"))
	assert.Error(t, err)
	_, err = file.DecodeBasinIndex([]byte("- id: 1\n  bounds: {xmin: 0, ymin: 0, xmax: 1, ymax: 1}\n- id: 1\n  bounds: {xmin: 0, ymin: 0, xmax: 1, ymax: 1}\n"))
	assert.Error(t, err)
}

func TestStore_Contract(t *testing.T) {
	tests.RunResultStoreContract(t, file.NewStore(t.TempDir()))
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := file.NewStore(t.TempDir())
	d := &domain.Delineation{Kind: domain.KindBasin, Mask: domain.NewMask(testutils.Info("f", 1, 1), domain.Window{Rows: 1, Cols: 1})}

	require.NoError(t, store.Save(ctx, "basin:00ff", d, time.Hour))
	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"basin:00ff"}, keys)
}
