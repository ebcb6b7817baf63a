package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/catchment/internal/logging"
	"github.com/aretw0/catchment/internal/testutils"
	"github.com/aretw0/catchment/pkg/adapters/file"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project writes a chain dataset with a stream order variable, a basin
// index and a config file, and returns the config path.
func project(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	testutils.WriteGrid(t, dir, "flwdir.asc", testutils.Chain10())
	testutils.WriteGrid(t, dir, "strord.asc", testutils.Chain10Order())
	index := "basins:\n  - id: 1\n    bounds: {xmin: 0, ymin: 0, xmax: 10, ymax: 1}\n    outlet: {x: 0.5, y: 0.5}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basins.yaml"), []byte(index), 0o644))

	cfg := "flow: flwdir.asc\nvariables: {strord: strord.asc}\nbasin_index: basins.yaml\n" + extra
	p := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(p, []byte(cfg), 0o644))
	return p
}

func TestLoadConfig(t *testing.T) {
	p := project(t, "snap_radius: 7\ncache: {dir: results, ttl: 90m}\nhttp: {port: 9090, rate: 2.5, burst: 5}\nlog: {level: debug, format: json}\n")

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "flwdir.asc", cfg.Flow)
	assert.Equal(t, map[string]string{"strord": "strord.asc"}, cfg.Variables)
	assert.Equal(t, 7, cfg.SnapRadius)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "catchment:result:", cfg.Cache.Prefix)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 2.5, cfg.HTTP.Rate)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, filepath.Dir(p), cfg.Dir)
	assert.Equal(t, filepath.Join(filepath.Dir(p), "results"), cfg.Path(cfg.Cache.Dir))
}

func TestDecodeConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, DecodeConfig([]byte(`{"flow": "f.asc", "concurrency": 2, "cache": {"ttl": "5s"}}`), true, cfg))
	assert.Equal(t, "f.asc", cfg.Flow)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)

	assert.Error(t, DecodeConfig([]byte("flow: f.asc\nflwo: typo\n"), false, DefaultConfig()))
	assert.Error(t, DecodeConfig([]byte("snap_radius: 0\n"), false, DefaultConfig()))
	assert.Error(t, DecodeConfig([]byte("flow: [\n"), false, DefaultConfig()))
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "warn", Format: "json"})
	assert.NoError(t, err)
	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestRunDelineate(t *testing.T) {
	ctx := context.Background()
	cfg, err := LoadConfig(project(t, "cache: {dir: results}\n"))
	require.NoError(t, err)

	rt, err := NewRuntime(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	reqs, err := ReadRegions(`{"subbasin": [9.5, 0.5], "strord": 4}`)
	require.NoError(t, err)

	var out bytes.Buffer
	maskPath := filepath.Join(t.TempDir(), "mask.asc")
	err = RunDelineate(ctx, rt, reqs, DelineateOptions{
		Printer: &Printer{W: &out, Format: FormatAuto},
		MaskOut: maskPath,
	})
	require.NoError(t, err)

	var d domain.Delineation
	require.NoError(t, json.Unmarshal(out.Bytes(), &d))
	assert.Equal(t, domain.KindSubbasin, d.Kind)
	assert.Equal(t, 4, d.Cells())
	assert.Equal(t, []domain.Cell{{Row: 0, Col: 6}}, d.Outlets.Cells())

	info, err := file.NewReader(nil, "").Open(ctx, maskPath)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Rows)
	assert.Equal(t, 4, info.Cols)

	keys, err := file.NewStore(cfg.Path("results")).List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRunDelineate_Report(t *testing.T) {
	ctx := context.Background()
	cfg, err := LoadConfig(project(t, ""))
	require.NoError(t, err)
	rt, err := NewRuntime(ctx, cfg, logging.NewNop())
	require.NoError(t, err)

	reqs, err := ReadRegions("regions:\n  - basin: [1, 0.5]\n  - subbasin: [3.5, 0.5]\n")
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	var out bytes.Buffer
	require.NoError(t, RunDelineate(ctx, rt, reqs, DelineateOptions{Printer: &Printer{W: &out, Format: FormatReport}}))
	assert.Contains(t, out.String(), "basin")
	assert.Contains(t, out.String(), "subbasin")
}

func TestNewRuntime_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := NewRuntime(ctx, DefaultConfig(), logging.NewNop())
	assert.Error(t, err)

	cfg, err := LoadConfig(project(t, ""))
	require.NoError(t, err)
	cfg.BasinIndex = "missing.yaml"
	_, err = NewRuntime(ctx, cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestReadRegions(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "regions.yaml")
	require.NoError(t, os.WriteFile(p, []byte("region: {basin: [1, 0.5]}\n"), 0o644))

	reqs, err := ReadRegions(p)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, domain.KindBasin, reqs[0].Kind)

	reqs, err = ReadRegions("interbasin: [0, 0, 4, 1]")
	require.NoError(t, err)
	assert.Equal(t, domain.KindInterbasin, reqs[0].Kind)

	_, err = ReadRegions(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMaskPath(t *testing.T) {
	assert.Equal(t, "out/mask.asc", MaskPath("out/mask.asc", 0, 1))
	assert.Equal(t, "out/mask-2.asc", MaskPath("out/mask.asc", 1, 3))
}

func TestValidateGrids(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteGrid(t, dir, "good.asc", testutils.Converging5x5())
	testutils.WriteGrid(t, dir, "cycle.asc", [][]int{{1, 4}, {64, 16}})

	reader := file.NewReader(nil, dir)
	reports := ValidateGrids(context.Background(), reader, []string{"good.asc", "cycle.asc", "missing.asc"}, 2, logging.NewNop())
	require.Len(t, reports, 3)

	assert.NoError(t, reports[0].Err)
	require.NotNil(t, reports[0].Stats)
	assert.Equal(t, 25, reports[0].Stats.MaxUpstream)

	assert.ErrorIs(t, reports[1].Err, domain.ErrInvalidFlowGrid)
	assert.ErrorIs(t, reports[2].Err, domain.ErrNotFound)
}

func TestPrinter_UnknownFormat(t *testing.T) {
	p := &Printer{W: &bytes.Buffer{}, Format: "xml"}
	assert.Error(t, p.Info(testutils.Info("flwdir", 1, 1)))
}
