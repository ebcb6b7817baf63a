package region_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want domain.Request
	}{
		{
			name: "basin point",
			in:   map[string]any{"basin": []any{12.5, 45.25}},
			want: domain.Request{Kind: domain.KindBasin, Points: []domain.Point{{X: 12.5, Y: 45.25}}},
		},
		{
			name: "basin points",
			in:   map[string]any{"basin": []any{[]any{1, 2}, []any{3, 4}}},
			want: domain.Request{Kind: domain.KindBasin, Points: []domain.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}},
		},
		{
			name: "subbasin with thresholds and bounds",
			in: map[string]any{
				"subbasin": []any{1.5, 2.5},
				"uparea":   "10",
				"strord":   4,
				"bounds":   []any{0, 0, 5, 5},
			},
			want: domain.Request{
				Kind:       domain.KindSubbasin,
				Points:     []domain.Point{{X: 1.5, Y: 2.5}},
				Thresholds: []domain.Threshold{{Variable: "strord", Value: 4}, {Variable: "uparea", Value: 10}},
				Bounds:     &domain.BBox{XMin: 0, YMin: 0, XMax: 5, YMax: 5},
			},
		},
		{
			name: "interbasin with cell buffer",
			in:   map[string]any{"interbasin": []any{0, 0, 3, 3}, "strord": 2, "buffer": 2},
			want: domain.Request{
				Kind:       domain.KindInterbasin,
				BBox:       &domain.BBox{XMin: 0, YMin: 0, XMax: 3, YMax: 3},
				Thresholds: []domain.Threshold{{Variable: "strord", Value: 2}},
				Buffer:     &domain.Buffer{Value: 2, Unit: domain.UnitCells},
			},
		},
		{
			name: "interbasin with map buffer",
			in: map[string]any{
				"interbasin": []any{0, 0, 3, 3},
				"buffer":     map[string]any{"value": 0.5, "unit": "map"},
			},
			want: domain.Request{
				Kind:   domain.KindInterbasin,
				BBox:   &domain.BBox{XMin: 0, YMin: 0, XMax: 3, YMax: 3},
				Buffer: &domain.Buffer{Value: 0.5, Unit: domain.UnitMap},
			},
		},
		{
			name: "basin bbox outlets",
			in:   map[string]any{"basin": []any{0, 0, 3, 3}, "outlets": true, "basin_index": "merit", "snap_radius": 20},
			want: domain.Request{
				Kind:       domain.KindBasin,
				BBox:       &domain.BBox{XMin: 0, YMin: 0, XMax: 3, YMax: 3},
				Outlets:    true,
				BasinIndex: "merit",
				SnapRadius: 20,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := region.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := region.Parse(region.Format(got))
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		keys []string
	}{
		{"no kind", map[string]any{"strord": 4}, []string{"kind"}},
		{"two kinds", map[string]any{"basin": []any{1, 2}, "subbasin": []any{1, 2}}, []string{"kind"}},
		{"bad seed", map[string]any{"basin": []any{1, 2, 3}}, []string{"basin"}},
		{"inverted bbox", map[string]any{"interbasin": []any{3, 0, 0, 3}}, []string{"bbox.xmax"}},
		{"non-numeric threshold", map[string]any{"basin": []any{1, 2}, "color": "blue"}, []string{"color"}},
		{"bool threshold", map[string]any{"basin": []any{1, 2}, "outlet": true}, []string{"outlet"}},
		{"negative buffer", map[string]any{"interbasin": []any{0, 0, 1, 1}, "buffer": -1}, []string{"buffer"}},
		{"bad unit", map[string]any{"interbasin": []any{0, 0, 1, 1}, "buffer": map[string]any{"value": 1, "unit": "km"}}, []string{"buffer.unit"}},
		{"bounds on basin", map[string]any{"basin": []any{1, 2}, "bounds": []any{0, 0, 5, 5}}, []string{"basin"}},
		{"short bounds", map[string]any{"subbasin": []any{1, 2}, "bounds": []any{0, 0, 5}}, []string{"bounds"}},
		{"interbasin point", map[string]any{"interbasin": []any{1, 2}}, []string{"interbasin"}},
		{"several", map[string]any{"basin": []any{1}, "color": "blue"}, []string{"basin", "color"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := region.Parse(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)

			verrs := region.ValidationErrors(err)
			require.Len(t, verrs, len(tt.keys), "errors: %v", err)
			for i, e := range verrs {
				var ve *region.ValidationError
				require.ErrorAs(t, e, &ve)
				assert.Equal(t, tt.keys[i], ve.Key)
			}
		})
	}
}

func TestKey(t *testing.T) {
	a, err := region.Parse(map[string]any{"subbasin": []any{1, 2}, "strord": 4, "uparea": 10})
	require.NoError(t, err)
	b, err := region.Parse(map[string]any{"uparea": 10.0, "strord": "4", "subbasin": []any{1.0, 2.0}})
	require.NoError(t, err)

	scope := region.Scope{Dataset: "flwdir", SnapRadius: 100, Variables: map[string]string{"strord": "strord"}}
	ka, err := region.Key(scope, a)
	require.NoError(t, err)
	kb, err := region.Key(scope, b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
	assert.Contains(t, ka, "subbasin:")

	for _, other := range []region.Scope{
		{Dataset: "other", SnapRadius: 100, Variables: map[string]string{"strord": "strord"}},
		{Dataset: "flwdir", SnapRadius: 5, Variables: map[string]string{"strord": "strord"}},
		{Dataset: "flwdir", SnapRadius: 100, Variables: map[string]string{"strord": "strord_v2"}},
	} {
		kc, err := region.Key(other, a)
		require.NoError(t, err)
		assert.NotEqual(t, ka, kc, "scope %+v", other)
	}
}

func TestKey_NonFinite(t *testing.T) {
	scope := region.Scope{Dataset: "flwdir"}
	inf, err := region.Parse(map[string]any{"subbasin": []any{1, 2}, "strord": math.Inf(1)})
	require.NoError(t, err)
	big, err := region.Parse(map[string]any{"subbasin": []any{1, 2}, "strord": math.MaxFloat64})
	require.NoError(t, err)

	ki, err := region.Key(scope, inf)
	require.NoError(t, err)
	kb, err := region.Key(scope, big)
	require.NoError(t, err)
	assert.NotEqual(t, ki, kb)

	again, err := region.Key(scope, inf)
	require.NoError(t, err)
	assert.Equal(t, ki, again)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	single := filepath.Join(dir, "single.yaml")
	require.NoError(t, os.WriteFile(single, []byte("subbasin: [1.5, 2.5]\nstrord: 4\n"), 0o644))
	reqs, err := region.LoadFile(single)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, domain.KindSubbasin, reqs[0].Kind)

	doc := map[string]any{"regions": []map[string]any{
		{"basin": []float64{1, 2}},
		{"interbasin": []float64{0, 0, 3, 3}, "buffer": 1},
	}}
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	multi := filepath.Join(dir, "multi.yml")
	require.NoError(t, os.WriteFile(multi, data, 0o644))
	reqs, err = region.LoadFile(multi)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, domain.KindInterbasin, reqs[1].Kind)

	wrapped := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(wrapped, []byte(`{"region": {"basin": [[1, 2], [3, 4]]}}`), 0o644))
	reqs, err = region.LoadFile(wrapped)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Points, 2)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("regions:\n  - {strord: 4}\n"), 0o644))
	_, err = region.LoadFile(bad)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
