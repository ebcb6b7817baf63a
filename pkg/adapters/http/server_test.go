package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/internal/testutils"
	chttp "github.com/aretw0/catchment/pkg/adapters/http"
	"github.com/aretw0/catchment/pkg/adapters/memory"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, opts ...chttp.Option) http.Handler {
	t.Helper()
	reader, err := memory.NewReader(
		testutils.FlowBand(t, testutils.Chain10()),
		testutils.Band(t, "strord", testutils.Chain10Order()),
	)
	require.NoError(t, err)
	eng, err := catchment.New(reader, "flwdir", catchment.WithVariable("strord", "strord"))
	require.NoError(t, err)
	return chttp.NewHandler(eng, opts...)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDelineate(t *testing.T) {
	h := newHandler(t)

	w := post(t, h, "/delineate", `{"subbasin": [9.5, 0.5], "strord": 4}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res chttp.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 4, res.Cells)
	assert.Equal(t, domain.BBox{XMin: 6, YMin: 0, XMax: 10, YMax: 1}, res.Bounds)
	require.NotNil(t, res.Region)
	assert.Equal(t, domain.KindSubbasin, res.Region.Kind)
	assert.Equal(t, []domain.Cell{{Row: 0, Col: 6}}, res.Region.Outlets.Cells())
	assert.Equal(t, 4, res.Region.Mask.Count())
}

func TestDelineate_Wrapped(t *testing.T) {
	h := newHandler(t)
	w := post(t, h, "/delineate", `{"region": {"basin": [4.5, 0.5]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"cells":10`)
}

func TestDelineate_Errors(t *testing.T) {
	h := newHandler(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"basin":`, http.StatusBadRequest, "invalid_request"},
		{"no kind", `{"strord": 4}`, http.StatusBadRequest, "invalid_request"},
		{"out of bounds", `{"basin": [50, 50]}`, http.StatusBadRequest, "invalid_request"},
		{"unknown variable", `{"subbasin": [9.5, 0.5], "uparea": 3}`, http.StatusBadRequest, "invalid_request"},
		{"no match", `{"subbasin": [9.5, 0.5], "strord": 40}`, http.StatusUnprocessableEntity, "no_match"},
		{"several regions", `{"regions": [{"basin": [1, 0.5]}, {"basin": [2, 0.5]}]}`, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, "/delineate", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var resp chttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestDelineate_ValidationDetails(t *testing.T) {
	h := newHandler(t)
	w := post(t, h, "/delineate", `{"basin": [1], "color": "blue"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp chttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Details, 2)
	assert.Equal(t, "basin", resp.Details[0].Key)
	assert.Equal(t, "color", resp.Details[1].Key)
}

func TestDelineateBatch(t *testing.T) {
	h := newHandler(t, chttp.WithMaxBatch(2))

	w := post(t, h, "/delineate/batch", `{"regions": [{"basin": [9.5, 0.5]}, {"subbasin": [3.5, 0.5]}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Results []chttp.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)
	assert.Equal(t, 10, body.Results[0].Cells)
	assert.Equal(t, 7, body.Results[1].Cells)

	w = post(t, h, "/delineate/batch", `{"regions": [{"basin": [1, 0.5]}, {"basin": [2, 0.5]}, {"basin": [3, 0.5]}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	h := newHandler(t, chttp.WithRateLimit(0.001, 1))

	assert.Equal(t, http.StatusOK, post(t, h, "/delineate", `{"basin": [1, 0.5]}`).Code)
	w := post(t, h, "/delineate", `{"basin": [1, 0.5]}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// health checks are not limited
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetDataset(t *testing.T) {
	h := newHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/dataset", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Dataset domain.RasterInfo `json:"dataset"`
		Extent  domain.BBox       `json:"extent"`
		Version string            `json:"version"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 10, body.Dataset.Cols)
	assert.Equal(t, domain.BBox{XMin: 0, YMin: 0, XMax: 10, YMax: 1}, body.Extent)
	assert.Equal(t, catchment.Version, body.Version)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	reader, err := memory.NewReader(testutils.FlowBand(t, testutils.Chain10()))
	require.NoError(t, err)
	eng, err := catchment.New(reader, "flwdir", catchment.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)
	h := chttp.NewHandler(eng, chttp.WithMetrics(reg))

	require.Equal(t, http.StatusOK, post(t, h, "/delineate", `{"basin": [1, 0.5]}`).Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `catchment_delineations_total{kind="basin",outcome="ok"} 1`)
}

func TestStatus(t *testing.T) {
	status, code := chttp.Status(&domain.InvalidFlowGridError{Reason: "cycle"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "invalid_grid", code)

	status, _ = chttp.Status(domain.ErrBufferRequired)
	assert.Equal(t, http.StatusBadRequest, status)
}
