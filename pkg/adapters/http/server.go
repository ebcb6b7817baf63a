package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/observability"
	"github.com/aretw0/catchment/pkg/ports"
	"github.com/aretw0/catchment/pkg/region"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxBody bounds request bodies.
	DefaultMaxBody = 1 << 20
	// DefaultMaxBatch bounds the number of regions in one batch request.
	DefaultMaxBatch = 64
)

// Server serves delineation requests over HTTP.
type Server struct {
	Engine ports.Delineator

	logger   *slog.Logger
	gatherer prometheus.Gatherer
	limiter  *rate.Limiter
	maxBody  int64
	maxBatch int
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithRateLimit admits at most r delineation requests per second with bursts
// of burst. Excess requests get 429.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		if r > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(r), max(burst, 1))
		}
	}
}

// WithMaxBatch bounds the number of regions in one batch request.
func WithMaxBatch(n int) Option {
	return func(s *Server) { s.maxBatch = n }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.Delineator, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBody:  DefaultMaxBody,
		maxBatch: DefaultMaxBatch,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Get("/healthz", s.GetHealth)
	r.Get("/dataset", s.GetDataset)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/delineate", s.Delineate)
		r.Post("/delineate/batch", s.DelineateBatch)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Result is the JSON form of one delineation.
type Result struct {
	Cells  int                 `json:"cells"`
	Bounds domain.BBox         `json:"bounds"`
	Region *domain.Delineation `json:"region"`
}

func newResult(d *domain.Delineation) Result {
	return Result{Cells: d.Cells(), Bounds: d.Mask.Bounds(), Region: d}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail is one invalid region key.
type ErrorDetail struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Delineate handles POST /delineate. The body is one region mapping, bare
// or wrapped as {"region": {...}}.
func (s *Server) Delineate(w http.ResponseWriter, r *http.Request) {
	reqs, ok := s.decode(w, r)
	if !ok {
		return
	}
	if len(reqs) != 1 {
		s.writeError(w, &region.ValidationError{Key: "regions", Reason: "use /delineate/batch for several regions"})
		return
	}

	d, err := s.Engine.Delineate(r.Context(), reqs[0])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newResult(d))
}

// DelineateBatch handles POST /delineate/batch with {"regions": [...]}.
// Results keep the request order; any failure fails the batch.
func (s *Server) DelineateBatch(w http.ResponseWriter, r *http.Request) {
	reqs, ok := s.decode(w, r)
	if !ok {
		return
	}
	if s.maxBatch > 0 && len(reqs) > s.maxBatch {
		s.writeError(w, &region.ValidationError{Key: "regions", Reason: "too many regions", Value: len(reqs)})
		return
	}

	out, err := s.Engine.DelineateAll(r.Context(), reqs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	results := make([]Result, len(out))
	for i, d := range out {
		results[i] = newResult(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) ([]domain.Request, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error(), Code: "body_too_large"})
		return nil, false
	}
	reqs, err := region.Decode(body, true)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return reqs, true
}

// GetDataset handles GET /dataset.
func (s *Server) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := s.Engine.Info(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset": info,
		"extent":  info.Extent(),
		"version": strings.TrimSpace(catchment.Version),
	})
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status maps an engine error to an HTTP status and error code.
func Status(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "body_too_large"
	}
	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound, "not_found"
	}
	switch outcome := observability.Outcome(err, false); outcome {
	case "invalid":
		return http.StatusBadRequest, "invalid_request"
	case "no_match":
		return http.StatusUnprocessableEntity, outcome
	case "canceled":
		return http.StatusServiceUnavailable, outcome
	case "invalid_grid":
		return http.StatusInternalServerError, outcome
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := Status(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	var aggr *region.AggregateError
	if errors.As(err, &aggr) {
		for _, e := range aggr.Errors {
			var ve *region.ValidationError
			if errors.As(e, &ve) {
				resp.Details = append(resp.Details, ErrorDetail{Key: ve.Key, Reason: ve.Reason})
			}
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
