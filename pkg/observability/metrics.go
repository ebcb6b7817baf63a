package observability

import (
	"context"
	"errors"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records delineation activity.
type Metrics struct {
	Requests *prometheus.CounterVec   // by kind and outcome
	Duration *prometheus.HistogramVec // by kind
	Cells    *prometheus.HistogramVec // mask size by kind
	Warnings *prometheus.CounterVec   // by kind
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catchment_delineations_total",
			Help: "Delineation requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catchment_delineation_duration_seconds",
			Help:    "Time spent resolving a delineation request.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
		Cells: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catchment_delineation_cells",
			Help:    "Number of cells in returned masks.",
			Buckets: prometheus.ExponentialBuckets(1, 10, 9),
		}, []string{"kind"}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catchment_warnings_total",
			Help: "Non-fatal warnings attached to results.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{m.Requests, m.Duration, m.Cells, m.Warnings} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Outcome classifies a delineation error for the outcome label.
func Outcome(err error, cached bool) string {
	switch {
	case err == nil && cached:
		return "cached"
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrOutOfBounds), errors.Is(err, domain.ErrUnknownVariable):
		return "invalid"
	case errors.Is(err, domain.ErrNoMatch):
		return "no_match"
	case errors.Is(err, domain.ErrInvalidFlowGrid):
		return "invalid_grid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDelineateEnd: func(ctx context.Context, e *domain.DelineationEvent) {
			kind := e.Kind.String()
			m.Requests.WithLabelValues(kind, Outcome(e.Err, e.Cached)).Inc()
			m.Duration.WithLabelValues(kind).Observe(e.Duration.Seconds())
			if e.Err == nil {
				m.Cells.WithLabelValues(kind).Observe(float64(e.Cells))
			}
		},
		OnWarning: func(ctx context.Context, e *domain.WarningEvent) {
			m.Warnings.WithLabelValues(e.Kind.String()).Inc()
		},
	}
}
