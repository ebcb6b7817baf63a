package catchment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/catchment/internal/flow"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/ports"
	"github.com/aretw0/catchment/pkg/region"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency bounds DelineateAll when WithConcurrency is not given.
	DefaultConcurrency = 4
	// DefaultSnapRadius is the snapping radius in flow-path steps.
	DefaultSnapRadius = flow.DefaultSnapRadius
)

// Engine is the high-level entry point for the catchment library.
// It plans the raster window a request needs, reads it through a
// RasterReader and delineates over it. An Engine is safe for concurrent use.
type Engine struct {
	reader   ports.RasterReader
	flowName string

	variables    map[string]string // threshold variable -> dataset name
	indexes      map[string]ports.BasinIndex
	defaultIndex string

	store    ports.ResultStore
	storeTTL time.Duration
	locker   ports.DistributedLocker

	snapRadius  int
	concurrency int
	validate    bool

	hooks  domain.LifecycleHooks
	logger *slog.Logger

	mu       sync.Mutex
	info     *domain.RasterInfo
	fullGrid *domain.FlowGrid // validated full grid, kept when validation is on
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls chain
// the hooks in order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithVariable makes dataset available to thresholds on variable name.
func WithVariable(name, dataset string) Option {
	return func(e *Engine) {
		e.variables[name] = dataset
	}
}

// WithBasinIndex registers a basin index that requests can name to narrow
// the window that is read.
func WithBasinIndex(name string, idx ports.BasinIndex) Option {
	return func(e *Engine) {
		e.indexes[name] = idx
	}
}

// WithDefaultBasinIndex uses the named index for requests that do not name one.
func WithDefaultBasinIndex(name string) Option {
	return func(e *Engine) {
		e.defaultIndex = name
	}
}

// WithResultStore caches delineations. A zero ttl keeps entries until deleted.
func WithResultStore(store ports.ResultStore, ttl time.Duration) Option {
	return func(e *Engine) {
		e.store = store
		e.storeTTL = ttl
	}
}

// WithLocker serialises cache fills for the same request across replicas.
// It only has an effect together with WithResultStore.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithSnapRadius sets the default outlet snapping radius in flow-path steps.
func WithSnapRadius(steps int) Option {
	return func(e *Engine) {
		e.snapRadius = steps
	}
}

// WithConcurrency bounds the number of requests DelineateAll runs at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithValidation checks the whole flow grid for cycles the first time it is
// read in full, and keeps the validated grid for later full-grid requests.
func WithValidation(enabled bool) Option {
	return func(e *Engine) {
		e.validate = enabled
	}
}

// New initializes an Engine over the flow-direction dataset flowName.
func New(reader ports.RasterReader, flowName string, opts ...Option) (*Engine, error) {
	if reader == nil {
		return nil, fmt.Errorf("raster reader is required")
	}
	if flowName == "" {
		return nil, fmt.Errorf("flow dataset name is required")
	}
	eng := &Engine{
		reader:      reader,
		flowName:    flowName,
		variables:   map[string]string{},
		indexes:     map[string]ports.BasinIndex{},
		snapRadius:  DefaultSnapRadius,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.defaultIndex != "" {
		if _, ok := eng.indexes[eng.defaultIndex]; !ok {
			return nil, fmt.Errorf("default basin index %q is not registered", eng.defaultIndex)
		}
	}
	if eng.snapRadius <= 0 {
		return nil, fmt.Errorf("snap radius must be positive, got %d", eng.snapRadius)
	}
	if eng.concurrency <= 0 {
		eng.concurrency = 1
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	eng.logger = eng.logger.With("dataset", flowName)

	return eng, nil
}

// Name returns the flow dataset name.
func (e *Engine) Name() string { return e.flowName }

// Variables lists the registered threshold variables in sorted order.
func (e *Engine) Variables() []string {
	out := make([]string, 0, len(e.variables))
	for v := range e.variables {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Info returns the metadata of the flow grid without reading cell values.
func (e *Engine) Info(ctx context.Context) (domain.RasterInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.info != nil {
		return *e.info, nil
	}
	info, err := e.reader.Open(ctx, e.flowName)
	if err != nil {
		return domain.RasterInfo{}, fmt.Errorf("failed to open flow grid: %w", err)
	}
	if info.Rows <= 0 || info.Cols <= 0 {
		return domain.RasterInfo{}, fmt.Errorf("flow grid %s is empty", e.flowName)
	}
	e.info = &info
	return info, nil
}

// Delineate resolves one region request.
func (e *Engine) Delineate(ctx context.Context, req domain.Request) (*domain.Delineation, error) {
	start := time.Now()
	e.emitStart(ctx, req)

	d, ev, err := e.delineate(ctx, req)
	ev.Duration = time.Since(start)
	ev.Err = err
	if err != nil {
		e.logger.Debug("delineation failed", "kind", req.Kind, "error", err)
	} else {
		ev.Cells, ev.Outlets = d.Cells(), len(d.Outlets)
		e.logger.Debug("delineated", "kind", req.Kind, "cells", ev.Cells, "outlets", ev.Outlets,
			"window", ev.Window.String(), "cached", ev.Cached, "duration", ev.Duration)
	}
	e.emitEnd(ctx, ev)
	return d, err
}

func (e *Engine) delineate(ctx context.Context, req domain.Request) (*domain.Delineation, *domain.DelineationEvent, error) {
	ev := e.event(domain.EventDelineateEnd, req.Kind)
	if err := req.Check(); err != nil {
		return nil, ev, err
	}
	if e.store == nil {
		d, err := e.compute(ctx, req, ev)
		return d, ev, err
	}

	key, err := region.Key(e.scope(req), req)
	if err != nil {
		return nil, ev, err
	}
	if d, ok := e.load(ctx, key); ok {
		ev.Cached = true
		e.replay(ctx, req.Kind, d)
		return d, ev, nil
	}
	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, key, time.Minute)
		if err != nil {
			return nil, ev, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("failed to release lock", "key", key, "error", err)
			}
		}()
		// another replica may have filled the key while we waited
		if d, ok := e.load(ctx, key); ok {
			ev.Cached = true
			e.replay(ctx, req.Kind, d)
			return d, ev, nil
		}
	}

	d, err := e.compute(ctx, req, ev)
	if err != nil {
		return nil, ev, err
	}
	if err := e.store.Save(ctx, key, d, e.storeTTL); err != nil {
		e.logger.Warn("failed to cache delineation", "key", key, "error", err)
	}
	return d, ev, nil
}

// scope is the engine configuration a cached result of req depends on.
func (e *Engine) scope(req domain.Request) region.Scope {
	s := region.Scope{Dataset: e.flowName, SnapRadius: e.snapRadius}
	for _, v := range req.Variables() {
		if ds, ok := e.variables[v]; ok {
			if s.Variables == nil {
				s.Variables = map[string]string{}
			}
			s.Variables[v] = ds
		}
	}
	return s
}

// replay reports the warnings of a cached delineation as if it was computed.
func (e *Engine) replay(ctx context.Context, kind domain.Kind, d *domain.Delineation) {
	for _, w := range d.Warnings {
		e.warn(ctx, kind, w)
	}
}

func (e *Engine) warn(ctx context.Context, kind domain.Kind, w error) {
	var ib *domain.IncompleteBasinWarning
	if errors.As(w, &ib) {
		e.logger.Warn("incomplete subbasin", "bounds", ib.Bounds.String(), "truncated", ib.Truncated)
	} else {
		e.logger.Warn("delineation warning", "kind", kind, "warning", w)
	}
	e.emitWarning(ctx, kind, w)
}

func (e *Engine) load(ctx context.Context, key string) (*domain.Delineation, bool) {
	d, err := e.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			e.logger.Warn("failed to read cached delineation", "key", key, "error", err)
		}
		return nil, false
	}
	return d, true
}

func (e *Engine) compute(ctx context.Context, req domain.Request, ev *domain.DelineationEvent) (*domain.Delineation, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return nil, err
	}
	p, err := e.plan(ctx, info, req)
	if err != nil {
		return nil, err
	}

	res, win, err := e.run(ctx, info, req, p)
	if err != nil && p.narrowed && errors.Is(err, domain.ErrNoMatch) {
		e.logger.Debug("no match in indexed window, retrying on the full grid", "window", p.window.String())
		p.widen(info)
		res, win, err = e.run(ctx, info, req, p)
	}
	if err == nil && p.narrowed && (res.Escaped || p.truncates(res, win, info)) {
		e.logger.Debug("result reaches the indexed window edge, retrying on the full grid",
			"window", p.window.String(), "escaped", res.Escaped)
		p.widen(info)
		res, win, err = e.run(ctx, info, req, p)
	}
	ev.Window = p.window
	if err != nil {
		return nil, err
	}

	d := &domain.Delineation{Kind: req.Kind, Mask: res.Mask.Tight()}
	for _, c := range res.Outlets {
		d.Outlets = append(d.Outlets, domain.Outlet{Cell: c, Point: info.CellCenter(c)})
	}
	if p.query.Bounds != nil && res.Truncated > 0 {
		w := &domain.IncompleteBasinWarning{Bounds: *req.Bounds, Truncated: res.Truncated}
		d.Warnings = append(d.Warnings, w)
		e.warn(ctx, req.Kind, w)
	}
	return d, nil
}

// run reads the planned window and delineates over it.
func (e *Engine) run(ctx context.Context, info domain.RasterInfo, req domain.Request, p *plan) (*flow.Result, domain.Window, error) {
	net, err := e.network(ctx, info, p.window, req.Variables())
	if err != nil {
		return nil, p.window, err
	}
	q := p.query
	if q.SnapRadius == 0 {
		q.SnapRadius = e.snapRadius
	}
	res, err := net.Delineate(ctx, q)
	return res, p.window, err
}

// DelineateAll resolves independent requests concurrently. Results keep the
// request order; the first failure cancels the remaining requests.
func (e *Engine) DelineateAll(ctx context.Context, reqs []domain.Request) ([]*domain.Delineation, error) {
	out := make([]*domain.Delineation, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			d, err := e.Delineate(gctx, req)
			if err != nil {
				return fmt.Errorf("request %d (%s): %w", i+1, req.Kind, err)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) event(t domain.EventType, kind domain.Kind) *domain.DelineationEvent {
	return &domain.DelineationEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: t, Dataset: e.flowName},
		Kind:      kind,
	}
}

func (e *Engine) emitStart(ctx context.Context, req domain.Request) {
	if e.hooks.OnDelineateStart != nil {
		e.hooks.OnDelineateStart(ctx, e.event(domain.EventDelineateStart, req.Kind))
	}
}

func (e *Engine) emitEnd(ctx context.Context, ev *domain.DelineationEvent) {
	if e.hooks.OnDelineateEnd != nil {
		ev.Timestamp = time.Now()
		e.hooks.OnDelineateEnd(ctx, ev)
	}
}

func (e *Engine) emitWarning(ctx context.Context, kind domain.Kind, w error) {
	if e.hooks.OnWarning != nil {
		e.hooks.OnWarning(ctx, &domain.WarningEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventWarning, Dataset: e.flowName},
			Kind:      kind,
			Warning:   w,
		})
	}
}
