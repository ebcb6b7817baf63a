package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/pkg/adapters/file"
	"github.com/aretw0/catchment/pkg/adapters/memory"
	"github.com/aretw0/catchment/pkg/adapters/redis"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
)

// Runtime bundles an engine with the resources opened for it.
type Runtime struct {
	Engine   *catchment.Engine
	Reader   *file.Reader
	Registry *prometheus.Registry
	FS       afs.Service

	closers []func() error
}

// Close releases cache connections.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewRuntime builds an engine from cfg. Grids are read through afs and the
// basin index is registered as the default index. Results are cached in
// redis or a local directory, locked per key so identical requests are
// computed once. Every request feeds the metrics registry.
func NewRuntime(ctx context.Context, cfg *Config, logger *slog.Logger) (*Runtime, error) {
	if cfg.Flow == "" {
		return nil, errors.New("no flow grid configured: set 'flow' in catchment.yaml or pass --flow")
	}

	base, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, err
	}
	fs := afs.New()
	rt := &Runtime{
		Reader:   file.NewReader(fs, base),
		Registry: prometheus.NewRegistry(),
		FS:       fs,
	}
	metrics, err := observability.NewMetrics(rt.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	hooks := metrics.Hooks()
	if logger.Enabled(ctx, slog.LevelDebug) {
		hooks = hooks.Merge(debugHooks(logger))
	}
	opts := []catchment.Option{
		catchment.WithLogger(logger),
		catchment.WithLifecycleHooks(hooks),
		catchment.WithSnapRadius(cfg.SnapRadius),
		catchment.WithConcurrency(cfg.Concurrency),
		catchment.WithValidation(cfg.Validate),
	}
	for name, dataset := range cfg.Variables {
		opts = append(opts, catchment.WithVariable(name, dataset))
	}

	if cfg.BasinIndex != "" {
		idx, err := file.LoadBasinIndex(ctx, fs, rt.Reader.URL(cfg.BasinIndex))
		if err != nil {
			return nil, err
		}
		name := IndexName(cfg.BasinIndex)
		opts = append(opts, catchment.WithBasinIndex(name, idx), catchment.WithDefaultBasinIndex(name))
		logger.Debug("basin index loaded", "index", name, "basins", idx.Len())
	}

	switch {
	case cfg.Cache.Redis != "":
		store := redis.New(cfg.Cache.Redis, cfg.Cache.Password, cfg.Cache.DB, redis.WithPrefix(cfg.Cache.Prefix))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Cache.Redis, err)
		}
		rt.closers = append(rt.closers, store.Close)
		opts = append(opts,
			catchment.WithResultStore(store, cfg.Cache.TTL),
			catchment.WithLocker(redis.NewLocker(store.Client(), cfg.Cache.Prefix+"lock:")),
		)
	case cfg.Cache.Dir != "":
		opts = append(opts,
			catchment.WithResultStore(file.NewStore(cfg.Path(cfg.Cache.Dir)), cfg.Cache.TTL),
			catchment.WithLocker(memory.NewLocker()),
		)
	}

	rt.Engine, err = catchment.New(rt.Reader, cfg.Flow, opts...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return rt, nil
}

// IndexName is the name a basin index file is registered under: its base
// name without extension, e.g. "basins" for data/basins.yaml.
func IndexName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDelineateStart: func(ctx context.Context, e *domain.DelineationEvent) {
			logger.Debug("delineate start", "kind", e.Kind)
		},
		OnDelineateEnd: func(ctx context.Context, e *domain.DelineationEvent) {
			if e.Err != nil {
				logger.Debug("delineate failed", "kind", e.Kind, "err", e.Err)
				return
			}
			logger.Debug("delineate end", "kind", e.Kind, "window", e.Window, "cells", e.Cells, "cached", e.Cached)
		},
		OnWarning: func(ctx context.Context, e *domain.WarningEvent) {
			logger.Debug("warning", "kind", e.Kind, "warning", e.Warning)
		},
	}
}
