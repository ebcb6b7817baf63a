package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/pkg/ports"
	"github.com/gammazero/workerpool"
)

// GridReport is the outcome of checking one flow grid.
type GridReport struct {
	Name  string
	Stats *catchment.GridStats
	Err   error
}

// ValidateGrids checks several flow grids concurrently, at most workers at
// a time. Reports keep the order of names.
func ValidateGrids(ctx context.Context, reader ports.RasterReader, names []string, workers int, logger *slog.Logger) []GridReport {
	reports := make([]GridReport, len(names))
	wp := workerpool.New(max(workers, 1))
	for i, name := range names {
		wp.Submit(func() {
			reports[i] = validateGrid(ctx, reader, name, logger)
		})
	}
	wp.StopWait()
	return reports
}

func validateGrid(ctx context.Context, reader ports.RasterReader, name string, logger *slog.Logger) GridReport {
	r := GridReport{Name: name}
	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}
	eng, err := catchment.New(reader, name, catchment.WithLogger(logger), catchment.WithValidation(true))
	if err != nil {
		r.Err = err
		return r
	}
	r.Stats, r.Err = eng.Stats(ctx)
	if r.Err != nil {
		logger.Warn("flow grid invalid", "dataset", name, "err", r.Err)
	}
	return r
}
