package catchment

import (
	"context"
	"fmt"

	"github.com/aretw0/catchment/internal/flow"
	"github.com/aretw0/catchment/pkg/domain"
)

// GridStats summarises a flow grid.
type GridStats struct {
	Info    domain.RasterInfo `json:"info"`
	Cells   int               `json:"cells"`   // cells with a flow direction
	NoData  int               `json:"nodata"`  // no-data cells
	Outlets int               `json:"outlets"` // terminal cells
	Pits    int               `json:"pits"`
	Leaving int               `json:"leaving"` // cells draining off the grid

	// MaxUpstream is the largest contributing area in cells and Largest
	// the outlet it drains to.
	MaxUpstream int         `json:"max_upstream"`
	Largest     domain.Cell `json:"largest"`
}

// network reads win of the flow grid and of every variable the request
// thresholds name.
func (e *Engine) network(ctx context.Context, info domain.RasterInfo, win domain.Window, vars []string) (*flow.Network, error) {
	grid, err := e.grid(ctx, info, win)
	if err != nil {
		return nil, err
	}
	bands := make(map[string]*domain.Band, len(vars))
	for _, v := range vars {
		b, err := e.band(ctx, info, v, win)
		if err != nil {
			return nil, err
		}
		bands[v] = b
	}
	return flow.NewNetwork(grid, bands), nil
}

func (e *Engine) grid(ctx context.Context, info domain.RasterInfo, win domain.Window) (*domain.FlowGrid, error) {
	full := win == info.Full()
	if full && e.validate {
		e.mu.Lock()
		g := e.fullGrid
		e.mu.Unlock()
		if g != nil {
			return g, nil
		}
	}

	b, err := e.reader.Read(ctx, e.flowName, win)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow grid window %v: %w", win, err)
	}
	g, err := domain.NewFlowGrid(b)
	if err != nil {
		return nil, err
	}
	if full && e.validate {
		if err := flow.NewNetwork(g, nil).Validate(ctx); err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.fullGrid = g
		e.mu.Unlock()
		e.logger.Info("flow grid validated", "rows", info.Rows, "cols", info.Cols)
	}
	return g, nil
}

// band reads a variable window and checks it is co-registered with the flow grid.
func (e *Engine) band(ctx context.Context, info domain.RasterInfo, variable string, win domain.Window) (*domain.Band, error) {
	dataset, ok := e.variables[variable]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariable, variable)
	}
	vi, err := e.reader.Open(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to open variable %s: %w", variable, err)
	}
	if vi.Rows != info.Rows || vi.Cols != info.Cols || vi.Transform != info.Transform {
		return nil, fmt.Errorf("variable %s (%s) is not aligned with flow grid %s", variable, dataset, e.flowName)
	}
	b, err := e.reader.Read(ctx, dataset, win)
	if err != nil {
		return nil, fmt.Errorf("failed to read variable %s window %v: %w", variable, win, err)
	}
	return b, nil
}

// full reads the whole flow grid.
func (e *Engine) full(ctx context.Context) (*flow.Network, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return nil, err
	}
	g, err := e.grid(ctx, info, info.Full())
	if err != nil {
		return nil, err
	}
	return flow.NewNetwork(g, nil), nil
}

// Validate checks the whole flow grid for malformed codes and cycles.
func (e *Engine) Validate(ctx context.Context) error {
	net, err := e.full(ctx)
	if err != nil {
		return err
	}
	return net.Validate(ctx)
}

// Accumulate returns the number of cells draining through each cell of
// the grid, the cell itself included.
func (e *Engine) Accumulate(ctx context.Context) (*domain.Band, error) {
	net, err := e.full(ctx)
	if err != nil {
		return nil, err
	}
	return net.Accumulate(ctx)
}

// Stats summarises the flow grid. It fails on an invalid grid.
func (e *Engine) Stats(ctx context.Context) (*GridStats, error) {
	net, err := e.full(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := net.Accumulate(ctx)
	if err != nil {
		return nil, err
	}
	s := &GridStats{
		Info:    net.Info(),
		Pits:    net.Pits(),
		Leaving: net.Leaving(),
	}
	outlets := net.Outlets()
	s.Outlets = len(outlets)
	for _, v := range acc.Values {
		if v == acc.Info.NoData {
			s.NoData++
			continue
		}
		s.Cells++
	}
	for _, c := range outlets {
		if v, ok := acc.At(c); ok && int(v) > s.MaxUpstream {
			s.MaxUpstream, s.Largest = int(v), c
		}
	}
	return s, nil
}
