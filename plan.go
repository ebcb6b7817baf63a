package catchment

import (
	"context"
	"fmt"

	"github.com/aretw0/catchment/internal/flow"
	"github.com/aretw0/catchment/pkg/domain"
)

// plan is a request resolved to dataset cells plus the window to read.
type plan struct {
	window   domain.Window
	query    flow.Query
	narrowed bool // window was narrowed by a basin index
}

func (e *Engine) plan(ctx context.Context, info domain.RasterInfo, req domain.Request) (*plan, error) {
	full := info.Full()
	p := &plan{
		window: full,
		query: flow.Query{
			Kind:       req.Kind,
			Thresholds: req.Thresholds,
			Outlets:    req.Outlets,
			SnapRadius: req.SnapRadius,
		},
	}

	for _, pt := range req.Points {
		c, err := info.CellAt(pt)
		if err != nil {
			return nil, err
		}
		p.query.Seeds = append(p.query.Seeds, c)
	}
	if req.BBox != nil {
		w, err := info.WindowFor(*req.BBox)
		if err != nil {
			return nil, err
		}
		p.query.Box = &w
	}
	if req.Bounds != nil {
		w, err := info.WindowFor(*req.Bounds)
		if err != nil {
			return nil, err
		}
		for _, s := range p.query.Seeds {
			if !w.Contains(s) {
				return nil, fmt.Errorf("%w: seed %v outside bounds %v", domain.ErrInvalidRequest, s, *req.Bounds)
			}
		}
		p.query.Bounds = &w
	}
	if req.Buffer != nil {
		p.query.Buffer = req.Buffer.Cells(info.Transform)
		p.query.HasBuffer = true
	}

	switch {
	case req.Kind == domain.KindInterbasin:
		// one extra ring shows the cells draining into the buffered box
		p.window = p.query.Box.Pad(p.query.Buffer+1, full)
	case p.query.Bounds != nil:
		p.window = p.query.Bounds.Pad(1, full)
	default:
		w, ok, err := e.indexWindow(ctx, info, req, p.query)
		if err != nil {
			return nil, err
		}
		if ok {
			p.window = w
			p.narrowed = w != full
		}
	}
	return p, nil
}

// indexWindow is the union of the basin index records around the seeds,
// padded by one cell. ok is false when no index applies or nothing matched.
func (e *Engine) indexWindow(ctx context.Context, info domain.RasterInfo, req domain.Request, q flow.Query) (domain.Window, bool, error) {
	name := req.BasinIndex
	if name == "" {
		name = e.defaultIndex
	}
	if name == "" {
		return domain.Window{}, false, nil
	}
	idx, ok := e.indexes[name]
	if !ok {
		return domain.Window{}, false, fmt.Errorf("%w: unknown basin index %q", domain.ErrInvalidRequest, name)
	}

	full := info.Full()
	var out domain.Window
	add := func(records []domain.BasinRecord) {
		for _, r := range records {
			if w, err := info.WindowFor(r.Bounds); err == nil {
				out = out.Union(w)
			}
		}
	}
	if req.BBox != nil {
		records, err := idx.Intersecting(ctx, *req.BBox)
		if err != nil {
			return domain.Window{}, false, fmt.Errorf("basin index %s: %w", name, err)
		}
		if len(records) == 0 {
			return domain.Window{}, false, nil
		}
		add(records)
		out = out.Union(*q.Box)
	} else {
		for i, pt := range req.Points {
			records, err := idx.Containing(ctx, pt)
			if err != nil {
				return domain.Window{}, false, fmt.Errorf("basin index %s: %w", name, err)
			}
			// a seed outside every record could drain anywhere
			if len(records) == 0 {
				return domain.Window{}, false, nil
			}
			add(records)
			s := q.Seeds[i]
			out = out.Union(domain.Window{Row: s.Row, Col: s.Col, Rows: 1, Cols: 1})
		}
	}
	if out.Empty() {
		return domain.Window{}, false, nil
	}
	return out.Pad(1, full), true, nil
}

// widen falls back to the full grid.
func (p *plan) widen(info domain.RasterInfo) {
	p.window = info.Full()
	p.narrowed = false
}

// truncates reports whether res touches a side of win that is not also a
// side of the dataset, so cells outside win may belong to it.
func (p *plan) truncates(res *flow.Result, win domain.Window, info domain.RasterInfo) bool {
	inner := func(c domain.Cell) bool {
		return (c.Row == win.Row && win.Row > 0) ||
			(c.Col == win.Col && win.Col > 0) ||
			(c.Row == win.Row+win.Rows-1 && win.Row+win.Rows < info.Rows) ||
			(c.Col == win.Col+win.Cols-1 && win.Col+win.Cols < info.Cols)
	}
	for _, c := range res.Outlets {
		if inner(c) {
			return true
		}
	}
	for _, c := range res.Mask.Cells() {
		if inner(c) {
			return true
		}
	}
	return false
}
