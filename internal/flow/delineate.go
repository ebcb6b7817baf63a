package flow

import (
	"context"
	"fmt"

	"github.com/aretw0/catchment/pkg/domain"
)

// Query is a region request resolved to dataset cells.
type Query struct {
	Kind       domain.Kind
	Seeds      []domain.Cell  // point seeds
	Box        *domain.Window // bbox seed
	Thresholds []domain.Threshold
	Bounds     *domain.Window // subbasin search and traversal limit
	Buffer     int            // cells
	HasBuffer  bool
	Outlets    bool // basin bbox: only basins whose outlet lies in Box
	SnapRadius int  // flow-path steps; 0 uses DefaultSnapRadius
}

// Result is a mask over the network window and the outlets it drains to.
type Result struct {
	Mask    *domain.Mask
	Outlets []domain.Cell

	// Truncated counts cells outside Bounds that drain into the mask.
	Truncated int
	// Escaped is set when a downstream walk or an outlet search stopped at
	// the window edge rather than at a pit or the dataset edge.
	Escaped bool
}

// Delineate computes the cells selected by q.
func (n *Network) Delineate(ctx context.Context, q Query) (*Result, error) {
	if err := n.checkVariables(q.Thresholds); err != nil {
		return nil, err
	}
	if q.SnapRadius <= 0 {
		q.SnapRadius = DefaultSnapRadius
	}
	seeds := make([]int, 0, len(q.Seeds))
	for _, c := range q.Seeds {
		k, ok := n.index(c)
		if !ok {
			return nil, fmt.Errorf("%w: seed %v outside flow window %v", domain.ErrOutOfBounds, c, n.win)
		}
		if n.dir(k).IsNoData() {
			return nil, fmt.Errorf("%w: seed %v is a no-data cell", domain.ErrInvalidRequest, c)
		}
		seeds = append(seeds, k)
	}
	if q.Box != nil {
		box, ok := q.Box.Intersect(n.win)
		if !ok {
			return nil, fmt.Errorf("%w: bbox window %v outside flow window %v", domain.ErrOutOfBounds, *q.Box, n.win)
		}
		q.Box = &box
	}

	switch q.Kind {
	case domain.KindBasin:
		if q.Box != nil {
			return n.basinBox(ctx, q)
		}
		return n.basin(ctx, seeds)
	case domain.KindSubbasin:
		if q.Box != nil {
			return n.subbasinBox(ctx, q)
		}
		return n.subbasin(ctx, q, seeds)
	case domain.KindInterbasin:
		if q.Box == nil {
			return nil, fmt.Errorf("%w: interbasin requires a bbox", domain.ErrInvalidRequest)
		}
		return n.interbasin(ctx, q)
	}
	return nil, fmt.Errorf("%w: unknown kind %v", domain.ErrInvalidRequest, q.Kind)
}

// basin selects the whole basin of each seed: the contributing area of the
// terminal outlet its flow path ends at.
func (n *Network) basin(ctx context.Context, seeds []int) (*Result, error) {
	outlets := make([]int, 0, len(seeds))
	escaped := false
	for _, s := range seeds {
		t, err := n.terminal(s)
		if err != nil {
			return nil, err
		}
		escaped = escaped || n.escapes(t)
		outlets = append(outlets, t)
	}
	res, err := n.collect(ctx, outlets, nil)
	if err != nil {
		return nil, err
	}
	res.Escaped = escaped
	return res, nil
}

// basinBox selects every basin with a cell in the box or, with q.Outlets,
// every basin whose outlet lies in the box. Thresholds filter on the outlet.
func (n *Network) basinBox(ctx context.Context, q Query) (*Result, error) {
	memo := map[int]int{}
	var outlets []int
	escaped := false
	box := *q.Box
	for r := box.Row; r < box.Row+box.Rows; r++ {
		for c := box.Col; c < box.Col+box.Cols; c++ {
			k, _ := n.index(domain.Cell{Row: r, Col: c})
			if n.dir(k).IsNoData() {
				continue
			}
			t, err := n.terminalMemo(k, memo)
			if err != nil {
				return nil, err
			}
			if n.escapes(t) {
				escaped = true
			}
			if q.Outlets && !box.Contains(n.cell(t)) {
				continue
			}
			if !n.match(t, q.Thresholds) {
				continue
			}
			outlets = append(outlets, t)
		}
	}
	if len(outlets) == 0 {
		return nil, &domain.NoMatchError{Thresholds: q.Thresholds, Window: box}
	}
	res, err := n.collect(ctx, outlets, nil)
	if err != nil {
		return nil, err
	}
	res.Escaped = escaped
	return res, nil
}

// subbasin selects the contributing area of each seed, snapped to the
// nearest cell satisfying the thresholds when there are any.
func (n *Network) subbasin(ctx context.Context, q Query, seeds []int) (*Result, error) {
	outlets := make([]int, 0, len(seeds))
	escaped := false
	for _, s := range seeds {
		if q.Bounds != nil && !q.Bounds.Contains(n.cell(s)) {
			return nil, fmt.Errorf("%w: seed %v outside bounds", domain.ErrInvalidRequest, n.cell(s))
		}
		o := s
		if len(q.Thresholds) > 0 {
			k, out, err := n.snap(ctx, s, q.Thresholds, q.SnapRadius, q.Bounds)
			if err != nil {
				return nil, err
			}
			o, escaped = k, escaped || out
		}
		outlets = append(outlets, o)
	}
	res, err := n.collect(ctx, outlets, q.Bounds)
	if err != nil {
		return nil, err
	}
	res.Escaped = escaped
	return res, nil
}

// subbasinBox selects the contributing area of every cell whose flow exits
// the box, restricted to cells satisfying the thresholds.
func (n *Network) subbasinBox(ctx context.Context, q Query) (*Result, error) {
	box := *q.Box
	if q.Bounds != nil {
		b, ok := box.Intersect(*q.Bounds)
		if !ok {
			return nil, fmt.Errorf("%w: bbox does not overlap bounds", domain.ErrInvalidRequest)
		}
		box = b
	}
	var outlets []int
	n.scan(box, func(k int) {
		if n.exits(k, box) && n.match(k, q.Thresholds) {
			outlets = append(outlets, k)
		}
	})
	if len(outlets) == 0 {
		return nil, &domain.NoMatchError{Thresholds: q.Thresholds, Window: box}
	}
	return n.collect(ctx, outlets, q.Bounds)
}

// interbasin selects the area inside the box that drains, within the box,
// to the streams leaving it. Traversal is confined to the box padded by the
// buffer and the mask is clipped to the box, so nothing upstream of a
// stream entering across the boundary is included.
func (n *Network) interbasin(ctx context.Context, q Query) (*Result, error) {
	box := *q.Box

	if len(q.Thresholds) > 0 && !q.HasBuffer {
		inward := false
		ring := box.Pad(1, n.win)
		n.scan(ring, func(u int) {
			if inward || box.Contains(n.cell(u)) || !n.match(u, q.Thresholds) {
				return
			}
			if _, ok := n.inflowFrom(u, box); ok {
				inward = true
			}
		})
		if inward {
			return nil, domain.ErrBufferRequired
		}
	}

	var outlets []int
	var err error
	n.scan(box, func(k int) {
		if err != nil || !n.exits(k, box) || !n.match(k, q.Thresholds) {
			return
		}
		reenters, werr := n.reenters(k, box, q.Buffer)
		if werr != nil {
			err = werr
			return
		}
		if !reenters {
			outlets = append(outlets, k)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(outlets) == 0 {
		return nil, &domain.NoMatchError{Thresholds: q.Thresholds, Window: box}
	}

	within := box.Pad(q.Buffer, n.win)
	res, err := n.collect(ctx, outlets, &within)
	if err != nil {
		return nil, err
	}
	for k, v := range res.Mask.Bits {
		if v && !box.Contains(n.cell(k)) {
			res.Mask.Bits[k] = false
		}
	}
	res.Truncated = 0
	return res, nil
}

// exits reports whether the flow of k leaves box or ends at k.
func (n *Network) exits(k int, box domain.Window) bool {
	if n.dir(k).IsNoData() {
		return false
	}
	r, ok := n.receiver(k)
	return !ok || !box.Contains(n.cell(r))
}

// reenters reports whether the flow path from k, having left box, comes back
// into it within buffer steps.
func (n *Network) reenters(k int, box domain.Window, buffer int) (bool, error) {
	cur := k
	for step := 0; step < buffer; step++ {
		r, ok := n.receiver(cur)
		if !ok {
			return false, nil
		}
		if r == k {
			return false, n.cycleError(k)
		}
		if box.Contains(n.cell(r)) {
			return true, nil
		}
		cur = r
	}
	return false, nil
}

// scan calls fn for every cell of w, which must lie inside the network window, in row-major order.
func (n *Network) scan(w domain.Window, fn func(k int)) {
	for r := w.Row; r < w.Row+w.Rows; r++ {
		for c := w.Col; c < w.Col+w.Cols; c++ {
			if k, ok := n.index(domain.Cell{Row: r, Col: c}); ok {
				fn(k)
			}
		}
	}
}

func (n *Network) collect(ctx context.Context, outlets []int, within *domain.Window) (*Result, error) {
	a, err := n.upstreamArea(ctx, outlets, within)
	if err != nil {
		return nil, err
	}
	cells := make([]domain.Cell, len(a.outlets))
	for i, k := range a.outlets {
		cells[i] = n.cell(k)
	}
	return &Result{Mask: n.mask(a.visited), Outlets: cells, Truncated: a.truncated}, nil
}
