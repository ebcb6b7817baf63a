package flow

import (
	"context"
	"slices"

	"github.com/aretw0/catchment/pkg/domain"
)

// order returns the cells of the window in topological order, sources first,
// by repeatedly peeling cells with no remaining inflow. Cells left with
// inflow after the peel lie on cycles and are returned as stuck.
func (n *Network) order(ctx context.Context) (order, stuck []int, err error) {
	indeg := make([]int32, n.size())
	for k := range indeg {
		if r, ok := n.receiver(k); ok {
			indeg[r]++
		}
	}
	queue := make([]int, 0, n.size())
	for k, d := range indeg {
		if d == 0 && !n.dir(k).IsNoData() {
			queue = append(queue, k)
		}
	}
	for head := 0; head < len(queue); head++ {
		if head%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		if r, ok := n.receiver(queue[head]); ok {
			indeg[r]--
			if indeg[r] == 0 {
				queue = append(queue, r)
			}
		}
	}
	for k, d := range indeg {
		if d > 0 {
			stuck = append(stuck, k)
		}
	}
	return queue, stuck, nil
}

// Validate checks the whole window for cycles in O(cells).
func (n *Network) Validate(ctx context.Context) error {
	_, stuck, err := n.order(ctx)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}
	cells := make([]domain.Cell, len(stuck))
	for i, k := range stuck {
		cells[i] = n.cell(k)
	}
	slices.SortFunc(cells, compareCells)
	return &domain.InvalidFlowGridError{Cells: cells, Reason: "flow directions form a cycle"}
}

// Accumulate returns, for every cell of the window, the number of cells
// draining through it, itself included. No-data cells hold the band's
// no-data value.
func (n *Network) Accumulate(ctx context.Context) (*domain.Band, error) {
	order, stuck, err := n.order(ctx)
	if err != nil {
		return nil, err
	}
	if len(stuck) > 0 {
		return nil, n.cycleError(stuck[0])
	}
	acc := make([]float64, n.size())
	for _, k := range order {
		acc[k]++
		if r, ok := n.receiver(k); ok {
			acc[r] += acc[k]
		}
	}
	info := n.grid.Info
	info.NoData = -1
	for k := range acc {
		if n.dir(k).IsNoData() {
			acc[k] = info.NoData
		}
	}
	return &domain.Band{Info: info, Window: n.win, Values: acc}, nil
}

// Outlets lists the terminal cells of the window in row-major order: pits
// and cells whose flow leaves the window.
func (n *Network) Outlets() []domain.Cell {
	var out []domain.Cell
	for k := 0; k < n.size(); k++ {
		if n.dir(k).IsNoData() {
			continue
		}
		if _, ok := n.receiver(k); !ok {
			out = append(out, n.cell(k))
		}
	}
	return out
}

// Pits counts the outlets that are pits rather than flow leaving the window.
func (n *Network) Pits() int {
	pits := 0
	for k := 0; k < n.size(); k++ {
		if n.dir(k).IsPit() {
			pits++
		}
	}
	return pits
}

// Leaving counts cells whose flow points off the window.
func (n *Network) Leaving() int {
	c := 0
	for k := 0; k < n.size(); k++ {
		if n.leaves(k) {
			c++
		}
	}
	return c
}
