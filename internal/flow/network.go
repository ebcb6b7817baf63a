package flow

import (
	"fmt"

	"github.com/aretw0/catchment/pkg/domain"
)

// checkEvery is the number of frontier expansions between cancellation checks.
const checkEvery = 4096

// Network answers upstream and downstream queries over one immutable
// FlowGrid window and its co-registered variable bands. It holds no mutable
// state, so one Network may serve concurrent queries.
type Network struct {
	grid  *domain.FlowGrid
	win   domain.Window
	bands map[string]*domain.Band
}

// NewNetwork wraps grid. Bands are looked up by variable name when a query
// carries thresholds; they must cover the grid window.
func NewNetwork(grid *domain.FlowGrid, bands map[string]*domain.Band) *Network {
	if bands == nil {
		bands = map[string]*domain.Band{}
	}
	return &Network{grid: grid, win: grid.Window, bands: bands}
}

// Window returns the dataset window the network covers.
func (n *Network) Window() domain.Window { return n.win }

// Info returns the dataset metadata of the underlying grid.
func (n *Network) Info() domain.RasterInfo { return n.grid.Info }

func (n *Network) size() int { return len(n.grid.Dirs) }

func (n *Network) cell(k int) domain.Cell {
	return domain.Cell{Row: n.win.Row + k/n.win.Cols, Col: n.win.Col + k%n.win.Cols}
}

func (n *Network) index(c domain.Cell) (int, bool) {
	if !n.win.Contains(c) {
		return 0, false
	}
	return (c.Row-n.win.Row)*n.win.Cols + (c.Col - n.win.Col), true
}

func (n *Network) dir(k int) domain.Direction { return n.grid.Dirs[k] }

// receiver returns the cell k drains to. ok is false when k is terminal in
// this window: a pit, no-data, or flow leaving the window or into no-data.
func (n *Network) receiver(k int) (int, bool) {
	dr, dc, ok := n.dir(k).Offset()
	if !ok {
		return 0, false
	}
	c := n.cell(k)
	r, ok := n.index(domain.Cell{Row: c.Row + dr, Col: c.Col + dc})
	if !ok || n.dir(r).IsNoData() {
		return 0, false
	}
	return r, true
}

// leaves reports whether k points out of the window (as opposed to a pit).
func (n *Network) leaves(k int) bool {
	dr, dc, ok := n.dir(k).Offset()
	if !ok {
		return false
	}
	c := n.cell(k)
	return !n.win.Contains(domain.Cell{Row: c.Row + dr, Col: c.Col + dc})
}

// escapes reports whether k drains to a dataset cell outside the window, so
// a walk stopping at k was cut short by the window.
func (n *Network) escapes(k int) bool {
	dr, dc, ok := n.dir(k).Offset()
	if !ok {
		return false
	}
	c := n.cell(k)
	t := domain.Cell{Row: c.Row + dr, Col: c.Col + dc}
	return !n.win.Contains(t) && n.grid.Info.Full().Contains(t)
}

// bordersOutside reports whether k has a neighbour in the dataset but
// outside the window, which may drain into k unseen.
func (n *Network) bordersOutside(k int) bool {
	c := n.cell(k)
	full := n.grid.Info.Full()
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			t := domain.Cell{Row: c.Row + dr, Col: c.Col + dc}
			if (dr != 0 || dc != 0) && !n.win.Contains(t) && full.Contains(t) {
				return true
			}
		}
	}
	return false
}

// upstream appends to buf the neighbours of k that drain into it. This is
// the inverse of the flow pointer evaluated locally, so no upstream table is
// built for the whole grid.
func (n *Network) upstream(k int, buf []int) []int {
	c := n.cell(k)
	for _, d := range domain.Directions {
		dr, dc, _ := d.Offset()
		u, ok := n.index(domain.Cell{Row: c.Row + dr, Col: c.Col + dc})
		if !ok {
			continue
		}
		// the neighbour in direction d drains into c when it points back along d
		if n.dir(u) == d.Opposite() {
			buf = append(buf, u)
		}
	}
	return buf
}

// inflowFrom returns the receiver of u when it lies inside within.
func (n *Network) inflowFrom(u int, within domain.Window) (int, bool) {
	r, ok := n.receiver(u)
	if !ok || !within.Contains(n.cell(r)) {
		return 0, false
	}
	return r, true
}

// match reports whether cell k satisfies every threshold.
func (n *Network) match(k int, ths []domain.Threshold) bool {
	c := n.cell(k)
	for _, t := range ths {
		v, ok := n.bands[t.Variable].At(c)
		if !ok || !t.Match(v) {
			return false
		}
	}
	return true
}

func (n *Network) checkVariables(ths []domain.Threshold) error {
	for _, t := range ths {
		b, ok := n.bands[t.Variable]
		if !ok || b == nil {
			return fmt.Errorf("%w: %q", domain.ErrUnknownVariable, t.Variable)
		}
		if !b.Window.ContainsWindow(n.win) {
			return fmt.Errorf("variable %q covers %v, flow grid needs %v", t.Variable, b.Window, n.win)
		}
	}
	return nil
}
