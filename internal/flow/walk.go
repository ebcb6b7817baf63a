package flow

import (
	"slices"

	"github.com/aretw0/catchment/pkg/domain"
)

// terminal follows the flow path from k to the last cell inside the window.
// A path longer than the window holds cells can only be a cycle.
func (n *Network) terminal(k int) (int, error) {
	steps := 0
	for {
		r, ok := n.receiver(k)
		if !ok {
			return k, nil
		}
		k = r
		steps++
		if steps > n.size() {
			return 0, n.cycleError(k)
		}
	}
}

// terminalMemo is terminal with a shared memo; every cell on the walked
// path is recorded so overlapping paths are walked once.
func (n *Network) terminalMemo(k int, memo map[int]int) (int, error) {
	var path []int
	cur := k
	for {
		if t, ok := memo[cur]; ok {
			for _, p := range path {
				memo[p] = t
			}
			return t, nil
		}
		path = append(path, cur)
		r, ok := n.receiver(cur)
		if !ok {
			for _, p := range path {
				memo[p] = cur
			}
			return cur, nil
		}
		cur = r
		if len(path) > n.size() {
			return 0, n.cycleError(cur)
		}
	}
}

// cycleError walks downstream from k and reports the cycle it ends in.
func (n *Network) cycleError(k int) error {
	seen := map[int]int{}
	var path []int
	cur := k
	for {
		if at, ok := seen[cur]; ok {
			cells := make([]domain.Cell, 0, len(path)-at)
			for _, p := range path[at:] {
				cells = append(cells, n.cell(p))
			}
			slices.SortFunc(cells, compareCells)
			return &domain.InvalidFlowGridError{Cells: cells, Reason: "flow directions form a cycle"}
		}
		seen[cur] = len(path)
		path = append(path, cur)
		r, ok := n.receiver(cur)
		if !ok {
			// the path terminates; report where the inconsistency was found
			return &domain.InvalidFlowGridError{Cells: []domain.Cell{n.cell(k)}, Reason: "flow directions form a cycle"}
		}
		cur = r
	}
}

// reaches reports whether the flow path from k arrives at a cell in targets
// other than k itself. A path that returns to k is a cycle.
func (n *Network) reaches(k int, targets map[int]bool) (bool, error) {
	cur := k
	for steps := 0; ; steps++ {
		r, ok := n.receiver(cur)
		if !ok {
			return false, nil
		}
		if r == k || steps > n.size() {
			return false, n.cycleError(r)
		}
		if targets[r] {
			return true, nil
		}
		cur = r
	}
}

func compareCells(a, b domain.Cell) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Col - b.Col
}
