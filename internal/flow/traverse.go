package flow

import (
	"context"

	"github.com/aretw0/catchment/pkg/domain"
)

// area is the outcome of an upstream traversal.
type area struct {
	visited   []bool
	outlets   []int // outlets not nested upstream of another outlet, in input order
	truncated int   // cells outside the confinement window that drain into the area
}

// upstreamArea marks every cell draining into one of outlets. The traversal
// is a BFS over the upstream relation: the outlets start visited, and it
// ends when the frontier is empty. When within is set, cells outside it are
// not entered and are counted as truncated instead.
//
// Each cell has one receiver, so it can only be reached once; reaching a
// visited cell again means either that it is an outlet nested upstream of
// another outlet, or that the flow directions form a cycle.
func (n *Network) upstreamArea(ctx context.Context, outlets []int, within *domain.Window) (*area, error) {
	visited := make([]bool, n.size())
	seeds := make(map[int]bool, len(outlets))
	order := make([]int, 0, len(outlets))
	for _, o := range outlets {
		if !seeds[o] {
			seeds[o] = true
			order = append(order, o)
		}
	}

	queue := make([]int, 0, len(order))
	for _, o := range order {
		visited[o] = true
		queue = append(queue, o)
	}

	nested := map[int]bool{}
	truncated := 0
	buf := make([]int, 0, 8)
	for head := 0; head < len(queue); head++ {
		if head%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		buf = n.upstream(queue[head], buf[:0])
		for _, u := range buf {
			if within != nil && !within.Contains(n.cell(u)) {
				truncated++
				continue
			}
			if !visited[u] {
				visited[u] = true
				queue = append(queue, u)
				continue
			}
			if seeds[u] {
				ok, err := n.reaches(u, seeds)
				if err != nil {
					return nil, err
				}
				if ok {
					nested[u] = true
					continue
				}
			}
			return nil, n.cycleError(u)
		}
	}

	kept := order[:0:0]
	for _, o := range order {
		if !nested[o] {
			kept = append(kept, o)
		}
	}
	return &area{visited: visited, outlets: kept, truncated: truncated}, nil
}

func (n *Network) mask(visited []bool) *domain.Mask {
	m := domain.NewMask(n.grid.Info, n.win)
	copy(m.Bits, visited)
	return m
}
