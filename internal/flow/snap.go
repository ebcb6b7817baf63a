package flow

import (
	"context"

	"github.com/aretw0/catchment/pkg/domain"
)

// DefaultSnapRadius bounds outlet snapping, in flow-path steps, when a query
// does not set one.
const DefaultSnapRadius = 100

type candidate struct {
	k, dist int
}

// snap moves seed to the nearest cell on its flow path satisfying every
// threshold. The search runs downstream along the single flow path and
// upstream breadth-first, both at most radius steps. The shortest flow-path
// distance wins; ties go to the smaller row-major cell. escaped is set when
// either search hit the window edge before its limit, so a closer match may
// lie outside the window.
func (n *Network) snap(ctx context.Context, seed int, ths []domain.Threshold, radius int, within *domain.Window) (k int, escaped bool, err error) {
	eligible := func(k int) bool {
		return within == nil || within.Contains(n.cell(k))
	}
	var best *candidate
	consider := func(k, d int) {
		if !eligible(k) || !n.match(k, ths) {
			return
		}
		c := candidate{k: k, dist: d}
		if best == nil || c.dist < best.dist ||
			(c.dist == best.dist && compareCells(n.cell(c.k), n.cell(best.k)) < 0) {
			best = &c
		}
	}

	// downstream: the first match is the closest one on this side
	cur := seed
	for d := 0; d <= radius; d++ {
		consider(cur, d)
		if best != nil {
			break
		}
		r, ok := n.receiver(cur)
		if !ok {
			escaped = d < radius && n.escapes(cur)
			break
		}
		if r == seed {
			break
		}
		cur = r
	}

	limit := radius
	if best != nil {
		limit = best.dist
	}
	seen := map[int]bool{seed: true}
	level := []int{seed}
	buf := make([]int, 0, 8)
	for d := 1; d <= limit && len(level) > 0; d++ {
		if err := ctx.Err(); err != nil {
			return 0, escaped, err
		}
		var next []int
		for _, k := range level {
			if n.bordersOutside(k) {
				escaped = true
			}
			buf = n.upstream(k, buf[:0])
			for _, u := range buf {
				if seen[u] || !eligible(u) {
					continue
				}
				seen[u] = true
				next = append(next, u)
			}
		}
		for _, u := range next {
			consider(u, d)
		}
		if best != nil && best.dist <= d {
			break
		}
		level = next
	}

	if best == nil {
		win := n.win
		if within != nil {
			win = *within
		}
		c := n.cell(seed)
		return 0, escaped, &domain.NoMatchError{Thresholds: ths, Window: win, Seed: &c, Radius: radius}
	}
	return best.k, escaped, nil
}
