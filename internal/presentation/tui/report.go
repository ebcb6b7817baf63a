package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/pkg/domain"
)

// Report renders a delineation as markdown. label names the request, e.g.
// the region document it came from.
func Report(label string, info domain.RasterInfo, d *domain.Delineation) string {
	var b strings.Builder

	title := d.Kind.String()
	if label != "" {
		title += ": " + label
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Cells | %d |\n", d.Cells())
	if area, ok := cellArea(info.Transform); ok {
		fmt.Fprintf(&b, "| Area | %s |\n", formatArea(float64(d.Cells())*area))
	}
	if d.Cells() > 0 {
		fmt.Fprintf(&b, "| Bounds | `%s` |\n", d.Mask.Bounds())
	}
	fmt.Fprintf(&b, "| Outlets | %d |\n", len(d.Outlets))

	if len(d.Outlets) > 0 {
		b.WriteString("\n## Outlets\n\n| Row | Col | X | Y |\n|---:|---:|---:|---:|\n")
		for _, o := range d.Outlets {
			fmt.Fprintf(&b, "| %d | %d | %g | %g |\n", o.Cell.Row, o.Cell.Col, o.Point.X, o.Point.Y)
		}
	}

	if len(d.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range d.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// StatsReport renders flow grid statistics as markdown.
func StatsReport(s *catchment.GridStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.Info.Name)
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Size | %d × %d |\n", s.Info.Rows, s.Info.Cols)
	fmt.Fprintf(&b, "| Extent | `%s` |\n", s.Info.Extent())
	if s.Info.CRS != "" {
		fmt.Fprintf(&b, "| CRS | %s |\n", s.Info.CRS)
	}
	fmt.Fprintf(&b, "| Flow cells | %d |\n", s.Cells)
	fmt.Fprintf(&b, "| No-data cells | %d |\n", s.NoData)
	fmt.Fprintf(&b, "| Outlets | %d (%d pits, %d leaving the grid) |\n", s.Outlets, s.Pits, s.Leaving)
	if s.MaxUpstream > 0 {
		fmt.Fprintf(&b, "| Largest basin | %d cells at %s |\n", s.MaxUpstream, s.Largest)
	}
	return b.String()
}

// cellArea is the area of one cell in squared map units.
func cellArea(t domain.Transform) (float64, bool) {
	a := math.Abs(t.A*t.E - t.B*t.D)
	return a, a > 0 && !math.IsInf(a, 0)
}

func formatArea(a float64) string {
	switch {
	case a >= 1e6:
		return fmt.Sprintf("%.3g × 10⁶ units²", a/1e6)
	default:
		return fmt.Sprintf("%g units²", a)
	}
}
