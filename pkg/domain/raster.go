package domain

import (
	"fmt"
	"math"
)

// edgeTolerance is the fraction of a cell within which a point on the far
// edge of the extent still resolves to the last row or column.
const edgeTolerance = 1e-9

// RasterInfo is the metadata of a dataset, available without reading values.
type RasterInfo struct {
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Transform Transform `json:"transform"`
	CRS       string    `json:"crs,omitempty"`
	NoData    float64   `json:"nodata"`
}

// Full is the window covering the whole dataset.
func (i RasterInfo) Full() Window { return Window{Rows: i.Rows, Cols: i.Cols} }

// Extent returns the bounding box of the dataset in map units.
func (i RasterInfo) Extent() BBox {
	return windowBounds(i.Transform, i.Full())
}

// Bounds returns the map extent of a window of this dataset.
func (i RasterInfo) Bounds(w Window) BBox {
	return windowBounds(i.Transform, w)
}

func windowBounds(t Transform, w Window) BBox {
	var b BBox
	for k, corner := range [4][2]int{{w.Col, w.Row}, {w.Col + w.Cols, w.Row}, {w.Col, w.Row + w.Rows}, {w.Col + w.Cols, w.Row + w.Rows}} {
		x, y := t.Apply(float64(corner[0]), float64(corner[1]))
		if k == 0 {
			b = BBox{XMin: x, YMin: y, XMax: x, YMax: y}
			continue
		}
		b = b.Union(BBox{XMin: x, YMin: y, XMax: x, YMax: y})
	}
	return b
}

// CellAt resolves a point to the cell containing it. A point exactly on the
// outer edge of the extent belongs to the adjacent edge cell.
func (i RasterInfo) CellAt(p Point) (Cell, error) {
	col, row, err := i.Transform.Invert(p.X, p.Y)
	if err != nil {
		return Cell{}, err
	}
	c, ok := snapIndex(col, i.Cols)
	r, ok2 := snapIndex(row, i.Rows)
	if !ok || !ok2 {
		return Cell{}, &OutOfBoundsError{Point: &p, Extent: i.Extent()}
	}
	return Cell{Row: r, Col: c}, nil
}

func snapIndex(v float64, n int) (int, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	if v < 0 {
		if v > -edgeTolerance {
			return 0, true
		}
		return 0, false
	}
	f := int(math.Floor(v))
	if f >= n {
		if f == n && v-float64(n) < edgeTolerance {
			return n - 1, true
		}
		return 0, false
	}
	return f, true
}

// CellCenter returns the map coordinates of the centre of a dataset cell.
func (i RasterInfo) CellCenter(c Cell) Point {
	x, y := i.Transform.Apply(float64(c.Col)+0.5, float64(c.Row)+0.5)
	return Point{X: x, Y: y}
}

// WindowFor returns the cells overlapping b, clipped to the dataset. It
// fails with an OutOfBoundsError when b does not overlap the dataset.
func (i RasterInfo) WindowFor(b BBox) (Window, error) {
	minC, minR := math.Inf(1), math.Inf(1)
	maxC, maxR := math.Inf(-1), math.Inf(-1)
	for _, p := range [4]Point{{b.XMin, b.YMin}, {b.XMin, b.YMax}, {b.XMax, b.YMin}, {b.XMax, b.YMax}} {
		c, r, err := i.Transform.Invert(p.X, p.Y)
		if err != nil {
			return Window{}, err
		}
		minC, maxC = math.Min(minC, c), math.Max(maxC, c)
		minR, maxR = math.Min(minR, r), math.Max(maxR, r)
	}
	w := Window{
		Row: int(math.Floor(minR + edgeTolerance)),
		Col: int(math.Floor(minC + edgeTolerance)),
	}
	w.Rows = int(math.Ceil(maxR-edgeTolerance)) - w.Row
	w.Cols = int(math.Ceil(maxC-edgeTolerance)) - w.Col
	out, ok := w.Intersect(i.Full())
	if !ok {
		return Window{}, &OutOfBoundsError{BBox: &b, Extent: i.Extent()}
	}
	return out, nil
}

// Sub returns the metadata of a window of this dataset.
func (i RasterInfo) Sub(w Window) RasterInfo {
	out := i
	out.Rows, out.Cols = w.Rows, w.Cols
	out.Transform = i.Transform.Shift(w.Row, w.Col)
	return out
}

// Band is a window of float values read from a dataset.
type Band struct {
	Info   RasterInfo `json:"info"`   // metadata of the full dataset
	Window Window     `json:"window"` // position of Values within the dataset
	Values []float64  `json:"-"`
}

// At returns the value of dataset cell c; ok is false outside the window or on no-data.
func (b *Band) At(c Cell) (float64, bool) {
	if b == nil || !b.Window.Contains(c) {
		return 0, false
	}
	v := b.Values[(c.Row-b.Window.Row)*b.Window.Cols+(c.Col-b.Window.Col)]
	if v == b.Info.NoData || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// FlowGrid is a window of D8 flow directions.
type FlowGrid struct {
	Info   RasterInfo
	Window Window
	Dirs   []Direction
}

// NewFlowGrid converts a band of direction codes, rejecting malformed codes.
// The band's no-data value maps to DirNoData.
func NewFlowGrid(b *Band) (*FlowGrid, error) {
	if len(b.Values) != b.Window.Size() {
		return nil, fmt.Errorf("flow band has %d values for a %dx%d window", len(b.Values), b.Window.Rows, b.Window.Cols)
	}
	dirs := make([]Direction, len(b.Values))
	for k, v := range b.Values {
		if v == b.Info.NoData || math.IsNaN(v) {
			dirs[k] = DirNoData
			continue
		}
		if v != math.Trunc(v) || v < 0 || v > 255 || !Direction(v).Valid() {
			c := Cell{Row: b.Window.Row + k/b.Window.Cols, Col: b.Window.Col + k%b.Window.Cols}
			return nil, &InvalidFlowGridError{Cells: []Cell{c}, Reason: fmt.Sprintf("malformed direction code %g", v)}
		}
		dirs[k] = Direction(v)
	}
	return &FlowGrid{Info: b.Info, Window: b.Window, Dirs: dirs}, nil
}

// At returns the direction of dataset cell c, DirNoData outside the window.
func (g *FlowGrid) At(c Cell) Direction {
	if !g.Window.Contains(c) {
		return DirNoData
	}
	return g.Dirs[(c.Row-g.Window.Row)*g.Window.Cols+(c.Col-g.Window.Col)]
}
