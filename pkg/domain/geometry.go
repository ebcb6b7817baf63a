package domain

import (
	"fmt"
	"math"
)

// Point is a location in map units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string { return fmt.Sprintf("[%g, %g]", p.X, p.Y) }

// BBox is an axis-aligned box in map units.
type BBox struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Valid reports whether the box has a positive extent on both axes.
func (b BBox) Valid() bool {
	return b.XMin < b.XMax && b.YMin < b.YMax &&
		!math.IsNaN(b.XMin) && !math.IsNaN(b.YMin) && !math.IsNaN(b.XMax) && !math.IsNaN(b.YMax)
}

// Contains reports whether p lies inside b, edges included.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.XMin && p.X <= b.XMax && p.Y >= b.YMin && p.Y <= b.YMax
}

// ContainsBox reports whether o lies entirely inside b.
func (b BBox) ContainsBox(o BBox) bool {
	return o.XMin >= b.XMin && o.XMax <= b.XMax && o.YMin >= b.YMin && o.YMax <= b.YMax
}

// Intersects reports whether the two boxes share any area or edge.
func (b BBox) Intersects(o BBox) bool {
	return b.XMin <= o.XMax && o.XMin <= b.XMax && b.YMin <= o.YMax && o.YMin <= b.YMax
}

// Buffer grows the box by d on every side.
func (b BBox) Buffer(d float64) BBox {
	return BBox{XMin: b.XMin - d, YMin: b.YMin - d, XMax: b.XMax + d, YMax: b.YMax + d}
}

// Union returns the smallest box covering both.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		XMin: math.Min(b.XMin, o.XMin),
		YMin: math.Min(b.YMin, o.YMin),
		XMax: math.Max(b.XMax, o.XMax),
		YMax: math.Max(b.YMax, o.YMax),
	}
}

func (b BBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.XMin, b.YMin, b.XMax, b.YMax)
}

// Cell addresses a raster cell by row and column.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string { return fmt.Sprintf("(%d, %d)", c.Row, c.Col) }

// Window is a rectangular block of cells in dataset coordinates.
type Window struct {
	Row  int `json:"row"`
	Col  int `json:"col"`
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Empty reports whether the window covers no cells.
func (w Window) Empty() bool { return w.Rows <= 0 || w.Cols <= 0 }

// Size is the number of cells in the window.
func (w Window) Size() int {
	if w.Empty() {
		return 0
	}
	return w.Rows * w.Cols
}

// Contains reports whether the dataset cell c falls inside w.
func (w Window) Contains(c Cell) bool {
	return c.Row >= w.Row && c.Row < w.Row+w.Rows && c.Col >= w.Col && c.Col < w.Col+w.Cols
}

// ContainsWindow reports whether o lies entirely inside w.
func (w Window) ContainsWindow(o Window) bool {
	return o.Row >= w.Row && o.Col >= w.Col && o.Row+o.Rows <= w.Row+w.Rows && o.Col+o.Cols <= w.Col+w.Cols
}

// Intersect returns the overlap of two windows; ok is false when they are disjoint.
func (w Window) Intersect(o Window) (Window, bool) {
	r0, c0 := max(w.Row, o.Row), max(w.Col, o.Col)
	r1, c1 := min(w.Row+w.Rows, o.Row+o.Rows), min(w.Col+w.Cols, o.Col+o.Cols)
	out := Window{Row: r0, Col: c0, Rows: r1 - r0, Cols: c1 - c0}
	return out, !out.Empty()
}

// Union returns the smallest window covering both.
func (w Window) Union(o Window) Window {
	if w.Empty() {
		return o
	}
	if o.Empty() {
		return w
	}
	r0, c0 := min(w.Row, o.Row), min(w.Col, o.Col)
	r1, c1 := max(w.Row+w.Rows, o.Row+o.Rows), max(w.Col+w.Cols, o.Col+o.Cols)
	return Window{Row: r0, Col: c0, Rows: r1 - r0, Cols: c1 - c0}
}

// Pad grows the window by n cells on every side, clipped to limit.
func (w Window) Pad(n int, limit Window) Window {
	p := Window{Row: w.Row - n, Col: w.Col - n, Rows: w.Rows + 2*n, Cols: w.Cols + 2*n}
	out, _ := p.Intersect(limit)
	return out
}

// Edge reports whether c lies on the outer ring of w.
func (w Window) Edge(c Cell) bool {
	return w.Contains(c) &&
		(c.Row == w.Row || c.Row == w.Row+w.Rows-1 || c.Col == w.Col || c.Col == w.Col+w.Cols-1)
}

func (w Window) String() string {
	return fmt.Sprintf("rows %d..%d, cols %d..%d", w.Row, w.Row+w.Rows-1, w.Col, w.Col+w.Cols-1)
}

// Transform is an affine mapping from (col, row) to map coordinates:
//
//	x = C + A*col + B*row
//	y = F + D*col + E*row
type Transform struct {
	A, B, C, D, E, F float64
}

// NorthUp builds the usual transform of a non-rotated grid whose upper-left
// corner is (xmin, ymax).
func NorthUp(xmin, ymax, cellSize float64) Transform {
	return Transform{A: cellSize, C: xmin, E: -cellSize, F: ymax}
}

// Apply maps fractional grid coordinates to map coordinates.
func (t Transform) Apply(col, row float64) (x, y float64) {
	return t.C + t.A*col + t.B*row, t.F + t.D*col + t.E*row
}

// Invert maps map coordinates to fractional grid coordinates.
func (t Transform) Invert(x, y float64) (col, row float64, err error) {
	det := t.A*t.E - t.B*t.D
	if det == 0 {
		return 0, 0, fmt.Errorf("transform is not invertible")
	}
	dx, dy := x-t.C, y-t.F
	col = (t.E*dx - t.B*dy) / det
	row = (-t.D*dx + t.A*dy) / det
	return col, row, nil
}

// Shift returns the transform of a window whose upper-left cell is (row, col).
func (t Transform) Shift(row, col int) Transform {
	x, y := t.Apply(float64(col), float64(row))
	out := t
	out.C, out.F = x, y
	return out
}

// CellSize returns the smaller of the two cell edge lengths in map units.
func (t Transform) CellSize() float64 {
	return math.Min(math.Hypot(t.A, t.D), math.Hypot(t.B, t.E))
}
