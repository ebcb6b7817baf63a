package domain

import "encoding/json"

// Mask marks the cells of a delineation. It is aligned to the grid it was
// computed on: Window places it within the dataset and Transform is the
// affine of its upper-left cell.
type Mask struct {
	Window    Window    `json:"window"`
	Transform Transform `json:"transform"`
	Bits      []bool    `json:"-"`
}

// NewMask allocates an empty mask over window w of the dataset described by info.
func NewMask(info RasterInfo, w Window) *Mask {
	return &Mask{
		Window:    w,
		Transform: info.Transform.Shift(w.Row, w.Col),
		Bits:      make([]bool, w.Size()),
	}
}

func (m *Mask) index(c Cell) (int, bool) {
	if !m.Window.Contains(c) {
		return 0, false
	}
	return (c.Row-m.Window.Row)*m.Window.Cols + (c.Col - m.Window.Col), true
}

// Has reports whether dataset cell c is marked.
func (m *Mask) Has(c Cell) bool {
	k, ok := m.index(c)
	return ok && m.Bits[k]
}

// Set marks dataset cell c. Cells outside the window are ignored.
func (m *Mask) Set(c Cell) {
	if k, ok := m.index(c); ok {
		m.Bits[k] = true
	}
}

// Count returns the number of marked cells.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Cells lists the marked cells in row-major order.
func (m *Mask) Cells() []Cell {
	out := make([]Cell, 0, m.Count())
	for k, b := range m.Bits {
		if b {
			out = append(out, Cell{Row: m.Window.Row + k/m.Window.Cols, Col: m.Window.Col + k%m.Window.Cols})
		}
	}
	return out
}

// Extent returns the window tightly enclosing the marked cells; ok is false
// for an empty mask.
func (m *Mask) Extent() (Window, bool) {
	r0, c0, r1, c1 := -1, -1, -1, -1
	for k, b := range m.Bits {
		if !b {
			continue
		}
		r, c := m.Window.Row+k/m.Window.Cols, m.Window.Col+k%m.Window.Cols
		if r0 < 0 || r < r0 {
			r0 = r
		}
		if r > r1 {
			r1 = r
		}
		if c0 < 0 || c < c0 {
			c0 = c
		}
		if c > c1 {
			c1 = c
		}
	}
	if r0 < 0 {
		return Window{}, false
	}
	return Window{Row: r0, Col: c0, Rows: r1 - r0 + 1, Cols: c1 - c0 + 1}, true
}

// Crop returns a copy restricted to w (in dataset coordinates).
func (m *Mask) Crop(w Window) *Mask {
	w, _ = w.Intersect(m.Window)
	out := &Mask{
		Window:    w,
		Transform: m.Transform.Shift(w.Row-m.Window.Row, w.Col-m.Window.Col),
		Bits:      make([]bool, w.Size()),
	}
	for r := 0; r < w.Rows; r++ {
		src := (w.Row-m.Window.Row+r)*m.Window.Cols + (w.Col - m.Window.Col)
		copy(out.Bits[r*w.Cols:(r+1)*w.Cols], m.Bits[src:src+w.Cols])
	}
	return out
}

// Tight crops the mask to the extent of its marked cells. An empty mask
// is returned unchanged.
func (m *Mask) Tight() *Mask {
	w, ok := m.Extent()
	if !ok {
		return m
	}
	return m.Crop(w)
}

// Bounds returns the map extent of the mask window.
func (m *Mask) Bounds() BBox {
	return windowBounds(m.Transform, Window{Rows: m.Window.Rows, Cols: m.Window.Cols})
}

// Equal reports whether two masks cover the same window with the same bits.
func (m *Mask) Equal(o *Mask) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Window != o.Window || len(m.Bits) != len(o.Bits) {
		return false
	}
	for k := range m.Bits {
		if m.Bits[k] != o.Bits[k] {
			return false
		}
	}
	return true
}

// Contains reports whether every marked cell of o is marked in m.
func (m *Mask) Contains(o *Mask) bool {
	for _, c := range o.Cells() {
		if !m.Has(c) {
			return false
		}
	}
	return true
}

// Runs encodes the mask as row-major run lengths of alternating unmarked
// and marked cells, starting with unmarked.
func (m *Mask) Runs() []int {
	runs := []int{}
	cur, n := false, 0
	for _, b := range m.Bits {
		if b == cur {
			n++
			continue
		}
		runs = append(runs, n)
		cur, n = b, 1
	}
	return append(runs, n)
}

// MaskFromRuns rebuilds a mask encoded by Runs.
func MaskFromRuns(w Window, t Transform, runs []int) *Mask {
	m := &Mask{Window: w, Transform: t, Bits: make([]bool, w.Size())}
	k, cur := 0, false
	for _, n := range runs {
		for j := 0; j < n && k < len(m.Bits); j++ {
			m.Bits[k] = cur
			k++
		}
		cur = !cur
	}
	return m
}

type maskJSON struct {
	Window    Window    `json:"window"`
	Transform Transform `json:"transform"`
	Runs      []int     `json:"runs"`
}

// MarshalJSON encodes the bits as run lengths.
func (m *Mask) MarshalJSON() ([]byte, error) {
	return json.Marshal(maskJSON{Window: m.Window, Transform: m.Transform, Runs: m.Runs()})
}

func (m *Mask) UnmarshalJSON(b []byte) error {
	var v maskJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = *MaskFromRuns(v.Window, v.Transform, v.Runs)
	return nil
}
