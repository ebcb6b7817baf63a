package domain

import (
	"encoding/json"
	"errors"
)

// Outlet is the most-downstream cell of a delineated area.
type Outlet struct {
	Cell  Cell  `json:"cell"`
	Point Point `json:"point"`
}

// OutletSet is ordered by discovery.
type OutletSet []Outlet

// Cells returns the outlet cells in order.
func (s OutletSet) Cells() []Cell {
	out := make([]Cell, len(s))
	for i, o := range s {
		out[i] = o.Cell
	}
	return out
}

// Delineation is the result of one region request.
type Delineation struct {
	Kind    Kind      `json:"kind"`
	Mask    *Mask     `json:"mask"`
	Outlets OutletSet `json:"outlets"`

	// Warnings holds non-fatal conditions such as *IncompleteBasinWarning.
	Warnings []error `json:"-"`
}

type delineationJSON struct {
	Kind       Kind                      `json:"kind"`
	Mask       *Mask                     `json:"mask"`
	Outlets    OutletSet                 `json:"outlets"`
	Incomplete []*IncompleteBasinWarning `json:"incomplete,omitempty"`
	Warnings   []string                  `json:"warnings,omitempty"`
}

// MarshalJSON keeps incomplete-basin warnings typed and other warnings as text.
func (d *Delineation) MarshalJSON() ([]byte, error) {
	v := delineationJSON{Kind: d.Kind, Mask: d.Mask, Outlets: d.Outlets}
	for _, w := range d.Warnings {
		var ib *IncompleteBasinWarning
		if errors.As(w, &ib) {
			v.Incomplete = append(v.Incomplete, ib)
			continue
		}
		v.Warnings = append(v.Warnings, w.Error())
	}
	return json.Marshal(v)
}

func (d *Delineation) UnmarshalJSON(b []byte) error {
	var v delineationJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = Delineation{Kind: v.Kind, Mask: v.Mask, Outlets: v.Outlets}
	for _, w := range v.Incomplete {
		d.Warnings = append(d.Warnings, w)
	}
	for _, w := range v.Warnings {
		d.Warnings = append(d.Warnings, errors.New(w))
	}
	return nil
}

// Cells is the number of cells in the mask.
func (d *Delineation) Cells() int {
	if d == nil || d.Mask == nil {
		return 0
	}
	return d.Mask.Count()
}

// BasinRecord is one entry of a basin index.
type BasinRecord struct {
	ID         int                `json:"id" yaml:"id"`
	Bounds     BBox               `json:"bounds" yaml:"bounds"`
	Outlet     Point              `json:"outlet" yaml:"outlet"`
	Attributes map[string]float64 `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}
