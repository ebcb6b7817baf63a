package domain

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects how a region is delineated.
type Kind int

const (
	KindBasin Kind = iota + 1
	KindSubbasin
	KindInterbasin
)

// Kinds lists the supported kinds in their canonical order.
var Kinds = []Kind{KindBasin, KindSubbasin, KindInterbasin}

func (k Kind) String() string {
	switch k {
	case KindBasin:
		return "basin"
	case KindSubbasin:
		return "subbasin"
	case KindInterbasin:
		return "interbasin"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a region key to its Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basin":
		return KindBasin, nil
	case "subbasin":
		return KindSubbasin, nil
	case "interbasin":
		return KindInterbasin, nil
	}
	return 0, fmt.Errorf("%w: unknown region kind %q", ErrInvalidRequest, s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Threshold is the predicate `Variable >= Value` evaluated on a co-registered band.
type Threshold struct {
	Variable string  `json:"variable" yaml:"variable"`
	Value    float64 `json:"value" yaml:"value"`
}

// Match reports whether v satisfies the threshold.
func (t Threshold) Match(v float64) bool { return v >= t.Value }

func (t Threshold) String() string { return fmt.Sprintf("%s >= %g", t.Variable, t.Value) }

// BufferUnit is the unit a Buffer distance is expressed in.
type BufferUnit string

const (
	UnitCells BufferUnit = "cells"
	UnitMap   BufferUnit = "map"
)

// Buffer is a distance around a bounding box.
type Buffer struct {
	Value float64    `json:"value" yaml:"value"`
	Unit  BufferUnit `json:"unit" yaml:"unit"`
}

// Cells converts the buffer to a whole number of cells of a grid.
func (b Buffer) Cells(t Transform) int {
	if b.Value <= 0 {
		return 0
	}
	if b.Unit == UnitMap {
		return int(math.Ceil(b.Value/t.CellSize() - edgeTolerance))
	}
	return int(math.Ceil(b.Value - edgeTolerance))
}

// Request is a region selection: a kind, one seed form, and its options.
type Request struct {
	Kind Kind `json:"kind"`

	// Exactly one of Points or BBox is set.
	Points []Point `json:"points,omitempty"`
	BBox   *BBox   `json:"bbox,omitempty"`

	Thresholds []Threshold `json:"thresholds,omitempty"`
	Bounds     *BBox       `json:"bounds,omitempty"`
	Buffer     *Buffer     `json:"buffer,omitempty"`

	// Outlets restricts a basin bbox selection to basins whose outlet lies in the box.
	Outlets bool `json:"outlets,omitempty"`

	// BasinIndex names a registered index used to narrow the read window.
	BasinIndex string `json:"basin_index,omitempty"`

	// SnapRadius bounds outlet snapping in flow-path steps; 0 uses the engine default.
	SnapRadius int `json:"snap_radius,omitempty"`
}

// Variables lists the distinct threshold variables in request order.
func (r Request) Variables() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range r.Thresholds {
		if !seen[t.Variable] {
			seen[t.Variable] = true
			out = append(out, t.Variable)
		}
	}
	return out
}

// Check enforces the structural rules that do not depend on a grid.
func (r Request) Check() error {
	switch r.Kind {
	case KindBasin, KindSubbasin:
		if (len(r.Points) == 0) == (r.BBox == nil) {
			return fmt.Errorf("%w: %s requires either points or a bbox", ErrInvalidRequest, r.Kind)
		}
	case KindInterbasin:
		if r.BBox == nil || len(r.Points) > 0 {
			return fmt.Errorf("%w: interbasin requires a bbox", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidRequest, r.Kind)
	}
	if r.BBox != nil && !r.BBox.Valid() {
		return fmt.Errorf("%w: invalid bbox %v", ErrInvalidRequest, *r.BBox)
	}
	if r.Bounds != nil {
		if r.Kind != KindSubbasin {
			return fmt.Errorf("%w: bounds only apply to subbasin", ErrInvalidRequest)
		}
		if !r.Bounds.Valid() {
			return fmt.Errorf("%w: invalid bounds %v", ErrInvalidRequest, *r.Bounds)
		}
	}
	if r.Buffer != nil && (r.Buffer.Value < 0 || math.IsNaN(r.Buffer.Value)) {
		return fmt.Errorf("%w: buffer must not be negative", ErrInvalidRequest)
	}
	if r.Outlets && (r.Kind != KindBasin || r.BBox == nil) {
		return fmt.Errorf("%w: outlets only applies to a basin bbox", ErrInvalidRequest)
	}
	if r.SnapRadius < 0 {
		return fmt.Errorf("%w: snap_radius must not be negative", ErrInvalidRequest)
	}
	for _, t := range r.Thresholds {
		if t.Variable == "" || math.IsNaN(t.Value) {
			return fmt.Errorf("%w: invalid threshold %v", ErrInvalidRequest, t)
		}
	}
	return nil
}
