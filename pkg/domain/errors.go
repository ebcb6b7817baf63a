package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned when a region request is malformed.
var ErrInvalidRequest = errors.New("invalid region request")

// ErrBufferRequired is returned when an interbasin box is crossed by streams
// flowing in and no buffer was given to classify the crossings.
var ErrBufferRequired = fmt.Errorf("%w: buffer is required when streams cross the bbox", ErrInvalidRequest)

// ErrUnknownVariable is returned when a threshold names a variable with no dataset.
var ErrUnknownVariable = errors.New("unknown variable")

// ErrNotFound is returned by stores and indexes for missing keys.
var ErrNotFound = errors.New("not found")

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrOutOfBounds     = errors.New("out of bounds")
	ErrNoMatch         = errors.New("no cell satisfies the threshold")
	ErrInvalidFlowGrid = errors.New("invalid flow grid")
	ErrIncompleteBasin = errors.New("incomplete basin")
)

// OutOfBoundsError reports a seed or box outside the grid extent.
type OutOfBoundsError struct {
	Point  *Point
	BBox   *BBox
	Extent BBox
}

func (e *OutOfBoundsError) Error() string {
	switch {
	case e.Point != nil:
		return fmt.Sprintf("point %v outside grid extent %v", *e.Point, e.Extent)
	case e.BBox != nil:
		return fmt.Sprintf("bbox %v outside grid extent %v", *e.BBox, e.Extent)
	}
	return fmt.Sprintf("outside grid extent %v", e.Extent)
}

func (e *OutOfBoundsError) Unwrap() error { return ErrOutOfBounds }

// NoMatchError reports that no cell in the searched window satisfied the thresholds.
type NoMatchError struct {
	Thresholds []Threshold
	Window     Window
	Seed       *Cell
	Radius     int
}

func (e *NoMatchError) Error() string {
	preds := make([]string, len(e.Thresholds))
	for i, t := range e.Thresholds {
		preds[i] = t.String()
	}
	msg := fmt.Sprintf("no cell satisfies [%s] in %v", strings.Join(preds, ", "), e.Window)
	if e.Seed != nil {
		msg += fmt.Sprintf(" within %d steps of %v", e.Radius, *e.Seed)
	}
	return msg
}

func (e *NoMatchError) Unwrap() error { return ErrNoMatch }

// InvalidFlowGridError reports corrupt flow directions: a cycle or a malformed code.
type InvalidFlowGridError struct {
	Cells  []Cell
	Reason string
}

func (e *InvalidFlowGridError) Error() string {
	if len(e.Cells) == 0 {
		return "invalid flow grid: " + e.Reason
	}
	cells := make([]string, 0, len(e.Cells))
	for i, c := range e.Cells {
		if i == 8 {
			cells = append(cells, fmt.Sprintf("... %d more", len(e.Cells)-i))
			break
		}
		cells = append(cells, c.String())
	}
	return fmt.Sprintf("invalid flow grid: %s at %s", e.Reason, strings.Join(cells, " "))
}

func (e *InvalidFlowGridError) Unwrap() error { return ErrInvalidFlowGrid }

// IncompleteBasinWarning reports that cells outside the bounds drain into
// the delineated area, so the result is truncated at the bounds.
type IncompleteBasinWarning struct {
	Bounds    BBox `json:"bounds"`
	Truncated int  `json:"truncated"` // number of inflowing cells outside the bounds
}

func (e *IncompleteBasinWarning) Error() string {
	return fmt.Sprintf("subbasin does not include all upstream cells: %d cells outside bounds %v drain into it; consider increasing the bounds", e.Truncated, e.Bounds)
}

func (e *IncompleteBasinWarning) Unwrap() error { return ErrIncompleteBasin }
