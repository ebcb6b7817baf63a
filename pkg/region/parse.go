package region

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Option keys a region mapping may carry besides its kind and thresholds.
const (
	KeyBounds     = "bounds"
	KeyBuffer     = "buffer"
	KeyOutlets    = "outlets"
	KeyBasinIndex = "basin_index"
	KeySnapRadius = "snap_radius"
)

type options struct {
	Bounds     []float64 `mapstructure:"bounds"`
	Buffer     any       `mapstructure:"buffer"`
	Outlets    bool      `mapstructure:"outlets"`
	BasinIndex string    `mapstructure:"basin_index"`
	SnapRadius int       `mapstructure:"snap_radius"`
}

type bufferSpec struct {
	Value float64 `mapstructure:"value"`
	Unit  string  `mapstructure:"unit"`
}

func isOption(k string) bool {
	switch k {
	case KeyBounds, KeyBuffer, KeyOutlets, KeyBasinIndex, KeySnapRadius:
		return true
	}
	return false
}

func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// Parse converts a region mapping such as
//
//	{"subbasin": [12.3, 45.6], "strord": 4, "bounds": [12, 45, 13, 46]}
//
// into a request. Exactly one of the keys basin, subbasin or interbasin must
// be present. Its value is a point [x, y], a list of points or a bounding box
// [xmin, ymin, xmax, ymax]. Every key that is neither a kind nor an option is
// read as a `<variable>: <threshold>` pair.
//
// All problems found are returned together in an *AggregateError; each
// matches domain.ErrInvalidRequest.
func Parse(m map[string]any) (domain.Request, error) {
	var errs []error
	s := decoded{}

	var kinds []string
	for k := range m {
		if _, err := domain.ParseKind(k); err == nil {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	switch len(kinds) {
	case 0:
		return domain.Request{}, &AggregateError{Errors: []error{
			&ValidationError{Key: "kind", Reason: "one of basin, subbasin or interbasin is required"},
		}}
	case 1:
	default:
		return domain.Request{}, &AggregateError{Errors: []error{
			&ValidationError{Key: "kind", Reason: "only one region kind is allowed", Value: strings.Join(kinds, ", ")},
		}}
	}
	kindKey := kinds[0]
	s.Kind = strings.ToLower(strings.TrimSpace(kindKey))

	points, bbox, err := decodeSeed(m[kindKey])
	if err != nil {
		errs = append(errs, &ValidationError{Key: kindKey, Reason: err.Error(), Value: m[kindKey]})
	}
	s.Points, s.BBox = points, bbox

	opts := map[string]any{}
	for k, v := range m {
		if k == kindKey {
			continue
		}
		if isOption(k) {
			opts[k] = v
			continue
		}
		var thr float64
		if _, isBool := v.(bool); isBool {
			errs = append(errs, &ValidationError{Key: k, Reason: "unknown option or non-numeric threshold", Value: v})
			continue
		}
		if err := decode(v, &thr); err != nil {
			errs = append(errs, &ValidationError{Key: k, Reason: "unknown option or non-numeric threshold", Value: v})
			continue
		}
		s.Thresholds = append(s.Thresholds, domain.Threshold{Variable: k, Value: thr})
	}
	sort.Slice(s.Thresholds, func(i, j int) bool { return s.Thresholds[i].Variable < s.Thresholds[j].Variable })

	var o options
	if err := decode(opts, &o); err != nil {
		errs = append(errs, &ValidationError{Key: "options", Reason: err.Error()})
	}
	if o.Bounds != nil {
		if len(o.Bounds) != 4 {
			errs = append(errs, &ValidationError{Key: KeyBounds, Reason: "must be [xmin, ymin, xmax, ymax]", Value: o.Bounds})
		} else {
			s.Bounds = &domain.BBox{XMin: o.Bounds[0], YMin: o.Bounds[1], XMax: o.Bounds[2], YMax: o.Bounds[3]}
		}
	}
	if o.Buffer != nil {
		b, err := decodeBuffer(o.Buffer)
		if err != nil {
			errs = append(errs, &ValidationError{Key: KeyBuffer, Reason: err.Error(), Value: o.Buffer})
		} else {
			s.BufferValue, s.BufferUnit = &b.Value, b.Unit
		}
	}
	s.Outlets, s.BasinIndex, s.SnapRadius = o.Outlets, o.BasinIndex, o.SnapRadius

	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].(*ValidationError).Key < errs[j].(*ValidationError).Key
	})
	errs = append(errs, s.check()...)
	if len(errs) > 0 {
		return domain.Request{}, &AggregateError{Errors: errs}
	}

	req := s.request()
	if err := req.Check(); err != nil {
		return domain.Request{}, &AggregateError{Errors: []error{&ValidationError{Key: kindKey, Reason: err.Error()}}}
	}
	return req, nil
}

func (s *decoded) request() domain.Request {
	kind, _ := domain.ParseKind(s.Kind)
	req := domain.Request{
		Kind:       kind,
		Points:     s.Points,
		BBox:       s.BBox,
		Thresholds: s.Thresholds,
		Bounds:     s.Bounds,
		Outlets:    s.Outlets,
		BasinIndex: s.BasinIndex,
		SnapRadius: s.SnapRadius,
	}
	if s.BufferValue != nil {
		unit := domain.BufferUnit(s.BufferUnit)
		if unit == "" {
			unit = domain.UnitCells
		}
		req.Buffer = &domain.Buffer{Value: *s.BufferValue, Unit: unit}
	}
	return req
}

// decodeSeed reads [x, y], [[x, y], ...] or [xmin, ymin, xmax, ymax].
func decodeSeed(v any) ([]domain.Point, *domain.BBox, error) {
	var flat []float64
	if err := decode(v, &flat); err == nil {
		switch len(flat) {
		case 2:
			return []domain.Point{{X: flat[0], Y: flat[1]}}, nil, nil
		case 4:
			return nil, &domain.BBox{XMin: flat[0], YMin: flat[1], XMax: flat[2], YMax: flat[3]}, nil
		}
		return nil, nil, fmt.Errorf("expected [x, y] or [xmin, ymin, xmax, ymax], got %d numbers", len(flat))
	}
	var nested [][]float64
	if err := decode(v, &nested); err != nil || len(nested) == 0 {
		return nil, nil, fmt.Errorf("expected a point, a list of points or a bbox")
	}
	points := make([]domain.Point, len(nested))
	for i, p := range nested {
		if len(p) != 2 {
			return nil, nil, fmt.Errorf("point %d: expected [x, y], got %d numbers", i, len(p))
		}
		points[i] = domain.Point{X: p[0], Y: p[1]}
	}
	return points, nil, nil
}

// decodeBuffer reads a number of cells or {value, unit}.
func decodeBuffer(v any) (bufferSpec, error) {
	var n float64
	if err := decode(v, &n); err == nil {
		return bufferSpec{Value: n, Unit: string(domain.UnitCells)}, nil
	}
	var b bufferSpec
	if err := decode(v, &b); err != nil {
		return bufferSpec{}, fmt.Errorf("expected a number of cells or {value, unit}")
	}
	return b, nil
}
