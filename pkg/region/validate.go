package region

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/go-playground/validator/v10"
)

// decoded is the typed form of a region mapping, checked with struct tags
// before it becomes a domain.Request.
type decoded struct {
	Kind        string             `region:"kind" validate:"required,oneof=basin subbasin interbasin"`
	Points      []domain.Point     `region:"points" validate:"omitempty,dive"`
	BBox        *domain.BBox       `region:"bbox" validate:"omitempty"`
	Bounds      *domain.BBox       `region:"bounds" validate:"omitempty"`
	BufferValue *float64           `region:"buffer" validate:"omitempty,gte=0"`
	BufferUnit  string             `region:"buffer.unit" validate:"omitempty,oneof=cells map"`
	Outlets     bool               `region:"outlets"`
	BasinIndex  string             `region:"basin_index" validate:"omitempty,max=256"`
	SnapRadius  int                `region:"snap_radius" validate:"gte=0"`
	Thresholds  []domain.Threshold `region:"thresholds" validate:"dive"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("region"); name != "" {
				return name
			}
			return strings.ToLower(f.Name)
		})
		v.RegisterStructValidation(validateBBox, domain.BBox{})
		v.RegisterStructValidation(validatePoint, domain.Point{})
		v.RegisterStructValidation(validateThreshold, domain.Threshold{})
		validate = v
	})
	return validate
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func validateBBox(sl validator.StructLevel) {
	b := sl.Current().Interface().(domain.BBox)
	if !finite(b.XMin, b.YMin, b.XMax, b.YMax) {
		sl.ReportError(b.XMin, "xmin", "XMin", "finite", "")
		return
	}
	if b.XMin >= b.XMax {
		sl.ReportError(b.XMax, "xmax", "XMax", "gtfield", "xmin")
	}
	if b.YMin >= b.YMax {
		sl.ReportError(b.YMax, "ymax", "YMax", "gtfield", "ymin")
	}
}

func validatePoint(sl validator.StructLevel) {
	p := sl.Current().Interface().(domain.Point)
	if !finite(p.X, p.Y) {
		sl.ReportError(p.X, "x", "X", "finite", "")
	}
}

func validateThreshold(sl validator.StructLevel) {
	t := sl.Current().Interface().(domain.Threshold)
	if t.Variable == "" {
		sl.ReportError(t.Variable, "variable", "Variable", "required", "")
	}
	if math.IsNaN(t.Value) {
		sl.ReportError(t.Value, "value", "Value", "finite", "")
	}
}

// check validates s and converts validator failures into ValidationErrors.
func (s *decoded) check() []error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{&ValidationError{Key: s.Kind, Reason: err.Error()}}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		out = append(out, &ValidationError{Key: key, Reason: reason(fe), Value: fe.Value()})
	}
	return out
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "gtfield":
		return "must be greater than " + fe.Param()
	case "finite":
		return "must be a finite number"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag()
}
