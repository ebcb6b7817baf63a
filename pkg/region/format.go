package region

import "github.com/aretw0/catchment/pkg/domain"

// Format is the inverse of Parse: it renders a request as a region mapping.
func Format(req domain.Request) map[string]any {
	m := map[string]any{}
	switch {
	case req.BBox != nil:
		m[req.Kind.String()] = bboxSlice(*req.BBox)
	case len(req.Points) == 1:
		m[req.Kind.String()] = []float64{req.Points[0].X, req.Points[0].Y}
	default:
		pts := make([][]float64, len(req.Points))
		for i, p := range req.Points {
			pts[i] = []float64{p.X, p.Y}
		}
		m[req.Kind.String()] = pts
	}
	for _, t := range req.Thresholds {
		m[t.Variable] = t.Value
	}
	if req.Bounds != nil {
		m[KeyBounds] = bboxSlice(*req.Bounds)
	}
	if req.Buffer != nil {
		if req.Buffer.Unit == domain.UnitCells || req.Buffer.Unit == "" {
			m[KeyBuffer] = req.Buffer.Value
		} else {
			m[KeyBuffer] = map[string]any{"value": req.Buffer.Value, "unit": string(req.Buffer.Unit)}
		}
	}
	if req.Outlets {
		m[KeyOutlets] = true
	}
	if req.BasinIndex != "" {
		m[KeyBasinIndex] = req.BasinIndex
	}
	if req.SnapRadius != 0 {
		m[KeySnapRadius] = req.SnapRadius
	}
	return m
}

func bboxSlice(b domain.BBox) []float64 {
	return []float64{b.XMin, b.YMin, b.XMax, b.YMax}
}
