package region

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/minio/highwayhash"
)

var hashKey = []byte("catchment-region-key-0123456789a")

// Scope is the engine configuration a result depends on besides the request.
type Scope struct {
	Dataset    string            `json:"dataset"`
	SnapRadius int               `json:"snap_radius,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"` // variable -> dataset
}

// Key returns a stable cache key for a request under scope. Requests that
// Parse to the same value share a key regardless of map ordering.
func Key(scope Scope, req domain.Request) (string, error) {
	// encoding/json sorts map keys, which makes the document canonical
	doc, err := json.Marshal(map[string]any{"scope": scope, "region": canonical(Format(req))})
	if err != nil {
		return "", fmt.Errorf("failed to encode region: %w", err)
	}
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", err
	}
	if _, err := h.Write(doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%016x", req.Kind, h.Sum64()), nil
}

// canonical spells floats in their shortest form, which also covers the
// infinities encoding/json refuses.
func canonical(v any) any {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []float64:
		out := make([]string, len(v))
		for i, f := range v {
			out[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return out
	case [][]float64:
		out := make([]any, len(v))
		for i, row := range v {
			out[i] = canonical(row)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, x := range v {
			out[k] = canonical(x)
		}
		return out
	}
	return v
}
