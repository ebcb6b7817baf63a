package region

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/catchment/pkg/domain"
	"gopkg.in/yaml.v3"
)

// document is a region file: a bare mapping, {region: {...}} or
// {regions: [{...}, ...]}.
type document struct {
	Region  map[string]any   `yaml:"region" json:"region"`
	Regions []map[string]any `yaml:"regions" json:"regions"`
}

// LoadFile reads requests from a YAML or JSON file, chosen by extension.
func LoadFile(path string) ([]domain.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}
	return Decode(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// Decode parses region documents. JSON is used when isJSON is set, YAML
// otherwise.
func Decode(data []byte, isJSON bool) ([]domain.Request, error) {
	unmarshal := yaml.Unmarshal
	if isJSON {
		unmarshal = json.Unmarshal
	}
	var doc document
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse region document: %v", domain.ErrInvalidRequest, err)
	}

	maps := doc.Regions
	switch {
	case doc.Region != nil:
		maps = append([]map[string]any{doc.Region}, maps...)
	case len(maps) == 0:
		var bare map[string]any
		if err := unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("%w: failed to parse region document: %v", domain.ErrInvalidRequest, err)
		}
		maps = []map[string]any{bare}
	}

	reqs := make([]domain.Request, 0, len(maps))
	for i, m := range maps {
		req, err := Parse(m)
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
