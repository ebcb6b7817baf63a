package file

import (
	"context"
	"fmt"

	"github.com/aretw0/catchment/pkg/adapters/memory"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

type indexDoc struct {
	Basins []domain.BasinRecord `yaml:"basins"`
}

// LoadBasinIndex reads basin records from a YAML or JSON document at URL,
// either a bare list or {basins: [...]}.
func LoadBasinIndex(ctx context.Context, fs afs.Service, URL string) (*memory.BasinIndex, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read basin index %s: %w", URL, err)
	}
	records, err := DecodeBasinIndex(data)
	if err != nil {
		return nil, fmt.Errorf("basin index %s: %w", URL, err)
	}
	return memory.NewBasinIndex(records), nil
}

// DecodeBasinIndex parses basin records. JSON is accepted as a subset of YAML.
func DecodeBasinIndex(data []byte) ([]domain.BasinRecord, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var records []domain.BasinRecord
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&records); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc indexDoc
		if err := node.Content[0].Decode(&doc); err != nil {
			return nil, err
		}
		records = doc.Basins
	default:
		return nil, fmt.Errorf("expected a list of basins")
	}

	seen := map[int]bool{}
	for i, r := range records {
		if !r.Bounds.Valid() {
			return nil, fmt.Errorf("basin %d (record %d): invalid bounds %v", r.ID, i, r.Bounds)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate basin id %d", r.ID)
		}
		seen[r.ID] = true
	}
	return records, nil
}
