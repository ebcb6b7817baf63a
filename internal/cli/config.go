package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/pkg/adapters/redis"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no config
// path is given.
const DefaultConfigFile = "catchment.yaml"

// Config is the catchment.yaml document.
type Config struct {
	Flow        string            `yaml:"flow"`
	Variables   map[string]string `yaml:"variables"`
	BasinIndex  string            `yaml:"basin_index"`
	SnapRadius  int               `yaml:"snap_radius"`
	Concurrency int               `yaml:"concurrency"`
	Validate    bool              `yaml:"validate"`

	Log   LogConfig   `yaml:"log"`
	Cache CacheConfig `yaml:"cache"`
	HTTP  HTTPConfig  `yaml:"http"`

	// Dir is the directory relative data paths are resolved against. It is
	// the config file's directory, or the working directory without one.
	Dir string `yaml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CacheConfig selects the result store: redis when an address is set,
// a local directory otherwise, nothing when both are empty.
type CacheConfig struct {
	Redis    string        `yaml:"redis"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Dir      string        `yaml:"dir"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

type HTTPConfig struct {
	Port     int     `yaml:"port"`
	Rate     float64 `yaml:"rate"`
	Burst    int     `yaml:"burst"`
	MaxBatch int     `yaml:"max_batch"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		SnapRadius:  catchment.DefaultSnapRadius,
		Concurrency: catchment.DefaultConcurrency,
		Log:         LogConfig{Level: "info", Format: "text"},
		Cache:       CacheConfig{TTL: time.Hour, Prefix: redis.DefaultPrefix},
		HTTP:        HTTPConfig{Port: 8080},
		Dir:         ".",
	}
}

// LoadConfig reads a YAML or JSON config, chosen by extension, over the
// defaults. An empty path loads DefaultConfigFile if it exists.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := DecodeConfig(data, strings.EqualFold(filepath.Ext(path), ".json"), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// DecodeConfig merges a config document into cfg. Unknown keys are errors.
func DecodeConfig(data []byte, isJSON bool, cfg *Config) error {
	var raw map[string]any
	if isJSON {
		err := json.Unmarshal(data, &raw)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "yaml",
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		Result:      cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return cfg.Check()
}

// Check reports settings the engine would reject.
func (c *Config) Check() error {
	switch {
	case c.SnapRadius <= 0:
		return fmt.Errorf("snap_radius must be positive, got %d", c.SnapRadius)
	case c.Concurrency <= 0:
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	case c.Cache.TTL < 0:
		return fmt.Errorf("cache.ttl must not be negative")
	case c.HTTP.Rate < 0:
		return fmt.Errorf("http.rate must not be negative")
	}
	for name, path := range c.Variables {
		if path == "" {
			return fmt.Errorf("variable %q has no dataset", name)
		}
	}
	return nil
}

// Path resolves a data path from the config against Dir.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(c.Dir, p)
}
