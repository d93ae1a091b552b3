// Package config loads the docbench YAML configuration: connection
// settings, runner knobs, the query suite, load profiles, and index
// declarations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full docbench configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Runner   RunnerConfig   `yaml:"runner"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Queries  []QueryConfig  `yaml:"queries"`
	Load     LoadConfig     `yaml:"load"`
	Indexes  []IndexConfig  `yaml:"indexes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URI              string `yaml:"uri"`
	Name             string `yaml:"name"`
	ConnectTimeout   int    `yaml:"connect_timeout_sec"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// RunnerConfig holds benchmark runner settings.
type RunnerConfig struct {
	Warmup     int   `yaml:"warmup"`
	Iterations int   `yaml:"iterations"`
	Threads    int   `yaml:"threads"`
	Explain    bool  `yaml:"explain"`
	Seed       int64 `yaml:"seed"` // 0 = derive from clock
}

// MetricsConfig holds the prometheus endpoint settings.
type MetricsConfig struct {
	Port int `yaml:"port"` // 0 = endpoint disabled
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // json, console (default: console)
}

// ParamConfig declares one query parameter. Only the fields relevant to
// Kind are set; a non-empty Group binds the parameter to a correlated
// sampled document.
type ParamConfig struct {
	Kind       string `yaml:"kind"`
	Min        int64  `yaml:"min"`
	Max        int64  `yaml:"max"`
	Choices    []any  `yaml:"choices"`
	Value      any    `yaml:"value"`
	Pattern    string `yaml:"pattern"`
	Collection string `yaml:"collection"`
	Field      string `yaml:"field"`
	Group      string `yaml:"group"`
}

// JoinConfig declares one level of a client-side join chain.
type JoinConfig struct {
	Collection   string         `yaml:"collection"`
	LocalField   string         `yaml:"local_field"`
	ForeignField string         `yaml:"foreign_field"`
	Filter       map[string]any `yaml:"filter"`
	Join         *JoinConfig    `yaml:"join"`
}

// QueryConfig declares one benchmarked query.
type QueryConfig struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Collection  string                 `yaml:"collection"`
	Kind        string                 `yaml:"kind"` // find, aggregate, count (default: find)
	Filter      map[string]any         `yaml:"filter"`
	Pipeline    []map[string]any       `yaml:"pipeline"`
	Projection  map[string]any         `yaml:"projection"`
	Sort        map[string]any         `yaml:"sort"`
	Limit       int64                  `yaml:"limit"`
	Params      map[string]ParamConfig `yaml:"params"`
	Join        *JoinConfig            `yaml:"join"`
}

// FieldConfig declares how the loader synthesizes one document field.
// Scalar kinds mirror the query parameter kinds; object and array nest.
type FieldConfig struct {
	Kind    string                 `yaml:"kind"` // range, choice, sequence, fixed, pattern, object, array
	Min     int64                  `yaml:"min"`
	Max     int64                  `yaml:"max"`
	Choices []any                  `yaml:"choices"`
	Value   any                    `yaml:"value"`
	Pattern string                 `yaml:"pattern"`
	Fields  map[string]FieldConfig `yaml:"fields"` // kind: object
	Of      *FieldConfig           `yaml:"of"`     // kind: array
	Count   int                    `yaml:"count"`  // kind: array (default: 1)
}

// CollectionProfile declares one collection the loader populates.
type CollectionProfile struct {
	Name   string                 `yaml:"name"`
	Count  int64                  `yaml:"count"`
	Fields map[string]FieldConfig `yaml:"fields"`
}

// LoadConfig holds bulk loader settings.
type LoadConfig struct {
	DropFirst   bool                `yaml:"drop_first"`
	BatchSize   int                 `yaml:"batch_size"`
	Workers     int                 `yaml:"workers"`
	Collections []CollectionProfile `yaml:"collections"`
}

// IndexConfig declares one index to create on a collection.
type IndexConfig struct {
	Collection string         `yaml:"collection"`
	Name       string         `yaml:"name"`
	Keys       []IndexKeyPair `yaml:"keys"`
}

// IndexKeyPair is one field of a compound index.
type IndexKeyPair struct {
	Field string `yaml:"field"`
	Order int    `yaml:"order"` // 1 ascending, -1 descending (default: 1)
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Database.URI == "" {
		c.Database.URI = "mongodb://localhost:27017"
	}
	if c.Database.Name == "" {
		c.Database.Name = "docbench"
	}
	if c.Database.ConnectTimeout <= 0 {
		c.Database.ConnectTimeout = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 30
	}
	if c.Runner.Iterations <= 0 {
		c.Runner.Iterations = 100
	}
	if c.Runner.Threads <= 0 {
		c.Runner.Threads = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Load.BatchSize <= 0 {
		c.Load.BatchSize = 1000
	}
	if c.Load.Workers <= 0 {
		c.Load.Workers = 1
	}
	for i := range c.Queries {
		if c.Queries[i].Kind == "" {
			c.Queries[i].Kind = "find"
		}
	}
	for i := range c.Indexes {
		for k := range c.Indexes[i].Keys {
			if c.Indexes[i].Keys[k].Order == 0 {
				c.Indexes[i].Keys[k].Order = 1
			}
		}
	}
}

// Validate checks the configuration for correctness. Query semantics
// (parameter kinds, correlation consistency, join shape) are validated
// by the domain spec after conversion; this stage covers what the domain
// cannot see.
func (c *Config) Validate() error {
	if c.Runner.Warmup < 0 {
		return fmt.Errorf("runner.warmup must not be negative, got %d", c.Runner.Warmup)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}
	seen := make(map[string]bool, len(c.Queries))
	for _, q := range c.Queries {
		if q.Name == "" {
			return fmt.Errorf("every query needs a name")
		}
		if seen[q.Name] {
			return fmt.Errorf("duplicate query name %q", q.Name)
		}
		seen[q.Name] = true
	}
	for _, p := range c.Load.Collections {
		if p.Name == "" {
			return fmt.Errorf("every load collection needs a name")
		}
		if p.Count <= 0 {
			return fmt.Errorf("load collection %q needs a positive count", p.Name)
		}
		if len(p.Fields) == 0 {
			return fmt.Errorf("load collection %q declares no fields", p.Name)
		}
	}
	for _, idx := range c.Indexes {
		if idx.Collection == "" || len(idx.Keys) == 0 {
			return fmt.Errorf("every index needs a collection and at least one key")
		}
		for _, k := range idx.Keys {
			if k.Field == "" {
				return fmt.Errorf("index on %q has a key without a field", idx.Collection)
			}
			if k.Order != 1 && k.Order != -1 {
				return fmt.Errorf("index key %s.%s order must be 1 or -1, got %d", idx.Collection, k.Field, k.Order)
			}
		}
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment
// variable values. Query parameter placeholders (${param:...}) pass
// through untouched; they belong to the substitution engine, not the
// environment.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		if strings.HasPrefix(expr, "param:") {
			return match
		}
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
