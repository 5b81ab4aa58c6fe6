// Package config holds the ldwrite command configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/twinfer/ldwriter"
	"github.com/twinfer/ldwriter/rdf"
)

// Input formats.
const (
	FormatNQuads   = "nquads"
	FormatSQLite   = "sqlite"
	FormatPostgres = "postgres"
	FormatBadger   = "badger"
	FormatMangle   = "mangle"
)

// Config is the ldwrite configuration.
type Config struct {
	Variant  string      `yaml:"variant"`
	Base     string      `yaml:"base"`
	Indent   string      `yaml:"indent"`
	LogLevel string      `yaml:"log_level"`
	Prefixes Prefixes    `yaml:"prefixes"`
	Input    InputConfig `yaml:"input"`
}

// InputConfig selects where the dataset is read from.
type InputConfig struct {
	// Format is one of nquads, sqlite, postgres, badger or mangle.
	Format string `yaml:"format"`
	// Path is a file or directory path, or a connection string for postgres.
	Path string `yaml:"path"`
}

// Prefixes is a YAML mapping of prefix to namespace IRI that keeps
// document order.
type Prefixes struct {
	rdf.PrefixMap
}

// UnmarshalYAML decodes a mapping node pair by pair so order survives.
func (p *Prefixes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: prefixes must be a mapping", value.Line)
	}
	var pm rdf.PrefixMap
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: namespace for prefix %q must be a string", val.Line, key.Value)
		}
		pm.Set(key.Value, val.Value)
	}
	p.PrefixMap = pm
	return nil
}

// MarshalYAML encodes the prefixes as an ordered mapping.
func (p Prefixes) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	p.Range(func(prefix, iri string) bool {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: prefix},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: iri})
		return true
	})
	return node, nil
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Variant:  "compact",
		Indent:   "  ",
		LogLevel: "info",
		Input: InputConfig{
			Format: FormatNQuads,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := ldwriter.ParseVariant(c.Variant); err != nil {
		return fmt.Errorf("variant: %w", err)
	}
	if strings.TrimSpace(c.Indent) != "" {
		return fmt.Errorf("indent must contain only whitespace")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}

	var err error
	c.Prefixes.Range(func(prefix, iri string) bool {
		switch {
		case prefix == "" || strings.ContainsAny(prefix, ":/#"):
			err = fmt.Errorf("invalid prefix %q", prefix)
		case iri == "":
			err = fmt.Errorf("prefix %q has an empty namespace", prefix)
		}
		return err == nil
	})
	if err != nil {
		return err
	}

	switch c.Input.Format {
	case FormatNQuads, FormatMangle:
	case FormatSQLite, FormatPostgres, FormatBadger:
		if c.Input.Path == "" {
			return fmt.Errorf("input.path is required for %s input", c.Input.Format)
		}
	default:
		return fmt.Errorf("input.format must be one of nquads, sqlite, postgres, badger, mangle")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// OutputVariant returns the parsed output variant.
func (c *Config) OutputVariant() ldwriter.Variant {
	v, _ := ldwriter.ParseVariant(c.Variant)
	return v
}

// Level returns the slog level for LogLevel, defaulting to Info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
