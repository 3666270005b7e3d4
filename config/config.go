// Package config loads sigplot settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/signals"
)

// FileName is the name of the configuration file looked up in the user's
// home directory when no path is given.
const FileName = ".sigplot.yaml"

// Config holds the settings of a plotting session.
type Config struct {
	// TMin and TMax bound the time axis of plots.
	TMin float64 `yaml:"t_min"`
	TMax float64 `yaml:"t_max"`
	// Points is the number of samples on the time axis.
	Points int `yaml:"points"`
	// Prec is the precision in bits of exp, log, and ^.
	Prec uint `yaml:"prec"`
	// MaxDepth limits nesting of user function calls and derivatives.
	MaxDepth int `yaml:"max_depth"`
	// Width and Height are the plot size in characters. A zero width uses
	// the width of the terminal.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Prompt is the interactive prompt.
	Prompt string `yaml:"prompt"`
	// Functions are defined before the session starts, in order.
	Functions Definitions `yaml:"functions,omitempty"`
}

// Definition is a function definition seeded from configuration.
type Definition struct {
	Name string
	Body string
}

// Definitions is an ordered list of function definitions. In YAML it is a
// mapping from names to bodies.
type Definitions []Definition

// UnmarshalYAML decodes a mapping of names to bodies, keeping file order.
func (d *Definitions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: functions must map names to expressions", node.Line)
	}
	defs := make(Definitions, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: function %s must be defined by an expression", v.Line, k.Value)
		}
		defs = append(defs, Definition{Name: k.Value, Body: v.Value})
	}
	*d = defs
	return nil
}

// MarshalYAML encodes the definitions as a mapping in order.
func (d Definitions) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, def := range d {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: def.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: def.Body, Style: yaml.DoubleQuotedStyle},
		)
	}
	return n, nil
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		TMin:     -5,
		TMax:     5,
		Points:   1000,
		Prec:     signals.DefaultPrec,
		MaxDepth: signals.DefaultMaxDepth,
		Height:   20,
		Prompt:   "> ",
	}
}

// Parse decodes YAML configuration. Settings absent from data keep their
// defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("couldn't parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the configuration file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("couldn't read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads the configuration file in the user's home directory.
// If there is none, the result is Default with a nil error.
func LoadDefault() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Default(), nil
	}
	cfg, err := Load(filepath.Join(home, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Marshal encodes cfg as YAML.
func (cfg Config) Marshal() ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate checks that the settings describe a usable time axis and plot.
func (cfg Config) Validate() error {
	switch {
	case !(cfg.TMin < cfg.TMax):
		return fmt.Errorf("t_min %g must be less than t_max %g", cfg.TMin, cfg.TMax)
	case cfg.Points < 2:
		return fmt.Errorf("points must be at least 2, not %d", cfg.Points)
	case cfg.MaxDepth < 1:
		return fmt.Errorf("max_depth must be positive, not %d", cfg.MaxDepth)
	case cfg.Width < 0:
		return fmt.Errorf("width must not be negative, not %d", cfg.Width)
	case cfg.Height < 3:
		return fmt.Errorf("height must be at least 3, not %d", cfg.Height)
	}
	return nil
}
