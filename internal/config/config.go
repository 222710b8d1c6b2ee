// Package config loads and saves the .hdrcheck.yaml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/hdrcheck/internal/suppress"
)

// FileName is the default config file name.
const FileName = ".hdrcheck.yaml"

// Output formats.
const (
	FormatTOON = "toon"
	FormatText = "text"
)

// Config represents .hdrcheck.yaml configuration
type Config struct {
	// IncludePaths are searched for included headers, in order.
	IncludePaths []string `yaml:"include_paths"`
	// Compdb is a compile_commands.json file or the directory holding it.
	Compdb string `yaml:"compdb,omitempty"`
	// Ignore matches headers that are never reported.
	Ignore string `yaml:"ignore"`
	// KeepMarkers are trailing include comments that suppress a header.
	KeepMarkers []string `yaml:"keep_markers"`
	// Keep maps a unit path to headers that unit keeps whether or not it
	// uses them.
	Keep map[string][]string `yaml:"keep,omitempty"`
	// CorrespondingHeader suppresses the unit's own header.
	CorrespondingHeader bool   `yaml:"corresponding_header"`
	Jobs                int    `yaml:"jobs"`
	Format              string `yaml:"format"`
	MaxExpansionDepth   int    `yaml:"max_expansion_depth"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		IncludePaths:        []string{"include"},
		Ignore:              suppress.DefaultIgnore,
		KeepMarkers:         append([]string(nil), suppress.DefaultMarkers...),
		CorrespondingHeader: true,
		Format:              FormatTOON,
		MaxExpansionDepth:   16,
	}
}

// LoadConfig loads configuration from a YAML file. Keys absent from the
// file keep their defaults; a missing file yields DefaultConfig. Relative
// paths are resolved against the file's directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) resolve(base string) {
	for i, p := range c.IncludePaths {
		if !filepath.IsAbs(p) {
			c.IncludePaths[i] = filepath.Join(base, p)
		}
	}
	if c.Compdb != "" && !filepath.IsAbs(c.Compdb) {
		c.Compdb = filepath.Join(base, c.Compdb)
	}
	if len(c.Keep) > 0 {
		keep := make(map[string][]string, len(c.Keep))
		for unit, headers := range c.Keep {
			resolved := make([]string, len(headers))
			for i, h := range headers {
				resolved[i] = resolvePath(base, h)
			}
			keep[resolvePath(base, unit)] = resolved
		}
		c.Keep = keep
	}
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatTOON, FormatText:
	default:
		return fmt.Errorf("format %q: want %s or %s", c.Format, FormatTOON, FormatText)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	if c.MaxExpansionDepth < 0 {
		return fmt.Errorf("max_expansion_depth must not be negative, got %d", c.MaxExpansionDepth)
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}

// Rules compiles the suppression settings.
func (c *Config) Rules() (*suppress.Rules, error) {
	r, err := suppress.New(c.KeepMarkers, c.Ignore, c.CorrespondingHeader)
	if err != nil {
		return nil, err
	}
	for unit, headers := range c.Keep {
		r.Keep(unit, headers...)
	}
	return r, nil
}

// header leads every saved config file.
const header = `# hdrcheck configuration. Relative paths are resolved against this file.
# Command-line flags override these values.
`

// Marshal renders cfg as YAML with a leading comment.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return append([]byte(header), data...), nil
}

// SaveConfig writes configuration to a YAML file
func SaveConfig(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
