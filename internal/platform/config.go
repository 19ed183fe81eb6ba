package platform

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/gonewton/constraint/pkg/core"
	"github.com/gonewton/constraint/pkg/verify"
)

// Output formats understood by the CLI.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the valid output formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// Config is the optional per-workspace configuration stored in .newton/config.yaml.
type Config struct {
	// Author is used by `add` when no --author flag is given.
	Author string `yaml:"author,omitempty"`
	// Format is the default output format.
	Format string `yaml:"format,omitempty"`
	// Shell interprets verification commands.
	Shell string `yaml:"shell,omitempty"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Format: FormatText,
		Shell:  verify.DefaultShell,
	}
}

// Merge overlays the non-empty fields of other onto c.
func (c *Config) Merge(other Config) {
	if other.Author != "" {
		c.Author = other.Author
	}
	if other.Format != "" {
		c.Format = other.Format
	}
	if other.Shell != "" {
		c.Shell = other.Shell
	}
}

// Validate checks the values that have a closed set.
func (c Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return &core.ValidationError{Reason: fmt.Sprintf("unknown output format %q (want text, json or yaml)", c.Format)}
	}
	return nil
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, &core.ParseError{Path: path, Err: err}
	}
	return c, nil
}

// LoadConfig layers the workspace file over the defaults.
// A missing file is not an error.
func LoadConfig(marker string) (Config, error) {
	cfg := DefaultConfig()

	fileCfg, err := LoadConfigFile(ConfigPath(marker))
	switch {
	case err == nil:
		cfg.Merge(fileCfg)
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig writes c to the workspace config file.
func SaveConfig(marker string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	path := ConfigPath(marker)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &core.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
