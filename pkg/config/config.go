// Package config loads per-project settings for the pinewealth tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pinewealth/pinewealth/pkg/compilebridge"
	"github.com/pinewealth/pinewealth/pkg/history"
)

// FileName is the configuration file looked up in the project directory.
const FileName = ".pinewealth.json"

// Config holds project configuration loaded from .pinewealth.json.
type Config struct {
	Template       string `json:"template,omitempty"`        // path to a custom strategy template
	HistoryDB      string `json:"history_db,omitempty"`      // enables the translation history
	CompilerPlugin string `json:"compiler_plugin,omitempty"` // c-shared compiler plugin
	GoPackage      string `json:"go_package,omitempty"`      // package name for -emit go
	Pane           string `json:"pane,omitempty"`            // default plot pane
	ColorSeed      int64  `json:"color_seed,omitempty"`

	dir string
}

// Load reads the configuration from .pinewealth.json in dir. If the file
// doesn't exist, it returns a zero Config (not an error). Environment
// variables override file values.
func Load(dir string) (*Config, error) {
	cfg := &Config{dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
	}

	if v := os.Getenv(history.EnvDBPath); v != "" {
		cfg.HistoryDB = v
	}
	if v := os.Getenv(compilebridge.EnvPlugin); v != "" {
		cfg.CompilerPlugin = v
	}
	return cfg, nil
}

// Save writes cfg to .pinewealth.json in dir.
func Save(dir string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", FileName, err)
	}
	return nil
}

// TemplateText returns the contents of the configured template, or "" when
// none is set. Relative paths resolve against the config directory.
func (c *Config) TemplateText() (string, error) {
	if c.Template == "" {
		return "", nil
	}
	path := c.Template
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	return string(data), nil
}
