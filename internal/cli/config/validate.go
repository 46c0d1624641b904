package config

import (
	"fmt"

	"github.com/leapstack-labs/sheetview/internal/render"
	"github.com/leapstack-labs/sheetview/internal/source"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Source.Type != "" && !source.IsRegistered(c.Source.Type) {
		return &source.UnknownTypeError{Type: c.Source.Type, Available: source.List()}
	}
	if _, err := render.ParseMode(c.Output); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Columns))
	for i, col := range c.Columns {
		if col.Key == "" {
			return fmt.Errorf("columns[%d]: key is required", i)
		}
		if seen[col.Key] {
			return fmt.Errorf("columns[%d]: duplicate column key %q", i, col.Key)
		}
		seen[col.Key] = true
	}

	for i, s := range c.Sort {
		if s.Column == "" {
			return fmt.Errorf("sort[%d]: column is required", i)
		}
		if len(c.Columns) > 0 && !seen[s.Column] {
			return fmt.Errorf("sort[%d]: column %q is not configured\nHint: Add it to columns in sheetview.yaml", i, s.Column)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Server.Debounce < 0 {
		return fmt.Errorf("server.debounce must not be negative")
	}
	return nil
}

// ValidateSource checks that a source is configured well enough to load.
func (c *Config) ValidateSource() error {
	if c.Source.Path == "" && c.Source.DSN == "" {
		return fmt.Errorf("no source configured\nHint: Pass --path or --dsn, or set source in sheetview.yaml")
	}
	return nil
}
