// Package config provides configuration management for the sheetview CLI.
//
// Configuration is layered with koanf: built-in defaults, then sheetview.yaml,
// then SHEETVIEW_ environment variables, then explicitly set flags.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/leapstack-labs/sheetview/internal/source"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

// Config holds all CLI configuration options.
type Config struct {
	Source  source.Config  `koanf:"source"`
	Columns []ColumnConfig `koanf:"columns"`
	Sort    []SortConfig   `koanf:"sort"`
	View    ViewConfig     `koanf:"view"`
	Output  string         `koanf:"output"`
	Verbose bool           `koanf:"verbose"`
	NoColor bool           `koanf:"no_color"`
	Server  ServerConfig   `koanf:"server"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// ColumnConfig declares one displayed column. Width accepts the forms
// auto, fixed:N, min:N, max:N and bounded:MIN:DELTA; a bare number is fixed.
type ColumnConfig struct {
	Key   string            `koanf:"key"`
	Title string            `koanf:"title"`
	Width sheet.WidthPolicy `koanf:"width"`
	Align sheet.Alignment   `koanf:"align"`
}

// SortConfig is one sort applied after loading. Entries apply in order, so
// later entries break ties left by earlier ones.
type SortConfig struct {
	Column string      `koanf:"column"`
	Order  sheet.Order `koanf:"order"`
}

// ViewConfig holds the initial view flags.
type ViewConfig struct {
	ReadOnly     bool `koanf:"read_only"`
	ColumnSelect bool `koanf:"column_select"`
	Disabled     bool `koanf:"disabled"`
}

// ServerConfig holds configuration for the HTTP host.
type ServerConfig struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Watch    bool          `koanf:"watch"`
	Debounce time.Duration `koanf:"debounce"`
}

// Default configuration values.
const (
	DefaultOutput   = "auto" // TTY=table, non-TTY=markdown
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8765
	DefaultDebounce = 250 * time.Millisecond
	EnvPrefix       = "SHEETVIEW_"
)

// SheetColumns converts the configured columns for source.Apply.
func (c *Config) SheetColumns() []sheet.Column {
	if len(c.Columns) == 0 {
		return nil
	}
	cols := make([]sheet.Column, len(c.Columns))
	for i, cc := range c.Columns {
		cols[i] = sheet.Column{Key: cc.Key, Title: cc.Title, Width: cc.Width, Align: cc.Align}
	}
	return cols
}

// Addr returns the listen address of the HTTP host.
func (s ServerConfig) Addr() string {
	host := s.Host
	if host == "" {
		host = DefaultHost
	}
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
