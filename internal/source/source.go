// Package source loads tabular data from files and databases into sheet views.
//
// Loaders are looked up by type name in a registry. The built-in types are
// csv, json, yaml, sqlite, duckdb and postgres:
//
//	tbl, err := source.Load(ctx, source.Config{Path: "people.csv"}, logger)
//	if err != nil {
//		return err
//	}
//	source.Apply(view, tbl, nil)
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sheetview/pkg/cell"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

var (
	// ErrUnknownType matches errors for unregistered source types.
	ErrUnknownType = errors.New("unknown source type")
	// ErrEmptyQuery is returned by SQL sources configured with neither a
	// query nor a table.
	ErrEmptyQuery = errors.New("source needs a query or a table")
)

// Config selects and configures a source.
type Config struct {
	Type  string `koanf:"type"`
	Path  string `koanf:"path"`
	Query string `koanf:"query"`
	DSN   string `koanf:"dsn"`
	Table string `koanf:"table"`
}

// IsFile reports whether the source reads a local file that can be watched.
func (c Config) IsFile() bool {
	switch c.resolvedType() {
	case "csv", "json", "yaml", "sqlite", "duckdb":
		return c.Path != "" && c.Path != ":memory:"
	}
	return false
}

func (c Config) resolvedType() string {
	if c.Type != "" {
		return c.Type
	}
	return InferType(c)
}

// InferType guesses a source type from the DSN scheme or path extension.
// It returns "" when nothing matches.
func InferType(c Config) string {
	dsn := strings.ToLower(c.DSN)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	switch strings.ToLower(filepath.Ext(c.Path)) {
	case ".csv", ".tsv":
		return "csv"
	case ".json", ".jsonl", ".ndjson":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	case ".duckdb", ".ddb":
		return "duckdb"
	}
	return ""
}

// Table is a loaded data set.
type Table struct {
	// Keys lists column keys in source order.
	Keys    []string
	Records []cell.Record
}

// addKey appends key to Keys if it is not there yet.
func (t *Table) addKey(key string) {
	if !slices.Contains(t.Keys, key) {
		t.Keys = append(t.Keys, key)
	}
}

// Loader reads one kind of source.
type Loader interface {
	Load(ctx context.Context, cfg Config) (*Table, error)
}

// Load resolves the loader for cfg and reads the table.
func Load(ctx context.Context, cfg Config, logger *slog.Logger) (*Table, error) {
	loader, err := NewLoader(cfg, logger)
	if err != nil {
		return nil, err
	}
	tbl, err := loader.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s source: %w", cfg.resolvedType(), err)
	}
	if logger != nil {
		logger.Debug("source loaded",
			slog.String("type", cfg.resolvedType()),
			slog.Int("columns", len(tbl.Keys)),
			slog.Int("records", len(tbl.Records)))
	}
	return tbl, nil
}

// Apply replaces the columns and records of v with tbl. When columns is
// empty every table key becomes a column with a title derived from the key;
// otherwise exactly the given columns are shown, in order, and an empty title
// is derived the same way.
func Apply[C any](v *sheet.View[cell.Value, C], tbl *Table, columns []sheet.Column) {
	v.ClearRecords()
	v.ClearColumns()

	if len(columns) == 0 {
		for _, key := range tbl.Keys {
			v.InsertColumn(key, sheet.NewColumn(Title(key)))
		}
	} else {
		for _, col := range columns {
			if col.Title == "" {
				col.Title = Title(col.Key)
			}
			v.InsertColumn(col.Key, col)
		}
	}
	v.ExtendRecords(slices.Values(tbl.Records))
}

// Title turns a column key such as "first_name" into "First Name".
func Title(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	if len(words) == 0 {
		return key
	}
	return cases.Title(language.English, cases.NoLower).String(strings.Join(words, " "))
}
