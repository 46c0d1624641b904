package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	_ "modernc.org/sqlite"              // sqlite driver

	"github.com/leapstack-labs/sheetview/pkg/cell"
)

func init() {
	Register("sqlite", func(l *slog.Logger) Loader {
		return &SQLLoader{Driver: "sqlite", DSN: sqliteDSN, Logger: l}
	})
	Register("duckdb", func(l *slog.Logger) Loader {
		return &SQLLoader{Driver: "duckdb", DSN: duckdbDSN, Logger: l}
	})
	Register("postgres", func(l *slog.Logger) Loader {
		return &SQLLoader{Driver: "pgx", DSN: postgresDSN, Logger: l}
	})
}

// SQLLoader runs a query through database/sql and loads the result set.
type SQLLoader struct {
	Driver string
	// DSN builds the connection string from the source config.
	DSN    func(Config) (string, error)
	Logger *slog.Logger
}

// Load opens a connection, runs the configured query, and closes it.
func (l *SQLLoader) Load(ctx context.Context, cfg Config) (*Table, error) {
	query, err := Statement(cfg)
	if err != nil {
		return nil, err
	}
	dsn, err := l.DSN(cfg)
	if err != nil {
		return nil, err
	}

	l.logger().Debug("opening database", slog.String("driver", l.Driver))
	db, err := sql.Open(l.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", l.Driver, err)
	}
	defer func() {
		l.logger().Debug("closing database connection")
		_ = db.Close()
	}()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping %s: %w", l.Driver, err)
	}
	return Query(ctx, db, query)
}

func (l *SQLLoader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Logger
}

// Statement returns the SQL to run for cfg: the query, or a full scan of the
// table. It returns ErrEmptyQuery when neither is set.
func Statement(cfg Config) (string, error) {
	if q := strings.TrimSpace(cfg.Query); q != "" {
		return q, nil
	}
	if cfg.Table == "" {
		return "", ErrEmptyQuery
	}
	return "SELECT * FROM " + QuoteIdent(cfg.Table), nil
}

// QuoteIdent double-quotes each dot-separated part of a table name.
func QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// Query runs query on db and collects every row. Column names become keys in
// result order. NULL values are kept as null cells.
func Query(ctx context.Context, db *sql.DB, query string) (*Table, error) {
	if db == nil {
		return nil, errors.New("database connection not established")
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return ScanRows(rows)
}

// ScanRows drains rows into a table.
func ScanRows(rows *sql.Rows) (*Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	tbl := &Table{}
	for _, col := range cols {
		tbl.addKey(col)
	}

	values := make([]any, len(cols))
	valuePtrs := make([]any, len(cols))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(tbl.Records)+1, err)
		}
		rec := make(cell.Record, len(cols))
		for i, col := range cols {
			rec[col] = cell.From(values[i])
		}
		tbl.Records = append(tbl.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tbl, nil
}

// sqliteDSN opens cfg.Path read-only unless a DSN is given.
func sqliteDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Path == "" {
		return "", errors.New("sqlite source needs a path or dsn")
	}
	return cfg.Path + "?mode=ro", nil
}

// duckdbDSN falls back to an in-memory database, where a query such as
// SELECT * FROM read_parquet('data.parquet') reads files directly.
func duckdbDSN(cfg Config) (string, error) {
	switch {
	case cfg.DSN != "":
		return cfg.DSN, nil
	case cfg.Path != "":
		return cfg.Path + "?access_mode=read_only", nil
	default:
		return ":memory:", nil
	}
}

func postgresDSN(cfg Config) (string, error) {
	if cfg.DSN == "" {
		return "", errors.New("postgres source needs a dsn")
	}
	return cfg.DSN, nil
}
