package source

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sheetview/internal/testutil"
	"github.com/leapstack-labs/sheetview/pkg/cell"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantKeys  []string
		wantRecs  []cell.Record
		expectErr bool
		errMsg    string
	}{
		{
			name: "rows with nulls",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name", "score"}).
					AddRow(int64(1), "alice", 9.5).
					AddRow(int64(2), nil, []byte("n/a"))
				mock.ExpectQuery("SELECT id, name, score FROM users").WillReturnRows(rows)
			},
			wantKeys: []string{"id", "name", "score"},
			wantRecs: []cell.Record{
				{"id": cell.Int(1), "name": cell.Text("alice"), "score": cell.Float(9.5)},
				{"id": cell.Int(2), "name": cell.Null(), "score": cell.Bytes([]byte("n/a"))},
			},
		},
		{
			name: "empty result keeps columns",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, name, score FROM users").
					WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
			},
			wantKeys: []string{"id", "name"},
		},
		{
			name: "query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, name, score FROM users").WillReturnError(errors.New("no such table"))
			},
			expectErr: true,
			errMsg:    "failed to execute query",
		},
		{
			name: "row error",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id"}).
					AddRow(int64(1)).
					RowError(0, errors.New("connection reset"))
				mock.ExpectQuery("SELECT id, name, score FROM users").WillReturnRows(rows)
			},
			expectErr: true,
			errMsg:    "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)

			tbl, err := Query(context.Background(), db, "SELECT id, name, score FROM users")
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, tbl.Keys)
			assert.Equal(t, tt.wantRecs, tbl.Records)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestQuery_NilDB(t *testing.T) {
	_, err := Query(context.Background(), nil, "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, "database connection not established", err.Error())
}

func TestStatement(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr error
	}{
		{name: "query wins", cfg: Config{Query: " SELECT 1 ", Table: "t"}, want: "SELECT 1"},
		{name: "table", cfg: Config{Table: "users"}, want: `SELECT * FROM "users"`},
		{name: "qualified table", cfg: Config{Table: "main.users"}, want: `SELECT * FROM "main"."users"`},
		{name: "quote in name", cfg: Config{Table: `we"ird`}, want: `SELECT * FROM "we""ird"`},
		{name: "neither", cfg: Config{}, wantErr: ErrEmptyQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Statement(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDSNBuilders(t *testing.T) {
	dsn, err := sqliteDSN(Config{Path: "data.db"})
	require.NoError(t, err)
	assert.Equal(t, "data.db?mode=ro", dsn)

	_, err = sqliteDSN(Config{})
	assert.Error(t, err)

	dsn, err = duckdbDSN(Config{})
	require.NoError(t, err)
	assert.Equal(t, ":memory:", dsn)

	dsn, err = duckdbDSN(Config{DSN: "md:my_db"})
	require.NoError(t, err)
	assert.Equal(t, "md:my_db", dsn)

	_, err = postgresDSN(Config{})
	assert.Error(t, err)
}

func setupSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE people (name TEXT NOT NULL, dept TEXT, age INTEGER);
		INSERT INTO people (name, dept, age) VALUES
			('Bob', 'B', 41),
			('Amy', 'A', 29),
			('Cid', 'A', NULL);
	`)
	require.NoError(t, err)
	return path
}

func TestLoad_SQLite(t *testing.T) {
	path := setupSQLite(t)
	logger := testutil.NewTestLogger(t)

	tbl, err := Load(context.Background(), Config{Path: path, Table: "people"}, logger)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "dept", "age"}, tbl.Keys)
	require.Len(t, tbl.Records, 3)
	assert.Equal(t, cell.Text("Bob"), tbl.Records[0]["name"])
	assert.Equal(t, cell.Int(29), tbl.Records[1]["age"])
	assert.True(t, tbl.Records[2]["age"].IsNull())
}

func TestLoad_SQLiteQuery(t *testing.T) {
	path := setupSQLite(t)

	tbl, err := Load(context.Background(), Config{
		Type:  "sqlite",
		Path:  path,
		Query: "SELECT name, age FROM people WHERE dept = 'A' ORDER BY name",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, tbl.Keys)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, cell.Text("Amy"), tbl.Records[0]["name"])
}

func TestLoad_SQLiteErrors(t *testing.T) {
	path := setupSQLite(t)

	_, err := Load(context.Background(), Config{Path: path}, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = Load(context.Background(), Config{Path: path, Table: "missing"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load sqlite source")
}
