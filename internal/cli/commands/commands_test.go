package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sheetview/internal/cli/config"
	"github.com/leapstack-labs/sheetview/internal/source"
	"github.com/leapstack-labs/sheetview/internal/testutil"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

// runCommand executes cmd with cfg in its context and returns what it wrote.
func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))
	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// peopleConfig points a default config at the people fixture.
func peopleConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Source.Path = testutil.WriteFile(t, t.TempDir(), "people.csv", testutil.PeopleCSV)
	cfg.Output = "csv"
	cfg.NoColor = true
	return cfg
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewRenderCommand(), "render [path]", nil},
		{NewViewCommand(), "view [path]", []string{"title", "pick"}},
		{NewREPLCommand(), "repl [path]", nil},
		{NewServeCommand(), "serve [path]", []string{"host", "port", "watch", "debounce"}},
		{NewDoctorCommand(), "doctor [path]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestRender(t *testing.T) {
	cfg := peopleConfig(t)
	cfg.Sort = []config.SortConfig{{Column: "dept"}, {Column: "name", Order: sheet.Descending}}

	out, _, err := runCommand(t, NewRenderCommand(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "name,dept\nCid,A\nAmy,A\nBob,B\n", out)
}

func TestRender_PathArgument(t *testing.T) {
	cfg := config.Default()
	cfg.Output = "csv"
	path := testutil.WriteFile(t, t.TempDir(), "people.csv", testutil.PeopleCSV)

	out, _, err := runCommand(t, NewRenderCommand(), cfg, path)
	require.NoError(t, err)
	assert.Equal(t, testutil.PeopleCSV, out)
	assert.Empty(t, cfg.Source.Path, "context config is left alone")
}

func TestRender_ConfiguredColumns(t *testing.T) {
	cfg := peopleConfig(t)
	cfg.Columns = []config.ColumnConfig{{Key: "dept", Title: "Department"}}
	cfg.Output = "markdown"

	out, _, err := runCommand(t, NewRenderCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "| Department |")
	assert.NotContains(t, out, "Bob")
}

func TestRender_UnknownSortWarns(t *testing.T) {
	cfg := peopleConfig(t)
	cfg.Sort = []config.SortConfig{{Column: "age"}}

	out, errOut, err := runCommand(t, NewRenderCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, errOut, `ignoring sort on unknown column "age"`)
	assert.Equal(t, testutil.PeopleCSV, out)
}

func TestRender_NoSource(t *testing.T) {
	_, _, err := runCommand(t, NewRenderCommand(), config.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source configured")
}

func TestRender_LoadError(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Path = "missing.csv"

	_, _, err := runCommand(t, NewRenderCommand(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load csv source")
}

func TestView_NotATerminalPrintsOnce(t *testing.T) {
	cfg := peopleConfig(t)
	cfg.Sort = []config.SortConfig{{Column: "name"}}

	out, _, err := runCommand(t, NewViewCommand(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "name,dept\nAmy,A\nBob,B\nCid,A\n", out)
}

func sourceConfig(typ, path, table string) source.Config {
	return source.Config{Type: typ, Path: path, Table: table}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		src  config.Config
		want string
	}{
		{config.Config{}, "sheetview"},
		{config.Config{Source: sourceConfig("", "data/people.csv", "")}, "people.csv"},
		{config.Config{Source: sourceConfig("postgres", "", "users")}, "users"},
		{config.Config{Source: sourceConfig("postgres", "", "")}, "postgres"},
	}
	for _, tt := range tests {
		cfg := tt.src
		assert.Equal(t, tt.want, sourceName(&CommandContext{Cfg: &cfg}))
	}
}

func TestDoctor(t *testing.T) {
	cfg := peopleConfig(t)
	cfg.Output = "json"
	cfg.Columns = []config.ColumnConfig{{Key: "name"}, {Key: "age"}}
	cfg.Sort = []config.SortConfig{{Column: "name"}}

	out, _, err := runCommand(t, NewDoctorCommand(), cfg)
	require.NoError(t, err)

	var report DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Source.Rows)
	assert.Equal(t, 2, report.Source.Columns)
	assert.Zero(t, report.Errors)

	status := map[string]HealthCheck{}
	for _, c := range report.Checks {
		status[c.ID] = c
	}
	assert.Equal(t, statusWarn, status["C001"].Status, "no config file")
	assert.Equal(t, statusPass, status["S001"].Status)
	assert.Equal(t, statusWarn, status["V001"].Status)
	assert.Equal(t, []string{`column "age" has no data in the source`}, status["V001"].Details)
	assert.Equal(t, []string{`field "dept" is not shown`}, status["V002"].Details)
	assert.Equal(t, statusPass, status["V003"].Status)
}

func TestDoctor_NoSource(t *testing.T) {
	cfg := config.Default()
	cfg.Output = "markdown"

	out, _, err := runCommand(t, NewDoctorCommand(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 problem(s)")
	assert.Contains(t, out, "- **[ERROR]** S001: Source loads")
	assert.Contains(t, out, "no source configured")
}

func TestDoctor_Text(t *testing.T) {
	cfg := peopleConfig(t)
	cfg.Output = "table"

	out, _, err := runCommand(t, NewDoctorCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "sheetview Health Report")
	assert.Contains(t, out, "people.csv | Rows: 3 | Columns: 2")
	assert.Contains(t, out, "0 error(s), 1 warning(s)")
}
