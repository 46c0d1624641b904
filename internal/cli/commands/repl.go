package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sheetview/internal/render"
	"github.com/leapstack-labs/sheetview/pkg/cell"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

const replPrompt = "sheetview> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [path]",
		Short: "Drive the view from an interactive prompt",
		Long: `Load the source and drive the view with dot-commands: sort, move the
cursor, select, submit and edit records, printing the view on demand.

Type .help at the prompt for the full list.`,
		Example: `  # Explore a CSV file
  sheetview repl people.csv --editable`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, args)
		},
	}

	return cmd
}

func runREPL(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	withPathArg(cc, args)

	v, err := loadView[*session](cmd.Context(), cc)
	if err != nil {
		return err
	}
	s := newSession(v, cc.Renderer, cmd.OutOrStdout())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sheetview REPL (%s: %d rows, %d columns)\n",
		sourceName(cc), v.RecordCount(), v.ColumnCount())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		quit, err := s.exec(line)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		if quit {
			break
		}
	}
	return nil
}

// historyFile is kept in the user cache directory; empty disables history.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "sheetview")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

// session is one REPL over a view. It doubles as the callback context, so
// fired events print as they happen.
type session struct {
	view *sheet.View[cell.Value, *session]
	r    *render.Renderer
	out  io.Writer
}

func newSession(v *sheet.View[cell.Value, *session], r *render.Renderer, out io.Writer) *session {
	v.SetOnSort(func(s *session, column string, order sheet.Order) {
		s.printf("sorted by %s %s\n", column, order)
	})
	v.SetOnSubmit(func(s *session, row, column int) {
		s.printf("submitted row %d, column %d: %s\n", row, column, v.CellText(row, column))
	})
	v.SetOnSelect(func(s *session, row, column int) {
		s.printf("toggled (%d, %d), %d selected\n", column, row, v.SelectionLen())
	})
	return &session{view: v, r: r, out: out}
}

func (s *session) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

var (
	errDisabled = errors.New("view is disabled (.enable on)")
	errReadOnly = errors.New("view is read-only (.readonly off)")
	errNoCursor = errors.New("no cell under the cursor")
)

// exec runs one input line and reports whether the REPL should exit.
func (s *session) exec(line string) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	command, args := strings.ToLower(parts[0]), parts[1:]

	switch command {
	case ".quit", ".exit":
		return true, nil
	case ".help":
		printREPLHelp(s.out)
		return false, nil
	case ".show":
		return false, s.r.Snapshot(s.view.Snapshot())
	case ".columns":
		s.printColumns()
		return false, nil
	}

	handler, ok := sessionCommands[command]
	if !ok {
		return false, fmt.Errorf("unknown command: %s (type .help for commands)", command)
	}
	return false, handler(s, args)
}

var sessionCommands = map[string]func(*session, []string) error{
	".sort":      (*session).sort,
	".cursor":    (*session).cursor,
	".move":      (*session).move,
	".select":    (*session).selectCells,
	".unselect":  (*session).unselect,
	".colselect": (*session).columnSelect,
	".submit":    (*session).submit,
	".push":      (*session).push,
	".remove":    (*session).remove,
	".set":       (*session).set,
	".readonly":  (*session).readOnly,
	".enable":    (*session).enable,
	".drop":      (*session).drop,
}

func (s *session) sort(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: .sort <key> [asc|desc]")
	}
	if !s.view.Enabled() {
		return errDisabled
	}
	key := args[0]
	if !s.view.HasColumn(key) {
		return fmt.Errorf("unknown column %q", key)
	}
	if len(args) == 1 {
		s.view.ToggleSort(s, key)
		return nil
	}
	order, err := sheet.ParseOrder(args[1])
	if err != nil {
		return err
	}
	s.view.RequestSort(s, key, order)
	return nil
}

func (s *session) cursor(args []string) error {
	col, row, err := intPair(args, "usage: .cursor <col> <row>")
	if err != nil {
		return err
	}
	if !s.view.Enabled() {
		return errDisabled
	}
	s.view.SetCursor(col, row)
	s.printCursor()
	return nil
}

func (s *session) move(args []string) error {
	dx, dy, err := intPair(args, "usage: .move <dx> <dy>")
	if err != nil {
		return err
	}
	if !s.view.Enabled() {
		return errDisabled
	}
	s.view.MoveBy(dx, dy)
	s.printCursor()
	return nil
}

func (s *session) printCursor() {
	pos, ok := s.view.Cursor()
	if !ok {
		s.printf("no cursor\n")
		return
	}
	s.printf("cursor at (%d, %d): %s\n", pos.Column, pos.Row, s.view.CellText(pos.Row, pos.Column))
}

func (s *session) selectCells(args []string) error {
	if !s.view.Enabled() {
		return errDisabled
	}
	if len(args) == 0 {
		if !s.view.SelectAtCursor(s) {
			return errNoCursor
		}
		return nil
	}
	col, row, err := intPair(args, "usage: .select [col row]")
	if err != nil {
		return err
	}
	if !s.inBounds(col, row) {
		return fmt.Errorf("cell (%d, %d) is out of range", col, row)
	}
	n := s.view.Select(col, row)
	s.printf("%d newly selected, %d selected\n", n, s.view.SelectionLen())
	return nil
}

func (s *session) unselect(args []string) error {
	col, row, err := intPair(args, "usage: .unselect <col> <row>")
	if err != nil {
		return err
	}
	if !s.view.Enabled() {
		return errDisabled
	}
	n := s.view.Unselect(col, row)
	s.printf("%d deselected, %d selected\n", n, s.view.SelectionLen())
	return nil
}

func (s *session) inBounds(col, row int) bool {
	return col >= 0 && col < s.view.ColumnCount() && row >= 0 && row < s.view.RecordCount()
}

func (s *session) columnSelect(args []string) error {
	on, err := parseSwitch(args, "usage: .colselect on|off")
	if err != nil {
		return err
	}
	s.view.SetColumnSelect(on)
	s.printf("column select %s\n", switchText(on))
	return nil
}

func (s *session) submit(args []string) error {
	if len(args) != 0 {
		return errors.New("usage: .submit")
	}
	if !s.view.Enabled() {
		return errDisabled
	}
	if !s.view.Submit(s) {
		return errNoCursor
	}
	return nil
}

// push appends a record built from key=value pairs. Values are typed the
// same way file sources type them.
func (s *session) push(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: .push key=value ...")
	}
	rec := make(cell.Record, len(args))
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid field %q (want key=value)", arg)
		}
		rec[key] = cell.Parse(val)
	}
	if unknown := s.view.UnknownKeys(rec); len(unknown) > 0 {
		s.r.Warnf("fields without a column are kept but not shown: %s", strings.Join(unknown, ", "))
	}
	s.view.PushRecord(rec)
	s.printf("pushed row %d\n", s.view.RecordCount()-1)
	return nil
}

func (s *session) remove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: .remove <row>")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid row %q", args[0])
	}
	if _, ok := s.view.RemoveRecord(row); !ok {
		return fmt.Errorf("row %d is out of range", row)
	}
	s.printf("removed row %d, %d rows left\n", row, s.view.RecordCount())
	return nil
}

func (s *session) set(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: .set <row> <key> <value>")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid row %q", args[0])
	}
	key, val := args[1], strings.Join(args[2:], " ")
	switch {
	case s.view.ReadOnly():
		return errReadOnly
	case !s.view.HasColumn(key):
		return fmt.Errorf("unknown column %q", key)
	case row < 0 || row >= s.view.RecordCount():
		return fmt.Errorf("row %d is out of range", row)
	}
	s.view.SetCell(row, key, cell.Parse(val))
	return nil
}

func (s *session) readOnly(args []string) error {
	on, err := parseSwitch(args, "usage: .readonly on|off")
	if err != nil {
		return err
	}
	s.view.SetReadOnly(on)
	s.printf("read-only %s\n", switchText(on))
	return nil
}

func (s *session) enable(args []string) error {
	on, err := parseSwitch(args, "usage: .enable on|off")
	if err != nil {
		return err
	}
	s.view.SetEnabled(on)
	s.printf("view %s\n", map[bool]string{true: "enabled", false: "disabled"}[on])
	return nil
}

func (s *session) drop(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: .drop <key>")
	}
	if _, ok := s.view.RemoveColumn(args[0]); !ok {
		return fmt.Errorf("unknown column %q", args[0])
	}
	s.printf("dropped column %s\n", args[0])
	return nil
}

func (s *session) printColumns() {
	if s.view.ColumnCount() == 0 {
		s.printf("no columns\n")
		return
	}
	for i, col := range s.view.Columns() {
		s.printf("%d  %-12s %-16q width=%s align=%s\n", i, col.Key, col.Title, col.Width, col.Align)
	}
}

func intPair(args []string, usage string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, errors.New(usage)
	}
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, errors.New(usage)
	}
	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, errors.New(usage)
	}
	return a, b, nil
}

func parseSwitch(args []string, usage string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New(usage)
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, errors.New(usage)
}

func switchText(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .show                    Print the view
  .columns                 List the columns
  .sort <key> [asc|desc]   Sort by a column; without an order the column toggles
  .cursor <col> <row>      Move the cursor
  .move <dx> <dy>          Move the cursor relative to where it is
  .select [col row]        Select a cell; without a cell toggle the cursor cell
  .unselect <col> <row>    Reverse a select at a cell (whole column in column-select mode)
  .colselect on|off        Select whole columns
  .submit                  Submit the cursor row
  .push key=value ...      Append a record
  .remove <row>            Remove a record
  .set <row> <key> <value> Edit a cell (needs .readonly off)
  .readonly on|off         Allow or forbid cell edits
  .enable on|off           Enable or disable the view
  .drop <key>              Remove a column
  .help                    Show this help message
  .quit / .exit            Exit the REPL

Tips:
  - Sorting again by a column already in the chain drops the finer levels
  - Use arrow keys to navigate history
  - Tab completion works for commands and column keys
`
	_, _ = fmt.Fprintln(w, help)
}

// completer completes dot-commands, and column keys where a command takes one.
func (s *session) completer() *readline.PrefixCompleter {
	keys := func(string) []string { return s.view.ColumnKeys() }

	return readline.NewPrefixCompleter(
		readline.PcItem(".show"),
		readline.PcItem(".columns"),
		readline.PcItem(".sort", readline.PcItemDynamic(keys,
			readline.PcItem("asc"), readline.PcItem("desc"))),
		readline.PcItem(".cursor"),
		readline.PcItem(".move"),
		readline.PcItem(".select"),
		readline.PcItem(".unselect"),
		readline.PcItem(".colselect", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem(".submit"),
		readline.PcItem(".push"),
		readline.PcItem(".remove"),
		readline.PcItem(".set"),
		readline.PcItem(".readonly", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem(".enable", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem(".drop", readline.PcItemDynamic(keys)),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
