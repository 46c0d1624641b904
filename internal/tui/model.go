// Package tui hosts a sheet view in an interactive bubbletea program.
//
// The model passes itself as the view's callback context, so sort, submit and
// select events update the status line directly.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/sheetview/internal/render"
	"github.com/leapstack-labs/sheetview/pkg/cell"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

// View is the engine type the TUI drives.
type View = sheet.View[cell.Value, *Model]

// Options configure a Model.
type Options struct {
	Title   string
	NoColor bool
	// ExitOnSubmit quits after a submit so the caller can read Picked.
	ExitOnSubmit bool

	Input  io.Reader
	Output io.Writer
}

const (
	statusDuration = 2 * time.Second
	gutterWidth    = 2
	columnGap      = "  "
	chromeLines    = 5 // title, header, separator, blank, footer
)

type statusClearMsg struct{}

// Model is the bubbletea model over one view.
type Model struct {
	view   *View
	opts   Options
	styles *render.Styles
	help   help.Model
	copy   func(string) error

	width  int
	height int
	ready  bool

	rowOffset int
	colOffset int

	status      string
	statusUntil time.Time
	pending     tea.Cmd

	picked *sheet.Position
}

// New builds a model over v and registers the view's event handlers.
func New(v *View, opts Options) *Model {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	m := &Model{
		view:   v,
		opts:   opts,
		styles: render.NewStyles(out, opts.NoColor),
		help:   help.New(),
		copy:   clipboard.WriteAll,
	}

	v.SetOnSort(func(m *Model, column string, order sheet.Order) {
		label := column
		if col, ok := v.ColumnByKey(column); ok {
			label = col.Label()
		}
		m.setStatus(fmt.Sprintf("Sorted by %s (%s)", label, order))
	})
	v.SetOnSubmit(func(m *Model, row, column int) {
		m.picked = &sheet.Position{Column: column, Row: row}
		m.setStatus(fmt.Sprintf("Submitted row %d: %s", row+1, v.CellText(row, column)))
	})
	v.SetOnSelect(func(m *Model, row, column int) {
		m.setStatus(fmt.Sprintf("%d selected", v.SelectionLen()))
	})
	return m
}

// Run starts the program and blocks until the user quits. It returns the
// final model so the caller can inspect Picked.
func Run(ctx context.Context, v *View, opts Options) (*Model, error) {
	if opts.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	m := New(v, opts)

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	final, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil {
		return m, fmt.Errorf("failed to run viewer: %w", err)
	}
	if fm, ok := final.(*Model); ok {
		return fm, nil
	}
	return m, nil
}

// Picked returns the cell of the last submit.
func (m *Model) Picked() (sheet.Position, bool) {
	if m.picked == nil {
		return sheet.Position{}, false
	}
	return *m.picked, true
}

// Status returns the current status message.
func (m *Model) Status() string { return m.status }

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case statusClearMsg:
		if !m.statusUntil.IsZero() && !time.Now().Before(m.statusUntil) {
			m.status = ""
			m.statusUntil = time.Time{}
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	m.ensureVisible()
	return m, nil
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.view

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		v.MoveBy(0, -1)
	case key.Matches(msg, keys.Down):
		v.MoveBy(0, 1)
	case key.Matches(msg, keys.Left):
		v.MoveBy(-1, 0)
	case key.Matches(msg, keys.Right):
		v.MoveBy(1, 0)
	case key.Matches(msg, keys.PageUp):
		v.PageBy(-m.visibleRows())
	case key.Matches(msg, keys.PageDown):
		v.PageBy(m.visibleRows())
	case key.Matches(msg, keys.Top):
		v.MoveToFirstRow()
	case key.Matches(msg, keys.Bottom):
		v.MoveToLastRow()
	case key.Matches(msg, keys.First):
		v.MoveToFirstColumn()
	case key.Matches(msg, keys.Last):
		v.MoveToLastColumn()

	case key.Matches(msg, keys.Select):
		if !v.SelectAtCursor(m) {
			m.rejected()
		}
	case key.Matches(msg, keys.Clear):
		if v.Enabled() {
			v.ClearSelection()
			m.setStatus("Selection cleared")
		} else {
			m.rejected()
		}
	case key.Matches(msg, keys.ColumnSelect):
		v.SetColumnSelect(!v.ColumnSelect())
		m.setStatus("Column select " + onOff(v.ColumnSelect()))
	case key.Matches(msg, keys.Sort):
		if !m.toggleSort() {
			m.rejected()
		}
	case key.Matches(msg, keys.ResetSort):
		v.ResetSort()
		m.setStatus("Sort chain reset")

	case key.Matches(msg, keys.Submit):
		if !v.Submit(m) {
			m.rejected()
		} else if m.opts.ExitOnSubmit {
			return m, tea.Quit
		}
	case key.Matches(msg, keys.Yank):
		m.yankCell()
	case key.Matches(msg, keys.Enable):
		v.SetEnabled(!v.Enabled())
		if v.Enabled() {
			m.setStatus("View enabled")
		} else {
			m.setStatus("View disabled")
		}
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	m.ensureVisible()
	return m, m.takePending()
}

func (m *Model) toggleSort() bool {
	pos, ok := m.view.Cursor()
	if !ok {
		return false
	}
	col, ok := m.view.Column(pos.Column)
	if !ok {
		return false
	}
	return m.view.ToggleSort(m, col.Key)
}

func (m *Model) rejected() {
	switch {
	case !m.view.Enabled():
		m.setStatus("View is disabled (press e)")
	default:
		m.setStatus("No cell under the cursor")
	}
}

// setStatus shows msg in the footer until statusDuration passes.
func (m *Model) setStatus(msg string) {
	m.status = msg
	m.statusUntil = time.Now().Add(statusDuration)
	m.pending = tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return statusClearMsg{}
	})
}

func (m *Model) takePending() tea.Cmd {
	cmd := m.pending
	m.pending = nil
	return cmd
}

// yankCell copies the cursor cell to the system clipboard.
func (m *Model) yankCell() {
	pos, ok := m.view.Cursor()
	if !ok {
		m.rejected()
		return
	}
	val := m.view.CellText(pos.Row, pos.Column)
	if err := m.copy(val); err != nil {
		m.setStatus(fmt.Sprintf("clipboard error: %s", err))
		return
	}
	m.setStatus("Copied: " + render.Fit(val, 40))
}

func (m *Model) visibleRows() int {
	extra := 0
	if m.help.ShowAll {
		for _, group := range keys.FullHelp() {
			extra = max(extra, len(group)-1)
		}
	}
	return max(1, m.height-chromeLines-extra)
}

// ensureVisible scrolls so the cursor cell is on screen.
func (m *Model) ensureVisible() {
	pos, ok := m.view.Cursor()
	if !ok {
		m.rowOffset, m.colOffset = 0, 0
		return
	}

	visible := m.visibleRows()
	if pos.Row < m.rowOffset {
		m.rowOffset = pos.Row
	}
	if pos.Row >= m.rowOffset+visible {
		m.rowOffset = pos.Row - visible + 1
	}
	m.rowOffset = max(0, min(m.rowOffset, m.view.RecordCount()-visible))

	if pos.Column < m.colOffset {
		m.colOffset = pos.Column
	}
	widths := m.columnWidths()
	for m.colOffset < pos.Column && !m.fits(widths, m.colOffset, pos.Column) {
		m.colOffset++
	}
}

// fits reports whether columns from..to fit the terminal width.
func (m *Model) fits(widths []int, from, to int) bool {
	if m.width <= 0 {
		return true
	}
	total := gutterWidth
	for i := from; i <= to; i++ {
		total += widths[i]
		if i > from {
			total += len(columnGap)
		}
	}
	return total <= m.width
}

// columnWidths sizes each column to its label and the rows on screen.
func (m *Model) columnWidths() []int {
	v := m.view
	sorted := render.SortIndicators(v.SortChain())
	end := min(v.RecordCount(), m.rowOffset+m.visibleRows())

	widths := make([]int, v.ColumnCount())
	for i, col := range v.Columns() {
		content := runewidth.StringWidth(headerLabel(col, sorted))
		for r := m.rowOffset; r < end; r++ {
			w := runewidth.StringWidth(v.CellText(r, i))
			if v.IsSelected(i, r) {
				w += len(render.SelectedMarker)
			}
			content = max(content, w)
		}
		widths[i] = col.Width.Fit(content)
	}
	return widths
}

func headerLabel(col sheet.Column, sorted map[string]string) string {
	if ind, ok := sorted[col.Key]; ok {
		return col.Label() + " " + ind
	}
	return col.Label()
}

func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(m.titleLine())
	sb.WriteString("\n")
	sb.WriteString(m.renderTable())
	sb.WriteString("\n")

	if m.status != "" && time.Now().Before(m.statusUntil) {
		sb.WriteString(m.styles.Success.Render(m.status))
	} else {
		sb.WriteString(m.help.View(keys))
	}
	return sb.String()
}

func (m *Model) titleLine() string {
	v := m.view
	title := m.opts.Title
	if title == "" {
		title = "sheetview"
	}
	line := m.styles.Header.Render(fmt.Sprintf("%s: %d rows, %d columns", title, v.RecordCount(), v.ColumnCount()))

	var flags []string
	if !v.Enabled() {
		flags = append(flags, "disabled")
	}
	if !v.ReadOnly() {
		flags = append(flags, "editable")
	}
	if v.ColumnSelect() {
		flags = append(flags, "column select")
	}
	if n := v.SelectionLen(); n > 0 {
		flags = append(flags, fmt.Sprintf("%d selected", n))
	}
	if chain := v.SortChain(); len(chain) > 0 {
		levels := make([]string, len(chain))
		for i, level := range chain {
			levels[i] = level.Key + " " + level.Order.String()
		}
		flags = append(flags, "sort: "+strings.Join(levels, ", "))
	}
	if len(flags) > 0 {
		line += m.styles.Muted.Render("  [" + strings.Join(flags, "] [") + "]")
	}
	return line
}

func (m *Model) renderTable() string {
	v := m.view
	if v.ColumnCount() == 0 {
		return "No columns\n"
	}

	widths := m.columnWidths()
	last := m.colOffset
	for last+1 < len(widths) && m.fits(widths, m.colOffset, last+1) {
		last++
	}
	if m.width > 0 {
		widths[m.colOffset] = min(widths[m.colOffset], max(1, m.width-gutterWidth))
	}

	sorted := render.SortIndicators(v.SortChain())
	pos, hasCursor := v.Cursor()

	var sb strings.Builder

	header := make([]string, 0, last-m.colOffset+1)
	rule := make([]string, 0, cap(header))
	for i := m.colOffset; i <= last; i++ {
		col, _ := v.Column(i)
		label := render.Pad(headerLabel(col, sorted), widths[i], col.Align)
		if _, ok := sorted[col.Key]; ok {
			header = append(header, m.styles.Sorted.Render(label))
		} else {
			header = append(header, m.styles.Header.Render(label))
		}
		rule = append(rule, strings.Repeat("─", widths[i]))
	}
	sb.WriteString(strings.Repeat(" ", gutterWidth) + strings.Join(header, columnGap) + "\n")
	sb.WriteString(m.styles.Muted.Render(strings.Repeat(" ", gutterWidth)+strings.Join(rule, columnGap)) + "\n")

	if v.RecordCount() == 0 {
		sb.WriteString(m.styles.Muted.Render("  (no records)") + "\n")
		return sb.String()
	}

	end := min(v.RecordCount(), m.rowOffset+m.visibleRows())
	for r := m.rowOffset; r < end; r++ {
		cursorRow := hasCursor && pos.Row == r
		gutter := strings.Repeat(" ", gutterWidth)
		if cursorRow {
			gutter = render.Pad(render.CursorMarker, gutterWidth, sheet.AlignStart)
		}

		cells := make([]string, 0, last-m.colOffset+1)
		for c := m.colOffset; c <= last; c++ {
			col, _ := v.Column(c)
			text := v.CellText(r, c)
			selected := v.IsSelected(c, r)
			if selected {
				text = render.SelectedMarker + text
			}
			text = render.Pad(text, widths[c], col.Align)
			switch {
			case cursorRow && pos.Column == c:
				text = m.styles.Cursor.Render(text)
			case selected:
				text = m.styles.Selected.Render(text)
			case cursorRow:
				text = m.styles.CursorRow.Render(text)
			}
			cells = append(cells, text)
		}
		sb.WriteString(gutter + strings.Join(cells, columnGap) + "\n")
	}
	return sb.String()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
