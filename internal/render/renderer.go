package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"

	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

// Marker strings drawn by the table renderer.
const (
	CursorMarker   = ">"
	SelectedMarker = "*"
	Ellipsis       = "…"
)

// Renderer writes snapshots to an output in one mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer. ModeAuto is resolved against out.
func NewRenderer(out, errOut io.Writer, mode Mode, noColor bool) *Renderer {
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode.Resolve(out),
		styles: NewStyles(out, noColor),
	}
}

// Mode returns the resolved output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Styles returns the styles bound to the output.
func (r *Renderer) Styles() *Styles { return r.styles }

// Out returns the output writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Println writes a line to the output.
func (r *Renderer) Println(a ...any) { _, _ = fmt.Fprintln(r.out, a...) }

// Printf writes formatted text to the output.
func (r *Renderer) Printf(format string, a ...any) { _, _ = fmt.Fprintf(r.out, format, a...) }

// Warnf writes a formatted warning to the error output.
func (r *Renderer) Warnf(format string, a ...any) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render(fmt.Sprintf(format, a...)))
}

// Snapshot writes snap in the renderer's mode.
func (r *Renderer) Snapshot(snap sheet.Snapshot) error {
	switch r.mode {
	case ModeJSON:
		return JSON(r.out, snap)
	case ModeCSV:
		return CSV(r.out, snap)
	case ModeMarkdown:
		return Markdown(r.out, snap)
	default:
		return Table(r.out, snap, r.styles)
	}
}

// Table draws snap as a boxed table. The cursor row is marked in a leading
// gutter and selected cells carry a marker prefix. Sorted columns show their
// direction in the header.
func Table(w io.Writer, snap sheet.Snapshot, styles *Styles) error {
	if len(snap.Columns) == 0 {
		_, _ = fmt.Fprintln(w, "(no columns)")
		return nil
	}
	if styles == nil {
		styles = NewStyles(w, true)
	}

	widths := ColumnWidths(snap)
	selected := snap.SelectedSet()
	sorted := SortIndicators(snap.Sort)

	style := table.StyleLight
	style.Format.Header = text.FormatDefault

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(style)

	header := make(table.Row, len(snap.Columns)+1)
	header[0] = ""
	configs := []table.ColumnConfig{{Number: 1, WidthMin: len(CursorMarker)}}
	for i, col := range snap.Columns {
		label := Fit(col.Label(), widths[i])
		if ind, ok := sorted[col.Key]; ok {
			label = styles.Sorted.Render(label + " " + ind)
		} else {
			label = styles.Header.Render(label)
		}
		header[i+1] = label
		configs = append(configs, table.ColumnConfig{
			Number:      i + 2,
			Align:       textAlign(col.Align),
			AlignHeader: textAlign(col.Align),
			WidthMin:    widths[i],
		})
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for r, cells := range snap.Rows {
		row := make(table.Row, len(cells)+1)
		row[0] = ""
		if snap.Cursor != nil && snap.Cursor.Row == r {
			row[0] = CursorMarker
		}
		for c, cl := range cells {
			s := cl.Text
			if selected[sheet.Position{Column: c, Row: r}] {
				s = SelectedMarker + s
			}
			s = Fit(s, widths[c])
			switch {
			case snap.IsCursor(c, r):
				s = styles.Cursor.Render(s)
			case selected[sheet.Position{Column: c, Row: r}]:
				s = styles.Selected.Render(s)
			}
			row[c+1] = s
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(snap.Rows))
	return nil
}

// ColumnWidths applies each column's width policy to the widest of its label
// and cells. Selected cells count their marker.
func ColumnWidths(snap sheet.Snapshot) []int {
	selected := snap.SelectedSet()
	widths := make([]int, len(snap.Columns))
	for i, col := range snap.Columns {
		content := runewidth.StringWidth(col.Label())
		for r, row := range snap.Rows {
			if i >= len(row) {
				continue
			}
			cw := runewidth.StringWidth(row[i].Text)
			if selected[sheet.Position{Column: i, Row: r}] {
				cw += runewidth.StringWidth(SelectedMarker)
			}
			content = max(content, cw)
		}
		widths[i] = col.Width.Fit(content)
	}
	return widths
}

// Fit truncates s to width display cells, ending in an ellipsis when cut.
// A zero width returns "".
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, Ellipsis)
}

// Pad truncates or pads s to exactly width display cells using align.
func Pad(s string, width int, align sheet.Alignment) string {
	s = Fit(s, width)
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case sheet.AlignEnd:
		return strings.Repeat(" ", gap) + s
	case sheet.AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

func textAlign(a sheet.Alignment) text.Align {
	switch a {
	case sheet.AlignCenter:
		return text.AlignCenter
	case sheet.AlignEnd:
		return text.AlignRight
	default:
		return text.AlignLeft
	}
}

// SortIndicators maps each sorted column key to an arrow with its level, as
// in "▲1".
func SortIndicators(chain []sheet.SortLevel) map[string]string {
	out := make(map[string]string, len(chain))
	for i, level := range chain {
		arrow := "▲"
		if level.Order == sheet.Descending {
			arrow = "▼"
		}
		if len(chain) > 1 {
			arrow += fmt.Sprint(i + 1)
		}
		out[level.Key] = arrow
	}
	return out
}

// JSON writes the rows as an array of objects keyed by column key. Missing
// values are left out of their object.
func JSON(w io.Writer, snap sheet.Snapshot) error {
	rows := make([]map[string]string, len(snap.Rows))
	for r, cells := range snap.Rows {
		obj := make(map[string]string, len(cells))
		for c, cl := range cells {
			if cl.Present && c < len(snap.Columns) {
				obj[snap.Columns[c].Key] = cl.Text
			}
		}
		rows[r] = obj
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// CSV writes a header of column keys followed by one line per row.
func CSV(w io.Writer, snap sheet.Snapshot) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(snap.Columns))
	for i, col := range snap.Columns {
		header[i] = col.Key
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, cells := range snap.Rows {
		record := make([]string, len(cells))
		for i, cl := range cells {
			record[i] = cl.Text
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown writes a GitHub-flavored table with alignment markers.
func Markdown(w io.Writer, snap sheet.Snapshot) error {
	if len(snap.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	labels := make([]string, len(snap.Columns))
	seps := make([]string, len(snap.Columns))
	for i, col := range snap.Columns {
		labels[i] = escapeMarkdown(col.Label())
		switch col.Align {
		case sheet.AlignCenter:
			seps[i] = ":---:"
		case sheet.AlignEnd:
			seps[i] = "---:"
		default:
			seps[i] = "---"
		}
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(labels, " | "))
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, cells := range snap.Rows {
		values := make([]string, len(cells))
		for i, cl := range cells {
			values[i] = escapeMarkdown(cl.Text)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
