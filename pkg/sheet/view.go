package sheet

import (
	"iter"
	"slices"
)

// View is the engine behind one tabular view. T is the cell item type and C
// is the host context handed to event handlers.
//
// A new View is enabled, read-only, in cell-select mode, with no columns,
// no records, and an absent cursor.
type View[T Item[T], C any] struct {
	columns   Columns
	records   Records[T]
	chain     []SortLevel
	focus     focus
	selection Selection
	callbacks callbacks[C]

	columnSelect bool
	enabled      bool
	readOnly     bool
}

// New creates an empty view.
func New[T Item[T], C any]() *View[T, C] {
	return &View[T, C]{
		enabled:  true,
		readOnly: true,
	}
}

// refresh re-derives cursor and selection after any structural change.
func (v *View[T, C]) refresh() {
	cols, rows := v.columns.Len(), v.records.Len()
	v.focus.resolve(cols, rows)
	v.selection.prune(cols, rows)
}

// ---------------------------------------------------------------------------
// Columns
// ---------------------------------------------------------------------------

// InsertColumn adds def under key or replaces the existing definition in place.
func (v *View[T, C]) InsertColumn(key string, def Column) {
	v.columns.Insert(key, def)
	v.refresh()
}

// RemoveColumn removes the column stored under key. A missing key reports false.
func (v *View[T, C]) RemoveColumn(key string) (Column, bool) {
	removed, ok := v.columns.Remove(key)
	if !ok {
		return Column{}, false
	}
	v.chain = truncateChain(v.chain, key)
	v.refresh()
	return removed, true
}

// RemoveLastColumn removes the last column.
func (v *View[T, C]) RemoveLastColumn() (Column, bool) {
	removed, ok := v.columns.RemoveLast()
	if !ok {
		return Column{}, false
	}
	v.chain = truncateChain(v.chain, removed.Key)
	v.refresh()
	return removed, true
}

// ClearColumns removes every column.
func (v *View[T, C]) ClearColumns() {
	v.columns.Clear()
	v.chain = nil
	v.refresh()
}

// HasColumn reports whether a column is stored under key.
func (v *View[T, C]) HasColumn(key string) bool { return v.columns.Contains(key) }

// ColumnCount returns the number of columns.
func (v *View[T, C]) ColumnCount() int { return v.columns.Len() }

// Column returns the column at position i.
func (v *View[T, C]) Column(i int) (Column, bool) { return v.columns.At(i) }

// ColumnByKey returns the column stored under key.
func (v *View[T, C]) ColumnByKey(key string) (Column, bool) { return v.columns.Get(key) }

// ColumnIndex returns the position of the column stored under key.
func (v *View[T, C]) ColumnIndex(key string) (int, bool) { return v.columns.Index(key) }

// ColumnKeys returns the column keys in display order.
func (v *View[T, C]) ColumnKeys() []string { return v.columns.Keys() }

// Columns iterates over columns in display order.
func (v *View[T, C]) Columns() iter.Seq2[int, Column] { return v.columns.All() }

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

// PushRecord appends r. Records may be pushed before any column exists.
func (v *View[T, C]) PushRecord(r Record[T]) {
	v.records.Push(r)
	v.chain = nil
	v.refresh()
}

// InsertRecord inserts r before row i, clamping i into [0, RecordCount()].
func (v *View[T, C]) InsertRecord(i int, r Record[T]) {
	v.records.InsertAt(i, r)
	v.chain = nil
	v.refresh()
}

// ExtendRecords appends every record yielded by seq in yield order.
func (v *View[T, C]) ExtendRecords(seq iter.Seq[Record[T]]) {
	v.records.Extend(seq)
	v.chain = nil
	v.refresh()
}

// PopRecord removes and returns the last record.
func (v *View[T, C]) PopRecord() (Record[T], bool) {
	r, ok := v.records.Pop()
	if ok {
		v.refresh()
	}
	return r, ok
}

// RemoveRecord removes and returns the record at row i. Later rows shift down
// by one. An out-of-range row reports false and leaves the store unchanged.
func (v *View[T, C]) RemoveRecord(i int) (Record[T], bool) {
	r, ok := v.records.RemoveAt(i)
	if ok {
		v.refresh()
	}
	return r, ok
}

// ClearRecords removes every record.
func (v *View[T, C]) ClearRecords() {
	v.records.Clear()
	v.chain = nil
	v.refresh()
}

// RecordCount returns the number of records.
func (v *View[T, C]) RecordCount() int { return v.records.Len() }

// Record returns the record at row i. The returned map is owned by the view;
// use SetCell and ClearCell to edit it.
func (v *View[T, C]) Record(i int) (Record[T], bool) { return v.records.At(i) }

// Records iterates over (row, record) pairs in row order.
func (v *View[T, C]) Records() iter.Seq2[int, Record[T]] { return v.records.All() }

// UnknownKeys returns, sorted, the keys of r that no registered column declares.
func (v *View[T, C]) UnknownKeys(r Record[T]) []string {
	var unknown []string
	for key := range r {
		if !v.columns.Contains(key) {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	return unknown
}

// ---------------------------------------------------------------------------
// Cells
// ---------------------------------------------------------------------------

// Cell returns the value at (row, column index).
func (v *View[T, C]) Cell(row, col int) (T, bool) {
	var zero T
	column, ok := v.columns.At(col)
	if !ok {
		return zero, false
	}
	r, ok := v.records.At(row)
	if !ok {
		return zero, false
	}
	val, ok := r[column.Key]
	return val, ok
}

// CellText renders the value at (row, column index), or "" when absent.
func (v *View[T, C]) CellText(row, col int) string {
	val, ok := v.Cell(row, col)
	if !ok {
		return ""
	}
	column, _ := v.columns.At(col)
	return val.Render(column.Key)
}

// SetCell stores val under key in the record at row. It is a no-op reporting
// false when the view is read-only, the row is out of range, or key is not a
// registered column.
func (v *View[T, C]) SetCell(row int, key string, val T) bool {
	if v.readOnly || !v.columns.Contains(key) {
		return false
	}
	r, ok := v.records.At(row)
	if !ok {
		return false
	}
	if r == nil {
		r = make(Record[T])
		v.records.rows[row] = r
	}
	r[key] = val
	v.chain = nil
	return true
}

// ClearCell deletes the value under key in the record at row, under the same
// conditions as SetCell. Clearing an already-missing value reports true.
func (v *View[T, C]) ClearCell(row int, key string) bool {
	if v.readOnly || !v.columns.Contains(key) {
		return false
	}
	r, ok := v.records.At(row)
	if !ok {
		return false
	}
	delete(r, key)
	v.chain = nil
	return true
}

// ---------------------------------------------------------------------------
// Sorting
// ---------------------------------------------------------------------------

// SortByColumn stably sorts the records by the column stored under key. Each
// call only breaks ties the current sort chain leaves open, so sorting by
// "dept" and then "name" orders by name within each dept. Sorting by a key
// already in the chain drops that level and every finer one first. Missing
// values sort lowest in both directions. An unknown key is a no-op reporting
// false.
func (v *View[T, C]) SortByColumn(key string, ascending bool) bool {
	if !v.columns.Contains(key) {
		return false
	}
	level := SortLevel{Key: key, Order: OrderOf(ascending)}
	v.chain = truncateChain(v.chain, key)
	sortRuns(v.records.rows, v.chain, level)
	v.chain = append(v.chain, level)
	v.refresh()
	return true
}

// SortChain returns the applied sort levels, coarsest first.
func (v *View[T, C]) SortChain() []SortLevel {
	return slices.Clone(v.chain)
}

// ResetSort forgets the sort chain so the next sort orders all records.
func (v *View[T, C]) ResetSort() {
	v.chain = nil
}

// RequestSort sorts by key and fires the sort handler. It is a no-op while the
// view is disabled or when key is unknown.
func (v *View[T, C]) RequestSort(ctx C, key string, order Order) bool {
	if !v.enabled || !v.SortByColumn(key, order == Ascending) {
		return false
	}
	v.callbacks.sort(ctx, key, order)
	return true
}

// ToggleSort sorts by key ascending, or flips the direction when key is the
// finest level of the chain, then fires the sort handler.
func (v *View[T, C]) ToggleSort(ctx C, key string) bool {
	order := Ascending
	if n := len(v.chain); n > 0 && v.chain[n-1].Key == key {
		order = v.chain[n-1].Order.Reverse()
	}
	return v.RequestSort(ctx, key, order)
}

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

// Cursor returns the focused cell, or false when the view has no columns or
// no records.
func (v *View[T, C]) Cursor() (Position, bool) {
	return v.focus.pos, v.focus.present
}

// SetCursor focuses (col, row) clamped to the last valid index on each axis.
// With no columns or no records the cursor stays absent. No-op while disabled.
func (v *View[T, C]) SetCursor(col, row int) {
	if !v.enabled {
		return
	}
	v.focus.requested = Position{Column: col, Row: row}
	v.refresh()
}

// MoveBy shifts the cursor by (dx, dy), clamping at every edge.
func (v *View[T, C]) MoveBy(dx, dy int) {
	if !v.focus.present {
		return
	}
	v.SetCursor(v.focus.pos.Column+dx, v.focus.pos.Row+dy)
}

// PageBy moves the cursor n rows down (up when negative).
func (v *View[T, C]) PageBy(n int) { v.MoveBy(0, n) }

// MoveToFirstRow focuses the first row of the current column.
func (v *View[T, C]) MoveToFirstRow() { v.SetCursor(v.focus.requested.Column, 0) }

// MoveToLastRow focuses the last row of the current column.
func (v *View[T, C]) MoveToLastRow() {
	v.SetCursor(v.focus.requested.Column, v.records.Len()-1)
}

// MoveToFirstColumn focuses the first column of the current row.
func (v *View[T, C]) MoveToFirstColumn() { v.SetCursor(0, v.focus.requested.Row) }

// MoveToLastColumn focuses the last column of the current row.
func (v *View[T, C]) MoveToLastColumn() {
	v.SetCursor(v.columns.Len()-1, v.focus.requested.Row)
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// SetColumnSelect switches select intents between whole-column and per-cell
// granularity.
func (v *View[T, C]) SetColumnSelect(on bool) { v.columnSelect = on }

// ColumnSelect reports whether select intents cover whole columns.
func (v *View[T, C]) ColumnSelect() bool { return v.columnSelect }

func (v *View[T, C]) inBounds(col, row int) bool {
	return col >= 0 && col < v.columns.Len() && row >= 0 && row < v.records.Len()
}

// SelectCell adds exactly (col, row) to the selection and reports whether it
// was newly added. Out-of-range cells are ignored.
func (v *View[T, C]) SelectCell(col, row int) bool {
	if !v.enabled || !v.inBounds(col, row) {
		return false
	}
	return v.selection.Add(Position{Column: col, Row: row})
}

// UnselectCell removes exactly (col, row) and reports whether it was selected.
func (v *View[T, C]) UnselectCell(col, row int) bool {
	if !v.enabled {
		return false
	}
	return v.selection.Remove(Position{Column: col, Row: row})
}

// Select applies a select intent at (col, row): the single cell, or every
// row of column col in column-select mode. It returns how many cells were
// newly selected.
func (v *View[T, C]) Select(col, row int) int {
	if !v.enabled || !v.inBounds(col, row) {
		return 0
	}
	added := 0
	for _, p := range v.expand(col, row) {
		if v.selection.Add(p) {
			added++
		}
	}
	return added
}

// Unselect reverses a select intent at (col, row) and returns how many cells
// were deselected.
func (v *View[T, C]) Unselect(col, row int) int {
	if !v.enabled || !v.inBounds(col, row) {
		return 0
	}
	removed := 0
	for _, p := range v.expand(col, row) {
		if v.selection.Remove(p) {
			removed++
		}
	}
	return removed
}

// ToggleSelect selects the intent target at (col, row), or deselects it when
// it is already fully selected.
func (v *View[T, C]) ToggleSelect(col, row int) {
	if !v.enabled || !v.inBounds(col, row) {
		return
	}
	cells := v.expand(col, row)
	all := true
	for _, p := range cells {
		if !v.selection.Contains(p) {
			all = false
			break
		}
	}
	for _, p := range cells {
		if all {
			v.selection.Remove(p)
		} else {
			v.selection.Add(p)
		}
	}
}

// expand materializes a select intent into cells.
func (v *View[T, C]) expand(col, row int) []Position {
	if !v.columnSelect {
		return []Position{{Column: col, Row: row}}
	}
	cells := make([]Position, v.records.Len())
	for r := range cells {
		cells[r] = Position{Column: col, Row: r}
	}
	return cells
}

// ClearSelection deselects everything. No-op while disabled.
func (v *View[T, C]) ClearSelection() {
	if !v.enabled {
		return
	}
	v.selection.Clear()
}

// IsSelected reports whether (col, row) is selected.
func (v *View[T, C]) IsSelected(col, row int) bool {
	return v.selection.Contains(Position{Column: col, Row: row})
}

// Selected returns the selected cells ordered by row, then column.
func (v *View[T, C]) Selected() []Position { return v.selection.Positions() }

// SelectionLen returns the number of selected cells.
func (v *View[T, C]) SelectionLen() int { return v.selection.Len() }

// ---------------------------------------------------------------------------
// Input intents and flags
// ---------------------------------------------------------------------------

// Submit fires the submit handler at the cursor. It reports false when the
// view is disabled or the cursor is absent.
func (v *View[T, C]) Submit(ctx C) bool {
	if !v.enabled || !v.focus.present {
		return false
	}
	v.callbacks.submit(ctx, v.focus.pos.Row, v.focus.pos.Column)
	return true
}

// SelectAtCursor toggles the select intent at the cursor and fires the select
// handler.
func (v *View[T, C]) SelectAtCursor(ctx C) bool {
	if !v.enabled || !v.focus.present {
		return false
	}
	pos := v.focus.pos
	v.ToggleSelect(pos.Column, pos.Row)
	v.callbacks.selected(ctx, pos.Row, pos.Column)
	return true
}

// SetOnSort registers the sort handler. nil removes it.
func (v *View[T, C]) SetOnSort(f SortFunc[C]) { v.callbacks.onSort = f }

// SetOnSubmit registers the submit handler. nil removes it.
func (v *View[T, C]) SetOnSubmit(f IndexFunc[C]) { v.callbacks.onSubmit = f }

// SetOnSelect registers the select handler. nil removes it.
func (v *View[T, C]) SetOnSelect(f IndexFunc[C]) { v.callbacks.onSelect = f }

// SetEnabled gates cursor movement, selection, and input intents.
func (v *View[T, C]) SetEnabled(on bool) { v.enabled = on }

// Enabled reports whether the view accepts focus-changing operations.
func (v *View[T, C]) Enabled() bool { return v.enabled }

// SetReadOnly gates cell edits.
func (v *View[T, C]) SetReadOnly(on bool) { v.readOnly = on }

// ReadOnly reports whether cell edits are rejected.
func (v *View[T, C]) ReadOnly() bool { return v.readOnly }
