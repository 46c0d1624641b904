package sheet

// Snapshot is a plain copy of a view's state with every cell rendered.
type Snapshot struct {
	Columns      []Column    `json:"columns"`
	Rows         [][]Cell    `json:"rows"`
	Cursor       *Position   `json:"cursor"`
	Selected     []Position  `json:"selected"`
	Sort         []SortLevel `json:"sort"`
	ColumnSelect bool        `json:"column_select"`
	Enabled      bool        `json:"enabled"`
	ReadOnly     bool        `json:"read_only"`
}

// Cell is one rendered cell. Present is false when the record has no value
// for the column.
type Cell struct {
	Text    string `json:"text"`
	Present bool   `json:"present"`
}

// Snapshot renders the current state.
func (v *View[T, C]) Snapshot() Snapshot {
	cols := v.columns.Slice()
	rows := make([][]Cell, v.records.Len())
	for i, r := range v.records.All() {
		row := make([]Cell, len(cols))
		for j, col := range cols {
			if val, ok := r[col.Key]; ok {
				row[j] = Cell{Text: val.Render(col.Key), Present: true}
			}
		}
		rows[i] = row
	}

	snap := Snapshot{
		Columns:      cols,
		Rows:         rows,
		Selected:     v.selection.Positions(),
		Sort:         v.SortChain(),
		ColumnSelect: v.columnSelect,
		Enabled:      v.enabled,
		ReadOnly:     v.readOnly,
	}
	if pos, ok := v.Cursor(); ok {
		snap.Cursor = &pos
	}
	return snap
}

// IsCursor reports whether (col, row) is the snapshot's cursor.
func (s Snapshot) IsCursor(col, row int) bool {
	return s.Cursor != nil && s.Cursor.Column == col && s.Cursor.Row == row
}

// IsSelected reports whether (col, row) is selected in the snapshot.
func (s Snapshot) IsSelected(col, row int) bool {
	for _, p := range s.Selected {
		if p.Column == col && p.Row == row {
			return true
		}
	}
	return false
}

// SelectedSet indexes the snapshot selection for repeated lookups.
func (s Snapshot) SelectedSet() map[Position]bool {
	set := make(map[Position]bool, len(s.Selected))
	for _, p := range s.Selected {
		set[p] = true
	}
	return set
}
