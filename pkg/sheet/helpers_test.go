package sheet

import (
	"strings"
	"testing"
)

// text is a minimal Item used by the engine tests.
type text string

func (t text) Render(string) string { return string(t) }

func (t text) Compare(other text, _ string) int {
	return strings.Compare(string(t), string(other))
}

type rec = Record[text]

// events records every callback invocation.
type events struct {
	sorts   []SortLevel
	submits []Position
	selects []Position
}

func newView(t *testing.T) *View[text, *events] {
	t.Helper()
	v := New[text, *events]()
	v.SetOnSort(func(ev *events, column string, order Order) {
		ev.sorts = append(ev.sorts, SortLevel{Key: column, Order: order})
	})
	v.SetOnSubmit(func(ev *events, row, column int) {
		ev.submits = append(ev.submits, Position{Column: column, Row: row})
	})
	v.SetOnSelect(func(ev *events, row, column int) {
		ev.selects = append(ev.selects, Position{Column: column, Row: row})
	})
	return v
}

// people builds the name/dept fixture used across tests.
func people(t *testing.T) *View[text, *events] {
	t.Helper()
	v := newView(t)
	v.InsertColumn("name", NewColumn("Name"))
	v.InsertColumn("dept", NewColumn("Dept"))
	v.PushRecord(rec{"name": "Bob", "dept": "B"})
	v.PushRecord(rec{"name": "Amy", "dept": "A"})
	v.PushRecord(rec{"name": "Cid", "dept": "A"})
	return v
}

// column returns the rendered values of key in row order.
func column(v *View[text, *events], key string) []string {
	var out []string
	for _, r := range v.Records() {
		out = append(out, string(r[key]))
	}
	return out
}
