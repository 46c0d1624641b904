// Package sheet provides the data-and-state engine behind an interactive
// tabular view.
//
// A View owns an insertion-ordered column registry, an ordered record store,
// a sort chain, and cursor/selection state. Hosts (a TUI, an HTTP API, a REPL)
// call into the view in response to user input and re-render from its state.
// The package never draws, never blocks on I/O, and never logs.
//
// Every caller-facing operation is total: removals report absence with a
// boolean, unknown sort keys are ignored, and cursor moves are clamped to the
// current extents. A View is not safe for concurrent use; hosts that share one
// across goroutines must serialize access themselves.
//
// Usage:
//
//	v := sheet.New[cell.Value, *App]()
//	v.InsertColumn("name", sheet.NewColumn("Name"))
//	v.InsertColumn("dept", sheet.NewColumn("Dept"))
//	v.PushRecord(cell.Record{"name": cell.Text("Bob"), "dept": cell.Text("B")})
//	v.SortByColumn("dept", true)
//	v.SetCursor(0, 0)
package sheet
