package sheet

import (
	"cmp"
	"maps"
	"slices"
)

// Position addresses one cell by column index and row index.
type Position struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// clampCursor derives the cursor from the current extents and the last
// requested position. It reports false when either extent is empty.
func clampCursor(requested Position, columns, rows int) (Position, bool) {
	if columns <= 0 || rows <= 0 {
		return Position{}, false
	}
	return Position{
		Column: clampIndex(requested.Column, columns),
		Row:    clampIndex(requested.Row, rows),
	}, true
}

func clampIndex(i, n int) int {
	return max(0, min(i, n-1))
}

// focus is the cursor state: the position last asked for and the position it
// resolves to under the current extents.
type focus struct {
	requested Position
	pos       Position
	present   bool
}

// resolve recomputes the cursor. A resolved position becomes the new request
// so that shrinking and regrowing the view does not jump back.
func (f *focus) resolve(columns, rows int) {
	f.pos, f.present = clampCursor(f.requested, columns, rows)
	if f.present {
		f.requested = f.pos
	}
}

// Selection is a duplicate-free set of selected cells.
type Selection struct {
	cells map[Position]struct{}
}

// Add inserts p and reports whether it was not already selected.
func (s *Selection) Add(p Position) bool {
	if _, ok := s.cells[p]; ok {
		return false
	}
	if s.cells == nil {
		s.cells = make(map[Position]struct{})
	}
	s.cells[p] = struct{}{}
	return true
}

// Remove deletes p and reports whether it was selected.
func (s *Selection) Remove(p Position) bool {
	if _, ok := s.cells[p]; !ok {
		return false
	}
	delete(s.cells, p)
	return true
}

// Contains reports whether p is selected.
func (s *Selection) Contains(p Position) bool {
	_, ok := s.cells[p]
	return ok
}

// Len returns the number of selected cells.
func (s *Selection) Len() int {
	return len(s.cells)
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.cells = nil
}

// Positions returns the selected cells ordered by row, then column.
func (s *Selection) Positions() []Position {
	out := slices.Collect(maps.Keys(s.cells))
	slices.SortFunc(out, comparePositions)
	return out
}

// prune drops cells that fall outside the given extents.
func (s *Selection) prune(columns, rows int) {
	for p := range s.cells {
		if p.Column >= columns || p.Row >= rows {
			delete(s.cells, p)
		}
	}
}

func comparePositions(a, b Position) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Column, b.Column)
}
