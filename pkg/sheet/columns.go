package sheet

import (
	"iter"
	"slices"
)

// Columns is an insertion-ordered, uniquely keyed set of column definitions.
//
// Lookup by key is a map access. Iteration follows first-insertion order.
// Removal shifts later columns down by one position and keeps their relative
// order. The zero value is an empty registry ready to use.
type Columns struct {
	order []Column
	index map[string]int
}

// Insert adds def under key, or replaces the definition already stored under
// key. A replaced column keeps its position; a new column is appended.
func (c *Columns) Insert(key string, def Column) {
	def.Key = key
	if i, ok := c.index[key]; ok {
		c.order[i] = def
		return
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	c.index[key] = len(c.order)
	c.order = append(c.order, def)
}

// Remove deletes the column stored under key and returns it. Removing a key
// that is not present is a no-op that reports false.
func (c *Columns) Remove(key string) (Column, bool) {
	i, ok := c.index[key]
	if !ok {
		return Column{}, false
	}
	removed := c.order[i]
	c.order = slices.Delete(c.order, i, i+1)
	delete(c.index, key)
	for j := i; j < len(c.order); j++ {
		c.index[c.order[j].Key] = j
	}
	return removed, true
}

// RemoveLast deletes and returns the most recently appended column.
func (c *Columns) RemoveLast() (Column, bool) {
	if len(c.order) == 0 {
		return Column{}, false
	}
	last := c.order[len(c.order)-1]
	c.order = c.order[:len(c.order)-1]
	delete(c.index, last.Key)
	return last, true
}

// Clear removes every column.
func (c *Columns) Clear() {
	c.order = nil
	c.index = nil
}

// Contains reports whether a column is stored under key.
func (c *Columns) Contains(key string) bool {
	_, ok := c.index[key]
	return ok
}

// Get returns the column stored under key.
func (c *Columns) Get(key string) (Column, bool) {
	i, ok := c.index[key]
	if !ok {
		return Column{}, false
	}
	return c.order[i], true
}

// Index returns the position of the column stored under key.
func (c *Columns) Index(key string) (int, bool) {
	i, ok := c.index[key]
	return i, ok
}

// At returns the column at position i.
func (c *Columns) At(i int) (Column, bool) {
	if i < 0 || i >= len(c.order) {
		return Column{}, false
	}
	return c.order[i], true
}

// Len returns the number of columns.
func (c *Columns) Len() int {
	return len(c.order)
}

// Keys returns the column keys in order.
func (c *Columns) Keys() []string {
	keys := make([]string, len(c.order))
	for i, col := range c.order {
		keys[i] = col.Key
	}
	return keys
}

// All iterates over (position, column) pairs in order.
func (c *Columns) All() iter.Seq2[int, Column] {
	return func(yield func(int, Column) bool) {
		for i, col := range c.order {
			if !yield(i, col) {
				return
			}
		}
	}
}

// Slice returns a copy of the columns in order.
func (c *Columns) Slice() []Column {
	return slices.Clone(c.order)
}
