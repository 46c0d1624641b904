package sheet

import (
	"iter"
	"maps"
	"slices"
)

// Record is one row: a sparse mapping from column key to cell value.
type Record[T any] map[string]T

// Get returns the value stored under key.
func (r Record[T]) Get(key string) (T, bool) {
	v, ok := r[key]
	return v, ok
}

// Clone returns a shallow copy of r.
func (r Record[T]) Clone() Record[T] {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Records is an ordered sequence of records. A record's position is its row
// index, and that index is its only identity. The zero value is empty.
type Records[T any] struct {
	rows []Record[T]
}

// Push appends r.
func (s *Records[T]) Push(r Record[T]) {
	s.rows = append(s.rows, r)
}

// InsertAt inserts r before index i. Indexes past the end append; negative
// indexes insert at the front.
func (s *Records[T]) InsertAt(i int, r Record[T]) {
	i = max(0, min(i, len(s.rows)))
	s.rows = slices.Insert(s.rows, i, r)
}

// Extend appends every record yielded by seq in yield order.
func (s *Records[T]) Extend(seq iter.Seq[Record[T]]) {
	for r := range seq {
		s.rows = append(s.rows, r)
	}
}

// Pop removes and returns the last record.
func (s *Records[T]) Pop() (Record[T], bool) {
	if len(s.rows) == 0 {
		return nil, false
	}
	last := s.rows[len(s.rows)-1]
	s.rows[len(s.rows)-1] = nil
	s.rows = s.rows[:len(s.rows)-1]
	return last, true
}

// RemoveAt removes and returns the record at index i, shifting later records
// down by one. An out-of-range index reports false and changes nothing.
func (s *Records[T]) RemoveAt(i int) (Record[T], bool) {
	if i < 0 || i >= len(s.rows) {
		return nil, false
	}
	removed := s.rows[i]
	s.rows = slices.Delete(s.rows, i, i+1)
	return removed, true
}

// Clear removes every record.
func (s *Records[T]) Clear() {
	s.rows = nil
}

// Len returns the number of records.
func (s *Records[T]) Len() int {
	return len(s.rows)
}

// At returns the record at index i.
func (s *Records[T]) At(i int) (Record[T], bool) {
	if i < 0 || i >= len(s.rows) {
		return nil, false
	}
	return s.rows[i], true
}

// All iterates over (row index, record) pairs in order.
func (s *Records[T]) All() iter.Seq2[int, Record[T]] {
	return func(yield func(int, Record[T]) bool) {
		for i, r := range s.rows {
			if !yield(i, r) {
				return
			}
		}
	}
}
