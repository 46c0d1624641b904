package sheet

import (
	"fmt"
	"strings"
)

// Item is the capability set every cell value must provide.
//
// Render returns the displayable form of the value for the given column.
// Compare returns a negative number, zero, or a positive number when the
// receiver sorts before, equal to, or after other in the given column. Compare
// must be a total order for every column.
type Item[T any] interface {
	Render(column string) string
	Compare(other T, column string) int
}

// Order is a sort direction.
type Order int

const (
	// Ascending sorts lowest values first.
	Ascending Order = iota
	// Descending sorts highest values first.
	Descending
)

// OrderOf maps an ascending flag to an Order.
func OrderOf(ascending bool) Order {
	if ascending {
		return Ascending
	}
	return Descending
}

// Reverse returns the opposite direction.
func (o Order) Reverse() Order {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

func (o Order) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// ParseOrder accepts asc, ascending, desc, and descending (case-insensitive).
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("invalid sort order %q (want asc or desc)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Order) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Order) UnmarshalText(text []byte) error {
	parsed, err := ParseOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
