package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidWidth is returned when a width spec cannot be parsed.
var ErrInvalidWidth = errors.New("invalid width")

// Alignment controls where cell text sits inside its column.
type Alignment int

// Alignments.
const (
	AlignStart Alignment = iota
	AlignCenter
	AlignEnd
)

func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignEnd:
		return "end"
	default:
		return "start"
	}
}

// ParseAlignment accepts start/left, center/middle, and end/right.
func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "start", "left":
		return AlignStart, nil
	case "center", "centre", "middle":
		return AlignCenter, nil
	case "end", "right":
		return AlignEnd, nil
	}
	return AlignStart, fmt.Errorf("invalid alignment %q (want start, center or end)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Alignment) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Alignment) UnmarshalText(text []byte) error {
	parsed, err := ParseAlignment(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

type widthKind int

const (
	widthAuto widthKind = iota
	widthMin
	widthMax
	widthBounded
	widthFixed
)

// WidthPolicy describes how wide a column may be drawn. The zero value is Auto.
type WidthPolicy struct {
	kind widthKind
	min  int
	max  int
}

// Auto sizes the column to its content with no bounds.
func Auto() WidthPolicy { return WidthPolicy{} }

// Min sizes the column to its content but never narrower than n.
func Min(n int) WidthPolicy { return WidthPolicy{kind: widthMin, min: nonNegative(n)} }

// Max sizes the column to its content but never wider than n.
func Max(n int) WidthPolicy { return WidthPolicy{kind: widthMax, max: nonNegative(n)} }

// Bounded keeps the column between min and min+delta. A negative delta is
// treated as zero so the upper bound never falls below the lower one.
func Bounded(min, delta int) WidthPolicy {
	lo := nonNegative(min)
	return WidthPolicy{kind: widthBounded, min: lo, max: lo + nonNegative(delta)}
}

// Fixed pins the column to exactly n cells.
func Fixed(n int) WidthPolicy {
	n = nonNegative(n)
	return WidthPolicy{kind: widthFixed, min: n, max: n}
}

// Resolve returns the minimum width and, when bounded is true, the maximum.
func (w WidthPolicy) Resolve() (minWidth, maxWidth int, bounded bool) {
	switch w.kind {
	case widthMax, widthBounded, widthFixed:
		return w.min, w.max, true
	default:
		return w.min, 0, false
	}
}

// Fit returns the width a column should take for content of the given width.
func (w WidthPolicy) Fit(content int) int {
	lo, hi, bounded := w.Resolve()
	width := max(content, lo)
	if bounded {
		width = min(width, hi)
	}
	return width
}

// String returns the spec form accepted by ParseWidth.
func (w WidthPolicy) String() string {
	switch w.kind {
	case widthMin:
		return "min:" + strconv.Itoa(w.min)
	case widthMax:
		return "max:" + strconv.Itoa(w.max)
	case widthBounded:
		return fmt.Sprintf("bounded:%d:%d", w.min, w.max-w.min)
	case widthFixed:
		return "fixed:" + strconv.Itoa(w.min)
	default:
		return "auto"
	}
}

// ParseWidth parses auto, min:N, max:N, bounded:MIN:DELTA, fixed:N, or a bare
// N (shorthand for fixed:N).
func ParseWidth(s string) (WidthPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return Auto(), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Auto(), fmt.Errorf("%w %q: negative width", ErrInvalidWidth, s)
		}
		return Fixed(n), nil
	}

	parts := strings.Split(s, ":")
	nums := make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Auto(), fmt.Errorf("%w %q: %q is not a non-negative integer", ErrInvalidWidth, s, p)
		}
		nums = append(nums, n)
	}

	want := 1
	if parts[0] == "bounded" {
		want = 2
	}
	if len(nums) != want {
		return Auto(), fmt.Errorf("%w %q: %s takes %d argument(s)", ErrInvalidWidth, s, parts[0], want)
	}

	switch parts[0] {
	case "min":
		return Min(nums[0]), nil
	case "max":
		return Max(nums[0]), nil
	case "fixed":
		return Fixed(nums[0]), nil
	case "bounded":
		return Bounded(nums[0], nums[1]), nil
	}
	return Auto(), fmt.Errorf("%w %q: unknown policy %q", ErrInvalidWidth, s, parts[0])
}

// MarshalText implements encoding.TextMarshaler.
func (w WidthPolicy) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WidthPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseWidth(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func nonNegative(n int) int {
	return max(n, 0)
}

// Column is a column definition. Key is assigned by the registry on insert.
type Column struct {
	Key   string      `json:"key"`
	Title string      `json:"title"`
	Width WidthPolicy `json:"width"`
	Align Alignment   `json:"align"`
}

// NewColumn returns an auto-width, start-aligned column with the given title.
func NewColumn(title string) Column {
	return Column{Title: title}
}

// WithWidth returns a copy of c using the given width policy.
func (c Column) WithWidth(w WidthPolicy) Column {
	c.Width = w
	return c
}

// WithAlign returns a copy of c using the given alignment.
func (c Column) WithAlign(a Alignment) Column {
	c.Align = a
	return c
}

// Label returns the title, falling back to the key when the title is empty.
func (c Column) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Key
}
