// Package cell provides Value, a dynamically typed cell item for sheet views
// fed from files and databases.
package cell

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

// Kind is the dynamic type of a Value.
type Kind uint8

// Kinds, in the order values of different kinds sort.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindTime
	KindBytes
)

var kindNames = [...]string{"null", "bool", "int", "float", "text", "time", "bytes"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// rank groups kinds for cross-kind ordering. Int and Float share a rank and
// compare numerically.
func (k Kind) rank() int {
	switch k {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindText:
		return 3
	case KindTime:
		return 4
	default:
		return 5
	}
}

// Value is a single cell. The zero value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
	raw  []byte
}

// Record is a sheet record of dynamic values.
type Record = sheet.Record[Value]

var _ sheet.Item[Value] = Value{}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps n.
func Int(n int64) Value { return Value{kind: KindInt, i: n} }

// Float wraps f.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text wraps s.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Time wraps t.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Bytes wraps a copy of b.
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: bytes.Clone(b)} }

// Kind returns the dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns v as a plain Go value: nil, bool, int64, float64, string,
// time.Time, or []byte.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindTime:
		return v.t
	case KindBytes:
		return bytes.Clone(v.raw)
	default:
		return nil
	}
}

// Render formats v for display. The column is ignored.
func (v Value) Render(string) string { return v.String() }

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindBytes:
		return string(v.raw)
	default:
		return "NULL"
	}
}

// Compare orders values totally: null < bool < number < text < time < bytes.
// Ints and floats compare by numeric value and NaN sorts below every other
// number. The column is ignored.
func (v Value) Compare(other Value, _ string) int {
	if c := cmp.Compare(v.kind.rank(), other.kind.rank()); c != 0 {
		return c
	}
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		return compareBool(v.b, other.b)
	case KindInt, KindFloat:
		return compareNumbers(v, other)
	case KindText:
		return strings.Compare(v.s, other.s)
	case KindTime:
		return v.t.Compare(other.t)
	default:
		return bytes.Compare(v.raw, other.raw)
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareNumbers(a, b Value) int {
	if a.kind == KindInt && b.kind == KindInt {
		return cmp.Compare(a.i, b.i)
	}
	if a.kind == KindFloat && b.kind == KindFloat {
		// cmp.Compare already puts NaN first.
		return cmp.Compare(a.f, b.f)
	}
	if a.kind == KindInt {
		return -compareIntFloat(b.f, a.i)
	}
	return compareIntFloat(a.f, b.i)
}

// compareIntFloat compares f against n without losing precision for large n.
func compareIntFloat(f float64, n int64) int {
	if math.IsNaN(f) {
		return -1
	}
	if c := cmp.Compare(f, float64(n)); c != 0 {
		return c
	}
	// f equals float64(n), so f is integral. It may still differ from n by
	// rounding when |n| > 2^53.
	if f >= math.MaxInt64 {
		return 1
	}
	if f < math.MinInt64 {
		return -1
	}
	return cmp.Compare(int64(f), n)
}

// MarshalJSON encodes v as its natural JSON type. Times encode as RFC 3339
// strings. Non-finite floats and bytes encode as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.f)
	default:
		return json.Marshal(v.String())
	}
}

// From converts a value produced by a database driver or decoder.
func From(x any) Value {
	switch x := x.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case number:
		return fromNumber(x.String())
	case string:
		return Text(x)
	case []byte:
		return Bytes(x)
	case time.Time:
		return Time(x)
	case *time.Time:
		if x == nil {
			return Null()
		}
		return Time(*x)
	case fmt.Stringer:
		return Text(x.String())
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return Text(fmt.Sprint(x))
		}
		return Text(string(data))
	default:
		return Text(fmt.Sprint(x))
	}
}

// number matches json.Number from either the standard library or go-json.
type number interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

func fromUint(n uint64) Value {
	if n > math.MaxInt64 {
		return Float(float64(n))
	}
	return Int(int64(n))
}

func fromNumber(s string) Value {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return Text(s)
}

// timeLayouts are tried in order by Parse.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Parse infers a value from text: empty is null, then bool, int, float, and
// time are tried before falling back to text. Words such as "inf" and "nan"
// stay text.
func Parse(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Null()
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Int(n)
	}
	if looksNumeric(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Float(f)
		}
	}
	if len(trimmed) >= len(time.DateOnly) && trimmed[4] == '-' {
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return Time(t)
			}
		}
	}
	return Text(s)
}

// looksNumeric rejects the spelled-out forms strconv.ParseFloat accepts.
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}

// RecordFrom converts a decoded row into a record. Nil values are kept as
// null entries.
func RecordFrom(row map[string]any) Record {
	r := make(Record, len(row))
	for k, x := range row {
		r[k] = From(x)
	}
	return r
}
