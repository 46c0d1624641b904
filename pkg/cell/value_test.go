package cell

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
	assert.Equal(t, "NULL", v.Render("any"))
	assert.Nil(t, v.Interface())
}

func TestValue_Render(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{name: "null", v: Null(), want: "NULL"},
		{name: "bool", v: Bool(true), want: "true"},
		{name: "int", v: Int(-42), want: "-42"},
		{name: "float", v: Float(3.5), want: "3.5"},
		{name: "float integral", v: Float(2), want: "2"},
		{name: "float large", v: Float(1e21), want: "1e+21"},
		{name: "text", v: Text("héllo"), want: "héllo"},
		{name: "time", v: Time(ts), want: "2024-03-01T12:30:00Z"},
		{name: "bytes", v: Bytes([]byte("raw")), want: "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Render("col"))
		})
	}
}

func TestValue_CompareAcrossKinds(t *testing.T) {
	ordered := []Value{
		Null(),
		Bool(false),
		Bool(true),
		Float(math.NaN()),
		Int(-3),
		Float(-2.5),
		Int(0),
		Float(0.5),
		Int(1),
		Text(""),
		Text("a"),
		Text("b"),
		Time(time.Unix(0, 0)),
		Time(time.Unix(100, 0)),
		Bytes([]byte{0}),
		Bytes([]byte{1}),
	}

	for i := range ordered {
		for j := range ordered {
			got := ordered[i].Compare(ordered[j], "")
			switch {
			case i < j:
				assert.Negative(t, got, "%v vs %v", ordered[i], ordered[j])
			case i > j:
				assert.Positive(t, got, "%v vs %v", ordered[i], ordered[j])
			default:
				assert.Zero(t, got, "%v vs itself", ordered[i])
			}
		}
	}
}

func TestValue_IntFloatEquality(t *testing.T) {
	assert.Zero(t, Int(2).Compare(Float(2), ""))
	assert.Zero(t, Float(2).Compare(Int(2), ""))

	// float64(MaxInt64) rounds up to 2^63.
	assert.Negative(t, Int(math.MaxInt64).Compare(Float(math.MaxInt64), ""))
	assert.Positive(t, Float(1<<53).Compare(Int(1<<53-1), ""))
	assert.Negative(t, Float(1<<53).Compare(Int(1<<53+1), ""))
}

func TestFrom(t *testing.T) {
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{name: "nil", in: nil, want: Null()},
		{name: "bool", in: true, want: Bool(true)},
		{name: "int", in: 7, want: Int(7)},
		{name: "int32", in: int32(-7), want: Int(-7)},
		{name: "uint8", in: uint8(200), want: Int(200)},
		{name: "uint64 overflow", in: uint64(math.MaxUint64), want: Float(math.MaxUint64)},
		{name: "float32", in: float32(1.5), want: Float(1.5)},
		{name: "float64", in: 2.25, want: Float(2.25)},
		{name: "string stays text", in: "42", want: Text("42")},
		{name: "bytes", in: []byte("abc"), want: Bytes([]byte("abc"))},
		{name: "time", in: ts, want: Time(ts)},
		{name: "time pointer", in: &ts, want: Time(ts)},
		{name: "nil time pointer", in: (*time.Time)(nil), want: Null()},
		{name: "json int", in: json.Number("12"), want: Int(12)},
		{name: "json float", in: json.Number("1.25"), want: Float(1.25)},
		{name: "value", in: Text("x"), want: Text("x")},
		{name: "duration stringer", in: 2 * time.Second, want: Text("2s")},
		{name: "nested map", in: map[string]any{"a": 1}, want: Text(`{"a":1}`)},
		{name: "nested slice", in: []any{1, "b"}, want: Text(`[1,"b"]`)},
		{name: "struct", in: struct{ A int }{1}, want: Text("{1}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, From(tt.in))
		})
	}
}

func TestFrom_BytesAreCopied(t *testing.T) {
	buf := []byte("abc")
	v := From(buf)
	buf[0] = 'z'
	assert.Equal(t, "abc", v.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{in: "", want: Null()},
		{in: "   ", want: Null()},
		{in: "true", want: Bool(true)},
		{in: "FALSE", want: Bool(false)},
		{in: "42", want: Int(42)},
		{in: " -7 ", want: Int(-7)},
		{in: "3.25", want: Float(3.25)},
		{in: "1e3", want: Float(1000)},
		{in: "2024-05-06", want: Time(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))},
		{in: "2024-05-06T07:08:09Z", want: Time(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))},
		{in: "2024-05-06 07:08:09", want: Time(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))},
		{in: "inf", want: Text("inf")},
		{in: "NaN", want: Text("NaN")},
		{in: "e", want: Text("e")},
		{in: "1-2", want: Text("1-2")},
		{in: "hello world", want: Text("hello world")},
		{in: "2024-13-45", want: Text("2024-13-45")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	row := map[string]Value{
		"null":  Null(),
		"bool":  Bool(true),
		"int":   Int(5),
		"float": Float(0.5),
		"nan":   Float(math.NaN()),
		"text":  Text("a\"b"),
		"time":  Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"null": null,
		"bool": true,
		"int": 5,
		"float": 0.5,
		"nan": "NaN",
		"text": "a\"b",
		"time": "2024-01-01T00:00:00Z"
	}`, string(data))
}

func TestRecordFrom(t *testing.T) {
	r := RecordFrom(map[string]any{"id": int64(1), "name": "Amy", "note": nil})
	assert.Equal(t, Record{"id": Int(1), "name": Text("Amy"), "note": Null()}, r)
}

func TestValue_SortsInView(t *testing.T) {
	v := sheet.New[Value, struct{}]()
	v.InsertColumn("n", sheet.NewColumn("N"))
	for _, s := range []string{"10", "9", "", "x", "1.5"} {
		r := Record{}
		if p := Parse(s); !p.IsNull() {
			r["n"] = p
		}
		v.PushRecord(r)
	}
	v.SortByColumn("n", true)

	var got []string
	for i := range v.RecordCount() {
		got = append(got, v.CellText(i, 0))
	}
	assert.Equal(t, []string{"", "1.5", "9", "10", "x"}, got)
}

func genValue() *rapid.Generator[Value] {
	return rapid.OneOf(
		rapid.Just(Null()),
		rapid.Map(rapid.Bool(), Bool),
		rapid.Map(rapid.Int64Range(-5, 5), Int),
		rapid.Map(rapid.SampledFrom([]float64{-2.5, -1, 0, 0.5, 1, 3, math.NaN()}), Float),
		rapid.Map(rapid.StringMatching(`[ab]{0,2}`), Text),
		rapid.Map(rapid.Int64Range(0, 3), func(s int64) Value { return Time(time.Unix(s, 0)) }),
		rapid.Map(rapid.SliceOfN(rapid.Byte(), 0, 2), Bytes),
	)
}

// Compare is antisymmetric and transitive over mixed kinds.
func TestValue_CompareIsTotalOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genValue().Draw(t, "a")
		b := genValue().Draw(t, "b")
		c := genValue().Draw(t, "c")

		ab, ba := a.Compare(b, ""), b.Compare(a, "")
		require.Equal(t, sign(ab), -sign(ba), "antisymmetry %v %v", a, b)

		if ab <= 0 && b.Compare(c, "") <= 0 {
			require.LessOrEqual(t, a.Compare(c, ""), 0, "transitivity %v %v %v", a, b, c)
		}
	})
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
