package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetkit/sheetkit/internal/locale"
)

func TestDisplay(t *testing.T) {
	assert.Equal(t, "", Blank().Display())
	assert.Equal(t, "42", Number(42).Display())
	assert.Equal(t, "3.5", Number(3.5).Display())
	assert.Equal(t, "TRUE", Bool(true).Display())
	assert.Equal(t, "FALSE", Bool(false).Display())
	assert.Equal(t, "hi", Text("hi").Display())
	assert.Equal(t, "#DIV/0!", Err(ErrDiv0).Display())
	assert.Equal(t, "#N/A", Err(ErrNA).Display())
}

func TestParseErrorCode(t *testing.T) {
	k, ok := ParseErrorCode("#REF!")
	require.True(t, ok)
	assert.Equal(t, ErrRef, k)

	k, ok = ParseErrorCode("#N/A")
	require.True(t, ok)
	assert.Equal(t, ErrNA, k)

	_, ok = ParseErrorCode("#BOGUS!")
	assert.False(t, ok)
}

func TestErrorTypeOrdinals(t *testing.T) {
	assert.Equal(t, 2, ErrDiv0.ErrorType())
	assert.Equal(t, 7, ErrNA.ErrorType())
	assert.Equal(t, 14, ErrCalc.ErrorType())
}

func TestToNumberCoercion(t *testing.T) {
	loc := locale.Default()
	ds := locale.Date1900

	cases := []struct {
		in   Value
		want float64
	}{
		{Number(9), 9},
		{Blank(), 0},
		{Bool(true), 1},
		{Bool(false), 0},
		{Text("8"), 8},
		{Text("  1,234.5 "), 1234.5},
		{Text("50%"), 0.5},
		{Text("TRUE"), 1},
	}
	for _, tc := range cases {
		got, ek := ToNumber(tc.in, loc, ds)
		require.Equal(t, ErrorKind(0), ek, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}

	_, ek := ToNumber(Text("abc"), loc, ds)
	assert.Equal(t, ErrValue, ek)

	_, ek = ToNumber(Err(ErrDiv0), loc, ds)
	assert.Equal(t, ErrDiv0, ek)
}

func TestToNumberParsesDates(t *testing.T) {
	loc := locale.Default()
	got, ek := ToNumber(Text("1/1/2020"), loc, locale.Date1900)
	require.Equal(t, ErrorKind(0), ek)
	assert.Equal(t, float64(43831), got)
}

func TestToText(t *testing.T) {
	s, ek := ToText(Bool(true))
	require.Equal(t, ErrorKind(0), ek)
	assert.Equal(t, "TRUE", s)

	s, ek = ToText(Blank())
	require.Equal(t, ErrorKind(0), ek)
	assert.Equal(t, "", s)

	_, ek = ToText(Err(ErrName))
	assert.Equal(t, ErrName, ek)
}

func TestCompareOrdering(t *testing.T) {
	// number < text < bool
	assert.Equal(t, -1, Compare(Number(1e308), Text("")))
	assert.Equal(t, -1, Compare(Text("zzz"), Bool(false)))
	assert.Equal(t, 1, Compare(Bool(false), Number(5)))

	assert.Equal(t, -1, Compare(Number(1), Number(2)))
	assert.Equal(t, 0, Compare(Text("abc"), Text("ABC")))
	assert.Equal(t, -1, Compare(Bool(false), Bool(true)))
}

func TestCompareBlankAdoptsCategory(t *testing.T) {
	assert.Equal(t, 0, Compare(Blank(), Number(0)))
	assert.Equal(t, 0, Compare(Blank(), Text("")))
	assert.Equal(t, 0, Compare(Blank(), Bool(false)))
	assert.Equal(t, -1, Compare(Blank(), Number(1)))
	assert.Equal(t, -1, Compare(Blank(), Bool(true)))
}

func TestEqualMixedCategories(t *testing.T) {
	assert.False(t, Equal(Number(1), Bool(true)))
	assert.False(t, Equal(Number(0), Text("0")))
	assert.True(t, Equal(Text("Hello"), Text("HELLO")))
	assert.True(t, Equal(Blank(), Number(0)))
	assert.True(t, Equal(Blank(), Text("")))
}

func TestFoldTextSharpS(t *testing.T) {
	assert.True(t, TextEqualFold("straße", "STRASSE"))
}

func TestArrayBroadcast(t *testing.T) {
	col := NewArray(3, 1)
	for i := 0; i < 3; i++ {
		col.Set(i, 0, Number(float64(i+1)))
	}
	row := NewArray(1, 2)
	row.Set(0, 0, Number(10))
	row.Set(0, 1, Number(20))

	rows, cols := BroadcastShape(col.Rows, col.Cols, row.Rows, row.Cols)
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)

	assert.Equal(t, Number(3), col.BroadcastAt(2, 1))
	assert.Equal(t, Number(20), row.BroadcastAt(2, 1))
}

func TestBroadcastBeyondExtentIsNA(t *testing.T) {
	a := NewArray(2, 2)
	got := a.BroadcastAt(2, 0)
	assert.True(t, got.IsErr(ErrNA))
}

func TestArrayOutOfBounds(t *testing.T) {
	a := NewArray(2, 2)
	assert.True(t, a.At(5, 0).IsErr(ErrRef))
	assert.True(t, a.At(0, -1).IsErr(ErrRef))
}

func TestColNameRoundTrip(t *testing.T) {
	cases := map[uint32]string{0: "A", 25: "Z", 26: "AA", 701: "ZZ", 702: "AAA", 16383: "XFD"}
	for col, name := range cases {
		assert.Equal(t, name, ColName(col))
		got, ok := ParseColName(name)
		require.True(t, ok, name)
		assert.Equal(t, col, got)
	}
	_, ok := ParseColName("XFE")
	assert.False(t, ok)
}

func TestParseA1(t *testing.T) {
	a, ok := ParseA1("B2")
	require.True(t, ok)
	assert.Equal(t, CellAddr{Row: 1, Col: 1}, a)

	a, ok = ParseA1("$XFD$1048576")
	require.True(t, ok)
	assert.Equal(t, CellAddr{Row: 1048575, Col: 16383}, a)

	_, ok = ParseA1("A0")
	assert.False(t, ok)
	_, ok = ParseA1("1A")
	assert.False(t, ok)
	_, ok = ParseA1("A1048577")
	assert.False(t, ok)
}

func TestRangeNormalizeIntersect(t *testing.T) {
	r := Range{Start: CellAddr{Row: 5, Col: 3}, End: CellAddr{Row: 1, Col: 1}}.Normalize()
	assert.Equal(t, CellAddr{Row: 1, Col: 1}, r.Start)
	assert.Equal(t, CellAddr{Row: 5, Col: 3}, r.End)
	assert.Equal(t, 5, r.Rows())
	assert.Equal(t, 3, r.Cols())

	other := Range{Start: CellAddr{Row: 4, Col: 2}, End: CellAddr{Row: 9, Col: 9}}
	got, ok := r.Intersect(other)
	require.True(t, ok)
	assert.Equal(t, Range{Start: CellAddr{Row: 4, Col: 2}, End: CellAddr{Row: 5, Col: 3}}, got)

	_, ok = r.Intersect(Range{Start: CellAddr{Row: 100, Col: 0}, End: CellAddr{Row: 100, Col: 0}})
	assert.False(t, ok)
}

func TestSpillMarkerCovers(t *testing.T) {
	m := SpillMarker{Origin: CellKey{Sheet: 0, Addr: CellAddr{Row: 1, Col: 1}}, Rows: 2, Cols: 3}
	assert.True(t, m.Covers(CellAddr{Row: 1, Col: 1}))
	assert.True(t, m.Covers(CellAddr{Row: 2, Col: 3}))
	assert.False(t, m.Covers(CellAddr{Row: 3, Col: 1}))
	assert.False(t, m.Covers(CellAddr{Row: 1, Col: 4}))
}

func TestEnvLookupIsLexical(t *testing.T) {
	var root *Env
	e1 := root.Bind("x", Number(1))
	e2 := e1.Bind("y", Number(2))
	e3 := e2.Bind("x", Number(3))

	v, ok := e3.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, Number(3), v)

	// earlier snapshot never sees the rebinding
	v, ok = e2.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, Number(1), v)

	_, ok = e1.Lookup("y")
	assert.False(t, ok)
}

func TestCheckNumber(t *testing.T) {
	assert.Equal(t, Number(2), CheckNumber(2))
	assert.True(t, CheckNumber(math.NaN()).IsErr(ErrNum))
	assert.True(t, CheckNumber(math.Inf(1)).IsErr(ErrNum))
}
