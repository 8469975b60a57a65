package workbook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetkit/sheetkit/pkg/value"
)

func mustSet(t *testing.T, wb *Workbook, sheet, a1 string, v value.Value) {
	t.Helper()
	require.NoError(t, wb.SetValue(sheet, a1, v))
}

func mustFormula(t *testing.T, wb *Workbook, sheet, a1, src string) {
	t.Helper()
	require.NoError(t, wb.SetFormula(sheet, a1, src))
}

func num(t *testing.T, wb *Workbook, sheet, a1 string) float64 {
	t.Helper()
	v, err := wb.Value(sheet, a1)
	require.NoError(t, err)
	require.Equal(t, value.KindNumber, v.Kind, "%s!%s = %s", sheet, a1, v.Display())
	return v.Num()
}

func TestScalarRecalc(t *testing.T) {
	wb := New()
	mustSet(t, wb, "Sheet1", "A1", value.Number(5))
	mustFormula(t, wb, "Sheet1", "B1", "=A1*2")
	wb.Recalc()
	assert.Equal(t, 10.0, num(t, wb, "Sheet1", "B1"))

	mustSet(t, wb, "Sheet1", "A1", value.Number(7))
	stats := wb.Recalc()
	assert.Equal(t, 14.0, num(t, wb, "Sheet1", "B1"))
	assert.Equal(t, 1, stats.Cells, "only the dependent re-evaluates")
}

func TestAggregationCoercion(t *testing.T) {
	wb := New()
	mustSet(t, wb, "Sheet1", "A1", value.Number(1))
	mustSet(t, wb, "Sheet1", "A2", value.Text("8"))
	mustSet(t, wb, "Sheet1", "A3", value.Bool(true))
	mustFormula(t, wb, "Sheet1", "B1", "=SUM(A1:A3)")
	mustFormula(t, wb, "Sheet1", "B2", `=SUM("8",1)`)
	mustFormula(t, wb, "Sheet1", "B3", "=A2+1")
	wb.Recalc()

	assert.Equal(t, 1.0, num(t, wb, "Sheet1", "B1"), "text and bool in a range do not count")
	assert.Equal(t, 9.0, num(t, wb, "Sheet1", "B2"), "direct text coerces")
	assert.Equal(t, 9.0, num(t, wb, "Sheet1", "B3"), "operators coerce cell text")
}

func TestDirtyPropagationChain(t *testing.T) {
	wb := New()
	mustSet(t, wb, "Sheet1", "A1", value.Number(1))
	mustFormula(t, wb, "Sheet1", "B1", "=A1+1")
	mustFormula(t, wb, "Sheet1", "C1", "=B1+1")
	mustFormula(t, wb, "Sheet1", "D1", "=C1+1")
	wb.Recalc()
	assert.Equal(t, 4.0, num(t, wb, "Sheet1", "D1"))

	mustSet(t, wb, "Sheet1", "A1", value.Number(10))
	stats := wb.Recalc()
	assert.Equal(t, 13.0, num(t, wb, "Sheet1", "D1"))
	assert.Equal(t, 3, stats.Cells)
	assert.Equal(t, 3, stats.Levels)
}

func TestSpillLifecycle(t *testing.T) {
	wb := New()
	mustFormula(t, wb, "Sheet1", "A1", "=SEQUENCE(3)")
	mustFormula(t, wb, "Sheet1", "B1", "=A2+0")
	wb.Recalc()

	rows, cols, ok := wb.SpillExtent("Sheet1", "A1")
	require.True(t, ok)
	assert.Equal(t, 3, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, 2.0, num(t, wb, "Sheet1", "A2"), "covered cell resolves to its element")
	assert.Equal(t, 2.0, num(t, wb, "Sheet1", "B1"), "dependent reads through the marker")

	// blocking the rectangle collapses the spill to #SPILL!
	mustSet(t, wb, "Sheet1", "A2", value.Number(99))
	wb.Recalc()
	v, err := wb.Value("Sheet1", "A1")
	require.NoError(t, err)
	assert.True(t, v.IsErr(value.ErrSpill))
	assert.Equal(t, 99.0, num(t, wb, "Sheet1", "B1"))

	// clearing the blocker restores it
	require.NoError(t, wb.Clear("Sheet1", "A2"))
	wb.Recalc()
	_, _, ok = wb.SpillExtent("Sheet1", "A1")
	assert.True(t, ok)
	assert.Equal(t, 2.0, num(t, wb, "Sheet1", "B1"))
}

func TestSpillResize(t *testing.T) {
	wb := New()
	mustSet(t, wb, "Sheet1", "C1", value.Number(4))
	mustFormula(t, wb, "Sheet1", "A1", "=SEQUENCE(C1)")
	mustFormula(t, wb, "Sheet1", "B1", "=SUM(A1:A10)")
	wb.Recalc()
	assert.Equal(t, 10.0, num(t, wb, "Sheet1", "B1"))

	mustSet(t, wb, "Sheet1", "C1", value.Number(2))
	wb.Recalc()
	rows, _, _ := wb.SpillExtent("Sheet1", "A1")
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3.0, num(t, wb, "Sheet1", "B1"), "stale markers are retracted")
	v, err := wb.Value("Sheet1", "A3")
	require.NoError(t, err)
	assert.Equal(t, value.KindBlank, v.Kind)
}

func TestProgramSharingAcrossColumn(t *testing.T) {
	wb := New()
	for i, a1 := range []string{"A1", "A2", "A3", "A4", "A5"} {
		mustSet(t, wb, "Sheet1", a1, value.Number(float64(i+1)))
	}
	for i, b := range []string{"B1", "B2", "B3", "B4", "B5"} {
		// filled-down relative formulas share one displacement shape
		mustFormula(t, wb, "Sheet1", b, fmt.Sprintf("=A%d*10", i+1))
	}
	wb.Recalc()
	assert.Equal(t, 1, wb.ProgramCount(), "one program serves the filled column")
	hits, misses := wb.CacheStats()
	assert.Equal(t, uint64(4), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestVolatileReevaluation(t *testing.T) {
	wb := New()
	base := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	wb.now = func() time.Time { return base }
	mustFormula(t, wb, "Sheet1", "A1", "=NOW()")
	wb.Recalc()
	assert.Equal(t, 43831.5, num(t, wb, "Sheet1", "A1"))

	// no edits, but volatile cells still run with the new tick
	base = base.Add(12 * time.Hour)
	stats := wb.Recalc()
	assert.Equal(t, 43832.0, num(t, wb, "Sheet1", "A1"))
	assert.Equal(t, 1, stats.Cells)
}

func TestSheetRenameRewritesFormulaText(t *testing.T) {
	wb := New()
	require.NoError(t, wb.AddSheet("Sheet2"))
	mustSet(t, wb, "Sheet2", "B2", value.Number(21))
	mustFormula(t, wb, "Sheet1", "A1", "=Sheet2!B2*2")
	wb.Recalc()
	assert.Equal(t, 42.0, num(t, wb, "Sheet1", "A1"))

	require.NoError(t, wb.RenameSheet("Sheet2", "Data"))
	text, ok := wb.FormulaText("Sheet1", "A1")
	require.True(t, ok)
	assert.Equal(t, "=Data!B2*2", text)

	// compiled program is id-based and keeps evaluating
	mustSet(t, wb, "Data", "B2", value.Number(5))
	wb.Recalc()
	assert.Equal(t, 10.0, num(t, wb, "Sheet1", "A1"))
}

func TestDeleteSheetTurnsRefsToErrors(t *testing.T) {
	wb := New()
	require.NoError(t, wb.AddSheet("Sheet2"))
	mustSet(t, wb, "Sheet2", "A1", value.Number(3))
	mustFormula(t, wb, "Sheet1", "A1", "=Sheet2!A1+1")
	wb.Recalc()
	assert.Equal(t, 4.0, num(t, wb, "Sheet1", "A1"))

	require.NoError(t, wb.DeleteSheet("Sheet2"))
	wb.Recalc()
	v, err := wb.Value("Sheet1", "A1")
	require.NoError(t, err)
	assert.True(t, v.IsErr(value.ErrRef))

	assert.Error(t, wb.DeleteSheet("Sheet1"), "last sheet cannot go")
}

func TestIterativeCycleConverges(t *testing.T) {
	s := DefaultSettings()
	s.Iterative = IterativeSettings{Enabled: true, MaxIterations: 200, Epsilon: 1e-9}
	wb := NewWithSettings(s)
	mustFormula(t, wb, "Sheet1", "A1", "=(B1+10)/2")
	mustFormula(t, wb, "Sheet1", "B1", "=A1/2")
	stats := wb.Recalc()

	assert.Equal(t, 2, stats.CycleCells)
	assert.Greater(t, stats.Iterations, 1)
	assert.InDelta(t, 20.0/3, num(t, wb, "Sheet1", "A1"), 1e-6)
	assert.InDelta(t, 10.0/3, num(t, wb, "Sheet1", "B1"), 1e-6)
}

func TestCycleWithoutIterationReportsError(t *testing.T) {
	wb := New()
	mustFormula(t, wb, "Sheet1", "A1", "=B1+1")
	mustFormula(t, wb, "Sheet1", "B1", "=A1+1")
	stats := wb.Recalc()
	assert.Equal(t, 2, stats.CycleCells)
	assert.Equal(t, 1, stats.Iterations)

	// without iterative calculation every cell on the cycle errors
	for _, a1 := range []string{"A1", "B1"} {
		v, err := wb.Value("Sheet1", a1)
		require.NoError(t, err)
		assert.True(t, v.IsErr(value.ErrNum), "%s = %s", a1, v.Display())
	}

	// breaking the cycle clears the errors
	mustSet(t, wb, "Sheet1", "B1", value.Number(1))
	wb.Recalc()
	assert.Equal(t, 2.0, num(t, wb, "Sheet1", "A1"))
}

func TestDefinedNames(t *testing.T) {
	wb := New()
	wb.DefineName("Rate", value.Number(0.2))
	mustFormula(t, wb, "Sheet1", "A1", "=Rate*10")
	mustFormula(t, wb, "Sheet1", "A2", "=NoSuchName+1")
	wb.Recalc()
	assert.Equal(t, 2.0, num(t, wb, "Sheet1", "A1"))
	v, _ := wb.Value("Sheet1", "A2")
	assert.True(t, v.IsErr(value.ErrName))

	// sheet scope shadows workbook scope
	require.NoError(t, wb.DefineSheetName("Sheet1", "RATE", value.Number(0.5)))
	mustFormula(t, wb, "Sheet1", "A1", "=Rate*10")
	wb.Recalc()
	assert.Equal(t, 5.0, num(t, wb, "Sheet1", "A1"))
}

func TestStructuredReferences(t *testing.T) {
	wb := New()
	rng := value.Range{End: value.CellAddr{Row: 3, Col: 1}} // A1:B4
	require.NoError(t, wb.DefineTable("Sales", "Sheet1", rng, []string{"Region", "Amount"}, false))
	mustSet(t, wb, "Sheet1", "A1", value.Text("Region"))
	mustSet(t, wb, "Sheet1", "B1", value.Text("Amount"))
	for i, amt := range []float64{10, 20, 30} {
		mustSet(t, wb, "Sheet1", value.CellAddr{Row: uint32(i + 1), Col: 0}.A1(), value.Text("r"))
		mustSet(t, wb, "Sheet1", value.CellAddr{Row: uint32(i + 1), Col: 1}.A1(), value.Number(amt))
	}
	mustFormula(t, wb, "Sheet1", "D1", "=SUM(Sales[Amount])")
	wb.Recalc()
	assert.Equal(t, 60.0, num(t, wb, "Sheet1", "D1"))
}

func TestExternalReferences(t *testing.T) {
	wb := New()
	mustFormula(t, wb, "Sheet1", "A1", "=[Data.xlsx]Sheet1!B2*2")
	wb.Recalc()
	v, _ := wb.Value("Sheet1", "A1")
	assert.True(t, v.IsErr(value.ErrRef), "no provider installed")

	wb.SetExternalProvider(fakeProvider{})
	mustFormula(t, wb, "Sheet1", "A1", "=[Data.xlsx]Sheet1!B2*2")
	wb.Recalc()
	assert.Equal(t, 42.0, num(t, wb, "Sheet1", "A1"))
}

type fakeProvider struct{}

func (fakeProvider) ExternalValue(book, sheet string, addr value.CellAddr) (value.Value, bool) {
	if book == "Data.xlsx" && sheet == "Sheet1" && addr == (value.CellAddr{Row: 1, Col: 1}) {
		return value.Number(21), true
	}
	return value.Value{}, false
}

func TestParallelMatchesSequential(t *testing.T) {
	build := func(s Settings) *Workbook {
		wb := NewWithSettings(s)
		for row := 1; row <= 40; row++ {
			mustSet(t, wb, "Sheet1", value.CellAddr{Row: uint32(row - 1)}.A1(), value.Number(float64(row)))
			mustFormula(t, wb, "Sheet1",
				value.CellAddr{Row: uint32(row - 1), Col: 1}.A1(),
				fmt.Sprintf("=A%d*A%d+1", row, row))
		}
		mustFormula(t, wb, "Sheet1", "C1", "=SUM(B1:B40)")
		return wb
	}
	seq := DefaultSettings()
	seq.Recalc.Mode = "single"
	par := DefaultSettings()
	par.Recalc = RecalcSettings{Mode: "multi", Workers: 4}

	a := build(seq)
	b := build(par)
	a.Recalc()
	b.Recalc()
	assert.Equal(t, num(t, a, "Sheet1", "C1"), num(t, b, "Sheet1", "C1"))
}

func TestSettingsRoundTrip(t *testing.T) {
	src := []byte(`
locale:
  decimal: ","
  thousands: "."
  list: ";"
  date_order: dmy
date_system: 1904
recalc:
  mode: single
  workers: 2
iterative:
  enabled: true
  max_iterations: 50
  epsilon: 0.001
limits:
  array_cells: 1000000
`)
	s, err := LoadSettings(src)
	require.NoError(t, err)
	assert.Equal(t, 1904, s.DateSystem)
	assert.Equal(t, "single", s.Recalc.Mode)
	assert.Equal(t, 50, s.Iterative.MaxIterations)
	assert.Equal(t, 1000000, s.Limits.ArrayCells)

	out, err := s.Marshal()
	require.NoError(t, err)
	back, err := LoadSettings(out)
	require.NoError(t, err)
	assert.Equal(t, s, back)

	_, err = LoadSettings([]byte("date_system: 1901"))
	assert.Error(t, err)
}

func TestLocaleSettingsAffectCoercion(t *testing.T) {
	s := DefaultSettings()
	s.Locale = LocaleSettings{Decimal: ",", Thousands: ".", List: ";", DateOrder: "dmy"}
	wb := NewWithSettings(s)
	mustFormula(t, wb, "Sheet1", "A1", `=VALUE("1.234,5")`)
	mustFormula(t, wb, "Sheet1", "A2", `="2,5"+1`)
	wb.Recalc()
	assert.Equal(t, 1234.5, num(t, wb, "Sheet1", "A1"))
	assert.Equal(t, 3.5, num(t, wb, "Sheet1", "A2"))
}

func TestDateSystem1904(t *testing.T) {
	s := DefaultSettings()
	s.DateSystem = 1904
	wb := NewWithSettings(s)
	mustFormula(t, wb, "Sheet1", "A1", "=DATE(1904,1,2)")
	wb.Recalc()
	assert.Equal(t, 1.0, num(t, wb, "Sheet1", "A1"))
}

func TestMaterializationCap(t *testing.T) {
	s := DefaultSettings()
	s.Limits.ArrayCells = 4
	wb := NewWithSettings(s)
	mustFormula(t, wb, "Sheet1", "E1", "=SUM(A1:C9*1)")
	mustFormula(t, wb, "Sheet1", "F1", "=A1:C9")
	wb.Recalc()

	// an oversized intermediate array is a calculation error
	v, err := wb.Value("Sheet1", "E1")
	require.NoError(t, err)
	assert.True(t, v.IsErr(value.ErrCalc), "E1 = %s", v.Display())

	// an oversized top-level result cannot spill
	v, err = wb.Value("Sheet1", "F1")
	require.NoError(t, err)
	assert.True(t, v.IsErr(value.ErrSpill), "F1 = %s", v.Display())
}

func TestDisplay(t *testing.T) {
	wb := New()
	mustSet(t, wb, "Sheet1", "A1", value.Text("hi"))
	mustFormula(t, wb, "Sheet1", "B1", "=1/0")
	mustFormula(t, wb, "Sheet1", "C1", "=SEQUENCE(2)")
	wb.Recalc()

	got, err := wb.Display("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
	got, _ = wb.Display("Sheet1", "B1")
	assert.Equal(t, "#DIV/0!", got)
	got, _ = wb.Display("Sheet1", "C1")
	assert.Equal(t, "1", got, "origin slot shows the top-left element")
	got, _ = wb.Display("Sheet1", "D1")
	assert.Equal(t, "", got)
}
