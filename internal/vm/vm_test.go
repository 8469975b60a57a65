package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetkit/sheetkit/internal/locale"
	"github.com/sheetkit/sheetkit/internal/parser"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// fakeGrid implements value.Resolver and SheetLookup over an in-memory
// map.
type fakeGrid struct {
	names map[string]value.SheetID
	cells map[value.CellKey]value.Value
	rows  int
	cols  int
}

func newGrid() *fakeGrid {
	return &fakeGrid{
		names: map[string]value.SheetID{"Sheet1": 0, "Sheet2": 1, "Sheet3": 2},
		cells: map[value.CellKey]value.Value{},
		rows:  100,
		cols:  26,
	}
}

func (g *fakeGrid) set(sheet value.SheetID, a1 string, v value.Value) {
	addr, _ := value.ParseA1(a1)
	g.cells[value.CellKey{Sheet: sheet, Addr: addr}] = v
}

func (g *fakeGrid) SheetExists(sheet value.SheetID) bool { return sheet >= 0 && sheet <= 2 }

func (g *fakeGrid) SheetDimensions(value.SheetID) (int, int) { return g.rows, g.cols }

func (g *fakeGrid) CellValue(sheet value.SheetID, addr value.CellAddr) value.Value {
	return g.cells[value.CellKey{Sheet: sheet, Addr: addr}]
}

func (g *fakeGrid) SheetByName(name string) (value.SheetID, bool) {
	id, ok := g.names[name]
	return id, ok
}

func (g *fakeGrid) ResolveStructured(value.CellKey, *value.StructuredRef) (value.Ref, bool) {
	return value.Ref{}, false
}

func anchorAt(a1 string) value.CellKey {
	addr, _ := value.ParseA1(a1)
	return value.CellKey{Sheet: 0, Addr: addr}
}

func compileAt(t *testing.T, formula string, g *fakeGrid, anchor value.CellKey) *Program {
	t.Helper()
	expr, err := parser.Parse(formula)
	require.NoError(t, err, formula)
	prog, err := Compile(expr, anchor, g)
	require.NoError(t, err, formula)
	return prog
}

func evalAt(t *testing.T, formula string, g *fakeGrid, anchor value.CellKey) value.Value {
	t.Helper()
	prog := compileAt(t, formula, g, anchor)
	return Run(prog, &EvalContext{
		Res:       g,
		Loc:       locale.Default(),
		Anchor:    anchor,
		NowSerial: 45000.5,
		RandFn:    func() float64 { return 0.5 },
	})
}

func eval(t *testing.T, formula string, g *fakeGrid) value.Value {
	return evalAt(t, formula, g, anchorAt("Z99"))
}

func assertNum(t *testing.T, want float64, formula string, g *fakeGrid) {
	t.Helper()
	got := eval(t, formula, g)
	require.Equal(t, value.KindNumber, got.Kind, "%s -> %s", formula, got.Display())
	assert.InDelta(t, want, got.Num(), 1e-9, formula)
}

func assertErr(t *testing.T, want value.ErrorKind, formula string, g *fakeGrid) {
	t.Helper()
	got := eval(t, formula, g)
	require.Equal(t, value.KindError, got.Kind, "%s -> %s", formula, got.Display())
	assert.Equal(t, want, got.ErrKind(), formula)
}

func TestArithmetic(t *testing.T) {
	g := newGrid()
	assertNum(t, 7, "1+2*3", g)
	assertNum(t, 9, "(1+2)*3", g)
	assertNum(t, 64, "2^3^2", g)
	assertNum(t, 4, "-2^2", g)
	assertNum(t, 0.5, "50%", g)
	assertNum(t, 9, `"8"+1`, g)
	assertErr(t, value.ErrDiv0, "1/0", g)
	assertErr(t, value.ErrNum, "0^0", g)
	assertErr(t, value.ErrDiv0, "0^-1", g)
	assertErr(t, value.ErrNum, "(-8)^0.5", g)
	assertErr(t, value.ErrValue, `"abc"+1`, g)
}

func TestComparisonOrdering(t *testing.T) {
	g := newGrid()
	assert.Equal(t, value.Bool(true), eval(t, `1<"a"`, g))
	assert.Equal(t, value.Bool(true), eval(t, `"zzz"<TRUE`, g))
	assert.Equal(t, value.Bool(true), eval(t, `"Apple"="APPLE"`, g))
	assert.Equal(t, value.Bool(false), eval(t, `1="1"`, g))
	assert.Equal(t, value.Bool(true), eval(t, `FALSE<TRUE`, g))
}

func TestConcat(t *testing.T) {
	g := newGrid()
	assert.Equal(t, value.Text("ab1"), eval(t, `"a"&"b"&1`, g))
	assert.Equal(t, value.Text("x"), eval(t, `"x"&A1`, g), "blank concats as empty")
}

func TestReferenceArithmetic(t *testing.T) {
	g := newGrid()
	g.set(0, "A1", value.Number(2))
	g.set(0, "B1", value.Number(3))
	assertNum(t, 5, "A1+B1", g)
	assertNum(t, 6, "Sheet1!A1*3", g)
}

func TestErrorShortCircuit(t *testing.T) {
	g := newGrid()
	g.set(0, "A1", value.Err(value.ErrNA))
	assertErr(t, value.ErrNA, "A1+1", g)
	assertErr(t, value.ErrNA, "SUM(A1:A3)", g)
}

func TestSumCoercionRules(t *testing.T) {
	g := newGrid()
	g.set(0, "A1", value.Text("8"))
	g.set(0, "A2", value.Number(1))
	g.set(0, "A3", value.Bool(true))
	// text and booleans in references do not count
	assertNum(t, 1, "SUM(A1:A3)", g)
	// direct text coerces
	assertNum(t, 9, `SUM("8",1)`, g)
	assertNum(t, 1, `SUM(TRUE)`, g)
}

func TestBroadcasting(t *testing.T) {
	g := newGrid()
	v := eval(t, "{1,2,3}+{10;20}", g)
	require.Equal(t, value.KindArray, v.Kind)
	arr := v.Array()
	assert.Equal(t, 2, arr.Rows)
	assert.Equal(t, 3, arr.Cols)
	assert.Equal(t, value.Number(11), arr.At(0, 0))
	assert.Equal(t, value.Number(23), arr.At(1, 2))

	// mismatched non-1 extents fill with #N/A
	v = eval(t, "{1,2}+{1,2,3}", g)
	arr = v.Array()
	require.Equal(t, 3, arr.Cols)
	assert.Equal(t, value.Number(2), arr.At(0, 0))
	assert.True(t, arr.At(0, 2).IsError())
}

func TestIfLaziness(t *testing.T) {
	g := newGrid()
	assertNum(t, 1, "IF(TRUE,1,1/0)", g)
	assertNum(t, 42, "IF(FALSE,1/0,42)", g)
	// omitted branches
	assert.Equal(t, value.Bool(false), eval(t, "IF(FALSE,1)", g))
	assertNum(t, 0, "IF(TRUE,,5)", g)
	assertErr(t, value.ErrNA, "IF(NA(),1,2)", g)
}

func TestIfErrorLaziness(t *testing.T) {
	g := newGrid()
	assertNum(t, 42, "IFERROR(1/0,42)", g)
	assertNum(t, 7, "IFERROR(7,1/0)", g)
	assertNum(t, 3, "IFNA(NA(),3)", g)
	assertErr(t, value.ErrDiv0, "IFNA(1/0,3)", g)
}

func TestLet(t *testing.T) {
	g := newGrid()
	assertNum(t, 6, "LET(x,2,y,3,x*y)", g)
	assertNum(t, 8, "LET(x,2,y,x+2,x*y)", g)
	assertErr(t, value.ErrName, "LET(x,2,x*y)", g)
}

func TestLambda(t *testing.T) {
	g := newGrid()
	assertNum(t, 42, "LAMBDA(x,x+1)(41)", g)
	assertNum(t, 14, "LET(f,LAMBDA(a,b,a*b),f(5,2)+4)", g)
	assertNum(t, 5, "LAMBDA(x,[y],IF(ISOMITTED(y),x,x+y))(5)", g)
	assertNum(t, 9, "LAMBDA(x,[y],IF(ISOMITTED(y),x,x+y))(5,4)", g)
	assertErr(t, value.ErrValue, "LAMBDA(x,x)(1,2)", g)
}

func TestLambdaRecursionDepthCap(t *testing.T) {
	g := newGrid()
	// unbounded self-application runs into the depth cap, not a hang
	v := eval(t, "LET(f,LAMBDA(g,g(g)),f(f))", g)
	require.Equal(t, value.KindError, v.Kind)
}

func TestLambdaHelpers(t *testing.T) {
	g := newGrid()
	assertNum(t, 14, "SUM(MAP({1,2,3},LAMBDA(x,x*x)))", g)
	assertNum(t, 10, "REDUCE(0,{1,2,3,4},LAMBDA(acc,x,acc+x))", g)
	assertNum(t, 18, "SUM(MAKEARRAY(2,3,LAMBDA(r,c,r*c)))", g)
	v := eval(t, "BYROW({1,2;3,4},LAMBDA(row,SUM(row)))", g)
	require.Equal(t, value.KindArray, v.Kind)
	assert.Equal(t, value.Number(3), v.Array().At(0, 0))
	assert.Equal(t, value.Number(7), v.Array().At(1, 0))
}

func TestCriteriaAggregates(t *testing.T) {
	g := newGrid()
	g.set(0, "A1", value.Number(5))
	g.set(0, "A2", value.Number(15))
	g.set(0, "A3", value.Number(25))
	g.set(0, "B1", value.Text("x"))
	g.set(0, "B2", value.Text("y"))
	g.set(0, "B3", value.Text("x"))
	assertNum(t, 2, `COUNTIF(A1:A3,">10")`, g)
	assertNum(t, 40, `SUMIF(A1:A3,">10")`, g)
	assertNum(t, 30, `SUMIF(B1:B3,"x",A1:A3)`, g)
	assertNum(t, 20, `AVERAGEIF(A1:A3,">10")`, g)
	assertNum(t, 15, `SUMIFS(A1:A3,B1:B3,"y",A1:A3,">0")`, g)
	assertNum(t, 25, `MAXIFS(A1:A3,B1:B3,"x")`, g)
}

func TestLookups(t *testing.T) {
	g := newGrid()
	g.set(0, "A1", value.Number(1))
	g.set(0, "A2", value.Number(2))
	g.set(0, "A3", value.Number(3))
	g.set(0, "B1", value.Text("one"))
	g.set(0, "B2", value.Text("two"))
	g.set(0, "B3", value.Text("three"))
	assert.Equal(t, value.Text("two"), eval(t, "VLOOKUP(2,A1:B3,2,FALSE)", g))
	assert.Equal(t, value.Text("two"), eval(t, "VLOOKUP(2.9,A1:B3,2)", g), "approximate match")
	assertErr(t, value.ErrNA, "VLOOKUP(9,A1:B3,2,FALSE)", g)
	assertNum(t, 2, "MATCH(2,A1:A3,0)", g)
	assert.Equal(t, value.Text("three"), eval(t, "XLOOKUP(3,A1:A3,B1:B3)", g))
	assert.Equal(t, value.Text("none"), eval(t, `XLOOKUP(9,A1:A3,B1:B3,"none")`, g))
	assertNum(t, 3, "INDEX(A1:B3,3,1)+0", g)
	assertNum(t, 2, `INDIRECT("A2")+0`, g)
	assertNum(t, 3, "OFFSET(A1,2,0)+0", g)
}

func TestDynamicArrays(t *testing.T) {
	g := newGrid()
	v := eval(t, "SEQUENCE(2,3)", g)
	require.Equal(t, value.KindArray, v.Kind)
	assert.Equal(t, value.Number(6), v.Array().At(1, 2))

	v = eval(t, "FILTER({1;2;3;4},{TRUE;FALSE;TRUE;FALSE})", g)
	require.Equal(t, value.KindArray, v.Kind)
	assert.Equal(t, 2, v.Array().Rows)

	v = eval(t, "SORT({3;1;2})", g)
	assert.Equal(t, value.Number(1), v.Array().At(0, 0))
	assert.Equal(t, value.Number(3), v.Array().At(2, 0))

	v = eval(t, "UNIQUE({1;2;2;3})", g)
	assert.Equal(t, 3, v.Array().Rows)

	v = eval(t, "TRANSPOSE({1,2,3})", g)
	assert.Equal(t, 3, v.Array().Rows)
	assert.Equal(t, 1, v.Array().Cols)
}

func TestTextFunctions(t *testing.T) {
	g := newGrid()
	assert.Equal(t, value.Text("abc"), eval(t, `LEFT("abcdef",3)`, g))
	assert.Equal(t, value.Text("cd"), eval(t, `MID("abcdef",3,2)`, g))
	assertNum(t, 6, `LEN("abcdef")`, g)
	assert.Equal(t, value.Text("a-b-c"), eval(t, `TEXTJOIN("-",TRUE,"a","b","c")`, g))
	assert.Equal(t, value.Text("xyx"), eval(t, `SUBSTITUTE("aya","a","x")`, g))
	assertNum(t, 3, `FIND("c","abc")`, g)
	assertErr(t, value.ErrValue, `FIND("z","abc")`, g)
	assert.Equal(t, value.Text("A B"), eval(t, `TRIM("  A   B  ")`, g))
	assert.Equal(t, value.Text("1,234.50"), eval(t, `TEXT(1234.5,"#,##0.00")`, g))
}

func TestDateFunctions(t *testing.T) {
	g := newGrid()
	assertNum(t, 43831, "DATE(2020,1,1)", g)
	assertNum(t, 2020, "YEAR(DATE(2020,6,15))", g)
	assertNum(t, 6, "MONTH(DATE(2020,6,15))", g)
	assertNum(t, 43890, "EOMONTH(DATE(2020,2,10),0)", g)
	assertNum(t, 45000, "TODAY()", g)
	assertNum(t, 60, "DATE(1900,2,29)", g)
}

func TestVolatilePropagation(t *testing.T) {
	g := newGrid()
	assert.True(t, compileAt(t, "NOW()", g, anchorAt("A1")).Volatile)
	assert.True(t, compileAt(t, "SUM(A1,RAND())", g, anchorAt("B1")).Volatile)
	assert.True(t, compileAt(t, "IF(TRUE,RAND(),1)", g, anchorAt("B1")).Volatile)
	assert.False(t, compileAt(t, "SUM(A1:A3)", g, anchorAt("B1")).Volatile)
}

func TestFingerprintSharing(t *testing.T) {
	g := newGrid()
	// the same relative shape compiles to the same fingerprint at any
	// anchor
	p1 := compileAt(t, "A1+1", g, anchorAt("B1"))
	p2 := compileAt(t, "A5+1", g, anchorAt("B5"))
	assert.Equal(t, p1.Fingerprint(), p2.Fingerprint())

	// absolute rows pin the coordinate, so the shapes differ
	p3 := compileAt(t, "A$1+1", g, anchorAt("B1"))
	p4 := compileAt(t, "A$5+1", g, anchorAt("B5"))
	assert.NotEqual(t, p3.Fingerprint(), p4.Fingerprint())

	// distinct constants are distinct shapes
	p5 := compileAt(t, "A1+2", g, anchorAt("B1"))
	assert.NotEqual(t, p1.Fingerprint(), p5.Fingerprint())

	// adjacent text constants keep their boundaries
	p6 := compileAt(t, `"ab"&"c"`, g, anchorAt("B1"))
	p7 := compileAt(t, `"a"&"bc"`, g, anchorAt("B1"))
	assert.NotEqual(t, p6.Fingerprint(), p7.Fingerprint())
}

func TestCacheIntern(t *testing.T) {
	g := newGrid()
	cache := NewCache(16)
	p1 := cache.Intern(compileAt(t, "A1*2", g, anchorAt("B1")))
	p2 := cache.Intern(compileAt(t, "A2*2", g, anchorAt("B2")))
	assert.Same(t, p1, p2)
	hits, misses, programs := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, programs)
}

func TestImplicitIntersection(t *testing.T) {
	g := newGrid()
	g.set(0, "A1", value.Number(10))
	g.set(0, "A2", value.Number(20))
	g.set(0, "A3", value.Number(30))
	// anchor on row 2 picks the row-aligned element of a column range
	assertAt := func(want float64, formula, anchor string) {
		v := evalAt(t, formula, g, anchorAt(anchor))
		require.Equal(t, value.KindNumber, v.Kind, formula)
		assert.Equal(t, want, v.Num())
	}
	assertAt(20, "@A1:A3", "C2")
	assertAt(30, "@A1:A3", "C3")
}

func TestThreeDSum(t *testing.T) {
	g := newGrid()
	g.set(0, "A1", value.Number(1))
	g.set(1, "A1", value.Number(2))
	g.set(2, "A1", value.Number(3))
	assertNum(t, 6, "SUM(Sheet1:Sheet3!A1)", g)
	// 3-D references cannot be used as a scalar operand
	assertErr(t, value.ErrValue, "Sheet1:Sheet3!A1+1", g)
}

func TestExternalWithoutProvider(t *testing.T) {
	g := newGrid()
	assertErr(t, value.ErrRef, "[Data.xlsx]Prices!A1+0", g)
}

func TestUnknownFunction(t *testing.T) {
	g := newGrid()
	assertErr(t, value.ErrName, "NOSUCHFN(1)", g)
}

func TestXlfnPrefixedCall(t *testing.T) {
	g := newGrid()
	assert.Equal(t, value.Text("ab"), eval(t, `_xlfn.CONCAT("a","b")`, g))
	assertErr(t, value.ErrName, "_xlfn.NOSUCHFN(1)", g)
}

func TestMaterializationCapIsCalcError(t *testing.T) {
	g := newGrid()
	prog := compileAt(t, "A1:B9*1", g, anchorAt("Z99"))
	v := Run(prog, &EvalContext{
		Res:      g,
		Loc:      locale.Default(),
		Anchor:   anchorAt("Z99"),
		MaxCells: 4,
	})
	require.Equal(t, value.KindError, v.Kind)
	assert.Equal(t, value.ErrCalc, v.ErrKind())
}

func TestDeletedSheetCompilesToRef(t *testing.T) {
	g := newGrid()
	assertErr(t, value.ErrRef, "Missing!A1+0", g)
}

func TestDisassembleSmoke(t *testing.T) {
	g := newGrid()
	p := compileAt(t, "IF(A1>1,SUM(A1:A3),0)", g, anchorAt("B1"))
	text := Disassemble(p)
	assert.True(t, strings.Contains(text, "CALL"))
	assert.True(t, strings.Contains(text, "REF"))
}
