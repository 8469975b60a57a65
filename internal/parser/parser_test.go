package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetkit/sheetkit/internal/ast"
	"github.com/sheetkit/sheetkit/internal/token"
	"github.com/sheetkit/sheetkit/pkg/value"
)

func mustParse(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err, "parsing %q", src)
	return e
}

func TestPrecedence(t *testing.T) {
	// 1+2*3 parses as 1+(2*3)
	e := mustParse(t, "1+2*3")
	b := e.(*ast.Binary)
	assert.Equal(t, token.PLUS, b.Op)
	inner := b.Y.(*ast.Binary)
	assert.Equal(t, token.STAR, inner.Op)

	// comparison is loosest: 1+2=3 parses as (1+2)=3
	e = mustParse(t, "1+2=3")
	b = e.(*ast.Binary)
	assert.Equal(t, token.EQ, b.Op)

	// concat between comparison and additive: "a"&1+2 is "a"&(1+2)
	e = mustParse(t, `"a"&1+2`)
	b = e.(*ast.Binary)
	assert.Equal(t, token.AMP, b.Op)
}

func TestUnaryBindsTighterThanPower(t *testing.T) {
	// -2^2 parses as (-2)^2
	e := mustParse(t, "-2^2")
	b := e.(*ast.Binary)
	require.Equal(t, token.CARET, b.Op)
	_, ok := b.X.(*ast.Unary)
	assert.True(t, ok)
}

func TestPowerLeftAssociative(t *testing.T) {
	// 2^3^2 parses as (2^3)^2
	e := mustParse(t, "2^3^2")
	b := e.(*ast.Binary)
	require.Equal(t, token.CARET, b.Op)
	inner, ok := b.X.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.CARET, inner.Op)
}

func TestPercentPostfix(t *testing.T) {
	e := mustParse(t, "-50%")
	u := e.(*ast.Unary)
	require.Equal(t, token.MINUS, u.Op)
	_, ok := u.X.(*ast.Percent)
	assert.True(t, ok)
}

func TestCellRefFlags(t *testing.T) {
	e := mustParse(t, "$B$2")
	c := e.(*ast.CellRef)
	assert.Equal(t, ast.Axis{N: 1, Abs: true}, c.Row)
	assert.Equal(t, ast.Axis{N: 1, Abs: true}, c.Col)

	e = mustParse(t, "B2")
	c = e.(*ast.CellRef)
	assert.False(t, c.Row.Abs)
	assert.False(t, c.Col.Abs)
}

func TestRangeOperator(t *testing.T) {
	e := mustParse(t, "A1:B2")
	b := e.(*ast.Binary)
	assert.Equal(t, token.COLON, b.Op)
	_, ok := b.X.(*ast.CellRef)
	assert.True(t, ok)
}

func TestColumnAndRowSpans(t *testing.T) {
	e := mustParse(t, "A:C")
	cr := e.(*ast.ColRange)
	assert.Equal(t, int32(0), cr.Start.N)
	assert.Equal(t, int32(2), cr.End.N)

	e = mustParse(t, "$A:$A")
	cr = e.(*ast.ColRange)
	assert.True(t, cr.Start.Abs)

	e = mustParse(t, "5:7")
	rr := e.(*ast.RowRange)
	assert.Equal(t, int32(4), rr.Start.N)
	assert.Equal(t, int32(6), rr.End.N)
}

func TestSheetQualifiers(t *testing.T) {
	e := mustParse(t, "Sheet1!A1")
	c := e.(*ast.CellRef)
	require.NotNil(t, c.Sheet)
	assert.Equal(t, "Sheet1", c.Sheet.First)

	e = mustParse(t, "'My Sheet'!B2")
	c = e.(*ast.CellRef)
	require.NotNil(t, c.Sheet)
	assert.Equal(t, "My Sheet", c.Sheet.First)

	e = mustParse(t, "Sheet1!A:C")
	col := e.(*ast.ColRange)
	require.NotNil(t, col.Sheet)
	assert.Equal(t, "Sheet1", col.Sheet.First)
}

func TestThreeDSpan(t *testing.T) {
	e := mustParse(t, "Sheet1:Sheet3!A1")
	c := e.(*ast.CellRef)
	require.NotNil(t, c.Sheet)
	assert.Equal(t, "Sheet1", c.Sheet.First)
	assert.Equal(t, "Sheet3", c.Sheet.Last)

	e = mustParse(t, "'Jan:Mar'!B2")
	c = e.(*ast.CellRef)
	require.NotNil(t, c.Sheet)
	assert.Equal(t, "Jan", c.Sheet.First)
	assert.Equal(t, "Mar", c.Sheet.Last)
}

func TestExternalBook(t *testing.T) {
	e := mustParse(t, "[Book.xlsx]Sheet1!A1")
	c := e.(*ast.CellRef)
	require.NotNil(t, c.Sheet)
	assert.Equal(t, "Book.xlsx", c.Sheet.Book)
	assert.Equal(t, "Sheet1", c.Sheet.First)

	e = mustParse(t, "'[Book.xlsx]My Sheet'!A1")
	c = e.(*ast.CellRef)
	require.NotNil(t, c.Sheet)
	assert.Equal(t, "Book.xlsx", c.Sheet.Book)
	assert.Equal(t, "My Sheet", c.Sheet.First)
}

func TestFunctionCalls(t *testing.T) {
	e := mustParse(t, "sum(A1:A3,2)")
	call := e.(*ast.Call)
	assert.Equal(t, "SUM", call.Name)
	require.Len(t, call.Args, 2)

	e = mustParse(t, "NOW()")
	call = e.(*ast.Call)
	assert.Empty(t, call.Args)
}

func TestOmittedArguments(t *testing.T) {
	e := mustParse(t, "IF(A1,,2)")
	call := e.(*ast.Call)
	require.Len(t, call.Args, 3)
	assert.Nil(t, call.Args[1])
	assert.NotNil(t, call.Args[2])
}

func TestBooleansAndTrueFunction(t *testing.T) {
	e := mustParse(t, "TRUE")
	assert.Equal(t, &ast.BoolLit{Val: true}, e)

	e = mustParse(t, "TRUE()")
	_, ok := e.(*ast.Call)
	assert.True(t, ok)
}

func TestErrorLiteral(t *testing.T) {
	e := mustParse(t, "#DIV/0!")
	lit := e.(*ast.ErrorLit)
	assert.Equal(t, value.ErrDiv0, lit.Kind)
}

func TestArrayLiteral(t *testing.T) {
	e := mustParse(t, `{1,2;3,-4}`)
	arr := e.(*ast.ArrayLit)
	assert.Equal(t, 2, arr.Rows)
	assert.Equal(t, 2, arr.Cols)
	assert.Equal(t, &ast.NumberLit{Val: -4}, arr.Elems[3])

	_, err := Parse("{1,2;3}")
	assert.Error(t, err)
}

func TestUnionInsideParens(t *testing.T) {
	e := mustParse(t, "SUM((A1:A2,C1:C2))")
	call := e.(*ast.Call)
	paren := call.Args[0].(*ast.Paren)
	b := paren.X.(*ast.Binary)
	assert.Equal(t, token.COMMA, b.Op)
}

func TestImplicitIntersection(t *testing.T) {
	e := mustParse(t, "@A:A")
	ix := e.(*ast.Intersect)
	_, ok := ix.X.(*ast.ColRange)
	assert.True(t, ok)
}

func TestStructuredRefs(t *testing.T) {
	e := mustParse(t, "Sales[Amount]")
	s := e.(*ast.StructRef)
	assert.Equal(t, "Sales", s.Table)
	assert.Equal(t, "Amount", s.StartCol)
	assert.Equal(t, value.ItemData, s.Item)

	e = mustParse(t, "Sales[#Totals]")
	s = e.(*ast.StructRef)
	assert.Equal(t, value.ItemTotals, s.Item)

	e = mustParse(t, "Sales[@Qty]")
	s = e.(*ast.StructRef)
	assert.Equal(t, value.ItemThisRow, s.Item)
	assert.Equal(t, "Qty", s.StartCol)

	e = mustParse(t, "T[[#Headers],[Col A]:[Col B]]")
	s = e.(*ast.StructRef)
	assert.Equal(t, value.ItemHeaders, s.Item)
	assert.Equal(t, "Col A", s.StartCol)
	assert.Equal(t, "Col B", s.EndCol)

	e = mustParse(t, "[@Price]")
	s = e.(*ast.StructRef)
	assert.Equal(t, value.ItemThisRow, s.Item)
	assert.Equal(t, "Price", s.StartCol)
}

func TestR1C1Mode(t *testing.T) {
	e, err := ParseMode("R2C5", ModeR1C1)
	require.NoError(t, err)
	c := e.(*ast.CellRef)
	assert.Equal(t, ast.Axis{N: 1, Abs: true}, c.Row)
	assert.Equal(t, ast.Axis{N: 4, Abs: true}, c.Col)

	e, err = ParseMode("R[-2]C[3]", ModeR1C1)
	require.NoError(t, err)
	c = e.(*ast.CellRef)
	assert.Equal(t, ast.Axis{N: -2, Rel: true}, c.Row)
	assert.Equal(t, ast.Axis{N: 3, Rel: true}, c.Col)

	e, err = ParseMode("RC", ModeR1C1)
	require.NoError(t, err)
	c = e.(*ast.CellRef)
	assert.True(t, c.Row.Rel)
	assert.True(t, c.Col.Rel)
	assert.Equal(t, int32(0), c.Row.N)

	e, err = ParseMode("SUM(RC[1]:RC[3])", ModeR1C1)
	require.NoError(t, err)
	_, ok := e.(*ast.Call)
	assert.True(t, ok)
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"1+", "SUM(", "(1", "{1,", "A1:", "Sheet1!", "1 2"} {
		_, err := Parse(src)
		require.Error(t, err, src)
		var pe *Error
		require.ErrorAs(t, err, &pe, src)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	for _, src := range []string{
		"1+2*3",
		"SUM(A1:B2,3)",
		"-$A$1%",
		`IF(A1>0,"yes","no")`,
		"'My Sheet'!B2&Sheet2!C3",
		"{1,2;3,4}",
		"Sales[Amount]",
	} {
		e := mustParse(t, src)
		out := ast.Render(e)
		e2, err := Parse(out)
		require.NoError(t, err, "re-parsing %q (from %q)", out, src)
		assert.Equal(t, out, ast.Render(e2), src)
	}
}
