package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetkit/sheetkit/internal/token"
)

func lexAll(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var out []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			return out
		}
		require.NotEqual(t, token.ILLEGAL, tok.Type, "illegal token %q in %q", tok.Lit, input)
		out = append(out, tok)
	}
}

func kinds(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestOperators(t *testing.T) {
	toks := lexAll(t, "1+2*3^-4%<=5<>6")
	assert.Equal(t, []token.Type{
		token.NUMBER, token.PLUS, token.NUMBER, token.STAR, token.NUMBER,
		token.CARET, token.MINUS, token.NUMBER, token.PERCENT,
		token.LE, token.NUMBER, token.NE, token.NUMBER,
	}, kinds(toks))
}

func TestNumbers(t *testing.T) {
	toks := lexAll(t, "3.14 .5 1e-9 2E+10")
	require.Len(t, toks, 4)
	assert.Equal(t, "3.14", toks[0].Lit)
	assert.Equal(t, ".5", toks[1].Lit)
	assert.Equal(t, "1e-9", toks[2].Lit)
	assert.Equal(t, "2E+10", toks[3].Lit)
}

func TestDanglingExponentRewinds(t *testing.T) {
	// "1e" is not a number; E lexes as an identifier start
	l := New("1e+")
	tok := l.NextToken()
	assert.Equal(t, token.NUMBER, tok.Type)
	assert.Equal(t, "1", tok.Lit)
	tok = l.NextToken()
	assert.Equal(t, token.IDENT, tok.Type)
	assert.Equal(t, "e", tok.Lit)
	tok = l.NextToken()
	assert.Equal(t, token.PLUS, tok.Type)
}

func TestStringEscapes(t *testing.T) {
	toks := lexAll(t, `"he said ""hi"""`)
	require.Len(t, toks, 1)
	assert.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, `he said "hi"`, toks[0].Lit)
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"oops`)
	tok := l.NextToken()
	assert.Equal(t, token.ILLEGAL, tok.Type)
}

func TestCellVsIdent(t *testing.T) {
	toks := lexAll(t, "A1 $B$2 XFD1048576 SUM TRUE A1048577 AAAA1")
	types := kinds(toks)
	assert.Equal(t, []token.Type{
		token.CELL, token.CELL, token.CELL,
		token.IDENT, token.IDENT, token.IDENT, token.IDENT,
	}, types)
}

func TestQuotedSheet(t *testing.T) {
	toks := lexAll(t, "'My Sheet'!A1")
	require.Len(t, toks, 3)
	assert.Equal(t, token.SHEET, toks[0].Type)
	assert.Equal(t, "My Sheet", toks[0].Lit)
	assert.Equal(t, token.BANG, toks[1].Type)
	assert.Equal(t, token.CELL, toks[2].Type)
}

func TestQuotedSheetApostropheEscape(t *testing.T) {
	toks := lexAll(t, "'It''s'!B2")
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, token.SHEET, toks[0].Type)
	assert.Equal(t, "It's", toks[0].Lit)
}

func TestErrorLiterals(t *testing.T) {
	for _, lit := range []string{"#DIV/0!", "#N/A", "#NAME?", "#REF!", "#SPILL!", "#GETTING_DATA"} {
		toks := lexAll(t, lit)
		require.Len(t, toks, 1, lit)
		assert.Equal(t, token.ERRLIT, toks[0].Type, lit)
		assert.Equal(t, lit, toks[0].Lit, lit)
	}
}

func TestStructuredReference(t *testing.T) {
	toks := lexAll(t, "Sales[Amount]")
	require.Len(t, toks, 4)
	assert.Equal(t, token.IDENT, toks[0].Type)
	assert.Equal(t, token.LBRACKET, toks[1].Type)
	assert.Equal(t, token.ITEM, toks[2].Type)
	assert.Equal(t, "Amount", toks[2].Lit)
	assert.Equal(t, token.RBRACKET, toks[3].Type)
}

func TestStructuredReferenceItems(t *testing.T) {
	toks := lexAll(t, "T[[#Headers],[Col A]:[Col B]]")
	types := kinds(toks)
	assert.Equal(t, []token.Type{
		token.IDENT, token.LBRACKET,
		token.LBRACKET, token.ERRLIT, token.RBRACKET,
		token.COMMA,
		token.LBRACKET, token.ITEM, token.RBRACKET,
		token.COLON,
		token.LBRACKET, token.ITEM, token.RBRACKET,
		token.RBRACKET,
	}, types)
	assert.Equal(t, "#Headers", toks[3].Lit)
	assert.Equal(t, "Col A", toks[7].Lit)
	assert.Equal(t, "Col B", toks[11].Lit)
}

func TestThisRowShorthand(t *testing.T) {
	toks := lexAll(t, "T[@Qty]")
	types := kinds(toks)
	assert.Equal(t, []token.Type{
		token.IDENT, token.LBRACKET, token.AT, token.ITEM, token.RBRACKET,
	}, types)
	assert.Equal(t, "Qty", toks[3].Lit)
}

func TestArrayLiteralTokens(t *testing.T) {
	toks := lexAll(t, "{1,2;3,4}")
	assert.Equal(t, []token.Type{
		token.LBRACE, token.NUMBER, token.COMMA, token.NUMBER,
		token.SEMI, token.NUMBER, token.COMMA, token.NUMBER, token.RBRACE,
	}, kinds(toks))
}

func TestOffsetsAreByteOffsets(t *testing.T) {
	l := New("A1 + 2")
	tok := l.NextToken()
	assert.Equal(t, 0, tok.Offset)
	tok = l.NextToken()
	assert.Equal(t, 3, tok.Offset)
	tok = l.NextToken()
	assert.Equal(t, 5, tok.Offset)
}
