// Package parser turns formula text into an ast.Expr. It is a
// recursive-descent parser with one token of lookahead; operator
// precedence follows the conventional spreadsheet rules, with
// reference operators binding tightest and unary sign binding tighter
// than exponentiation.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sheetkit/sheetkit/internal/ast"
	"github.com/sheetkit/sheetkit/internal/lexer"
	"github.com/sheetkit/sheetkit/internal/token"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// Mode selects the reference notation the parser accepts.
type Mode uint8

const (
	ModeA1 Mode = iota
	ModeR1C1
)

// Error is a syntax error with the byte offset of the offending token.
type Error struct {
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Msg)
}

type Parser struct {
	l    *lexer.Lexer
	mode Mode
	cur  token.Token
	peek token.Token
	err  *Error
}

// Parse parses a formula body (without the leading =) in A1 mode.
func Parse(input string) (ast.Expr, error) {
	return ParseMode(input, ModeA1)
}

// ParseMode parses a formula body in the given reference notation.
func ParseMode(input string, mode Mode) (ast.Expr, error) {
	p := &Parser{l: lexer.New(input), mode: mode}
	p.next()
	p.next()
	expr := p.parseExpr()
	if p.err == nil && p.cur.Type != token.EOF {
		p.fail(p.cur.Offset, fmt.Sprintf("unexpected %q", p.cur.Lit))
	}
	if p.err != nil {
		return nil, p.err
	}
	return expr, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) fail(offset int, msg string) {
	if p.err == nil {
		p.err = &Error{Offset: offset, Msg: msg}
	}
}

func (p *Parser) expect(t token.Type) {
	if p.cur.Type != t {
		p.fail(p.cur.Offset, fmt.Sprintf("expected %s, found %q", t, p.cur.Lit))
		return
	}
	p.next()
}

// precedence levels, loosest first:
// compare < concat < additive < multiplicative < power < unary <
// postfix % < range : < primary

func (p *Parser) parseExpr() ast.Expr {
	return p.parseCompare()
}

func (p *Parser) parseCompare() ast.Expr {
	x := p.parseConcat()
	for p.err == nil {
		switch p.cur.Type {
		case token.EQ, token.NE, token.LT, token.LE, token.GT, token.GE:
			op := p.cur.Type
			p.next()
			x = &ast.Binary{Op: op, X: x, Y: p.parseConcat()}
		default:
			return x
		}
	}
	return x
}

func (p *Parser) parseConcat() ast.Expr {
	x := p.parseAdditive()
	for p.err == nil && p.cur.Type == token.AMP {
		p.next()
		x = &ast.Binary{Op: token.AMP, X: x, Y: p.parseAdditive()}
	}
	return x
}

func (p *Parser) parseAdditive() ast.Expr {
	x := p.parseMultiplicative()
	for p.err == nil && (p.cur.Type == token.PLUS || p.cur.Type == token.MINUS) {
		op := p.cur.Type
		p.next()
		x = &ast.Binary{Op: op, X: x, Y: p.parseMultiplicative()}
	}
	return x
}

func (p *Parser) parseMultiplicative() ast.Expr {
	x := p.parsePower()
	for p.err == nil && (p.cur.Type == token.STAR || p.cur.Type == token.SLASH) {
		op := p.cur.Type
		p.next()
		x = &ast.Binary{Op: op, X: x, Y: p.parsePower()}
	}
	return x
}

func (p *Parser) parsePower() ast.Expr {
	x := p.parseUnary()
	for p.err == nil && p.cur.Type == token.CARET {
		p.next()
		x = &ast.Binary{Op: token.CARET, X: x, Y: p.parseUnary()}
	}
	return x
}

// parseUnary handles prefix sign and implicit intersection. Sign binds
// tighter than ^, so -2^2 is (-2)^2.
func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Type {
	case token.PLUS, token.MINUS:
		op := p.cur.Type
		p.next()
		return &ast.Unary{Op: op, X: p.parseUnary()}
	case token.AT:
		p.next()
		return &ast.Intersect{X: p.parseUnary()}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parseRange()
	for p.err == nil {
		switch p.cur.Type {
		case token.PERCENT:
			p.next()
			x = &ast.Percent{X: x}
		case token.LPAREN:
			// immediate application, as in LAMBDA(x,x+1)(5)
			call := p.parseCallArgs("").(*ast.Call)
			x = &ast.Invoke{Callee: x, Args: call.Args}
		default:
			return x
		}
	}
	return x
}

// parseRange folds the : operator over primaries. Column, row and 3-D
// spans come out of the fold when both sides have the right shape.
func (p *Parser) parseRange() ast.Expr {
	x := p.parsePrimary()
	for p.err == nil && p.cur.Type == token.COLON {
		p.next()
		y := p.parsePrimary()
		x = p.combineRange(x, y)
	}
	return x
}

func (p *Parser) combineRange(x, y ast.Expr) ast.Expr {
	// Sheet1:Sheet3!A1 parses as NameRef : sheet-qualified ref
	if nx, ok := x.(*ast.NameRef); ok {
		if cy, ok := y.(*ast.CellRef); ok && cy.Sheet != nil && cy.Sheet.Last == "" {
			cy.Sheet.Last = cy.Sheet.First
			cy.Sheet.First = nx.Name
			return cy
		}
		if ny, ok := y.(*ast.NameRef); ok {
			if s, okS := parseColAxis(nx.Name); okS {
				if e, okE := parseColAxis(ny.Name); okE {
					return &ast.ColRange{Start: s, End: e}
				}
			}
		}
	}
	if lx, ok := x.(*ast.NumberLit); ok {
		if ly, ok := y.(*ast.NumberLit); ok {
			if s, okS := rowAxisFromNumber(lx.Val); okS {
				if e, okE := rowAxisFromNumber(ly.Val); okE {
					return &ast.RowRange{Start: s, End: e}
				}
			}
		}
	}
	return &ast.Binary{Op: token.COLON, X: x, Y: y}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur.Type {
	case token.NUMBER:
		f, err := strconv.ParseFloat(p.cur.Lit, 64)
		if err != nil {
			p.fail(p.cur.Offset, "malformed number")
			return nil
		}
		p.next()
		return &ast.NumberLit{Val: f}

	case token.STRING:
		s := p.cur.Lit
		p.next()
		return &ast.StringLit{Val: s}

	case token.ERRLIT:
		k, ok := value.ParseErrorCode(p.cur.Lit)
		if !ok {
			p.fail(p.cur.Offset, fmt.Sprintf("unknown error literal %q", p.cur.Lit))
			return nil
		}
		p.next()
		return &ast.ErrorLit{Kind: k}

	case token.LBRACE:
		return p.parseArrayLit()

	case token.LPAREN:
		return p.parseParen()

	case token.LBRACKET:
		return p.parseBracketed()

	case token.CELL:
		return p.parseCell(nil)

	case token.SHEET:
		return p.parseQuotedSheetRef()

	case token.IDENT:
		return p.parseIdent()
	}
	p.fail(p.cur.Offset, fmt.Sprintf("unexpected %q", p.cur.Lit))
	return nil
}

// parseParen parses a parenthesized expression. The union operator is
// only legal inside explicit parentheses, so a comma here folds into a
// union chain.
func (p *Parser) parseParen() ast.Expr {
	p.next() // (
	x := p.parseExpr()
	for p.err == nil && p.cur.Type == token.COMMA {
		p.next()
		x = &ast.Binary{Op: token.COMMA, X: x, Y: p.parseExpr()}
	}
	p.expect(token.RPAREN)
	return &ast.Paren{X: x}
}

// parseArrayLit parses {1,2;3,4}. Elements are constants, optionally
// signed; rows must be equally long.
func (p *Parser) parseArrayLit() ast.Expr {
	p.next() // {
	var elems []ast.Expr
	rows, cols := 1, 0
	rowLen := 0
	for p.err == nil {
		elems = append(elems, p.parseArrayElem())
		rowLen++
		switch p.cur.Type {
		case token.COMMA:
			p.next()
		case token.SEMI:
			if cols == 0 {
				cols = rowLen
			} else if rowLen != cols {
				p.fail(p.cur.Offset, "ragged array literal")
				return nil
			}
			rows++
			rowLen = 0
			p.next()
		case token.RBRACE:
			if cols == 0 {
				cols = rowLen
			} else if rowLen != cols {
				p.fail(p.cur.Offset, "ragged array literal")
				return nil
			}
			p.next()
			return &ast.ArrayLit{Rows: rows, Cols: cols, Elems: elems}
		default:
			p.fail(p.cur.Offset, fmt.Sprintf("unexpected %q in array literal", p.cur.Lit))
			return nil
		}
	}
	return nil
}

func (p *Parser) parseArrayElem() ast.Expr {
	neg := false
	for p.cur.Type == token.MINUS || p.cur.Type == token.PLUS {
		if p.cur.Type == token.MINUS {
			neg = !neg
		}
		p.next()
	}
	switch p.cur.Type {
	case token.NUMBER:
		f, _ := strconv.ParseFloat(p.cur.Lit, 64)
		if neg {
			f = -f
		}
		p.next()
		return &ast.NumberLit{Val: f}
	case token.STRING:
		if neg {
			p.fail(p.cur.Offset, "sign on non-numeric array element")
			return nil
		}
		s := p.cur.Lit
		p.next()
		return &ast.StringLit{Val: s}
	case token.ERRLIT:
		k, ok := value.ParseErrorCode(p.cur.Lit)
		if !ok {
			p.fail(p.cur.Offset, fmt.Sprintf("unknown error literal %q", p.cur.Lit))
			return nil
		}
		p.next()
		return &ast.ErrorLit{Kind: k}
	case token.IDENT:
		if b, ok := boolKeyword(p.cur.Lit); ok {
			p.next()
			return &ast.BoolLit{Val: b}
		}
	}
	p.fail(p.cur.Offset, "array literals allow only constants")
	return nil
}

// parseBracketed handles the two bracket-led forms: an external book
// prefix [Book]Sheet!A1, and a table-less structured reference like
// [@Col] or [Amount] used inside a table.
func (p *Parser) parseBracketed() ast.Expr {
	p.next() // [
	if p.cur.Type == token.AT {
		p.next()
		col := p.structColumn()
		p.expect(token.RBRACKET)
		return &ast.StructRef{Item: value.ItemThisRow, StartCol: col}
	}
	if p.cur.Type == token.ITEM && p.peek.Type == token.RBRACKET {
		name := p.cur.Lit
		p.next()
		p.next()
		// [Book]Sheet!... when a sheet follows, else a bare column
		if p.cur.Type == token.IDENT && p.peek.Type == token.BANG {
			sheet := &ast.SheetSpec{Book: name, First: p.cur.Lit}
			p.next()
			p.next()
			return p.parseRefCore(sheet)
		}
		if p.cur.Type == token.SHEET {
			sheet := &ast.SheetSpec{Book: name, First: p.cur.Lit}
			p.next()
			p.expect(token.BANG)
			return p.parseRefCore(sheet)
		}
		return &ast.StructRef{StartCol: name}
	}
	if p.cur.Type == token.ERRLIT {
		if item, ok := structItem(p.cur.Lit); ok {
			p.next()
			p.expect(token.RBRACKET)
			return &ast.StructRef{Item: item}
		}
	}
	p.fail(p.cur.Offset, "malformed bracketed reference")
	return nil
}

// parseQuotedSheetRef handles 'Name'!ref, including quoted 3-D spans
// and quoted external prefixes.
func (p *Parser) parseQuotedSheetRef() ast.Expr {
	lit := p.cur.Lit
	p.next()
	p.expect(token.BANG)
	sheet := &ast.SheetSpec{}
	if strings.HasPrefix(lit, "[") {
		if end := strings.IndexByte(lit, ']'); end > 0 {
			sheet.Book = lit[1:end]
			lit = lit[end+1:]
		}
	}
	if i := strings.IndexByte(lit, ':'); i >= 0 {
		sheet.First = lit[:i]
		sheet.Last = lit[i+1:]
	} else {
		sheet.First = lit
	}
	return p.parseRefCore(sheet)
}

// parseIdent dispatches an identifier: boolean keyword, function call,
// sheet prefix, structured table reference, R1C1 cell, whole-column
// span start, or a defined name.
func (p *Parser) parseIdent() ast.Expr {
	lit := p.cur.Lit

	if p.peek.Type == token.LPAREN {
		name := strings.ToUpper(lit)
		p.next()
		return p.parseCallArgs(name)
	}
	if b, ok := boolKeyword(lit); ok {
		p.next()
		return &ast.BoolLit{Val: b}
	}
	if p.peek.Type == token.BANG {
		sheet := &ast.SheetSpec{First: lit}
		p.next()
		p.next()
		return p.parseRefCore(sheet)
	}
	if p.mode == ModeR1C1 {
		if ref, ok := p.parseR1C1(nil, lit); ok {
			return ref
		}
	}
	if p.peek.Type == token.LBRACKET {
		table := lit
		p.next()
		return p.parseStructOrColumns(table)
	}
	p.next()
	return &ast.NameRef{Name: lit}
}

func (p *Parser) parseCallArgs(name string) ast.Expr {
	p.next() // (
	call := &ast.Call{Name: name}
	if p.cur.Type == token.RPAREN {
		p.next()
		return call
	}
	for p.err == nil {
		if p.cur.Type == token.COMMA || p.cur.Type == token.RPAREN {
			call.Args = append(call.Args, nil)
		} else {
			call.Args = append(call.Args, p.parseExpr())
		}
		if p.cur.Type == token.COMMA {
			p.next()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return call
}

// parseRefCore parses the reference body after a sheet qualifier:
// a cell, a whole-column span, a whole-row span, or an R1C1 form.
func (p *Parser) parseRefCore(sheet *ast.SheetSpec) ast.Expr {
	switch p.cur.Type {
	case token.CELL:
		return p.parseCell(sheet)
	case token.NUMBER:
		if p.peek.Type == token.COLON {
			f, _ := strconv.ParseFloat(p.cur.Lit, 64)
			s, okS := rowAxisFromNumber(f)
			if okS {
				p.next()
				p.next()
				e, okE := p.rowAxisToken()
				if okE {
					return &ast.RowRange{Sheet: sheet, Start: s, End: e}
				}
			}
			p.fail(p.cur.Offset, "malformed row span")
			return nil
		}
	case token.IDENT:
		if p.mode == ModeR1C1 {
			if ref, ok := p.parseR1C1(sheet, p.cur.Lit); ok {
				return ref
			}
		}
		if s, ok := parseColAxis(p.cur.Lit); ok && p.peek.Type == token.COLON {
			p.next()
			p.next()
			if e, ok := parseColAxis(p.cur.Lit); ok && p.cur.Type == token.IDENT {
				p.next()
				return &ast.ColRange{Sheet: sheet, Start: s, End: e}
			}
			p.fail(p.cur.Offset, "malformed column span")
			return nil
		}
	}
	p.fail(p.cur.Offset, fmt.Sprintf("expected reference after sheet name, found %q", p.cur.Lit))
	return nil
}

func (p *Parser) rowAxisToken() (ast.Axis, bool) {
	switch p.cur.Type {
	case token.NUMBER:
		f, _ := strconv.ParseFloat(p.cur.Lit, 64)
		if a, ok := rowAxisFromNumber(f); ok {
			p.next()
			return a, true
		}
	case token.IDENT:
		if a, ok := parseRowAxisIdent(p.cur.Lit); ok {
			p.next()
			return a, true
		}
	}
	return ast.Axis{}, false
}

func (p *Parser) parseCell(sheet *ast.SheetSpec) ast.Expr {
	lit := p.cur.Lit
	p.next()
	ref, ok := cellFromA1(lit)
	if !ok {
		p.fail(p.cur.Offset, fmt.Sprintf("malformed cell %q", lit))
		return nil
	}
	ref.Sheet = sheet
	return ref
}

// parseStructOrColumns parses Table[...] after the table identifier.
func (p *Parser) parseStructOrColumns(table string) ast.Expr {
	return p.parseStructBody(table)
}

// parseStructBody parses the bracketed part of a structured reference,
// with cur on the opening bracket.
func (p *Parser) parseStructBody(table string) ast.Expr {
	p.expect(token.LBRACKET)
	out := &ast.StructRef{Table: table}

	switch p.cur.Type {
	case token.RBRACKET: // Table[] means all data
		p.next()
		return out
	case token.AT:
		p.next()
		out.Item = value.ItemThisRow
		if p.cur.Type != token.RBRACKET {
			out.StartCol = p.structColumn()
		}
		p.expect(token.RBRACKET)
		return out
	case token.ITEM: // Table[Col]
		out.StartCol = p.cur.Lit
		p.next()
		p.expect(token.RBRACKET)
		return out
	case token.ERRLIT: // Table[#Headers] single-item shorthand
		item, ok := structItem(p.cur.Lit)
		if !ok {
			p.fail(p.cur.Offset, fmt.Sprintf("unknown item %q", p.cur.Lit))
			return nil
		}
		out.Item = item
		p.next()
		p.expect(token.RBRACKET)
		return out
	case token.LBRACKET: // Table[[#Item],[Col]:[Col]]
		p.parseStructParts(out)
		p.expect(token.RBRACKET)
		return out
	}
	p.fail(p.cur.Offset, fmt.Sprintf("malformed structured reference %q", p.cur.Lit))
	return nil
}

func (p *Parser) parseStructParts(out *ast.StructRef) {
	for p.err == nil {
		p.expect(token.LBRACKET)
		switch p.cur.Type {
		case token.ERRLIT:
			item, ok := structItem(p.cur.Lit)
			if !ok {
				p.fail(p.cur.Offset, fmt.Sprintf("unknown item %q", p.cur.Lit))
				return
			}
			out.Item = item
			p.next()
		case token.ITEM:
			if out.StartCol == "" {
				out.StartCol = p.cur.Lit
			} else {
				out.EndCol = p.cur.Lit
			}
			p.next()
		default:
			p.fail(p.cur.Offset, "malformed structured reference")
			return
		}
		p.expect(token.RBRACKET)
		switch p.cur.Type {
		case token.COMMA, token.COLON:
			p.next()
		default:
			return
		}
	}
}

func (p *Parser) structColumn() string {
	if p.cur.Type == token.ITEM {
		col := p.cur.Lit
		p.next()
		return col
	}
	if p.cur.Type == token.LBRACKET {
		p.next()
		col := ""
		if p.cur.Type == token.ITEM {
			col = p.cur.Lit
			p.next()
		}
		p.expect(token.RBRACKET)
		return col
	}
	p.fail(p.cur.Offset, "expected column name")
	return ""
}

// parseR1C1 assembles an R1C1 reference starting from the identifier
// lit. The second return is false when lit is not an R1C1 form; in
// that case nothing has been consumed. Accepted shapes: R2C5, R2C,
// RC, RC3, RC[2], R[-2]C[3], R[1]C.
func (p *Parser) parseR1C1(sheet *ast.SheetSpec, lit string) (ast.Expr, bool) {
	upper := strings.ToUpper(lit)
	if upper == "" || upper[0] != 'R' {
		return nil, false
	}
	rowDigits, rest := splitDigits(upper[1:])
	hasC := false
	colDigits := ""
	switch {
	case rest == "":
	case rest[0] == 'C':
		var tail string
		colDigits, tail = splitDigits(rest[1:])
		if tail != "" {
			return nil, false
		}
		hasC = true
	default:
		return nil, false
	}
	if !hasC && (rowDigits != "" || p.peek.Type != token.LBRACKET) {
		return nil, false
	}
	p.next() // identifier; committed from here on

	row := ast.Axis{Rel: true}
	if rowDigits != "" {
		n, err := strconv.Atoi(rowDigits)
		if err != nil || n < 1 || n > value.MaxRows {
			p.fail(p.cur.Offset, "row out of range")
			return nil, true
		}
		row = ast.Axis{N: int32(n - 1), Abs: true}
	}
	if !hasC {
		n, ok := p.bracketDisplacement()
		if !ok {
			return nil, true
		}
		row.N = n
		if p.cur.Type != token.IDENT || strings.ToUpper(p.cur.Lit)[0] != 'C' {
			p.fail(p.cur.Offset, "expected column part in R1C1 reference")
			return nil, true
		}
		var tail string
		colDigits, tail = splitDigits(strings.ToUpper(p.cur.Lit)[1:])
		if tail != "" {
			p.fail(p.cur.Offset, "malformed R1C1 reference")
			return nil, true
		}
		p.next()
	}
	col := ast.Axis{Rel: true}
	if colDigits != "" {
		n, err := strconv.Atoi(colDigits)
		if err != nil || n < 1 || n > value.MaxCols {
			p.fail(p.cur.Offset, "column out of range")
			return nil, true
		}
		col = ast.Axis{N: int32(n - 1), Abs: true}
	} else if p.cur.Type == token.LBRACKET {
		n, ok := p.bracketDisplacement()
		if !ok {
			return nil, true
		}
		col.N = n
	}
	return &ast.CellRef{Sheet: sheet, Row: row, Col: col}, true
}

func splitDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func (p *Parser) bracketDisplacement() (int32, bool) {
	p.next() // [
	neg := false
	if p.cur.Type == token.ITEM {
		lit := p.cur.Lit
		n, err := strconv.Atoi(lit)
		if err != nil {
			p.fail(p.cur.Offset, "malformed displacement")
			return 0, false
		}
		p.next()
		p.expect(token.RBRACKET)
		return int32(n), true
	}
	if p.cur.Type == token.MINUS {
		neg = true
		p.next()
	}
	if p.cur.Type != token.NUMBER {
		p.fail(p.cur.Offset, "malformed displacement")
		return 0, false
	}
	n, err := strconv.Atoi(p.cur.Lit)
	if err != nil {
		p.fail(p.cur.Offset, "malformed displacement")
		return 0, false
	}
	p.next()
	p.expect(token.RBRACKET)
	if neg {
		n = -n
	}
	return int32(n), true
}

func boolKeyword(s string) (bool, bool) {
	switch strings.ToUpper(s) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	}
	return false, false
}

func structItem(s string) (value.StructuredItem, bool) {
	switch strings.ToLower(s) {
	case "#all":
		return value.ItemAll, true
	case "#headers":
		return value.ItemHeaders, true
	case "#data":
		return value.ItemData, true
	case "#totals":
		return value.ItemTotals, true
	case "#this row":
		return value.ItemThisRow, true
	}
	return 0, false
}

// cellFromA1 converts a CELL token literal to a CellRef.
func cellFromA1(lit string) (*ast.CellRef, bool) {
	i := 0
	colAbs := false
	if i < len(lit) && lit[i] == '$' {
		colAbs = true
		i++
	}
	j := i
	for j < len(lit) && isLetter(lit[j]) {
		j++
	}
	col, ok := value.ParseColName(lit[i:j])
	if !ok {
		return nil, false
	}
	rowAbs := false
	if j < len(lit) && lit[j] == '$' {
		rowAbs = true
		j++
	}
	row, err := strconv.Atoi(lit[j:])
	if err != nil || row < 1 || row > value.MaxRows {
		return nil, false
	}
	return &ast.CellRef{
		Row: ast.Axis{N: int32(row - 1), Abs: rowAbs},
		Col: ast.Axis{N: int32(col), Abs: colAbs},
	}, true
}

// parseColAxis parses a column-span endpoint like C or $C.
func parseColAxis(lit string) (ast.Axis, bool) {
	abs := false
	if strings.HasPrefix(lit, "$") {
		abs = true
		lit = lit[1:]
	}
	col, ok := value.ParseColName(lit)
	if !ok {
		return ast.Axis{}, false
	}
	return ast.Axis{N: int32(col), Abs: abs}, true
}

// parseRowAxisIdent parses a row-span endpoint written as $7.
func parseRowAxisIdent(lit string) (ast.Axis, bool) {
	if !strings.HasPrefix(lit, "$") {
		return ast.Axis{}, false
	}
	n, err := strconv.Atoi(lit[1:])
	if err != nil || n < 1 || n > value.MaxRows {
		return ast.Axis{}, false
	}
	return ast.Axis{N: int32(n - 1), Abs: true}, true
}

func rowAxisFromNumber(f float64) (ast.Axis, bool) {
	n := int64(f)
	if float64(n) != f || n < 1 || n > value.MaxRows {
		return ast.Axis{}, false
	}
	return ast.Axis{N: int32(n - 1)}, true
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
