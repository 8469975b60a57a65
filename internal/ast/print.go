package ast

import (
	"strconv"
	"strings"

	"github.com/sheetkit/sheetkit/pkg/value"
)

// Render turns a tree back into formula text (without the leading =).
// Parenthesization follows the tree shape, so parsing the output
// yields an equivalent tree.
func Render(e Expr) string {
	var sb strings.Builder
	render(&sb, e)
	return sb.String()
}

func render(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *NumberLit:
		sb.WriteString(strconv.FormatFloat(n.Val, 'g', -1, 64))
	case *StringLit:
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(n.Val, `"`, `""`))
		sb.WriteByte('"')
	case *BoolLit:
		if n.Val {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	case *ErrorLit:
		sb.WriteString(n.Kind.String())
	case *ArrayLit:
		sb.WriteByte('{')
		for r := 0; r < n.Rows; r++ {
			if r > 0 {
				sb.WriteByte(';')
			}
			for c := 0; c < n.Cols; c++ {
				if c > 0 {
					sb.WriteByte(',')
				}
				render(sb, n.Elems[r*n.Cols+c])
			}
		}
		sb.WriteByte('}')
	case *NameRef:
		sb.WriteString(n.Name)
	case *CellRef:
		renderSheet(sb, n.Sheet)
		if n.Row.Rel || n.Col.Rel {
			// R1C1 notation puts the row first
			renderAxisR1C1(sb, n.Row, 'R')
			renderAxisR1C1(sb, n.Col, 'C')
		} else {
			renderAxis(sb, n.Col, false)
			renderAxis(sb, n.Row, true)
		}
	case *ColRange:
		renderSheet(sb, n.Sheet)
		renderAxis(sb, n.Start, false)
		sb.WriteByte(':')
		renderAxis(sb, n.End, false)
	case *RowRange:
		renderSheet(sb, n.Sheet)
		renderAxis(sb, n.Start, true)
		sb.WriteByte(':')
		renderAxis(sb, n.End, true)
	case *StructRef:
		renderStruct(sb, n)
	case *Call:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			if a != nil {
				render(sb, a)
			}
		}
		sb.WriteByte(')')
	case *Invoke:
		render(sb, n.Callee)
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			if a != nil {
				render(sb, a)
			}
		}
		sb.WriteByte(')')
	case *Unary:
		sb.WriteString(n.Op.String())
		render(sb, n.X)
	case *Binary:
		render(sb, n.X)
		sb.WriteString(n.Op.String())
		render(sb, n.Y)
	case *Percent:
		render(sb, n.X)
		sb.WriteByte('%')
	case *Intersect:
		sb.WriteByte('@')
		render(sb, n.X)
	case *Paren:
		sb.WriteByte('(')
		render(sb, n.X)
		sb.WriteByte(')')
	}
}

func renderAxisR1C1(sb *strings.Builder, a Axis, letter byte) {
	sb.WriteByte(letter)
	if a.Rel {
		if a.N != 0 {
			sb.WriteByte('[')
			sb.WriteString(strconv.FormatInt(int64(a.N), 10))
			sb.WriteByte(']')
		}
		return
	}
	sb.WriteString(strconv.FormatInt(int64(a.N)+1, 10))
}

// renderAxis writes one A1 coordinate; row selects 1-based row digits
// vs column letters.
func renderAxis(sb *strings.Builder, a Axis, row bool) {
	if a.Abs {
		sb.WriteByte('$')
	}
	if row {
		sb.WriteString(strconv.FormatInt(int64(a.N)+1, 10))
	} else {
		sb.WriteString(value.ColName(uint32(a.N)))
	}
}

func renderSheet(sb *strings.Builder, s *SheetSpec) {
	if s == nil {
		return
	}
	if s.Book != "" {
		sb.WriteByte('[')
		sb.WriteString(s.Book)
		sb.WriteByte(']')
	}
	span := s.First
	if s.Last != "" {
		span = s.First + ":" + s.Last
	}
	if sheetNeedsQuotes(s.First) || (s.Last != "" && sheetNeedsQuotes(s.Last)) {
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(span, "'", "''"))
		sb.WriteByte('\'')
	} else {
		sb.WriteString(span)
	}
	sb.WriteByte('!')
}

func renderStruct(sb *strings.Builder, n *StructRef) {
	sb.WriteString(n.Table)
	item := ""
	switch n.Item {
	case value.ItemAll:
		item = "#All"
	case value.ItemHeaders:
		item = "#Headers"
	case value.ItemTotals:
		item = "#Totals"
	}
	switch {
	case n.Item == value.ItemThisRow && n.StartCol != "":
		sb.WriteString("[@")
		sb.WriteString(escapeColumn(n.StartCol))
		sb.WriteByte(']')
	case item == "" && n.StartCol != "" && n.EndCol == "":
		sb.WriteByte('[')
		sb.WriteString(escapeColumn(n.StartCol))
		sb.WriteByte(']')
	default:
		sb.WriteByte('[')
		first := true
		if item != "" {
			sb.WriteByte('[')
			sb.WriteString(item)
			sb.WriteByte(']')
			first = false
		}
		if n.StartCol != "" {
			if !first {
				sb.WriteByte(',')
			}
			sb.WriteByte('[')
			sb.WriteString(escapeColumn(n.StartCol))
			sb.WriteByte(']')
			if n.EndCol != "" {
				sb.WriteString(":[")
				sb.WriteString(escapeColumn(n.EndCol))
				sb.WriteByte(']')
			}
		}
		sb.WriteByte(']')
	}
}

func escapeColumn(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', ']', '\'', '#', '@':
			sb.WriteByte('\'')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// sheetNeedsQuotes reports whether a sheet name must be single-quoted
// in formula text: anything beyond letters, digits and underscores, a
// leading digit, or a name that would lex as a cell address.
func sheetNeedsQuotes(name string) bool {
	if name == "" {
		return true
	}
	if name[0] >= '0' && name[0] <= '9' {
		return true
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '_' || ch == '.':
		case ch >= 0x80:
		default:
			return true
		}
	}
	if _, ok := value.ParseA1(name); ok {
		return true
	}
	return false
}
