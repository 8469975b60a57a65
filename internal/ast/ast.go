// Package ast defines the formula syntax tree produced by the parser
// and consumed by the compiler, plus a renderer that turns a tree back
// into formula text (used when rewriting formulas after sheet edits).
package ast

import (
	"github.com/sheetkit/sheetkit/internal/token"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// Expr is a formula expression node.
type Expr interface {
	exprNode()
}

// Axis is one coordinate of a cell reference. For A1 input N is the
// absolute zero-based index and Abs records the $ marker. For R1C1
// bracket form ([-2]) Rel is set and N is a displacement from the
// anchor cell; bare R1C1 numbers are absolute.
type Axis struct {
	N   int32
	Abs bool
	Rel bool
}

// SheetSpec is a reference's sheet qualifier. Book is set for external
// references ([Book.xlsx]Sheet1!A1); Last is set for 3-D spans
// (Sheet1:Sheet3!A1).
type SheetSpec struct {
	Book  string
	First string
	Last  string
}

type (
	// NumberLit is a numeric literal.
	NumberLit struct {
		Val float64
	}

	// StringLit is a double-quoted text literal.
	StringLit struct {
		Val string
	}

	// BoolLit is TRUE or FALSE.
	BoolLit struct {
		Val bool
	}

	// ErrorLit is an error literal like #REF!.
	ErrorLit struct {
		Kind value.ErrorKind
	}

	// ArrayLit is {1,2;3,4}: row-major elements, Rows x Cols.
	ArrayLit struct {
		Rows  int
		Cols  int
		Elems []Expr
	}

	// NameRef is a defined name, table name used bare, or lambda
	// parameter.
	NameRef struct {
		Name string
	}

	// CellRef is a single-cell reference, optionally sheet-qualified.
	CellRef struct {
		Sheet *SheetSpec
		Row   Axis
		Col   Axis
	}

	// ColRange is a whole-column span like A:C or $A:$A.
	ColRange struct {
		Sheet *SheetSpec
		Start Axis
		End   Axis
	}

	// RowRange is a whole-row span like 5:7.
	RowRange struct {
		Sheet *SheetSpec
		Start Axis
		End   Axis
	}

	// StructRef is a table (structured) reference.
	StructRef struct {
		Table    string
		Item     value.StructuredItem
		StartCol string
		EndCol   string
	}

	// Call is a function invocation. A nil element of Args is an
	// explicitly omitted argument, as in IF(A1,,2).
	Call struct {
		Name string
		Args []Expr
	}

	// Invoke applies a callable expression, as in LAMBDA(x,x+1)(5).
	Invoke struct {
		Callee Expr
		Args   []Expr
	}

	// Unary is prefix + or -.
	Unary struct {
		Op token.Type
		X  Expr
	}

	// Binary is an infix operation, including the range (:) and
	// union (,) operators.
	Binary struct {
		Op token.Type
		X  Expr
		Y  Expr
	}

	// Percent is the postfix % operator.
	Percent struct {
		X Expr
	}

	// Intersect is the @ implicit-intersection prefix.
	Intersect struct {
		X Expr
	}

	// Paren preserves explicit grouping. Union (,) is only legal
	// inside parentheses, so the parser keeps the node.
	Paren struct {
		X Expr
	}
)

func (*NumberLit) exprNode() {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*ErrorLit) exprNode()  {}
func (*ArrayLit) exprNode()  {}
func (*NameRef) exprNode()   {}
func (*CellRef) exprNode()   {}
func (*ColRange) exprNode()  {}
func (*RowRange) exprNode()  {}
func (*StructRef) exprNode() {}
func (*Call) exprNode()      {}
func (*Invoke) exprNode()    {}
func (*Unary) exprNode()     {}
func (*Binary) exprNode()    {}
func (*Percent) exprNode()   {}
func (*Intersect) exprNode() {}
func (*Paren) exprNode()     {}

// Walk calls fn for node and every descendant in depth-first order.
// fn returning false prunes the subtree.
func Walk(node Expr, fn func(Expr) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *ArrayLit:
		for _, e := range n.Elems {
			Walk(e, fn)
		}
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Invoke:
		Walk(n.Callee, fn)
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Unary:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *Percent:
		Walk(n.X, fn)
	case *Intersect:
		Walk(n.X, fn)
	case *Paren:
		Walk(n.X, fn)
	}
}

// SheetSpecs calls fn for every sheet qualifier in the tree. Rewrites
// through the returned pointer are visible to the renderer, which is
// how sheet renames propagate into stored formula text.
func SheetSpecs(node Expr, fn func(*SheetSpec)) {
	Walk(node, func(e Expr) bool {
		switch n := e.(type) {
		case *CellRef:
			if n.Sheet != nil {
				fn(n.Sheet)
			}
		case *ColRange:
			if n.Sheet != nil {
				fn(n.Sheet)
			}
		case *RowRange:
			if n.Sheet != nil {
				fn(n.Sheet)
			}
		}
		return true
	})
}
