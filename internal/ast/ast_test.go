package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sheetkit/sheetkit/internal/token"
)

func TestWalkVisitsAllNodes(t *testing.T) {
	tree := &Binary{
		Op: token.PLUS,
		X:  &Call{Name: "SUM", Args: []Expr{&CellRef{}, nil}},
		Y:  &Percent{X: &NumberLit{Val: 5}},
	}
	var n int
	Walk(tree, func(Expr) bool {
		n++
		return true
	})
	assert.Equal(t, 5, n)
}

func TestSheetSpecsRewrite(t *testing.T) {
	tree := &Binary{
		Op: token.AMP,
		X:  &CellRef{Sheet: &SheetSpec{First: "Old"}},
		Y:  &ColRange{Sheet: &SheetSpec{First: "Other"}},
	}
	SheetSpecs(tree, func(s *SheetSpec) {
		if s.First == "Old" {
			s.First = "New"
		}
	})
	assert.Equal(t, "New", tree.X.(*CellRef).Sheet.First)
	assert.Equal(t, "Other", tree.Y.(*ColRange).Sheet.First)
}

func TestRenderQuoting(t *testing.T) {
	r := Render(&CellRef{
		Sheet: &SheetSpec{First: "My Sheet"},
		Row:   Axis{N: 1},
		Col:   Axis{N: 1, Abs: true},
	})
	assert.Equal(t, "'My Sheet'!$B2", r)

	// a sheet named like a cell must be quoted
	r = Render(&CellRef{Sheet: &SheetSpec{First: "A1"}, Row: Axis{}, Col: Axis{}})
	assert.Equal(t, "'A1'!A1", r)

	r = Render(&StringLit{Val: `say "hi"`})
	assert.Equal(t, `"say ""hi"""`, r)
}

func TestRenderR1C1Axes(t *testing.T) {
	r := Render(&CellRef{Row: Axis{N: -2, Rel: true}, Col: Axis{N: 0, Rel: true}})
	assert.Equal(t, "R[-2]C", r)
}
