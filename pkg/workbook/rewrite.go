package workbook

import (
	"strings"

	"github.com/sheetkit/sheetkit/internal/ast"
	"github.com/sheetkit/sheetkit/internal/parser"
)

// rewriteSheetName re-renders a formula with a sheet qualifier
// renamed. Unparseable text is returned untouched.
func rewriteSheetName(src, oldName, newName string) string {
	expr, err := parser.Parse(src)
	if err != nil {
		return src
	}
	changed := false
	ast.SheetSpecs(expr, func(s *ast.SheetSpec) {
		// external-book qualifiers name sheets of another workbook
		if s.Book != "" {
			return
		}
		if strings.EqualFold(s.First, oldName) {
			s.First = newName
			changed = true
		}
		if strings.EqualFold(s.Last, oldName) {
			s.Last = newName
			changed = true
		}
	})
	if !changed {
		return src
	}
	return ast.Render(expr)
}
