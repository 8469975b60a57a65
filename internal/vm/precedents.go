package vm

import (
	"github.com/sheetkit/sheetkit/internal/fn"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// ThreadSafe reports whether every reachable call site names a
// thread-safe builtin, so the cell may evaluate on any recalculation
// worker. Unknown functions count as safe; they evaluate to #NAME?.
func (p *Program) ThreadSafe() bool {
	for _, cs := range p.Calls {
		if s := fn.Lookup(cs.Name); s != nil && !s.ThreadSafe {
			return false
		}
		for _, a := range cs.Args {
			if a != nil && !a.ThreadSafe() {
				return false
			}
		}
	}
	for _, l := range p.Lambdas {
		if !l.Body.ThreadSafe() {
			return false
		}
	}
	return true
}

// EachRef reports every grid reference the program reads when
// evaluated at anchor, recursing through call arguments and lambda
// bodies. References that resolve out of bounds are skipped; the
// evaluator turns those into #REF! on its own. Dynamic references
// (INDIRECT, OFFSET) are not included, which is fine because the
// functions producing them are volatile.
func (p *Program) EachRef(anchor value.CellKey, f func(value.Ref)) {
	for _, r := range p.Refs {
		if ref, ok := refAt(r, anchor); ok {
			f(ref)
		}
	}
	for _, cs := range p.Calls {
		for _, a := range cs.Args {
			if a != nil {
				a.EachRef(anchor, f)
			}
		}
	}
	for _, l := range p.Lambdas {
		l.Body.EachRef(anchor, f)
	}
}

// EachStructured reports every structured table reference, recursing
// the same way as EachRef.
func (p *Program) EachStructured(f func(value.StructuredRef)) {
	for _, s := range p.Structs {
		f(s)
	}
	for _, cs := range p.Calls {
		for _, a := range cs.Args {
			if a != nil {
				a.EachStructured(f)
			}
		}
	}
	for _, l := range p.Lambdas {
		l.Body.EachStructured(f)
	}
}

func refAt(r RefOp, anchor value.CellKey) (value.Ref, bool) {
	sheet := anchor.Sheet
	sheetEnd := sheet
	if r.HasSheet {
		sheet = r.Sheet
		sheetEnd = r.SheetEnd
	}
	out := value.Ref{Sheet: sheet, SheetEnd: sheetEnd, WholeCol: r.WholeCol, WholeRow: r.WholeRow}
	aRow := int32(anchor.Addr.Row)
	aCol := int32(anchor.Addr.Col)

	switch {
	case r.WholeCol:
		c1, ok1 := resolveAxis(r.C1, aCol)
		c2, ok2 := resolveAxis(r.C2, aCol)
		if !ok1 || !ok2 || c1 >= value.MaxCols || c2 >= value.MaxCols {
			return value.Ref{}, false
		}
		out.Range = value.Range{
			Start: value.CellAddr{Row: 0, Col: uint32(c1)},
			End:   value.CellAddr{Row: value.MaxRows - 1, Col: uint32(c2)},
		}.Normalize()
	case r.WholeRow:
		r1, ok1 := resolveAxis(r.R1, aRow)
		r2, ok2 := resolveAxis(r.R2, aRow)
		if !ok1 || !ok2 || r1 >= value.MaxRows || r2 >= value.MaxRows {
			return value.Ref{}, false
		}
		out.Range = value.Range{
			Start: value.CellAddr{Row: uint32(r1), Col: 0},
			End:   value.CellAddr{Row: uint32(r2), Col: value.MaxCols - 1},
		}.Normalize()
	default:
		r1, ok1 := resolveAxis(r.R1, aRow)
		c1, ok2 := resolveAxis(r.C1, aCol)
		r2, ok3 := resolveAxis(r.R2, aRow)
		c2, ok4 := resolveAxis(r.C2, aCol)
		if !ok1 || !ok2 || !ok3 || !ok4 ||
			r1 >= value.MaxRows || r2 >= value.MaxRows ||
			c1 >= value.MaxCols || c2 >= value.MaxCols {
			return value.Ref{}, false
		}
		out.Range = value.Range{
			Start: value.CellAddr{Row: uint32(r1), Col: uint32(c1)},
			End:   value.CellAddr{Row: uint32(r2), Col: uint32(c2)},
		}.Normalize()
	}
	return out, true
}
