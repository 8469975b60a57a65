package fn

import (
	"github.com/sheetkit/sheetkit/internal/ast"
	"github.com/sheetkit/sheetkit/internal/criteria"
	"github.com/sheetkit/sheetkit/internal/parser"
	"github.com/sheetkit/sheetkit/internal/token"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// arrayOrScalar collapses a 1x1 result back to its scalar.
func arrayOrScalar(a *value.Array) value.Value {
	if a.IsScalar() {
		return a.Cells[0]
	}
	return value.ArrayVal(a)
}

func init() {
	register("VLOOKUP", 3, 4, tableLookup(false))
	register("HLOOKUP", 3, 4, tableLookup(true))
	register("LOOKUP", 2, 3, fnLookup)
	register("MATCH", 2, 3, fnMatch)
	register("XMATCH", 2, 4, fnXMatch)
	register("XLOOKUP", 3, 6, fnXLookup)
	register("INDEX", 2, 3, fnIndex)
	register("ROW", 0, 1, positionFn(true))
	register("COLUMN", 0, 1, positionFn(false))
	register("ROWS", 1, 1, extentFn(true))
	register("COLUMNS", 1, 1, extentFn(false))
	register("AREAS", 1, 1, fnAreas)
	registerVolatile("OFFSET", 3, 5, fnOffset)
	registerVolatile("INDIRECT", 1, 2, fnIndirect)
}

// lookupEqual is the match rule shared by the lookup family: same-type
// comparison, case-insensitive text, wildcards when the needle has
// them.
func lookupEqual(needle, cand value.Value, wildcards bool) bool {
	if needle.Kind == value.KindText && cand.Kind == value.KindText {
		if wildcards && criteria.HasWildcard(needle.Text) {
			return criteria.WildcardMatch(needle.Text, cand.Text)
		}
		return value.TextEqualFold(needle.Text, cand.Text)
	}
	if needle.Kind != cand.Kind {
		return false
	}
	return value.Equal(needle, cand)
}

// lookupLess orders candidates for approximate matching; callers
// guard against mixed types first.
func lookupLess(a, b value.Value) bool {
	return value.Compare(a, b) < 0
}

func sameType(a, b value.Value) bool {
	if a.Kind == b.Kind {
		return true
	}
	return false
}

// approxScan finds the last candidate <= needle among same-type
// values, assuming ascending order. Returns -1 when nothing qualifies.
func approxScan(needle value.Value, at func(int) value.Value, n int) int {
	best := -1
	for i := 0; i < n; i++ {
		cand := at(i)
		if !sameType(needle, cand) {
			continue
		}
		if value.Compare(cand, needle) <= 0 {
			best = i
		}
	}
	return best
}

func exactScan(needle value.Value, at func(int) value.Value, n int) int {
	for i := 0; i < n; i++ {
		if lookupEqual(needle, at(i), true) {
			return i
		}
	}
	return -1
}

func tableLookup(horizontal bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		needle := ctx.Scalar(0)
		if needle.IsError() {
			return needle
		}
		table, ek := ctx.Materialize(ctx.Arg(1))
		if ek != 0 {
			return value.Err(ek)
		}
		idx, errv, ok := IntArg(ctx, 2)
		if !ok {
			return errv
		}
		approx := true
		if ctx.ArgCount() > 3 && !ctx.ArgOmitted(3) {
			b, errv, ok := BoolArg(ctx, 3)
			if !ok {
				return errv
			}
			approx = b
		}
		n := table.Rows
		if horizontal {
			n = table.Cols
		}
		keyAt := func(i int) value.Value {
			if horizontal {
				return table.At(0, i)
			}
			return table.At(i, 0)
		}
		var pos int
		if approx {
			pos = approxScan(needle, keyAt, n)
		} else {
			pos = exactScan(needle, keyAt, n)
		}
		if pos < 0 {
			return value.Err(value.ErrNA)
		}
		if idx < 1 {
			return value.Err(value.ErrValue)
		}
		if horizontal {
			if idx > table.Rows {
				return value.Err(value.ErrRef)
			}
			return table.At(idx-1, pos)
		}
		if idx > table.Cols {
			return value.Err(value.ErrRef)
		}
		return table.At(pos, idx-1)
	}
}

// fnLookup is the vector form: LOOKUP(value, lookup_vector,
// [result_vector]).
func fnLookup(ctx Context) value.Value {
	needle := ctx.Scalar(0)
	if needle.IsError() {
		return needle
	}
	vec, ek := ctx.Materialize(ctx.Arg(1))
	if ek != 0 {
		return value.Err(ek)
	}
	n := len(vec.Cells)
	pos := approxScan(needle, func(i int) value.Value { return vec.Cells[i] }, n)
	if pos < 0 {
		return value.Err(value.ErrNA)
	}
	if ctx.ArgCount() < 3 || ctx.ArgOmitted(2) {
		return vec.Cells[pos]
	}
	res, ek := ctx.Materialize(ctx.Arg(2))
	if ek != 0 {
		return value.Err(ek)
	}
	if pos >= len(res.Cells) {
		return value.Err(value.ErrRef)
	}
	return res.Cells[pos]
}

func fnMatch(ctx Context) value.Value {
	needle := ctx.Scalar(0)
	if needle.IsError() {
		return needle
	}
	vec, ek := ctx.Materialize(ctx.Arg(1))
	if ek != 0 {
		return value.Err(ek)
	}
	if vec.Rows != 1 && vec.Cols != 1 {
		return value.Err(value.ErrNA)
	}
	mode, errv, ok := NumberArgDefault(ctx, 2, 1)
	if !ok {
		return errv
	}
	n := len(vec.Cells)
	at := func(i int) value.Value { return vec.Cells[i] }
	var pos int
	switch {
	case mode == 0:
		pos = exactScan(needle, at, n)
	case mode > 0:
		pos = approxScan(needle, at, n)
	default:
		// descending order: last candidate >= needle
		pos = -1
		for i := 0; i < n; i++ {
			cand := at(i)
			if !sameType(needle, cand) {
				continue
			}
			if value.Compare(cand, needle) >= 0 {
				pos = i
			} else {
				break
			}
		}
	}
	if pos < 0 {
		return value.Err(value.ErrNA)
	}
	return value.Number(float64(pos + 1))
}

func fnXMatch(ctx Context) value.Value {
	pos, errv := xmatchPos(ctx, 1, 2, 3)
	if errv.IsError() {
		return errv
	}
	if pos < 0 {
		return value.Err(value.ErrNA)
	}
	return value.Number(float64(pos + 1))
}

// xmatchPos implements the shared XLOOKUP/XMATCH scan. Argument
// indices: vector, matchMode, searchMode.
func xmatchPos(ctx Context, vecArg, modeArg, searchArg int) (int, value.Value) {
	needle := ctx.Scalar(0)
	if needle.IsError() {
		return -1, needle
	}
	vec, ek := ctx.Materialize(ctx.Arg(vecArg))
	if ek != 0 {
		return -1, value.Err(ek)
	}
	mode, errv, ok := NumberArgDefault(ctx, modeArg, 0)
	if !ok {
		return -1, errv
	}
	search, errv, ok := NumberArgDefault(ctx, searchArg, 1)
	if !ok {
		return -1, errv
	}
	n := len(vec.Cells)
	order := make([]int, n)
	for i := range order {
		if search < 0 {
			order[i] = n - 1 - i
		} else {
			order[i] = i
		}
	}
	bestIdx := -1
	var bestVal value.Value
	for _, i := range order {
		cand := vec.Cells[i]
		wild := mode == 2
		if lookupEqual(needle, cand, wild) {
			return i, value.Value{}
		}
		if mode == 2 || mode == 0 || !sameType(needle, cand) {
			continue
		}
		c := value.Compare(cand, needle)
		if mode == -1 && c < 0 {
			// next smaller
			if bestIdx < 0 || lookupLess(bestVal, cand) {
				bestIdx, bestVal = i, cand
			}
		}
		if mode == 1 && c > 0 {
			// next larger
			if bestIdx < 0 || lookupLess(cand, bestVal) {
				bestIdx, bestVal = i, cand
			}
		}
	}
	return bestIdx, value.Value{}
}

func fnXLookup(ctx Context) value.Value {
	pos, errv := xmatchPos(ctx, 1, 4, 5)
	if errv.IsError() {
		return errv
	}
	if pos < 0 {
		if ctx.ArgCount() > 3 && !ctx.ArgOmitted(3) {
			return ctx.Arg(3)
		}
		return value.Err(value.ErrNA)
	}
	lookupVec, ek := ctx.Materialize(ctx.Arg(1))
	if ek != 0 {
		return value.Err(ek)
	}
	ret, ek := ctx.Materialize(ctx.Arg(2))
	if ek != 0 {
		return value.Err(ek)
	}
	// a column lookup vector picks a row of the return array and vice
	// versa
	if lookupVec.Cols == 1 && ret.Rows == len(lookupVec.Cells) {
		row := value.NewArray(1, ret.Cols)
		for c := 0; c < ret.Cols; c++ {
			row.Set(0, c, ret.At(pos, c))
		}
		return arrayOrScalar(row)
	}
	if lookupVec.Rows == 1 && ret.Cols == len(lookupVec.Cells) {
		col := value.NewArray(ret.Rows, 1)
		for r := 0; r < ret.Rows; r++ {
			col.Set(r, 0, ret.At(r, pos))
		}
		return arrayOrScalar(col)
	}
	if pos < len(ret.Cells) {
		return ret.Cells[pos]
	}
	return value.Err(value.ErrRef)
}

// fnIndex returns a sub-reference when the subject is a reference, so
// INDEX(A1:C3,2,2):D5 style ranges keep working.
func fnIndex(ctx Context) value.Value {
	subject := ctx.Arg(0)
	row, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	col := 0
	if ctx.ArgCount() > 2 && !ctx.ArgOmitted(2) {
		col, errv, ok = IntArg(ctx, 2)
		if !ok {
			return errv
		}
	}
	if row < 0 || col < 0 {
		return value.Err(value.ErrValue)
	}
	if subject.Kind == value.KindRef {
		r := subject.Ref()
		if r.SheetSpan() > 1 {
			return value.Err(value.ErrValue)
		}
		rows := int(r.Range.End.Row-r.Range.Start.Row) + 1
		cols := int(r.Range.End.Col-r.Range.Start.Col) + 1
		if row > rows || col > cols {
			return value.Err(value.ErrRef)
		}
		out := *r
		out.WholeCol, out.WholeRow = false, false
		if row > 0 {
			out.Range.Start.Row += uint32(row - 1)
			out.Range.End.Row = out.Range.Start.Row
		}
		if col > 0 {
			out.Range.Start.Col += uint32(col - 1)
			out.Range.End.Col = out.Range.Start.Col
		}
		return value.RefVal(out)
	}
	arr, ek := ctx.Materialize(subject)
	if ek != 0 {
		return value.Err(ek)
	}
	if row > arr.Rows || col > arr.Cols {
		return value.Err(value.ErrRef)
	}
	switch {
	case row == 0 && col == 0:
		return value.ArrayVal(arr)
	case row == 0:
		out := value.NewArray(arr.Rows, 1)
		for r := 0; r < arr.Rows; r++ {
			out.Set(r, 0, arr.At(r, col-1))
		}
		return arrayOrScalar(out)
	case col == 0:
		out := value.NewArray(1, arr.Cols)
		for c := 0; c < arr.Cols; c++ {
			out.Set(0, c, arr.At(row-1, c))
		}
		return arrayOrScalar(out)
	}
	return arr.At(row-1, col-1)
}

func positionFn(isRow bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		if ctx.ArgCount() == 0 || ctx.ArgOmitted(0) {
			if isRow {
				return value.Number(float64(ctx.Anchor().Addr.Row + 1))
			}
			return value.Number(float64(ctx.Anchor().Addr.Col + 1))
		}
		v := ctx.Arg(0)
		if v.Kind != value.KindRef {
			return value.Err(value.ErrValue)
		}
		r := v.Ref()
		start, end := r.Range.Start.Row, r.Range.End.Row
		if !isRow {
			start, end = r.Range.Start.Col, r.Range.End.Col
		}
		if start == end {
			return value.Number(float64(start + 1))
		}
		// a span yields a column (ROW) or row (COLUMN) of indices
		n := int(end-start) + 1
		var out *value.Array
		if isRow {
			out = value.NewArray(n, 1)
		} else {
			out = value.NewArray(1, n)
		}
		for i := 0; i < n; i++ {
			out.Cells[i] = value.Number(float64(start) + float64(i) + 1)
		}
		return value.ArrayVal(out)
	}
}

func extentFn(isRows bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		v := ctx.Arg(0)
		if v.Kind == value.KindRef {
			r := v.Ref()
			if isRows {
				if r.WholeCol {
					return value.Number(float64(value.MaxRows))
				}
				return value.Number(float64(r.Range.End.Row-r.Range.Start.Row) + 1)
			}
			if r.WholeRow {
				return value.Number(float64(value.MaxCols))
			}
			return value.Number(float64(r.Range.End.Col-r.Range.Start.Col) + 1)
		}
		arr, ek := ctx.Materialize(v)
		if ek != 0 {
			return value.Err(ek)
		}
		if isRows {
			return value.Number(float64(arr.Rows))
		}
		return value.Number(float64(arr.Cols))
	}
}

func fnAreas(ctx Context) value.Value {
	v := ctx.Arg(0)
	switch v.Kind {
	case value.KindRef:
		return value.Number(1)
	case value.KindRefUnion:
		return value.Number(float64(len(v.Union().Refs)))
	}
	return value.Err(value.ErrValue)
}

func fnOffset(ctx Context) value.Value {
	base := ctx.Arg(0)
	if base.Kind != value.KindRef {
		return value.Err(value.ErrValue)
	}
	dr, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	dc, errv, ok := IntArg(ctx, 2)
	if !ok {
		return errv
	}
	r := *base.Ref()
	if r.SheetSpan() > 1 {
		return value.Err(value.ErrValue)
	}
	height := int(r.Range.End.Row-r.Range.Start.Row) + 1
	width := int(r.Range.End.Col-r.Range.Start.Col) + 1
	if ctx.ArgCount() > 3 && !ctx.ArgOmitted(3) {
		height, errv, ok = IntArg(ctx, 3)
		if !ok {
			return errv
		}
	}
	if ctx.ArgCount() > 4 && !ctx.ArgOmitted(4) {
		width, errv, ok = IntArg(ctx, 4)
		if !ok {
			return errv
		}
	}
	if height < 1 || width < 1 {
		return value.Err(value.ErrRef)
	}
	startRow := int(r.Range.Start.Row) + dr
	startCol := int(r.Range.Start.Col) + dc
	endRow := startRow + height - 1
	endCol := startCol + width - 1
	if startRow < 0 || startCol < 0 || endRow >= value.MaxRows || endCol >= value.MaxCols {
		return value.Err(value.ErrRef)
	}
	r.Range = value.Range{
		Start: value.CellAddr{Row: uint32(startRow), Col: uint32(startCol)},
		End:   value.CellAddr{Row: uint32(endRow), Col: uint32(endCol)},
	}
	r.WholeCol, r.WholeRow = false, false
	return value.RefVal(r)
}

func fnIndirect(ctx Context) value.Value {
	text, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	mode := parser.ModeA1
	if ctx.ArgCount() > 1 && !ctx.ArgOmitted(1) {
		a1, errv, ok := BoolArg(ctx, 1)
		if !ok {
			return errv
		}
		if !a1 {
			mode = parser.ModeR1C1
		}
	}
	expr, err := parser.ParseMode(text, mode)
	if err != nil {
		return value.Err(value.ErrRef)
	}
	ref, ok2 := refFromExpr(ctx, expr)
	if !ok2 {
		return value.Err(value.ErrRef)
	}
	return value.RefVal(ref)
}

// refFromExpr interprets the small reference grammar INDIRECT accepts:
// one cell, one rectangle, or whole row/column spans, optionally sheet
// qualified.
func refFromExpr(ctx Context, expr ast.Expr) (value.Ref, bool) {
	anchor := ctx.Anchor()
	sheetOf := func(spec *ast.SheetSpec) (value.SheetID, bool) {
		if spec == nil {
			return anchor.Sheet, true
		}
		if spec.Book != "" || spec.Last != "" {
			return 0, false
		}
		return ctx.Resolver().SheetByName(spec.First)
	}
	axisVal := func(a ast.Axis, anchorN uint32) (uint32, bool) {
		if a.Rel {
			n := int64(anchorN) + int64(a.N)
			if n < 0 {
				return 0, false
			}
			return uint32(n), true
		}
		if a.N < 0 {
			return 0, false
		}
		return uint32(a.N), true
	}
	cellAddr := func(c *ast.CellRef) (value.CellAddr, bool) {
		row, ok1 := axisVal(c.Row, anchor.Addr.Row)
		col, ok2 := axisVal(c.Col, anchor.Addr.Col)
		if !ok1 || !ok2 || row >= value.MaxRows || col >= value.MaxCols {
			return value.CellAddr{}, false
		}
		return value.CellAddr{Row: row, Col: col}, true
	}

	switch n := expr.(type) {
	case *ast.CellRef:
		sid, ok := sheetOf(n.Sheet)
		if !ok {
			return value.Ref{}, false
		}
		addr, ok := cellAddr(n)
		if !ok {
			return value.Ref{}, false
		}
		return value.CellRef(value.CellKey{Sheet: sid, Addr: addr}), true
	case *ast.ColRange:
		sid, ok := sheetOf(n.Sheet)
		if !ok {
			return value.Ref{}, false
		}
		s, ok1 := axisVal(n.Start, anchor.Addr.Col)
		e, ok2 := axisVal(n.End, anchor.Addr.Col)
		if !ok1 || !ok2 || s >= value.MaxCols || e >= value.MaxCols {
			return value.Ref{}, false
		}
		ref := value.RangeRef(sid, value.Range{
			Start: value.CellAddr{Row: 0, Col: s},
			End:   value.CellAddr{Row: value.MaxRows - 1, Col: e},
		})
		ref.WholeCol = true
		return ref, true
	case *ast.RowRange:
		sid, ok := sheetOf(n.Sheet)
		if !ok {
			return value.Ref{}, false
		}
		s, ok1 := axisVal(n.Start, anchor.Addr.Row)
		e, ok2 := axisVal(n.End, anchor.Addr.Row)
		if !ok1 || !ok2 || s >= value.MaxRows || e >= value.MaxRows {
			return value.Ref{}, false
		}
		ref := value.RangeRef(sid, value.Range{
			Start: value.CellAddr{Row: s, Col: 0},
			End:   value.CellAddr{Row: e, Col: value.MaxCols - 1},
		})
		ref.WholeRow = true
		return ref, true
	case *ast.Binary:
		if n.Op != token.COLON {
			return value.Ref{}, false
		}
		x, okx := n.X.(*ast.CellRef)
		y, oky := n.Y.(*ast.CellRef)
		if !okx || !oky {
			return value.Ref{}, false
		}
		sid, ok := sheetOf(x.Sheet)
		if !ok {
			return value.Ref{}, false
		}
		a, ok1 := cellAddr(x)
		b, ok2 := cellAddr(y)
		if !ok1 || !ok2 {
			return value.Ref{}, false
		}
		rng := value.Range{Start: a, End: b}.Normalize()
		return value.RangeRef(sid, rng), true
	}
	return value.Ref{}, false
}
