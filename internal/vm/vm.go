// Package vm compiles formula syntax trees to bytecode and evaluates
// them on a stack machine. Programs are structurally fingerprinted so
// one compilation is shared by every cell with the same formula shape.
package vm

import (
	"math"
	"math/rand"

	"github.com/sheetkit/sheetkit/internal/fn"
	"github.com/sheetkit/sheetkit/internal/locale"
	"github.com/sheetkit/sheetkit/internal/token"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// DefaultMaxCells caps how many cells a single reference may
// materialize into an array during one evaluation.
const DefaultMaxCells = 1 << 22

// maxCallDepth bounds lambda recursion.
const maxCallDepth = 512

// NameSource resolves workbook-defined names at evaluation time.
type NameSource interface {
	NamedValue(name string) (value.Value, bool)
}

// EvalContext carries everything one evaluation needs. It is cheap to
// copy per cell; the pointers inside are shared.
type EvalContext struct {
	Res       value.Resolver
	Ext       value.ExternalValueProvider
	Names     NameSource
	Loc       *locale.Locale
	DateSys   locale.DateSystem
	Anchor    value.CellKey
	NowSerial float64
	RandFn    func() float64
	MaxCells  int

	// NoImplicit disables implicit intersection for multi-cell
	// references in scalar positions; the explicit @ operator still
	// intersects. Fixed per workbook.
	NoImplicit bool

	depth int
}

func (c *EvalContext) maxCells() int {
	if c.MaxCells <= 0 {
		return DefaultMaxCells
	}
	return c.MaxCells
}

func (c *EvalContext) rand() float64 {
	if c.RandFn == nil {
		return rand.Float64()
	}
	return c.RandFn()
}

// omittedMarker is what omitted optional lambda parameters are bound
// to; it behaves as a blank everywhere except ISOMITTED.
var omittedMarker = value.Value{Kind: value.KindBlank, Data: 1}

// Run evaluates a compiled program.
func Run(p *Program, ctx *EvalContext) value.Value {
	m := &machine{ctx: ctx}
	return m.exec(p, nil)
}

type machine struct {
	ctx   *EvalContext
	stack []value.Value
}

func (m *machine) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *machine) pop() value.Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *machine) exec(p *Program, env *value.Env) value.Value {
	base := len(m.stack)
	ip := 0
	for ip < len(p.Code) {
		op := Op(p.Code[ip])
		ip++
		var arg int
		if op.hasOperand() {
			arg = p.operand(ip)
			ip += 2
		}
		switch op {
		case OpConst:
			m.push(p.Consts[arg])
		case OpRef:
			m.push(m.resolveRef(p.Refs[arg]))
		case OpStruct:
			s := p.Structs[arg]
			ref, ok := m.ctx.Res.ResolveStructured(m.ctx.Anchor, &s)
			if !ok {
				m.push(value.Err(value.ErrRef))
			} else {
				m.push(value.RefVal(ref))
			}
		case OpExtern:
			m.push(m.resolveExtern(p.Externs[arg]))
		case OpRange:
			b := m.pop()
			a := m.pop()
			m.push(m.rangeJoin(a, b))
		case OpUnion:
			b := m.pop()
			a := m.pop()
			m.push(unionJoin(a, b))
		case OpImplicit:
			m.push(m.implicitIntersect(m.pop()))
		case OpNeg, OpPlus, OpPercent:
			m.push(m.unary(op, m.pop()))
		case OpAdd, OpSub, OpMul, OpDiv, OpPow, OpConcat,
			OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			b := m.pop()
			a := m.pop()
			m.push(m.binary(op, a, b))
		case OpCall:
			m.push(m.call(&p.Calls[arg], env))
		case OpApply:
			callee := m.pop()
			m.push(m.apply(callee, &p.Calls[arg], env))
		case OpLambda:
			def := &p.Lambdas[arg]
			m.push(value.LambdaVal(&value.Lambda{
				Params:   def.Params,
				Optional: def.Optional,
				Body:     def.Body,
				Env:      env,
			}))
		case OpBind:
			env = env.Bind(p.Consts[arg].Text, m.pop())
		case OpUnbind:
			env = unbind(env, arg)
		case OpLookup:
			m.push(m.lookup(env, p.Consts[arg].Text))
		case OpIsOmitted:
			v, ok := env.Lookup(p.Consts[arg].Text)
			if !ok {
				m.push(value.Err(value.ErrName))
			} else {
				m.push(value.Bool(v == omittedMarker))
			}
		case OpJump:
			ip = arg
		case OpJumpIfFalsy:
			cond := m.pop()
			if cond.IsError() {
				m.stack = m.stack[:base]
				return cond
			}
			b, ek := value.ToBool(cond, m.ctx.Loc)
			if ek != 0 {
				m.stack = m.stack[:base]
				return value.Err(ek)
			}
			if !b {
				ip = arg
			}
		case OpJumpIfError:
			if m.stack[len(m.stack)-1].IsError() {
				ip = arg
			}
		case OpPop:
			m.pop()
		}
	}
	if len(m.stack) == base {
		return value.Err(value.ErrCalc)
	}
	out := m.pop()
	m.stack = m.stack[:base]
	return out
}

func unbind(env *value.Env, n int) *value.Env {
	for i := 0; i < n && env != nil; i++ {
		env = env.Parent()
	}
	return env
}

func (m *machine) lookup(env *value.Env, name string) value.Value {
	if v, ok := env.Lookup(name); ok {
		return v
	}
	if m.ctx.Names != nil {
		if v, ok := m.ctx.Names.NamedValue(name); ok {
			return v
		}
	}
	return value.Err(value.ErrName)
}

// resolveRef turns a compiled reference into a concrete one, applying
// the anchor to relative coordinates.
func (m *machine) resolveRef(r RefOp) value.Value {
	sheet := m.ctx.Anchor.Sheet
	sheetEnd := sheet
	if r.HasSheet {
		sheet = r.Sheet
		sheetEnd = r.SheetEnd
	}
	out := value.Ref{Sheet: sheet, SheetEnd: sheetEnd, WholeCol: r.WholeCol, WholeRow: r.WholeRow}
	aRow := int32(m.ctx.Anchor.Addr.Row)
	aCol := int32(m.ctx.Anchor.Addr.Col)

	switch {
	case r.WholeCol:
		c1, ok1 := resolveAxis(r.C1, aCol)
		c2, ok2 := resolveAxis(r.C2, aCol)
		if !ok1 || !ok2 || c1 >= value.MaxCols || c2 >= value.MaxCols {
			return value.Err(value.ErrRef)
		}
		out.Range = value.Range{
			Start: value.CellAddr{Row: 0, Col: uint32(c1)},
			End:   value.CellAddr{Row: value.MaxRows - 1, Col: uint32(c2)},
		}.Normalize()
	case r.WholeRow:
		r1, ok1 := resolveAxis(r.R1, aRow)
		r2, ok2 := resolveAxis(r.R2, aRow)
		if !ok1 || !ok2 || r1 >= value.MaxRows || r2 >= value.MaxRows {
			return value.Err(value.ErrRef)
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
			return value.Err(value.ErrRef)
		}
		out.Range = value.Range{
			Start: value.CellAddr{Row: uint32(r1), Col: uint32(c1)},
			End:   value.CellAddr{Row: uint32(r2), Col: uint32(c2)},
		}.Normalize()
	}
	if !m.ctx.Res.SheetExists(out.Sheet) || !m.ctx.Res.SheetExists(out.SheetEnd) {
		return value.Err(value.ErrRef)
	}
	return value.RefVal(out)
}

func (m *machine) resolveExtern(e ExternOp) value.Value {
	if m.ctx.Ext == nil {
		return value.Err(value.ErrRef)
	}
	row, ok1 := resolveAxis(e.Row, int32(m.ctx.Anchor.Addr.Row))
	col, ok2 := resolveAxis(e.Col, int32(m.ctx.Anchor.Addr.Col))
	if !ok1 || !ok2 || row >= value.MaxRows || col >= value.MaxCols {
		return value.Err(value.ErrRef)
	}
	v, ok := m.ctx.Ext.ExternalValue(e.Book, e.Sheet, value.CellAddr{Row: uint32(row), Col: uint32(col)})
	if !ok {
		return value.Err(value.ErrRef)
	}
	return v
}

// rangeJoin implements the : operator over arbitrary reference
// operands, e.g. A1:INDEX(...).
func (m *machine) rangeJoin(a, b value.Value) value.Value {
	if a.IsError() {
		return a
	}
	if b.IsError() {
		return b
	}
	if a.Kind != value.KindRef || b.Kind != value.KindRef {
		return value.Err(value.ErrValue)
	}
	ra, rb := a.Ref(), b.Ref()
	out := value.Ref{
		Sheet:    minSheet(ra.Sheet, rb.Sheet),
		SheetEnd: maxSheet(ra.SheetEnd, rb.SheetEnd),
	}
	out.Range = value.Range{
		Start: value.CellAddr{
			Row: minU32(ra.Range.Start.Row, rb.Range.Start.Row),
			Col: minU32(ra.Range.Start.Col, rb.Range.Start.Col),
		},
		End: value.CellAddr{
			Row: maxU32(ra.Range.End.Row, rb.Range.End.Row),
			Col: maxU32(ra.Range.End.Col, rb.Range.End.Col),
		},
	}
	out.WholeCol = ra.WholeCol && rb.WholeCol
	out.WholeRow = ra.WholeRow && rb.WholeRow
	return value.RefVal(out)
}

func unionJoin(a, b value.Value) value.Value {
	if a.IsError() {
		return a
	}
	if b.IsError() {
		return b
	}
	var refs []value.Ref
	for _, v := range []value.Value{a, b} {
		switch v.Kind {
		case value.KindRef:
			refs = append(refs, *v.Ref())
		case value.KindRefUnion:
			refs = append(refs, v.Union().Refs...)
		default:
			return value.Err(value.ErrValue)
		}
	}
	return value.UnionVal(&value.RefUnion{Refs: refs})
}

// implicitIntersect applies the @ operator: pick the single value a
// range contributes at the anchor position.
func (m *machine) implicitIntersect(v value.Value) value.Value {
	switch v.Kind {
	case value.KindRef:
		r := v.Ref()
		if r.SheetSpan() > 1 {
			return value.Err(value.ErrValue)
		}
		if r.SingleCell() {
			return m.ctx.Res.CellValue(r.Sheet, r.Range.Start)
		}
		a := m.ctx.Anchor.Addr
		rng := r.Range
		if rng.Start.Col == rng.End.Col && a.Row >= rng.Start.Row && a.Row <= rng.End.Row {
			return m.ctx.Res.CellValue(r.Sheet, value.CellAddr{Row: a.Row, Col: rng.Start.Col})
		}
		if rng.Start.Row == rng.End.Row && a.Col >= rng.Start.Col && a.Col <= rng.End.Col {
			return m.ctx.Res.CellValue(r.Sheet, value.CellAddr{Row: rng.Start.Row, Col: a.Col})
		}
		return value.Err(value.ErrValue)
	case value.KindArray:
		return v.Array().At(0, 0)
	case value.KindRefUnion:
		return value.Err(value.ErrValue)
	}
	return v
}

// deref prepares an operand for a scalar/array operator: single-cell
// references load the cell, larger ones materialize into arrays.
func (m *machine) deref(v value.Value) value.Value {
	switch v.Kind {
	case value.KindRef:
		r := v.Ref()
		if r.SheetSpan() > 1 {
			return value.Err(value.ErrValue)
		}
		if r.SingleCell() {
			return m.ctx.Res.CellValue(r.Sheet, r.Range.Start)
		}
		arr, ek := m.materialize(r)
		if ek != 0 {
			return value.Err(ek)
		}
		return value.ArrayVal(arr)
	case value.KindRefUnion, value.KindLambda:
		return value.Err(value.ErrValue)
	}
	return v
}

// materialize reads a single-sheet reference into an array, clamping
// whole-row/column spans to the sheet's used extent.
func (m *machine) materialize(r *value.Ref) (*value.Array, value.ErrorKind) {
	rng := m.clampRange(r)
	rows, cols := rng.Rows(), rng.Cols()
	if rows*cols > m.ctx.maxCells() {
		return nil, value.ErrCalc
	}
	out := value.NewArray(rows, cols)
	for ri := 0; ri < rows; ri++ {
		for ci := 0; ci < cols; ci++ {
			out.Set(ri, ci, m.ctx.Res.CellValue(r.Sheet, value.CellAddr{
				Row: rng.Start.Row + uint32(ri),
				Col: rng.Start.Col + uint32(ci),
			}))
		}
	}
	return out, 0
}

func (m *machine) clampRange(r *value.Ref) value.Range {
	rng := r.Range
	if r.WholeCol || r.WholeRow {
		usedRows, usedCols := m.ctx.Res.SheetDimensions(r.Sheet)
		if r.WholeCol && usedRows > 0 {
			rng.End.Row = minU32(rng.End.Row, uint32(usedRows-1))
		}
		if r.WholeRow && usedCols > 0 {
			rng.End.Col = minU32(rng.End.Col, uint32(usedCols-1))
		}
		if usedRows == 0 && r.WholeCol {
			rng.End.Row = rng.Start.Row
		}
		if usedCols == 0 && r.WholeRow {
			rng.End.Col = rng.Start.Col
		}
	}
	return rng
}

func (m *machine) unary(op Op, v value.Value) value.Value {
	v = m.deref(v)
	if v.IsError() {
		return v
	}
	if v.Kind == value.KindArray {
		in := v.Array()
		out := value.NewArray(in.Rows, in.Cols)
		for i, cv := range in.Cells {
			out.Cells[i] = m.scalarUnary(op, cv)
		}
		return value.ArrayVal(out)
	}
	return m.scalarUnary(op, v)
}

func (m *machine) scalarUnary(op Op, v value.Value) value.Value {
	if v.IsError() {
		return v
	}
	switch op {
	case OpPlus:
		// unary + passes its operand through unchanged
		return v
	case OpNeg:
		f, ek := value.ToNumber(v, m.ctx.Loc, m.ctx.DateSys)
		if ek != 0 {
			return value.Err(ek)
		}
		return value.Number(-f)
	case OpPercent:
		f, ek := value.ToNumber(v, m.ctx.Loc, m.ctx.DateSys)
		if ek != 0 {
			return value.Err(ek)
		}
		return value.CheckNumber(f / 100)
	}
	return value.Err(value.ErrValue)
}

func (m *machine) binary(op Op, a, b value.Value) value.Value {
	a = m.deref(a)
	b = m.deref(b)
	if a.Kind == value.KindArray || b.Kind == value.KindArray {
		return m.broadcast(op, a, b)
	}
	return m.scalarBinary(op, a, b)
}

func (m *machine) broadcast(op Op, a, b value.Value) value.Value {
	if a.IsError() {
		return a
	}
	if b.IsError() {
		return b
	}
	aa, ba := value.Scalarize(a), value.Scalarize(b)
	if a.Kind == value.KindArray {
		aa = a.Array()
	}
	if b.Kind == value.KindArray {
		ba = b.Array()
	}
	rows, cols := value.BroadcastShape(aa.Rows, aa.Cols, ba.Rows, ba.Cols)
	if rows*cols > m.ctx.maxCells() {
		return value.Err(value.ErrCalc)
	}
	out := value.NewArray(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, m.scalarBinary(op, aa.BroadcastAt(r, c), ba.BroadcastAt(r, c)))
		}
	}
	if rows == 1 && cols == 1 {
		return out.At(0, 0)
	}
	return value.ArrayVal(out)
}

func (m *machine) scalarBinary(op Op, a, b value.Value) value.Value {
	if a.IsError() {
		return a
	}
	if b.IsError() {
		return b
	}
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow:
		x, ek := value.ToNumber(a, m.ctx.Loc, m.ctx.DateSys)
		if ek != 0 {
			return value.Err(ek)
		}
		y, ek := value.ToNumber(b, m.ctx.Loc, m.ctx.DateSys)
		if ek != 0 {
			return value.Err(ek)
		}
		return arith(op, x, y)
	case OpConcat:
		x, ek := value.ToText(a)
		if ek != 0 {
			return value.Err(ek)
		}
		y, ek := value.ToText(b)
		if ek != 0 {
			return value.Err(ek)
		}
		return value.Text(x + y)
	case OpEq:
		return value.Bool(value.Equal(a, b))
	case OpNe:
		return value.Bool(!value.Equal(a, b))
	case OpLt:
		return value.Bool(value.Compare(a, b) < 0)
	case OpLe:
		return value.Bool(value.Compare(a, b) <= 0)
	case OpGt:
		return value.Bool(value.Compare(a, b) > 0)
	case OpGe:
		return value.Bool(value.Compare(a, b) >= 0)
	}
	return value.Err(value.ErrValue)
}

func arith(op Op, x, y float64) value.Value {
	switch op {
	case OpAdd:
		return value.CheckNumber(x + y)
	case OpSub:
		return value.CheckNumber(x - y)
	case OpMul:
		return value.CheckNumber(x * y)
	case OpDiv:
		if y == 0 {
			return value.Err(value.ErrDiv0)
		}
		return value.CheckNumber(x / y)
	case OpPow:
		if x == 0 && y == 0 {
			return value.Err(value.ErrNum)
		}
		if x == 0 && y < 0 {
			return value.Err(value.ErrDiv0)
		}
		if x < 0 && y != math.Trunc(y) {
			return value.Err(value.ErrNum)
		}
		return value.CheckNumber(math.Pow(x, y))
	}
	return value.Err(value.ErrValue)
}

func minSheet(a, b value.SheetID) value.SheetID {
	if a < b {
		return a
	}
	return b
}

func maxSheet(a, b value.SheetID) value.SheetID {
	if a > b {
		return a
	}
	return b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// call dispatches a call site through the registry.
func (m *machine) call(site *CallSite, env *value.Env) value.Value {
	spec := fn.Lookup(site.Name)
	if spec == nil {
		return value.Err(value.ErrName)
	}
	if len(site.Args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(site.Args) > spec.MaxArgs) {
		return value.Err(value.ErrValue)
	}
	cc := &callCtx{m: m, site: site, env: env,
		vals: make([]value.Value, len(site.Args)),
		done: make([]bool, len(site.Args)),
	}
	return spec.Fn(cc)
}

// callCtx implements fn.Context for one invocation.
type callCtx struct {
	m    *machine
	site *CallSite
	env  *value.Env
	vals []value.Value
	done []bool
}

func (c *callCtx) ArgCount() int { return len(c.site.Args) }

func (c *callCtx) ArgOmitted(i int) bool {
	return i >= len(c.site.Args) || c.site.Args[i] == nil
}

func (c *callCtx) Arg(i int) value.Value {
	if i < 0 || i >= len(c.site.Args) {
		return value.Err(value.ErrValue)
	}
	if !c.done[i] {
		if c.site.Args[i] == nil {
			c.vals[i] = value.Blank()
		} else {
			sub := &machine{ctx: c.m.ctx}
			c.vals[i] = sub.exec(c.site.Args[i], c.env)
		}
		c.done[i] = true
	}
	return c.vals[i]
}

func (c *callCtx) Scalar(i int) value.Value {
	v := c.Arg(i)
	switch v.Kind {
	case value.KindRef:
		if c.m.ctx.NoImplicit && !v.Ref().SingleCell() {
			return value.Err(value.ErrValue)
		}
		return c.m.implicitIntersect(v)
	case value.KindArray:
		return v.Array().At(0, 0)
	}
	return v
}

func (c *callCtx) Materialize(v value.Value) (*value.Array, value.ErrorKind) {
	switch v.Kind {
	case value.KindArray:
		return v.Array(), 0
	case value.KindRef:
		r := v.Ref()
		if r.SheetSpan() > 1 {
			return nil, value.ErrValue
		}
		return c.m.materialize(r)
	case value.KindError:
		return nil, v.ErrKind()
	case value.KindRefUnion, value.KindLambda:
		return nil, value.ErrValue
	}
	return value.Scalarize(v), 0
}

func (c *callCtx) EachRefCell(r *value.Ref, f func(value.Value) bool) value.ErrorKind {
	for sid := r.Sheet; sid <= r.SheetEnd; sid++ {
		if !c.m.ctx.Res.SheetExists(sid) {
			return value.ErrRef
		}
		single := value.Ref{Sheet: sid, SheetEnd: sid, Range: r.Range,
			WholeCol: r.WholeCol, WholeRow: r.WholeRow}
		rng := c.m.clampRange(&single)
		for row := rng.Start.Row; row <= rng.End.Row; row++ {
			for col := rng.Start.Col; col <= rng.End.Col; col++ {
				if !f(c.m.ctx.Res.CellValue(sid, value.CellAddr{Row: row, Col: col})) {
					return 0
				}
			}
		}
	}
	return 0
}

func (c *callCtx) Resolver() value.Resolver       { return c.m.ctx.Res }
func (c *callCtx) Locale() *locale.Locale         { return c.m.ctx.Loc }
func (c *callCtx) DateSystem() locale.DateSystem  { return c.m.ctx.DateSys }
func (c *callCtx) Anchor() value.CellKey          { return c.m.ctx.Anchor }
func (c *callCtx) Now() float64                   { return c.m.ctx.NowSerial }
func (c *callCtx) Rand() float64                  { return c.m.ctx.rand() }

func (c *callCtx) CallLambda(l *value.Lambda, args []value.Value) value.Value {
	return c.m.callLambda(l, args)
}

func (m *machine) callLambda(l *value.Lambda, args []value.Value) value.Value {
	body, ok := l.Body.(*Program)
	if !ok {
		return value.Err(value.ErrCalc)
	}
	if len(args) > len(l.Params) {
		return value.Err(value.ErrValue)
	}
	env := l.Env
	for i, name := range l.Params {
		switch {
		case i < len(args):
			env = env.Bind(name, args[i])
		case i < len(l.Optional) && l.Optional[i]:
			env = env.Bind(name, omittedMarker)
		default:
			return value.Err(value.ErrValue)
		}
	}
	if m.ctx.depth >= maxCallDepth {
		return value.Err(value.ErrNum)
	}
	m.ctx.depth++
	sub := &machine{ctx: m.ctx}
	out := sub.exec(body, env)
	m.ctx.depth--
	return out
}

// apply evaluates a direct application of a lambda expression.
func (m *machine) apply(callee value.Value, site *CallSite, env *value.Env) value.Value {
	if callee.IsError() {
		return callee
	}
	if callee.Kind != value.KindLambda {
		return value.Err(value.ErrValue)
	}
	args := make([]value.Value, len(site.Args))
	for i, ap := range site.Args {
		if ap == nil {
			args[i] = omittedMarker
			continue
		}
		sub := &machine{ctx: m.ctx}
		args[i] = sub.exec(ap, env)
	}
	return m.callLambda(callee.Lambda(), args)
}

// opForToken maps a binary operator token to its opcode.
func opForToken(t token.Type) (Op, bool) {
	switch t {
	case token.PLUS:
		return OpAdd, true
	case token.MINUS:
		return OpSub, true
	case token.STAR:
		return OpMul, true
	case token.SLASH:
		return OpDiv, true
	case token.CARET:
		return OpPow, true
	case token.AMP:
		return OpConcat, true
	case token.EQ:
		return OpEq, true
	case token.NE:
		return OpNe, true
	case token.LT:
		return OpLt, true
	case token.LE:
		return OpLe, true
	case token.GT:
		return OpGt, true
	case token.GE:
		return OpGe, true
	case token.COLON:
		return OpRange, true
	case token.COMMA:
		return OpUnion, true
	}
	return 0, false
}
