package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sheetkit/sheetkit/internal/ast"
	"github.com/sheetkit/sheetkit/internal/fn"
	"github.com/sheetkit/sheetkit/internal/token"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// SheetLookup resolves sheet names while compiling.
type SheetLookup interface {
	SheetByName(name string) (value.SheetID, bool)
}

// CompileError rejects a formula at entry time, before it reaches a
// cell.
type CompileError struct {
	Msg string
}

func (e *CompileError) Error() string { return "compile: " + e.Msg }

// Compile lowers a parsed formula to bytecode anchored at the given
// cell. Relative reference coordinates are stored as displacements
// from the anchor, so the same formula shape compiles to the same
// program everywhere.
func Compile(expr ast.Expr, anchor value.CellKey, sheets SheetLookup) (*Program, error) {
	c := &compiler{anchor: anchor, sheets: sheets, p: &Program{}}
	c.compile(expr)
	if c.err != nil {
		return nil, c.err
	}
	return c.p, nil
}

type compiler struct {
	anchor value.CellKey
	sheets SheetLookup
	p      *Program
	err    error
}

func (c *compiler) fail(format string, args ...any) {
	if c.err == nil {
		c.err = &CompileError{Msg: fmt.Sprintf(format, args...)}
	}
}

func (c *compiler) emit(op Op) {
	c.p.Code = append(c.p.Code, byte(op))
}

func (c *compiler) emitArg(op Op, idx int) {
	if idx > math.MaxUint16 {
		c.fail("formula too large")
		return
	}
	c.p.Code = append(c.p.Code, byte(op), 0, 0)
	binary.BigEndian.PutUint16(c.p.Code[len(c.p.Code)-2:], uint16(idx))
}

// emitJump emits a jump with a placeholder target and returns the
// patch position.
func (c *compiler) emitJump(op Op) int {
	c.emitArg(op, 0)
	return len(c.p.Code) - 2
}

func (c *compiler) patch(at int) {
	binary.BigEndian.PutUint16(c.p.Code[at:], uint16(len(c.p.Code)))
}

func (c *compiler) addConst(v value.Value) int {
	for i, have := range c.p.Consts {
		if have.Kind == v.Kind && have.Data == v.Data && have.Text == v.Text && have.Obj == nil && v.Obj == nil {
			return i
		}
	}
	c.p.Consts = append(c.p.Consts, v)
	return len(c.p.Consts) - 1
}

func (c *compiler) compile(e ast.Expr) {
	if c.err != nil {
		return
	}
	switch n := e.(type) {
	case *ast.NumberLit:
		c.emitArg(OpConst, c.addConst(value.Number(n.Val)))
	case *ast.StringLit:
		c.emitArg(OpConst, c.addConst(value.Text(n.Val)))
	case *ast.BoolLit:
		c.emitArg(OpConst, c.addConst(value.Bool(n.Val)))
	case *ast.ErrorLit:
		c.emitArg(OpConst, c.addConst(value.Err(n.Kind)))
	case *ast.ArrayLit:
		c.compileArrayLit(n)
	case *ast.NameRef:
		c.emitArg(OpLookup, c.addConst(value.Text(n.Name)))
	case *ast.CellRef:
		c.compileCellRef(n)
	case *ast.ColRange:
		c.compileColRange(n)
	case *ast.RowRange:
		c.compileRowRange(n)
	case *ast.StructRef:
		c.p.Structs = append(c.p.Structs, value.StructuredRef{
			Table: n.Table, Item: n.Item, StartCol: n.StartCol, EndCol: n.EndCol,
		})
		c.emitArg(OpStruct, len(c.p.Structs)-1)
	case *ast.Paren:
		c.compile(n.X)
	case *ast.Unary:
		c.compile(n.X)
		if n.Op == token.MINUS {
			c.emit(OpNeg)
		} else {
			c.emit(OpPlus)
		}
	case *ast.Percent:
		c.compile(n.X)
		c.emit(OpPercent)
	case *ast.Intersect:
		c.compile(n.X)
		c.emit(OpImplicit)
	case *ast.Binary:
		c.compile(n.X)
		c.compile(n.Y)
		op, ok := opForToken(n.Op)
		if !ok {
			c.fail("unsupported operator %s", n.Op)
			return
		}
		c.emit(op)
	case *ast.Call:
		c.compileCall(n)
	case *ast.Invoke:
		c.compile(n.Callee)
		site := c.makeCallSite("", n.Args)
		c.emitArg(OpApply, site)
	default:
		c.fail("cannot compile %T", e)
	}
}

// compileArrayLit folds a constant array literal into the pool.
func (c *compiler) compileArrayLit(n *ast.ArrayLit) {
	arr := value.NewArray(n.Rows, n.Cols)
	for i, el := range n.Elems {
		switch lit := el.(type) {
		case *ast.NumberLit:
			arr.Cells[i] = value.Number(lit.Val)
		case *ast.StringLit:
			arr.Cells[i] = value.Text(lit.Val)
		case *ast.BoolLit:
			arr.Cells[i] = value.Bool(lit.Val)
		case *ast.ErrorLit:
			arr.Cells[i] = value.Err(lit.Kind)
		default:
			c.fail("array literals allow only constants")
			return
		}
	}
	c.p.Consts = append(c.p.Consts, value.ArrayVal(arr))
	c.emitArg(OpConst, len(c.p.Consts)-1)
}

func (c *compiler) axisOp(a ast.Axis, anchorN int32) AxisOp {
	if a.Rel {
		return AxisOp{Disp: a.N}
	}
	if a.Abs {
		return AxisOp{Disp: a.N, Abs: true}
	}
	return AxisOp{Disp: a.N - anchorN}
}

// resolveSheetSpec maps a sheet qualifier onto ids. A missing sheet
// compiles to a #REF! constant push, mirroring what the grid shows
// after a sheet deletion.
func (c *compiler) resolveSheetSpec(s *ast.SheetSpec) (first, last value.SheetID, ok bool) {
	id, found := c.sheets.SheetByName(s.First)
	if !found {
		return 0, 0, false
	}
	first, last = id, id
	if s.Last != "" {
		id, found = c.sheets.SheetByName(s.Last)
		if !found {
			return 0, 0, false
		}
		last = id
	}
	if last < first {
		first, last = last, first
	}
	return first, last, true
}

func (c *compiler) emitBadRef() {
	c.emitArg(OpConst, c.addConst(value.Err(value.ErrRef)))
}

func (c *compiler) compileCellRef(n *ast.CellRef) {
	if n.Sheet != nil && n.Sheet.Book != "" {
		c.p.Externs = append(c.p.Externs, ExternOp{
			Book:  n.Sheet.Book,
			Sheet: n.Sheet.First,
			Row:   c.axisOp(n.Row, int32(c.anchor.Addr.Row)),
			Col:   c.axisOp(n.Col, int32(c.anchor.Addr.Col)),
		})
		c.emitArg(OpExtern, len(c.p.Externs)-1)
		return
	}
	op := RefOp{
		R1: c.axisOp(n.Row, int32(c.anchor.Addr.Row)),
		C1: c.axisOp(n.Col, int32(c.anchor.Addr.Col)),
	}
	op.R2, op.C2 = op.R1, op.C1
	if n.Sheet != nil {
		first, last, ok := c.resolveSheetSpec(n.Sheet)
		if !ok {
			c.emitBadRef()
			return
		}
		op.HasSheet = true
		op.Sheet, op.SheetEnd = first, last
	}
	c.p.Refs = append(c.p.Refs, op)
	c.emitArg(OpRef, len(c.p.Refs)-1)
}

func (c *compiler) compileColRange(n *ast.ColRange) {
	if n.Sheet != nil && n.Sheet.Book != "" {
		c.fail("external references must name a single cell")
		return
	}
	op := RefOp{
		WholeCol: true,
		C1:       c.axisOp(n.Start, int32(c.anchor.Addr.Col)),
		C2:       c.axisOp(n.End, int32(c.anchor.Addr.Col)),
	}
	if n.Sheet != nil {
		first, last, ok := c.resolveSheetSpec(n.Sheet)
		if !ok {
			c.emitBadRef()
			return
		}
		op.HasSheet = true
		op.Sheet, op.SheetEnd = first, last
	}
	c.p.Refs = append(c.p.Refs, op)
	c.emitArg(OpRef, len(c.p.Refs)-1)
}

func (c *compiler) compileRowRange(n *ast.RowRange) {
	if n.Sheet != nil && n.Sheet.Book != "" {
		c.fail("external references must name a single cell")
		return
	}
	op := RefOp{
		WholeRow: true,
		R1:       c.axisOp(n.Start, int32(c.anchor.Addr.Row)),
		R2:       c.axisOp(n.End, int32(c.anchor.Addr.Row)),
	}
	if n.Sheet != nil {
		first, last, ok := c.resolveSheetSpec(n.Sheet)
		if !ok {
			c.emitBadRef()
			return
		}
		op.HasSheet = true
		op.Sheet, op.SheetEnd = first, last
	}
	c.p.Refs = append(c.p.Refs, op)
	c.emitArg(OpRef, len(c.p.Refs)-1)
}

func (c *compiler) compileCall(n *ast.Call) {
	switch n.Name {
	case "LET":
		c.compileLet(n)
		return
	case "LAMBDA":
		c.compileLambda(n)
		return
	case "ISOMITTED":
		if len(n.Args) != 1 {
			c.fail("ISOMITTED takes exactly one parameter name")
			return
		}
		name, ok := n.Args[0].(*ast.NameRef)
		if !ok {
			c.fail("ISOMITTED requires a parameter name")
			return
		}
		c.emitArg(OpIsOmitted, c.addConst(value.Text(name.Name)))
		return
	case "IF":
		if len(n.Args) >= 2 && len(n.Args) <= 3 && scalarSafe(n.Args[0]) {
			c.compileIfJump(n)
			return
		}
	case "IFERROR", "IFNA":
		if len(n.Args) == 2 && scalarSafe(n.Args[0]) && n.Name == "IFERROR" {
			c.compileIfErrorJump(n)
			return
		}
	}

	spec := fn.Lookup(n.Name)
	if spec != nil {
		if len(n.Args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(n.Args) > spec.MaxArgs) {
			c.fail("%s: wrong number of arguments", n.Name)
			return
		}
		if spec.Volatile {
			c.p.Volatile = true
		}
	}
	site := c.makeCallSite(n.Name, n.Args)
	c.emitArg(OpCall, site)
}

func (c *compiler) makeCallSite(name string, args []ast.Expr) int {
	site := CallSite{Name: name, Args: make([]*Program, len(args))}
	for i, a := range args {
		if a == nil {
			continue
		}
		sub, err := Compile(a, c.anchor, c.sheets)
		if err != nil {
			if c.err == nil {
				c.err = err
			}
			return 0
		}
		if sub.Volatile {
			c.p.Volatile = true
		}
		site.Args[i] = sub
	}
	c.p.Calls = append(c.p.Calls, site)
	return len(c.p.Calls) - 1
}

// compileLet lowers LET inline: each binding value runs under the
// accumulated scope, then the body, then the frames pop.
func (c *compiler) compileLet(n *ast.Call) {
	if len(n.Args) < 3 || len(n.Args)%2 == 0 {
		c.fail("LET takes name/value pairs followed by a body")
		return
	}
	pairs := (len(n.Args) - 1) / 2
	for i := 0; i < pairs; i++ {
		name, ok := n.Args[2*i].(*ast.NameRef)
		if !ok {
			c.fail("LET binding %d is not a name", i+1)
			return
		}
		if n.Args[2*i+1] == nil {
			c.fail("LET binding %q has no value", name.Name)
			return
		}
		c.compile(n.Args[2*i+1])
		c.emitArg(OpBind, c.addConst(value.Text(name.Name)))
	}
	if n.Args[len(n.Args)-1] == nil {
		c.fail("LET has no body")
		return
	}
	c.compile(n.Args[len(n.Args)-1])
	c.emitArg(OpUnbind, pairs)
}

// compileLambda builds a LambdaDef whose body is its own program.
// Optional parameters are written [name] and arrive from the parser
// as bare bracketed columns.
func (c *compiler) compileLambda(n *ast.Call) {
	if len(n.Args) < 1 {
		c.fail("LAMBDA requires a body")
		return
	}
	def := LambdaDef{}
	for _, a := range n.Args[:len(n.Args)-1] {
		switch p := a.(type) {
		case *ast.NameRef:
			def.Params = append(def.Params, p.Name)
			def.Optional = append(def.Optional, false)
		case *ast.StructRef:
			if p.Table == "" && p.Item == value.ItemData && p.StartCol != "" && p.EndCol == "" {
				def.Params = append(def.Params, p.StartCol)
				def.Optional = append(def.Optional, true)
				continue
			}
			c.fail("LAMBDA parameter is not a name")
			return
		default:
			c.fail("LAMBDA parameter is not a name")
			return
		}
	}
	body := n.Args[len(n.Args)-1]
	if body == nil {
		c.fail("LAMBDA requires a body")
		return
	}
	sub, err := Compile(body, c.anchor, c.sheets)
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return
	}
	if sub.Volatile {
		c.p.Volatile = true
	}
	def.Body = sub
	c.p.Lambdas = append(c.p.Lambdas, def)
	c.emitArg(OpLambda, len(c.p.Lambdas)-1)
}

// compileIfJump lowers IF with a provably scalar condition to jumps,
// skipping the untaken branch entirely.
func (c *compiler) compileIfJump(n *ast.Call) {
	c.compile(n.Args[0])
	elseJump := c.emitJump(OpJumpIfFalsy)
	if n.Args[1] != nil {
		c.compile(n.Args[1])
	} else {
		c.emitArg(OpConst, c.addConst(value.Number(0)))
	}
	endJump := c.emitJump(OpJump)
	c.patch(elseJump)
	if len(n.Args) == 3 && n.Args[2] != nil {
		c.compile(n.Args[2])
	} else {
		c.emitArg(OpConst, c.addConst(value.Bool(false)))
	}
	c.patch(endJump)
}

// compileIfErrorJump lowers IFERROR with a scalar first argument: the
// fallback only runs when the value is an error.
func (c *compiler) compileIfErrorJump(n *ast.Call) {
	c.compile(n.Args[0])
	fallback := c.emitJump(OpJumpIfError)
	end := c.emitJump(OpJump)
	c.patch(fallback)
	c.emit(OpPop)
	if n.Args[1] != nil {
		c.compile(n.Args[1])
	} else {
		c.emitArg(OpConst, c.addConst(value.Blank()))
	}
	c.patch(end)
}

// scalarSafe reports whether an expression can only yield a scalar:
// literals and scalar operators over them. Anything touching the grid
// or a function may produce an array and must go through the lazy
// call path instead of jump lowering.
func scalarSafe(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.NumberLit, *ast.StringLit, *ast.BoolLit, *ast.ErrorLit:
		return true
	case *ast.Paren:
		return scalarSafe(n.X)
	case *ast.Unary:
		return scalarSafe(n.X)
	case *ast.Percent:
		return scalarSafe(n.X)
	case *ast.Binary:
		if n.Op == token.COLON || n.Op == token.COMMA {
			return false
		}
		return scalarSafe(n.X) && scalarSafe(n.Y)
	}
	return false
}
