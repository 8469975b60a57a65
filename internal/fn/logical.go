package fn

import (
	"github.com/sheetkit/sheetkit/pkg/value"
)

func init() {
	register("TRUE", 0, 0, func(Context) value.Value { return value.Bool(true) })
	register("FALSE", 0, 0, func(Context) value.Value { return value.Bool(false) })
	register("NOT", 1, 1, fnNot)
	register("AND", 1, -1, junction(true))
	register("OR", 1, -1, junction(false))
	register("XOR", 1, -1, fnXor)
	register("IF", 2, 3, fnIf)
	register("IFS", 2, -1, fnIfs)
	register("IFERROR", 2, 2, fnIfError)
	register("IFNA", 2, 2, fnIfNA)
	register("SWITCH", 3, -1, fnSwitch)
	register("CHOOSE", 2, -1, fnChoose)
}

func fnNot(ctx Context) value.Value {
	v := ctx.Arg(0)
	if isArrayish(v) {
		arr, ek := ctx.Materialize(v)
		if ek != 0 {
			return value.Err(ek)
		}
		out := value.NewArray(arr.Rows, arr.Cols)
		for idx, cv := range arr.Cells {
			out.Cells[idx] = notOne(ctx, cv)
		}
		return value.ArrayVal(out)
	}
	return notOne(ctx, ctx.Scalar(0))
}

func notOne(ctx Context, v value.Value) value.Value {
	if v.IsError() {
		return v
	}
	b, ek := value.ToBool(v, ctx.Locale())
	if ek != 0 {
		return value.Err(ek)
	}
	return value.Bool(!b)
}

// junction folds AND/OR across every value of every argument. Text in
// references is ignored; direct text coerces or errors.
func junction(isAnd bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		acc, seen := isAnd, false
		for i := 0; i < ctx.ArgCount(); i++ {
			var errv value.Value
			ek := eachValue(ctx, i, func(cv value.Value) bool {
				switch cv.Kind {
				case value.KindError:
					errv = cv
					return false
				case value.KindBool:
					seen = true
					if isAnd {
						acc = acc && cv.B()
					} else {
						acc = acc || cv.B()
					}
				case value.KindNumber:
					seen = true
					b := cv.Num() != 0
					if isAnd {
						acc = acc && b
					} else {
						acc = acc || b
					}
				}
				return true
			})
			if ek != 0 {
				return value.Err(ek)
			}
			if errv.IsError() {
				return errv
			}
			if !isArrayish(ctx.Arg(i)) {
				if v := ctx.Arg(i); v.Kind == value.KindText {
					b, ek := value.ToBool(v, ctx.Locale())
					if ek != 0 {
						return value.Err(ek)
					}
					seen = true
					if isAnd {
						acc = acc && b
					} else {
						acc = acc || b
					}
				}
			}
		}
		if !seen {
			return value.Err(value.ErrValue)
		}
		return value.Bool(acc)
	}
}

func fnXor(ctx Context) value.Value {
	odd, seen := false, false
	for i := 0; i < ctx.ArgCount(); i++ {
		var errv value.Value
		ek := eachValue(ctx, i, func(cv value.Value) bool {
			switch cv.Kind {
			case value.KindError:
				errv = cv
				return false
			case value.KindBool:
				seen = true
				if cv.B() {
					odd = !odd
				}
			case value.KindNumber:
				seen = true
				if cv.Num() != 0 {
					odd = !odd
				}
			}
			return true
		})
		if ek != 0 {
			return value.Err(ek)
		}
		if errv.IsError() {
			return errv
		}
	}
	if !seen {
		return value.Err(value.ErrValue)
	}
	return value.Bool(odd)
}

// fnIf is the registry path for IF; the compiler lowers the common
// scalar shape to jumps and only emits a call for array conditions.
func fnIf(ctx Context) value.Value {
	cond := ctx.Arg(0)
	if isArrayish(cond) {
		return ifElementwise(ctx, cond)
	}
	b, errv, ok := BoolArg(ctx, 0)
	if !ok {
		return errv
	}
	if b {
		if ctx.ArgOmitted(1) {
			return value.Number(0)
		}
		return ctx.Arg(1)
	}
	if ctx.ArgCount() < 3 || ctx.ArgOmitted(2) {
		return value.Bool(false)
	}
	return ctx.Arg(2)
}

func ifElementwise(ctx Context, cond value.Value) value.Value {
	ca, ek := ctx.Materialize(cond)
	if ek != 0 {
		return value.Err(ek)
	}
	branch := func(i int, def value.Value) (*value.Array, value.Value) {
		if i >= ctx.ArgCount() || ctx.ArgOmitted(i) {
			a := value.NewArray(1, 1)
			a.Cells[0] = def
			return a, value.Value{}
		}
		arr, ek := ctx.Materialize(ctx.Arg(i))
		if ek != 0 {
			return nil, value.Err(ek)
		}
		return arr, value.Value{}
	}
	then, errv := branch(1, value.Number(0))
	if errv.IsError() {
		return errv
	}
	els, errv := branch(2, value.Bool(false))
	if errv.IsError() {
		return errv
	}
	rows, cols := value.BroadcastShape(ca.Rows, ca.Cols, then.Rows, then.Cols)
	rows, cols = value.BroadcastShape(rows, cols, els.Rows, els.Cols)
	out := value.NewArray(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cv := ca.BroadcastAt(r, c)
			if cv.IsError() {
				out.Set(r, c, cv)
				continue
			}
			b, ek := value.ToBool(cv, ctx.Locale())
			if ek != 0 {
				out.Set(r, c, value.Err(ek))
				continue
			}
			if b {
				out.Set(r, c, then.BroadcastAt(r, c))
			} else {
				out.Set(r, c, els.BroadcastAt(r, c))
			}
		}
	}
	return value.ArrayVal(out)
}

func fnIfs(ctx Context) value.Value {
	if ctx.ArgCount()%2 != 0 {
		return value.Err(value.ErrValue)
	}
	for i := 0; i < ctx.ArgCount(); i += 2 {
		b, errv, ok := BoolArg(ctx, i)
		if !ok {
			return errv
		}
		if b {
			return ctx.Arg(i + 1)
		}
	}
	return value.Err(value.ErrNA)
}

func fnIfError(ctx Context) value.Value {
	v := ctx.Scalar(0)
	if v.IsError() {
		return ctx.Arg(1)
	}
	return ctx.Arg(0)
}

func fnIfNA(ctx Context) value.Value {
	v := ctx.Scalar(0)
	if v.Kind == value.KindError && v.ErrKind() == value.ErrNA {
		return ctx.Arg(1)
	}
	return ctx.Arg(0)
}

func fnSwitch(ctx Context) value.Value {
	subject := ctx.Scalar(0)
	if subject.IsError() {
		return subject
	}
	n := ctx.ArgCount()
	pairs := (n - 1) / 2
	for i := 0; i < pairs; i++ {
		cand := ctx.Scalar(1 + 2*i)
		if cand.IsError() {
			return cand
		}
		if value.Equal(subject, cand) {
			return ctx.Arg(2 + 2*i)
		}
	}
	// odd trailing argument is the default
	if (n-1)%2 == 1 {
		return ctx.Arg(n - 1)
	}
	return value.Err(value.ErrNA)
}

func fnChoose(ctx Context) value.Value {
	k, errv, ok := IntArg(ctx, 0)
	if !ok {
		return errv
	}
	if k < 1 || k >= ctx.ArgCount() {
		return value.Err(value.ErrValue)
	}
	return ctx.Arg(k)
}
