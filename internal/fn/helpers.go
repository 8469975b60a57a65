package fn

import (
	"github.com/sheetkit/sheetkit/pkg/value"
)

// numeric1 registers a one-argument numeric function, lifted
// elementwise over array and range arguments.
func numeric1(name string, f func(float64) (float64, value.ErrorKind)) {
	register(name, 1, 1, func(ctx Context) value.Value {
		return liftNumeric1(ctx, 0, f)
	})
}

func liftNumeric1(ctx Context, i int, f func(float64) (float64, value.ErrorKind)) value.Value {
	v := ctx.Arg(i)
	if isArrayish(v) {
		arr, ek := ctx.Materialize(v)
		if ek != 0 {
			return value.Err(ek)
		}
		out := value.NewArray(arr.Rows, arr.Cols)
		for idx, cv := range arr.Cells {
			out.Cells[idx] = applyNum1(ctx, cv, f)
		}
		return value.ArrayVal(out)
	}
	return applyNum1(ctx, ctx.Scalar(i), f)
}

func applyNum1(ctx Context, v value.Value, f func(float64) (float64, value.ErrorKind)) value.Value {
	if v.IsError() {
		return v
	}
	x, ek := value.ToNumber(v, ctx.Locale(), ctx.DateSystem())
	if ek != 0 {
		return value.Err(ek)
	}
	out, ek := f(x)
	if ek != 0 {
		return value.Err(ek)
	}
	return value.CheckNumber(out)
}

// numeric2 registers a two-argument numeric function with elementwise
// broadcasting when either argument is an array.
func numeric2(name string, f func(x, y float64) (float64, value.ErrorKind)) {
	register(name, 2, 2, func(ctx Context) value.Value {
		return liftNumeric2(ctx, 0, 1, f)
	})
}

func liftNumeric2(ctx Context, i, j int, f func(x, y float64) (float64, value.ErrorKind)) value.Value {
	a, b := ctx.Arg(i), ctx.Arg(j)
	if isArrayish(a) || isArrayish(b) {
		aa, ek := ctx.Materialize(a)
		if ek != 0 {
			return value.Err(ek)
		}
		ba, ek := ctx.Materialize(b)
		if ek != 0 {
			return value.Err(ek)
		}
		rows, cols := value.BroadcastShape(aa.Rows, aa.Cols, ba.Rows, ba.Cols)
		out := value.NewArray(rows, cols)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				out.Set(r, c, applyNum2(ctx, aa.BroadcastAt(r, c), ba.BroadcastAt(r, c), f))
			}
		}
		return value.ArrayVal(out)
	}
	return applyNum2(ctx, ctx.Scalar(i), ctx.Scalar(j), f)
}

func applyNum2(ctx Context, a, b value.Value, f func(x, y float64) (float64, value.ErrorKind)) value.Value {
	if a.IsError() {
		return a
	}
	if b.IsError() {
		return b
	}
	x, ek := value.ToNumber(a, ctx.Locale(), ctx.DateSystem())
	if ek != 0 {
		return value.Err(ek)
	}
	y, ek := value.ToNumber(b, ctx.Locale(), ctx.DateSystem())
	if ek != 0 {
		return value.Err(ek)
	}
	out, ek := f(x, y)
	if ek != 0 {
		return value.Err(ek)
	}
	return value.CheckNumber(out)
}

func isArrayish(v value.Value) bool {
	if v.Kind == value.KindArray {
		return true
	}
	return v.Kind == value.KindRef && !v.Ref().SingleCell()
}

// collectNumbers gathers every numeric value across all arguments
// under aggregation coercion rules.
func collectNumbers(ctx Context) ([]float64, value.Value) {
	var nums []float64
	for i := 0; i < ctx.ArgCount(); i++ {
		if ctx.ArgOmitted(i) {
			continue
		}
		if errv := eachNumber(ctx, i, func(f float64) { nums = append(nums, f) }); errv.IsError() {
			return nil, errv
		}
	}
	return nums, value.Value{}
}

// eachValue walks every value of one argument, visiting array
// elements and reference cells individually.
func eachValue(ctx Context, i int, f func(value.Value) bool) value.ErrorKind {
	v := ctx.Arg(i)
	switch v.Kind {
	case value.KindRef:
		return ctx.EachRefCell(v.Ref(), f)
	case value.KindRefUnion:
		for _, r := range v.Union().Refs {
			r := r
			if ek := ctx.EachRefCell(&r, f); ek != 0 {
				return ek
			}
		}
		return 0
	case value.KindArray:
		for _, cv := range v.Array().Cells {
			if !f(cv) {
				return 0
			}
		}
		return 0
	default:
		f(v)
		return 0
	}
}

// pairRanges materializes two same-shaped arguments for SUMPRODUCT
// style pairing.
func pairRanges(ctx Context, i, j int) (*value.Array, *value.Array, value.Value) {
	a, ek := ctx.Materialize(ctx.Arg(i))
	if ek != 0 {
		return nil, nil, value.Err(ek)
	}
	b, ek := ctx.Materialize(ctx.Arg(j))
	if ek != 0 {
		return nil, nil, value.Err(ek)
	}
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return nil, nil, value.Err(value.ErrValue)
	}
	return a, b, value.Value{}
}
