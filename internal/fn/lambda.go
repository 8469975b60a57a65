package fn

import (
	"github.com/sheetkit/sheetkit/pkg/value"
)

func init() {
	register("MAP", 2, -1, fnMap)
	register("REDUCE", 3, 3, fnReduce)
	register("SCAN", 3, 3, fnScan)
	register("BYROW", 2, 2, byAxis(true))
	register("BYCOL", 2, 2, byAxis(false))
	register("MAKEARRAY", 3, 3, fnMakeArray)
}

func lambdaArg(ctx Context, i int) (*value.Lambda, value.Value) {
	v := ctx.Scalar(i)
	if v.IsError() {
		return nil, v
	}
	if v.Kind != value.KindLambda {
		return nil, value.Err(value.ErrValue)
	}
	return v.Lambda(), value.Value{}
}

// fnMap applies a lambda elementwise across one or more same-shaped
// arrays; the lambda is the final argument.
func fnMap(ctx Context) value.Value {
	n := ctx.ArgCount()
	l, errv := lambdaArg(ctx, n-1)
	if errv.IsError() {
		return errv
	}
	first, ek := ctx.Materialize(ctx.Arg(0))
	if ek != 0 {
		return value.Err(ek)
	}
	arrs := []*value.Array{first}
	for i := 1; i < n-1; i++ {
		a, ek := ctx.Materialize(ctx.Arg(i))
		if ek != 0 {
			return value.Err(ek)
		}
		if a.Rows != first.Rows || a.Cols != first.Cols {
			return value.Err(value.ErrValue)
		}
		arrs = append(arrs, a)
	}
	out := value.NewArray(first.Rows, first.Cols)
	args := make([]value.Value, len(arrs))
	for idx := range first.Cells {
		for ai, a := range arrs {
			args[ai] = a.Cells[idx]
		}
		out.Cells[idx] = ctx.CallLambda(l, args)
	}
	return arrayOrScalar(out)
}

func fnReduce(ctx Context) value.Value {
	acc := ctx.Scalar(0)
	if acc.IsError() {
		return acc
	}
	src, ek := ctx.Materialize(ctx.Arg(1))
	if ek != 0 {
		return value.Err(ek)
	}
	l, errv := lambdaArg(ctx, 2)
	if errv.IsError() {
		return errv
	}
	for _, cv := range src.Cells {
		acc = ctx.CallLambda(l, []value.Value{acc, cv})
		if acc.IsError() {
			return acc
		}
	}
	return acc
}

func fnScan(ctx Context) value.Value {
	acc := ctx.Scalar(0)
	if acc.IsError() {
		return acc
	}
	src, ek := ctx.Materialize(ctx.Arg(1))
	if ek != 0 {
		return value.Err(ek)
	}
	l, errv := lambdaArg(ctx, 2)
	if errv.IsError() {
		return errv
	}
	out := value.NewArray(src.Rows, src.Cols)
	for idx, cv := range src.Cells {
		acc = ctx.CallLambda(l, []value.Value{acc, cv})
		out.Cells[idx] = acc
		if acc.IsError() {
			// later elements still fold from the error
			continue
		}
	}
	return arrayOrScalar(out)
}

func byAxis(rows bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		src, ek := ctx.Materialize(ctx.Arg(0))
		if ek != 0 {
			return value.Err(ek)
		}
		l, errv := lambdaArg(ctx, 1)
		if errv.IsError() {
			return errv
		}
		n := src.Rows
		if !rows {
			n = src.Cols
		}
		var out *value.Array
		if rows {
			out = value.NewArray(n, 1)
		} else {
			out = value.NewArray(1, n)
		}
		for i := 0; i < n; i++ {
			var slice *value.Array
			if rows {
				slice = value.NewArray(1, src.Cols)
				for c := 0; c < src.Cols; c++ {
					slice.Set(0, c, src.At(i, c))
				}
			} else {
				slice = value.NewArray(src.Rows, 1)
				for r := 0; r < src.Rows; r++ {
					slice.Set(r, 0, src.At(r, i))
				}
			}
			out.Cells[i] = ctx.CallLambda(l, []value.Value{value.ArrayVal(slice)})
		}
		return arrayOrScalar(out)
	}
}

func fnMakeArray(ctx Context) value.Value {
	rows, errv, ok := IntArg(ctx, 0)
	if !ok {
		return errv
	}
	cols, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	l, errv := lambdaArg(ctx, 2)
	if errv.IsError() {
		return errv
	}
	if rows < 1 || cols < 1 {
		return value.Err(value.ErrValue)
	}
	out := value.NewArray(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, ctx.CallLambda(l, []value.Value{
				value.Number(float64(r + 1)),
				value.Number(float64(c + 1)),
			}))
		}
	}
	return arrayOrScalar(out)
}
