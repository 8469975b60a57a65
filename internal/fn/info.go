package fn

import (
	"math"

	"github.com/sheetkit/sheetkit/pkg/value"
)

func init() {
	register("ISBLANK", 1, 1, isKind(func(v value.Value) bool { return v.Kind == value.KindBlank }))
	register("ISNUMBER", 1, 1, isKind(func(v value.Value) bool { return v.Kind == value.KindNumber }))
	register("ISTEXT", 1, 1, isKind(func(v value.Value) bool { return v.Kind == value.KindText }))
	register("ISNONTEXT", 1, 1, isKind(func(v value.Value) bool { return v.Kind != value.KindText }))
	register("ISLOGICAL", 1, 1, isKind(func(v value.Value) bool { return v.Kind == value.KindBool }))
	register("ISERROR", 1, 1, isKind(value.Value.IsError))
	register("ISERR", 1, 1, isKind(func(v value.Value) bool {
		return v.IsError() && v.ErrKind() != value.ErrNA
	}))
	register("ISNA", 1, 1, isKind(func(v value.Value) bool {
		return v.IsError() && v.ErrKind() == value.ErrNA
	}))
	register("ISEVEN", 1, 1, parity(0))
	register("ISODD", 1, 1, parity(1))
	register("ISREF", 1, 1, fnIsRef)
	register("N", 1, 1, fnN)
	register("NA", 0, 0, func(Context) value.Value { return value.Err(value.ErrNA) })
	register("ERROR.TYPE", 1, 1, fnErrorType)
	register("TYPE", 1, 1, fnType)
}

func isKind(pred func(value.Value) bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		return value.Bool(pred(ctx.Scalar(0)))
	}
}

func parity(want int) func(Context) value.Value {
	return func(ctx Context) value.Value {
		n, errv, ok := NumberArg(ctx, 0)
		if !ok {
			return errv
		}
		even := math.Mod(math.Trunc(math.Abs(n)), 2) == 0
		if want == 0 {
			return value.Bool(even)
		}
		return value.Bool(!even)
	}
}

func fnIsRef(ctx Context) value.Value {
	v := ctx.Arg(0)
	return value.Bool(v.Kind == value.KindRef || v.Kind == value.KindRefUnion)
}

func fnN(ctx Context) value.Value {
	v := ctx.Scalar(0)
	switch v.Kind {
	case value.KindNumber, value.KindError:
		return v
	case value.KindBool:
		if v.B() {
			return value.Number(1)
		}
		return value.Number(0)
	}
	return value.Number(0)
}

func fnErrorType(ctx Context) value.Value {
	v := ctx.Scalar(0)
	if !v.IsError() {
		return value.Err(value.ErrNA)
	}
	return value.Number(float64(v.ErrKind().ErrorType()))
}

func fnType(ctx Context) value.Value {
	v := ctx.Arg(0)
	switch v.Kind {
	case value.KindNumber, value.KindBlank:
		return value.Number(1)
	case value.KindText:
		return value.Number(2)
	case value.KindBool:
		return value.Number(4)
	case value.KindError:
		return value.Number(16)
	case value.KindArray:
		return value.Number(64)
	case value.KindRef:
		// a reference types as its contents
		return fnTypeOfScalar(ctx)
	}
	return value.Number(1)
}

func fnTypeOfScalar(ctx Context) value.Value {
	v := ctx.Scalar(0)
	switch v.Kind {
	case value.KindText:
		return value.Number(2)
	case value.KindBool:
		return value.Number(4)
	case value.KindError:
		return value.Number(16)
	}
	return value.Number(1)
}
