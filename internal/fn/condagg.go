package fn

import (
	"math"

	"github.com/sheetkit/sheetkit/internal/criteria"
	"github.com/sheetkit/sheetkit/pkg/value"
)

func init() {
	register("COUNTIF", 2, 2, fnCountIf)
	register("SUMIF", 2, 3, singleIf(aggSum))
	register("AVERAGEIF", 2, 3, singleIf(aggAvg))
	register("COUNTIFS", 2, -1, multiIf(aggCount, 0))
	register("SUMIFS", 3, -1, multiIf(aggSum, 1))
	register("AVERAGEIFS", 3, -1, multiIf(aggAvg, 1))
	register("MAXIFS", 3, -1, multiIf(aggMax, 1))
	register("MINIFS", 3, -1, multiIf(aggMin, 1))
}

type aggKind uint8

const (
	aggCount aggKind = iota
	aggSum
	aggAvg
	aggMax
	aggMin
)

type accumulator struct {
	kind aggKind
	sum  float64
	n    int
	best float64
}

func (a *accumulator) add(v value.Value) {
	switch a.kind {
	case aggCount:
		a.n++
	default:
		if v.Kind != value.KindNumber {
			if a.kind == aggSum || a.kind == aggAvg {
				return
			}
			return
		}
		f := v.Num()
		a.sum += f
		if a.n == 0 || (a.kind == aggMax && f > a.best) || (a.kind == aggMin && f < a.best) {
			a.best = f
		}
		a.n++
	}
}

func (a *accumulator) result() value.Value {
	switch a.kind {
	case aggCount:
		return value.Number(float64(a.n))
	case aggSum:
		return value.CheckNumber(a.sum)
	case aggAvg:
		if a.n == 0 {
			return value.Err(value.ErrDiv0)
		}
		return value.CheckNumber(a.sum / float64(a.n))
	case aggMax, aggMin:
		if a.n == 0 {
			return value.Number(0)
		}
		if math.IsNaN(a.best) {
			return value.Err(value.ErrNum)
		}
		return value.Number(a.best)
	}
	return value.Err(value.ErrValue)
}

func criterionArg(ctx Context, i int) *criteria.Predicate {
	return criteria.Compile(ctx.Scalar(i), ctx.Locale(), ctx.DateSystem())
}

func fnCountIf(ctx Context) value.Value {
	pred := criterionArg(ctx, 1)
	n := 0
	ek := eachValue(ctx, 0, func(cv value.Value) bool {
		if pred.Match(cv) {
			n++
		}
		return true
	})
	if ek != 0 {
		return value.Err(ek)
	}
	return value.Number(float64(n))
}

// singleIf implements SUMIF/AVERAGEIF: the criteria range doubles as
// the value range unless a third argument redirects it.
func singleIf(kind aggKind) func(Context) value.Value {
	return func(ctx Context) value.Value {
		critRange, ek := ctx.Materialize(ctx.Arg(0))
		if ek != 0 {
			return value.Err(ek)
		}
		pred := criterionArg(ctx, 1)
		valRange := critRange
		if ctx.ArgCount() > 2 && !ctx.ArgOmitted(2) {
			valRange, ek = ctx.Materialize(ctx.Arg(2))
			if ek != 0 {
				return value.Err(ek)
			}
			if valRange.Rows != critRange.Rows || valRange.Cols != critRange.Cols {
				return value.Err(value.ErrValue)
			}
		}
		acc := &accumulator{kind: kind}
		for i, cv := range critRange.Cells {
			if pred.Match(cv) {
				acc.add(valRange.Cells[i])
			}
		}
		return acc.result()
	}
}

// multiIf implements the *IFS family: an optional leading value range
// followed by (range, criterion) pairs that must all match.
func multiIf(kind aggKind, valueArgs int) func(Context) value.Value {
	return func(ctx Context) value.Value {
		var valRange *value.Array
		var ek value.ErrorKind
		if valueArgs > 0 {
			valRange, ek = ctx.Materialize(ctx.Arg(0))
			if ek != 0 {
				return value.Err(ek)
			}
		}
		pairs := ctx.ArgCount() - valueArgs
		if pairs <= 0 || pairs%2 != 0 {
			return value.Err(value.ErrValue)
		}
		var critRanges []*value.Array
		var preds []*criteria.Predicate
		for i := valueArgs; i < ctx.ArgCount(); i += 2 {
			cr, ek := ctx.Materialize(ctx.Arg(i))
			if ek != 0 {
				return value.Err(ek)
			}
			if valRange == nil {
				valRange = cr
			}
			if cr.Rows != valRange.Rows || cr.Cols != valRange.Cols {
				return value.Err(value.ErrValue)
			}
			critRanges = append(critRanges, cr)
			preds = append(preds, criterionArg(ctx, i+1))
		}
		acc := &accumulator{kind: kind}
		for idx := range valRange.Cells {
			all := true
			for pi, cr := range critRanges {
				if !preds[pi].Match(cr.Cells[idx]) {
					all = false
					break
				}
			}
			if all {
				acc.add(valRange.Cells[idx])
			}
		}
		return acc.result()
	}
}
