package fn

import (
	"math"
	"sort"

	"github.com/sheetkit/sheetkit/pkg/value"
)

func init() {
	register("AVERAGE", 1, -1, fnAverage)
	register("AVERAGEA", 1, -1, fnAverageA)
	register("COUNT", 1, -1, fnCount)
	register("COUNTA", 1, -1, fnCountA)
	register("COUNTBLANK", 1, 1, fnCountBlank)
	register("MAX", 1, -1, extremum(math.Max, math.Inf(-1)))
	register("MIN", 1, -1, extremum(math.Min, math.Inf(1)))
	register("MAXA", 1, -1, extremumA(math.Max, math.Inf(-1)))
	register("MINA", 1, -1, extremumA(math.Min, math.Inf(1)))
	register("MEDIAN", 1, -1, fnMedian)
	register("MODE", 1, -1, fnMode)
	register("MODE.SNGL", 1, -1, fnMode)
	register("LARGE", 2, 2, kth(false))
	register("SMALL", 2, 2, kth(true))
	register("RANK", 2, 3, fnRank)
	register("RANK.EQ", 2, 3, fnRank)
	register("STDEV", 1, -1, moment(true, true))
	register("STDEV.S", 1, -1, moment(true, true))
	register("STDEVP", 1, -1, moment(false, true))
	register("STDEV.P", 1, -1, moment(false, true))
	register("VAR", 1, -1, moment(true, false))
	register("VAR.S", 1, -1, moment(true, false))
	register("VARP", 1, -1, moment(false, false))
	register("VAR.P", 1, -1, moment(false, false))
	register("GEOMEAN", 1, -1, fnGeomean)
	register("HARMEAN", 1, -1, fnHarmean)
	register("AVEDEV", 1, -1, fnAvedev)
	register("DEVSQ", 1, -1, fnDevsq)
	register("PERCENTILE", 2, 2, fnPercentile)
	register("PERCENTILE.INC", 2, 2, fnPercentile)
	register("QUARTILE", 2, 2, fnQuartile)
	register("QUARTILE.INC", 2, 2, fnQuartile)
}

func fnAverage(ctx Context) value.Value {
	nums, errv := collectNumbers(ctx)
	if errv.IsError() {
		return errv
	}
	if len(nums) == 0 {
		return value.Err(value.ErrDiv0)
	}
	var sum float64
	for _, f := range nums {
		sum += f
	}
	return value.CheckNumber(sum / float64(len(nums)))
}

// fnAverageA also counts text (as 0) and booleans arriving from
// references.
func fnAverageA(ctx Context) value.Value {
	var sum float64
	var n int
	for i := 0; i < ctx.ArgCount(); i++ {
		var errv value.Value
		ek := eachValue(ctx, i, func(cv value.Value) bool {
			switch cv.Kind {
			case value.KindError:
				errv = cv
				return false
			case value.KindNumber:
				sum += cv.Num()
				n++
			case value.KindBool:
				if cv.B() {
					sum++
				}
				n++
			case value.KindText:
				n++
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
	if n == 0 {
		return value.Err(value.ErrDiv0)
	}
	return value.CheckNumber(sum / float64(n))
}

func fnCount(ctx Context) value.Value {
	var n int
	for i := 0; i < ctx.ArgCount(); i++ {
		ek := eachValue(ctx, i, func(cv value.Value) bool {
			switch cv.Kind {
			case value.KindNumber:
				n++
			case value.KindText:
				// direct text arguments that parse count; reference
				// text does not, but eachValue flattens both, so only
				// count parseable text for scalar args
			}
			return true
		})
		if ek != 0 {
			return value.Err(ek)
		}
		// direct scalar text like "5" counts
		if !isArrayish(ctx.Arg(i)) {
			v := ctx.Arg(i)
			if v.Kind == value.KindText {
				if _, ok := ctx.Locale().ParseNumber(v.Text); ok {
					n++
				}
			} else if v.Kind == value.KindBool {
				n++
			}
		}
	}
	return value.Number(float64(n))
}

func fnCountA(ctx Context) value.Value {
	var n int
	for i := 0; i < ctx.ArgCount(); i++ {
		ek := eachValue(ctx, i, func(cv value.Value) bool {
			if cv.Kind != value.KindBlank {
				n++
			}
			return true
		})
		if ek != 0 {
			return value.Err(ek)
		}
	}
	return value.Number(float64(n))
}

func fnCountBlank(ctx Context) value.Value {
	var n int
	ek := eachValue(ctx, 0, func(cv value.Value) bool {
		if cv.Kind == value.KindBlank || (cv.Kind == value.KindText && cv.Text == "") {
			n++
		}
		return true
	})
	if ek != 0 {
		return value.Err(ek)
	}
	return value.Number(float64(n))
}

func extremum(pick func(a, b float64) float64, seed float64) func(Context) value.Value {
	return func(ctx Context) value.Value {
		best, seen := seed, false
		for i := 0; i < ctx.ArgCount(); i++ {
			if errv := eachNumber(ctx, i, func(f float64) { best = pick(best, f); seen = true }); errv.IsError() {
				return errv
			}
		}
		if !seen {
			return value.Number(0)
		}
		return value.Number(best)
	}
}

func extremumA(pick func(a, b float64) float64, seed float64) func(Context) value.Value {
	return func(ctx Context) value.Value {
		best, seen := seed, false
		for i := 0; i < ctx.ArgCount(); i++ {
			var errv value.Value
			ek := eachValue(ctx, i, func(cv value.Value) bool {
				switch cv.Kind {
				case value.KindError:
					errv = cv
					return false
				case value.KindNumber:
					best, seen = pick(best, cv.Num()), true
				case value.KindBool:
					n := 0.0
					if cv.B() {
						n = 1
					}
					best, seen = pick(best, n), true
				case value.KindText:
					best, seen = pick(best, 0), true
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
			return value.Number(0)
		}
		return value.Number(best)
	}
}

func fnMedian(ctx Context) value.Value {
	nums, errv := collectNumbers(ctx)
	if errv.IsError() {
		return errv
	}
	if len(nums) == 0 {
		return value.Err(value.ErrNum)
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return value.Number(nums[mid])
	}
	return value.Number((nums[mid-1] + nums[mid]) / 2)
}

func fnMode(ctx Context) value.Value {
	nums, errv := collectNumbers(ctx)
	if errv.IsError() {
		return errv
	}
	counts := map[float64]int{}
	best, bestN := 0.0, 0
	for _, f := range nums {
		counts[f]++
		if counts[f] > bestN {
			best, bestN = f, counts[f]
		}
	}
	if bestN < 2 {
		return value.Err(value.ErrNA)
	}
	return value.Number(best)
}

func kth(smallest bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		var nums []float64
		if errv := eachNumber(ctx, 0, func(f float64) { nums = append(nums, f) }); errv.IsError() {
			return errv
		}
		k, errv, ok := IntArg(ctx, 1)
		if !ok {
			return errv
		}
		if k < 1 || k > len(nums) {
			return value.Err(value.ErrNum)
		}
		sort.Float64s(nums)
		if smallest {
			return value.Number(nums[k-1])
		}
		return value.Number(nums[len(nums)-k])
	}
}

func fnRank(ctx Context) value.Value {
	x, errv, ok := NumberArg(ctx, 0)
	if !ok {
		return errv
	}
	var nums []float64
	if errv := eachNumber(ctx, 1, func(f float64) { nums = append(nums, f) }); errv.IsError() {
		return errv
	}
	asc, errv, ok := NumberArgDefault(ctx, 2, 0)
	if !ok {
		return errv
	}
	rank, found := 1, false
	for _, f := range nums {
		if f == x {
			found = true
		}
		if asc == 0 && f > x {
			rank++
		}
		if asc != 0 && f < x {
			rank++
		}
	}
	if !found {
		return value.Err(value.ErrNA)
	}
	return value.Number(float64(rank))
}

// moment computes stdev or variance, sample or population.
func moment(sample, root bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		nums, errv := collectNumbers(ctx)
		if errv.IsError() {
			return errv
		}
		n := float64(len(nums))
		min := 1.0
		if sample {
			min = 2
		}
		if n < min {
			return value.Err(value.ErrDiv0)
		}
		var mean float64
		for _, f := range nums {
			mean += f
		}
		mean /= n
		var ss float64
		for _, f := range nums {
			d := f - mean
			ss += d * d
		}
		div := n
		if sample {
			div = n - 1
		}
		v := ss / div
		if root {
			v = math.Sqrt(v)
		}
		return value.CheckNumber(v)
	}
}

func fnGeomean(ctx Context) value.Value {
	nums, errv := collectNumbers(ctx)
	if errv.IsError() {
		return errv
	}
	if len(nums) == 0 {
		return value.Err(value.ErrNum)
	}
	var logSum float64
	for _, f := range nums {
		if f <= 0 {
			return value.Err(value.ErrNum)
		}
		logSum += math.Log(f)
	}
	return value.CheckNumber(math.Exp(logSum / float64(len(nums))))
}

func fnHarmean(ctx Context) value.Value {
	nums, errv := collectNumbers(ctx)
	if errv.IsError() {
		return errv
	}
	if len(nums) == 0 {
		return value.Err(value.ErrNum)
	}
	var inv float64
	for _, f := range nums {
		if f <= 0 {
			return value.Err(value.ErrNum)
		}
		inv += 1 / f
	}
	return value.CheckNumber(float64(len(nums)) / inv)
}

func fnAvedev(ctx Context) value.Value {
	nums, errv := collectNumbers(ctx)
	if errv.IsError() {
		return errv
	}
	if len(nums) == 0 {
		return value.Err(value.ErrNum)
	}
	var mean float64
	for _, f := range nums {
		mean += f
	}
	mean /= float64(len(nums))
	var dev float64
	for _, f := range nums {
		dev += math.Abs(f - mean)
	}
	return value.CheckNumber(dev / float64(len(nums)))
}

func fnDevsq(ctx Context) value.Value {
	nums, errv := collectNumbers(ctx)
	if errv.IsError() {
		return errv
	}
	if len(nums) == 0 {
		return value.Err(value.ErrNum)
	}
	var mean float64
	for _, f := range nums {
		mean += f
	}
	mean /= float64(len(nums))
	var ss float64
	for _, f := range nums {
		d := f - mean
		ss += d * d
	}
	return value.CheckNumber(ss)
}

// percentileInc is the linear-interpolation (inclusive) estimator.
func percentileInc(nums []float64, p float64) (float64, value.ErrorKind) {
	if len(nums) == 0 || p < 0 || p > 1 {
		return 0, value.ErrNum
	}
	sort.Float64s(nums)
	pos := p * float64(len(nums)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return nums[lo], 0
	}
	frac := pos - float64(lo)
	return nums[lo] + frac*(nums[hi]-nums[lo]), 0
}

func fnPercentile(ctx Context) value.Value {
	var nums []float64
	if errv := eachNumber(ctx, 0, func(f float64) { nums = append(nums, f) }); errv.IsError() {
		return errv
	}
	p, errv, ok := NumberArg(ctx, 1)
	if !ok {
		return errv
	}
	r, ek := percentileInc(nums, p)
	if ek != 0 {
		return value.Err(ek)
	}
	return value.CheckNumber(r)
}

func fnQuartile(ctx Context) value.Value {
	var nums []float64
	if errv := eachNumber(ctx, 0, func(f float64) { nums = append(nums, f) }); errv.IsError() {
		return errv
	}
	q, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	if q < 0 || q > 4 {
		return value.Err(value.ErrNum)
	}
	r, ek := percentileInc(nums, float64(q)/4)
	if ek != 0 {
		return value.Err(ek)
	}
	return value.CheckNumber(r)
}
