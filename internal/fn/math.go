package fn

import (
	"math"
	"strconv"

	"github.com/sheetkit/sheetkit/pkg/value"
)

func init() {
	register("SUM", 0, -1, fnSum)
	register("PRODUCT", 1, -1, fnProduct)
	register("SUMSQ", 1, -1, fnSumSq)
	register("SUMPRODUCT", 1, -1, fnSumProduct)
	register("QUOTIENT", 2, 2, fnQuotient)

	numeric1("ABS", func(x float64) (float64, value.ErrorKind) { return math.Abs(x), 0 })
	numeric1("SIGN", func(x float64) (float64, value.ErrorKind) {
		switch {
		case x > 0:
			return 1, 0
		case x < 0:
			return -1, 0
		}
		return 0, 0
	})
	numeric1("SQRT", func(x float64) (float64, value.ErrorKind) {
		if x < 0 {
			return 0, value.ErrNum
		}
		return math.Sqrt(x), 0
	})
	numeric1("EXP", func(x float64) (float64, value.ErrorKind) { return math.Exp(x), 0 })
	numeric1("LN", logChecked(math.Log))
	numeric1("LOG10", logChecked(math.Log10))
	numeric1("INT", func(x float64) (float64, value.ErrorKind) { return math.Floor(x), 0 })
	numeric1("EVEN", roundAwayToMultiple(2))
	numeric1("ODD", fnOdd)
	numeric1("FACT", fnFact)
	numeric1("DEGREES", func(x float64) (float64, value.ErrorKind) { return x * 180 / math.Pi, 0 })
	numeric1("RADIANS", func(x float64) (float64, value.ErrorKind) { return x * math.Pi / 180, 0 })
	numeric1("SIN", noErr(math.Sin))
	numeric1("COS", noErr(math.Cos))
	numeric1("TAN", noErr(math.Tan))
	numeric1("SINH", noErr(math.Sinh))
	numeric1("COSH", noErr(math.Cosh))
	numeric1("TANH", noErr(math.Tanh))
	numeric1("ASIN", domainChecked(math.Asin))
	numeric1("ACOS", domainChecked(math.Acos))
	numeric1("ATAN", noErr(math.Atan))

	numeric2("ATAN2", func(x, y float64) (float64, value.ErrorKind) {
		if x == 0 && y == 0 {
			return 0, value.ErrDiv0
		}
		return math.Atan2(y, x), 0
	})
	numeric2("MOD", func(x, y float64) (float64, value.ErrorKind) {
		if y == 0 {
			return 0, value.ErrDiv0
		}
		// result takes the sign of the divisor
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m, 0
	})
	numeric2("POWER", powChecked)
	numeric2("COMBIN", fnCombin)
	numeric2("PERMUT", fnPermut)
	numeric2("GCD", intPair(gcd))
	numeric2("LCM", intPair(lcm))
	numeric2("MROUND", fnMround)
	numeric2("CEILING", ceilingToward(1))
	numeric2("FLOOR", ceilingToward(-1))

	register("PI", 0, 0, func(Context) value.Value { return value.Number(math.Pi) })
	register("LOG", 1, 2, fnLog)
	register("ROUND", 2, 2, roundFn(roundHalfAway))
	register("ROUNDUP", 2, 2, roundFn(roundAway))
	register("ROUNDDOWN", 2, 2, roundFn(roundToward))
	register("TRUNC", 1, 2, fnTrunc)

	registerVolatile("RAND", 0, 0, func(ctx Context) value.Value {
		return value.Number(ctx.Rand())
	})
	registerVolatile("RANDBETWEEN", 2, 2, fnRandBetween)
}

func noErr(f func(float64) float64) func(float64) (float64, value.ErrorKind) {
	return func(x float64) (float64, value.ErrorKind) { return f(x), 0 }
}

func logChecked(f func(float64) float64) func(float64) (float64, value.ErrorKind) {
	return func(x float64) (float64, value.ErrorKind) {
		if x <= 0 {
			return 0, value.ErrNum
		}
		return f(x), 0
	}
}

func domainChecked(f func(float64) float64) func(float64) (float64, value.ErrorKind) {
	return func(x float64) (float64, value.ErrorKind) {
		if x < -1 || x > 1 {
			return 0, value.ErrNum
		}
		return f(x), 0
	}
}

// powChecked mirrors the ^ operator's edge cases.
func powChecked(x, y float64) (float64, value.ErrorKind) {
	if x == 0 {
		if y == 0 {
			return 0, value.ErrNum
		}
		if y < 0 {
			return 0, value.ErrDiv0
		}
	}
	if x < 0 && y != math.Trunc(y) {
		return 0, value.ErrNum
	}
	return math.Pow(x, y), 0
}

func fnSum(ctx Context) value.Value {
	var sum float64
	for i := 0; i < ctx.ArgCount(); i++ {
		if ctx.ArgOmitted(i) {
			continue
		}
		if errv := eachNumber(ctx, i, func(f float64) { sum += f }); errv.IsError() {
			return errv
		}
	}
	return value.CheckNumber(sum)
}

func fnProduct(ctx Context) value.Value {
	prod, seen := 1.0, false
	for i := 0; i < ctx.ArgCount(); i++ {
		if ctx.ArgOmitted(i) {
			continue
		}
		if errv := eachNumber(ctx, i, func(f float64) { prod *= f; seen = true }); errv.IsError() {
			return errv
		}
	}
	if !seen {
		return value.Number(0)
	}
	return value.CheckNumber(prod)
}

func fnSumSq(ctx Context) value.Value {
	var sum float64
	for i := 0; i < ctx.ArgCount(); i++ {
		if errv := eachNumber(ctx, i, func(f float64) { sum += f * f }); errv.IsError() {
			return errv
		}
	}
	return value.CheckNumber(sum)
}

func fnSumProduct(ctx Context) value.Value {
	first, ek := ctx.Materialize(ctx.Arg(0))
	if ek != 0 {
		return value.Err(ek)
	}
	arrs := []*value.Array{first}
	for i := 1; i < ctx.ArgCount(); i++ {
		a, ek := ctx.Materialize(ctx.Arg(i))
		if ek != 0 {
			return value.Err(ek)
		}
		if a.Rows != first.Rows || a.Cols != first.Cols {
			return value.Err(value.ErrValue)
		}
		arrs = append(arrs, a)
	}
	var sum float64
	for idx := range first.Cells {
		term := 1.0
		for _, a := range arrs {
			cv := a.Cells[idx]
			if cv.IsError() {
				return cv
			}
			// non-numeric entries contribute zero
			if cv.Kind == value.KindNumber {
				term *= cv.Num()
			} else {
				term = 0
			}
		}
		sum += term
	}
	return value.CheckNumber(sum)
}

func fnQuotient(ctx Context) value.Value {
	return liftNumeric2(ctx, 0, 1, func(x, y float64) (float64, value.ErrorKind) {
		if y == 0 {
			return 0, value.ErrDiv0
		}
		return math.Trunc(x / y), 0
	})
}

func fnLog(ctx Context) value.Value {
	x, errv, ok := NumberArg(ctx, 0)
	if !ok {
		return errv
	}
	base, errv, ok := NumberArgDefault(ctx, 1, 10)
	if !ok {
		return errv
	}
	if x <= 0 || base <= 0 || base == 1 {
		return value.Err(value.ErrNum)
	}
	return value.CheckNumber(math.Log(x) / math.Log(base))
}

// roundHalfAway rounds half away from zero at the given digit count.
// The scaled value snaps to 13 significant decimal digits first so
// that 1.575 (stored just below the half) still rounds up.
func roundHalfAway(x float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	scaled, _ := strconv.ParseFloat(strconv.FormatFloat(x*scale, 'g', 13, 64), 64)
	r := math.Floor(math.Abs(scaled) + 0.5)
	if x < 0 {
		r = -r
	}
	return r / scale
}

func roundAway(x float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	r := math.Ceil(math.Abs(x) * scale)
	if x < 0 {
		r = -r
	}
	return r / scale
}

func roundToward(x float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	r := math.Floor(math.Abs(x) * scale)
	if x < 0 {
		r = -r
	}
	return r / scale
}

func roundFn(f func(float64, int) float64) func(Context) value.Value {
	return func(ctx Context) value.Value {
		return liftNumeric2(ctx, 0, 1, func(x, d float64) (float64, value.ErrorKind) {
			return f(x, int(d)), 0
		})
	}
}

func fnTrunc(ctx Context) value.Value {
	x, errv, ok := NumberArg(ctx, 0)
	if !ok {
		return errv
	}
	d, errv, ok := NumberArgDefault(ctx, 1, 0)
	if !ok {
		return errv
	}
	return value.CheckNumber(roundToward(x, int(d)))
}

func fnOdd(x float64) (float64, value.ErrorKind) {
	if x == 0 {
		return 1, 0
	}
	r := math.Ceil(math.Abs(x))
	if math.Mod(r, 2) == 0 {
		r++
	}
	if x < 0 {
		r = -r
	}
	return r, 0
}

func roundAwayToMultiple(m float64) func(float64) (float64, value.ErrorKind) {
	return func(x float64) (float64, value.ErrorKind) {
		r := math.Ceil(math.Abs(x)/m) * m
		if x < 0 {
			r = -r
		}
		return r, 0
	}
}

func fnFact(x float64) (float64, value.ErrorKind) {
	n := int(x)
	if n < 0 {
		return 0, value.ErrNum
	}
	if n > 170 {
		return 0, value.ErrNum
	}
	r := 1.0
	for i := 2; i <= n; i++ {
		r *= float64(i)
	}
	return r, 0
}

func fnCombin(nf, kf float64) (float64, value.ErrorKind) {
	n, k := int(nf), int(kf)
	if n < 0 || k < 0 || k > n {
		return 0, value.ErrNum
	}
	if k > n-k {
		k = n - k
	}
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return math.Round(r), 0
}

func fnPermut(nf, kf float64) (float64, value.ErrorKind) {
	n, k := int(nf), int(kf)
	if n < 0 || k < 0 || k > n {
		return 0, value.ErrNum
	}
	r := 1.0
	for i := 0; i < k; i++ {
		r *= float64(n - i)
	}
	return r, 0
}

func intPair(f func(a, b int64) (int64, bool)) func(x, y float64) (float64, value.ErrorKind) {
	return func(x, y float64) (float64, value.ErrorKind) {
		if x < 0 || y < 0 {
			return 0, value.ErrNum
		}
		r, ok := f(int64(x), int64(y))
		if !ok {
			return 0, value.ErrNum
		}
		return float64(r), 0
	}
}

func gcd(a, b int64) (int64, bool) {
	for b != 0 {
		a, b = b, a%b
	}
	return a, true
}

func lcm(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	g, _ := gcd(a, b)
	return a / g * b, true
}

func fnMround(x, m float64) (float64, value.ErrorKind) {
	if m == 0 {
		return 0, 0
	}
	if (x < 0) != (m < 0) && x != 0 {
		return 0, value.ErrNum
	}
	return roundHalfAway(x/m, 0) * m, 0
}

// ceilingToward rounds to a multiple of significance: dir=1 away from
// zero toward +inf (CEILING), dir=-1 toward -inf (FLOOR).
func ceilingToward(dir int) func(x, sig float64) (float64, value.ErrorKind) {
	return func(x, sig float64) (float64, value.ErrorKind) {
		if sig == 0 {
			if dir < 0 && x != 0 {
				return 0, value.ErrDiv0
			}
			return 0, 0
		}
		if x > 0 && sig < 0 {
			return 0, value.ErrNum
		}
		q := x / sig
		if dir > 0 {
			return math.Ceil(q) * sig, 0
		}
		return math.Floor(q) * sig, 0
	}
}

func fnRandBetween(ctx Context) value.Value {
	lo, errv, ok := NumberArg(ctx, 0)
	if !ok {
		return errv
	}
	hi, errv, ok := NumberArg(ctx, 1)
	if !ok {
		return errv
	}
	low, high := math.Ceil(lo), math.Floor(hi)
	if low > high {
		return value.Err(value.ErrNum)
	}
	n := low + math.Floor(ctx.Rand()*(high-low+1))
	if n > high {
		n = high
	}
	return value.Number(n)
}
