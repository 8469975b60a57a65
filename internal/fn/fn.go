// Package fn is the builtin function library and its registry. The
// evaluator dispatches calls here through the Context interface, which
// hands functions their arguments lazily: an argument is compiled as
// its own sub-program and only runs when the function asks for it.
package fn

import (
	"strings"
	"sync"

	"github.com/sheetkit/sheetkit/internal/locale"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// Context is what a builtin sees during a call. It is implemented by
// the evaluator.
type Context interface {
	// ArgCount is the number of argument slots at the call site,
	// including omitted ones.
	ArgCount() int

	// ArgOmitted reports whether slot i was left empty, as the second
	// argument in IF(A1,,2).
	ArgOmitted(i int) bool

	// Arg evaluates argument i and returns it unchanged: references
	// and arrays come through as such. Results are cached, so asking
	// twice does not re-evaluate.
	Arg(i int) value.Value

	// Scalar evaluates argument i and dereferences it to a scalar:
	// single-cell references load the cell, multi-cell references go
	// through implicit intersection against the anchor.
	Scalar(i int) value.Value

	// Materialize converts a reference or scalar into an array,
	// subject to the evaluation size cap. 3-D references do not
	// materialize.
	Materialize(v value.Value) (*value.Array, value.ErrorKind)

	// EachRefCell streams the cell values of a reference, including
	// 3-D spans, with whole-row/column extents clamped to the used
	// range. The walk stops when f returns false.
	EachRefCell(r *value.Ref, f func(value.Value) bool) value.ErrorKind

	Resolver() value.Resolver
	Locale() *locale.Locale
	DateSystem() locale.DateSystem
	Anchor() value.CellKey

	// Now is the volatile clock, one reading per recalculation pass,
	// as a date-time serial.
	Now() float64

	// Rand draws from the pass-local random source.
	Rand() float64

	// CallLambda applies a lambda value to already-evaluated
	// arguments.
	CallLambda(l *value.Lambda, args []value.Value) value.Value
}

// Spec describes one builtin.
type Spec struct {
	Name    string
	MinArgs int
	MaxArgs int // -1: unbounded
	// Volatile functions re-evaluate on every pass regardless of
	// precedent changes.
	Volatile bool
	// ThreadSafe functions may run on any recalculation worker.
	// Non-thread-safe ones are confined to the coordinating goroutine.
	ThreadSafe bool
	Fn         func(Context) value.Value
}

var (
	mu       sync.RWMutex
	registry = map[string]*Spec{}
)

// Register adds a builtin; it panics on duplicates so init-time
// registration surfaces clashes immediately.
func Register(s *Spec) {
	mu.Lock()
	defer mu.Unlock()
	key := strings.ToUpper(s.Name)
	if _, dup := registry[key]; dup {
		panic("fn: duplicate registration of " + key)
	}
	s.Name = key
	registry[key] = s
}

// Lookup finds a builtin by name, case-insensitively. Names carried
// over from newer file formats keep an _xlfn. prefix; it is stripped
// before the registry lookup.
func Lookup(name string) *Spec {
	key := strings.TrimPrefix(strings.ToUpper(name), "_XLFN.")
	mu.RLock()
	defer mu.RUnlock()
	return registry[key]
}

// Names returns the registered function names, for completion and
// diagnostics.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// register is the package-internal shorthand used by the builtin
// files' init functions.
func register(name string, min, max int, f func(Context) value.Value) *Spec {
	s := &Spec{Name: name, MinArgs: min, MaxArgs: max, ThreadSafe: true, Fn: f}
	Register(s)
	return s
}

func registerVolatile(name string, min, max int, f func(Context) value.Value) {
	s := register(name, min, max, f)
	s.Volatile = true
}

// Argument coercion helpers. Scalar-context coercion applies to
// values the user passed directly; values read out of references keep
// the stricter reference-context rules (see eachNumber).

// NumberArg coerces argument i to a number.
func NumberArg(ctx Context, i int) (float64, value.Value, bool) {
	v := ctx.Scalar(i)
	if v.IsError() {
		return 0, v, false
	}
	f, ek := value.ToNumber(v, ctx.Locale(), ctx.DateSystem())
	if ek != 0 {
		return 0, value.Err(ek), false
	}
	return f, value.Value{}, true
}

// IntArg coerces argument i to a number and truncates toward zero.
func IntArg(ctx Context, i int) (int, value.Value, bool) {
	f, errv, ok := NumberArg(ctx, i)
	if !ok {
		return 0, errv, false
	}
	return int(f), value.Value{}, true
}

// TextArg coerces argument i to text.
func TextArg(ctx Context, i int) (string, value.Value, bool) {
	v := ctx.Scalar(i)
	if v.IsError() {
		return "", v, false
	}
	s, ek := value.ToText(v)
	if ek != 0 {
		return "", value.Err(ek), false
	}
	return s, value.Value{}, true
}

// BoolArg coerces argument i to a boolean.
func BoolArg(ctx Context, i int) (bool, value.Value, bool) {
	v := ctx.Scalar(i)
	if v.IsError() {
		return false, v, false
	}
	b, ek := value.ToBool(v, ctx.Locale())
	if ek != 0 {
		return false, value.Err(ek), false
	}
	return b, value.Value{}, true
}

// NumberArgDefault is NumberArg with a fallback for omitted trailing
// arguments.
func NumberArgDefault(ctx Context, i int, def float64) (float64, value.Value, bool) {
	if i >= ctx.ArgCount() || ctx.ArgOmitted(i) {
		return def, value.Value{}, true
	}
	return NumberArg(ctx, i)
}

// eachNumber walks the numeric content of one argument under
// aggregation rules: direct scalars coerce (text "8" counts), values
// arriving through references or arrays only count when they are
// already numbers, blanks are skipped, and errors abort the walk.
func eachNumber(ctx Context, i int, f func(float64)) value.Value {
	v := ctx.Arg(i)
	switch v.Kind {
	case value.KindError:
		return v
	case value.KindRef:
		return refNumbers(ctx, v.Ref(), f)
	case value.KindRefUnion:
		for _, r := range v.Union().Refs {
			r := r
			if errv := refNumbers(ctx, &r, f); errv.IsError() {
				return errv
			}
		}
		return value.Value{}
	case value.KindArray:
		for _, cv := range v.Array().Cells {
			if cv.IsError() {
				return cv
			}
			if cv.Kind == value.KindNumber {
				f(cv.Num())
			}
		}
		return value.Value{}
	case value.KindBlank:
		return value.Value{}
	default:
		n, ek := value.ToNumber(v, ctx.Locale(), ctx.DateSystem())
		if ek != 0 {
			return value.Err(ek)
		}
		f(n)
		return value.Value{}
	}
}

func refNumbers(ctx Context, r *value.Ref, f func(float64)) value.Value {
	var errv value.Value
	ek := ctx.EachRefCell(r, func(cv value.Value) bool {
		if cv.IsError() {
			errv = cv
			return false
		}
		if cv.Kind == value.KindNumber {
			f(cv.Num())
		}
		return true
	})
	if ek != 0 {
		return value.Err(ek)
	}
	return errv
}
