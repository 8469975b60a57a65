// Package criteria compiles SUMIF/COUNTIF-style criteria into
// predicates. A criterion is either a bare value (equality) or a
// comparator-prefixed string like ">=10" or "<>done". Text equality
// supports the ? and * wildcards with ~ as the escape.
package criteria

import (
	"strings"

	"github.com/sheetkit/sheetkit/internal/locale"
	"github.com/sheetkit/sheetkit/pkg/value"
)

type compareOp uint8

const (
	opEq compareOp = iota
	opNe
	opLt
	opLe
	opGt
	opGe
)

type operandKind uint8

const (
	operandBlank operandKind = iota
	operandNumber
	operandText
	operandBool
	operandError
)

// Predicate is a compiled criterion.
type Predicate struct {
	op   compareOp
	kind operandKind

	num    float64
	text   string // folded
	raw    string
	boolV  bool
	errV   value.ErrorKind
	hasPat bool
	loc    *locale.Locale
}

// Compile turns a criterion value into a predicate. Text operands
// parse numerically first, falling back to date parsing, so ">1/1/2020"
// compares serials.
func Compile(crit value.Value, loc *locale.Locale, ds locale.DateSystem) *Predicate {
	switch crit.Kind {
	case value.KindNumber:
		return &Predicate{op: opEq, kind: operandNumber, num: crit.Num(), loc: loc}
	case value.KindBool:
		return &Predicate{op: opEq, kind: operandBool, boolV: crit.B(), loc: loc}
	case value.KindError:
		return &Predicate{op: opEq, kind: operandError, errV: crit.ErrKind(), loc: loc}
	case value.KindBlank:
		return &Predicate{op: opEq, kind: operandBlank, loc: loc}
	case value.KindText:
		return compileText(crit.Text, loc, ds)
	}
	return &Predicate{op: opEq, kind: operandText, raw: crit.Display(), loc: loc}
}

func compileText(s string, loc *locale.Locale, ds locale.DateSystem) *Predicate {
	op := opEq
	switch {
	case strings.HasPrefix(s, "<>"):
		op, s = opNe, s[2:]
	case strings.HasPrefix(s, ">="):
		op, s = opGe, s[2:]
	case strings.HasPrefix(s, "<="):
		op, s = opLe, s[2:]
	case strings.HasPrefix(s, "="):
		op, s = opEq, s[1:]
	case strings.HasPrefix(s, ">"):
		op, s = opGt, s[1:]
	case strings.HasPrefix(s, "<"):
		op, s = opLt, s[1:]
	}
	if s == "" {
		// "" matches blank, "<>" matches non-blank
		return &Predicate{op: op, kind: operandBlank}
	}
	if k, ok := value.ParseErrorCode(s); ok {
		return &Predicate{op: op, kind: operandError, errV: k}
	}
	if f, ok := loc.ParseNumber(s); ok {
		return &Predicate{op: op, kind: operandNumber, num: f}
	}
	if b, ok := loc.ParseBool(s); ok {
		return &Predicate{op: op, kind: operandBool, boolV: b}
	}
	if serial, ok := loc.ParseDateTime(s, ds); ok {
		return &Predicate{op: op, kind: operandNumber, num: serial, loc: loc}
	}
	p := &Predicate{op: op, kind: operandText, raw: s, text: value.FoldText(s), loc: loc}
	p.hasPat = strings.ContainsAny(s, "?*~")
	return p
}

// Match reports whether the candidate cell value satisfies the
// criterion.
func (p *Predicate) Match(v value.Value) bool {
	switch p.kind {
	case operandBlank:
		isBlank := v.Kind == value.KindBlank || (v.Kind == value.KindText && v.Text == "")
		if p.op == opNe {
			return !isBlank
		}
		return isBlank
	case operandNumber:
		return p.matchNumber(v)
	case operandText:
		return p.matchText(v)
	case operandBool:
		if v.Kind != value.KindBool {
			return p.op == opNe
		}
		eq := v.B() == p.boolV
		return applyEq(p.op, eq, boolLess(v.B(), p.boolV))
	case operandError:
		if v.Kind != value.KindError {
			return p.op == opNe
		}
		eq := v.ErrKind() == p.errV
		if p.op == opNe {
			return !eq
		}
		return p.op == opEq && eq
	}
	return false
}

func (p *Predicate) matchNumber(v value.Value) bool {
	var f float64
	switch v.Kind {
	case value.KindNumber:
		f = v.Num()
	case value.KindText:
		// text that reads as a number still matches a numeric
		// equality criterion
		loc := p.loc
		if loc == nil {
			loc = locale.Default()
		}
		parsed, ok := loc.ParseNumber(v.Text)
		if !ok || (p.op != opEq && p.op != opNe) {
			return p.op == opNe
		}
		f = parsed
	default:
		return p.op == opNe
	}
	switch p.op {
	case opEq:
		return f == p.num
	case opNe:
		return f != p.num
	case opLt:
		return f < p.num
	case opLe:
		return f <= p.num
	case opGt:
		return f > p.num
	case opGe:
		return f >= p.num
	}
	return false
}

func (p *Predicate) matchText(v value.Value) bool {
	if v.Kind != value.KindText {
		return p.op == opNe
	}
	folded := value.FoldText(v.Text)
	if p.hasPat && (p.op == opEq || p.op == opNe) {
		ok := wildcardMatch(p.text, folded)
		if p.op == opNe {
			return !ok
		}
		return ok
	}
	switch p.op {
	case opEq:
		return folded == p.text
	case opNe:
		return folded != p.text
	case opLt:
		return folded < p.text
	case opLe:
		return folded <= p.text
	case opGt:
		return folded > p.text
	case opGe:
		return folded >= p.text
	}
	return false
}

func applyEq(op compareOp, eq, less bool) bool {
	switch op {
	case opEq:
		return eq
	case opNe:
		return !eq
	case opLt:
		return less
	case opLe:
		return less || eq
	case opGt:
		return !less && !eq
	case opGe:
		return !less
	}
	return false
}

func boolLess(a, b bool) bool { return !a && b }

// HasWildcard reports whether a pattern uses ? * or ~.
func HasWildcard(s string) bool { return strings.ContainsAny(s, "?*~") }

// WildcardMatch matches s against pattern case-insensitively with the
// ? and * wildcards and ~ escape.
func WildcardMatch(pattern, s string) bool {
	return wildcardMatch(value.FoldText(pattern), value.FoldText(s))
}

// wildcardMatch implements ? (one char) and * (any run) with ~ as the
// escape, over already-folded strings.
func wildcardMatch(pat, s string) bool {
	var pi, si int
	star, starSi := -1, 0
	for si < len(s) {
		if pi < len(pat) {
			switch pat[pi] {
			case '*':
				star, starSi = pi, si
				pi++
				continue
			case '?':
				pi++
				si++
				continue
			case '~':
				// only ~* ~? ~~ escape; any other tilde is literal
				if pi+1 < len(pat) && (pat[pi+1] == '*' || pat[pi+1] == '?' || pat[pi+1] == '~') {
					if pat[pi+1] == s[si] {
						pi += 2
						si++
						continue
					}
				} else if s[si] == '~' {
					pi++
					si++
					continue
				}
			default:
				if pat[pi] == s[si] {
					pi++
					si++
					continue
				}
			}
		}
		if star >= 0 {
			starSi++
			si = starSi
			pi = star + 1
			continue
		}
		return false
	}
	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat)
}
