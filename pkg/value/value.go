// Package value implements the spreadsheet value algebra: the tagged
// sum of scalars, errors, arrays, references, lambdas and spill
// markers that flows through the evaluator, plus the cell addressing
// types and the host capability interfaces that trade in Values.
package value

import (
	"math"
	"strconv"
)

// Kind identifies the variant stored in a Value.
type Kind uint8

const (
	KindBlank Kind = iota
	KindNumber
	KindBool
	KindText
	KindError
	KindArray
	KindRef
	KindRefUnion
	KindLambda
	KindSpill
	KindEntity
)

var kindNames = map[Kind]string{
	KindBlank:    "Blank",
	KindNumber:   "Number",
	KindBool:     "Bool",
	KindText:     "Text",
	KindError:    "Error",
	KindArray:    "Array",
	KindRef:      "Reference",
	KindRefUnion: "ReferenceUnion",
	KindLambda:   "Lambda",
	KindSpill:    "Spill",
	KindEntity:   "Entity",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Value is a compact tagged union. Scalars live in Data (float64 bits,
// bool 0/1, or an ErrorKind); Text carries strings; Obj holds the heap
// variants (*Array, *Ref, *RefUnion, *Lambda, *SpillMarker, *Entity).
type Value struct {
	Kind Kind
	Data uint64
	Text string
	Obj  any
}

// Constructors

func Blank() Value {
	return Value{Kind: KindBlank}
}

func Number(v float64) Value {
	return Value{Kind: KindNumber, Data: math.Float64bits(v)}
}

func Bool(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Kind: KindBool, Data: data}
}

func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func Err(k ErrorKind) Value {
	return Value{Kind: KindError, Data: uint64(k)}
}

func ArrayVal(a *Array) Value {
	return Value{Kind: KindArray, Obj: a}
}

func RefVal(r Ref) Value {
	return Value{Kind: KindRef, Obj: &r}
}

func UnionVal(u *RefUnion) Value {
	return Value{Kind: KindRefUnion, Obj: u}
}

func LambdaVal(l *Lambda) Value {
	return Value{Kind: KindLambda, Obj: l}
}

func SpillVal(m *SpillMarker) Value {
	return Value{Kind: KindSpill, Obj: m}
}

func EntityVal(e *Entity) Value {
	return Value{Kind: KindEntity, Obj: e}
}

// Accessors. Callers are expected to have checked Kind first.

func (v Value) Num() float64 {
	return math.Float64frombits(v.Data)
}

func (v Value) B() bool {
	return v.Data == 1
}

func (v Value) ErrKind() ErrorKind {
	return ErrorKind(v.Data)
}

func (v Value) Array() *Array {
	a, _ := v.Obj.(*Array)
	return a
}

func (v Value) Ref() *Ref {
	r, _ := v.Obj.(*Ref)
	return r
}

func (v Value) Union() *RefUnion {
	u, _ := v.Obj.(*RefUnion)
	return u
}

func (v Value) Lambda() *Lambda {
	l, _ := v.Obj.(*Lambda)
	return l
}

func (v Value) Spill() *SpillMarker {
	m, _ := v.Obj.(*SpillMarker)
	return m
}

func (v Value) Entity() *Entity {
	e, _ := v.Obj.(*Entity)
	return e
}

// Predicates

func (v Value) IsBlank() bool  { return v.Kind == KindBlank }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsBool() bool   { return v.Kind == KindBool }
func (v Value) IsText() bool   { return v.Kind == KindText }
func (v Value) IsError() bool  { return v.Kind == KindError }
func (v Value) IsArray() bool  { return v.Kind == KindArray }
func (v Value) IsRef() bool    { return v.Kind == KindRef }

// IsErr reports whether v is the specific error kind.
func (v Value) IsErr(k ErrorKind) bool {
	return v.Kind == KindError && v.ErrKind() == k
}

// Display renders the value the way a cell shows it. Errors render as
// their conventional uppercase codes, booleans as TRUE/FALSE, numbers
// with the shortest round-trip representation.
func (v Value) Display() string {
	switch v.Kind {
	case KindBlank:
		return ""
	case KindNumber:
		return strconv.FormatFloat(v.Num(), 'g', -1, 64)
	case KindBool:
		if v.B() {
			return "TRUE"
		}
		return "FALSE"
	case KindText:
		return v.Text
	case KindError:
		return v.ErrKind().String()
	case KindArray:
		a := v.Array()
		if a != nil && a.Rows > 0 && a.Cols > 0 {
			return a.At(0, 0).Display()
		}
		return ErrCalc.String()
	case KindRef:
		if r := v.Ref(); r != nil {
			return r.String()
		}
		return ErrRef.String()
	case KindRefUnion:
		return ErrValue.String()
	case KindLambda:
		return ErrCalc.String()
	case KindSpill:
		return ""
	case KindEntity:
		if e := v.Entity(); e != nil {
			return e.Display
		}
		return ""
	}
	return ""
}

// Entity is opaque user data with a display string. Entities compare
// by identity and only coerce through their display text.
type Entity struct {
	ID      string
	Display string
	Fields  map[string]Value
}

// Lambda is a first-class function value: parameter names, a compiled
// body (owned by the vm package, held here as an opaque handle) and an
// immutable snapshot of the lexical environment at capture time.
type Lambda struct {
	Params   []string
	Optional []bool
	Body     any
	Env      *Env
}

// Env is an immutable chain of local bindings. Lookup walks outward;
// extension allocates a new frame, so captured snapshots never observe
// later rebindings.
type Env struct {
	parent *Env
	name   string
	val    Value
}

// Parent returns the enclosing frame.
func (e *Env) Parent() *Env {
	if e == nil {
		return nil
	}
	return e.parent
}

// Bind returns a new environment with name bound over e.
func (e *Env) Bind(name string, v Value) *Env {
	return &Env{parent: e, name: name, val: v}
}

// Lookup returns the innermost binding for name.
func (e *Env) Lookup(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if f.name == name {
			return f.val, true
		}
	}
	return Value{}, false
}
