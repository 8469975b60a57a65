package value

import (
	"math"

	"github.com/sheetkit/sheetkit/internal/locale"
)

// Coercion implements the scalar-context rules: text that parses as a
// number (locale-aware) becomes a number, logical keywords become
// booleans, blank is 0, booleans are 1/0. Reference-context rules
// (numeric cells only) live with the function dispatch layer, which
// knows whether a value arrived through a reference.

// ToNumber coerces v for arithmetic. The second return is the zero
// ErrorKind on success.
func ToNumber(v Value, loc *locale.Locale, ds locale.DateSystem) (float64, ErrorKind) {
	switch v.Kind {
	case KindNumber:
		return v.Num(), 0
	case KindBlank:
		return 0, 0
	case KindBool:
		if v.B() {
			return 1, 0
		}
		return 0, 0
	case KindText:
		if f, ok := loc.ParseNumber(v.Text); ok {
			return f, 0
		}
		if b, ok := loc.ParseBool(v.Text); ok {
			if b {
				return 1, 0
			}
			return 0, 0
		}
		if serial, ok := loc.ParseDateTime(v.Text, ds); ok {
			return serial, 0
		}
		return 0, ErrValue
	case KindError:
		return 0, v.ErrKind()
	case KindEntity:
		if e := v.Entity(); e != nil {
			if f, ok := loc.ParseNumber(e.Display); ok {
				return f, 0
			}
		}
		return 0, ErrValue
	}
	return 0, ErrValue
}

// ToBool coerces v for a logical context.
func ToBool(v Value, loc *locale.Locale) (bool, ErrorKind) {
	switch v.Kind {
	case KindBool:
		return v.B(), 0
	case KindNumber:
		return v.Num() != 0, 0
	case KindBlank:
		return false, 0
	case KindText:
		if b, ok := loc.ParseBool(v.Text); ok {
			return b, 0
		}
		if f, ok := loc.ParseNumber(v.Text); ok {
			return f != 0, 0
		}
		return false, ErrValue
	case KindError:
		return false, v.ErrKind()
	}
	return false, ErrValue
}

// ToText coerces v for a text context: blank is "", booleans render
// TRUE/FALSE, numbers use their display form.
func ToText(v Value) (string, ErrorKind) {
	switch v.Kind {
	case KindText:
		return v.Text, 0
	case KindBlank:
		return "", 0
	case KindNumber, KindBool:
		return v.Display(), 0
	case KindError:
		return "", v.ErrKind()
	case KindEntity:
		if e := v.Entity(); e != nil {
			return e.Display, 0
		}
		return "", 0
	}
	return "", ErrValue
}

// CheckNumber maps a non-finite intermediate result to #NUM!, per the
// rule that NaN and infinities never reach cells.
func CheckNumber(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Err(ErrNum)
	}
	return Number(f)
}
