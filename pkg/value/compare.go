package value

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upperCaser = cases.Upper(language.Und)

// FoldText returns the Unicode uppercase folding of s, so that "ß"
// compares equal to "SS".
func FoldText(s string) string {
	return upperCaser.String(s)
}

// TextEqualFold compares two strings case-insensitively with full
// Unicode folding.
func TextEqualFold(a, b string) bool {
	return FoldText(a) == FoldText(b)
}

// typeRank orders value categories for relational comparison:
// number < text < bool.
func typeRank(v Value) int {
	switch v.Kind {
	case KindBlank, KindNumber:
		return 0
	case KindText:
		return 1
	case KindBool:
		return 2
	}
	return 3
}

// Compare implements the operator ordering over scalars. It returns
// -1, 0 or 1; mixed categories order by rank and never compare equal
// (except blank, which coerces toward its counterpart's category).
func Compare(a, b Value) int {
	// blanks adopt the other operand's category
	if a.Kind == KindBlank && b.Kind != KindBlank {
		a = blankAs(b)
	}
	if b.Kind == KindBlank && a.Kind != KindBlank {
		b = blankAs(a)
	}

	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case KindBlank:
		return 0
	case KindNumber:
		an, bn := a.Num(), b.Num()
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case KindText:
		fa, fb := FoldText(a.Text), FoldText(b.Text)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case KindBool:
		av, bv := a.B(), b.B()
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	}
	return 0
}

func blankAs(other Value) Value {
	switch other.Kind {
	case KindText:
		return Text("")
	case KindBool:
		return Bool(false)
	default:
		return Number(0)
	}
}

// Equal reports operator equality: different categories are unequal,
// text equality is case-insensitive, entities compare by identity.
func Equal(a, b Value) bool {
	if a.Kind == KindEntity || b.Kind == KindEntity {
		ea, eb := a.Entity(), b.Entity()
		return ea != nil && eb != nil && ea == eb
	}
	if typeRank(a) != typeRank(b) {
		// blank still matches the other category's zero value
		if a.Kind == KindBlank || b.Kind == KindBlank {
			return Compare(a, b) == 0
		}
		return false
	}
	return Compare(a, b) == 0
}
