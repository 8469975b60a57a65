// Package locale holds the workbook-scoped value locale and date
// system. The locale governs value-level text parsing only; formula
// grammar stays invariant English.
package locale

import (
	"strconv"
	"strings"
)

// DateOrder fixes how an ambiguous numeric date string is read.
type DateOrder uint8

const (
	OrderMDY DateOrder = iota
	OrderDMY
	OrderYMD
)

// Locale is the workbook value locale.
type Locale struct {
	Decimal   rune
	Thousands rune
	List      rune
	TimeSep   rune
	DateSep   rune
	Order     DateOrder
}

// Default returns the invariant en-US locale.
func Default() *Locale {
	return &Locale{Decimal: '.', Thousands: ',', List: ',', TimeSep: ':', DateSep: '/', Order: OrderMDY}
}

// ParseNumber parses s as a locale-aware number. Thousands separators
// must group correctly; a lone separator fails. Leading/trailing
// whitespace is tolerated, as are a leading sign and a trailing %.
func (l *Locale) ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	pct := false
	if strings.HasSuffix(s, "%") {
		pct = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}

	var b strings.Builder
	sawDecimal := false
	sawDigit := false
	digitsSinceGroup := -1
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			sawDigit = true
			if digitsSinceGroup >= 0 {
				digitsSinceGroup++
			}
			b.WriteRune(r)
		case r == l.Decimal && !sawDecimal:
			if digitsSinceGroup >= 0 && digitsSinceGroup != 3 {
				return 0, false
			}
			sawDecimal = true
			digitsSinceGroup = -1
			b.WriteByte('.')
		case r == l.Thousands && !sawDecimal:
			if !sawDigit {
				return 0, false
			}
			if digitsSinceGroup >= 0 && digitsSinceGroup != 3 {
				return 0, false
			}
			digitsSinceGroup = 0
		case r == 'e' || r == 'E':
			// exponent: hand the rest to strconv
			b.WriteRune(r)
			digitsSinceGroup = -1
			sawDecimal = true
		case r == '+' || r == '-':
			b.WriteRune(r)
		default:
			return 0, false
		}
	}
	if digitsSinceGroup >= 0 && digitsSinceGroup != 3 {
		return 0, false
	}
	if !sawDigit {
		return 0, false
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	if pct {
		f /= 100
	}
	return f, true
}

// ParseBool recognizes the logical keywords.
func (l *Locale) ParseBool(s string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	}
	return false, false
}
