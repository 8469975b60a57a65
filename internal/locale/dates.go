package locale

import (
	"strconv"
	"strings"
)

// DateSystem selects the workbook serial-date epoch.
type DateSystem uint8

const (
	// Date1900 counts 1900-01-01 as serial 1 and keeps the Lotus
	// compatibility quirk: the nonexistent 1900-02-29 occupies
	// serial 60.
	Date1900 DateSystem = iota
	// Date1904 counts 1904-01-01 as serial 0.
	Date1904
)

// days_from_civil / civil_from_days per Howard Hinnant's algorithms,
// shifted so the era math stays in int64.

func daysFromCivil(y, m, d int) int64 {
	if m <= 2 {
		y--
	}
	var era int64
	if y >= 0 {
		era = int64(y) / 400
	} else {
		era = (int64(y) - 399) / 400
	}
	yoe := int64(y) - era*400
	var mp int64
	if m > 2 {
		mp = int64(m) - 3
	} else {
		mp = int64(m) + 9
	}
	doy := (153*mp+2)/5 + int64(d) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func civilFromDays(z int64) (int, int, int) {
	z += 719468
	var era int64
	if z >= 0 {
		era = z / 146097
	} else {
		era = (z - 146096) / 146097
	}
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d := doy - (153*mp+2)/5 + 1
	var m int64
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return int(y), int(m), int(d)
}

const (
	epoch1900 = -25568 // daysFromCivil(1899, 12, 31)
	epoch1904 = -24107 // daysFromCivil(1904, 1, 1)
)

// SerialFromDate converts a civil date to a serial day count under the
// date system. ok is false for invalid dates; the Lotus 1900-02-29
// quirk is honored under Date1900.
func (ds DateSystem) SerialFromDate(y, m, d int) (float64, bool) {
	if ds == Date1900 && y == 1900 && m == 2 && d == 29 {
		return 60, true
	}
	if !validCivil(y, m, d) {
		return 0, false
	}
	days := daysFromCivil(y, m, d)
	switch ds {
	case Date1900:
		serial := days - epoch1900
		if serial < 1 {
			return 0, false
		}
		if serial >= 60 {
			serial++ // skip over the phantom leap day
		}
		return float64(serial), true
	default:
		serial := days - epoch1904
		if serial < 0 {
			return 0, false
		}
		return float64(serial), true
	}
}

// DateFromSerial converts a serial day count back to a civil date.
func (ds DateSystem) DateFromSerial(serial float64) (int, int, int, bool) {
	whole := int64(serial)
	if serial < 0 {
		return 0, 0, 0, false
	}
	switch ds {
	case Date1900:
		if whole == 60 {
			return 1900, 2, 29, true
		}
		if whole > 60 {
			whole--
		}
		if whole < 1 {
			return 0, 0, 0, false
		}
		y, m, d := civilFromDays(whole + epoch1900)
		return y, m, d, true
	default:
		y, m, d := civilFromDays(whole + epoch1904)
		return y, m, d, true
	}
}

func validCivil(y, m, d int) bool {
	if y < 0 || y > 9999 || m < 1 || m > 12 || d < 1 {
		return false
	}
	return d <= daysInMonth(y, m)
}

func daysInMonth(y, m int) int {
	switch m {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if isLeap(y) {
		return 29
	}
	return 28
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// ParseDateTime parses a date, a time, or a date plus time as a serial
// value under the locale's date order. It accepts the locale date
// separator plus '-' as a fallback.
func (l *Locale) ParseDateTime(s string, ds DateSystem) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	datePart := s
	timePart := ""
	if i := strings.IndexByte(s, ' '); i > 0 {
		datePart, timePart = s[:i], strings.TrimSpace(s[i+1:])
	}

	if strings.ContainsRune(datePart, l.TimeSep) && timePart == "" {
		// time only
		frac, ok := l.parseTime(datePart)
		if !ok {
			return 0, false
		}
		return frac, true
	}

	serial, ok := l.parseDate(datePart, ds)
	if !ok {
		return 0, false
	}
	if timePart != "" {
		frac, ok := l.parseTime(timePart)
		if !ok {
			return 0, false
		}
		serial += frac
	}
	return serial, true
}

func (l *Locale) parseDate(s string, ds DateSystem) (float64, bool) {
	sep := string(l.DateSep)
	parts := strings.Split(s, sep)
	if len(parts) < 2 {
		parts = strings.Split(s, "-")
	}
	if len(parts) != 3 {
		return 0, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, false
		}
		nums[i] = n
	}
	var y, m, d int
	switch l.Order {
	case OrderDMY:
		d, m, y = nums[0], nums[1], nums[2]
	case OrderYMD:
		y, m, d = nums[0], nums[1], nums[2]
	default:
		m, d, y = nums[0], nums[1], nums[2]
	}
	// four-digit years only when the first field is wide in YMD
	if y < 100 {
		if y < 30 {
			y += 2000
		} else {
			y += 1900
		}
	}
	return ds.SerialFromDate(y, m, d)
}

func (l *Locale) parseTime(s string) (float64, bool) {
	parts := strings.Split(s, string(l.TimeSep))
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 {
		return 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	sec := 0.0
	if len(parts) == 3 {
		sec, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || sec < 0 || sec >= 60 {
			return 0, false
		}
	}
	return (float64(h)*3600 + float64(m)*60 + sec) / 86400, true
}
