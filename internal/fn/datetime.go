package fn

import (
	"math"

	"github.com/sheetkit/sheetkit/internal/locale"
	"github.com/sheetkit/sheetkit/pkg/value"
)

func init() {
	registerVolatile("NOW", 0, 0, func(ctx Context) value.Value {
		return value.Number(ctx.Now())
	})
	registerVolatile("TODAY", 0, 0, func(ctx Context) value.Value {
		return value.Number(math.Floor(ctx.Now()))
	})
	register("DATE", 3, 3, fnDate)
	register("TIME", 3, 3, fnTime)
	register("DATEVALUE", 1, 1, fnDateValue)
	register("TIMEVALUE", 1, 1, fnTimeValue)
	register("YEAR", 1, 1, datePart(0))
	register("MONTH", 1, 1, datePart(1))
	register("DAY", 1, 1, datePart(2))
	register("HOUR", 1, 1, timePart(0))
	register("MINUTE", 1, 1, timePart(1))
	register("SECOND", 1, 1, timePart(2))
	register("WEEKDAY", 1, 2, fnWeekday)
	register("DAYS", 2, 2, fnDays)
	register("EDATE", 2, 2, monthShift(false))
	register("EOMONTH", 2, 2, monthShift(true))
	register("DATEDIF", 3, 3, fnDatedif)
}

func fnDate(ctx Context) value.Value {
	y, errv, ok := IntArg(ctx, 0)
	if !ok {
		return errv
	}
	m, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	d, errv, ok := IntArg(ctx, 2)
	if !ok {
		return errv
	}
	// two-digit years land in the 1900s
	if y >= 0 && y < 1900 {
		y += 1900
	}
	// out-of-range month and day roll over
	y += (m - 1) / 12
	m = (m-1)%12 + 1
	if m < 1 {
		m += 12
		y--
	}
	serial, ok2 := ctx.DateSystem().SerialFromDate(y, m, 1)
	if !ok2 {
		return value.Err(value.ErrNum)
	}
	serial += float64(d - 1)
	if serial < 0 {
		return value.Err(value.ErrNum)
	}
	return value.Number(serial)
}

func fnTime(ctx Context) value.Value {
	h, errv, ok := IntArg(ctx, 0)
	if !ok {
		return errv
	}
	m, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	s, errv, ok := IntArg(ctx, 2)
	if !ok {
		return errv
	}
	total := h*3600 + m*60 + s
	if total < 0 {
		return value.Err(value.ErrNum)
	}
	frac := float64(total%86400) / 86400
	return value.Number(frac)
}

func fnDateValue(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	serial, ok2 := ctx.Locale().ParseDateTime(s, ctx.DateSystem())
	if !ok2 {
		return value.Err(value.ErrValue)
	}
	return value.Number(math.Floor(serial))
}

func fnTimeValue(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	serial, ok2 := ctx.Locale().ParseDateTime(s, ctx.DateSystem())
	if !ok2 {
		return value.Err(value.ErrValue)
	}
	return value.Number(serial - math.Floor(serial))
}

func datePart(part int) func(Context) value.Value {
	return func(ctx Context) value.Value {
		return liftNumeric1(ctx, 0, func(serial float64) (float64, value.ErrorKind) {
			y, m, d, ok := ctx.DateSystem().DateFromSerial(serial)
			if !ok {
				return 0, value.ErrNum
			}
			switch part {
			case 0:
				return float64(y), 0
			case 1:
				return float64(m), 0
			}
			return float64(d), 0
		})
	}
}

func timePart(part int) func(Context) value.Value {
	return func(ctx Context) value.Value {
		return liftNumeric1(ctx, 0, func(serial float64) (float64, value.ErrorKind) {
			if serial < 0 {
				return 0, value.ErrNum
			}
			frac := serial - math.Floor(serial)
			secs := int(math.Round(frac * 86400))
			switch part {
			case 0:
				return float64((secs / 3600) % 24), 0
			case 1:
				return float64((secs / 60) % 60), 0
			}
			return float64(secs % 60), 0
		})
	}
}

func fnWeekday(ctx Context) value.Value {
	serial, errv, ok := NumberArg(ctx, 0)
	if !ok {
		return errv
	}
	mode, errv, ok := NumberArgDefault(ctx, 1, 1)
	if !ok {
		return errv
	}
	if serial < 0 {
		return value.Err(value.ErrNum)
	}
	// serial 1 in the 1900 system is Sunday 1900-01-01
	dow := int(math.Floor(serial)) % 7 // 0=Saturday in 1900 system
	if ctx.DateSystem() == locale.Date1904 {
		// 1904-01-01 is a Friday at serial 0
		dow = (int(math.Floor(serial)) + 6) % 7
	}
	sunday := (dow + 1) % 7 // 0=Sunday
	switch int(mode) {
	case 1:
		return value.Number(float64(sunday + 1))
	case 2:
		return value.Number(float64((sunday+6)%7 + 1))
	case 3:
		return value.Number(float64((sunday + 6) % 7))
	}
	return value.Err(value.ErrNum)
}

func fnDays(ctx Context) value.Value {
	end, errv, ok := NumberArg(ctx, 0)
	if !ok {
		return errv
	}
	start, errv, ok := NumberArg(ctx, 1)
	if !ok {
		return errv
	}
	return value.Number(math.Floor(end) - math.Floor(start))
}

func monthShift(toEnd bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		serial, errv, ok := NumberArg(ctx, 0)
		if !ok {
			return errv
		}
		months, errv, ok := IntArg(ctx, 1)
		if !ok {
			return errv
		}
		y, m, d, ok2 := ctx.DateSystem().DateFromSerial(serial)
		if !ok2 {
			return value.Err(value.ErrNum)
		}
		m += months
		y += (m - 1) / 12
		m = (m-1)%12 + 1
		if m < 1 {
			m += 12
			y--
		}
		if toEnd {
			d = lastDayOfMonth(y, m)
		} else if last := lastDayOfMonth(y, m); d > last {
			d = last
		}
		out, ok2 := ctx.DateSystem().SerialFromDate(y, m, d)
		if !ok2 {
			return value.Err(value.ErrNum)
		}
		return value.Number(out)
	}
}

func lastDayOfMonth(y, m int) int {
	switch m {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if (y%4 == 0 && y%100 != 0) || y%400 == 0 {
		return 29
	}
	return 28
}

func fnDatedif(ctx Context) value.Value {
	start, errv, ok := NumberArg(ctx, 0)
	if !ok {
		return errv
	}
	end, errv, ok := NumberArg(ctx, 1)
	if !ok {
		return errv
	}
	unit, errv, ok := TextArg(ctx, 2)
	if !ok {
		return errv
	}
	if start > end {
		return value.Err(value.ErrNum)
	}
	ds := ctx.DateSystem()
	y1, m1, d1, ok1 := ds.DateFromSerial(start)
	y2, m2, d2, ok2 := ds.DateFromSerial(end)
	if !ok1 || !ok2 {
		return value.Err(value.ErrNum)
	}
	months := (y2-y1)*12 + (m2 - m1)
	if d2 < d1 {
		months--
	}
	switch value.FoldText(unit) {
	case "D":
		return value.Number(math.Floor(end) - math.Floor(start))
	case "M":
		return value.Number(float64(months))
	case "Y":
		return value.Number(float64(months / 12))
	case "MD":
		if d2 >= d1 {
			return value.Number(float64(d2 - d1))
		}
		prev := lastDayOfMonth(y2, wrapMonth(m2-1))
		return value.Number(float64(prev - d1 + d2))
	case "YM":
		return value.Number(float64(months % 12))
	case "YD":
		anchor, _ := ds.SerialFromDate(y2, m1, clampDay(y2, m1, d1))
		if anchor > end {
			anchor, _ = ds.SerialFromDate(y2-1, m1, clampDay(y2-1, m1, d1))
		}
		return value.Number(math.Floor(end) - anchor)
	}
	return value.Err(value.ErrNum)
}

func wrapMonth(m int) int {
	if m < 1 {
		return m + 12
	}
	return m
}

func clampDay(y, m, d int) int {
	if last := lastDayOfMonth(y, m); d > last {
		return last
	}
	return d
}
