package fn

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sheetkit/sheetkit/internal/locale"
	"github.com/sheetkit/sheetkit/pkg/value"
)

var titleCaser = cases.Title(language.Und)

func init() {
	register("CONCAT", 1, -1, fnConcat)
	register("CONCATENATE", 1, -1, fnConcatenate)
	register("TEXTJOIN", 3, -1, fnTextJoin)
	register("LEFT", 1, 2, fnLeft)
	register("RIGHT", 1, 2, fnRight)
	register("MID", 3, 3, fnMid)
	register("LEN", 1, 1, fnLen)
	register("LOWER", 1, 1, textMap(strings.ToLower))
	register("UPPER", 1, 1, textMap(strings.ToUpper))
	register("PROPER", 1, 1, textMap(func(s string) string { return titleCaser.String(s) }))
	register("TRIM", 1, 1, textMap(excelTrim))
	register("CLEAN", 1, 1, textMap(excelClean))
	register("REPT", 2, 2, fnRept)
	register("EXACT", 2, 2, fnExact)
	register("FIND", 2, 3, findFn(false))
	register("SEARCH", 2, 3, findFn(true))
	register("SUBSTITUTE", 3, 4, fnSubstitute)
	register("REPLACE", 4, 4, fnReplace)
	register("VALUE", 1, 1, fnValue)
	register("NUMBERVALUE", 1, 3, fnNumberValue)
	register("TEXT", 2, 2, fnText)
	register("T", 1, 1, fnT)
	register("CHAR", 1, 1, fnChar)
	register("CODE", 1, 1, fnCode)
	register("UNICHAR", 1, 1, fnUnichar)
	register("UNICODE", 1, 1, fnUnicode)
	register("TEXTBEFORE", 2, 3, textCut(true))
	register("TEXTAFTER", 2, 3, textCut(false))
	register("TEXTSPLIT", 2, 3, fnTextSplit)
}

func fnConcat(ctx Context) value.Value {
	var b strings.Builder
	for i := 0; i < ctx.ArgCount(); i++ {
		var errv value.Value
		ek := eachValue(ctx, i, func(cv value.Value) bool {
			if cv.IsError() {
				errv = cv
				return false
			}
			s, tek := value.ToText(cv)
			if tek != 0 {
				errv = value.Err(tek)
				return false
			}
			b.WriteString(s)
			return true
		})
		if ek != 0 {
			return value.Err(ek)
		}
		if errv.IsError() {
			return errv
		}
	}
	return value.Text(b.String())
}

// fnConcatenate is the legacy form: scalar arguments only, no range
// flattening.
func fnConcatenate(ctx Context) value.Value {
	var b strings.Builder
	for i := 0; i < ctx.ArgCount(); i++ {
		s, errv, ok := TextArg(ctx, i)
		if !ok {
			return errv
		}
		b.WriteString(s)
	}
	return value.Text(b.String())
}

func fnTextJoin(ctx Context) value.Value {
	sep, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	skipEmpty, errv, ok := BoolArg(ctx, 1)
	if !ok {
		return errv
	}
	var parts []string
	for i := 2; i < ctx.ArgCount(); i++ {
		var inner value.Value
		ek := eachValue(ctx, i, func(cv value.Value) bool {
			if cv.IsError() {
				inner = cv
				return false
			}
			s, tek := value.ToText(cv)
			if tek != 0 {
				inner = value.Err(tek)
				return false
			}
			if skipEmpty && s == "" {
				return true
			}
			parts = append(parts, s)
			return true
		})
		if ek != 0 {
			return value.Err(ek)
		}
		if inner.IsError() {
			return inner
		}
	}
	return value.Text(strings.Join(parts, sep))
}

func fnLeft(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	n, errv, ok := NumberArgDefault(ctx, 1, 1)
	if !ok {
		return errv
	}
	if n < 0 {
		return value.Err(value.ErrValue)
	}
	r := []rune(s)
	if int(n) < len(r) {
		r = r[:int(n)]
	}
	return value.Text(string(r))
}

func fnRight(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	n, errv, ok := NumberArgDefault(ctx, 1, 1)
	if !ok {
		return errv
	}
	if n < 0 {
		return value.Err(value.ErrValue)
	}
	r := []rune(s)
	if int(n) < len(r) {
		r = r[len(r)-int(n):]
	}
	return value.Text(string(r))
}

func fnMid(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	start, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	n, errv, ok := IntArg(ctx, 2)
	if !ok {
		return errv
	}
	if start < 1 || n < 0 {
		return value.Err(value.ErrValue)
	}
	r := []rune(s)
	if start > len(r) {
		return value.Text("")
	}
	end := start - 1 + n
	if end > len(r) {
		end = len(r)
	}
	return value.Text(string(r[start-1 : end]))
}

func fnLen(ctx Context) value.Value {
	v := ctx.Arg(0)
	if isArrayish(v) {
		arr, ek := ctx.Materialize(v)
		if ek != 0 {
			return value.Err(ek)
		}
		out := value.NewArray(arr.Rows, arr.Cols)
		for idx, cv := range arr.Cells {
			out.Cells[idx] = lenOne(cv)
		}
		return value.ArrayVal(out)
	}
	return lenOne(ctx.Scalar(0))
}

func lenOne(v value.Value) value.Value {
	if v.IsError() {
		return v
	}
	s, ek := value.ToText(v)
	if ek != 0 {
		return value.Err(ek)
	}
	return value.Number(float64(utf8.RuneCountInString(s)))
}

func textMap(f func(string) string) func(Context) value.Value {
	return func(ctx Context) value.Value {
		v := ctx.Arg(0)
		if isArrayish(v) {
			arr, ek := ctx.Materialize(v)
			if ek != 0 {
				return value.Err(ek)
			}
			out := value.NewArray(arr.Rows, arr.Cols)
			for idx, cv := range arr.Cells {
				out.Cells[idx] = textMapOne(cv, f)
			}
			return value.ArrayVal(out)
		}
		return textMapOne(ctx.Scalar(0), f)
	}
}

func textMapOne(v value.Value, f func(string) string) value.Value {
	if v.IsError() {
		return v
	}
	s, ek := value.ToText(v)
	if ek != 0 {
		return value.Err(ek)
	}
	return value.Text(f(s))
}

// excelTrim collapses interior space runs as well as trimming the ends.
func excelTrim(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' })
	return strings.Join(fields, " ")
}

func excelClean(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 32 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func fnRept(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	n, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	if n < 0 || n*len(s) > 32767 {
		return value.Err(value.ErrValue)
	}
	return value.Text(strings.Repeat(s, n))
}

func fnExact(ctx Context) value.Value {
	a, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	b, errv, ok := TextArg(ctx, 1)
	if !ok {
		return errv
	}
	return value.Bool(a == b)
}

func findFn(insensitive bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		needle, errv, ok := TextArg(ctx, 0)
		if !ok {
			return errv
		}
		hay, errv, ok := TextArg(ctx, 1)
		if !ok {
			return errv
		}
		start, errv, ok := NumberArgDefault(ctx, 2, 1)
		if !ok {
			return errv
		}
		hr := []rune(hay)
		if start < 1 || int(start) > len(hr)+1 {
			return value.Err(value.ErrValue)
		}
		from := int(start) - 1
		var idx int
		if insensitive {
			idx = searchRunes(value.FoldText(string(hr[from:])), value.FoldText(needle))
		} else {
			idx = searchRunes(string(hr[from:]), needle)
		}
		if idx < 0 {
			return value.Err(value.ErrValue)
		}
		return value.Number(float64(from + idx + 1))
	}
}

// searchRunes returns the rune index of needle in hay, with SEARCH
// wildcards honored by the caller via folding only. -1 when absent.
func searchRunes(hay, needle string) int {
	b := strings.Index(hay, needle)
	if b < 0 {
		return -1
	}
	return utf8.RuneCountInString(hay[:b])
}

func fnSubstitute(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	old, errv, ok := TextArg(ctx, 1)
	if !ok {
		return errv
	}
	repl, errv, ok := TextArg(ctx, 2)
	if !ok {
		return errv
	}
	if old == "" {
		return value.Text(s)
	}
	if ctx.ArgCount() < 4 || ctx.ArgOmitted(3) {
		return value.Text(strings.ReplaceAll(s, old, repl))
	}
	nth, errv, ok := IntArg(ctx, 3)
	if !ok {
		return errv
	}
	if nth < 1 {
		return value.Err(value.ErrValue)
	}
	pos, count := 0, 0
	for {
		i := strings.Index(s[pos:], old)
		if i < 0 {
			return value.Text(s)
		}
		count++
		if count == nth {
			return value.Text(s[:pos+i] + repl + s[pos+i+len(old):])
		}
		pos += i + len(old)
	}
}

func fnReplace(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	start, errv, ok := IntArg(ctx, 1)
	if !ok {
		return errv
	}
	n, errv, ok := IntArg(ctx, 2)
	if !ok {
		return errv
	}
	repl, errv, ok := TextArg(ctx, 3)
	if !ok {
		return errv
	}
	if start < 1 || n < 0 {
		return value.Err(value.ErrValue)
	}
	r := []rune(s)
	if start > len(r)+1 {
		start = len(r) + 1
	}
	end := start - 1 + n
	if end > len(r) {
		end = len(r)
	}
	return value.Text(string(r[:start-1]) + repl + string(r[end:]))
}

func fnValue(ctx Context) value.Value {
	v := ctx.Scalar(0)
	if v.IsError() {
		return v
	}
	if v.Kind == value.KindNumber {
		return v
	}
	s, ek := value.ToText(v)
	if ek != 0 {
		return value.Err(ek)
	}
	if f, ok := ctx.Locale().ParseNumber(s); ok {
		return value.Number(f)
	}
	if serial, ok := ctx.Locale().ParseDateTime(s, ctx.DateSystem()); ok {
		return value.Number(serial)
	}
	return value.Err(value.ErrValue)
}

func fnNumberValue(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	dec := "."
	group := ","
	if ctx.ArgCount() > 1 && !ctx.ArgOmitted(1) {
		d, errv, ok := TextArg(ctx, 1)
		if !ok {
			return errv
		}
		if d == "" {
			return value.Err(value.ErrValue)
		}
		dec = d[:1]
	}
	if ctx.ArgCount() > 2 && !ctx.ArgOmitted(2) {
		g, errv, ok := TextArg(ctx, 2)
		if !ok {
			return errv
		}
		if g == "" {
			return value.Err(value.ErrValue)
		}
		group = g[:1]
	}
	s = strings.TrimSpace(s)
	pct := 0
	for strings.HasSuffix(s, "%") {
		pct++
		s = strings.TrimSuffix(s, "%")
	}
	s = strings.ReplaceAll(s, group, "")
	s = strings.Replace(s, dec, ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return value.Err(value.ErrValue)
	}
	for ; pct > 0; pct-- {
		f /= 100
	}
	return value.CheckNumber(f)
}

func fnText(ctx Context) value.Value {
	v := ctx.Scalar(0)
	if v.IsError() {
		return v
	}
	format, errv, ok := TextArg(ctx, 1)
	if !ok {
		return errv
	}
	n, ek := value.ToNumber(v, ctx.Locale(), ctx.DateSystem())
	if ek != 0 {
		// non-numeric values pass through as text
		s, tek := value.ToText(v)
		if tek != 0 {
			return value.Err(tek)
		}
		return value.Text(s)
	}
	s, ok2 := formatNumber(n, format, ctx.Locale(), ctx.DateSystem())
	if !ok2 {
		return value.Err(value.ErrValue)
	}
	return value.Text(s)
}

// formatNumber supports the common numeric and date format codes:
// "0", "0.00", "#,##0", percents, and yyyy/mm/dd/hh/mm/ss tokens.
func formatNumber(n float64, format string, loc *locale.Locale, ds locale.DateSystem) (string, bool) {
	lower := strings.ToLower(format)
	if strings.ContainsAny(lower, "ymdhs") && !strings.ContainsAny(lower, "#?") {
		return formatDate(n, lower, ds)
	}
	pct := strings.Count(format, "%")
	base := strings.ReplaceAll(format, "%", "")
	for i := 0; i < pct; i++ {
		n *= 100
	}
	thousands := strings.Contains(base, ",")
	base = strings.ReplaceAll(base, ",", "")
	decimals := 0
	if dot := strings.Index(base, "."); dot >= 0 {
		decimals = strings.Count(base[dot+1:], "0") + strings.Count(base[dot+1:], "#")
	}
	s := strconv.FormatFloat(roundHalfAway(n, decimals), 'f', decimals, 64)
	if thousands {
		s = groupThousands(s)
	}
	if pct > 0 {
		s += strings.Repeat("%", pct)
	}
	return s, true
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if dot := strings.Index(s, "."); dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}
	var b strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func formatDate(serial float64, format string, ds locale.DateSystem) (string, bool) {
	y, mo, d, ok := ds.DateFromSerial(serial)
	if !ok {
		return "", false
	}
	frac := serial - math.Floor(serial)
	secs := int(math.Round(frac * 86400))
	hh, mm, ss := secs/3600, (secs/60)%60, secs%60

	var b strings.Builder
	i := 0
	for i < len(format) {
		run := 1
		for i+run < len(format) && format[i+run] == format[i] {
			run++
		}
		tok := format[i : i+run]
		switch {
		case tok[0] == 'y':
			if run >= 4 {
				fmt.Fprintf(&b, "%04d", y)
			} else {
				fmt.Fprintf(&b, "%02d", y%100)
			}
		case tok[0] == 'm':
			// month unless it follows an hour token
			if strings.ContainsRune(trailingToken(&b), 'h') {
				fmt.Fprintf(&b, "%0*d", minWidth(run), mm)
			} else {
				fmt.Fprintf(&b, "%0*d", minWidth(run), mo)
			}
		case tok[0] == 'd':
			fmt.Fprintf(&b, "%0*d", minWidth(run), d)
		case tok[0] == 'h':
			fmt.Fprintf(&b, "%0*d", minWidth(run), hh)
		case tok[0] == 's':
			fmt.Fprintf(&b, "%0*d", minWidth(run), ss)
		default:
			b.WriteString(tok)
		}
		i += run
	}
	return b.String(), true
}

func minWidth(run int) int {
	if run >= 2 {
		return 2
	}
	return 1
}

// trailingToken peeks at the most recent couple of characters already
// emitted, to disambiguate month vs minute.
func trailingToken(b *strings.Builder) string {
	s := b.String()
	if len(s) > 4 {
		s = s[len(s)-4:]
	}
	if strings.ContainsAny(s, ":") {
		return "h"
	}
	return ""
}

func fnT(ctx Context) value.Value {
	v := ctx.Scalar(0)
	if v.IsError() {
		return v
	}
	if v.Kind == value.KindText {
		return v
	}
	return value.Text("")
}

func fnChar(ctx Context) value.Value {
	n, errv, ok := IntArg(ctx, 0)
	if !ok {
		return errv
	}
	if n < 1 || n > 255 {
		return value.Err(value.ErrValue)
	}
	return value.Text(string(rune(n)))
}

func fnCode(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	if s == "" {
		return value.Err(value.ErrValue)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return value.Number(float64(r))
}

func fnUnichar(ctx Context) value.Value {
	n, errv, ok := IntArg(ctx, 0)
	if !ok {
		return errv
	}
	if n < 1 || n > 0x10FFFF {
		return value.Err(value.ErrValue)
	}
	return value.Text(string(rune(n)))
}

func fnUnicode(ctx Context) value.Value {
	return fnCode(ctx)
}

func textCut(before bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		s, errv, ok := TextArg(ctx, 0)
		if !ok {
			return errv
		}
		delim, errv, ok := TextArg(ctx, 1)
		if !ok {
			return errv
		}
		nth, errv, ok := NumberArgDefault(ctx, 2, 1)
		if !ok {
			return errv
		}
		if delim == "" || nth == 0 {
			return value.Err(value.ErrValue)
		}
		idxs := allIndexes(s, delim)
		k := int(nth)
		var pick int
		if k > 0 {
			if k > len(idxs) {
				return value.Err(value.ErrNA)
			}
			pick = idxs[k-1]
		} else {
			if -k > len(idxs) {
				return value.Err(value.ErrNA)
			}
			pick = idxs[len(idxs)+k]
		}
		if before {
			return value.Text(s[:pick])
		}
		return value.Text(s[pick+len(delim):])
	}
}

func allIndexes(s, sub string) []int {
	var out []int
	for pos := 0; ; {
		i := strings.Index(s[pos:], sub)
		if i < 0 {
			return out
		}
		out = append(out, pos+i)
		pos += i + len(sub)
	}
}

func fnTextSplit(ctx Context) value.Value {
	s, errv, ok := TextArg(ctx, 0)
	if !ok {
		return errv
	}
	colDelim, errv, ok := TextArg(ctx, 1)
	if !ok {
		return errv
	}
	if colDelim == "" {
		return value.Err(value.ErrValue)
	}
	rowDelim := ""
	if ctx.ArgCount() > 2 && !ctx.ArgOmitted(2) {
		rowDelim, errv, ok = TextArg(ctx, 2)
		if !ok {
			return errv
		}
	}
	rows := []string{s}
	if rowDelim != "" {
		rows = strings.Split(s, rowDelim)
	}
	grid := make([][]string, len(rows))
	maxCols := 0
	for i, row := range rows {
		grid[i] = strings.Split(row, colDelim)
		if len(grid[i]) > maxCols {
			maxCols = len(grid[i])
		}
	}
	out := value.NewArray(len(rows), maxCols)
	for r, cols := range grid {
		for c := 0; c < maxCols; c++ {
			if c < len(cols) {
				out.Set(r, c, value.Text(cols[c]))
			} else {
				out.Set(r, c, value.Err(value.ErrNA))
			}
		}
	}
	return value.ArrayVal(out)
}
