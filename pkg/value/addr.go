package value

import (
	"fmt"
	"strings"
)

// Default sheet dimensions, used when the host resolver does not
// narrow them. A1 is (0,0); the last addressable cell is XFD1048576.
const (
	MaxRows = 1048576
	MaxCols = 16384
)

// SheetID is an opaque host-assigned sheet identity, stable for the
// workbook's lifetime.
type SheetID int32

// CellAddr is a zero-based cell coordinate. A1 is {0, 0}.
type CellAddr struct {
	Row uint32
	Col uint32
}

// CellKey identifies a cell across sheets.
type CellKey struct {
	Sheet SheetID
	Addr  CellAddr
}

// Range is an inclusive rectangle, normalized so Start <= End on both
// axes.
type Range struct {
	Start CellAddr
	End   CellAddr
}

// Normalize returns r with Start and End swapped per axis as needed.
func (r Range) Normalize() Range {
	if r.Start.Row > r.End.Row {
		r.Start.Row, r.End.Row = r.End.Row, r.Start.Row
	}
	if r.Start.Col > r.End.Col {
		r.Start.Col, r.End.Col = r.End.Col, r.Start.Col
	}
	return r
}

// Contains reports whether a lies inside r.
func (r Range) Contains(a CellAddr) bool {
	return a.Row >= r.Start.Row && a.Row <= r.End.Row &&
		a.Col >= r.Start.Col && a.Col <= r.End.Col
}

// Intersect returns the overlap of r and o.
func (r Range) Intersect(o Range) (Range, bool) {
	out := Range{
		Start: CellAddr{Row: maxU32(r.Start.Row, o.Start.Row), Col: maxU32(r.Start.Col, o.Start.Col)},
		End:   CellAddr{Row: minU32(r.End.Row, o.End.Row), Col: minU32(r.End.Col, o.End.Col)},
	}
	if out.Start.Row > out.End.Row || out.Start.Col > out.End.Col {
		return Range{}, false
	}
	return out, true
}

// Rows and Cols report the rectangle's extent.
func (r Range) Rows() int { return int(r.End.Row-r.Start.Row) + 1 }
func (r Range) Cols() int { return int(r.End.Col-r.Start.Col) + 1 }

// Cells reports the cell count of the rectangle.
func (r Range) Cells() int { return r.Rows() * r.Cols() }

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// ColName converts a zero-based column index to its letter form
// (0 -> A, 25 -> Z, 26 -> AA).
func ColName(col uint32) string {
	var b [4]byte
	i := len(b)
	n := int64(col) + 1
	for n > 0 {
		i--
		n--
		b[i] = byte('A' + n%26)
		n /= 26
	}
	return string(b[i:])
}

// ParseColName converts column letters to a zero-based index.
func ParseColName(s string) (uint32, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	var n uint32
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 32
		}
		if ch < 'A' || ch > 'Z' {
			return 0, false
		}
		n = n*26 + uint32(ch-'A') + 1
	}
	if n > MaxCols {
		return 0, false
	}
	return n - 1, true
}

// A1 renders the address in A1 notation.
func (a CellAddr) A1() string {
	return fmt.Sprintf("%s%d", ColName(a.Col), a.Row+1)
}

// ParseA1 parses a plain A1 address ($ markers allowed and ignored).
func ParseA1(s string) (CellAddr, bool) {
	s = strings.ReplaceAll(s, "$", "")
	i := 0
	for i < len(s) && ((s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z')) {
		i++
	}
	if i == 0 || i == len(s) || i > 3 {
		return CellAddr{}, false
	}
	col, ok := ParseColName(s[:i])
	if !ok {
		return CellAddr{}, false
	}
	var row uint64
	for j := i; j < len(s); j++ {
		if s[j] < '0' || s[j] > '9' {
			return CellAddr{}, false
		}
		row = row*10 + uint64(s[j]-'0')
		if row > MaxRows {
			return CellAddr{}, false
		}
	}
	if row == 0 {
		return CellAddr{}, false
	}
	return CellAddr{Row: uint32(row - 1), Col: col}, true
}
