package value

import "fmt"

// Ref designates a rectangular region on a sheet (or a contiguous run
// of sheets for 3-D references), as opposed to a materialized array of
// that region's contents.
type Ref struct {
	Sheet    SheetID
	SheetEnd SheetID // equal to Sheet except for 3-D references
	Range    Range
	WholeCol bool // A:C style; rows span the full sheet height
	WholeRow bool // 5:7 style; cols span the full sheet width
}

// SingleCell reports whether the reference covers exactly one cell on
// one sheet.
func (r *Ref) SingleCell() bool {
	return r.Sheet == r.SheetEnd &&
		r.Range.Start == r.Range.End && !r.WholeCol && !r.WholeRow
}

// Cell returns the reference's single cell key; only meaningful when
// SingleCell reports true.
func (r *Ref) Cell() CellKey {
	return CellKey{Sheet: r.Sheet, Addr: r.Range.Start}
}

// SheetSpan reports how many sheets the reference covers.
func (r *Ref) SheetSpan() int {
	return int(r.SheetEnd-r.Sheet) + 1
}

func (r *Ref) String() string {
	if r.SingleCell() {
		return r.Range.Start.A1()
	}
	return fmt.Sprintf("%s:%s", r.Range.Start.A1(), r.Range.End.A1())
}

// CellRef builds a single-cell reference.
func CellRef(key CellKey) Ref {
	return Ref{Sheet: key.Sheet, SheetEnd: key.Sheet, Range: Range{Start: key.Addr, End: key.Addr}}
}

// RangeRef builds a rectangular reference on one sheet.
func RangeRef(sheet SheetID, rng Range) Ref {
	return Ref{Sheet: sheet, SheetEnd: sheet, Range: rng.Normalize()}
}

// RefUnion is a comma-union of references, e.g. (A1:A2, C1:C2).
type RefUnion struct {
	Refs []Ref
}

// Cells reports the total cell count across all areas.
func (u *RefUnion) Cells() int {
	n := 0
	for i := range u.Refs {
		n += u.Refs[i].Range.Cells() * u.Refs[i].SheetSpan()
	}
	return n
}

// SpillMarker reserves a non-origin cell of a spilled array. The
// origin cell stores the full array; every other cell in the spill
// rectangle stores a marker pointing back at it.
type SpillMarker struct {
	Origin CellKey
	Rows   int
	Cols   int
}

// Covers reports whether addr (on the origin's sheet) lies inside the
// marker's spill rectangle.
func (m *SpillMarker) Covers(addr CellAddr) bool {
	o := m.Origin.Addr
	return addr.Row >= o.Row && int(addr.Row) < int(o.Row)+m.Rows &&
		addr.Col >= o.Col && int(addr.Col) < int(o.Col)+m.Cols
}
