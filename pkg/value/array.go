package value

// Array is a rectangular rows x cols matrix of Values stored
// row-major.
type Array struct {
	Rows  int
	Cols  int
	Cells []Value
}

// NewArray allocates a blank-filled array.
func NewArray(rows, cols int) *Array {
	return &Array{Rows: rows, Cols: cols, Cells: make([]Value, rows*cols)}
}

// Scalarize wraps a scalar in a 1x1 array.
func Scalarize(v Value) *Array {
	return &Array{Rows: 1, Cols: 1, Cells: []Value{v}}
}

// At returns the element at (r, c). Out-of-bounds access yields #REF!.
func (a *Array) At(r, c int) Value {
	if r < 0 || r >= a.Rows || c < 0 || c >= a.Cols {
		return Err(ErrRef)
	}
	return a.Cells[r*a.Cols+c]
}

// Set stores v at (r, c). Out-of-bounds stores are ignored.
func (a *Array) Set(r, c int, v Value) {
	if r < 0 || r >= a.Rows || c < 0 || c >= a.Cols {
		return
	}
	a.Cells[r*a.Cols+c] = v
}

// IsScalar reports whether the array holds exactly one element.
func (a *Array) IsScalar() bool {
	return a.Rows == 1 && a.Cols == 1
}

// FirstError returns the first error element in row-major order.
func (a *Array) FirstError() (Value, bool) {
	for _, v := range a.Cells {
		if v.IsError() {
			return v, true
		}
	}
	return Value{}, false
}

// BroadcastShape computes the elementwise result shape of two arrays
// under spreadsheet broadcasting: a 1-extent axis stretches to match
// the other operand; mismatched extents still produce the larger shape
// and the uncovered cells evaluate to #N/A.
func BroadcastShape(r1, c1, r2, c2 int) (int, int) {
	rows := r1
	if r2 > rows {
		rows = r2
	}
	cols := c1
	if c2 > cols {
		cols = c2
	}
	return rows, cols
}

// BroadcastAt fetches the element of a for result position (r, c)
// under broadcasting rules. Positions beyond a non-1 extent yield
// #N/A, matching spreadsheet array semantics.
func (a *Array) BroadcastAt(r, c int) Value {
	switch {
	case a.Rows == 1:
		r = 0
	case r >= a.Rows:
		return Err(ErrNA)
	}
	switch {
	case a.Cols == 1:
		c = 0
	case c >= a.Cols:
		return Err(ErrNA)
	}
	return a.Cells[r*a.Cols+c]
}
