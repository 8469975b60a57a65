package value

// Resolver is the read capability the host supplies to the evaluator.
// All cell reads during evaluation go through it.
type Resolver interface {
	// SheetExists reports whether the sheet id is live.
	SheetExists(sheet SheetID) bool

	// SheetDimensions returns the used extent of a sheet. The
	// evaluator clamps whole-row/column references to it.
	SheetDimensions(sheet SheetID) (rows, cols int)

	// CellValue returns the value stored at addr. Blank cells return
	// a Blank value; spill-marker cells resolve to the corresponding
	// element of the origin's array.
	CellValue(sheet SheetID, addr CellAddr) Value

	// SheetByName maps a sheet name to its id (used by INDIRECT and
	// external reference resolution).
	SheetByName(name string) (SheetID, bool)

	// ResolveStructured maps a structured (table) reference to the
	// concrete rectangle it denotes. ok is false when the table or
	// column is unknown.
	ResolveStructured(cur CellKey, sref *StructuredRef) (Ref, bool)
}

// GridMut is the write capability. The recalc engine publishes layer
// results and spill markers through it.
type GridMut interface {
	SetValue(key CellKey, v Value)
	Clear(key CellKey)
}

// ExternalValueProvider resolves references into external workbooks
// ([Book.xlsx]Sheet1!A1). The core preserves external syntax and
// delegates the lookup; a nil provider makes such references #REF!.
type ExternalValueProvider interface {
	ExternalValue(book, sheet string, addr CellAddr) (Value, bool)
}

// StructuredItem selects the region of a table a structured reference
// addresses.
type StructuredItem uint8

const (
	ItemData StructuredItem = iota // default: data rows
	ItemAll
	ItemHeaders
	ItemTotals
	ItemThisRow // Table[@Col]
)

// StructuredRef names a table and one of its columns/regions,
// independent of absolute coordinates.
type StructuredRef struct {
	Table    string
	Item     StructuredItem
	StartCol string // empty: all columns
	EndCol   string // empty: single column
}
