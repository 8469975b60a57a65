// Package workbook ties the evaluation core together: sheet and cell
// storage, formula compilation through the shared program cache, the
// dependency graph, defined names, spill management and the
// recalculation scheduler.
//
// A Workbook is not safe for concurrent use by multiple goroutines;
// recalculation manages its own internal parallelism.
package workbook

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheetkit/sheetkit/internal/graph"
	"github.com/sheetkit/sheetkit/internal/locale"
	"github.com/sheetkit/sheetkit/internal/parser"
	"github.com/sheetkit/sheetkit/internal/vm"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// cell is one grid slot. Plain inputs have a nil formula; formula
// cells keep their source text and interned program alongside the
// last computed value.
type cell struct {
	v       value.Value
	formula *formula
}

type formula struct {
	text string // source without the leading =
	prog *vm.Program

	// extent of the spill published from this cell, 0 when scalar
	spillRows int
	spillCols int
}

type sheet struct {
	id    value.SheetID
	name  string
	cells map[value.CellAddr]*cell

	// used extent, grows monotonically
	maxRow uint32
	maxCol uint32
	used   bool
}

// table backs structured references: a named rectangle with one
// header row and optionally one totals row.
type table struct {
	sheet     value.SheetID
	rng       value.Range
	headers   []string
	hasTotals bool
}

// Workbook is a set of sheets plus everything needed to evaluate the
// formulas on them.
type Workbook struct {
	// ID identifies the workbook instance, e.g. in provider lookups
	// and diagnostics.
	ID uuid.UUID

	settings Settings
	loc      *locale.Locale
	dateSys  locale.DateSystem

	sheets []*sheet
	byID   map[value.SheetID]*sheet
	nextID value.SheetID

	names      map[string]value.Value
	sheetNames map[value.SheetID]map[string]value.Value
	tables     map[string]*table

	graph *graph.Graph
	cache *vm.Cache
	ext   value.ExternalValueProvider

	// edits since the last recalculation pass
	pending map[value.CellKey]struct{}

	// spill origins currently showing #SPILL!, rechecked when any
	// cell on their sheet is cleared or overwritten
	blocked map[value.CellKey]struct{}

	// origins with a live spill rectangle; edits landing inside one
	// dirty the origin so it can re-spill or block
	spillOrigins map[value.CellKey]struct{}

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

// New builds an empty workbook with default settings and one sheet
// named Sheet1.
func New() *Workbook {
	return NewWithSettings(DefaultSettings())
}

// NewWithSettings builds an empty workbook. The settings are fixed
// for the workbook's lifetime.
func NewWithSettings(s Settings) *Workbook {
	if err := s.validate(); err != nil {
		s = DefaultSettings()
	}
	wb := &Workbook{
		ID:         uuid.New(),
		settings:   s,
		loc:        s.locale(),
		dateSys:    s.dateSystem(),
		byID:         map[value.SheetID]*sheet{},
		names:        map[string]value.Value{},
		sheetNames:   map[value.SheetID]map[string]value.Value{},
		tables:       map[string]*table{},
		graph:        graph.New(),
		cache:        vm.NewCache(vm.DefaultCacheSize),
		pending:      map[value.CellKey]struct{}{},
		blocked:      map[value.CellKey]struct{}{},
		spillOrigins: map[value.CellKey]struct{}{},
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
	wb.addSheet("Sheet1")
	return wb
}

// Settings returns the workbook's fixed configuration.
func (wb *Workbook) Settings() Settings { return wb.settings }

// SetExternalProvider installs the resolver for [Book]Sheet!A1
// references. A nil provider leaves them evaluating to #REF!.
func (wb *Workbook) SetExternalProvider(p value.ExternalValueProvider) { wb.ext = p }

// Sheets returns the sheet names in tab order.
func (wb *Workbook) Sheets() []string {
	out := make([]string, len(wb.sheets))
	for i, sh := range wb.sheets {
		out[i] = sh.name
	}
	return out
}

func (wb *Workbook) addSheet(name string) *sheet {
	sh := &sheet{id: wb.nextID, name: name, cells: map[value.CellAddr]*cell{}}
	wb.nextID++
	wb.sheets = append(wb.sheets, sh)
	wb.byID[sh.id] = sh
	return sh
}

func (wb *Workbook) sheetNamed(name string) *sheet {
	for _, sh := range wb.sheets {
		if strings.EqualFold(sh.name, name) {
			return sh
		}
	}
	return nil
}

// AddSheet appends a sheet. Names are case-insensitively unique.
func (wb *Workbook) AddSheet(name string) error {
	if name == "" {
		return fmt.Errorf("workbook: empty sheet name")
	}
	if wb.sheetNamed(name) != nil {
		return fmt.Errorf("workbook: sheet %q already exists", name)
	}
	wb.addSheet(name)
	return nil
}

// RenameSheet renames a sheet and rewrites the source text of every
// formula that mentions it. Compiled programs reference sheets by id
// and are unaffected.
func (wb *Workbook) RenameSheet(oldName, newName string) error {
	sh := wb.sheetNamed(oldName)
	if sh == nil {
		return fmt.Errorf("workbook: no sheet %q", oldName)
	}
	if newName == "" {
		return fmt.Errorf("workbook: empty sheet name")
	}
	if other := wb.sheetNamed(newName); other != nil && other != sh {
		return fmt.Errorf("workbook: sheet %q already exists", newName)
	}
	sh.name = newName
	for _, s := range wb.sheets {
		for _, c := range s.cells {
			if c.formula != nil {
				c.formula.text = rewriteSheetName(c.formula.text, oldName, newName)
			}
		}
	}
	return nil
}

// DeleteSheet removes a sheet. Formulas elsewhere that reference it
// evaluate to #REF! from the next pass on.
func (wb *Workbook) DeleteSheet(name string) error {
	sh := wb.sheetNamed(name)
	if sh == nil {
		return fmt.Errorf("workbook: no sheet %q", name)
	}
	if len(wb.sheets) == 1 {
		return fmt.Errorf("workbook: cannot delete the last sheet")
	}
	// everything that read the dead sheet needs a pass
	for cellKey := range wb.graph.All() {
		if cellKey.Sheet == sh.id {
			continue
		}
		for _, ref := range wb.graph.Precedents(cellKey) {
			if ref.Sheet <= sh.id && sh.id <= ref.SheetEnd {
				wb.pending[cellKey] = struct{}{}
				break
			}
		}
	}
	wb.graph.DropSheet(sh.id)
	delete(wb.byID, sh.id)
	delete(wb.sheetNames, sh.id)
	for i, s := range wb.sheets {
		if s == sh {
			wb.sheets = append(wb.sheets[:i], wb.sheets[i+1:]...)
			break
		}
	}
	for k := range wb.blocked {
		if k.Sheet == sh.id {
			delete(wb.blocked, k)
		}
	}
	for k := range wb.spillOrigins {
		if k.Sheet == sh.id {
			delete(wb.spillOrigins, k)
		}
	}
	return nil
}

func (wb *Workbook) cellAt(sheetName, a1 string) (*sheet, value.CellAddr, error) {
	sh := wb.sheetNamed(sheetName)
	if sh == nil {
		return nil, value.CellAddr{}, fmt.Errorf("workbook: no sheet %q", sheetName)
	}
	addr, ok := value.ParseA1(a1)
	if !ok {
		return nil, value.CellAddr{}, fmt.Errorf("workbook: bad cell address %q", a1)
	}
	return sh, addr, nil
}

func (sh *sheet) touch(addr value.CellAddr) {
	if !sh.used || addr.Row > sh.maxRow {
		sh.maxRow = addr.Row
	}
	if !sh.used || addr.Col > sh.maxCol {
		sh.maxCol = addr.Col
	}
	sh.used = true
}

// edited records a mutation for the next dirty computation and
// requeues blocked spill origins on the same sheet, since the edit
// may have unblocked (or newly blocked) them.
func (wb *Workbook) edited(key value.CellKey) {
	wb.pending[key] = struct{}{}
	for origin := range wb.blocked {
		if origin.Sheet == key.Sheet {
			wb.pending[origin] = struct{}{}
		}
	}
	for origin := range wb.spillOrigins {
		if origin.Sheet != key.Sheet || origin == key {
			continue
		}
		f := wb.formulaAt(origin)
		if f == nil || f.spillRows == 0 {
			continue
		}
		m := value.SpillMarker{Origin: origin, Rows: f.spillRows, Cols: f.spillCols}
		if m.Covers(key.Addr) {
			wb.pending[origin] = struct{}{}
		}
	}
}

// dropCell clears a slot, tearing down any spill it anchored.
func (wb *Workbook) dropCell(sh *sheet, addr value.CellAddr) {
	key := value.CellKey{Sheet: sh.id, Addr: addr}
	c := sh.cells[addr]
	if c != nil && c.formula != nil {
		wb.retractSpill(sh, c.formula, addr)
		wb.graph.Remove(key)
	}
	delete(sh.cells, addr)
	delete(wb.blocked, key)
}

// SetValue stores a plain value, replacing any formula.
func (wb *Workbook) SetValue(sheetName, a1 string, v value.Value) error {
	sh, addr, err := wb.cellAt(sheetName, a1)
	if err != nil {
		return err
	}
	wb.dropCell(sh, addr)
	sh.cells[addr] = &cell{v: v}
	sh.touch(addr)
	wb.edited(value.CellKey{Sheet: sh.id, Addr: addr})
	return nil
}

// SetFormula compiles src (with or without a leading =) at the cell
// and installs it. The program is interned in the shared cache; its
// static references become the cell's graph precedents.
func (wb *Workbook) SetFormula(sheetName, a1, src string) error {
	sh, addr, err := wb.cellAt(sheetName, a1)
	if err != nil {
		return err
	}
	src = strings.TrimPrefix(strings.TrimSpace(src), "=")
	expr, err := parser.Parse(src)
	if err != nil {
		return err
	}
	key := value.CellKey{Sheet: sh.id, Addr: addr}
	prog, err := vm.Compile(expr, key, wb)
	if err != nil {
		return err
	}
	prog = wb.cache.Intern(prog)

	wb.dropCell(sh, addr)
	sh.cells[addr] = &cell{v: value.Blank(), formula: &formula{text: src, prog: prog}}
	sh.touch(addr)

	var refs []value.Ref
	prog.EachRef(key, func(r value.Ref) { refs = append(refs, r) })
	prog.EachStructured(func(s value.StructuredRef) {
		if r, ok := wb.ResolveStructured(key, &s); ok {
			refs = append(refs, r)
		}
	})
	wb.graph.SetPrecedents(key, refs, prog.Volatile)
	wb.edited(key)
	return nil
}

// Clear empties a cell.
func (wb *Workbook) Clear(sheetName, a1 string) error {
	sh, addr, err := wb.cellAt(sheetName, a1)
	if err != nil {
		return err
	}
	wb.dropCell(sh, addr)
	wb.edited(value.CellKey{Sheet: sh.id, Addr: addr})
	return nil
}

// Value returns the cell's current value; formula cells report their
// last computed result. Spill-covered cells resolve to their element
// of the origin array.
func (wb *Workbook) Value(sheetName, a1 string) (value.Value, error) {
	sh, addr, err := wb.cellAt(sheetName, a1)
	if err != nil {
		return value.Value{}, err
	}
	return wb.CellValue(sh.id, addr), nil
}

// Display renders a cell the way it would show in its grid slot.
func (wb *Workbook) Display(sheetName, a1 string) (string, error) {
	v, err := wb.Value(sheetName, a1)
	if err != nil {
		return "", err
	}
	if v.Kind == value.KindArray {
		// the origin slot shows the top-left element
		return v.Array().At(0, 0).Display(), nil
	}
	return v.Display(), nil
}

// FormulaText returns the cell's formula source with a leading =, or
// ok=false for plain cells.
func (wb *Workbook) FormulaText(sheetName, a1 string) (string, bool) {
	sh, addr, err := wb.cellAt(sheetName, a1)
	if err != nil {
		return "", false
	}
	c := sh.cells[addr]
	if c == nil || c.formula == nil {
		return "", false
	}
	return "=" + c.formula.text, true
}

// ParseLiteral interprets user input the way a cell entry would:
// numbers, booleans and date-times per the workbook locale, error
// codes, and a leading apostrophe forcing text.
func (wb *Workbook) ParseLiteral(s string) value.Value {
	if strings.HasPrefix(s, "'") {
		return value.Text(s[1:])
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return value.Blank()
	}
	if n, ok := wb.loc.ParseNumber(t); ok {
		return value.Number(n)
	}
	if b, ok := wb.loc.ParseBool(t); ok {
		return value.Bool(b)
	}
	if ek, ok := value.ParseErrorCode(t); ok {
		return value.Err(ek)
	}
	if serial, ok := wb.loc.ParseDateTime(t, wb.dateSys); ok {
		return value.Number(serial)
	}
	return value.Text(s)
}

// Disassemble renders the compiled program of a formula cell; ok is
// false for plain cells.
func (wb *Workbook) Disassemble(sheetName, a1 string) (string, bool) {
	sh, addr, err := wb.cellAt(sheetName, a1)
	if err != nil {
		return "", false
	}
	c := sh.cells[addr]
	if c == nil || c.formula == nil {
		return "", false
	}
	return vm.Disassemble(c.formula.prog), true
}

// SpillExtent reports the rectangle spilled from an origin cell;
// ok is false when the cell holds no spill.
func (wb *Workbook) SpillExtent(sheetName, a1 string) (rows, cols int, ok bool) {
	sh, addr, err := wb.cellAt(sheetName, a1)
	if err != nil {
		return 0, 0, false
	}
	c := sh.cells[addr]
	if c == nil || c.formula == nil || c.formula.spillRows == 0 {
		return 0, 0, false
	}
	return c.formula.spillRows, c.formula.spillCols, true
}

// DefineName binds a workbook-scoped name. Names are
// case-insensitive.
func (wb *Workbook) DefineName(name string, v value.Value) {
	wb.names[strings.ToUpper(name)] = v
}

// DefineSheetName binds a name scoped to one sheet; it shadows a
// workbook-scoped name of the same spelling for formulas on that
// sheet.
func (wb *Workbook) DefineSheetName(sheetName, name string, v value.Value) error {
	sh := wb.sheetNamed(sheetName)
	if sh == nil {
		return fmt.Errorf("workbook: no sheet %q", sheetName)
	}
	scope := wb.sheetNames[sh.id]
	if scope == nil {
		scope = map[string]value.Value{}
		wb.sheetNames[sh.id] = scope
	}
	scope[strings.ToUpper(name)] = v
	return nil
}

// DefineTable registers a table rectangle for structured references.
// The first row of rng is the header row; when hasTotals is set the
// last row is the totals row.
func (wb *Workbook) DefineTable(name, sheetName string, rng value.Range, headers []string, hasTotals bool) error {
	sh := wb.sheetNamed(sheetName)
	if sh == nil {
		return fmt.Errorf("workbook: no sheet %q", sheetName)
	}
	if len(headers) != rng.Cols() {
		return fmt.Errorf("workbook: table %s: %d headers for %d columns", name, len(headers), rng.Cols())
	}
	wb.tables[strings.ToUpper(name)] = &table{
		sheet: sh.id, rng: rng.Normalize(), headers: headers, hasTotals: hasTotals,
	}
	return nil
}

// ProgramCount reports how many distinct compiled programs the cache
// holds.
func (wb *Workbook) ProgramCount() int {
	_, _, n := wb.cache.Stats()
	return n
}

// CacheStats reports program-cache hit and miss counts.
func (wb *Workbook) CacheStats() (hits, misses uint64) {
	h, m, _ := wb.cache.Stats()
	return h, m
}

// Resolver implementation. The evaluator reads the grid through
// these during recalculation.

func (wb *Workbook) SheetExists(id value.SheetID) bool {
	_, ok := wb.byID[id]
	return ok
}

func (wb *Workbook) SheetDimensions(id value.SheetID) (rows, cols int) {
	sh := wb.byID[id]
	if sh == nil || !sh.used {
		return 0, 0
	}
	return int(sh.maxRow) + 1, int(sh.maxCol) + 1
}

func (wb *Workbook) CellValue(id value.SheetID, addr value.CellAddr) value.Value {
	sh := wb.byID[id]
	if sh == nil {
		return value.Err(value.ErrRef)
	}
	c := sh.cells[addr]
	if c == nil {
		return value.Blank()
	}
	if m := c.v.Spill(); m != nil {
		origin := wb.byID[m.Origin.Sheet]
		if origin == nil {
			return value.Blank()
		}
		oc := origin.cells[m.Origin.Addr]
		if oc == nil {
			return value.Blank()
		}
		if a := oc.v.Array(); a != nil {
			return a.At(int(addr.Row-m.Origin.Addr.Row), int(addr.Col-m.Origin.Addr.Col))
		}
		return value.Blank()
	}
	if a := c.v.Array(); a != nil {
		// the origin slot contributes the top-left element
		return a.At(0, 0)
	}
	return c.v
}

func (wb *Workbook) SheetByName(name string) (value.SheetID, bool) {
	sh := wb.sheetNamed(name)
	if sh == nil {
		return 0, false
	}
	return sh.id, true
}

func (wb *Workbook) ResolveStructured(cur value.CellKey, sref *value.StructuredRef) (value.Ref, bool) {
	tbl := wb.tables[strings.ToUpper(sref.Table)]
	if tbl == nil {
		return value.Ref{}, false
	}
	rng := tbl.rng
	dataStart := rng.Start.Row + 1
	dataEnd := rng.End.Row
	if tbl.hasTotals {
		dataEnd--
	}
	var out value.Range
	switch sref.Item {
	case value.ItemAll:
		out = rng
	case value.ItemHeaders:
		out = value.Range{Start: rng.Start, End: value.CellAddr{Row: rng.Start.Row, Col: rng.End.Col}}
	case value.ItemTotals:
		if !tbl.hasTotals {
			return value.Ref{}, false
		}
		out = value.Range{Start: value.CellAddr{Row: rng.End.Row, Col: rng.Start.Col}, End: rng.End}
	case value.ItemThisRow:
		if cur.Sheet != tbl.sheet || cur.Addr.Row < dataStart || cur.Addr.Row > dataEnd {
			return value.Ref{}, false
		}
		out = value.Range{
			Start: value.CellAddr{Row: cur.Addr.Row, Col: rng.Start.Col},
			End:   value.CellAddr{Row: cur.Addr.Row, Col: rng.End.Col},
		}
	default: // data rows
		if dataEnd < dataStart {
			return value.Ref{}, false
		}
		out = value.Range{
			Start: value.CellAddr{Row: dataStart, Col: rng.Start.Col},
			End:   value.CellAddr{Row: dataEnd, Col: rng.End.Col},
		}
	}
	if sref.StartCol != "" {
		c1, ok1 := tbl.colIndex(sref.StartCol)
		end := sref.EndCol
		if end == "" {
			end = sref.StartCol
		}
		c2, ok2 := tbl.colIndex(end)
		if !ok1 || !ok2 {
			return value.Ref{}, false
		}
		out.Start.Col = rng.Start.Col + uint32(c1)
		out.End.Col = rng.Start.Col + uint32(c2)
	}
	return value.RangeRef(tbl.sheet, out), true
}

func (t *table) colIndex(name string) (int, bool) {
	for i, h := range t.headers {
		if strings.EqualFold(h, name) {
			return i, true
		}
	}
	return 0, false
}

// scopedNames resolves defined names for formulas anchored on one
// sheet: sheet scope first, then workbook scope.
type scopedNames struct {
	wb    *Workbook
	sheet value.SheetID
}

func (n scopedNames) NamedValue(name string) (value.Value, bool) {
	key := strings.ToUpper(name)
	if scope := n.wb.sheetNames[n.sheet]; scope != nil {
		if v, ok := scope[key]; ok {
			return v, true
		}
	}
	v, ok := n.wb.names[key]
	return v, ok
}

func (wb *Workbook) nowSerial() float64 {
	t := wb.now()
	serial, ok := wb.dateSys.SerialFromDate(t.Year(), int(t.Month()), t.Day())
	if !ok {
		return 0
	}
	frac := float64(t.Hour()*3600+t.Minute()*60+t.Second()) / 86400
	return serial + frac
}

// randFloat is the pass-local random source; the mutex makes it safe
// for the worker pool.
func (wb *Workbook) randFloat() float64 {
	wb.rngMu.Lock()
	defer wb.rngMu.Unlock()
	return wb.rng.Float64()
}

func (wb *Workbook) evalContext(anchor value.CellKey, nowSerial float64) vm.EvalContext {
	return vm.EvalContext{
		Res:        wb,
		Ext:        wb.ext,
		Names:      scopedNames{wb: wb, sheet: anchor.Sheet},
		Loc:        wb.loc,
		DateSys:    wb.dateSys,
		Anchor:     anchor,
		NowSerial:  nowSerial,
		RandFn:     wb.randFloat,
		MaxCells:   wb.settings.Limits.ArrayCells,
		NoImplicit: !wb.settings.implicitIntersection(),
	}
}
