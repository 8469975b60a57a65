package workbook

import (
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sheetkit/sheetkit/internal/vm"
	"github.com/sheetkit/sheetkit/pkg/value"
)

// Stats summarizes one recalculation pass.
type Stats struct {
	Cells      int // formula cells evaluated
	Levels     int // dependency layers scheduled
	CycleCells int // cells that fell to the cycle layer
	Iterations int // iterative-calculation rounds on the cycle layer
	Elapsed    time.Duration
}

// Recalc evaluates every cell affected by edits since the last pass,
// using the scheduling mode from the settings.
func (wb *Workbook) Recalc() Stats {
	return wb.recalc(wb.settings.Recalc.Mode != "single")
}

// RecalcSequential forces single-threaded evaluation for one pass.
func (wb *Workbook) RecalcSequential() Stats { return wb.recalc(false) }

// RecalcParallel forces the worker pool for one pass.
func (wb *Workbook) RecalcParallel() Stats { return wb.recalc(true) }

// RecalcAll evaluates every formula cell in the workbook.
func (wb *Workbook) RecalcAll() Stats {
	wb.pending = map[value.CellKey]struct{}{}
	return wb.runPass(wb.graph.All(), wb.settings.Recalc.Mode != "single")
}

func (wb *Workbook) recalc(parallel bool) Stats {
	edits := make([]value.CellKey, 0, len(wb.pending))
	for k := range wb.pending {
		edits = append(edits, k)
	}
	wb.pending = map[value.CellKey]struct{}{}
	return wb.runPass(wb.graph.Dirty(edits), parallel)
}

// maxSpillRounds bounds the settle loop for spills whose extent moved
// during a pass; each round reorders affected dependents behind the
// origin's new rectangle.
const maxSpillRounds = 8

func (wb *Workbook) runPass(dirty map[value.CellKey]struct{}, parallel bool) Stats {
	start := time.Now()
	nowSerial := wb.nowSerial()

	var stats Stats
	for round := 0; round < maxSpillRounds && len(dirty) > 0; round++ {
		levels, cycle := wb.graph.Levels(dirty)
		stats.Levels += len(levels)
		var moved []value.CellKey
		for _, level := range levels {
			sortKeys(level)
			results := wb.evalLevel(level, nowSerial, parallel)
			for i, key := range level {
				if results[i] != nil {
					if wb.publish(key, *results[i]) {
						moved = append(moved, key)
					}
					stats.Cells++
				}
			}
		}
		if len(cycle) > 0 {
			sortKeys(cycle)
			stats.CycleCells += len(cycle)
			stats.Iterations = wb.runCycleLayer(cycle, nowSerial)
			stats.Cells += len(cycle)
		}
		if len(moved) == 0 {
			break
		}
		// dependents of the moved rectangles may have evaluated before
		// the origin landed; schedule them against the new geometry
		dirty = wb.graph.Dirty(moved)
	}
	stats.Elapsed = time.Since(start)
	return stats
}

// evalLevel computes raw results for one layer. Cells within a layer
// have no dependencies among themselves, so thread-safe programs run
// on the pool; the rest stay on this goroutine. Publication happens
// afterwards, so workers only ever read the grid.
func (wb *Workbook) evalLevel(level []value.CellKey, nowSerial float64, parallel bool) []*value.Value {
	results := make([]*value.Value, len(level))
	if !parallel || len(level) < 2 {
		for i, key := range level {
			results[i] = wb.evalCell(key, nowSerial)
		}
		return results
	}

	var g errgroup.Group
	workers := wb.settings.Recalc.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	var confined []int
	for i, key := range level {
		f := wb.formulaAt(key)
		if f == nil {
			continue
		}
		if !f.prog.ThreadSafe() {
			confined = append(confined, i)
			continue
		}
		i, key := i, key
		g.Go(func() error {
			results[i] = wb.evalCell(key, nowSerial)
			return nil
		})
	}
	g.Wait()
	for _, i := range confined {
		results[i] = wb.evalCell(level[i], nowSerial)
	}
	return results
}

func (wb *Workbook) formulaAt(key value.CellKey) *formula {
	sh := wb.byID[key.Sheet]
	if sh == nil {
		return nil
	}
	c := sh.cells[key.Addr]
	if c == nil {
		return nil
	}
	return c.formula
}

func (wb *Workbook) evalCell(key value.CellKey, nowSerial float64) *value.Value {
	f := wb.formulaAt(key)
	if f == nil {
		return nil
	}
	ctx := wb.evalContext(key, nowSerial)
	v := vm.Run(f.prog, &ctx)
	return &v
}

// runCycleLayer handles cells on dependency cycles. With iterative
// calculation enabled they evaluate sequentially, repeating until
// results settle within epsilon or the iteration cap; otherwise every
// member reports the circularity as #NUM!.
func (wb *Workbook) runCycleLayer(cycle []value.CellKey, nowSerial float64) int {
	it := wb.settings.Iterative
	if !it.Enabled {
		for _, key := range cycle {
			wb.publish(key, value.Err(value.ErrNum))
		}
		return 1
	}
	rounds := 1
	if it.MaxIterations > 0 {
		rounds = it.MaxIterations
	}
	for round := 1; ; round++ {
		var delta float64
		for _, key := range cycle {
			before := wb.CellValue(key.Sheet, key.Addr)
			res := wb.evalCell(key, nowSerial)
			if res == nil {
				continue
			}
			wb.publish(key, *res)
			after := wb.CellValue(key.Sheet, key.Addr)
			delta = math.Max(delta, settleDelta(before, after))
		}
		if round >= rounds || delta <= it.Epsilon {
			return round
		}
	}
}

func settleDelta(before, after value.Value) float64 {
	if before.Kind == value.KindNumber && after.Kind == value.KindNumber {
		return math.Abs(after.Num() - before.Num())
	}
	if value.Equal(before, after) {
		return 0
	}
	return math.Inf(1)
}

// publish stores one computed result, managing the spill lifecycle.
// It reports whether the cell's spill geometry changed, meaning
// dependents subscribed to the old or new rectangle may be stale.
func (wb *Workbook) publish(key value.CellKey, raw value.Value) bool {
	sh := wb.byID[key.Sheet]
	if sh == nil {
		return false
	}
	c := sh.cells[key.Addr]
	if c == nil || c.formula == nil {
		return false
	}
	oldRows, oldCols := c.formula.spillRows, c.formula.spillCols
	_, wasBlocked := wb.blocked[key]
	wb.retractSpill(sh, c.formula, key.Addr)
	delete(wb.blocked, key)

	v := wb.settle(raw)
	if a := v.Array(); a != nil {
		if a.Rows > 1 || a.Cols > 1 {
			wb.spill(sh, c, key, a)
		} else {
			c.v = a.At(0, 0)
		}
	} else {
		c.v = v
	}
	_, nowBlocked := wb.blocked[key]
	return oldRows != c.formula.spillRows || oldCols != c.formula.spillCols ||
		wasBlocked != nowBlocked
}

// settle converts an evaluation result into a storable cell value:
// references load their contents, unions and lambdas have no cell
// representation.
func (wb *Workbook) settle(v value.Value) value.Value {
	switch v.Kind {
	case value.KindRef:
		r := v.Ref()
		if r.SheetSpan() > 1 {
			return value.Err(value.ErrValue)
		}
		if !wb.SheetExists(r.Sheet) {
			return value.Err(value.ErrRef)
		}
		if r.SingleCell() {
			return wb.CellValue(r.Sheet, r.Range.Start)
		}
		a, ek := wb.materializeRef(r)
		if ek != 0 {
			return value.Err(ek)
		}
		return value.ArrayVal(a)
	case value.KindRefUnion:
		return value.Err(value.ErrValue)
	case value.KindLambda:
		return value.Err(value.ErrCalc)
	}
	return v
}

func (wb *Workbook) materializeRef(r *value.Ref) (*value.Array, value.ErrorKind) {
	rng := r.Range
	if r.WholeCol || r.WholeRow {
		usedRows, usedCols := wb.SheetDimensions(r.Sheet)
		if r.WholeCol {
			end := rng.Start.Row
			if usedRows > 0 {
				end = minU32(rng.End.Row, uint32(usedRows-1))
			}
			rng.End.Row = end
		}
		if r.WholeRow {
			end := rng.Start.Col
			if usedCols > 0 {
				end = minU32(rng.End.Col, uint32(usedCols-1))
			}
			rng.End.Col = end
		}
		rng = rng.Normalize()
	}
	max := wb.settings.Limits.ArrayCells
	if max <= 0 {
		max = vm.DefaultMaxCells
	}
	if rng.Cells() > max {
		return nil, value.ErrSpill
	}
	out := value.NewArray(rng.Rows(), rng.Cols())
	for ri := 0; ri < rng.Rows(); ri++ {
		for ci := 0; ci < rng.Cols(); ci++ {
			out.Set(ri, ci, wb.CellValue(r.Sheet, value.CellAddr{
				Row: rng.Start.Row + uint32(ri),
				Col: rng.Start.Col + uint32(ci),
			}))
		}
	}
	return out, 0
}

// spill publishes a multi-cell array from its origin: the origin slot
// stores the array, every other covered slot gets a marker pointing
// back. Any occupied slot in the rectangle blocks the whole spill.
func (wb *Workbook) spill(sh *sheet, c *cell, key value.CellKey, a *value.Array) {
	f := c.formula
	endRow := int(key.Addr.Row) + a.Rows - 1
	endCol := int(key.Addr.Col) + a.Cols - 1
	if endRow >= value.MaxRows || endCol >= value.MaxCols {
		c.v = value.Err(value.ErrSpill)
		wb.blocked[key] = struct{}{}
		return
	}
	for row := key.Addr.Row; row <= uint32(endRow); row++ {
		for col := key.Addr.Col; col <= uint32(endCol); col++ {
			if row == key.Addr.Row && col == key.Addr.Col {
				continue
			}
			slot := sh.cells[value.CellAddr{Row: row, Col: col}]
			if slot != nil && (slot.formula != nil || slot.v.Kind != value.KindBlank) {
				c.v = value.Err(value.ErrSpill)
				wb.blocked[key] = struct{}{}
				return
			}
		}
	}
	marker := value.SpillMarker{Origin: key, Rows: a.Rows, Cols: a.Cols}
	for row := key.Addr.Row; row <= uint32(endRow); row++ {
		for col := key.Addr.Col; col <= uint32(endCol); col++ {
			if row == key.Addr.Row && col == key.Addr.Col {
				continue
			}
			sh.cells[value.CellAddr{Row: row, Col: col}] = &cell{v: value.SpillVal(&marker)}
		}
	}
	c.v = value.ArrayVal(a)
	f.spillRows = a.Rows
	f.spillCols = a.Cols
	wb.spillOrigins[key] = struct{}{}
	sh.touch(value.CellAddr{Row: uint32(endRow), Col: uint32(endCol)})
	wb.graph.SetSpill(key, value.Range{
		Start: key.Addr,
		End:   value.CellAddr{Row: uint32(endRow), Col: uint32(endCol)},
	})
}

// retractSpill removes the markers a previous result of this cell
// placed.
func (wb *Workbook) retractSpill(sh *sheet, f *formula, origin value.CellAddr) {
	if f.spillRows == 0 {
		return
	}
	key := value.CellKey{Sheet: sh.id, Addr: origin}
	for row := origin.Row; row < origin.Row+uint32(f.spillRows); row++ {
		for col := origin.Col; col < origin.Col+uint32(f.spillCols); col++ {
			if row == origin.Row && col == origin.Col {
				continue
			}
			addr := value.CellAddr{Row: row, Col: col}
			slot := sh.cells[addr]
			if slot != nil {
				if m := slot.v.Spill(); m != nil && m.Origin == key {
					delete(sh.cells, addr)
				}
			}
		}
	}
	f.spillRows = 0
	f.spillCols = 0
	delete(wb.spillOrigins, key)
	wb.graph.ClearSpill(key)
}

func sortKeys(keys []value.CellKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Sheet != b.Sheet {
			return a.Sheet < b.Sheet
		}
		if a.Addr.Row != b.Addr.Row {
			return a.Addr.Row < b.Addr.Row
		}
		return a.Addr.Col < b.Addr.Col
	})
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
