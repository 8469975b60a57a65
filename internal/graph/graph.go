// Package graph maintains the cell dependency graph and orders
// recalculation: dirty cells are arranged into topological levels so
// that each level only depends on earlier ones, and any cells left on
// a cycle are returned as a final sequential layer for iterative
// calculation.
package graph

import (
	"sync"

	"github.com/sheetkit/sheetkit/pkg/value"
)

// Graph tracks which cells each formula reads. It is safe for
// concurrent readers; writers take the exclusive lock.
type Graph struct {
	mu sync.RWMutex

	// precedents of each formula cell, as the references its program
	// resolves
	deps map[value.CellKey][]value.Ref

	// single-cell precedent -> dependent formula cells
	cellDeps map[value.CellKey]map[value.CellKey]struct{}

	// range subscriptions per sheet: dependent -> watched rectangles
	rangeDeps map[value.SheetID]map[value.CellKey][]value.Range

	volatile map[value.CellKey]struct{}

	// spill rectangles by origin; a change to the origin reaches
	// everything subscribed to any covered cell
	spills map[value.CellKey]value.Range
}

func New() *Graph {
	return &Graph{
		deps:      map[value.CellKey][]value.Ref{},
		cellDeps:  map[value.CellKey]map[value.CellKey]struct{}{},
		rangeDeps: map[value.SheetID]map[value.CellKey][]value.Range{},
		volatile:  map[value.CellKey]struct{}{},
		spills:    map[value.CellKey]value.Range{},
	}
}

// SetSpill records the rectangle a formula cell spills into, so
// dependents reading any covered cell order after (and dirty with)
// the origin.
func (g *Graph) SetSpill(origin value.CellKey, rng value.Range) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spills[origin] = rng
}

// ClearSpill drops the spill rectangle for an origin.
func (g *Graph) ClearSpill(origin value.CellKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.spills, origin)
}

// SetPrecedents replaces the edges for a formula cell.
func (g *Graph) SetPrecedents(cell value.CellKey, refs []value.Ref, isVolatile bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(cell)
	// reference-free formulas still register, so edits to them dirty
	// the cell itself
	g.deps[cell] = refs
	for _, r := range refs {
		for sid := r.Sheet; sid <= r.SheetEnd; sid++ {
			if r.SingleCell() {
				key := value.CellKey{Sheet: sid, Addr: r.Range.Start}
				set := g.cellDeps[key]
				if set == nil {
					set = map[value.CellKey]struct{}{}
					g.cellDeps[key] = set
				}
				set[cell] = struct{}{}
				continue
			}
			bySheet := g.rangeDeps[sid]
			if bySheet == nil {
				bySheet = map[value.CellKey][]value.Range{}
				g.rangeDeps[sid] = bySheet
			}
			bySheet[cell] = append(bySheet[cell], r.Range)
		}
	}
	if isVolatile {
		g.volatile[cell] = struct{}{}
	}
}

// Remove drops a cell's edges, e.g. when its formula is cleared.
func (g *Graph) Remove(cell value.CellKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(cell)
}

func (g *Graph) removeLocked(cell value.CellKey) {
	delete(g.deps, cell)
	delete(g.volatile, cell)
	delete(g.spills, cell)
	for key, set := range g.cellDeps {
		delete(set, cell)
		if len(set) == 0 {
			delete(g.cellDeps, key)
		}
	}
	for sid, bySheet := range g.rangeDeps {
		delete(bySheet, cell)
		if len(bySheet) == 0 {
			delete(g.rangeDeps, sid)
		}
	}
}

// DropSheet removes every edge touching a sheet.
func (g *Graph) DropSheet(sheet value.SheetID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for cell := range g.deps {
		if cell.Sheet == sheet {
			g.removeLocked(cell)
		}
	}
	delete(g.rangeDeps, sheet)
	for key := range g.cellDeps {
		if key.Sheet == sheet {
			delete(g.cellDeps, key)
		}
	}
	for key := range g.spills {
		if key.Sheet == sheet {
			delete(g.spills, key)
		}
	}
}

// dependentsOf collects the formula cells that directly read key.
func (g *Graph) dependentsOf(key value.CellKey, out map[value.CellKey]struct{}) {
	for dep := range g.cellDeps[key] {
		out[dep] = struct{}{}
	}
	for dep, ranges := range g.rangeDeps[key.Sheet] {
		for _, rng := range ranges {
			if rng.Contains(key.Addr) {
				out[dep] = struct{}{}
				break
			}
		}
	}
	rect, spilled := g.spills[key]
	if !spilled {
		return
	}
	for pkey, set := range g.cellDeps {
		if pkey.Sheet != key.Sheet || !rect.Contains(pkey.Addr) {
			continue
		}
		for dep := range set {
			out[dep] = struct{}{}
		}
	}
	for dep, ranges := range g.rangeDeps[key.Sheet] {
		for _, rng := range ranges {
			if _, overlap := rng.Intersect(rect); overlap {
				out[dep] = struct{}{}
				break
			}
		}
	}
}

// Dirty computes the transitive closure of cells needing
// recalculation after the given edits, always including volatile
// formula cells.
func (g *Graph) Dirty(edits []value.CellKey) map[value.CellKey]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dirty := map[value.CellKey]struct{}{}
	queue := make([]value.CellKey, 0, len(edits)+len(g.volatile))
	enqueue := func(k value.CellKey) {
		if _, seen := dirty[k]; !seen {
			dirty[k] = struct{}{}
			queue = append(queue, k)
		}
	}

	for _, e := range edits {
		// the edited cell itself recalculates only if it holds a
		// formula; its dependents always do
		if _, isFormula := g.deps[e]; isFormula {
			enqueue(e)
		}
		step := map[value.CellKey]struct{}{}
		g.dependentsOf(e, step)
		for k := range step {
			enqueue(k)
		}
	}
	for v := range g.volatile {
		enqueue(v)
	}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		step := map[value.CellKey]struct{}{}
		g.dependentsOf(k, step)
		for d := range step {
			enqueue(d)
		}
	}
	return dirty
}

// All returns every formula cell, for whole-workbook recalculation.
func (g *Graph) All() map[value.CellKey]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[value.CellKey]struct{}, len(g.deps))
	for k := range g.deps {
		out[k] = struct{}{}
	}
	return out
}

// Levels orders the dirty set into evaluation layers. Cells within a
// layer have no dependencies among themselves and may evaluate in
// parallel. The second return holds cells on dependency cycles; they
// form a final layer for sequential iterative calculation.
func (g *Graph) Levels(dirty map[value.CellKey]struct{}) ([][]value.CellKey, []value.CellKey) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// edges within the dirty set, precedent -> dependents
	successors := map[value.CellKey][]value.CellKey{}
	indegree := make(map[value.CellKey]int, len(dirty))
	for cell := range dirty {
		indegree[cell] = 0
	}
	for cell := range dirty {
		step := map[value.CellKey]struct{}{}
		g.dependentsOf(cell, step)
		for dep := range step {
			if dep == cell {
				continue
			}
			if _, in := dirty[dep]; !in {
				continue
			}
			successors[cell] = append(successors[cell], dep)
			indegree[dep]++
		}
	}

	var levels [][]value.CellKey
	current := make([]value.CellKey, 0, len(dirty))
	for cell, d := range indegree {
		if d == 0 {
			current = append(current, cell)
		}
	}
	remaining := len(dirty)
	for len(current) > 0 {
		levels = append(levels, current)
		remaining -= len(current)
		var next []value.CellKey
		for _, cell := range current {
			for _, dep := range successors[cell] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}
	if remaining == 0 {
		return levels, nil
	}
	// whatever still has indegree > 0 sits on a cycle
	cycle := make([]value.CellKey, 0, remaining)
	for cell, d := range indegree {
		if d > 0 {
			cycle = append(cycle, cell)
		}
	}
	return levels, cycle
}

// Precedents returns the stored references for a formula cell.
func (g *Graph) Precedents(cell value.CellKey) []value.Ref {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.deps[cell]
}

// IsVolatile reports whether the cell's program calls a volatile
// function.
func (g *Graph) IsVolatile(cell value.CellKey) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.volatile[cell]
	return ok
}
