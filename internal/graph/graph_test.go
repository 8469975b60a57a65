package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetkit/sheetkit/pkg/value"
)

func cell(row, col uint32) value.CellKey {
	return value.CellKey{Sheet: 0, Addr: value.CellAddr{Row: row, Col: col}}
}

func cellRef(row, col uint32) value.Ref {
	return value.CellRef(cell(row, col))
}

func levelIndex(t *testing.T, levels [][]value.CellKey, k value.CellKey) int {
	t.Helper()
	for i, level := range levels {
		for _, c := range level {
			if c == k {
				return i
			}
		}
	}
	t.Fatalf("cell %v not in any level", k)
	return -1
}

func TestDirtyClosure(t *testing.T) {
	g := New()
	// B1 = A1, C1 = B1
	b1, c1 := cell(0, 1), cell(0, 2)
	g.SetPrecedents(b1, []value.Ref{cellRef(0, 0)}, false)
	g.SetPrecedents(c1, []value.Ref{cellRef(0, 1)}, false)

	dirty := g.Dirty([]value.CellKey{cell(0, 0)})
	assert.Contains(t, dirty, b1)
	assert.Contains(t, dirty, c1)
	assert.NotContains(t, dirty, cell(0, 0), "a plain edited cell is not recalculated")
}

func TestRangeSubscription(t *testing.T) {
	g := New()
	// D1 = SUM(A1:B10)
	d1 := cell(0, 3)
	g.SetPrecedents(d1, []value.Ref{value.RangeRef(0, value.Range{
		Start: value.CellAddr{Row: 0, Col: 0},
		End:   value.CellAddr{Row: 9, Col: 1},
	})}, false)

	dirty := g.Dirty([]value.CellKey{cell(5, 1)})
	assert.Contains(t, dirty, d1)

	dirty = g.Dirty([]value.CellKey{cell(20, 0)})
	assert.NotContains(t, dirty, d1)
}

func TestLevels(t *testing.T) {
	g := New()
	// B1=A1, C1=B1, D1=B1+C1
	b1, c1, d1 := cell(0, 1), cell(0, 2), cell(0, 3)
	g.SetPrecedents(b1, []value.Ref{cellRef(0, 0)}, false)
	g.SetPrecedents(c1, []value.Ref{cellRef(0, 1)}, false)
	g.SetPrecedents(d1, []value.Ref{cellRef(0, 1), cellRef(0, 2)}, false)

	dirty := g.Dirty([]value.CellKey{cell(0, 0)})
	levels, cycle := g.Levels(dirty)
	require.Empty(t, cycle)

	ib := levelIndex(t, levels, b1)
	ic := levelIndex(t, levels, c1)
	id := levelIndex(t, levels, d1)
	assert.Less(t, ib, ic)
	assert.Less(t, ic, id)
}

func TestCycleRemainder(t *testing.T) {
	g := New()
	// A1 = B1, B1 = A1, C1 = B1
	a1, b1, c1 := cell(0, 0), cell(0, 1), cell(0, 2)
	g.SetPrecedents(a1, []value.Ref{cellRef(0, 1)}, false)
	g.SetPrecedents(b1, []value.Ref{cellRef(0, 0)}, false)
	g.SetPrecedents(c1, []value.Ref{cellRef(0, 1)}, false)

	dirty := map[value.CellKey]struct{}{a1: {}, b1: {}, c1: {}}
	levels, cycle := g.Levels(dirty)
	// cells on the cycle and everything downstream of it fall into
	// the sequential remainder
	assert.ElementsMatch(t, []value.CellKey{a1, b1, c1}, cycle)
	assert.Empty(t, levels)
}

func TestVolatileAlwaysDirty(t *testing.T) {
	g := New()
	n1 := cell(0, 5)
	g.SetPrecedents(n1, nil, true)

	dirty := g.Dirty(nil)
	assert.Contains(t, dirty, n1)
}

func TestSpillSubscription(t *testing.T) {
	g := New()
	// A1 spills A1:A3; B1 = A2, C1 = SUM(A2:A4)
	a1, b1, c1 := cell(0, 0), cell(0, 1), cell(0, 2)
	g.SetPrecedents(a1, nil, false)
	g.SetPrecedents(b1, []value.Ref{cellRef(1, 0)}, false)
	g.SetPrecedents(c1, []value.Ref{value.RangeRef(0, value.Range{
		Start: value.CellAddr{Row: 1, Col: 0},
		End:   value.CellAddr{Row: 3, Col: 0},
	})}, false)
	g.SetSpill(a1, value.Range{End: value.CellAddr{Row: 2, Col: 0}})

	// a change at the origin reaches readers of the covered cells
	dirty := g.Dirty([]value.CellKey{cell(0, 0)})
	assert.Contains(t, dirty, b1)
	assert.Contains(t, dirty, c1)

	levels, cycle := g.Levels(dirty)
	require.Empty(t, cycle)
	assert.Less(t, levelIndex(t, levels, a1), levelIndex(t, levels, b1))

	g.ClearSpill(a1)
	dirty = g.Dirty([]value.CellKey{cell(0, 0)})
	assert.NotContains(t, dirty, b1)
}

func TestRemoveAndReplace(t *testing.T) {
	g := New()
	b1 := cell(0, 1)
	g.SetPrecedents(b1, []value.Ref{cellRef(0, 0)}, false)
	g.SetPrecedents(b1, []value.Ref{cellRef(1, 0)}, false)

	dirty := g.Dirty([]value.CellKey{cell(0, 0)})
	assert.NotContains(t, dirty, b1, "old edge must be gone after replacement")
	dirty = g.Dirty([]value.CellKey{cell(1, 0)})
	assert.Contains(t, dirty, b1)

	g.Remove(b1)
	dirty = g.Dirty([]value.CellKey{cell(1, 0)})
	assert.NotContains(t, dirty, b1)
}
