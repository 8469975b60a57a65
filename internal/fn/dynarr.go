package fn

import (
	"sort"

	"github.com/sheetkit/sheetkit/pkg/value"
)

func init() {
	register("SEQUENCE", 1, 4, fnSequence)
	register("TRANSPOSE", 1, 1, fnTranspose)
	register("FILTER", 2, 3, fnFilter)
	register("SORT", 1, 4, fnSort)
	register("SORTBY", 2, -1, fnSortBy)
	register("UNIQUE", 1, 3, fnUnique)
	register("HSTACK", 1, -1, stack(false))
	register("VSTACK", 1, -1, stack(true))
	register("CHOOSEROWS", 2, -1, choosePart(true))
	register("CHOOSECOLS", 2, -1, choosePart(false))
	registerVolatile("RANDARRAY", 0, 5, fnRandArray)
}

func fnSequence(ctx Context) value.Value {
	rows, errv, ok := IntArg(ctx, 0)
	if !ok {
		return errv
	}
	colsF, errv, ok := NumberArgDefault(ctx, 1, 1)
	if !ok {
		return errv
	}
	start, errv, ok := NumberArgDefault(ctx, 2, 1)
	if !ok {
		return errv
	}
	step, errv, ok := NumberArgDefault(ctx, 3, 1)
	if !ok {
		return errv
	}
	cols := int(colsF)
	if rows < 1 || cols < 1 {
		return value.Err(value.ErrValue)
	}
	out := value.NewArray(rows, cols)
	v := start
	for i := range out.Cells {
		out.Cells[i] = value.Number(v)
		v += step
	}
	return value.ArrayVal(out)
}

func fnTranspose(ctx Context) value.Value {
	arr, ek := ctx.Materialize(ctx.Arg(0))
	if ek != 0 {
		return value.Err(ek)
	}
	out := value.NewArray(arr.Cols, arr.Rows)
	for r := 0; r < arr.Rows; r++ {
		for c := 0; c < arr.Cols; c++ {
			out.Set(c, r, arr.At(r, c))
		}
	}
	return arrayOrScalar(out)
}

func fnFilter(ctx Context) value.Value {
	src, ek := ctx.Materialize(ctx.Arg(0))
	if ek != 0 {
		return value.Err(ek)
	}
	cond, ek := ctx.Materialize(ctx.Arg(1))
	if ek != 0 {
		return value.Err(ek)
	}
	byRow := cond.Cols == 1 && cond.Rows == src.Rows
	byCol := cond.Rows == 1 && cond.Cols == src.Cols
	if !byRow && !byCol {
		return value.Err(value.ErrValue)
	}
	var keep []int
	for i, cv := range cond.Cells {
		if cv.IsError() {
			return cv
		}
		b, bek := value.ToBool(cv, ctx.Locale())
		if bek != 0 {
			return value.Err(bek)
		}
		if b {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		if ctx.ArgCount() > 2 && !ctx.ArgOmitted(2) {
			return ctx.Arg(2)
		}
		return value.Err(value.ErrCalc)
	}
	if byRow {
		out := value.NewArray(len(keep), src.Cols)
		for oi, r := range keep {
			for c := 0; c < src.Cols; c++ {
				out.Set(oi, c, src.At(r, c))
			}
		}
		return arrayOrScalar(out)
	}
	out := value.NewArray(src.Rows, len(keep))
	for oi, c := range keep {
		for r := 0; r < src.Rows; r++ {
			out.Set(r, oi, src.At(r, c))
		}
	}
	return arrayOrScalar(out)
}

// sortLess orders values the way SORT does: numbers before text before
// booleans, blanks last.
func sortLess(a, b value.Value) bool {
	if a.Kind == value.KindBlank {
		return false
	}
	if b.Kind == value.KindBlank {
		return true
	}
	return value.Compare(a, b) < 0
}

func fnSort(ctx Context) value.Value {
	src, ek := ctx.Materialize(ctx.Arg(0))
	if ek != 0 {
		return value.Err(ek)
	}
	sortIdx, errv, ok := NumberArgDefault(ctx, 1, 1)
	if !ok {
		return errv
	}
	order, errv, ok := NumberArgDefault(ctx, 2, 1)
	if !ok {
		return errv
	}
	byCol := false
	if ctx.ArgCount() > 3 && !ctx.ArgOmitted(3) {
		byCol, errv, ok = BoolArg(ctx, 3)
		if !ok {
			return errv
		}
	}
	if order != 1 && order != -1 {
		return value.Err(value.ErrValue)
	}
	k := int(sortIdx) - 1
	if byCol {
		if k < 0 || k >= src.Rows {
			return value.Err(value.ErrValue)
		}
		perm := permutation(src.Cols, func(i, j int) bool {
			less := sortLess(src.At(k, i), src.At(k, j))
			if order < 0 {
				return sortLess(src.At(k, j), src.At(k, i))
			}
			return less
		})
		return arrayOrScalar(permuteCols(src, perm))
	}
	if k < 0 || k >= src.Cols {
		return value.Err(value.ErrValue)
	}
	perm := permutation(src.Rows, func(i, j int) bool {
		if order < 0 {
			return sortLess(src.At(j, k), src.At(i, k))
		}
		return sortLess(src.At(i, k), src.At(j, k))
	})
	return arrayOrScalar(permuteRows(src, perm))
}

func permutation(n int, less func(i, j int) bool) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool { return less(perm[a], perm[b]) })
	return perm
}

func permuteRows(src *value.Array, perm []int) *value.Array {
	out := value.NewArray(src.Rows, src.Cols)
	for oi, r := range perm {
		for c := 0; c < src.Cols; c++ {
			out.Set(oi, c, src.At(r, c))
		}
	}
	return out
}

func permuteCols(src *value.Array, perm []int) *value.Array {
	out := value.NewArray(src.Rows, src.Cols)
	for oi, c := range perm {
		for r := 0; r < src.Rows; r++ {
			out.Set(r, oi, src.At(r, c))
		}
	}
	return out
}

func fnSortBy(ctx Context) value.Value {
	src, ek := ctx.Materialize(ctx.Arg(0))
	if ek != 0 {
		return value.Err(ek)
	}
	type key struct {
		vec   *value.Array
		order int
	}
	var keys []key
	for i := 1; i < ctx.ArgCount(); i += 2 {
		vec, ek := ctx.Materialize(ctx.Arg(i))
		if ek != 0 {
			return value.Err(ek)
		}
		if len(vec.Cells) != src.Rows {
			return value.Err(value.ErrValue)
		}
		order := 1
		if i+1 < ctx.ArgCount() && !ctx.ArgOmitted(i+1) {
			o, errv, ok := IntArg(ctx, i+1)
			if !ok {
				return errv
			}
			if o != 1 && o != -1 {
				return value.Err(value.ErrValue)
			}
			order = o
		}
		keys = append(keys, key{vec, order})
	}
	perm := permutation(src.Rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := k.vec.Cells[i], k.vec.Cells[j]
			if k.order < 0 {
				a, b = b, a
			}
			if sortLess(a, b) {
				return true
			}
			if sortLess(b, a) {
				return false
			}
		}
		return false
	})
	return arrayOrScalar(permuteRows(src, perm))
}

// uniqueKey canonicalizes a value for UNIQUE's equality, folding text
// case.
func uniqueKey(v value.Value) value.Value {
	if v.Kind == value.KindText {
		return value.Text(value.FoldText(v.Text))
	}
	return v
}

func fnUnique(ctx Context) value.Value {
	src, ek := ctx.Materialize(ctx.Arg(0))
	if ek != 0 {
		return value.Err(ek)
	}
	byCol := false
	if ctx.ArgCount() > 1 && !ctx.ArgOmitted(1) {
		var errv value.Value
		var ok bool
		byCol, errv, ok = BoolArg(ctx, 1)
		if !ok {
			return errv
		}
	}
	exactlyOnce := false
	if ctx.ArgCount() > 2 && !ctx.ArgOmitted(2) {
		var errv value.Value
		var ok bool
		exactlyOnce, errv, ok = BoolArg(ctx, 2)
		if !ok {
			return errv
		}
	}
	n := src.Rows
	if byCol {
		n = src.Cols
	}
	sliceKey := func(i int) string {
		var b []byte
		m := src.Cols
		if byCol {
			m = src.Rows
		}
		for j := 0; j < m; j++ {
			var cv value.Value
			if byCol {
				cv = src.At(j, i)
			} else {
				cv = src.At(i, j)
			}
			b = append(b, uniqueKey(cv).Display()...)
			b = append(b, 0)
		}
		return string(b)
	}
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		counts[sliceKey(i)]++
	}
	var keep []int
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		k := sliceKey(i)
		if exactlyOnce {
			if counts[k] == 1 {
				keep = append(keep, i)
			}
			continue
		}
		if !seen[k] {
			seen[k] = true
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return value.Err(value.ErrCalc)
	}
	if byCol {
		out := value.NewArray(src.Rows, len(keep))
		for oi, c := range keep {
			for r := 0; r < src.Rows; r++ {
				out.Set(r, oi, src.At(r, c))
			}
		}
		return arrayOrScalar(out)
	}
	out := value.NewArray(len(keep), src.Cols)
	for oi, r := range keep {
		for c := 0; c < src.Cols; c++ {
			out.Set(oi, c, src.At(r, c))
		}
	}
	return arrayOrScalar(out)
}

func stack(vertical bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		arrs := make([]*value.Array, 0, ctx.ArgCount())
		rows, cols := 0, 0
		for i := 0; i < ctx.ArgCount(); i++ {
			a, ek := ctx.Materialize(ctx.Arg(i))
			if ek != 0 {
				return value.Err(ek)
			}
			arrs = append(arrs, a)
			if vertical {
				rows += a.Rows
				if a.Cols > cols {
					cols = a.Cols
				}
			} else {
				cols += a.Cols
				if a.Rows > rows {
					rows = a.Rows
				}
			}
		}
		out := value.NewArray(rows, cols)
		for i := range out.Cells {
			out.Cells[i] = value.Err(value.ErrNA)
		}
		off := 0
		for _, a := range arrs {
			for r := 0; r < a.Rows; r++ {
				for c := 0; c < a.Cols; c++ {
					if vertical {
						out.Set(off+r, c, a.At(r, c))
					} else {
						out.Set(r, off+c, a.At(r, c))
					}
				}
			}
			if vertical {
				off += a.Rows
			} else {
				off += a.Cols
			}
		}
		return arrayOrScalar(out)
	}
}

func choosePart(rows bool) func(Context) value.Value {
	return func(ctx Context) value.Value {
		src, ek := ctx.Materialize(ctx.Arg(0))
		if ek != 0 {
			return value.Err(ek)
		}
		n := src.Rows
		if !rows {
			n = src.Cols
		}
		var picks []int
		for i := 1; i < ctx.ArgCount(); i++ {
			k, errv, ok := IntArg(ctx, i)
			if !ok {
				return errv
			}
			if k < 0 {
				k = n + k + 1
			}
			if k < 1 || k > n {
				return value.Err(value.ErrValue)
			}
			picks = append(picks, k-1)
		}
		if rows {
			return arrayOrScalar(permuteRowsSubset(src, picks))
		}
		return arrayOrScalar(permuteColsSubset(src, picks))
	}
}

func permuteRowsSubset(src *value.Array, picks []int) *value.Array {
	out := value.NewArray(len(picks), src.Cols)
	for oi, r := range picks {
		for c := 0; c < src.Cols; c++ {
			out.Set(oi, c, src.At(r, c))
		}
	}
	return out
}

func permuteColsSubset(src *value.Array, picks []int) *value.Array {
	out := value.NewArray(src.Rows, len(picks))
	for oi, c := range picks {
		for r := 0; r < src.Rows; r++ {
			out.Set(r, oi, src.At(r, c))
		}
	}
	return out
}

func fnRandArray(ctx Context) value.Value {
	rows, errv, ok := NumberArgDefault(ctx, 0, 1)
	if !ok {
		return errv
	}
	cols, errv, ok := NumberArgDefault(ctx, 1, 1)
	if !ok {
		return errv
	}
	lo, errv, ok := NumberArgDefault(ctx, 2, 0)
	if !ok {
		return errv
	}
	hi, errv, ok := NumberArgDefault(ctx, 3, 1)
	if !ok {
		return errv
	}
	whole := false
	if ctx.ArgCount() > 4 && !ctx.ArgOmitted(4) {
		whole, errv, ok = BoolArg(ctx, 4)
		if !ok {
			return errv
		}
	}
	if rows < 1 || cols < 1 || lo > hi {
		return value.Err(value.ErrValue)
	}
	out := value.NewArray(int(rows), int(cols))
	for i := range out.Cells {
		r := ctx.Rand()
		if whole {
			n := lo + float64(int(r*(hi-lo+1)))
			if n > hi {
				n = hi
			}
			out.Cells[i] = value.Number(n)
		} else {
			out.Cells[i] = value.Number(lo + r*(hi-lo))
		}
	}
	return arrayOrScalar(out)
}
