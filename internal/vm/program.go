package vm

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/sheetkit/sheetkit/pkg/value"
)

// AxisOp is one compiled reference coordinate. Abs coordinates store
// the absolute zero-based index; relative ones store the displacement
// from the anchor cell, which is what makes structurally identical
// formulas at different anchors compile to identical programs.
type AxisOp struct {
	Disp int32
	Abs  bool
}

// RefOp is a compiled grid reference.
type RefOp struct {
	Sheet    value.SheetID
	SheetEnd value.SheetID
	HasSheet bool // false: use the anchor's sheet
	R1, C1   AxisOp
	R2, C2   AxisOp
	WholeCol bool
	WholeRow bool
}

// ExternOp is a compiled external-workbook reference.
type ExternOp struct {
	Book  string
	Sheet string
	Row   AxisOp
	Col   AxisOp
}

// CallSite is one function invocation: each argument is its own
// sub-program so functions can evaluate arguments lazily. A nil entry
// is an explicitly omitted argument.
type CallSite struct {
	Name string
	Args []*Program
}

// LambdaDef is a compiled LAMBDA literal.
type LambdaDef struct {
	Params   []string
	Optional []bool
	Body     *Program
}

// Program is a compiled formula: flat bytecode over shared pools.
type Program struct {
	Code    []byte
	Consts  []value.Value
	Refs    []RefOp
	Structs []value.StructuredRef
	Externs []ExternOp
	Calls   []CallSite
	Lambdas []LambdaDef

	// Volatile is set when any reachable call site names a volatile
	// function; the dependency graph marks such cells dirty on every
	// recalculation pass.
	Volatile bool

	fp     uint64
	fpDone bool
}

func (p *Program) operand(at int) int {
	return int(binary.BigEndian.Uint16(p.Code[at:]))
}

// Fingerprint returns the structural hash of the program. Two
// formulas that differ only in their anchor position hash equal, so
// the program cache can share one compilation across a filled-down
// column.
func (p *Program) Fingerprint() uint64 {
	if !p.fpDone {
		h := fnv.New64a()
		p.hashInto(h)
		p.fp = h.Sum64()
		p.fpDone = true
	}
	return p.fp
}

type hasher interface {
	Write([]byte) (int, error)
}

func (p *Program) hashInto(h hasher) {
	var buf [8]byte
	h.Write(p.Code)
	for _, c := range p.Consts {
		buf[0] = byte(c.Kind)
		h.Write(buf[:1])
		binary.BigEndian.PutUint64(buf[:], c.Data)
		h.Write(buf[:])
		hashText(h, c.Text)
		if a := c.Array(); a != nil {
			hashArray(h, a)
		}
	}
	for _, r := range p.Refs {
		hashRef(h, r)
	}
	for _, s := range p.Structs {
		h.Write([]byte{byte(s.Item)})
		h.Write([]byte(s.Table))
		h.Write([]byte{0})
		h.Write([]byte(s.StartCol))
		h.Write([]byte{0})
		h.Write([]byte(s.EndCol))
		h.Write([]byte{0})
	}
	for _, e := range p.Externs {
		h.Write([]byte(e.Book))
		h.Write([]byte{0})
		h.Write([]byte(e.Sheet))
		h.Write([]byte{0})
		hashAxis(h, e.Row)
		hashAxis(h, e.Col)
	}
	for _, cs := range p.Calls {
		h.Write([]byte(cs.Name))
		h.Write([]byte{0, byte(len(cs.Args))})
		for _, a := range cs.Args {
			if a == nil {
				h.Write([]byte{0xff})
				continue
			}
			a.hashInto(h)
		}
	}
	for _, l := range p.Lambdas {
		for i, name := range l.Params {
			h.Write([]byte(name))
			opt := byte(0)
			if l.Optional[i] {
				opt = 1
			}
			h.Write([]byte{0, opt})
		}
		l.Body.hashInto(h)
	}
}

// hashText length-prefixes string data so adjacent strings cannot
// collide across field boundaries.
func hashText(h hasher, s string) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(len(s)))
	h.Write(buf[:])
	h.Write([]byte(s))
}

func hashAxis(h hasher, a AxisOp) {
	var buf [5]byte
	binary.BigEndian.PutUint32(buf[:], uint32(a.Disp))
	if a.Abs {
		buf[4] = 1
	}
	h.Write(buf[:])
}

func hashRef(h hasher, r RefOp) {
	var buf [9]byte
	binary.BigEndian.PutUint32(buf[:], uint32(r.Sheet))
	binary.BigEndian.PutUint32(buf[4:], uint32(r.SheetEnd))
	flags := byte(0)
	if r.HasSheet {
		flags |= 1
	}
	if r.WholeCol {
		flags |= 2
	}
	if r.WholeRow {
		flags |= 4
	}
	buf[8] = flags
	h.Write(buf[:])
	hashAxis(h, r.R1)
	hashAxis(h, r.C1)
	hashAxis(h, r.R2)
	hashAxis(h, r.C2)
}

func hashArray(h hasher, a *value.Array) {
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(a.Rows))
	binary.BigEndian.PutUint32(buf[4:], uint32(a.Cols))
	h.Write(buf[:])
	for _, v := range a.Cells {
		buf[0] = byte(v.Kind)
		h.Write(buf[:1])
		binary.BigEndian.PutUint64(buf[:], v.Data)
		h.Write(buf[:])
		hashText(h, v.Text)
	}
}

// resolveAxis turns a compiled coordinate into an absolute index,
// clamping is left to the caller.
func resolveAxis(a AxisOp, anchor int32) (int32, bool) {
	if a.Abs {
		return a.Disp, true
	}
	n := anchor + a.Disp
	if n < 0 {
		return 0, false
	}
	return n, true
}
