package vm

// Op is a bytecode instruction. Operands are 16-bit big-endian pool
// indices or code offsets, noted per opcode.
type Op byte

const (
	// OpConst pushes Consts[u16].
	OpConst Op = iota
	// OpRef resolves Refs[u16] against the anchor cell and pushes a
	// reference value.
	OpRef
	// OpStruct resolves Structs[u16] through the host and pushes a
	// reference value.
	OpStruct
	// OpExtern resolves Externs[u16] through the external provider.
	OpExtern

	// reference operators
	OpRange // pop b, a; push bounding-box range a:b
	OpUnion // pop b, a; push union (a, b)
	OpImplicit

	// unary operators
	OpNeg
	OpPlus
	OpPercent

	// binary operators; pop b, a
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// OpCall dispatches Calls[u16] through the function registry.
	OpCall
	// OpApply pops a lambda and applies it to Calls[u16]'s arguments.
	OpApply
	// OpLambda captures the current environment into Lambdas[u16].
	OpLambda

	// scope handling for LET and lambda bodies
	OpBind      // u16 name const; pops the bound value
	OpUnbind    // u16 frame count to drop
	OpLookup    // u16 name const
	OpIsOmitted // u16 name const

	// control flow; operand is an absolute code offset
	OpJump
	OpJumpIfFalsy // pops the condition
	OpJumpIfError // jumps with the error kept on the stack

	OpPop
)

var opNames = map[Op]string{
	OpConst:     "CONST",
	OpRef:       "REF",
	OpStruct:    "STRUCT",
	OpExtern:    "EXTERN",
	OpRange:     "RANGE",
	OpUnion:     "UNION",
	OpImplicit:  "IMPLICIT",
	OpNeg:       "NEG",
	OpPlus:      "PLUS",
	OpPercent:   "PERCENT",
	OpAdd:       "ADD",
	OpSub:       "SUB",
	OpMul:       "MUL",
	OpDiv:       "DIV",
	OpPow:       "POW",
	OpConcat:    "CONCAT",
	OpEq:        "EQ",
	OpNe:        "NE",
	OpLt:        "LT",
	OpLe:        "LE",
	OpGt:        "GT",
	OpGe:        "GE",
	OpCall:      "CALL",
	OpApply:     "APPLY",
	OpLambda:    "LAMBDA",
	OpBind:      "BIND",
	OpUnbind:    "UNBIND",
	OpLookup:    "LOOKUP",
	OpIsOmitted: "ISOMITTED",
	OpJump:      "JUMP",
	OpJumpIfFalsy: "JFALSY",
	OpJumpIfError: "JERR",
	OpPop:       "POP",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "UNKNOWN"
}

// hasOperand reports whether the opcode carries a u16 operand.
func (o Op) hasOperand() bool {
	switch o {
	case OpConst, OpRef, OpStruct, OpExtern, OpCall, OpApply, OpLambda,
		OpBind, OpUnbind, OpLookup, OpIsOmitted,
		OpJump, OpJumpIfFalsy, OpJumpIfError:
		return true
	}
	return false
}
