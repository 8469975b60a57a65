package vm

import (
	"fmt"
	"strings"
)

// Disassemble renders a program's bytecode for diagnostics.
func Disassemble(p *Program) string {
	var sb strings.Builder
	disasmInto(&sb, p, "")
	return sb.String()
}

func disasmInto(sb *strings.Builder, p *Program, indent string) {
	ip := 0
	for ip < len(p.Code) {
		op := Op(p.Code[ip])
		at := ip
		ip++
		if !op.hasOperand() {
			fmt.Fprintf(sb, "%s%04d %s\n", indent, at, op)
			continue
		}
		arg := p.operand(ip)
		ip += 2
		switch op {
		case OpConst:
			fmt.Fprintf(sb, "%s%04d %-9s %d (%s)\n", indent, at, op, arg, p.Consts[arg].Display())
		case OpRef:
			r := p.Refs[arg]
			fmt.Fprintf(sb, "%s%04d %-9s %d %s\n", indent, at, op, arg, refOpString(r))
		case OpCall, OpApply:
			cs := p.Calls[arg]
			fmt.Fprintf(sb, "%s%04d %-9s %d %s/%d\n", indent, at, op, arg, cs.Name, len(cs.Args))
			for i, sub := range cs.Args {
				if sub == nil {
					fmt.Fprintf(sb, "%s  arg %d: omitted\n", indent, i)
					continue
				}
				fmt.Fprintf(sb, "%s  arg %d:\n", indent, i)
				disasmInto(sb, sub, indent+"    ")
			}
		case OpLambda:
			def := p.Lambdas[arg]
			fmt.Fprintf(sb, "%s%04d %-9s %d (%s)\n", indent, at, op, arg, strings.Join(def.Params, ","))
			disasmInto(sb, def.Body, indent+"    ")
		case OpBind, OpLookup, OpIsOmitted:
			fmt.Fprintf(sb, "%s%04d %-9s %q\n", indent, at, op, p.Consts[arg].Text)
		case OpJump, OpJumpIfFalsy, OpJumpIfError:
			fmt.Fprintf(sb, "%s%04d %-9s ->%04d\n", indent, at, op, arg)
		default:
			fmt.Fprintf(sb, "%s%04d %-9s %d\n", indent, at, op, arg)
		}
	}
}

func refOpString(r RefOp) string {
	var sb strings.Builder
	if r.HasSheet {
		fmt.Fprintf(&sb, "sheet %d", r.Sheet)
		if r.SheetEnd != r.Sheet {
			fmt.Fprintf(&sb, ":%d", r.SheetEnd)
		}
		sb.WriteByte(' ')
	}
	ax := func(a AxisOp) string {
		if a.Abs {
			return fmt.Sprintf("$%d", a.Disp)
		}
		return fmt.Sprintf("%+d", a.Disp)
	}
	switch {
	case r.WholeCol:
		fmt.Fprintf(&sb, "cols %s:%s", ax(r.C1), ax(r.C2))
	case r.WholeRow:
		fmt.Fprintf(&sb, "rows %s:%s", ax(r.R1), ax(r.R2))
	default:
		fmt.Fprintf(&sb, "r%s c%s : r%s c%s", ax(r.R1), ax(r.C1), ax(r.R2), ax(r.C2))
	}
	return sb.String()
}
