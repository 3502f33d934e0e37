package compiler

import (
	"fmt"
	"strings"
)

// Disassemble renders a Program as a flat, human-readable instruction
// listing, one line per Op, prefixed with its absolute index so jump
// targets can be cross-referenced by eye. Nested clip bodies are rendered
// indented immediately below their PUSHCLIP instruction.
func Disassemble(p *Program) string {
	var b strings.Builder
	if p.Name != "" {
		fmt.Fprintf(&b, "; %s\n", p.Name)
	}
	disasmOps(&b, p.Ops, 0)
	return b.String()
}

func disasmOps(b *strings.Builder, ops []Op, indent int) {
	pad := strings.Repeat("  ", indent)
	for i, op := range ops {
		fmt.Fprintf(b, "%s%4d  %s", pad, i, op.Op)
		switch op.Op {
		case PUSH:
			fmt.Fprintf(b, " %s", constString(op.Const))
		case PUSHCLIP:
			fmt.Fprintf(b, " (params=%v returns=%v)", op.Parts.Params, op.Parts.Returns)
		case MAKETUPLE, EXPANDTUPLE, PLAY, PLAYSELF:
			fmt.Fprintf(b, " %d", op.N)
		case JUMP, JUMPIFFALSE:
			fmt.Fprintf(b, " -> %d", op.Target)
		case LOAD, STORE, DECLAREANDSTORE, DECLAREANDSTOREIMMUTABLE,
			DEF, DEFPOP, DEFSELF, ACCESS, ACCESSPOP:
			fmt.Fprintf(b, " %q", op.Name)
		case LOADREF, STOREREF:
			fmt.Fprintf(b, " <cell %p>", op.CellRef)
		}
		b.WriteByte('\n')
		if op.Op == PUSHCLIP && len(op.Parts.Body) > 0 {
			disasmOps(b, op.Parts.Body, indent+1)
		}
	}
}

func constString(c Const) string {
	switch c.Kind {
	case ConstNil:
		return "nil"
	case ConstInt:
		return fmt.Sprintf("%d", c.Int)
	case ConstFloat:
		return fmt.Sprintf("%g", c.Float)
	case ConstBool:
		return fmt.Sprintf("%t", c.Bool)
	case ConstString:
		return fmt.Sprintf("%q", c.String)
	}
	return "?"
}
