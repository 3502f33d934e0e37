package compiler

import (
	"fmt"

	"github.com/reklawnos/housecat/lang/ast"
	"github.com/reklawnos/housecat/lang/token"
)

// Error is a codegen failure tagged with the source line it occurred at,
// matching the original "CODEGEN FAILURE at line N: ..." convention.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("codegen failure at line %d: %s", e.Line, e.Msg) }

func fail(line int, format string, args ...interface{}) error {
	return &Error{Line: line, Msg: fmt.Sprintf(format, args...)}
}

type gen struct {
	ops []Op
}

// Compile lowers a parsed chunk into a flat, executable Program. This is
// the codegen pass described in SPEC_FULL.md §4.3: every rule below mirrors
// the original specification exactly, using backpatched jump targets
// (compute the jump site now, patch its Target field once the destination
// is known) instead of the source's pre-computed-offset arithmetic — an
// equivalent, more idiomatic way to reach the same absolute-index jump
// targets the spec requires.
func Compile(chunk *ast.Chunk) (*Program, error) {
	if err := validateClips(chunk); err != nil {
		return nil, err
	}
	g := &gen{}
	if err := g.stmts(chunk.Stmts); err != nil {
		return nil, err
	}
	return &Program{Ops: g.ops}, nil
}

// validateClips walks the whole chunk looking for clip literals with
// duplicate parameter or return names; codegen has no way to tell apart two
// formals bound to the same identifier (the second DECLAREANDSTORE would
// silently shadow the first), so this is caught up front instead of
// producing a clip that can never reach one of its own parameters.
func validateClips(chunk *ast.Chunk) error {
	var err error
	ast.Inspect(chunk, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		clip, ok := n.(*ast.ClipExpr)
		if !ok {
			return true
		}
		if dup := firstDuplicate(clip.Params); dup != "" {
			err = fail(clip.LineNo, "duplicate parameter name %q", dup)
			return false
		}
		if dup := firstDuplicate(clip.Returns); dup != "" {
			err = fail(clip.LineNo, "duplicate return name %q", dup)
			return false
		}
		return true
	})
	return err
}

func firstDuplicate(names []string) string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return n
		}
		seen[n] = true
	}
	return ""
}

func (g *gen) emit(op Op) int {
	idx := len(g.ops)
	g.ops = append(g.ops, op)
	return idx
}

func (g *gen) here() int { return len(g.ops) }

func (g *gen) patchTarget(idx, target int) { g.ops[idx].Target = target }

func (g *gen) stmts(list []ast.Stmt) error {
	for _, s := range list {
		if err := g.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Expressions ====================

func (g *gen) expr(e ast.Expr) error {
	line := e.Line()
	switch n := e.(type) {
	case *ast.LiteralExpr:
		switch n.Kind {
		case ast.LitInt:
			g.emit(Op{Op: PUSH, Line: line, Const: Const{Kind: ConstInt, Int: n.Int}})
		case ast.LitFloat:
			g.emit(Op{Op: PUSH, Line: line, Const: Const{Kind: ConstFloat, Float: n.Float}})
		case ast.LitBool:
			g.emit(Op{Op: PUSH, Line: line, Const: Const{Kind: ConstBool, Bool: n.Bool}})
		case ast.LitString:
			g.emit(Op{Op: PUSH, Line: line, Const: Const{Kind: ConstString, String: n.Str}})
		case ast.LitNil:
			g.emit(Op{Op: PUSH, Line: line, Const: Const{Kind: ConstNil}})
		}
		return nil

	case *ast.EmptyClipExpr:
		g.emit(Op{Op: PUSHCLIP, Line: line, Parts: &ClipParts{}})
		return nil

	case *ast.ClipExpr:
		body, err := compileBody(n.Body)
		if err != nil {
			return err
		}
		g.emit(Op{Op: PUSHCLIP, Line: line, Parts: &ClipParts{
			Params:  append([]string(nil), n.Params...),
			Returns: append([]string(nil), n.Returns...),
			Body:    body,
		}})
		return nil

	case *ast.IdentExpr:
		g.emit(Op{Op: LOAD, Line: line, Name: n.Name})
		return nil

	case *ast.UnOpExpr:
		if err := g.expr(n.X); err != nil {
			return err
		}
		var op Opcode
		switch n.Op {
		case ast.UnNeg:
			op = NEG
		case ast.UnNot:
			op = NOT
		case ast.UnGet:
			op = GET
		}
		g.emit(Op{Op: op, Line: line})
		return nil

	case *ast.BinOpExpr:
		if err := g.expr(n.L); err != nil {
			return err
		}
		if err := g.expr(n.R); err != nil {
			return err
		}
		op, ok := binOpcode(n.Op)
		if !ok {
			return fail(line, "unsupported binary operator %s", n.Op)
		}
		g.emit(Op{Op: op, Line: line})
		return nil

	case *ast.TupleExpr:
		for i := len(n.Items) - 1; i >= 0; i-- {
			if err := g.expr(n.Items[i]); err != nil {
				return err
			}
		}
		if len(n.Items) > 1 {
			g.emit(Op{Op: MAKETUPLE, Line: line, N: len(n.Items)})
		}
		return nil

	case *ast.PostfixExpr:
		if err := g.expr(n.Base); err != nil {
			return err
		}
		for _, pfx := range n.Chain {
			switch pfx.Kind {
			case ast.PostfixPlay:
				for i := len(pfx.Args) - 1; i >= 0; i-- {
					if err := g.expr(pfx.Args[i]); err != nil {
						return err
					}
				}
				g.emit(Op{Op: PLAY, Line: line, N: len(pfx.Args)})
			case ast.PostfixPlaySelf:
				g.emit(Op{Op: ACCESS, Line: line, Name: pfx.Name})
				for i := len(pfx.Args) - 1; i >= 0; i-- {
					if err := g.expr(pfx.Args[i]); err != nil {
						return err
					}
				}
				g.emit(Op{Op: PLAYSELF, Line: line, N: len(pfx.Args)})
			case ast.PostfixIndex:
				if err := g.expr(pfx.Index); err != nil {
					return err
				}
				g.emit(Op{Op: GETANDACCESS, Line: line})
			case ast.PostfixAccess:
				g.emit(Op{Op: ACCESSPOP, Line: line, Name: pfx.Name})
			}
		}
		return nil

	default:
		return fail(line, "unsupported expression type %T", e)
	}
}

func binOpcode(t token.Token) (Opcode, bool) {
	switch t {
	case token.PLUS:
		return ADD, true
	case token.MINUS:
		return SUB, true
	case token.STAR:
		return MUL, true
	case token.SLASH:
		return DIV, true
	case token.PERCENT:
		return MOD, true
	case token.CARET:
		return EXP, true
	case token.IN:
		return IN, true
	case token.LT:
		return LT, true
	case token.LE:
		return LE, true
	case token.GT:
		return GT, true
	case token.GE:
		return GE, true
	case token.EQ:
		return EQ, true
	case token.NEQ:
		return NEQ, true
	case token.AND:
		return AND, true
	case token.OR:
		return OR, true
	}
	return 0, false
}

// compileBody lowers a nested statement list (a clip body) into its own
// opcode vector, independent of the enclosing gen's ops.
func compileBody(stmts []ast.Stmt) ([]Op, error) {
	g := &gen{}
	if err := g.stmts(stmts); err != nil {
		return nil, err
	}
	return g.ops, nil
}

// ==================== Statements ====================

func (g *gen) stmt(s ast.Stmt) error {
	line := s.Line()
	switch n := s.(type) {
	case *ast.AssignStmt:
		return g.assign(line, n.Items, n.Value, n.Declare, n.Immutable)
	case *ast.DefStmt:
		return g.def(line, n.Items, n.Value)
	case *ast.BareStmt:
		for _, e := range n.Exprs {
			if err := g.expr(e); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStmt:
		return g.ifStmt(n)
	case *ast.WhileStmt:
		return g.whileStmt(n)
	case *ast.ForStmt:
		return g.forStmt(n)
	case *ast.ReturnStmt:
		g.emit(Op{Op: RETURN, Line: line})
		return nil
	default:
		return fail(line, "unsupported statement type %T", s)
	}
}

func (g *gen) assign(line int, items []ast.AssignItem, value ast.Expr, declare, immutable bool) error {
	if err := g.expr(value); err != nil {
		return err
	}
	if len(items) > 1 {
		g.emit(Op{Op: EXPANDTUPLE, Line: line, N: len(items)})
	}
	for _, it := range items {
		if err := g.assignItem(line, it, declare, immutable); err != nil {
			return err
		}
	}
	return nil
}

func (g *gen) assignItem(line int, it ast.AssignItem, declare, immutable bool) error {
	if it.Base == nil {
		switch {
		case declare && immutable:
			g.emit(Op{Op: DECLAREANDSTOREIMMUTABLE, Line: line, Name: it.Ident})
		case declare:
			g.emit(Op{Op: DECLAREANDSTORE, Line: line, Name: it.Ident})
		default:
			g.emit(Op{Op: STORE, Line: line, Name: it.Ident})
		}
		return nil
	}
	if declare {
		return fail(line, "cannot declare a dotted assignment target")
	}
	if err := g.expr(it.Base); err != nil {
		return err
	}
	for i := 0; i < len(it.Chain)-1; i++ {
		g.emit(Op{Op: ACCESS, Line: line, Name: it.Chain[i]})
	}
	g.emit(Op{Op: DEF, Line: line, Name: it.Chain[len(it.Chain)-1]})
	return nil
}

func (g *gen) def(line int, items []ast.AssignItem, value ast.Expr) error {
	if len(items) > 1 {
		return fail(line, "multi-item def is not supported")
	}
	it := items[0]
	switch {
	case it.KeyExpr != nil:
		if err := g.expr(it.KeyExpr); err != nil {
			return err
		}
		if err := g.expr(value); err != nil {
			return err
		}
		g.emit(Op{Op: DEFPOP, Line: line})
		return nil
	case it.Base == nil && len(it.Chain) == 0:
		if err := g.expr(value); err != nil {
			return err
		}
		g.emit(Op{Op: DEFSELF, Line: line, Name: it.Ident})
		return nil
	default:
		if err := g.expr(value); err != nil {
			return err
		}
		if err := g.expr(it.Base); err != nil {
			return err
		}
		for i := 0; i < len(it.Chain)-1; i++ {
			g.emit(Op{Op: ACCESS, Line: line, Name: it.Chain[i]})
		}
		g.emit(Op{Op: DEF, Line: line, Name: it.Chain[len(it.Chain)-1]})
		return nil
	}
}

func (g *gen) ifStmt(n *ast.IfStmt) error {
	var endJumps []int
	for _, clause := range n.Clauses {
		if err := g.expr(clause.Cond); err != nil {
			return err
		}
		falseJump := g.emit(Op{Op: JUMPIFFALSE, Line: n.LineNo})
		g.emit(Op{Op: PUSHSCOPE, Line: n.LineNo})
		if err := g.stmts(clause.Block); err != nil {
			return err
		}
		g.emit(Op{Op: POPSCOPE, Line: n.LineNo})
		endJumps = append(endJumps, g.emit(Op{Op: JUMP, Line: n.LineNo}))
		g.patchTarget(falseJump, g.here())
		g.emit(Op{Op: JUMPTARGET, Line: n.LineNo})
	}
	if n.Else != nil {
		g.emit(Op{Op: PUSHSCOPE, Line: n.LineNo})
		if err := g.stmts(n.Else); err != nil {
			return err
		}
		g.emit(Op{Op: POPSCOPE, Line: n.LineNo})
	}
	end := g.here()
	g.emit(Op{Op: JUMPTARGET, Line: n.LineNo})
	for _, j := range endJumps {
		g.patchTarget(j, end)
	}
	return nil
}

// whileStmt wraps the body in PushScope/PopScope per iteration, matching
// `if`'s per-branch scoping (the Open Question decision recorded in
// DESIGN.md), unlike the original source which introduces no scope here.
func (g *gen) whileStmt(n *ast.WhileStmt) error {
	continueTarget := g.here()
	g.emit(Op{Op: JUMPTARGET, Line: n.LineNo})
	if err := g.expr(n.Cond); err != nil {
		return err
	}
	breakJump := g.emit(Op{Op: JUMPIFFALSE, Line: n.LineNo})
	g.emit(Op{Op: PUSHSCOPE, Line: n.LineNo})
	if err := g.stmts(n.Body); err != nil {
		return err
	}
	g.emit(Op{Op: POPSCOPE, Line: n.LineNo})
	g.emit(Op{Op: JUMP, Line: n.LineNo, Target: continueTarget})
	g.patchTarget(breakJump, g.here())
	g.emit(Op{Op: JUMPTARGET, Line: n.LineNo})
	return nil
}

func (g *gen) forStmt(n *ast.ForStmt) error {
	if err := g.expr(n.Iter); err != nil {
		return err
	}
	g.emit(Op{Op: PUSHSCOPE, Line: n.LineNo})
	g.emit(Op{Op: PUSHITERATOR, Line: n.LineNo})
	continueTarget := g.here()
	g.emit(Op{Op: JUMPTARGET, Line: n.LineNo})
	g.emit(Op{Op: RETRIEVEITERATOR, Line: n.LineNo})
	g.emit(Op{Op: ACCESS, Line: n.LineNo, Name: "next"})
	g.emit(Op{Op: PLAYSELF, Line: n.LineNo, N: 0})
	g.emit(Op{Op: DECLAREANDSTORE, Line: n.LineNo, Name: n.Ident})
	g.emit(Op{Op: LOAD, Line: n.LineNo, Name: n.Ident})
	g.emit(Op{Op: PUSH, Line: n.LineNo, Const: Const{Kind: ConstNil}})
	g.emit(Op{Op: NEQ, Line: n.LineNo})
	breakJump := g.emit(Op{Op: JUMPIFFALSE, Line: n.LineNo})
	if err := g.stmts(n.Body); err != nil {
		return err
	}
	g.emit(Op{Op: JUMP, Line: n.LineNo, Target: continueTarget})
	g.patchTarget(breakJump, g.here())
	g.emit(Op{Op: JUMPTARGET, Line: n.LineNo})
	g.emit(Op{Op: POPITERATOR, Line: n.LineNo})
	g.emit(Op{Op: POPSCOPE, Line: n.LineNo})
	return nil
}
