package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reklawnos/housecat/lang/ast"
	"github.com/reklawnos/housecat/lang/compiler"
	"github.com/reklawnos/housecat/lang/parser"
)

func compile(t *testing.T, src string) *compiler.Program {
	t.Helper()
	chunk, err := parser.Parse(src)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk)
	require.NoError(t, err)
	return prog
}

func opNames(ops []compiler.Op) []string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Op.String()
	}
	return names
}

func TestCompileLiteralArith(t *testing.T) {
	prog := compile(t, "var x: 1 + 2 * 3")
	assert.Equal(t, []string{"push", "push", "push", "mul", "add", "declareandstore"}, opNames(prog.Ops))
	assert.Equal(t, "x", prog.Ops[len(prog.Ops)-1].Name)
}

func TestCompileIfElse(t *testing.T) {
	prog := compile(t, `
if true then
  var x: 1
else
  var x: 2
end
`)
	names := opNames(prog.Ops)
	assert.Contains(t, names, "jumpiffalse")
	assert.Contains(t, names, "pushscope")
	assert.Contains(t, names, "popscope")
	// every jump target must point at a real index in range
	for _, op := range prog.Ops {
		if op.Op == compiler.JUMP || op.Op == compiler.JUMPIFFALSE {
			require.GreaterOrEqual(t, op.Target, 0)
			require.LessOrEqual(t, op.Target, len(prog.Ops))
		}
	}
}

func TestCompileWhileScopesBody(t *testing.T) {
	prog := compile(t, `
var c: 0
while c < 3 do
  c: c + 1
end
`)
	names := opNames(prog.Ops)
	// the while body gets its own PushScope/PopScope pair, like if does.
	pushes, pops := 0, 0
	for _, n := range names {
		if n == "pushscope" {
			pushes++
		}
		if n == "popscope" {
			pops++
		}
	}
	assert.Equal(t, 1, pushes)
	assert.Equal(t, 1, pops)
}

func TestCompileForLoop(t *testing.T) {
	prog := compile(t, `
for x in xs do
  var y: x
end
`)
	names := opNames(prog.Ops)
	assert.Contains(t, names, "pushiterator")
	assert.Contains(t, names, "retrieveiterator")
	assert.Contains(t, names, "popiterator")
}

func TestCompileLetEmitsDeclareAndStoreImmutable(t *testing.T) {
	prog := compile(t, "let x: 1")
	assert.Equal(t, []string{"push", "declareandstoreimmutable"}, opNames(prog.Ops))
	assert.Equal(t, "x", prog.Ops[len(prog.Ops)-1].Name)
}

func TestCompileMultiAssignExpandsTuple(t *testing.T) {
	prog := compile(t, "var a, b: (1, 2)")
	names := opNames(prog.Ops)
	assert.Contains(t, names, "expandtuple")
	et := findOp(prog.Ops, compiler.EXPANDTUPLE)
	require.NotNil(t, et)
	assert.Equal(t, 2, et.N)
}

func TestCompileDefKeyExpr(t *testing.T) {
	chunk := &ast.Chunk{Stmts: []ast.Stmt{
		&ast.DefStmt{
			LineNo: 1,
			Items: []ast.AssignItem{{
				KeyExpr: &ast.LiteralExpr{Kind: ast.LitString, Str: "k"},
			}},
			Value: &ast.LiteralExpr{Kind: ast.LitInt, Int: 1},
		},
	}}
	prog, err := compiler.Compile(chunk)
	require.NoError(t, err)
	names := opNames(prog.Ops)
	assert.Equal(t, []string{"push", "push", "defpop"}, names)
}

func TestCompileRejectsDuplicateParamNames(t *testing.T) {
	chunk, err := parser.Parse(`var f: fn(x, x) -> r
  r: x
end`)
	require.NoError(t, err)
	_, err = compiler.Compile(chunk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate parameter")
}

func TestCompileRejectsDuplicateReturnNames(t *testing.T) {
	chunk, err := parser.Parse(`var f: fn(x) -> r, r
  r: x
end`)
	require.NoError(t, err)
	_, err = compiler.Compile(chunk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate return")
}

func findOp(ops []compiler.Op, op compiler.Opcode) *compiler.Op {
	for i := range ops {
		if ops[i].Op == op {
			return &ops[i]
		}
	}
	return nil
}
