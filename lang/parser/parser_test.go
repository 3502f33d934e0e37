package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reklawnos/housecat/lang/ast"
	"github.com/reklawnos/housecat/lang/parser"
	"github.com/reklawnos/housecat/lang/token"
)

func parse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	chunk, err := parser.Parse(src)
	require.NoError(t, err)
	return chunk
}

func TestParseVarDeclAndArithPrecedence(t *testing.T) {
	chunk := parse(t, "var x: 1 + 2 * 3")
	require.Len(t, chunk.Stmts, 1)
	as := chunk.Stmts[0].(*ast.AssignStmt)
	require.True(t, as.Declare)
	require.Len(t, as.Items, 1)
	require.Equal(t, "x", as.Items[0].Ident)

	bin := as.Value.(*ast.BinOpExpr)
	require.Equal(t, token.PLUS, bin.Op)
	require.IsType(t, &ast.LiteralExpr{}, bin.L)
	mul := bin.R.(*ast.BinOpExpr)
	require.Equal(t, token.STAR, mul.Op)
}

func TestParseMultiItemDestructure(t *testing.T) {
	chunk := parse(t, "var a, b: (1, 2)")
	as := chunk.Stmts[0].(*ast.AssignStmt)
	require.Len(t, as.Items, 2)
	require.Equal(t, "a", as.Items[0].Ident)
	require.Equal(t, "b", as.Items[1].Ident)
	tup := as.Value.(*ast.TupleExpr)
	require.Len(t, tup.Items, 2)
}

func TestParseDottedAssignTarget(t *testing.T) {
	chunk := parse(t, "o.k: 7")
	as := chunk.Stmts[0].(*ast.AssignStmt)
	require.False(t, as.Declare)
	require.NotNil(t, as.Items[0].Base)
	require.Equal(t, []string{"k"}, as.Items[0].Chain)
}

func TestParseIfElifElse(t *testing.T) {
	chunk := parse(t, `
if x = 1 then
  var y: "a"
elif x = 2 then
  var y: "b"
else
  var y: "c"
end`)
	ifs := chunk.Stmts[0].(*ast.IfStmt)
	require.Len(t, ifs.Clauses, 2)
	require.NotNil(t, ifs.Else)
}

func TestParseWhileLoop(t *testing.T) {
	chunk := parse(t, `
while i < 5 do
  i: i + 1
end`)
	ws := chunk.Stmts[0].(*ast.WhileStmt)
	require.IsType(t, &ast.BinOpExpr{}, ws.Cond)
	require.Len(t, ws.Body, 1)
}

func TestParseForLoop(t *testing.T) {
	chunk := parse(t, `
for x in xs do
  print(x)
end`)
	fs := chunk.Stmts[0].(*ast.ForStmt)
	require.Equal(t, "x", fs.Ident)
	require.IsType(t, &ast.IdentExpr{}, fs.Iter)
}

func TestParseClipLiteralNoDoBeforeBody(t *testing.T) {
	chunk := parse(t, `var f: fn(x) -> r
  r: x * x
end`)
	as := chunk.Stmts[0].(*ast.AssignStmt)
	clip := as.Value.(*ast.ClipExpr)
	require.Equal(t, []string{"x"}, clip.Params)
	require.Equal(t, []string{"r"}, clip.Returns)
	require.Len(t, clip.Body, 1)
}

func TestParsePlayAndPlaySelfChain(t *testing.T) {
	chunk := parse(t, "a.add(5)")
	bs := chunk.Stmts[0].(*ast.BareStmt)
	pfx := bs.Exprs[0].(*ast.PostfixExpr)
	require.Equal(t, "a", pfx.Base.(*ast.IdentExpr).Name)
	require.Len(t, pfx.Chain, 1)
	require.Equal(t, ast.PostfixPlaySelf, pfx.Chain[0].Kind)
	require.Equal(t, "add", pfx.Chain[0].Name)
	require.Len(t, pfx.Chain[0].Args, 1)
}

func TestParsePlainAccessIsNotPlaySelf(t *testing.T) {
	chunk := parse(t, "o.k")
	bs := chunk.Stmts[0].(*ast.BareStmt)
	pfx := bs.Exprs[0].(*ast.PostfixExpr)
	require.Len(t, pfx.Chain, 1)
	require.Equal(t, ast.PostfixAccess, pfx.Chain[0].Kind)
}

func TestParseInOperator(t *testing.T) {
	chunk := parse(t, `var ok: 1 in (1, 2, 3)`)
	as := chunk.Stmts[0].(*ast.AssignStmt)
	bin := as.Value.(*ast.BinOpExpr)
	require.Equal(t, token.IN, bin.Op)
}

func TestParseExponentOperator(t *testing.T) {
	chunk := parse(t, `var p: 2 ^ 10`)
	as := chunk.Stmts[0].(*ast.AssignStmt)
	bin := as.Value.(*ast.BinOpExpr)
	require.Equal(t, token.CARET, bin.Op)
}

func TestParseUnterminatedIfIsError(t *testing.T) {
	_, err := parser.Parse(`if x = 1 then var y: 1`)
	require.Error(t, err)
}

func TestParseLetDeclIsImmutable(t *testing.T) {
	chunk := parse(t, "let x: 1")
	as := chunk.Stmts[0].(*ast.AssignStmt)
	require.True(t, as.Declare)
	require.True(t, as.Immutable)
	require.Equal(t, "x", as.Items[0].Ident)
}

func TestParseVarDeclIsNotImmutable(t *testing.T) {
	chunk := parse(t, "var x: 1")
	as := chunk.Stmts[0].(*ast.AssignStmt)
	require.True(t, as.Declare)
	require.False(t, as.Immutable)
}
