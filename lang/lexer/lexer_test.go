package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reklawnos/housecat/lang/lexer"
	"github.com/reklawnos/housecat/lang/token"
)

func kinds(toks []lexer.Tok) []token.Token {
	out := make([]token.Token, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestScanArithmeticAndKeywords(t *testing.T) {
	toks, errs := lexer.Scan(`var x: 1 + 2 * 3
if x >= 4 then print(x) end`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.VAR, token.IDENT, token.ASSIGN, token.INT, token.PLUS, token.INT, token.STAR, token.INT,
		token.IF, token.IDENT, token.GE, token.INT, token.THEN, token.IDENT, token.LPAREN, token.IDENT, token.RPAREN, token.END,
		token.EOF,
	}, kinds(toks))
}

func TestScanMultiCharOperators(t *testing.T) {
	toks, errs := lexer.Scan(`-> <= >= != && ||`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.ARROW, token.LE, token.GE, token.NEQ, token.AND, token.OR, token.EOF,
	}, kinds(toks))
}

func TestScanIntAndFloatLiterals(t *testing.T) {
	toks, errs := lexer.Scan(`42 3.14 2e10 1.5e-3`)
	require.Empty(t, errs)
	require.Equal(t, token.INT, toks[0].Kind)
	require.Equal(t, int64(42), toks[0].Int)
	require.Equal(t, token.FLOAT, toks[1].Kind)
	require.InDelta(t, 3.14, toks[1].Float, 1e-9)
	require.Equal(t, token.FLOAT, toks[2].Kind)
	require.InDelta(t, 2e10, toks[2].Float, 1)
	require.Equal(t, token.FLOAT, toks[3].Kind)
	require.InDelta(t, 1.5e-3, toks[3].Float, 1e-9)
}

func TestScanStringEscapes(t *testing.T) {
	toks, errs := lexer.Scan(`"hi\nthere\t\"quoted\""`)
	require.Empty(t, errs)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "hi\nthere\t\"quoted\"", toks[0].Lit)
}

func TestScanSkipsCommentsAndWhitespace(t *testing.T) {
	toks, errs := lexer.Scan("# a comment\n  var x: 1 # trailing\n")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.VAR, token.IDENT, token.ASSIGN, token.INT, token.EOF}, kinds(toks))
}

func TestScanUnterminatedStringReportsError(t *testing.T) {
	_, errs := lexer.Scan(`"unterminated`)
	require.NotEmpty(t, errs)
}

func TestScanUnexpectedCharacterReportsErrorAndRecovers(t *testing.T) {
	toks, errs := lexer.Scan("var x: 1 ~ 2")
	require.NotEmpty(t, errs)
	// scanning continues past the bad byte rather than aborting
	require.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}

func TestScanTracksLineNumbers(t *testing.T) {
	toks, errs := lexer.Scan("var x: 1\nvar y: 2\n")
	require.Empty(t, errs)
	require.Equal(t, 1, toks[0].Line)
	var secondVarLine int
	count := 0
	for _, tk := range toks {
		if tk.Kind == token.VAR {
			count++
			if count == 2 {
				secondVarLine = tk.Line
			}
		}
	}
	require.Equal(t, 2, secondVarLine)
}
