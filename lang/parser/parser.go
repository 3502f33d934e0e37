// Package parser is a recursive-descent parser producing lang/ast trees from
// a lang/lexer token stream. Like lang/lexer, it is additive scaffolding:
// the grammar is described in SPEC_FULL.md §4.3.
package parser

import (
	"fmt"

	"github.com/reklawnos/housecat/lang/ast"
	"github.com/reklawnos/housecat/lang/lexer"
	"github.com/reklawnos/housecat/lang/token"
)

// Error is a parse error tagged with the line it occurred on.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

type parser struct {
	toks []lexer.Tok
	pos  int
}

// Parse scans and parses src into a Chunk. It stops at the first error.
func Parse(src string) (*ast.Chunk, error) {
	toks, errs := lexer.Scan(src)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	p := &parser{toks: toks}
	stmts, err := p.parseStmts(token.EOF)
	if err != nil {
		return nil, err
	}
	return &ast.Chunk{Stmts: stmts}, nil
}

func (p *parser) cur() lexer.Tok  { return p.toks[p.pos] }
func (p *parser) line() int       { return p.cur().Line }
func (p *parser) advance() lexer.Tok {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(k token.Token) bool { return p.cur().Kind == k }

func (p *parser) expect(k token.Token) (lexer.Tok, error) {
	if !p.at(k) {
		return lexer.Tok{}, &Error{Line: p.line(), Msg: fmt.Sprintf("expected %s, found %s", k, p.cur().Kind)}
	}
	return p.advance(), nil
}

// parseStmts parses statements until it sees one of the given terminator
// tokens (without consuming the terminator).
func (p *parser) parseStmts(terms ...token.Token) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for {
		if p.isTerm(terms) {
			return out, nil
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

func (p *parser) isTerm(terms []token.Token) bool {
	for _, t := range terms {
		if p.at(t) {
			return true
		}
	}
	return false
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	line := p.line()
	switch p.cur().Kind {
	case token.VAR:
		p.advance()
		return p.parseAssignLike(line, true, false, false)
	case token.LET:
		p.advance()
		return p.parseAssignLike(line, true, true, false)
	case token.DEF:
		p.advance()
		return p.parseAssignLike(line, false, false, true)
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.RETURN:
		p.advance()
		return &ast.ReturnStmt{LineNo: line}, nil
	default:
		return p.parseAssignOrBare(line)
	}
}

// parseAssignOrBare disambiguates a leading-expression statement: if it is
// followed by ":" (after a comma-separated run of assignable items) it is
// an (undeclared) assignment; otherwise it's a bare expression-list
// statement.
func (p *parser) parseAssignOrBare(line int) (ast.Stmt, error) {
	start := p.pos
	items, ok := p.tryParseAssignItems()
	if ok && p.at(token.ASSIGN) {
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{LineNo: line, Declare: false, Items: items, Value: val}, nil
	}
	p.pos = start
	exprs, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return &ast.BareStmt{LineNo: line, Exprs: exprs}, nil
}

func (p *parser) parseAssignLike(line int, declare, immutable, isDef bool) (ast.Stmt, error) {
	items, err := p.parseAssignItems()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if isDef {
		return &ast.DefStmt{LineNo: line, Items: items, Value: val}, nil
	}
	return &ast.AssignStmt{LineNo: line, Declare: declare, Immutable: immutable, Items: items, Value: val}, nil
}

func (p *parser) parseAssignItems() ([]ast.AssignItem, error) {
	var items []ast.AssignItem
	for {
		it, err := p.parseAssignItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		if !p.at(token.COMMA) {
			return items, nil
		}
		p.advance()
	}
}

// tryParseAssignItems attempts to parse a comma-separated assignable list
// without committing to it as a statement kind; ok is false if what follows
// cannot be an assignment target list (caller should backtrack).
func (p *parser) tryParseAssignItems() (items []ast.AssignItem, ok bool) {
	if !p.at(token.IDENT) {
		return nil, false
	}
	save := p.pos
	its, err := p.parseAssignItems()
	if err != nil {
		p.pos = save
		return nil, false
	}
	return its, true
}

func (p *parser) parseAssignItem() (ast.AssignItem, error) {
	line := p.line()
	tok, err := p.expect(token.IDENT)
	if err != nil {
		return ast.AssignItem{}, err
	}
	if !p.at(token.DOT) {
		return ast.AssignItem{IdentLine: line, Ident: tok.Lit}, nil
	}
	base := ast.Expr(&ast.IdentExpr{LineNo: line, Name: tok.Lit})
	var chain []string
	for p.at(token.DOT) {
		p.advance()
		nt, err := p.expect(token.IDENT)
		if err != nil {
			return ast.AssignItem{}, err
		}
		chain = append(chain, nt.Lit)
	}
	return ast.AssignItem{Base: base, Chain: chain}, nil
}

func (p *parser) parseBlock(terms ...token.Token) ([]ast.Stmt, error) {
	return p.parseStmts(terms...)
}

func (p *parser) parseIf() (ast.Stmt, error) {
	line := p.line()
	p.advance() // if
	var clauses []ast.IfClause
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.THEN); err != nil {
		return nil, err
	}
	block, err := p.parseBlock(token.ELIF, token.ELSE, token.END)
	if err != nil {
		return nil, err
	}
	clauses = append(clauses, ast.IfClause{Cond: cond, Block: block})
	for p.at(token.ELIF) {
		p.advance()
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		b, err := p.parseBlock(token.ELIF, token.ELSE, token.END)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, ast.IfClause{Cond: c, Block: b})
	}
	var elseBlock []ast.Stmt
	if p.at(token.ELSE) {
		p.advance()
		elseBlock, err = p.parseBlock(token.END)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return &ast.IfStmt{LineNo: line, Clauses: clauses, Else: elseBlock}, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	line := p.line()
	p.advance() // while
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(token.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{LineNo: line, Cond: cond, Body: body}, nil
}

func (p *parser) parseFor() (ast.Stmt, error) {
	line := p.line()
	p.advance() // for
	identTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(token.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return &ast.ForStmt{LineNo: line, Ident: identTok.Lit, Iter: iter, Body: body}, nil
}

// ==================== Expressions ====================

func (p *parser) parseExprList() ([]ast.Expr, error) {
	var out []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if !p.at(token.COMMA) {
			return out, nil
		}
		p.advance()
	}
}

func (p *parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (ast.Expr, error) {
	return p.parseBinaryLevel(token.OR, p.parseAnd)
}

func (p *parser) parseAnd() (ast.Expr, error) {
	return p.parseBinaryLevel(token.AND, p.parseEquality)
}

func (p *parser) parseEquality() (ast.Expr, error) {
	return p.parseBinaryLevel2(p.parseRelational, token.EQ, token.NEQ)
}

func (p *parser) parseRelational() (ast.Expr, error) {
	return p.parseBinaryLevel2(p.parseIn, token.LT, token.LE, token.GT, token.GE)
}

func (p *parser) parseIn() (ast.Expr, error) {
	return p.parseBinaryLevel(token.IN, p.parseAdditive)
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	return p.parseBinaryLevel2(p.parseMultiplicative, token.PLUS, token.MINUS)
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	return p.parseBinaryLevel2(p.parseExponential, token.STAR, token.SLASH, token.PERCENT)
}

func (p *parser) parseExponential() (ast.Expr, error) {
	return p.parseBinaryLevel(token.CARET, p.parseUnary)
}

func (p *parser) parseBinaryLevel(op token.Token, next func() (ast.Expr, error)) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.at(op) {
		line := p.line()
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOpExpr{LineNo: line, Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseBinaryLevel2(next func() (ast.Expr, error), ops ...token.Token) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range ops {
			if p.at(op) {
				matched = true
				line := p.line()
				p.advance()
				right, err := next()
				if err != nil {
					return nil, err
				}
				left = &ast.BinOpExpr{LineNo: line, Op: op, L: left, R: right}
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (ast.Expr, error) {
	line := p.line()
	switch p.cur().Kind {
	case token.MINUS:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnOpExpr{LineNo: line, Op: ast.UnNeg, X: x}, nil
	case token.BANG:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnOpExpr{LineNo: line, Op: ast.UnNot, X: x}, nil
	case token.DOLLAR:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnOpExpr{LineNo: line, Op: ast.UnGet, X: x}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	line := p.line()
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	var chain []ast.Postfix
	for {
		switch p.cur().Kind {
		case token.LPAREN:
			p.advance()
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			chain = append(chain, ast.Postfix{Kind: ast.PostfixPlay, Args: args})
		case token.LBRACK:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACK); err != nil {
				return nil, err
			}
			chain = append(chain, ast.Postfix{Kind: ast.PostfixIndex, Index: idx})
		case token.DOT:
			p.advance()
			nameTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			if p.at(token.LPAREN) {
				p.advance()
				args, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				chain = append(chain, ast.Postfix{Kind: ast.PostfixPlaySelf, Name: nameTok.Lit, Args: args})
			} else {
				chain = append(chain, ast.Postfix{Kind: ast.PostfixAccess, Name: nameTok.Lit})
			}
		default:
			if len(chain) == 0 {
				return base, nil
			}
			return &ast.PostfixExpr{LineNo: line, Base: base, Chain: chain}, nil
		}
	}
}

func (p *parser) parseArgList() ([]ast.Expr, error) {
	if p.at(token.RPAREN) {
		p.advance()
		return nil, nil
	}
	args, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	line := p.line()
	tok := p.cur()
	switch tok.Kind {
	case token.IDENT:
		p.advance()
		return &ast.IdentExpr{LineNo: line, Name: tok.Lit}, nil
	case token.INT:
		p.advance()
		return &ast.LiteralExpr{LineNo: line, Kind: ast.LitInt, Int: tok.Int}, nil
	case token.FLOAT:
		p.advance()
		return &ast.LiteralExpr{LineNo: line, Kind: ast.LitFloat, Float: tok.Float}, nil
	case token.STRING:
		p.advance()
		return &ast.LiteralExpr{LineNo: line, Kind: ast.LitString, Str: tok.Lit}, nil
	case token.TRUE:
		p.advance()
		return &ast.LiteralExpr{LineNo: line, Kind: ast.LitBool, Bool: true}, nil
	case token.FALSE:
		p.advance()
		return &ast.LiteralExpr{LineNo: line, Kind: ast.LitBool, Bool: false}, nil
	case token.NIL:
		p.advance()
		return &ast.LiteralExpr{LineNo: line, Kind: ast.LitNil}, nil
	case token.LBRACE:
		p.advance()
		if _, err := p.expect(token.RBRACE); err != nil {
			return nil, err
		}
		return &ast.EmptyClipExpr{LineNo: line}, nil
	case token.FN:
		p.advance()
		return p.parseClipLiteral(line)
	case token.LPAREN:
		p.advance()
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.at(token.RPAREN) {
			p.advance()
			return first, nil
		}
		items := []ast.Expr{first}
		for p.at(token.COMMA) {
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, e)
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.TupleExpr{LineNo: line, Items: items}, nil
	default:
		return nil, &Error{Line: line, Msg: fmt.Sprintf("unexpected token %s", tok.Kind)}
	}
}

func (p *parser) parseClipLiteral(line int) (ast.Expr, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	if !p.at(token.RPAREN) {
		for {
			t, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			params = append(params, t.Lit)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	var returns []string
	if p.at(token.ARROW) {
		p.advance()
		for {
			t, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			returns = append(returns, t.Lit)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	body, err := p.parseBlock(token.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return &ast.ClipExpr{LineNo: line, Params: params, Returns: returns, Body: body}, nil
}
