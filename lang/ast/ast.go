// Package ast defines the abstract syntax tree accepted by the compiler
// package. Every node carries the source line it originated from, for
// diagnostics; nothing else about source position is retained (no columns,
// no comment association, no quasi-lossless reprinting).
package ast

import "github.com/reklawnos/housecat/lang/token"

// Node is any node in the AST.
type Node interface {
	Line() int
	Walk(v Visitor)
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Chunk is a parsed file or fragment: a flat list of statements.
type Chunk struct {
	Stmts []Stmt
}

func (c *Chunk) Line() int { return 0 }
func (c *Chunk) Walk(v Visitor) {
	for _, s := range c.Stmts {
		Walk(v, s)
	}
}

// AssignItem is one left-hand-side target of an Assign or Def statement.
// Exactly one of Ident, Base (with Chain) or KeyExpr is set. Base and Chain
// hold an access chain whose trailing segment is the field being written
// (e.g. in `a.b.c`, Base is `a`, and Chain is ["b", "c"]).
type AssignItem struct {
	IdentLine int
	Ident     string // set for a bare identifier target, "" otherwise

	Base  Expr     // set for a dotted-chain target
	Chain []string // the sequence of field names after Base; len >= 1

	// KeyExpr is set only for a DefStmt item whose key is an arbitrary
	// expression rather than a bare ident or dotted chain (StmtItem::Expr
	// in the original source). The parser never produces this form; it
	// exists so DefStmt's full lowering contract (SPEC_FULL.md §4.3) can be
	// exercised by hand-built ASTs.
	KeyExpr Expr
}

func (it AssignItem) IsIdent() bool { return it.Base == nil && it.KeyExpr == nil }

// AssignStmt is `["var"|"let"] items : expr`. Declare is true when "var" or
// "let" was present (each item introduces a new cell); otherwise each item
// must already be bound (bare ident) or be a dotted-access chain. Immutable
// is set only alongside Declare, for "let": the new cell rejects later
// Store/StoreRef, and PushClip capture of it bakes in a copy instead of
// aliasing the cell (§4.5's get_ref Copy/Ref distinction).
type AssignStmt struct {
	LineNo    int
	Declare   bool
	Immutable bool
	Items     []AssignItem
	Value     Expr
}

func (s *AssignStmt) Line() int  { return s.LineNo }
func (s *AssignStmt) stmt()      {}
func (s *AssignStmt) Walk(v Visitor) {
	if !v.Visit(s) {
		return
	}
	for _, it := range s.Items {
		if it.Base != nil {
			Walk(v, it.Base)
		}
	}
	Walk(v, s.Value)
}

// DefStmt is `def items : expr`, writing into the current clip's defs.
type DefStmt struct {
	LineNo int
	Items  []AssignItem
	Value  Expr
}

func (s *DefStmt) Line() int { return s.LineNo }
func (s *DefStmt) stmt()     {}
func (s *DefStmt) Walk(v Visitor) {
	if !v.Visit(s) {
		return
	}
	for _, it := range s.Items {
		if it.Base != nil {
			Walk(v, it.Base)
		}
	}
	Walk(v, s.Value)
}

// BareStmt is a comma-separated list of expressions evaluated for their
// side effects (and left on the stack as a diagnostic).
type BareStmt struct {
	LineNo int
	Exprs  []Expr
}

func (s *BareStmt) Line() int { return s.LineNo }
func (s *BareStmt) stmt()     {}
func (s *BareStmt) Walk(v Visitor) {
	if !v.Visit(s) {
		return
	}
	for _, e := range s.Exprs {
		Walk(v, e)
	}
}

// IfClause is one `if`/`elif` condition-block pair.
type IfClause struct {
	Cond  Expr
	Block []Stmt
}

// IfStmt is `if clauses... [else block] end`.
type IfStmt struct {
	LineNo  int
	Clauses []IfClause
	Else    []Stmt // nil if no else branch
}

func (s *IfStmt) Line() int { return s.LineNo }
func (s *IfStmt) stmt()     {}
func (s *IfStmt) Walk(v Visitor) {
	if !v.Visit(s) {
		return
	}
	for _, c := range s.Clauses {
		Walk(v, c.Cond)
		for _, st := range c.Block {
			Walk(v, st)
		}
	}
	for _, st := range s.Else {
		Walk(v, st)
	}
}

// WhileStmt is `while cond do body end`.
type WhileStmt struct {
	LineNo int
	Cond   Expr
	Body   []Stmt
}

func (s *WhileStmt) Line() int { return s.LineNo }
func (s *WhileStmt) stmt()     {}
func (s *WhileStmt) Walk(v Visitor) {
	if !v.Visit(s) {
		return
	}
	Walk(v, s.Cond)
	for _, st := range s.Body {
		Walk(v, st)
	}
}

// ForStmt is `for ident in iter do body end`. Only a single binding ident
// is supported (matching the one the original source implements).
type ForStmt struct {
	LineNo int
	Ident  string
	Iter   Expr
	Body   []Stmt
}

func (s *ForStmt) Line() int { return s.LineNo }
func (s *ForStmt) stmt()     {}
func (s *ForStmt) Walk(v Visitor) {
	if !v.Visit(s) {
		return
	}
	Walk(v, s.Iter)
	for _, st := range s.Body {
		Walk(v, st)
	}
}

// ReturnStmt is a bare `return`.
type ReturnStmt struct {
	LineNo int
}

func (s *ReturnStmt) Line() int      { return s.LineNo }
func (s *ReturnStmt) stmt()          {}
func (s *ReturnStmt) Walk(v Visitor) { v.Visit(s) }

// ==================== Expressions ====================

// LiteralKind identifies which primitive a LiteralExpr holds.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitBool
	LitString
	LitNil
)

// LiteralExpr is a constant int/float/bool/string/nil literal.
type LiteralExpr struct {
	LineNo int
	Kind   LiteralKind
	Int    int64
	Float  float64
	Bool   bool
	Str    string
}

func (e *LiteralExpr) Line() int      { return e.LineNo }
func (e *LiteralExpr) expr()          {}
func (e *LiteralExpr) Walk(v Visitor) { v.Visit(e) }

// ClipExpr is a clip literal: `fn(params) -> returns body end`.
type ClipExpr struct {
	LineNo  int
	Params  []string
	Returns []string
	Body    []Stmt
}

func (e *ClipExpr) Line() int { return e.LineNo }
func (e *ClipExpr) expr()     {}
func (e *ClipExpr) Walk(v Visitor) {
	if !v.Visit(e) {
		return
	}
	for _, st := range e.Body {
		Walk(v, st)
	}
}

// IdentExpr is a bare name reference.
type IdentExpr struct {
	LineNo int
	Name   string
}

func (e *IdentExpr) Line() int      { return e.LineNo }
func (e *IdentExpr) expr()          {}
func (e *IdentExpr) Walk(v Visitor) { v.Visit(e) }

// UnOpKind identifies a unary operator.
type UnOpKind int

const (
	UnNeg UnOpKind = iota
	UnNot
	UnGet
)

// UnOpExpr is `op e`.
type UnOpExpr struct {
	LineNo int
	Op     UnOpKind
	X      Expr
}

func (e *UnOpExpr) Line() int { return e.LineNo }
func (e *UnOpExpr) expr()     {}
func (e *UnOpExpr) Walk(v Visitor) {
	if !v.Visit(e) {
		return
	}
	Walk(v, e.X)
}

// BinOpExpr is `l op r`.
type BinOpExpr struct {
	LineNo int
	Op     token.Token
	L, R   Expr
}

func (e *BinOpExpr) Line() int { return e.LineNo }
func (e *BinOpExpr) expr()     {}
func (e *BinOpExpr) Walk(v Visitor) {
	if !v.Visit(e) {
		return
	}
	Walk(v, e.L)
	Walk(v, e.R)
}

// TupleExpr is `(e1, e2, ...)`. A single-element parenthesized expression is
// not a TupleExpr (see the parser: a lone item is unwrapped).
type TupleExpr struct {
	LineNo int
	Items  []Expr
}

func (e *TupleExpr) Line() int { return e.LineNo }
func (e *TupleExpr) expr()     {}
func (e *TupleExpr) Walk(v Visitor) {
	if !v.Visit(e) {
		return
	}
	for _, it := range e.Items {
		Walk(v, it)
	}
}

// PostfixKind identifies one postfix operation in a PostfixExpr chain.
type PostfixKind int

const (
	PostfixPlay PostfixKind = iota
	PostfixPlaySelf
	PostfixIndex
	PostfixAccess
)

// Postfix is one segment of a postfix chain.
type Postfix struct {
	Kind  PostfixKind
	Args  []Expr // PostfixPlay, PostfixPlaySelf
	Index Expr   // PostfixIndex
	Name  string // PostfixAccess, PostfixPlaySelf
}

// PostfixExpr is `base pfx...`, e.g. `f(1, 2).field[0]`.
type PostfixExpr struct {
	LineNo int
	Base   Expr
	Chain  []Postfix
}

func (e *PostfixExpr) Line() int { return e.LineNo }
func (e *PostfixExpr) expr()     {}
func (e *PostfixExpr) Walk(v Visitor) {
	if !v.Visit(e) {
		return
	}
	Walk(v, e.Base)
	for _, p := range e.Chain {
		if p.Index != nil {
			Walk(v, p.Index)
		}
		for _, a := range p.Args {
			Walk(v, a)
		}
	}
}

// EmptyClipExpr is the `{}` literal: a clip with no params/returns/body, used
// as a bare object.
type EmptyClipExpr struct {
	LineNo int
}

func (e *EmptyClipExpr) Line() int      { return e.LineNo }
func (e *EmptyClipExpr) expr()          {}
func (e *EmptyClipExpr) Walk(v Visitor) { v.Visit(e) }
