package ast

// Visitor is implemented by callers of Walk. Visit is called for each node
// before its children are visited; returning false prevents Walk from
// descending into that node's children.
type Visitor interface {
	Visit(n Node) bool
}

// Walk traverses the AST in depth-first order, calling v.Visit for n and
// (if it returns true) for each of n's children.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	n.Walk(v)
}

// inspector adapts a plain func(Node) bool into a Visitor.
type inspector func(Node) bool

func (f inspector) Visit(n Node) bool { return f(n) }

// Inspect walks n, calling f for each node. Nodes are filtered out of
// traversal below the point where f returns false.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}
