package machine

// Cell is a box containing a Value, the unit of storage for a declared
// variable. Locals captured by an inner clip are shared through their cell
// (see vm.go's closure-capture rewrite) rather than copied, so that writes
// from either side are visible to the other. Immutable marks a cell
// declared without "var" reassignment rights (DeclareAndStoreImmutable);
// Set on such a cell is an immutability-violation error.
type Cell struct {
	v         Value
	immutable bool
}

func newCell(v Value, immutable bool) *Cell {
	return &Cell{v: v, immutable: immutable}
}

func (c *Cell) Get() Value { return c.v }

func (c *Cell) Set(v Value) error {
	if c.immutable {
		return &ExecError{Kind: ErrImmutabilityViolation, Msg: "cannot assign to an immutable binding"}
	}
	c.v = v
	return nil
}
