package machine

import "github.com/reklawnos/housecat/lang/compiler"

// Clip is both a callable (a closure over its enclosing scopes) and a
// mutable object (its defs self-dictionary). Params/Returns/Ops come
// straight from the compiled PUSHCLIP operand; Defs starts empty and is
// populated by Def/DefSelf/DefPop as the clip runs. Captured is set once
// PushClip's capture-rewrite has run over Ops, so that re-playing the same
// clip value never rewrites it twice (the rewrite is idempotent, but only
// because it runs at most once per Clip).
type Clip struct {
	Params  []string
	Returns []string
	Ops     []compiler.Op
	Defs    *defMap

	captured bool
}

func newClip(parts *compiler.ClipParts) *Clip {
	return &Clip{
		Params:  parts.Params,
		Returns: parts.Returns,
		Ops:     append([]compiler.Op(nil), parts.Body...),
		Defs:    newDefMap(),
	}
}

// Get implements the object protocol: an absent key yields (Nil, false)
// rather than an error (§4.6 — StdClip's contract).
func (c *Clip) Get(key Value) (Value, bool) {
	return c.Defs.get(key)
}

// Set writes key directly into defs, used by Def/DefPop/DefSelf.
func (c *Clip) Set(key, val Value) {
	c.Defs.set(key, val)
}

// NewImportedClip wraps a completed program's top-level exports (as
// returned by Thread.RunProgram) as a fresh, paramless Clip value — the
// shape the import builtin hands back to its caller, mirroring the
// original source's Import clip building a ClipStruct around the imported
// file's collected defs.
func NewImportedClip(defs map[string]Value) Value {
	c := &Clip{Defs: newDefMap()}
	for k, v := range defs {
		c.Defs.set(String(k), v)
	}
	return FromClip(c)
}
