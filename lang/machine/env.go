package machine

import "github.com/dolthub/swiss"

// RefResult tags what get_ref found for a name: a mutable cell it can
// write through directly, a plain copy it cannot, or nothing at all.
type RefResult int

const (
	RefNone RefResult = iota
	RefCell
	RefCopy
)

// Environment is a stack of lexical frames. Frames are pushed/popped by
// PushScope/PopScope (block scoping) and by clip invocation (call
// frames); a name resolves to the innermost frame that declares it.
type Environment struct {
	frames []*swiss.Map[string, *Cell]
}

// NewEnvironment returns an environment with a single, empty outermost
// frame.
func NewEnvironment() *Environment {
	e := &Environment{}
	e.PushFrame()
	return e
}

func (e *Environment) PushFrame() {
	e.frames = append(e.frames, swiss.NewMap[string, *Cell](8))
}

func (e *Environment) PopFrame() {
	e.frames = e.frames[:len(e.frames)-1]
}

// Depth reports how many frames are currently live, for snapshotting and
// restoring environment state around a clip call.
func (e *Environment) Depth() int { return len(e.frames) }

// Truncate drops frames above depth, used to unwind the frame stack after
// a clip call regardless of how it returned.
func (e *Environment) Truncate(depth int) { e.frames = e.frames[:depth] }

func (e *Environment) top() *swiss.Map[string, *Cell] { return e.frames[len(e.frames)-1] }

// Declare introduces name in the innermost frame, shadowing any outer
// binding of the same name. immutable marks it as not assignable again.
func (e *Environment) Declare(name string, v Value, immutable bool) {
	e.top().Put(name, newCell(v, immutable))
}

// Get resolves name to a Value, searching outward from the innermost
// frame.
func (e *Environment) Get(name string) (Value, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if c, ok := e.frames[i].Get(name); ok {
			return c.Get(), true
		}
	}
	return Nil, false
}

// Set assigns to an already-declared name, searching outward. It does not
// declare; the caller (STORE) must have previously DECLAREANDSTORE'd the
// name, matching the language's "no implicit declaration on assign"
// invariant.
func (e *Environment) Set(name string, v Value) (bool, error) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if c, ok := e.frames[i].Get(name); ok {
			return true, c.Set(v)
		}
	}
	return false, nil
}

// GetRef is the get_ref lookup §4.5 step 2 describes: a mutable cell the
// caller can alias (RefCell), an immutable binding that must be copied
// rather than aliased (RefCopy), or nothing (RefNone). The closure-capture
// rewrite uses this to decide between LoadRef/StoreRef and a baked-in
// copy.
func (e *Environment) GetRef(name string) (RefResult, *Cell) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if c, ok := e.frames[i].Get(name); ok {
			if c.immutable {
				return RefCopy, c
			}
			return RefCell, c
		}
	}
	return RefNone, nil
}
