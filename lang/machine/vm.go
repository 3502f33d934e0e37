package machine

import (
	"context"

	"github.com/reklawnos/housecat/lang/compiler"
)

// frame is one nested execute() invocation's private state: its own value
// stack, its own iterator stack, and the clip it is running as (self), used
// by Def/DefPop/DefSelf/Access*.
type frame struct {
	stack []Value
	iters []Value
	self  *Clip
}

func (f *frame) push(v Value)  { f.stack = append(f.stack, v) }
func (f *frame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}
func (f *frame) top() Value { return f.stack[len(f.stack)-1] }

// execute runs ops to completion (pc reaches len(ops)) or until Return,
// against env and the given self clip (the receiver of Def/Access-style
// opcodes). It returns only an error: values left on its value stack are
// discarded, and Play/PlaySelf derive a clip's result from the declared
// return bindings (§4.5 step 5) instead.
func (t *Thread) execute(ops []compiler.Op, env *Environment, self *Clip) error {
	f := &frame{self: self}
	pc := 0
	for pc < len(ops) {
		if err := t.step(); err != nil {
			return err
		}
		op := ops[pc]
		next, err := t.dispatch(op, f, env)
		if err != nil {
			return err
		}
		if next == returnSignal {
			return nil
		}
		if next >= 0 {
			pc = next
		} else {
			pc++
		}
	}
	return nil
}

const returnSignal = -2

// dispatch executes a single opcode, returning the next pc (or -1 to mean
// "pc+1", or returnSignal to mean "stop now").
func (t *Thread) dispatch(op compiler.Op, f *frame, env *Environment) (int, error) {
	switch op.Op {
	case compiler.NOP, compiler.JUMPTARGET:
		return -1, nil

	case compiler.PUSH:
		f.push(constToValue(op.Const))
		return -1, nil

	case compiler.PUSHCLIP:
		clip := newClip(op.Parts)
		if err := t.captureClosure(clip, env, op.Line); err != nil {
			return 0, err
		}
		f.push(FromClip(clip))
		return -1, nil

	case compiler.MAKETUPLE:
		// codegen pushes elements in reverse source order, so the leftmost
		// element is popped first.
		items := make([]Value, op.N)
		for i := 0; i < op.N; i++ {
			items[i] = f.pop()
		}
		f.push(Tuple(items))
		return -1, nil

	case compiler.EXPANDTUPLE:
		v := f.pop()
		if v.Kind != KindTuple {
			return 0, arityError(op.Line, "expected a tuple of %d elements, got %s", op.N, v.Kind)
		}
		if len(v.Tuple) != op.N {
			return 0, arityError(op.Line, "expected a tuple of %d elements, got %d", op.N, len(v.Tuple))
		}
		for i := len(v.Tuple) - 1; i >= 0; i-- {
			f.push(v.Tuple[i])
		}
		return -1, nil

	case compiler.JUMP:
		return op.Target, nil

	case compiler.JUMPIFFALSE:
		v := f.pop()
		if v.Kind != KindBool {
			return 0, typeError(op.Line, "jump condition must be a bool, got %s", v.Kind)
		}
		if !v.Bool {
			return op.Target, nil
		}
		return -1, nil

	case compiler.RETURN:
		return returnSignal, nil

	case compiler.PUSHITERATOR:
		f.iters = append(f.iters, f.pop())
		return -1, nil

	case compiler.POPITERATOR:
		f.iters = f.iters[:len(f.iters)-1]
		return -1, nil

	case compiler.RETRIEVEITERATOR:
		f.push(f.iters[len(f.iters)-1])
		return -1, nil

	case compiler.PUSHSCOPE:
		env.PushFrame()
		return -1, nil

	case compiler.POPSCOPE:
		env.PopFrame()
		return -1, nil

	case compiler.LOAD:
		v, ok := env.Get(op.Name)
		if !ok {
			return 0, unboundNameError(op.Line, op.Name)
		}
		f.push(v)
		return -1, nil

	case compiler.LOADREF:
		cell, _ := op.CellRef.(*Cell)
		f.push(cell.Get())
		return -1, nil

	case compiler.STOREREF:
		cell, _ := op.CellRef.(*Cell)
		v := f.pop()
		if err := cell.Set(v); err != nil {
			if ee, ok := err.(*ExecError); ok {
				ee.Line = op.Line
			}
			return 0, err
		}
		return -1, nil

	case compiler.DECLAREANDSTORE:
		env.Declare(op.Name, f.pop(), false)
		return -1, nil

	case compiler.DECLAREANDSTOREIMMUTABLE:
		env.Declare(op.Name, f.pop(), true)
		return -1, nil

	case compiler.STORE:
		found, err := env.Set(op.Name, f.pop())
		if err != nil {
			if ee, ok := err.(*ExecError); ok {
				ee.Line = op.Line
			}
			return 0, err
		}
		if !found {
			return 0, unboundNameError(op.Line, op.Name)
		}
		return -1, nil

	case compiler.DEF:
		clip := f.pop()
		val := f.pop()
		if clip.Kind != KindClip {
			return 0, typeError(op.Line, "def target must be a clip, got %s", clip.Kind)
		}
		clip.Clip.Set(String(op.Name), val)
		return -1, nil

	case compiler.DEFPOP:
		val := f.pop()
		key := f.pop()
		if f.self == nil {
			return 0, typeError(op.Line, "defpop used outside a clip body")
		}
		f.self.Set(key, val)
		return -1, nil

	case compiler.DEFSELF:
		val := f.pop()
		if f.self == nil {
			return 0, typeError(op.Line, "defself used outside a clip body")
		}
		f.self.Set(String(op.Name), val)
		return -1, nil

	case compiler.ACCESS:
		target := f.top()
		v, err := accessValue(op.Line, target, String(op.Name))
		if err != nil {
			return 0, err
		}
		f.push(v)
		return -1, nil

	case compiler.ACCESSPOP:
		target := f.pop()
		v, err := accessValue(op.Line, target, String(op.Name))
		if err != nil {
			return 0, err
		}
		f.push(v)
		return -1, nil

	case compiler.GETANDACCESS:
		key := f.pop()
		target := f.pop()
		v, err := accessValue(op.Line, target, key)
		if err != nil {
			return 0, err
		}
		f.push(v)
		return -1, nil

	case compiler.PLAY:
		args := make([]Value, op.N)
		for i := 0; i < op.N; i++ {
			args[i] = f.pop()
		}
		callable := f.pop()
		result, err := t.play(callable, args, env, op.Line)
		if err != nil {
			return 0, err
		}
		f.push(result)
		return -1, nil

	case compiler.PLAYSELF:
		args := make([]Value, op.N)
		for i := 0; i < op.N; i++ {
			args[i] = f.pop()
		}
		callable := f.pop()
		recv := f.pop()
		result, err := t.play(callable, append([]Value{recv}, args...), env, op.Line)
		if err != nil {
			return 0, err
		}
		f.push(result)
		return -1, nil

	case compiler.GET:
		v := f.top()
		if v.Kind != KindClip {
			return 0, typeError(op.Line, "$ target must be a clip, got %s", v.Kind)
		}
		if _, err := t.playClip(v.Clip, nil, env, op.Line); err != nil {
			return 0, err
		}
		return -1, nil

	case compiler.NEG:
		v := f.pop()
		switch v.Kind {
		case KindInt:
			f.push(Int(-v.Int))
		case KindFloat:
			f.push(Float(-v.Float))
		default:
			return 0, typeError(op.Line, "cannot negate %s", v.Kind)
		}
		return -1, nil

	case compiler.NOT:
		v := f.pop()
		if v.Kind != KindBool {
			return 0, typeError(op.Line, "cannot negate %s", v.Kind)
		}
		f.push(Bool(!v.Bool))
		return -1, nil

	default:
		if op.Op.IsBinary() {
			rhs := f.pop()
			lhs := f.pop()
			result, err := binaryOp(op.Op, lhs, rhs, op.Line)
			if err != nil {
				return 0, err
			}
			f.push(result)
			return -1, nil
		}
		return 0, fatalHostError(op.Line, &ExecError{Kind: ErrFatalHost, Msg: "unimplemented opcode " + op.Op.String()})
	}
}

func constToValue(c compiler.Const) Value {
	switch c.Kind {
	case compiler.ConstNil:
		return Nil
	case compiler.ConstInt:
		return Int(c.Int)
	case compiler.ConstFloat:
		return Float(c.Float)
	case compiler.ConstBool:
		return Bool(c.Bool)
	case compiler.ConstString:
		return String(c.String)
	}
	return Nil
}

// accessValue implements Access/AccessPop/GetAndAccess against either a
// Clip (field held in its defs) or a RustClip (§4.7: "native clips ...
// expose fields through Access*", via RustClip.Get). A missing key is not
// an error for either kind, matching the defs-map contract.
func accessValue(line int, target, key Value) (Value, error) {
	switch target.Kind {
	case KindClip:
		v, _ := target.Clip.Get(key)
		return v, nil
	case KindRustClip:
		v, _ := target.Native.Get(key)
		return v, nil
	default:
		return Nil, typeError(line, "access target must be a clip, got %s", target.Kind)
	}
}

// play dispatches a callable value: Clip runs through playClip; RustClip
// runs through its own Play method (the one place dynamic interface
// dispatch happens, per §4.7).
func (t *Thread) play(callable Value, args []Value, env *Environment, line int) (Value, error) {
	switch callable.Kind {
	case KindClip:
		return t.playClip(callable.Clip, args, env, line)
	case KindRustClip:
		v, err := callable.Native.Play(t, args)
		if err != nil {
			return Nil, fatalHostError(line, err)
		}
		return v, nil
	default:
		return Nil, typeError(line, "cannot call a %s", callable.Kind)
	}
}

// playClip implements the §4.5 Play procedure: bind params, run the body
// in a fresh frame, then derive the result from the declared return
// bindings rather than from any value execute() itself produced.
func (t *Thread) playClip(clip *Clip, args []Value, env *Environment, line int) (Value, error) {
	if len(args) != len(clip.Params) {
		return Nil, arityError(line, "expected %d argument(s), got %d", len(clip.Params), len(args))
	}
	depth := env.Depth()
	env.PushFrame()
	defer env.Truncate(depth)

	for i, p := range clip.Params {
		env.Declare(p, args[i], false)
	}
	for _, r := range clip.Returns {
		env.Declare(r, Nil, false)
	}

	if err := t.execute(clip.Ops, env, clip); err != nil {
		return Nil, err
	}

	switch len(clip.Returns) {
	case 0:
		return Nil, nil
	case 1:
		v, ok := env.Get(clip.Returns[0])
		if !ok {
			return Nil, unboundNameError(line, clip.Returns[0])
		}
		return v, nil
	default:
		items := make([]Value, len(clip.Returns))
		for i, r := range clip.Returns {
			v, ok := env.Get(r)
			if !ok {
				return Nil, unboundNameError(line, r)
			}
			items[i] = v
		}
		return Tuple(items), nil
	}
}

// captureClosure implements PushClip's closure-capture rewrite (§4.5): a
// clip's ops are rewritten at most once (Clip.captured guards this),
// turning free Load/Store into LoadRef/StoreRef against the enclosing
// environment's live cells, or baking in a copied value for immutable
// captures.
func (t *Thread) captureClosure(clip *Clip, env *Environment, pushLine int) error {
	if clip.captured {
		return nil
	}
	clip.captured = true

	bound := make(map[string]bool, len(clip.Params)+len(clip.Returns))
	for _, p := range clip.Params {
		bound[p] = true
	}
	for _, r := range clip.Returns {
		bound[r] = true
	}

	rewritten, err := rewriteCaptures(clip.Ops, bound, env, pushLine)
	if err != nil {
		return err
	}
	clip.Ops = rewritten
	return nil
}

func rewriteCaptures(ops []compiler.Op, bound map[string]bool, env *Environment, pushLine int) ([]compiler.Op, error) {
	out := make([]compiler.Op, len(ops))
	copy(out, ops)
	for i, op := range out {
		switch op.Op {
		case compiler.LOAD:
			if bound[op.Name] {
				continue
			}
			switch ref, cell := env.GetRef(op.Name); ref {
			case RefCell:
				out[i] = compiler.Op{Op: compiler.LOADREF, Line: op.Line, CellRef: cell}
			case RefCopy:
				switch cell.Get().Kind {
				case KindTuple, KindClip, KindRustClip:
					// not expressible as a Const; an immutable cell always
					// yields the value it was declared with.
					out[i] = compiler.Op{Op: compiler.LOADREF, Line: op.Line, CellRef: cell}
				default:
					out[i] = compiler.Op{Op: compiler.PUSH, Line: op.Line, Const: valueToConst(cell.Get())}
				}
			default:
				return nil, unboundNameError(pushLine, op.Name)
			}

		case compiler.STORE:
			if bound[op.Name] {
				continue
			}
			switch ref, cell := env.GetRef(op.Name); ref {
			case RefCell:
				out[i] = compiler.Op{Op: compiler.STOREREF, Line: op.Line, CellRef: cell}
			case RefCopy:
				// §4.5 step 2: get_ref(name) = Copy(_) on a Store target fails
				// at PushClip time, not only if this branch ever executes.
				return nil, &ExecError{Kind: ErrImmutabilityViolation, Line: pushLine,
					Msg: "cannot assign to an immutably captured name " + op.Name}
			default:
				return nil, unboundNameError(pushLine, op.Name)
			}

		case compiler.DECLAREANDSTORE, compiler.DECLAREANDSTOREIMMUTABLE:
			bound[op.Name] = true

		case compiler.PUSHCLIP:
			// Nested clip literals capture against this same enclosing
			// environment at the point their own PushClip executes; no
			// rewriting is needed here since they carry their own Parts.Body
			// and go through captureClosure independently when pushed.
		}
	}
	return out, nil
}

func valueToConst(v Value) compiler.Const {
	switch v.Kind {
	case KindInt:
		return compiler.Const{Kind: compiler.ConstInt, Int: v.Int}
	case KindFloat:
		return compiler.Const{Kind: compiler.ConstFloat, Float: v.Float}
	case KindBool:
		return compiler.Const{Kind: compiler.ConstBool, Bool: v.Bool}
	case KindString:
		return compiler.Const{Kind: compiler.ConstString, String: v.Str}
	default:
		return compiler.Const{Kind: compiler.ConstNil}
	}
}

// step enforces the host-level MaxSteps circuit breaker (§5 [FULL]) and
// checks ctx cancellation, both purely host bookkeeping rather than
// language-level suspension points.
func (t *Thread) step() error {
	select {
	case <-t.ctxDone():
		return fatalHostError(0, context.Canceled)
	default:
	}
	if t.MaxSteps == 0 {
		return nil
	}
	t.steps++
	if t.steps > t.MaxSteps {
		return fatalHostError(0, t.stepLimitError())
	}
	return nil
}
