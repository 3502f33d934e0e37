package machine

import (
	"context"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/reklawnos/housecat/lang/compiler"
)

// Thread is one independent execution of a program: its own environment,
// its own step counter, its own I/O sinks. Running the same Program twice
// (e.g. nested `import` calls) uses two Threads so their MaxSteps budgets
// and RunIDs stay independent.
type Thread struct {
	// Stdout/Stderr are where builtins like print write; defaulting to
	// os.Stdout/os.Stderr mirrors the teacher's own Thread fields, which are
	// never routed through a logging library (see DESIGN.md).
	Stdout io.Writer
	Stderr io.Writer

	// MaxSteps bounds the number of opcodes a single run may execute before
	// it is aborted with a fatal host error; 0 means unlimited. This is a
	// host circuit breaker, not a language feature (§5 [FULL]).
	MaxSteps int64

	// RunID is a unique identifier for this Thread, assigned by NewThread
	// or RunProgram. It is not included in ExecError messages.
	RunID uuid.UUID

	steps int64
	ctx   context.Context
}

// NewThread returns a Thread with Stdout/Stderr defaulted to the process
// standard streams and a fresh RunID.
func NewThread() *Thread {
	return &Thread{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		RunID:  uuid.New(),
	}
}

func (t *Thread) ctxDone() <-chan struct{} {
	if t.ctx == nil {
		return nil
	}
	return t.ctx.Done()
}

func (t *Thread) stepLimitError() error {
	return &ExecError{
		Kind: ErrFatalHost,
		Msg:  "exceeded step limit of " + humanize.Comma(t.MaxSteps) + " opcodes",
	}
}

// RunProgram executes prog's top-level statements as the body of an
// implicit top-level clip, and returns that clip's defs — any top-level
// `def` statement becomes a visible binding in the returned map, the
// "exports" an `import` of this program would see. The result is keyed by
// plain Go string rather than Value: every def key codegen ever produces
// at the top level is a literal identifier (see compiler.Op.Name, and
// DESIGN.md's note on why Def/Access keys are strings rather than Values),
// and Value itself cannot be a Go map key since its Tuple variant holds a
// slice. ctx is polled once per opcode step, never mid-instruction,
// consistent with §5's "no suspension points" being a language-level, not
// host-level, guarantee.
func (t *Thread) RunProgram(ctx context.Context, prog *compiler.Program, globals *Environment) (map[string]Value, error) {
	t.ctx = ctx
	t.steps = 0
	if t.RunID == uuid.Nil {
		t.RunID = uuid.New()
	}

	env := globals
	if env == nil {
		env = NewEnvironment()
	}
	top := &Clip{Defs: newDefMap()}

	if err := t.execute(prog.Ops, env, top); err != nil {
		return nil, err
	}

	out := make(map[string]Value, top.Defs.len())
	for _, k := range top.Defs.keys() {
		if k.Kind != KindString {
			continue
		}
		v, _ := top.Defs.get(k)
		out[k.Str] = v
	}
	return out, nil
}
