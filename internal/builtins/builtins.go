// Package builtins implements the small native-callable library the
// runtime needs but does not itself define: print and import. Both are
// RustClip values (the native boundary described in SPEC_FULL.md §4.7),
// grounded on the original source's libhc/io.rs Print clip and
// libhc/core.rs Import clip.
package builtins

import (
	"context"
	"fmt"
	"os"

	"github.com/reklawnos/housecat/lang/compiler"
	"github.com/reklawnos/housecat/lang/machine"
	"github.com/reklawnos/housecat/lang/parser"
)

// Print writes its single argument's display form to the owning Thread's
// Stdout, followed by a newline, and returns Nil. Any other argument count
// returns an error, which the VM reports as a fatal host error like every
// error a native clip returns.
type Print struct{}

var _ machine.RustClip = Print{}

func (Print) Get(key machine.Value) (machine.Value, bool) { return machine.Nil, false }

func (Print) Set(key, val machine.Value) error {
	return fmt.Errorf("cannot def a field on print")
}

func (Print) Play(t *machine.Thread, args []machine.Value) (machine.Value, error) {
	if len(args) != 1 {
		return machine.Nil, fmt.Errorf("wrong number of arguments for print: want 1, got %d", len(args))
	}
	fmt.Fprintln(t.Stdout, args[0].String())
	return machine.Nil, nil
}

// Import loads, compiles, and runs another source file as a fresh top-level
// program, then wraps its resulting defs as a fresh, paramless Clip value
// — the same shape the original's Import clip builds around the imported
// file's collected defs.
type Import struct {
	// Loader reads source for path; defaults to os.ReadFile. Tests
	// substitute an in-memory loader.
	Loader func(path string) ([]byte, error)
}

var _ machine.RustClip = (*Import)(nil)

func (im *Import) Get(key machine.Value) (machine.Value, bool) { return machine.Nil, false }

func (im *Import) Set(key, val machine.Value) error {
	return fmt.Errorf("cannot def a field on import")
}

func (im *Import) Play(t *machine.Thread, args []machine.Value) (machine.Value, error) {
	if len(args) != 1 {
		return machine.Nil, fmt.Errorf("wrong number of arguments for import: want 1, got %d", len(args))
	}
	if args[0].Kind != machine.KindString {
		return machine.Nil, fmt.Errorf("import requires a string path argument, got %s", args[0].Kind)
	}

	load := im.Loader
	if load == nil {
		load = os.ReadFile
	}
	src, err := load(args[0].Str)
	if err != nil {
		return machine.Nil, fmt.Errorf("importing %s: %w", args[0].Str, err)
	}

	chunk, err := parser.Parse(string(src))
	if err != nil {
		return machine.Nil, fmt.Errorf("importing %s: %w", args[0].Str, err)
	}
	prog, err := compiler.Compile(chunk)
	if err != nil {
		return machine.Nil, fmt.Errorf("importing %s: %w", args[0].Str, err)
	}

	sub := machine.NewThread()
	sub.Stdout, sub.Stderr = t.Stdout, t.Stderr
	sub.MaxSteps = t.MaxSteps

	defs, err := sub.RunProgram(context.Background(), prog, Env())
	if err != nil {
		return machine.Nil, fmt.Errorf("importing %s: %w", args[0].Str, err)
	}

	clip := machine.NewImportedClip(defs)
	return clip, nil
}

// Env returns a fresh top-level environment with print/import registered,
// for both the CLI entry point and nested imports.
func Env() *machine.Environment {
	env := machine.NewEnvironment()
	env.Declare("print", machine.FromNative(Print{}), true)
	env.Declare("import", machine.FromNative(&Import{}), true)
	return env
}
