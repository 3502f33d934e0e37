package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/reklawnos/housecat/internal/builtins"
	"github.com/reklawnos/housecat/lang/compiler"
	"github.com/reklawnos/housecat/lang/machine"
	"github.com/reklawnos/housecat/lang/parser"
)

// Run compiles and executes a single .hc source file.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) != 1 {
		return printError(stdio, fmt.Errorf("run: expected exactly one file, got %d", len(args)))
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	chunk, err := parser.Parse(string(src))
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", args[0], err))
	}
	prog, err := compiler.Compile(chunk)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", args[0], err))
	}
	prog.Name = args[0]

	th := machine.NewThread()
	th.Stdout = stdio.Stdout
	th.Stderr = stdio.Stderr
	th.MaxSteps = c.cfg.MaxSteps

	if _, err := th.RunProgram(ctx, prog, builtins.Env()); err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", args[0], err))
	}
	return nil
}
