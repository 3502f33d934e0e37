package maincmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mna/mainer"
	"golang.org/x/exp/slices"

	"github.com/reklawnos/housecat/lang/compiler"
	"github.com/reklawnos/housecat/lang/parser"
)

// opcodeColor maps a subset of opcodes to an ANSI color code, purely
// cosmetic grouping for disasm output (control flow vs. variables vs.
// invocation).
var opcodeColor = map[compiler.Opcode]string{
	compiler.JUMP:        "35", // magenta
	compiler.JUMPIFFALSE: "35",
	compiler.JUMPTARGET:  "35",
	compiler.RETURN:      "31", // red
	compiler.PLAY:        "36", // cyan
	compiler.PLAYSELF:    "36",
}

// Disasm compiles a .hc source file and prints its opcode listing without
// executing it.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) != 1 {
		return printError(stdio, fmt.Errorf("disasm: expected exactly one file, got %d", len(args)))
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

	listing := compiler.Disassemble(prog)
	colorized := shouldColorize(c.cfg.Color, stdio)
	if colorized {
		listing = colorize(listing)
		fmt.Fprint(stdio.Stdout, legend())
	}
	fmt.Fprint(stdio.Stdout, listing)
	return nil
}

// legend renders the opcode-to-color mapping in a stable order, so two
// runs against the same config produce byte-identical header output.
func legend() string {
	names := make([]string, 0, len(opcodeColor))
	codeByName := make(map[string]string, len(opcodeColor))
	for op, code := range opcodeColor {
		names = append(names, op.String())
		codeByName[op.String()] = code
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("; legend:")
	for _, name := range names {
		code := codeByName[name]
		fmt.Fprintf(&b, " \x1b[%sm%s\x1b[0m", code, name)
	}
	b.WriteString("\n")
	return b.String()
}

func shouldColorize(mode string, stdio mainer.Stdio) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		f, ok := stdio.Stdout.(*os.File)
		return ok && isatty.IsTerminal(f.Fd())
	}
}

// colorize wraps the opcode mnemonic token on each disasm line with its
// ANSI code, if that opcode has one registered. Operating per-line (rather
// than a raw substring pass over the whole listing) avoids one mnemonic
// accidentally matching inside another, e.g. "jump" inside "jumpiffalse".
func colorize(listing string) string {
	codeByName := make(map[string]string, len(opcodeColor))
	for op, code := range opcodeColor {
		codeByName[op.String()] = code
	}

	lines := strings.Split(listing, "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		for _, field := range fields {
			if code, ok := codeByName[field]; ok {
				colored := "\x1b[" + code + "m" + field + "\x1b[0m"
				lines[i] = strings.Replace(line, " "+field, " "+colored, 1)
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}
