package builtins_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reklawnos/housecat/internal/builtins"
	"github.com/reklawnos/housecat/lang/compiler"
	"github.com/reklawnos/housecat/lang/machine"
	"github.com/reklawnos/housecat/lang/parser"
)

func compileAndRun(t *testing.T, src string, th *machine.Thread) map[string]machine.Value {
	t.Helper()
	chunk, err := parser.Parse(src)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk)
	require.NoError(t, err)
	defs, err := th.RunProgram(context.Background(), prog, builtins.Env())
	require.NoError(t, err)
	return defs
}

func TestPrintWritesToStdout(t *testing.T) {
	var buf bytes.Buffer
	th := machine.NewThread()
	th.Stdout = &buf
	compileAndRun(t, `print("hello")`, th)
	assert.Equal(t, "hello\n", buf.String())
}

func TestPrintWrongArityErrors(t *testing.T) {
	th := machine.NewThread()
	chunk, err := parser.Parse(`print()`)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk)
	require.NoError(t, err)
	_, err = th.RunProgram(context.Background(), prog, builtins.Env())
	require.Error(t, err)
}

func TestImportExposesImportedDefs(t *testing.T) {
	im := &builtins.Import{Loader: func(path string) ([]byte, error) {
		assert.Equal(t, "mathutils.hc", path)
		return []byte("def double: fn(x) -> r\n  r: x * 2\nend"), nil
	}}
	env := machine.NewEnvironment()
	env.Declare("import", machine.FromNative(im), true)

	th := machine.NewThread()
	chunk, err := parser.Parse(`
var m: import("mathutils.hc")
var d: m.double
def result: d(21)
`)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk)
	require.NoError(t, err)
	defs, err := th.RunProgram(context.Background(), prog, env)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(42), defs["result"])
}
