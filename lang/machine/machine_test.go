package machine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reklawnos/housecat/lang/compiler"
	"github.com/reklawnos/housecat/lang/machine"
	"github.com/reklawnos/housecat/lang/parser"
)

func run(t *testing.T, src string) map[string]machine.Value {
	t.Helper()
	chunk, err := parser.Parse(src)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk)
	require.NoError(t, err)
	th := machine.NewThread()
	defs, err := th.RunProgram(context.Background(), prog, nil)
	require.NoError(t, err)
	return defs
}

// runWithGlobals is run's variant for tests that need to pre-declare native
// bindings (e.g. a RustClip) in the top-level environment.
func runWithGlobals(t *testing.T, src string, globals *machine.Environment) map[string]machine.Value {
	t.Helper()
	chunk, err := parser.Parse(src)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk)
	require.NoError(t, err)
	th := machine.NewThread()
	defs, err := th.RunProgram(context.Background(), prog, globals)
	require.NoError(t, err)
	return defs
}

// fieldClip is a minimal RustClip exposing a single fixed field, used to
// exercise Access*'s native-clip branch (§4.7: native clips expose fields
// through Access* via RustClip.Get).
type fieldClip struct{}

func (fieldClip) Get(key machine.Value) (machine.Value, bool) {
	if key.Kind == machine.KindString && key.Str == "answer" {
		return machine.Int(42), true
	}
	return machine.Nil, false
}

func (fieldClip) Set(key, val machine.Value) error { return nil }

func (fieldClip) Play(t *machine.Thread, args []machine.Value) (machine.Value, error) {
	return machine.Nil, nil
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	chunk, err := parser.Parse(src)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk)
	require.NoError(t, err)
	th := machine.NewThread()
	_, err = th.RunProgram(context.Background(), prog, nil)
	return err
}

func TestArithmeticPrecedence(t *testing.T) {
	defs := run(t, `
var x: 1 + 2 * 3
def result: x
`)
	got, ok := defs["result"]
	require.True(t, ok)
	assert.Equal(t, machine.Int(7), got)
}

func TestMutableCaptureSeesLaterWrites(t *testing.T) {
	defs := run(t, `
var c: 0
var inc: fn()
  c: c + 1
end
inc()
inc()
inc()
def result: c
`)
	got, ok := defs["result"]
	require.True(t, ok)
	assert.Equal(t, machine.Int(3), got)
}

func TestClipIdentityEquality(t *testing.T) {
	defs := run(t, `
var c: {}
def same: c = c
`)
	got, ok := defs["same"]
	require.True(t, ok)
	assert.Equal(t, machine.Bool(true), got)
}

func TestTwoEmptyClipsUnequal(t *testing.T) {
	defs := run(t, `
var a: {}
var b: {}
def eq: a = b
`)
	got, ok := defs["eq"]
	require.True(t, ok)
	assert.Equal(t, machine.Bool(false), got)
}

func TestTupleBroadcastAdd(t *testing.T) {
	defs := run(t, `
var t: (1, 2, 3) + (10, 20, 30)
def result: t
`)
	got, ok := defs["result"]
	require.True(t, ok)
	require.Equal(t, machine.KindTuple, got.Kind)
	assert.Equal(t, machine.Int(11), got.Tuple[0])
	assert.Equal(t, machine.Int(22), got.Tuple[1])
	assert.Equal(t, machine.Int(33), got.Tuple[2])
}

func TestScopeShadowingDoesNotLeak(t *testing.T) {
	err := runErr(t, `
if true then
  var y: 1
end
def result: y
`)
	require.Error(t, err)
	var execErr *machine.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, machine.ErrUnboundName, execErr.Kind)
}

func TestNaNEqualsItself(t *testing.T) {
	nan := machine.Float(nanValue())
	assert.True(t, nan.Equals(machine.Float(nanValue())))
	assert.Equal(t, nan.Hash(), machine.Float(nanValue()).Hash())
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestIntDivisionByZeroIsFatal(t *testing.T) {
	err := runErr(t, `def result: 1 / 0`)
	require.Error(t, err)
	var execErr *machine.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, machine.ErrFatalHost, execErr.Kind)
}

func TestFloatDivisionByZeroIsNotFatal(t *testing.T) {
	defs := run(t, `
var z: 1.0 / 0.0
def result: z
`)
	got, ok := defs["result"]
	require.True(t, ok)
	assert.True(t, got.Float > 0)
}

func TestMutableCaptureThroughStoreRef(t *testing.T) {
	err := runErr(t, `
var x: 1
var f: fn()
  x: 2
end
f()
`)
	require.NoError(t, err)
}

func TestImmutableCaptureReadsBakedValue(t *testing.T) {
	defs := run(t, `
let x: 1
var f: fn() -> r
  r: x
end
def result: f()
`)
	got, ok := defs["result"]
	require.True(t, ok)
	assert.Equal(t, machine.Int(1), got)
}

// TestMutableVsImmutableCaptureDivergeAfterOuterWrite contrasts the two
// halves of the same shape: a var capture aliases the cell, so a write
// after the clip is built is visible on call; a let capture bakes a copy
// at PushClip time, and c itself cannot be re-assigned, so the clip
// returns the value it captured.
func TestMutableVsImmutableCaptureDivergeAfterOuterWrite(t *testing.T) {
	defs := run(t, `
var v: 1
var getV: fn() -> r
  r: v
end
v: 2

let c: 1
var getC: fn() -> r
  r: c
end

def mutableResult: getV()
def immutableResult: getC()
`)
	mutableResult, ok := defs["mutableResult"]
	require.True(t, ok)
	assert.Equal(t, machine.Int(2), mutableResult)

	immutableResult, ok := defs["immutableResult"]
	require.True(t, ok)
	assert.Equal(t, machine.Int(1), immutableResult)
}

func TestImmutableCaptureStoreFailsAtPushClipTime(t *testing.T) {
	// The Store into x sits behind a branch that never runs; the failure
	// must still surface when f is constructed, not deferred to a call
	// that this program never makes.
	err := runErr(t, `
let x: 1
var f: fn()
  if false then
    x: 2
  end
end
`)
	require.Error(t, err)
	var execErr *machine.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, machine.ErrImmutabilityViolation, execErr.Kind)
}

func TestAccessOnNativeClipReadsField(t *testing.T) {
	globals := machine.NewEnvironment()
	globals.Declare("native", machine.FromNative(fieldClip{}), true)

	defs := runWithGlobals(t, `def result: native.answer`, globals)
	got, ok := defs["result"]
	require.True(t, ok)
	assert.Equal(t, machine.Int(42), got)
}

func TestGetAndAccessOnNativeClipReadsField(t *testing.T) {
	globals := machine.NewEnvironment()
	globals.Declare("native", machine.FromNative(fieldClip{}), true)

	defs := runWithGlobals(t, `def result: native["answer"]`, globals)
	got, ok := defs["result"]
	require.True(t, ok)
	assert.Equal(t, machine.Int(42), got)
}
