// SPDX-License-Identifier: Apache-2.0
package codegen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/abi"
	"flint/internal/ir"
	"flint/internal/liveness"
	"flint/internal/parser"
	"flint/internal/ssa"
)

// stubResolver answers every call as an already-resolved direct address,
// so Emit can be exercised without a real tracker.
type stubResolver struct{ addr uintptr }

func (s stubResolver) FunctionID(name string) (int64, uintptr, bool, error) {
	return -1, s.addr, false, nil
}
func (s stubResolver) TrampolineAddr() uintptr { return 0xDEAD }
func (s stubResolver) TrackerAddr() uintptr    { return 0xBEEF }

func emitSource(t *testing.T, src string) []byte {
	t.Helper()
	prog, errs := parser.ParseSource("t", src)
	require.Empty(t, errs)
	fn := ir.Lower(ssa.Convert(prog)).Functions[0]
	live := liveness.Analyze(fn)
	code, err := Emit(fn, abi.SystemV, live, stubResolver{addr: 0x1000})
	require.NoError(t, err)
	return code
}

func TestEmit_StartsWithStandardPrologue(t *testing.T) {
	code := emitSource(t, `fun main(a, b) { return a + b; }`)
	// push rbp; mov rbp, rsp
	assert.Equal(t, []byte{0x55, 0x48, 0x89, 0xE5}, code[:4])
}

func TestEmit_EndsWithRet(t *testing.T) {
	code := emitSource(t, `fun main() { return 0; }`)
	assert.Equal(t, byte(0xC3), code[len(code)-1])
}

func TestEmit_CallSiteGoesThroughTrampolineWhenNotDirect(t *testing.T) {
	prog, errs := parser.ParseSource("t", `fun main() { return f(1); } fun f(a) { return a; }`)
	require.Empty(t, errs)
	fn := ir.Lower(ssa.Convert(prog)).Functions[0]
	live := liveness.Analyze(fn)
	code, err := Emit(fn, abi.SystemV, live, trampolineResolver{})
	require.NoError(t, err)
	// mov r11, TrampolineAddr() (0xDEAD) ahead of the resolver call
	assert.True(t, bytes.Contains(code, []byte{0x49, 0xBB, 0xAD, 0xDE, 0, 0, 0, 0, 0, 0}))
}

// trampolineResolver answers every call as needing the trampoline.
type trampolineResolver struct{ stubResolver }

func (trampolineResolver) FunctionID(name string) (int64, uintptr, bool, error) {
	return 1, 0, true, nil
}

func TestEmit_UnknownCalleeIsAnError(t *testing.T) {
	prog, errs := parser.ParseSource("t", `fun main() { return g(1); }`)
	require.Empty(t, errs)
	fn := ir.Lower(ssa.Convert(prog)).Functions[0]
	live := liveness.Analyze(fn)
	_, err := Emit(fn, abi.SystemV, live, missingResolver{})
	assert.Error(t, err)
}

type missingResolver struct{}

func (missingResolver) FunctionID(name string) (int64, uintptr, bool, error) {
	return 0, 0, false, assert.AnError
}
func (missingResolver) TrampolineAddr() uintptr { return 0 }
func (missingResolver) TrackerAddr() uintptr    { return 0 }
