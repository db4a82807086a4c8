// SPDX-License-Identifier: Apache-2.0
package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/abi"
	"flint/internal/ir"
	"flint/internal/liveness"
	"flint/internal/parser"
	"flint/internal/ssa"
)

func allocateSource(t *testing.T, src string) (*ir.Function, *Allocator) {
	t.Helper()
	prog, errs := parser.ParseSource("t", src)
	require.Empty(t, errs)
	fn := ir.Lower(ssa.Convert(prog)).Functions[0]
	live := liveness.Analyze(fn)
	return fn, New(abi.SystemV, fn.Params, live)
}

func TestNew_BindsParamsToArgumentRegistersInOrder(t *testing.T) {
	_, a := allocateSource(t, `fun f(a, b, c) { return a + b + c; }`)
	assert.True(t, a.IsBound("#var_a_#0"))
	loc := a.Get("#var_a_#0", 0)
	assert.True(t, loc.IsRegister)
	assert.Equal(t, abi.RDI, loc.Reg)
}

func TestNew_StackedParameterBeyondRegisterCount(t *testing.T) {
	_, a := allocateSource(t, `fun f(a,b,c,d,e,f,g) { return a; }`)
	loc := a.Get("#var_g_#0", 0)
	assert.False(t, loc.IsRegister)
	assert.True(t, loc.Offset > 0)
}

func TestGet_ReclaimsExpiredRegisterForReuse(t *testing.T) {
	fn, a := allocateSource(t, `fun f(x) { y = x + 1; z = y + 1; return z; }`)
	xLoc := a.Get("#var_x_#0", 0)
	var firstTemp Location
	for idx, instr := range fn.Instrs {
		line := idx + 1
		if bo, ok := instr.(*ir.BinOp); ok {
			if lv, ok := bo.Left.(ir.Variable); ok {
				a.Get(lv.Name, line)
			}
			loc := a.Get(bo.Result, line)
			if !firstTemp.IsRegister {
				firstTemp = loc
			}
		}
	}
	assert.True(t, a.IsBound("#var_y_#0"))
	// x and the first temporary have both expired by the time y is bound,
	// so y lands in one of their registers.
	assert.False(t, a.IsBound("#var_x_#0"))
	assert.Contains(t, []abi.Reg{xLoc.Reg, firstTemp.Reg}, a.Get("#var_y_#0", 0).Reg)
}

func TestGet_SpillsToStackWhenRegistersExhausted(t *testing.T) {
	// SystemV pool: 5 non-volatile + up to 6 arg regs = 11 total before
	// spilling; allocate more than that many simultaneously-live names.
	intervals := map[string]liveness.Interval{}
	for i := 0; i < 12; i++ {
		name := string(rune('a' + i))
		intervals[name] = liveness.Interval{Start: 1, End: 100}
	}
	a := New(abi.SystemV, nil, &liveness.Result{Intervals: intervals})
	var sawStack bool
	for i := 0; i < 12; i++ {
		name := string(rune('a' + i))
		if loc := a.Get(name, 1); !loc.IsRegister {
			sawStack = true
		}
	}
	assert.True(t, sawStack)
}

func TestCalleeSavedBytes_MatchesNonVolatileCount(t *testing.T) {
	assert.EqualValues(t, 40, CalleeSavedBytes(abi.SystemV))
	assert.EqualValues(t, 56, CalleeSavedBytes(abi.Windows))
}
