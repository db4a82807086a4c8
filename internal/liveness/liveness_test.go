// SPDX-License-Identifier: Apache-2.0
package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/ir"
	"flint/internal/parser"
	"flint/internal/ssa"
)

func analyzeSource(t *testing.T, src string) *Result {
	t.Helper()
	prog, errs := parser.ParseSource("t", src)
	require.Empty(t, errs)
	fns := ir.Lower(ssa.Convert(prog)).Functions
	require.Len(t, fns, 1)
	return Analyze(fns[0])
}

func TestAnalyze_ParametersStartAtLineZero(t *testing.T) {
	r := analyzeSource(t, `fun f(a, b) { return a + b; }`)
	iv := r.Intervals["#var_a_#0"]
	assert.Equal(t, 0, iv.Start)
	assert.True(t, iv.End >= 1)
}

func TestAnalyze_ReturnReadExtendsEnd(t *testing.T) {
	r := analyzeSource(t, `fun f(a) { b = a + 1; return b; }`)
	bIv := r.Intervals["#var_b_#0"]
	assert.Equal(t, 3, bIv.End)
	assert.True(t, r.Live("#var_b_#0", bIv.End))
}

func TestAnalyze_KeepAliveExtendsEnd(t *testing.T) {
	r := &Result{Intervals: map[string]Interval{"v": {Start: 1, End: 1}}}
	fn := &ir.Function{Instrs: []ir.Instr{
		&ir.Assign{Result: "v", Value: ir.Number{Value: 1}},
		&ir.KeepAlive{Name: "v"},
	}}
	got := Analyze(fn)
	assert.Equal(t, 2, got.Intervals["v"].End)
	_ = r
}
