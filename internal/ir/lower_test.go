// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/parser"
	"flint/internal/ssa"
)

func lowerSource(t *testing.T, src string) *Function {
	t.Helper()
	prog, errs := parser.ParseSource("t", src)
	require.Empty(t, errs)
	out := Lower(ssa.Convert(prog))
	require.Len(t, out.Functions, 1)
	return out.Functions[0]
}

func countLabels(instrs []Instr) int {
	n := 0
	for _, i := range instrs {
		if _, ok := i.(*Label); ok {
			n++
		}
	}
	return n
}

func TestLower_SimpleReturnAddition(t *testing.T) {
	fn := lowerSource(t, `fun main(a, b) { return a + b; }`)
	require.Len(t, fn.Instrs, 2)
	bin, ok := fn.Instrs[0].(*BinOp)
	require.True(t, ok)
	assert.Equal(t, Variable{Name: "#var_a_#0"}, bin.Left)
	assert.Equal(t, Variable{Name: "#var_b_#0"}, bin.Right)
	ret, ok := fn.Instrs[1].(*Return)
	require.True(t, ok)
	assert.Equal(t, Variable{Name: bin.Result}, ret.Value)
}

func TestLower_IfProducesTwoLabelsAndPhiCopiesOnBothEdges(t *testing.T) {
	fn := lowerSource(t, `fun f() { a = 0; if (1) { a = 9; } return a; }`)
	assert.Equal(t, 2, countLabels(fn.Instrs))
	var assignsToPhi int
	for _, i := range fn.Instrs {
		if a, ok := i.(*Assign); ok && a.Result == "#var_a_#2" {
			assignsToPhi++
		}
	}
	assert.Equal(t, 2, assignsToPhi)
}

func TestLower_WhileProducesFiveLabels(t *testing.T) {
	fn := lowerSource(t, `fun f() { b = 0; while (b < 8) { b = b + 1; } return b; }`)
	assert.Equal(t, 5, countLabels(fn.Instrs))
}

func TestLower_CallStatementDiscardsResult(t *testing.T) {
	fn := lowerSource(t, `fun f() { print_num(1); return 0; }`)
	call, ok := fn.Instrs[0].(*Call)
	require.True(t, ok)
	assert.Equal(t, "print_num", call.Name)
}
