//go:build amd64

// SPDX-License-Identifier: Apache-2.0
package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/ir"
	"flint/internal/parser"
	"flint/internal/ssa"
)

func compile(t *testing.T, src string) *Tracker {
	t.Helper()
	prog, errs := parser.ParseSource("t", src)
	require.Empty(t, errs)
	irProg := ir.Lower(ssa.Convert(prog))
	tr, err := New(irProg)
	require.NoError(t, err)
	t.Cleanup(tr.Release)
	return tr
}

func TestEndToEnd_AdditionOfTwoParameters(t *testing.T) {
	tr := compile(t, `fun main(a, b) { return a + b; }`)
	h, err := tr.GetMainFunction()
	require.NoError(t, err)
	assert.Equal(t, 2, h.Arity())
	got, err := h.Call(2, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got)
}

func TestEndToEnd_WhileLoopAccumulator(t *testing.T) {
	tr := compile(t, `fun main() { a = 0; b = 0; while (a < 3) { a = a + 1; b = b + a; } return b; }`)
	h, err := tr.GetMainFunction()
	require.NoError(t, err)
	got, err := h.Call()
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)
}

func TestEndToEnd_CallToAnotherFunctionGoesThroughTrampoline(t *testing.T) {
	tr := compile(t, `fun main() { return f(4) + f(5); } fun f(a) { return 5 + a; }`)
	h, err := tr.GetMainFunction()
	require.NoError(t, err)
	got, err := h.Call()
	require.NoError(t, err)
	assert.Equal(t, int64(19), got)
}

func TestHandle_RejectsArityMismatch(t *testing.T) {
	h := &Handle{arity: 2}
	_, err := h.Call(1)
	assert.Equal(t, InvalidNumberOfArguments{Expected: 2, Found: 1}, err)
}

func TestHandle_RejectsTooManyArguments(t *testing.T) {
	h := &Handle{arity: 6}
	_, err := h.Call(1, 2, 3, 4, 5, 6)
	assert.Equal(t, TooManyArguments{Found: 6}, err)
}

func TestResolverError_MessageIncludesID(t *testing.T) {
	err := ResolverError{ID: 42}
	assert.Contains(t, err.Error(), "42")
}
