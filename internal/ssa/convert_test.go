// SPDX-License-Identifier: Apache-2.0
package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/ast"
	"flint/internal/parser"
)

func convertSource(t *testing.T, src string) *Function {
	t.Helper()
	prog, errs := parser.ParseSource("t", src)
	require.Empty(t, errs)
	out := Convert(prog)
	require.Len(t, out.Functions, 1)
	return out.Functions[0]
}

func TestConvert_AssignmentReadsOldVersionBeforeRebinding(t *testing.T) {
	fn := convertSource(t, `fun f(x) { x = x + 1; return x; }`)
	require.Len(t, fn.Body, 2)
	assign := fn.Body[0].(*Assign)
	assert.Equal(t, "#var_x_#1", assign.Name)
	bin := assign.Expr.(*ast.BinaryExpr)
	ident := bin.Left.(*ast.IdentExpr)
	assert.Equal(t, "#var_x_#0", ident.Name)
	ret := fn.Body[1].(*Return)
	assert.Equal(t, "#var_x_#1", ret.Expr.(*ast.IdentExpr).Name)
}

func TestConvert_IfGeneratesPhiForPreexistingVariable(t *testing.T) {
	fn := convertSource(t, `fun f() { a = 0; if (1) { a = 9; } return a; }`)
	require.Len(t, fn.Body, 3)
	ifStmt := fn.Body[1].(*If)
	require.Len(t, ifStmt.Phis, 1)
	phi := ifStmt.Phis[0]
	assert.Equal(t, "#var_a_#0", phi.Outer)
	assert.Equal(t, "#var_a_#1", phi.Inner)
	assert.Equal(t, "#var_a_#2", phi.Result)
	ret := fn.Body[2].(*Return)
	assert.Equal(t, "#var_a_#2", ret.Expr.(*ast.IdentExpr).Name)
}

func TestConvert_WhileGeneratesLoopPhiForConditionVariable(t *testing.T) {
	fn := convertSource(t, `fun f() { b = 0; c = 0; while (b < 8) { b = b + 1; c = c + 5; } return c; }`)
	whileStmt := fn.Body[2].(*While)
	require.Len(t, whileStmt.Phis, 2)
	require.Len(t, whileStmt.LoopPhis, 1)
	assert.Equal(t, "#var_b_#0", whileStmt.LoopPhis[0].CondVersion)
}

func TestConvert_VariableFirstAssignedInsideIfGetsNoPhi(t *testing.T) {
	fn := convertSource(t, `fun f() { if (1) { a = 9; } return 0; }`)
	ifStmt := fn.Body[0].(*If)
	assert.Empty(t, ifStmt.Phis)
}
