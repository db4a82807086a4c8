// SPDX-License-Identifier: Apache-2.0
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flint/internal/ast"
)

func TestParseSource_SimpleFunction(t *testing.T) {
	src := `fun add(a, b) {
  return a + b;
}`
	prog, errs := ParseSource("t", src)
	require.Empty(t, errs)
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.Len(t, fn.Params, 2)
	require.Len(t, fn.Body.Stmts, 1)
	ret, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, bin.Op)
}

func TestParseSource_OperatorPrecedence(t *testing.T) {
	prog, errs := ParseSource("t", `fun f() { return 1 + 2 * 3 == 7 && 1 < 2; }`)
	require.Empty(t, errs)
	ret := prog.Functions[0].Body.Stmts[0].(*ast.ReturnStmt)
	top, ok := ret.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAnd, top.Op)
	eqExpr, ok := top.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpEq, eqExpr.Op)
	mulSide, ok := eqExpr.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, mulSide.Op)
	mulExpr, ok := mulSide.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mulExpr.Op)
}

func TestParseSource_IfWhileCallReturn(t *testing.T) {
	src := `fun f(n) {
  if (n < 2) {
    return n;
  }
  while (n > 0) {
    n = n - 1;
  }
  print_num(n);
  return 0;
}`
	prog, errs := ParseSource("t", src)
	require.Empty(t, errs)
	body := prog.Functions[0].Body.Stmts
	require.Len(t, body, 4)
	_, ok := body[0].(*ast.IfStmt)
	assert.True(t, ok)
	_, ok = body[1].(*ast.WhileStmt)
	assert.True(t, ok)
	callStmt, ok := body[2].(*ast.CallStmt)
	require.True(t, ok)
	assert.Equal(t, "print_num", callStmt.Call.Name)
}

func TestParseSource_CharLiteralInExpression(t *testing.T) {
	prog, errs := ParseSource("t", `fun f() { return 'A'; }`)
	require.Empty(t, errs)
	ret := prog.Functions[0].Body.Stmts[0].(*ast.ReturnStmt)
	num, ok := ret.Expr.(*ast.NumberExpr)
	require.True(t, ok)
	assert.EqualValues(t, 65, num.Value)
}

func TestParseSource_SyntaxErrorReported(t *testing.T) {
	_, errs := ParseSource("t", `fun f( { return 1; }`)
	require.NotEmpty(t, errs)
}
