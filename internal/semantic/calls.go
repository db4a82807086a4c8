// SPDX-License-Identifier: Apache-2.0
package semantic

import (
	"fmt"

	"flint/internal/ast"
	"flint/internal/errors"
)

// checkCalls walks block recursively, validating that every call targets
// a known function (internal or external) with a matching argument count.
func (c *Checker) checkCalls(block *ast.Block) {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			c.checkCallsInExpr(s.Expr)
		case *ast.IfStmt:
			c.checkCallsInExpr(s.Cond)
			c.checkCalls(s.Body)
		case *ast.WhileStmt:
			c.checkCallsInExpr(s.Cond)
			c.checkCalls(s.Body)
		case *ast.CallStmt:
			c.checkCallsInExpr(s.Call)
		case *ast.ReturnStmt:
			if s.Expr != nil {
				c.checkCallsInExpr(s.Expr)
			}
		}
	}
}

func (c *Checker) checkCallsInExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.BinaryExpr:
		c.checkCallsInExpr(e.Left)
		c.checkCallsInExpr(e.Right)
	case *ast.CallExpr:
		for _, a := range e.Args {
			c.checkCallsInExpr(a)
		}
		c.checkCallArity(e)
	}
}

func (c *Checker) checkCallArity(call *ast.CallExpr) {
	if fn, ok := c.functions[call.Name]; ok {
		if len(call.Args) != len(fn.Params) {
			c.report(errors.ErrorArityMismatch, call.Pos, len(call.Name),
				fmt.Sprintf("function %q expects %d argument(s), found %d", call.Name, len(fn.Params), len(call.Args)))
		}
		return
	}
	if arity, ok := c.externals[call.Name]; ok {
		if len(call.Args) != arity {
			c.report(errors.ErrorArityMismatch, call.Pos, len(call.Name),
				fmt.Sprintf("external function %q expects %d argument(s), found %d", call.Name, arity, len(call.Args)))
		}
		return
	}
	c.report(errors.ErrorUndefinedFunction, call.Pos, len(call.Name),
		fmt.Sprintf("call to undeclared function %q", call.Name))
}
