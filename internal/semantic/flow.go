// SPDX-License-Identifier: Apache-2.0
package semantic

import (
	"fmt"

	"flint/internal/ast"
	"flint/internal/errors"
)

// initScope tracks which names have been assigned within one block. Entry
// into an if/while body pushes a fresh, empty scope rather than inheriting
// the enclosing one: this check is a cheap, block-local syntactic pass run
// ahead of SSA conversion, not a full dataflow analysis, so it is
// deliberately conservative about what counts as "initialized" inside a
// nested block.
type initScope struct {
	names map[string]bool
}

// checkUseBeforeInit walks fn's body, flagging any identifier reference
// that has no assignment reaching it within the same block scope.
func (c *Checker) checkUseBeforeInit(fn *ast.Function) {
	scope := &initScope{names: make(map[string]bool)}
	for _, p := range fn.Params {
		scope.names[p.Name] = true
	}
	c.checkBlockFlow(fn.Body, scope)
}

func (c *Checker) checkBlockFlow(block *ast.Block, scope *initScope) {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			c.checkExprInit(s.Expr, scope)
			scope.names[s.Name] = true
		case *ast.IfStmt:
			c.checkExprInit(s.Cond, scope)
			c.checkBlockFlow(s.Body, &initScope{names: make(map[string]bool)})
		case *ast.WhileStmt:
			c.checkExprInit(s.Cond, scope)
			c.checkBlockFlow(s.Body, &initScope{names: make(map[string]bool)})
		case *ast.CallStmt:
			c.checkExprInit(s.Call, scope)
		case *ast.ReturnStmt:
			if s.Expr != nil {
				c.checkExprInit(s.Expr, scope)
			}
		}
	}
}

func (c *Checker) checkExprInit(expr ast.Expr, scope *initScope) {
	switch e := expr.(type) {
	case *ast.IdentExpr:
		if !scope.names[e.Name] {
			c.report(errors.ErrorUseBeforeInit, e.Pos, len(e.Name),
				fmt.Sprintf("variable %q is used before it is assigned in this scope", e.Name))
		}
	case *ast.BinaryExpr:
		c.checkExprInit(e.Left, scope)
		c.checkExprInit(e.Right, scope)
	case *ast.CallExpr:
		for _, a := range e.Args {
			c.checkExprInit(a, scope)
		}
	case *ast.NumberExpr:
		// literal, nothing to check
	}
}
