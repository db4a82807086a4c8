// SPDX-License-Identifier: Apache-2.0
package semantic

import (
	"fmt"

	"flint/internal/ast"
	"flint/internal/errors"
)

// checkDeclarations enforces unique function names and unique parameter
// names within each signature, returning a name -> Function index for
// later passes to use when validating call arity.
func (c *Checker) checkDeclarations(prog *ast.Program) map[string]*ast.Function {
	functions := make(map[string]*ast.Function, len(prog.Functions))
	for _, fn := range prog.Functions {
		if prior, exists := functions[fn.Name]; exists {
			c.report(errors.ErrorDuplicateFunction, fn.Pos, len(fn.Name),
				fmt.Sprintf("function %q is already declared", fn.Name),
				fmt.Sprintf("first declared at line %d", prior.Pos.Line))
			continue
		}
		functions[fn.Name] = fn

		seen := make(map[string]*ast.FunctionParam, len(fn.Params))
		for _, p := range fn.Params {
			if prior, exists := seen[p.Name]; exists {
				c.report(errors.ErrorDuplicateParameter, p.Pos, len(p.Name),
					fmt.Sprintf("parameter %q is already declared in this signature", p.Name),
					fmt.Sprintf("first declared at line %d", prior.Pos.Line))
				continue
			}
			seen[p.Name] = p
		}
	}
	return functions
}
