// SPDX-License-Identifier: Apache-2.0
package ssa

import "flint/internal/ast"

// Convert turns a parsed Program into SSA form. Each function gets its
// own fresh set of parameter bindings but conversion runs with one
// VariableTracker per function; names never cross a function boundary.
func Convert(prog *ast.Program) *Program {
	out := &Program{}
	for _, fn := range prog.Functions {
		out.Functions = append(out.Functions, convertFunction(fn))
	}
	return out
}

func convertFunction(fn *ast.Function) *Function {
	vt := NewVariableTracker()
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = vt.GetNew(p.Name)
	}
	body := convertBlock(fn.Body, vt)
	return &Function{Name: fn.Name, Params: params, Body: body}
}

func convertExpr(expr ast.Expr, vt *VariableTracker) ast.Expr {
	switch e := expr.(type) {
	case *ast.NumberExpr:
		return &ast.NumberExpr{Value: e.Value, Pos: e.Pos}
	case *ast.IdentExpr:
		return &ast.IdentExpr{Name: vt.GetCurrent(e.Name), Pos: e.Pos}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{
			Op:    e.Op,
			Left:  convertExpr(e.Left, vt),
			Right: convertExpr(e.Right, vt),
			Pos:   e.Pos,
		}
	case *ast.CallExpr:
		args := make([]ast.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = convertExpr(a, vt)
		}
		return &ast.CallExpr{Name: e.Name, Args: args, Pos: e.Pos}
	default:
		panic("ssa: unknown expression kind")
	}
}

// assignedVariables collects every name that an AssignStmt binds anywhere
// in block, including nested if/while bodies, in source order with
// duplicates removed (a name reassigned twice only needs one join).
func assignedVariables(block *ast.Block) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	var walk func(*ast.Block)
	walk = func(b *ast.Block) {
		for _, stmt := range b.Stmts {
			switch s := stmt.(type) {
			case *ast.AssignStmt:
				add(s.Name)
			case *ast.IfStmt:
				walk(s.Body)
			case *ast.WhileStmt:
				walk(s.Body)
			}
		}
	}
	walk(block)
	return names
}

// referencedNames collects every already-versioned identifier read by
// expr, used to test which outer variables a loop condition depends on.
func referencedNames(expr ast.Expr) map[string]bool {
	out := make(map[string]bool)
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch v := e.(type) {
		case *ast.IdentExpr:
			out[v.Name] = true
		case *ast.BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case *ast.CallExpr:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(expr)
	return out
}

func convertBlock(block *ast.Block, vt *VariableTracker) []Stmt {
	var out []Stmt
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			expr := convertExpr(s.Expr, vt)
			out = append(out, &Assign{Name: vt.GetNew(s.Name), Expr: expr})

		case *ast.CallStmt:
			args := make([]ast.Expr, len(s.Call.Args))
			for i, a := range s.Call.Args {
				args[i] = convertExpr(a, vt)
			}
			out = append(out, &Call{Call: &ast.CallExpr{Name: s.Call.Name, Args: args, Pos: s.Call.Pos}})

		case *ast.ReturnStmt:
			var e ast.Expr
			if s.Expr != nil {
				e = convertExpr(s.Expr, vt)
			}
			out = append(out, &Return{Expr: e})

		case *ast.IfStmt:
			cond := convertExpr(s.Cond, vt)
			assigned := assignedVariables(s.Body)
			preExisting := filterExisting(assigned, vt)
			pre := snapshotVersions(preExisting, vt)
			innerBody := convertBlock(s.Body, vt)
			post := snapshotVersions(preExisting, vt)

			var phis []PhiNode
			for _, v := range preExisting {
				phis = append(phis, PhiNode{Result: vt.GetNew(v), Inner: post[v], Outer: pre[v]})
			}
			out = append(out, &If{Cond: cond, Body: innerBody, Phis: phis})

		case *ast.WhileStmt:
			cond := convertExpr(s.Cond, vt)
			condRefs := referencedNames(cond)
			assigned := assignedVariables(s.Body)
			preExisting := filterExisting(assigned, vt)
			pre := snapshotVersions(preExisting, vt)
			innerBody := convertBlock(s.Body, vt)
			post := snapshotVersions(preExisting, vt)

			var phis []PhiNode
			var loopPhis []LoopPhiNode
			for _, v := range preExisting {
				phis = append(phis, PhiNode{Result: vt.GetNew(v), Inner: post[v], Outer: pre[v]})
				if condRefs[pre[v]] {
					loopPhis = append(loopPhis, LoopPhiNode{CondVersion: pre[v], InnerVersion: post[v]})
				}
			}
			out = append(out, &While{Cond: cond, Body: innerBody, Phis: phis, LoopPhis: loopPhis})
		}
	}
	return out
}

func filterExisting(names []string, vt *VariableTracker) []string {
	var out []string
	for _, n := range names {
		if vt.Exists(n) {
			out = append(out, n)
		}
	}
	return out
}

func snapshotVersions(names []string, vt *VariableTracker) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = vt.GetCurrent(n)
	}
	return out
}
