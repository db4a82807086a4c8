// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"fmt"

	"flint/internal/ast"
	"flint/internal/ssa"
)

// Lower flattens an entire ssa.Program into IR, one Function per
// ssa.Function.
func Lower(prog *ssa.Program) *Program {
	out := &Program{}
	for _, fn := range prog.Functions {
		out.Functions = append(out.Functions, lowerFunction(fn))
	}
	return out
}

type lowerer struct {
	tempCount  int
	labelCount int
	instrs     []Instr
}

func lowerFunction(fn *ssa.Function) *Function {
	lw := &lowerer{}
	for _, stmt := range fn.Body {
		lw.lowerStmt(stmt)
	}
	return &Function{Name: fn.Name, Params: fn.Params, Instrs: lw.instrs}
}

func (lw *lowerer) newTemp() string {
	name := fmt.Sprintf("#var_tmp_#%d", lw.tempCount)
	lw.tempCount++
	return name
}

func (lw *lowerer) newLabel() string {
	name := fmt.Sprintf("#label_%d", lw.labelCount)
	lw.labelCount++
	return name
}

func (lw *lowerer) emit(i Instr) { lw.instrs = append(lw.instrs, i) }

// lowerExpr lowers expr to three-address form, emitting one instruction
// per binary operator or call and returning the Data that names its
// result (or the literal/variable itself for an atom).
func (lw *lowerer) lowerExpr(expr ast.Expr) Data {
	switch e := expr.(type) {
	case *ast.NumberExpr:
		return Number{Value: e.Value}
	case *ast.IdentExpr:
		return Variable{Name: e.Name}
	case *ast.BinaryExpr:
		left := lw.lowerExpr(e.Left)
		right := lw.lowerExpr(e.Right)
		result := lw.newTemp()
		lw.emit(&BinOp{Op: e.Op, Result: result, Left: left, Right: right})
		return Variable{Name: result}
	case *ast.CallExpr:
		return lw.lowerCall(e)
	default:
		panic("ir: unknown expression kind")
	}
}

func (lw *lowerer) lowerCall(call *ast.CallExpr) Data {
	args := make([]Data, len(call.Args))
	for i, a := range call.Args {
		args[i] = lw.lowerExpr(a)
	}
	result := lw.newTemp()
	lw.emit(&Call{Result: result, Name: call.Name, Args: args})
	return Variable{Name: result}
}

func (lw *lowerer) lowerStmt(stmt ssa.Stmt) {
	switch s := stmt.(type) {
	case *ssa.Assign:
		val := lw.lowerExpr(s.Expr)
		lw.emit(&Assign{Result: s.Name, Value: val})

	case *ssa.Call:
		lw.lowerCall(s.Call)

	case *ssa.Return:
		var val Data = Number{Value: 0}
		if s.Expr != nil {
			val = lw.lowerExpr(s.Expr)
		}
		lw.emit(&Return{Value: val})

	case *ssa.If:
		lw.lowerIf(s)

	case *ssa.While:
		lw.lowerWhile(s)
	}
}

func (lw *lowerer) lowerIf(s *ssa.If) {
	cond := lw.lowerExpr(s.Cond)
	lfalse := lw.newLabel()
	lend := lw.newLabel()

	lw.emit(&JumpFalse{Cond: cond, Target: lfalse})
	for _, st := range s.Body {
		lw.lowerStmt(st)
	}
	for _, phi := range s.Phis {
		lw.emit(&Assign{Result: phi.Result, Value: Variable{Name: phi.Inner}})
	}
	lw.emit(&Jump{Target: lend})
	lw.emit(&Label{Name: lfalse})
	for _, phi := range s.Phis {
		lw.emit(&Assign{Result: phi.Result, Value: Variable{Name: phi.Outer}})
	}
	lw.emit(&Label{Name: lend})
}

func (lw *lowerer) lowerWhile(s *ssa.While) {
	initCond := lw.lowerExpr(s.Cond)
	linitFalse := lw.newLabel()
	linner := lw.newLabel()
	lstart := lw.newLabel()
	lend := lw.newLabel()
	lexit := lw.newLabel()

	lw.emit(&JumpFalse{Cond: initCond, Target: linitFalse})
	for _, phi := range s.Phis {
		lw.emit(&Assign{Result: phi.Inner, Value: Variable{Name: phi.Outer}})
	}
	lw.emit(&Jump{Target: linner})

	lw.emit(&Label{Name: lstart})
	// The condition is re-lowered here, producing a fresh set of
	// instructions; the back-edge re-reads the post-body versions because
	// the loop-phi moves below write them into the names this copy of
	// the condition expects.
	backCond := lw.lowerExpr(s.Cond)
	lw.emit(&JumpFalse{Cond: backCond, Target: lend})

	lw.emit(&Label{Name: linner})
	for _, st := range s.Body {
		lw.lowerStmt(st)
	}
	for _, lp := range s.LoopPhis {
		lw.emit(&Assign{Result: lp.CondVersion, Value: Variable{Name: lp.InnerVersion}})
	}
	lw.emit(&Jump{Target: lstart})

	lw.emit(&Label{Name: linitFalse})
	for _, phi := range s.Phis {
		lw.emit(&Assign{Result: phi.Result, Value: Variable{Name: phi.Outer}})
	}
	lw.emit(&Jump{Target: lexit})

	lw.emit(&Label{Name: lend})
	for _, phi := range s.Phis {
		lw.emit(&Assign{Result: phi.Result, Value: Variable{Name: phi.Inner}})
	}
	lw.emit(&Label{Name: lexit})
}
