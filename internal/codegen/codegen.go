// SPDX-License-Identifier: Apache-2.0

// Package codegen drives the encoder over a lowered IR function, turning
// three-address instructions into a contiguous block of x86-64 machine
// code: standard prologue, one instruction-sequence per IR op, and a
// matching epilogue.
package codegen

import (
	"fmt"

	"flint/internal/abi"
	"flint/internal/ast"
	"flint/internal/encoder"
	"flint/internal/ir"
	"flint/internal/liveness"
	"flint/internal/regalloc"
)

// scratch1/scratch2 are the two registers the emitter reserves for
// shuttling memory operands and materializing immediates; they are
// never handed out by the allocator itself, so reusing them here can
// never clobber a live variable.
const (
	scratch1 = abi.RAX
	scratch2 = abi.R10
)

// Resolver supplies the call-site addresses a function body needs: the
// trampoline used to lazily resolve another compiled-or-not-yet-compiled
// function by ID, and the opaque tracker pointer passed to it. Direct
// lets pre-resolved leaf calls (host externals bound at emit time) skip
// the trampoline.
type Resolver interface {
	// FunctionID returns the callee's ID and whether it must be resolved
	// through the trampoline (compiled-language function) or can be
	// called through a baked-in absolute address (host external).
	FunctionID(name string) (id int64, direct uintptr, viaTrampoline bool, ok error)
	TrampolineAddr() uintptr
	TrackerAddr() uintptr
}

// Emit compiles fn into a standalone, relocation-free machine code
// block using conv's calling convention and the allocator's bindings.
func Emit(fn *ir.Function, conv abi.Convention, live *liveness.Result, res Resolver) ([]byte, error) {
	e := &emitter{
		asm:   encoder.New(),
		conv:  conv,
		alloc: regalloc.New(conv, fn.Params, live),
		res:   res,
	}
	e.prologue()
	for i, instr := range fn.Instrs {
		if err := e.emitInstr(instr, i+1); err != nil {
			return nil, fmt.Errorf("%s: instruction %d: %w", fn.Name, i, err)
		}
	}
	// Fall off the end: implicit `return 0`.
	e.asm.MovRegImm64(abi.RAX, 0)
	e.epilogue()
	return e.asm.Bytes(), nil
}

type emitter struct {
	asm   *encoder.Assembler
	conv  abi.Convention
	alloc *regalloc.Allocator
	res   Resolver
}

// prologue establishes the standard rbp-based frame and preserves every
// non-volatile register the convention defines, once, up front — the
// allocator may hand any of them to a temporary at any point in the
// body, so all of them must already be saved before the body starts.
func (e *emitter) prologue() {
	e.asm.Push(abi.RBP)
	e.asm.MovRegReg(abi.RBP, abi.RSP)
	for _, r := range e.conv.NonVolatile {
		e.asm.Push(r)
	}
}

// epilogue restores exactly what the prologue saved, in reverse, before
// returning; the result is already sitting in rax.
func (e *emitter) epilogue() {
	for i := len(e.conv.NonVolatile) - 1; i >= 0; i-- {
		e.asm.Pop(e.conv.NonVolatile[i])
	}
	e.asm.Pop(abi.RBP)
	e.asm.Ret()
}

// loadInto materializes d into reg: an immediate is moved directly; a
// variable is loaded from its bound location (a no-op mov if it's
// already sitting in reg itself isn't special-cased — redundant
// reg,reg movs are harmless and keep this simple).
func (e *emitter) loadInto(reg abi.Reg, d ir.Data, line int) {
	switch v := d.(type) {
	case ir.Number:
		e.asm.MovRegImm64(reg, v.Value)
	case ir.Variable:
		loc := e.alloc.Get(v.Name, line)
		if loc.IsRegister {
			e.asm.MovRegReg(reg, loc.Reg)
		} else {
			e.asm.MovRegMem(reg, abi.RBP, int32(loc.Offset))
		}
	default:
		panic(fmt.Sprintf("codegen: unknown Data %T", d))
	}
}

// storeFrom writes reg into name's bound location, allocating that
// location for the first time if this is name's defining instruction.
func (e *emitter) storeFrom(name string, reg abi.Reg, line int) {
	loc := e.alloc.Get(name, line)
	if loc.IsRegister {
		if loc.Reg != reg {
			e.asm.MovRegReg(loc.Reg, reg)
		}
		return
	}
	e.asm.MovMemReg(abi.RBP, int32(loc.Offset), reg)
}

func (e *emitter) emitInstr(instr ir.Instr, line int) error {
	switch in := instr.(type) {
	case *ir.Label:
		e.asm.Nop() // cosmetic, but every label needs a byte to land on
		e.asm.Label(in.Name)
	case *ir.Jump:
		e.asm.Jmp(in.Target)
	case *ir.JumpFalse:
		e.loadInto(scratch1, in.Cond, line)
		e.asm.Test(scratch1)
		e.asm.JmpIfZero(in.Target)
	case *ir.Assign:
		e.loadInto(scratch1, in.Value, line)
		e.storeFrom(in.Result, scratch1, line)
	case *ir.Return:
		e.loadInto(abi.RAX, in.Value, line)
		// Every return site, including one nested in an if/while body,
		// leaves through its own epilogue.
		e.epilogue()
	case *ir.BinOp:
		return e.emitBinOp(in, line)
	case *ir.Call:
		return e.emitCall(in, line)
	case *ir.KeepAlive:
		// Nothing to emit; liveness already extended the interval.
	default:
		return fmt.Errorf("codegen: unhandled instruction %T", instr)
	}
	return nil
}

func (e *emitter) emitBinOp(b *ir.BinOp, line int) error {
	e.loadInto(scratch1, b.Left, line)
	e.loadInto(scratch2, b.Right, line)
	switch {
	case b.Op.IsComparison():
		e.asm.CmpRegReg(scratch1, scratch2)
		e.asm.SetccReg(condFor(b.Op), scratch1)
	case b.Op.IsLogic():
		// Each operand is first normalised to 0/1 (1 when greater than
		// zero); a plain bitwise and/or then implements && / || without
		// short-circuiting, matching this language's eager evaluation of
		// both sides.
		e.asm.CmpRegImm32(scratch1, 0)
		e.asm.SetccReg(encoder.CondGreater, scratch1)
		e.asm.CmpRegImm32(scratch2, 0)
		e.asm.SetccReg(encoder.CondGreater, scratch2)
		if b.Op == "&&" {
			e.asm.AndRegReg(scratch1, scratch2)
		} else {
			e.asm.OrRegReg(scratch1, scratch2)
		}
	default:
		switch b.Op {
		case "+":
			e.asm.AddRegReg(scratch1, scratch2)
		case "-":
			e.asm.SubRegReg(scratch1, scratch2)
		case "*":
			e.asm.ImulRegReg(scratch1, scratch2)
		case "/", "%":
			// idiv operates on rdx:rax, so the dividend must be in rax and
			// the divisor in a register other than rax/rdx. rdx may hold a
			// live variable, so it is parked in r11 around cqo/idiv.
			e.asm.MovRegReg(abi.RAX, scratch1)
			e.asm.MovRegReg(abi.R11, abi.RDX)
			e.asm.Cqo()
			e.asm.Idiv(scratch2)
			if b.Op == "%" {
				e.asm.MovRegReg(scratch1, abi.RDX)
			}
			e.asm.MovRegReg(abi.RDX, abi.R11)
		default:
			return fmt.Errorf("codegen: unknown operator %q", b.Op)
		}
	}
	e.storeFrom(b.Result, scratch1, line)
	return nil
}

func condFor(op ast.BinaryOp) encoder.Cond {
	switch op {
	case "==":
		return encoder.CondEqual
	case "!=":
		return encoder.CondNotEqual
	case "<":
		return encoder.CondLess
	case "<=":
		return encoder.CondLessEqual
	case ">":
		return encoder.CondGreater
	default:
		return encoder.CondGreaterEqual
	}
}

// emitCall marshals arguments into the convention's ArgRegs (spilling
// any overflow onto the stack in reverse declaration order, matching
// how this compiler's own prologues expect to find them), reserves
// shadow space on Windows, resolves the callee's address, invokes it,
// and stores the result.
func (e *emitter) emitCall(c *ir.Call, line int) error {
	e.marshalArgs(c.Args, line)
	numUsed := len(c.Args)
	if numUsed > len(e.conv.ArgRegs) {
		numUsed = len(e.conv.ArgRegs)
	}
	usedArgRegs := e.conv.ArgRegs[:numUsed]

	id, direct, viaTrampoline, err := e.res.FunctionID(c.Name)
	if err != nil {
		return err
	}
	if e.conv.ShadowSpaceBytes > 0 {
		e.asm.SubRspImm8(int8(e.conv.ShadowSpaceBytes))
	}
	if !viaTrampoline {
		e.asm.CallAbs(abi.R11, direct)
	} else {
		// Resolving clobbers the argument registers, so the real
		// arguments (already marshaled above) are saved around the
		// resolve call and restored immediately before the real one.
		for _, r := range usedArgRegs {
			e.asm.Push(r)
		}
		trackerArg, idArg := e.conv.ArgRegs[0], e.conv.ArgRegs[1]
		e.asm.MovRegImm64(trackerArg, int64(e.res.TrackerAddr()))
		e.asm.MovRegImm64(idArg, id)
		e.asm.CallAbs(abi.R11, e.res.TrampolineAddr())
		e.asm.MovRegReg(abi.R11, abi.RAX)
		for i := len(usedArgRegs) - 1; i >= 0; i-- {
			e.asm.Pop(usedArgRegs[i])
		}
		e.asm.CallReg(abi.R11)
	}
	if e.conv.ShadowSpaceBytes > 0 {
		e.asm.AddRspImm8(int8(e.conv.ShadowSpaceBytes))
	}
	if extra := len(c.Args) - len(e.conv.ArgRegs); extra > 0 {
		e.asm.AddRspImm8(int8(extra * 8))
	}
	if c.Result != "" {
		e.storeFrom(c.Result, abi.RAX, line)
	}
	return nil
}

func (e *emitter) marshalArgs(args []ir.Data, line int) {
	n := len(e.conv.ArgRegs)
	for i, arg := range args {
		if i < n {
			e.loadInto(e.conv.ArgRegs[i], arg, line)
		}
	}
	// Extra arguments go on the stack, rightmost first, so the first
	// stacked parameter ends up nearest the return address.
	for i := len(args) - 1; i >= n; i-- {
		e.loadInto(scratch1, args[i], line)
		e.asm.Push(scratch1)
	}
}

