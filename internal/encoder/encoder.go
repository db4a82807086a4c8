// SPDX-License-Identifier: Apache-2.0

// Package encoder hand-assembles x86-64 machine code. It deliberately
// covers only the instruction shapes the code emitter needs to realize
// the IR opcode set; it is not a general-purpose assembler.
//
// Register numbering follows the ModRM/REX convention directly (rax=0 …
// r15=15), so abi.Reg values plug straight into the reg/rm fields below
// without a translation table.
package encoder

import (
	"encoding/binary"
	"fmt"

	"flint/internal/abi"
)

// Cond names the comparison a setcc/jcc pair tests, independent of
// operand order (the emitter decides which way to compare).
type Cond int

const (
	CondEqual Cond = iota
	CondNotEqual
	CondLess
	CondLessEqual
	CondGreater
	CondGreaterEqual
)

// Assembler accumulates machine code into a single growable buffer and
// resolves label references as they're defined.
type Assembler struct {
	buf     []byte
	labels  map[string]int      // name -> resolved byte offset
	pending map[string][]patch  // name -> outstanding rel32 sites awaiting definition
}

type patch struct {
	// fixupAt is the offset of the 4-byte rel32 field; rel32 is computed
	// relative to the byte immediately following it.
	fixupAt int
}

func New() *Assembler {
	return &Assembler{
		labels:  make(map[string]int),
		pending: make(map[string][]patch),
	}
}

func (a *Assembler) Bytes() []byte { return a.buf }
func (a *Assembler) Len() int      { return len(a.buf) }

func (a *Assembler) emit8(b byte)  { a.buf = append(a.buf, b) }
func (a *Assembler) emit32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	a.buf = append(a.buf, b[:]...)
}
func (a *Assembler) emit64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	a.buf = append(a.buf, b[:]...)
}

// Label fixes name at the current position, patching every rel32 site
// that referenced it before it was defined.
func (a *Assembler) Label(name string) {
	pos := len(a.buf)
	a.labels[name] = pos
	for _, p := range a.pending[name] {
		a.patchRel32(p.fixupAt, pos)
	}
	delete(a.pending, name)
}

func (a *Assembler) patchRel32(fixupAt, targetPos int) {
	rel := int32(targetPos - (fixupAt + 4))
	binary.LittleEndian.PutUint32(a.buf[fixupAt:fixupAt+4], uint32(rel))
}

// reserveRel32 emits a placeholder rel32 and arranges for it to be
// patched once name is defined (immediately, if it already is).
func (a *Assembler) reserveRel32(name string) {
	fixupAt := len(a.buf)
	a.emit32(0)
	if pos, ok := a.labels[name]; ok {
		a.patchRel32(fixupAt, pos)
		return
	}
	a.pending[name] = append(a.pending[name], patch{fixupAt: fixupAt})
}

func low3(r abi.Reg) byte  { return byte(r) & 0x7 }
func isExt(r abi.Reg) bool { return r >= 8 }

// rex builds a REX prefix. w selects 64-bit operand size; r/x/b extend
// the modrm.reg, sib.index, and modrm.rm/sib.base fields respectively.
func rex(w, r, x, b bool) byte {
	var v byte = 0x40
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func modrmReg(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | (rm & 7)
}

// memOperand writes a ModRM(+SIB) + disp32 addressing [base+disp],
// leaving the reg field for the caller to fill via modrm.
func (a *Assembler) memOperand(regField byte, base abi.Reg, disp int32) {
	a.emit8(modrmReg(0x2, regField, low3(base)))
	if low3(base) == 0x4 { // rsp/r12 need a SIB byte even with a disp32
		a.emit8(0x24) // scale=0, index=none(100), base=rsp
	}
	a.emit32(disp)
}

func (a *Assembler) regExtBit(reg, base abi.Reg, rField *bool, bField *bool) {
	*rField = isExt(reg)
	*bField = isExt(base)
}

// --- data movement ---

func (a *Assembler) MovRegReg(dst, src abi.Reg) {
	a.emit8(rex(true, isExt(src), false, isExt(dst)))
	a.emit8(0x89)
	a.emit8(modrmReg(0x3, low3(src), low3(dst)))
}

func (a *Assembler) MovRegImm64(dst abi.Reg, imm int64) {
	a.emit8(rex(true, false, false, isExt(dst)))
	a.emit8(0xB8 + low3(dst))
	a.emit64(imm)
}

// MovRegMem loads dst = [base+disp].
func (a *Assembler) MovRegMem(dst, base abi.Reg, disp int32) {
	a.emit8(rex(true, isExt(dst), false, isExt(base)))
	a.emit8(0x8B)
	a.memOperand(low3(dst), base, disp)
}

// MovRegMemByte zero-extends the single byte at [base+disp] into dst.
func (a *Assembler) MovRegMemByte(dst, base abi.Reg, disp int32) {
	a.emit8(rex(true, isExt(dst), false, isExt(base)))
	a.emit8(0x0F)
	a.emit8(0xB6)
	a.memOperand(low3(dst), base, disp)
}

// MovMemReg stores [base+disp] = src.
func (a *Assembler) MovMemReg(base abi.Reg, disp int32, src abi.Reg) {
	a.emit8(rex(true, isExt(src), false, isExt(base)))
	a.emit8(0x89)
	a.memOperand(low3(src), base, disp)
}

// MovMemImm32 stores a sign-extended 32-bit immediate into [base+disp].
func (a *Assembler) MovMemImm32(base abi.Reg, disp int32, imm int32) {
	a.emit8(rex(true, false, false, isExt(base)))
	a.emit8(0xC7)
	a.memOperand(0, base, disp)
	a.emit32(imm)
}

// --- arithmetic ---

type aluOp byte

const (
	aluAdd aluOp = 0
	aluOr  aluOp = 1
	aluAnd aluOp = 4
	aluSub aluOp = 5
	aluXor aluOp = 6
	aluCmp aluOp = 7
)

func (a *Assembler) aluRegReg(op aluOp, dst, src abi.Reg) {
	opcodes := map[aluOp]byte{aluAdd: 0x01, aluOr: 0x09, aluAnd: 0x21, aluSub: 0x29, aluXor: 0x31, aluCmp: 0x39}
	a.emit8(rex(true, isExt(src), false, isExt(dst)))
	a.emit8(opcodes[op])
	a.emit8(modrmReg(0x3, low3(src), low3(dst)))
}

func (a *Assembler) aluRegImm32(op aluOp, dst abi.Reg, imm int32) {
	a.emit8(rex(true, false, false, isExt(dst)))
	a.emit8(0x81)
	a.emit8(modrmReg(0x3, byte(op), low3(dst)))
	a.emit32(imm)
}

func (a *Assembler) AddRegReg(dst, src abi.Reg) { a.aluRegReg(aluAdd, dst, src) }
func (a *Assembler) SubRegReg(dst, src abi.Reg) { a.aluRegReg(aluSub, dst, src) }
func (a *Assembler) AndRegReg(dst, src abi.Reg) { a.aluRegReg(aluAnd, dst, src) }
func (a *Assembler) OrRegReg(dst, src abi.Reg)  { a.aluRegReg(aluOr, dst, src) }
func (a *Assembler) CmpRegReg(dst, src abi.Reg) { a.aluRegReg(aluCmp, dst, src) }
func (a *Assembler) XorRegReg(dst, src abi.Reg) { a.aluRegReg(aluXor, dst, src) }

// NegReg computes dst = -dst (two's complement negate).
func (a *Assembler) NegReg(dst abi.Reg) {
	a.emit8(rex(true, false, false, isExt(dst)))
	a.emit8(0xF7)
	a.emit8(modrmReg(0x3, 3, low3(dst)))
}

func (a *Assembler) AddRegImm32(dst abi.Reg, imm int32) { a.aluRegImm32(aluAdd, dst, imm) }
func (a *Assembler) SubRegImm32(dst abi.Reg, imm int32) { a.aluRegImm32(aluSub, dst, imm) }
func (a *Assembler) CmpRegImm32(dst abi.Reg, imm int32) { a.aluRegImm32(aluCmp, dst, imm) }

// ImulRegReg computes dst *= src (IMUL r64, r/m64).
func (a *Assembler) ImulRegReg(dst, src abi.Reg) {
	a.emit8(rex(true, isExt(dst), false, isExt(src)))
	a.emit8(0x0F)
	a.emit8(0xAF)
	a.emit8(modrmReg(0x3, low3(dst), low3(src)))
}

// Cqo sign-extends rax into rdx:rax, required before Idiv.
func (a *Assembler) Cqo() {
	a.emit8(rex(true, false, false, false))
	a.emit8(0x99)
}

// Idiv divides rdx:rax by divisor, leaving the quotient in rax and the
// remainder in rdx.
func (a *Assembler) Idiv(divisor abi.Reg) {
	a.emit8(rex(true, false, false, isExt(divisor)))
	a.emit8(0xF7)
	a.emit8(modrmReg(0x3, 7, low3(divisor)))
}

// --- comparisons ---

var setccOpcode = map[Cond]byte{
	CondEqual:        0x94,
	CondNotEqual:     0x95,
	CondLess:         0x9C,
	CondLessEqual:    0x9E,
	CondGreater:      0x9F,
	CondGreaterEqual: 0x9D,
}

// SetccReg sets dst's low byte to 0/1 per cond and zero-extends it into
// the full register.
func (a *Assembler) SetccReg(cond Cond, dst abi.Reg) {
	// setcc r/m8
	a.emit8(rex(false, false, false, isExt(dst)))
	a.emit8(0x0F)
	a.emit8(setccOpcode[cond])
	a.emit8(modrmReg(0x3, 0, low3(dst)))
	// movzx dst, dst_low8
	a.emit8(rex(true, isExt(dst), false, isExt(dst)))
	a.emit8(0x0F)
	a.emit8(0xB6)
	a.emit8(modrmReg(0x3, low3(dst), low3(dst)))
}

// --- control flow ---

func (a *Assembler) Jmp(label string) {
	a.emit8(0xE9)
	a.reserveRel32(label)
}

// Test emits test reg, reg, setting ZF when reg is zero (used for
// JumpFalse, ahead of JmpIfZero).
func (a *Assembler) Test(reg abi.Reg) {
	a.emit8(rex(true, isExt(reg), false, isExt(reg)))
	a.emit8(0x85)
	a.emit8(modrmReg(0x3, low3(reg), low3(reg)))
}

func (a *Assembler) JmpIfZero(label string) {
	a.emit8(0x0F)
	a.emit8(0x84)
	a.reserveRel32(label)
}

func (a *Assembler) JmpIfNotZero(label string) {
	a.emit8(0x0F)
	a.emit8(0x85)
	a.reserveRel32(label)
}

// JmpIfNotSign jumps when the sign flag is clear (the last Test/Cmp'd
// value was >= 0).
func (a *Assembler) JmpIfNotSign(label string) {
	a.emit8(0x0F)
	a.emit8(0x89)
	a.reserveRel32(label)
}

// JmpIfLessEqual jumps on a signed <= comparison (SF<>OF or ZF).
func (a *Assembler) JmpIfLessEqual(label string) {
	a.emit8(0x0F)
	a.emit8(0x8E)
	a.reserveRel32(label)
}

func (a *Assembler) CallRel32(targetLabel string) {
	a.emit8(0xE8)
	a.reserveRel32(targetLabel)
}

// CallReg emits an indirect call through reg (used to call a resolver-
// returned address baked into a register at runtime).
func (a *Assembler) CallReg(reg abi.Reg) {
	if isExt(reg) {
		a.emit8(rex(false, false, false, true))
	}
	a.emit8(0xFF)
	a.emit8(modrmReg(0x3, 2, low3(reg)))
}

// CallAbs loads target into a scratch register and calls through it;
// used for baking in absolute addresses (the resolver trampoline, host
// function stubs) that don't fit a rel32 displacement.
func (a *Assembler) CallAbs(scratch abi.Reg, target uintptr) {
	a.MovRegImm64(scratch, int64(target))
	a.CallReg(scratch)
}

func (a *Assembler) Push(reg abi.Reg) {
	a.emit8WithOptionalRex(reg, 0x50+low3(reg))
}

func (a *Assembler) Pop(reg abi.Reg) {
	a.emit8WithOptionalRex(reg, 0x58+low3(reg))
}

func (a *Assembler) emit8WithOptionalRex(reg abi.Reg, opcode byte) {
	if isExt(reg) {
		a.emit8(rex(false, false, false, true))
	}
	a.emit8(opcode)
}

func (a *Assembler) Ret()  { a.emit8(0xC3) }
func (a *Assembler) Nop()  { a.emit8(0x90) }

// SubRspImm8/AddRspImm8 adjust the stack pointer for frame setup/teardown
// and shadow-space reservation; disp is always a multiple of 8 in this
// compiler's usage so the imm8 form suffices.
func (a *Assembler) SubRspImm8(n int8) {
	a.emit8(rex(true, false, false, false))
	a.emit8(0x83)
	a.emit8(modrmReg(0x3, 5, low3(abi.RSP)))
	a.emit8(byte(n))
}

func (a *Assembler) AddRspImm8(n int8) {
	a.emit8(rex(true, false, false, false))
	a.emit8(0x83)
	a.emit8(modrmReg(0x3, 0, low3(abi.RSP)))
	a.emit8(byte(n))
}

// Syscall emits the Linux x86-64 `syscall` instruction. By convention at
// every call site in this package rax holds the syscall number and
// rdi/rsi/rdx hold its first three arguments; the kernel clobbers rcx
// and r11 as a side effect of the instruction itself.
func (a *Assembler) Syscall() {
	a.emit8(0x0F)
	a.emit8(0x05)
}

// EmitRaw appends bytes verbatim, used to splice literal data (e.g. a
// string to format) into an otherwise-generated instruction stream.
func (a *Assembler) EmitRaw(bytes []byte) {
	a.buf = append(a.buf, bytes...)
}

func (a *Assembler) String() string {
	return fmt.Sprintf("<%d bytes of machine code>", len(a.buf))
}
