// SPDX-License-Identifier: Apache-2.0
package externals

import (
	"flint/internal/abi"
	"flint/internal/encoder"
)

// Every stub below avoids the convention's non-volatile registers
// entirely, so none needs to save or restore anything beyond rbp — the
// usual callee-saved bookkeeping the function emitter does for user
// code doesn't apply here since these bodies never touch rbx/r12-r15.
// They do write rdi and rsi, which are non-volatile on Windows, so on
// that convention those two registers are not preserved.
//
// writeInlineString emits the position-independent "call past inline
// data" trick and writes the resulting buffer to fd 1 in the same
// block, then jumps past the trailing literal bytes: a jmp skips
// forward to a call whose target is the code right after this point;
// that call pushes the address of the bytes sitting between it and
// nowhere else (its own return address) and transfers control to the
// landing code, which pops that address, performs the write, and jumps
// over the data on its way out — the data itself is never executed.
// labelPrefix must be unique within the enclosing Assembler.
func writeInlineString(a *encoder.Assembler, s string, labelPrefix string) {
	data, code, after := labelPrefix+"_data", labelPrefix+"_code", labelPrefix+"_after"
	a.Jmp(data)
	a.Label(code)
	a.Pop(abi.RSI)
	writeSyscall(a, abi.RSI, int32(len(s)))
	a.Jmp(after)
	a.Label(data)
	a.CallRel32(code)
	a.EmitRaw([]byte(s))
	a.Label(after)
}

func writeSyscall(a *encoder.Assembler, bufReg abi.Reg, length int32) {
	a.MovRegImm64(abi.RAX, 1) // sys_write
	a.MovRegImm64(abi.RDI, 1) // fd 1 (stdout)
	if bufReg != abi.RSI {
		a.MovRegReg(abi.RSI, bufReg)
	}
	a.MovRegImm64(abi.RDX, int64(length))
	a.Syscall()
}

func buildCool(conv abi.Convention) []byte {
	a := encoder.New()
	a.Push(abi.RBP)
	a.MovRegReg(abi.RBP, abi.RSP)
	writeInlineString(a, "cool!\n", "cool")
	a.MovRegImm64(abi.RAX, 0)
	a.Pop(abi.RBP)
	a.Ret()
	return a.Bytes()
}

// buildDecimalPrinter builds print_num/println_num, parameterized on
// whether a trailing newline is emitted.
func buildDecimalPrinter(conv abi.Convention, newline bool) []byte {
	a := encoder.New()
	argIn := conv.ArgRegs[0]
	a.Push(abi.RBP)
	a.MovRegReg(abi.RBP, abi.RSP)

	a.MovRegReg(abi.R9, argIn) // r9 = saved n
	a.XorRegReg(abi.RAX, abi.RAX)
	a.CmpRegReg(abi.R9, abi.RAX) // sets flags for the sign test below
	a.JmpIfNotSign("pn_positive")
	writeInlineString(a, "-", "pn_sign")
	a.NegReg(abi.R9)
	a.Label("pn_positive")

	a.MovRegReg(abi.RAX, abi.R9)
	a.XorRegReg(abi.R10, abi.R10) // digit count
	a.Label("pn_digit_loop")
	a.XorRegReg(abi.RDX, abi.RDX)
	a.MovRegImm64(abi.R8, 10)
	a.Idiv(abi.R8)
	a.AddRegImm32(abi.RDX, 0x30)
	a.Push(abi.RDX)
	a.AddRegImm32(abi.R10, 1)
	a.XorRegReg(abi.RCX, abi.RCX)
	a.CmpRegReg(abi.RAX, abi.RCX)
	a.JmpIfNotZero("pn_digit_loop")

	a.Label("pn_write_loop")
	writeSyscall(a, abi.RSP, 1)
	a.Pop(abi.RAX)
	a.SubRegImm32(abi.R10, 1)
	a.XorRegReg(abi.RCX, abi.RCX)
	a.CmpRegReg(abi.R10, abi.RCX)
	a.JmpIfNotZero("pn_write_loop")

	if newline {
		writeInlineString(a, "\n", "pn_nl")
	}

	a.MovRegImm64(abi.RAX, 0)
	a.Pop(abi.RBP)
	a.Ret()
	return a.Bytes()
}

func buildPrintNum(conv abi.Convention) []byte   { return buildDecimalPrinter(conv, false) }
func buildPrintlnNum(conv abi.Convention) []byte { return buildDecimalPrinter(conv, true) }

// buildCharPrinter builds print_char/println_char: the argument's low
// byte is written verbatim, since this language's single numeric type
// carries the ASCII code directly.
func buildCharPrinter(conv abi.Convention, newline bool) []byte {
	a := encoder.New()
	argIn := conv.ArgRegs[0]
	a.Push(abi.RBP)
	a.MovRegReg(abi.RBP, abi.RSP)
	a.Push(argIn)
	writeSyscall(a, abi.RSP, 1)
	a.Pop(abi.RAX)
	if newline {
		writeInlineString(a, "\n", "pc_nl")
	}
	a.MovRegImm64(abi.RAX, 0)
	a.Pop(abi.RBP)
	a.Ret()
	return a.Bytes()
}

func buildPrintChar(conv abi.Convention) []byte   { return buildCharPrinter(conv, false) }
func buildPrintlnChar(conv abi.Convention) []byte { return buildCharPrinter(conv, true) }

// buildReadNum reads a line of decimal digits (with an optional leading
// '-') from stdin one byte at a time via raw `read` syscalls and
// returns the parsed value in rax.
func buildReadNum(conv abi.Convention) []byte {
	a := encoder.New()
	a.Push(abi.RBP)
	a.MovRegReg(abi.RBP, abi.RSP)
	a.SubRspImm8(8) // one-byte read buffer at [rsp]

	a.XorRegReg(abi.R9, abi.R9)  // accumulated magnitude
	a.XorRegReg(abi.R10, abi.R10) // sign flag: 0 positive, 1 negative
	a.MovRegImm64(abi.R8, 1)     // "expecting first character" flag

	a.Label("rn_loop")
	a.MovRegImm64(abi.RAX, 0) // sys_read
	a.MovRegImm64(abi.RDI, 0) // fd 0 (stdin)
	a.MovRegReg(abi.RSI, abi.RSP)
	a.MovRegImm64(abi.RDX, 1)
	a.Syscall()
	a.XorRegReg(abi.RCX, abi.RCX)
	a.CmpRegReg(abi.RAX, abi.RCX)
	a.JmpIfLessEqual("rn_done") // EOF or error ends input

	a.MovRegMemByte(abi.R11, abi.RSP, 0)
	a.CmpRegImm32(abi.R11, 0x0A) // '\n'
	a.JmpIfZero("rn_done")

	a.CmpRegImm32(abi.R8, 1)
	a.JmpIfNotZero("rn_not_first")
	a.MovRegImm64(abi.R8, 0)
	a.CmpRegImm32(abi.R11, 0x2D) // '-'
	a.JmpIfNotZero("rn_digit")
	a.MovRegImm64(abi.R10, 1)
	a.Jmp("rn_loop")

	a.Label("rn_not_first")
	a.Label("rn_digit")
	a.SubRegImm32(abi.R11, 0x30)
	a.MovRegImm64(abi.RCX, 10)
	a.ImulRegReg(abi.R9, abi.RCX)
	a.AddRegReg(abi.R9, abi.R11)
	a.Jmp("rn_loop")

	a.Label("rn_done")
	a.MovRegReg(abi.RAX, abi.R9)
	a.XorRegReg(abi.RCX, abi.RCX)
	a.CmpRegReg(abi.R10, abi.RCX)
	a.JmpIfZero("rn_positive")
	a.NegReg(abi.RAX)
	a.Label("rn_positive")

	a.AddRspImm8(8)
	a.Pop(abi.RBP)
	a.Ret()
	return a.Bytes()
}
