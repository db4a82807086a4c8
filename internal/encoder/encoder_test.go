// SPDX-License-Identifier: Apache-2.0
package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flint/internal/abi"
)

func TestMovRegReg_EncodesRexAndOpcode(t *testing.T) {
	a := New()
	a.MovRegReg(abi.RBX, abi.RAX)
	// REX.W (no R/B since both rax=0, rbx=3 fit in 3 bits) + 0x89 + modrm
	assert.Equal(t, []byte{0x48, 0x89, 0xC3}, a.Bytes())
}

func TestMovRegReg_SetsExtensionBitsForR8Plus(t *testing.T) {
	a := New()
	a.MovRegReg(abi.R8, abi.R9)
	// dst=r8 extends B, src=r9 extends R
	assert.Equal(t, byte(0x4D), a.Bytes()[0])
}

func TestMovRegImm64_Emits10Bytes(t *testing.T) {
	a := New()
	a.MovRegImm64(abi.RAX, 42)
	assert.Len(t, a.Bytes(), 10)
	assert.Equal(t, byte(0xB8), a.Bytes()[1])
}

func TestMovRegMemAndMovMemReg_RoundTripShape(t *testing.T) {
	a := New()
	a.MovRegMem(abi.RAX, abi.RBP, -8)
	a.MovMemReg(abi.RBP, -8, abi.RAX)
	assert.Equal(t, 14, len(a.Bytes()))
}

func TestAddRegReg_Opcode(t *testing.T) {
	a := New()
	a.AddRegReg(abi.RAX, abi.RBX)
	assert.Equal(t, []byte{0x48, 0x01, 0xD8}, a.Bytes())
}

func TestCmpThenSetcc_ProducesZeroOrOneMaterialization(t *testing.T) {
	a := New()
	a.CmpRegReg(abi.RAX, abi.RBX)
	a.SetccReg(CondLess, abi.RAX)
	// cmp(3) + setcc with REX(4) + movzx with REX.W(4)
	assert.Equal(t, 11, len(a.Bytes()))
}

func TestJmp_ForwardReferencePatchedOnLabel(t *testing.T) {
	a := New()
	a.Jmp("end")
	before := a.Len()
	a.Nop()
	a.Label("end")
	rel32 := int32(a.Bytes()[1]) | int32(a.Bytes()[2])<<8 | int32(a.Bytes()[3])<<16 | int32(a.Bytes()[4])<<24
	assert.Equal(t, int32(before+1-5), rel32)
}

func TestJmp_BackwardReferenceResolvedImmediately(t *testing.T) {
	a := New()
	a.Label("start")
	a.Nop()
	a.Jmp("start")
	// rel32 should point back to offset 0 relative to the instruction end
	jmpRel32At := 1 + 1 // nop + opcode byte
	rel32 := int32(a.Bytes()[jmpRel32At]) | int32(a.Bytes()[jmpRel32At+1])<<8 |
		int32(a.Bytes()[jmpRel32At+2])<<16 | int32(a.Bytes()[jmpRel32At+3])<<24
	assert.Equal(t, int32(-6), rel32)
}

func TestPushPop_ExtendedRegistersGetRexPrefix(t *testing.T) {
	a := New()
	a.Push(abi.R15)
	assert.Equal(t, byte(0x41), a.Bytes()[0])
	assert.Equal(t, byte(0x50+7), a.Bytes()[1])
}

func TestRet_SingleByte(t *testing.T) {
	a := New()
	a.Ret()
	assert.Equal(t, []byte{0xC3}, a.Bytes())
}

func TestCallReg_UsesFF2Extension(t *testing.T) {
	a := New()
	a.CallReg(abi.RAX)
	assert.Equal(t, []byte{0xFF, 0xD0}, a.Bytes())
}
