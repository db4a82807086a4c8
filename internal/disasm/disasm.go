// SPDX-License-Identifier: Apache-2.0

// Package disasm renders compiled machine code back to text for the
// CLI's optional -a flag. It never feeds back into code generation —
// the encoder emits bytes directly and has no use for a decoder.
package disasm

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Lines decodes code as a sequence of 64-bit x86 instructions, one
// formatted line per instruction. Decoding stops and a final marker
// line is appended if it ever runs into bytes it cannot decode (e.g.
// trailing padding past the last real instruction).
func Lines(code []byte) []string {
	var out []string
	for len(code) > 0 {
		inst, err := x86asm.Decode(code, 64)
		if err != nil || inst.Len == 0 {
			out = append(out, fmt.Sprintf("; undecodable: % x", code))
			break
		}
		out = append(out, x86asm.GNUSyntax(inst, 0, nil))
		code = code[inst.Len:]
	}
	return out
}
