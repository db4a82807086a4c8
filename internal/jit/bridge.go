// SPDX-License-Identifier: Apache-2.0
package jit

// trampolineEntry and callCompiled are implemented in bridge_amd64.s.
// trampolineEntry has no Go-callable signature — only its entry address
// is ever taken, via trampolinePC in tracker.go — so it is declared bodiless and
// never invoked directly from Go source.
func trampolineEntry()

// callCompiled invokes the System V C-ABI function pointer addr with the
// first argc entries of args (argc must be 0-5), returning its rax.
func callCompiled(addr uintptr, args *[5]int64, argc int64) int64
