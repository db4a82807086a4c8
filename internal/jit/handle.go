// SPDX-License-Identifier: Apache-2.0
package jit

import (
	"fmt"

	"flint/internal/errors"
)

// InvalidNumberOfArguments reports a call to a compiled entry function
// with an argument count that does not match its declared arity.
type InvalidNumberOfArguments struct {
	Expected int
	Found    int
}

func (e InvalidNumberOfArguments) Error() string {
	return fmt.Sprintf("%s: expected %d argument(s), got %d", errors.ErrorArity, e.Expected, e.Found)
}

// TooManyArguments reports a call with more arguments than this system's
// host/compiled-code bridge can marshal.
type TooManyArguments struct{ Found int }

func (e TooManyArguments) Error() string {
	return fmt.Sprintf("%s: at most 5 arguments are supported, got %d", errors.ErrorTooManyArguments, e.Found)
}

// maxArgs is the width of callCompiled's argument array; the bridge
// marshals at most this many arguments into registers before calling.
const maxArgs = 5

// Handle is a callable compiled function: an executable address paired
// with the argument count it was compiled to expect. Obtained from
// Tracker.GetMainFunction.
type Handle struct {
	addr  uintptr
	arity int
}

// Addr returns the handle's entry address, mainly for diagnostics (e.g.
// the -a disassembly flag).
func (h *Handle) Addr() uintptr { return h.addr }

// Arity returns the number of arguments Call expects.
func (h *Handle) Arity() int { return h.arity }

// Call invokes the handle with args, rejecting a mismatched argument
// count or more than five arguments before touching generated code.
func (h *Handle) Call(args ...int64) (int64, error) {
	if len(args) > maxArgs {
		return 0, TooManyArguments{Found: len(args)}
	}
	if len(args) != h.arity {
		return 0, InvalidNumberOfArguments{Expected: h.arity, Found: len(args)}
	}
	var buf [maxArgs]int64
	copy(buf[:], args)
	return callCompiled(h.addr, &buf, int64(len(args))), nil
}
