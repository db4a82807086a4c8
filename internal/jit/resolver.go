// SPDX-License-Identifier: Apache-2.0
package jit

// resolveByID is called directly from trampolineEntry (bridge_amd64.s)
// by bare symbol name; the Go toolchain generates an ABI0-compatible
// entry point for it automatically, which is what lets hand-written
// assembly call an ordinary Go function without speaking Go's internal
// register-based calling convention. handle identifies the owning
// Tracker (see registry in tracker.go); a panic here means generated
// code passed an ID the tracker never assigned, which the semantic
// checker should have made impossible before this program ever reached
// code generation.
func resolveByID(handle uintptr, id int64) uintptr {
	registryMu.Lock()
	t, ok := registry[handle]
	registryMu.Unlock()
	if !ok {
		panic("jit: resolver invoked with an unregistered tracker handle")
	}

	addr, err := t.resolve(id)
	if err != nil {
		panic(err)
	}
	return addr
}
