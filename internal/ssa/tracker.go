// SPDX-License-Identifier: Apache-2.0
package ssa

import "fmt"

// VariableTracker assigns each source-level name a monotonically
// increasing version number, producing the `#var_<origin>_#<k>` names
// that flow through IR, liveness, and allocation.
type VariableTracker struct {
	versions map[string]int
}

func NewVariableTracker() *VariableTracker {
	return &VariableTracker{versions: make(map[string]int)}
}

// Exists reports whether name has ever been versioned, used to decide
// whether an if/while body's assignment target needs a join.
func (vt *VariableTracker) Exists(name string) bool {
	_, ok := vt.versions[name]
	return ok
}

// GetCurrent returns the most recent versioned name for origin, minting
// version 0 on first reference (a variable read before any assignment is
// a semantic error caught upstream, but SSA conversion itself never
// rejects a program; it just names whatever it finds).
func (vt *VariableTracker) GetCurrent(origin string) string {
	v, ok := vt.versions[origin]
	if !ok {
		vt.versions[origin] = 0
		v = 0
	}
	return versionedName(origin, v)
}

// GetNew allocates and returns the next version for origin.
func (vt *VariableTracker) GetNew(origin string) string {
	v, ok := vt.versions[origin]
	next := 0
	if ok {
		next = v + 1
	}
	vt.versions[origin] = next
	return versionedName(origin, next)
}

func versionedName(origin string, version int) string {
	return fmt.Sprintf("#var_%s_#%d", origin, version)
}
