// SPDX-License-Identifier: Apache-2.0

// Package regalloc implements the linear-scan register/stack allocator:
// given per-variable liveness intervals, it binds each SSA name to either
// a general-purpose register or a stack slot at a negative rbp offset.
package regalloc

import (
	"fmt"

	"flint/internal/abi"
	"flint/internal/liveness"
)

// Location is where a variable lives: either a register or an rbp-
// relative stack slot. Offset is meaningful only when !IsRegister or
// when the variable is a parameter spilled on entry (Offset > 0).
type Location struct {
	IsRegister bool
	Reg        abi.Reg
	Offset     int64
}

func (l Location) String() string {
	if l.IsRegister {
		return l.Reg.String()
	}
	return fmt.Sprintf("[rbp%+d]", l.Offset)
}

type binding struct {
	loc Location
	end int
}

// CalleeSavedBytes returns the stack space the prologue reserves for the
// convention's non-volatile registers, the single source of truth the
// allocator and emitter both derive their stack-offset arithmetic from —
// so the spill base and the prologue's push count can never drift apart.
func CalleeSavedBytes(conv abi.Convention) int64 {
	return int64(len(conv.NonVolatile)) * 8
}

// Allocator is constructed once per function body and driven line by
// line as the emitter walks the IR.
type Allocator struct {
	conv    abi.Convention
	live    *liveness.Result
	free    []abi.Reg // stack; Get pops from the end
	bound   map[string]*binding
	nextOff int64
}

// New binds params to the convention's argument registers (or to
// positive rbp offsets for any beyond the register count), then returns
// an Allocator ready to bind the rest of the function's variables.
func New(conv abi.Convention, params []string, live *liveness.Result) *Allocator {
	a := &Allocator{
		conv:  conv,
		live:  live,
		bound: make(map[string]*binding, len(params)),
	}
	a.free = buildFreePool(conv, params)
	a.bindParams(params)
	a.nextOff = -(CalleeSavedBytes(conv) + 8)
	return a
}

// buildFreePool seeds the pool preferring non-volatile registers first
// (reducing how many registers must be saved across calls for
// short-lived temporaries), with whichever argument registers aren't
// consumed by params placed at the bottom of the stack so they're only
// reached once the non-volatiles run out.
func buildFreePool(conv abi.Convention, params []string) []abi.Reg {
	var pool []abi.Reg
	used := len(params)
	if used > len(conv.ArgRegs) {
		used = len(conv.ArgRegs)
	}
	for i := len(conv.ArgRegs) - 1; i >= used; i-- {
		pool = append(pool, conv.ArgRegs[i])
	}
	pool = append(pool, conv.NonVolatile...)
	return pool
}

func (a *Allocator) bindParams(params []string) {
	n := len(a.conv.ArgRegs)
	for i, name := range params {
		end := a.endOf(name)
		if i < n {
			a.bound[name] = &binding{loc: Location{IsRegister: true, Reg: a.conv.ArgRegs[i]}, end: end}
			continue
		}
		// Stacked parameters: the Nth-and-later parameters were pushed by
		// the caller in reverse declaration order, so the first stacked
		// parameter sits nearest the return address, just above the saved
		// rbp, the return address and any shadow space.
		j := i - n
		offset := int64(16 + a.conv.ShadowSpaceBytes + j*8)
		a.bound[name] = &binding{loc: Location{IsRegister: false, Offset: offset}, end: end}
	}
}

func (a *Allocator) endOf(name string) int {
	if iv, ok := a.live.Intervals[name]; ok {
		return iv.End
	}
	return 0
}

// Get returns name's location, binding it on first reference. A name
// already bound simply returns its existing location; the caller (the
// emitter) is responsible for never calling Get on the result of an
// instruction before that instruction has executed.
func (a *Allocator) Get(name string, line int) Location {
	if b, ok := a.bound[name]; ok {
		return b.loc
	}
	a.reclaim(line)
	end := a.endOf(name)
	if len(a.free) > 0 {
		reg := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		loc := Location{IsRegister: true, Reg: reg}
		a.bound[name] = &binding{loc: loc, end: end}
		return loc
	}
	offset := a.nextOff
	a.nextOff -= 8
	loc := Location{IsRegister: false, Offset: offset}
	a.bound[name] = &binding{loc: loc, end: end}
	return loc
}

// reclaim returns every register bound to a variable whose liveness
// ended strictly before line back to the free pool. Stack slots are
// never reclaimed: once spilled, a variable keeps its slot for the rest
// of its life (and the allocator never reuses a retired slot either, to
// keep the offset arithmetic trivial).
func (a *Allocator) reclaim(line int) {
	for name, b := range a.bound {
		if b.end < line && b.loc.IsRegister {
			a.free = append(a.free, b.loc.Reg)
			delete(a.bound, name)
		}
	}
}

// IsBound reports whether name has already been assigned a location.
func (a *Allocator) IsBound(name string) bool {
	_, ok := a.bound[name]
	return ok
}

// StackSlotCount reports how many stack slots (locals only, not stacked
// parameters) have been handed out so far, used by the emitter to size
// the local stack area reserved by the prologue.
func (a *Allocator) StackSlotCount() int64 {
	base := -(CalleeSavedBytes(a.conv) + 8)
	return (base - a.nextOff) / 8
}
