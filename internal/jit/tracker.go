// SPDX-License-Identifier: Apache-2.0

// Package jit owns the lazily-compiled executable form of a lowered
// program: it assigns every function (internal, from the program under
// compilation, or external, a predefined host routine) a stable numeric
// ID, answers the resolver trampoline compiled call sites invoke to turn
// an ID into a callable address, and exposes the compiled entry point
// through a small arity-checked handle.
package jit

import (
	"fmt"
	"reflect"
	"sync"

	"flint/internal/abi"
	"flint/internal/codegen"
	"flint/internal/disasm"
	"flint/internal/errors"
	"flint/internal/externals"
	"flint/internal/ir"
	"flint/internal/liveness"
	"flint/internal/memory"
)

// trampolinePC is trampolineEntry's entry address, baked into every
// compiled call site that must resolve a not-yet-compiled callee.
var trampolinePC = reflect.ValueOf(trampolineEntry).Pointer()

// registry maps a Tracker's handle to itself, so the resolver trampoline
// (which only carries a bare uintptr across the asm/Go boundary) can
// find its way back to the owning Tracker without round-tripping an
// unsafe.Pointer through the heap.
var (
	registryMu sync.Mutex
	registry   = map[uintptr]*Tracker{}
	nextHandle uintptr = 1
)

// ResolverError reports a callee ID with no corresponding function or
// external mapping; per the resolver's contract this can only happen if
// a program reached code generation without passing semantic checks.
type ResolverError struct{ ID int64 }

func (e ResolverError) Error() string {
	return fmt.Sprintf("%s: no function registered for id %d", errors.ErrorResolver, e.ID)
}

type compiledFunc struct {
	region *memory.Region
	code   []byte // the bytes written to region, kept around for -a
}

func (c *compiledFunc) Addr() uintptr { return c.region.Addr() }

// Tracker owns one lowered program's functions, the predefined external
// registry, and every executable region compiled so far. The zero value
// is not usable; construct with New.
type Tracker struct {
	conv   abi.Convention
	prog   *ir.Program
	byName map[string]int64 // name -> id; id >= 0 internal, id < 0 external

	mu        sync.Mutex
	compiled  map[int64]*compiledFunc
	externals *externals.Registry
	extAddrs  map[int64]uintptr

	handle uintptr
}

// New assigns IDs to every function in prog (in declaration order) and
// to every predefined external, and registers the tracker under a fresh
// handle so the resolver trampoline can find it later. Nothing is
// compiled yet.
func New(prog *ir.Program) (*Tracker, error) {
	conv := abi.Current()
	ext, err := externals.New(conv)
	if err != nil {
		return nil, fmt.Errorf("jit: registering externals: %w", err)
	}

	t := &Tracker{
		conv:      conv,
		prog:      prog,
		byName:    make(map[string]int64, len(prog.Functions)),
		compiled:  make(map[int64]*compiledFunc),
		externals: ext,
		extAddrs:  make(map[int64]uintptr),
	}
	for i, fn := range prog.Functions {
		t.byName[fn.Name] = int64(i)
	}
	for i, b := range ext.Bound() {
		id := externalID(i)
		t.byName[b.Name] = id
		t.extAddrs[id] = b.Addr
	}

	registryMu.Lock()
	t.handle = nextHandle
	nextHandle++
	registry[t.handle] = t
	registryMu.Unlock()

	return t, nil
}

// externalID maps a predefined external's position in externals.Signatures
// to the negative ID space (-1, -2, ...), leaving 0 and up free for
// internal functions addressed by their declaration index.
func externalID(i int) int64 { return -(int64(i) + 1) }

// Release frees every executable region this tracker owns, including the
// predefined externals' stubs, and forgets the tracker's handle. Any
// address handed out beforehand becomes invalid.
func (t *Tracker) Release() {
	registryMu.Lock()
	delete(registry, t.handle)
	registryMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.compiled {
		_ = c.region.Release()
	}
	t.compiled = nil
	t.externals.Release()
}

// FunctionID implements codegen.Resolver: externals are already resolved
// to a live address at registration time and so skip the trampoline
// entirely, while internal functions are always resolved through it
// since they may not be compiled yet.
func (t *Tracker) FunctionID(name string) (id int64, direct uintptr, viaTrampoline bool, err error) {
	id, ok := t.byName[name]
	if !ok {
		return 0, 0, false, fmt.Errorf("jit: undefined function %q", name)
	}
	if id < 0 {
		return id, t.extAddrs[id], false, nil
	}
	return id, 0, true, nil
}

func (t *Tracker) TrampolineAddr() uintptr { return trampolinePC }
func (t *Tracker) TrackerAddr() uintptr    { return t.handle }

// resolve returns id's callable address, compiling it now and caching
// the result if this is its first call. Holds the tracker's lock for the
// whole operation, matching the single mutable-borrow-per-compile model
// the resolver is specified against: a second call site racing in from
// another goroutine simply waits rather than double-compiling.
func (t *Tracker) resolve(id int64) (uintptr, error) {
	if id < 0 {
		addr, ok := t.extAddrs[id]
		if !ok {
			return 0, ResolverError{ID: id}
		}
		return addr, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.compiled[id]; ok {
		return c.Addr(), nil
	}
	if id < 0 || int(id) >= len(t.prog.Functions) {
		return 0, ResolverError{ID: id}
	}
	fn := t.prog.Functions[id]

	live := liveness.Analyze(fn)
	code, err := codegen.Emit(fn, t.conv, live, t)
	if err != nil {
		return 0, fmt.Errorf("%s: compiling %q: %w", errors.ErrorEncoder, fn.Name, err)
	}
	region, err := memory.New(len(code))
	if err != nil {
		return 0, err
	}
	if err := region.Write(code); err != nil {
		return 0, err
	}
	t.compiled[id] = &compiledFunc{region: region, code: code}
	return region.Addr(), nil
}

// Disassemble compiles every internal function that has not already been
// compiled and returns its machine code, formatted one instruction per
// line, keyed by function name. Intended for the CLI's -a flag; never
// used by compilation itself.
func (t *Tracker) Disassemble() (map[string][]string, error) {
	out := make(map[string][]string)
	for name, id := range t.byName {
		if id < 0 {
			continue
		}
		if _, err := t.resolve(id); err != nil {
			return nil, err
		}
		t.mu.Lock()
		code := t.compiled[id].code
		t.mu.Unlock()
		out[name] = disasm.Lines(code)
	}
	return out, nil
}

// GetMainFunction resolves "main"'s ID, compiles it eagerly (spec calls
// for synchronous, not lazy, resolution of the entry point), and returns
// a callable handle carrying its declared arity.
func (t *Tracker) GetMainFunction() (*Handle, error) {
	return t.GetFunction("main")
}

// GetFunction resolves name's ID, compiles it eagerly, and returns a
// callable handle carrying its declared arity. Used directly by
// jitrepl, which invokes functions by name rather than always through
// main.
func (t *Tracker) GetFunction(name string) (*Handle, error) {
	id, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("jit: no function named %q", name)
	}
	if id < 0 {
		return nil, fmt.Errorf("jit: %q is a predefined external, not callable as an entry function", name)
	}
	addr, err := t.resolve(id)
	if err != nil {
		return nil, err
	}
	return &Handle{addr: addr, arity: len(t.prog.Functions[id].Params)}, nil
}
