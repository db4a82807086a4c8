// SPDX-License-Identifier: Apache-2.0

// Package externals registers the predefined host functions a compiled
// program may call: cool, print_num, println_num, print_char,
// println_char, and read_num. Each is assembled once, at registry
// construction, into its own small RWX region using the same encoder
// the function emitter uses for user code, and talks to the kernel
// directly via the `write`/`read` syscalls rather than through a Go
// function pointer — see DESIGN.md for why a bound Go closure cannot
// serve as a C-ABI-callable address here.
package externals

import (
	"flint/internal/abi"
	"flint/internal/memory"
)

// Signature describes one predefined external for arity checking.
type Signature struct {
	Name  string
	Arity int
}

// Bound is a signature together with the address of its assembled stub.
type Bound struct {
	Signature
	Addr uintptr
}

// Registry owns the executable regions backing every predefined
// external for the lifetime of the process (or until Release is
// called); addresses handed out from it remain valid until then.
type Registry struct {
	regions []*memory.Region
	bound   []Bound
}

// Signatures lists every predefined external's name and arity, used by
// the semantic checker to validate call arity against declarations.
func Signatures() []Signature {
	return []Signature{
		{"cool", 0},
		{"print_num", 1},
		{"println_num", 1},
		{"print_char", 1},
		{"println_char", 1},
		{"read_num", 0},
	}
}

// New assembles every predefined external and returns a registry of
// their live addresses, in the same order as Signatures.
func New(conv abi.Convention) (*Registry, error) {
	r := &Registry{}
	builders := map[string]func(abi.Convention) []byte{
		"cool":         buildCool,
		"print_num":    buildPrintNum,
		"println_num":  buildPrintlnNum,
		"print_char":   buildPrintChar,
		"println_char": buildPrintlnChar,
		"read_num":     buildReadNum,
	}
	for _, sig := range Signatures() {
		code := builders[sig.Name](conv)
		region, err := memory.New(len(code))
		if err != nil {
			r.Release()
			return nil, err
		}
		if err := region.Write(code); err != nil {
			r.Release()
			return nil, err
		}
		r.regions = append(r.regions, region)
		r.bound = append(r.bound, Bound{Signature: sig, Addr: region.Addr()})
	}
	return r, nil
}

// Bound returns every predefined external's resolved address, in
// Signatures order.
func (r *Registry) Bound() []Bound { return r.bound }

// Release frees every stub's executable region. Addresses obtained from
// this registry are invalid afterward.
func (r *Registry) Release() {
	for _, region := range r.regions {
		_ = region.Release()
	}
	r.regions = nil
}
