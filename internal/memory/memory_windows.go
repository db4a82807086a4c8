// SPDX-License-Identifier: Apache-2.0

//go:build windows

package memory

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const pageSize = 4096

// New reserves and commits a fresh RWX region at least minSize bytes
// long via VirtualAlloc, rounded up to a whole number of pages.
func New(minSize int) (*Region, error) {
	size := roundUp(minSize, pageSize)
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_COMMIT|windows.MEM_RESERVE,
		windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("memory: VirtualAlloc %d bytes: %w", size, err)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &Region{addr: addr, data: data, length: size}, nil
}

// Release frees the region via VirtualFree. Any function pointer
// obtained from it becomes invalid the instant this returns.
func (r *Region) Release() error {
	return windows.VirtualFree(r.addr, 0, windows.MEM_RELEASE)
}

func roundUp(n, multiple int) int {
	if n <= 0 {
		return multiple
	}
	return ((n + multiple - 1) / multiple) * multiple
}
