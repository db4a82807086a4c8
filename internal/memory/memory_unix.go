// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// New maps a fresh RWX region at least minSize bytes long, rounded up
// to a whole number of pages.
func New(minSize int) (*Region, error) {
	pageSize := unix.Getpagesize()
	size := roundUp(minSize, pageSize)
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("memory: mmap %d bytes: %w", size, err)
	}
	return &Region{
		addr:   uintptr(unsafePtr(data)),
		data:   data,
		length: size,
	}, nil
}

// Release unmaps the region. Any function pointer obtained from it
// becomes invalid the instant this returns.
func (r *Region) Release() error {
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("memory: munmap: %w", err)
	}
	return nil
}

func roundUp(n, multiple int) int {
	if n <= 0 {
		return multiple
	}
	return ((n + multiple - 1) / multiple) * multiple
}
