//go:build linux
// +build linux

// File: internal/regs/mmap_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Maps a register block from a device file such as /dev/mem.

package regs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MapBank maps size bytes at physical offset base of path read/write and shared.
func MapBank(path string, base int64, size int) (*Bank, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("regs: open %s: %w", path, err)
	}
	defer f.Close()

	mem, err := unix.Mmap(int(f.Fd()), base, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("regs: mmap %s at %#x: %w", path, base, err)
	}
	return &Bank{mem: mem, unmap: unix.Munmap}, nil
}
