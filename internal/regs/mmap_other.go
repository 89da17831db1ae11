//go:build !linux
// +build !linux

// File: internal/regs/mmap_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package regs

import "github.com/momentics/hioload-clk/api"

// MapBank is only available on Linux.
func MapBank(path string, base int64, size int) (*Bank, error) {
	return nil, api.ErrNotSupported
}
