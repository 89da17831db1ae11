//go:build !linux
// +build !linux

// File: internal/concurrency/pin_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/hioload-clk/api"

// PinCurrentThread is unsupported outside Linux.
func PinCurrentThread(cpuID int) error {
	return api.ErrNotSupported
}
