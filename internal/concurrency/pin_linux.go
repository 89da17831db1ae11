//go:build linux
// +build linux

// File: internal/concurrency/pin_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux CPU pinning for work-queue workers via sched_setaffinity.

package concurrency

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PinCurrentThread binds the calling OS thread to cpuID.
// The caller must hold runtime.LockOSThread for the pin to stick to the goroutine.
func PinCurrentThread(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("pin: sched_setaffinity cpu %d: %w", cpuID, err)
	}
	return nil
}
