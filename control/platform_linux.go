//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes.

package control

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// RegisterPlatformProbes adds CPU count and process affinity probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterDebugProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterDebugProbe("platform.affinity", func() any {
		var set unix.CPUSet
		if err := unix.SchedGetaffinity(0, &set); err != nil {
			return err.Error()
		}
		return set.Count()
	})
}
