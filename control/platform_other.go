//go:build !linux
// +build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>

package control

import "runtime"

// RegisterPlatformProbes adds the CPU count probe.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterDebugProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
}
