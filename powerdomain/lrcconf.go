// File: powerdomain/lrcconf.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Layout of the local-resource configuration block that owns the main power domain.

package powerdomain

import "github.com/momentics/hioload-clk/api"

const (
	// LRCConfPowerOnOffset is the POWERON register offset inside the LRCCONF block.
	LRCConfPowerOnOffset = 0x010
	// LRCConfSize is the mapped size of the LRCCONF block.
	LRCConfSize = 0x1000
)

// PowerOnMain is the MAIN field of the POWERON register.
var PowerOnMain = api.Field{Mask: 1 << 0, Shift: 0}

// NewMainDomain returns the main power domain driven by the POWERON register.
func NewMainDomain(powerOn api.Register, opts ...Option) *Domain {
	return NewDomain("main", powerOn, PowerOnMain, opts...)
}
