// File: api/register.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Hardware register contract shared by register banks and the drivers that program them.

package api

// Register is a single 32-bit hardware register.
// Implementations must make Load and Store individually atomic.
type Register interface {
	Load() uint32
	Store(v uint32)
}

// Field describes a bit-field inside a Register.
type Field struct {
	Mask  uint32 // mask in register position
	Shift uint
}

// Get extracts the field value from reg.
func (f Field) Get(reg Register) uint32 {
	return (reg.Load() & f.Mask) >> f.Shift
}

// Set clears the field and writes value into it, leaving other bits untouched.
// Read-modify-write is not atomic; callers serialize access to the register.
func (f Field) Set(reg Register, value uint32) {
	v := reg.Load()
	v &^= f.Mask
	v |= (value << f.Shift) & f.Mask
	reg.Store(v)
}
