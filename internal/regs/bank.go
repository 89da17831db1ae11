// File: internal/regs/bank.go
// Package regs provides 32-bit register banks backed by memory or a mapped device.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package regs

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/momentics/hioload-clk/api"
)

// Bank is a window of 32-bit registers addressed by byte offset.
type Bank struct {
	mem   []byte
	unmap func([]byte) error
}

// NewBank allocates an in-memory bank of size bytes, used for simulation and tests.
func NewBank(size int) *Bank {
	words := make([]uint32, (size+3)/4)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*4)
	return &Bank{mem: mem}
}

// Size returns the bank size in bytes.
func (b *Bank) Size() int { return len(b.mem) }

// Reg returns the register at offset. The offset must be 4-byte aligned and inside the bank.
func (b *Bank) Reg(offset int) (api.Register, error) {
	if offset < 0 || offset%4 != 0 || offset+4 > len(b.mem) {
		return nil, api.NewError(api.ErrCodeInvalidArgument, fmt.Sprintf("regs: bad offset %#x", offset)).
			WithContext("size", len(b.mem))
	}
	return &register{p: (*uint32)(unsafe.Pointer(&b.mem[offset]))}, nil
}

// MustReg is Reg for offsets known to be valid at compile time.
func (b *Bank) MustReg(offset int) api.Register {
	r, err := b.Reg(offset)
	if err != nil {
		panic(err)
	}
	return r
}

// Close releases a mapped bank. It is a no-op for in-memory banks.
func (b *Bank) Close() error {
	if b.unmap == nil {
		return nil
	}
	err := b.unmap(b.mem)
	b.unmap = nil
	b.mem = nil
	return err
}

type register struct {
	p *uint32
}

func (r *register) Load() uint32   { return atomic.LoadUint32(r.p) }
func (r *register) Store(v uint32) { atomic.StoreUint32(r.p, v) }
