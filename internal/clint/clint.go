/*
   clint: core-local interruptor, machine timer (mtime/mtimecmp).

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package clint implements the machine timer device: mtime/mtimecmp as
// 64-bit values split across two 32-bit halves, driving mip.MTIP through
// the bus.IRQLines callback rather than a direct hart reference.
package clint

import "fmt"

const (
	regMtimeCmpLo = 0x4000
	regMtimeCmpHi = 0x4004
	regMtimeLo    = 0xbff8
	regMtimeHi    = 0xbffc
)

type Clint struct {
	base, length uint32
	irq          irqSetter

	mtime    uint64
	mtimecmp uint64
}

type irqSetter interface {
	SetTimerIRQ(pending bool)
}

// New returns a CLINT at the standard window (base 0x02000000, length
// 0x000c0000), reporting timer interrupts through irq.
func New(base, length uint32, irq irqSetter) *Clint {
	return &Clint{base: base, length: length, irq: irq, mtimecmp: ^uint64(0)}
}

func (c *Clint) Base() uint32 { return c.base }
func (c *Clint) Size() uint32 { return c.length }

// Mtime returns the current 64-bit mtime, for the hart's time/timeh CSR
// shadow.
func (c *Clint) Mtime() uint64 { return c.mtime }

// AdvanceMtime lets the outer driver loop advance the free-running timer
// by a host-measured interval, independent of guest register writes.
func (c *Clint) AdvanceMtime(delta uint64) {
	c.mtime += delta
}

// Tick re-evaluates mtime against mtimecmp and asserts/clears MTIP
// accordingly. mtime itself is not advanced here; it changes only through
// register writes or AdvanceMtime.
func (c *Clint) Tick() {
	c.irq.SetTimerIRQ(c.mtime > c.mtimecmp)
}

func (c *Clint) Load(addr uint32, width int) (uint32, error) {
	if width != 4 {
		return 0, fmt.Errorf("clint: narrow load at %#08x", addr)
	}
	switch addr - c.base {
	case regMtimeCmpLo:
		return uint32(c.mtimecmp), nil
	case regMtimeCmpHi:
		return uint32(c.mtimecmp >> 32), nil
	case regMtimeLo:
		return uint32(c.mtime), nil
	case regMtimeHi:
		return uint32(c.mtime >> 32), nil
	default:
		return 0, nil
	}
}

func (c *Clint) Store(addr uint32, width int, val uint32) error {
	if width != 4 {
		return fmt.Errorf("clint: narrow store at %#08x", addr)
	}
	switch addr - c.base {
	case regMtimeCmpLo:
		c.mtimecmp = (c.mtimecmp &^ 0xffffffff) | uint64(val)
	case regMtimeCmpHi:
		c.mtimecmp = (c.mtimecmp & 0xffffffff) | uint64(val)<<32
	case regMtimeLo:
		c.mtime = (c.mtime &^ 0xffffffff) | uint64(val)
	case regMtimeHi:
		c.mtime = (c.mtime & 0xffffffff) | uint64(val)<<32
	}
	return nil
}
