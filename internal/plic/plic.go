/*
   plic: platform-level interrupt controller, single-context claim/complete.

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

// Package plic implements a single-context platform-level interrupt
// controller: pending/enabled bitmaps, edge latching, and claim/complete.
//
// Claim returns the highest-index pending-and-enabled source via a
// log2-style scan rather than a real priority scheme, and the priority
// threshold register is hardwired to 0. This matches the behavior of the
// original reference implementation this emulator is modeled on; it is a
// known restriction, not a bug fixed in this port (see DESIGN.md).
package plic

import (
	"fmt"
	"math/bits"
)

const (
	regPending        = 0x1000
	regEnabled        = 0x2080
	regThreshold      = 0x201000
	regClaimComplete  = 0x201004
)

type irqSetter interface {
	SetExternalIRQ(pending bool)
}

type Plic struct {
	base, length uint32
	irq          irqSetter

	active  uint32
	pending uint32
	enabled uint32
	masked  uint32
}

// New returns a PLIC at the standard window (base 0x0c000000, length
// 0x01000000).
func New(base, length uint32, irq irqSetter) *Plic {
	return &Plic{base: base, length: length, irq: irq}
}

func (p *Plic) Base() uint32 { return p.base }
func (p *Plic) Size() uint32 { return p.length }

// SetActive sets or clears an input source's level line; devices (e.g.
// the virtio transport) call this instead of touching mip directly.
func (p *Plic) SetActive(source uint32, level bool) {
	bit := uint32(1) << source
	if level {
		p.active |= bit
	} else {
		p.active &^= bit
	}
}

// Tick latches newly active, unmasked sources into pending, then masks
// them to suppress duplicate latching until completion, and drives SEIP.
func (p *Plic) Tick() {
	p.pending |= p.active &^ p.masked
	p.masked |= p.active
	p.irq.SetExternalIRQ(p.pending&p.enabled != 0)
}

func (p *Plic) Load(addr uint32, width int) (uint32, error) {
	if width != 4 {
		return 0, fmt.Errorf("plic: narrow load at %#08x", addr)
	}
	switch addr - p.base {
	case regPending:
		return p.pending, nil
	case regEnabled:
		return p.enabled, nil
	case regThreshold:
		return 0, nil
	case regClaimComplete:
		candidates := p.pending & p.enabled
		if candidates == 0 {
			return 0, nil
		}
		source := uint32(bits.Len32(candidates) - 1)
		p.pending &^= 1 << source
		return source, nil
	default:
		return 0, nil
	}
}

func (p *Plic) Store(addr uint32, width int, val uint32) error {
	if width != 4 {
		return fmt.Errorf("plic: narrow store at %#08x", addr)
	}
	switch addr - p.base {
	case regEnabled:
		p.enabled = val &^ 1 // source 0 does not exist
	case regClaimComplete:
		p.masked &^= 1 << val
	}
	return nil
}
