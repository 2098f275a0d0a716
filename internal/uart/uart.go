/*
   uart: NS16550-compatible byte-serial console device.

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

// Package uart implements an NS16550-compatible byte-serial device: THR/RHR,
// IER/IIR, FCR, LCR and LSR over the bus's byte-wide access path, polling a
// Host collaborator once per tick.
package uart

import "fmt"

// Register offsets, relative to base.
const (
	regRHR = 0 // THR on write; DLL instead when LCR.DLAB is set
	regIER = 1 // DLH instead when LCR.DLAB is set
	regIIR = 2 // FCR on write
	regLCR = 3
	regLSR = 5
)

const lcrDLAB = 1 << 7

// IIR priority encodings: RX data available outranks THR empty.
const (
	iirNone = 0b0001
	iirTX   = 0b0010
	iirRX   = 0b0100
)

// Host is the external collaborator a Uart polls and writes through:
// non-blocking byte input, synchronous byte output.
type Host interface {
	PollByte() (byte, bool)
	PutByte(b byte)
}

// Uart is an NS16550-compatible device.
type Uart struct {
	base, length uint32
	host         Host

	dll, dlh byte
	rhr      byte
	ier      byte
	iir      byte
	fcr      byte
	lcr      byte
	lsr      byte

	bytesToRead  uint8
	thrInterrupt bool
	rhrInterrupt bool

	escapePending bool

	// EscapeRequested is latched once a host Ctrl-A followed by Ctrl-C is
	// seen; the outer driver loop polls it the same way it polls SYSCON's
	// Requested field.
	EscapeRequested bool
}

// New returns a Uart at the standard window (base 0x10000000, length
// 0x10), polling and writing bytes through host.
func New(base, length uint32, host Host) *Uart {
	return &Uart{base: base, length: length, host: host, lsr: 0x60}
}

func (u *Uart) Base() uint32 { return u.base }
func (u *Uart) Size() uint32 { return u.length }

// Tick pulls at most one byte from the host (non-blocking), stages it in
// RHR, and recomputes IIR: RX pending outranks TX-empty outranks none. A
// host Ctrl-A (0x01) immediately followed by Ctrl-C (0x03) is recognized
// as an escape to terminate the emulator rather than delivered to the
// guest; Ctrl-A followed by anything else is delivered as a plain 0x01
// and the following byte is dropped, matching the escape's one-shot
// lookahead.
func (u *Uart) Tick() {
	if u.bytesToRead == 0 {
		if b, ok := u.host.PollByte(); ok {
			switch {
			case u.escapePending:
				u.escapePending = false
				if b == 3 {
					u.EscapeRequested = true
				} else {
					u.rhr = 1
					u.bytesToRead = 1
				}
			case b == 1:
				u.escapePending = true
			default:
				u.rhr = b
				u.bytesToRead = 1
			}
		}
	}
	if u.bytesToRead > 0 {
		u.rhrInterrupt = true
	}

	switch {
	case u.rhrInterrupt && u.ier&0b01 != 0:
		u.iir = iirRX
	case u.thrInterrupt && u.ier&0b10 != 0:
		u.iir = iirTX
	default:
		u.iir = iirNone
	}
}

func (u *Uart) Load(addr uint32, width int) (uint32, error) {
	if width != 1 {
		return 0, fmt.Errorf("uart: wide load at %#08x", addr)
	}
	switch addr - u.base {
	case regRHR:
		if u.lcr&lcrDLAB != 0 {
			return uint32(u.dll), nil
		}
		u.rhrInterrupt = false
		u.bytesToRead = 0
		return uint32(u.rhr), nil
	case regIER:
		if u.lcr&lcrDLAB != 0 {
			return uint32(u.dlh), nil
		}
		return uint32(u.ier), nil
	case regIIR:
		return uint32(u.iir), nil
	case regLCR:
		if !u.rhrInterrupt {
			u.thrInterrupt = false
		}
		return uint32(u.lcr), nil
	case regLSR:
		return uint32(u.lsr) | uint32(u.bytesToRead), nil
	default:
		return 0, nil
	}
}

func (u *Uart) Store(addr uint32, width int, val uint32) error {
	if width != 1 {
		return fmt.Errorf("uart: wide store at %#08x", addr)
	}
	b := byte(val)
	switch addr - u.base {
	case regRHR:
		if u.lcr&lcrDLAB != 0 {
			u.dll = b
		} else {
			u.host.PutByte(b)
			u.thrInterrupt = true
		}
	case regIER:
		if u.lcr&lcrDLAB != 0 {
			u.dlh = b
		} else {
			u.ier = b
		}
	case regIIR:
		u.fcr = b
	case regLCR:
		u.lcr = b
	default:
		// Other offsets (modem control/status) are not modeled.
	}
	return nil
}
