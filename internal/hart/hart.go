/*
   hart: state for a single 32-bit RISC-V hart (RV32I + M + A, M/S/U modes).

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

// Package hart implements the execution core of a single RV32IMA hart:
// instruction decode, the integer/multiply/atomic datapath, the CSR file
// with machine/supervisor semantics, PMP, the Sv32 MMU, and trap delivery.
package hart

import "fmt"

// Privilege modes, encoded the same way RISC-V encodes them in mstatus.MPP
// and CSR addresses.
const (
	ModeUser       = 0
	ModeSupervisor = 1
	ModeMachine    = 3
)

// Memory access kinds, used to select the right exception/permission check.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessExec
)

// Bus is the physical-memory side of the hart. It is a disjoint reference
// from hart state: no path holds both "the hart" and "the bus" combined
// into one cyclic structure. Widths are in bytes (1, 2, 4).
type Bus interface {
	Load(addr uint32, width int) (uint32, error)
	Store(addr uint32, width int, val uint32) error
}

// Reservation is the LR/SC reservation latch.
type Reservation struct {
	Addr  uint32
	Value uint32
	Valid bool
}

// Hart holds all per-core mutable state: no process-wide singleton backs
// this type, callers own an instance directly.
type Hart struct {
	PC   uint32
	Reg  [32]int32
	CSR  [4096]uint32
	Mode int

	Reservation Reservation

	// TrapVal is the last faulting address/value recorded by a failing
	// component, consumed by the trap engine when it delivers the
	// exception.
	TrapVal uint32

	WFI bool

	// Trace accumulates a human-readable description of the last
	// committed instruction when TraceEnable is set.
	TraceEnable bool
	trace       string
}

// New returns a hart with PC and sp initialized the way the ELF loader and
// boot protocol expect: PC at entry, sp (x2) at the conventional top of the
// initial stack region.
func New(entry uint32) *Hart {
	h := &Hart{PC: entry, Mode: ModeMachine}
	initSP := uint32(0xBFFFFFF0)
	h.Reg[2] = int32(initSP)
	return h
}

// LastTrace returns the trace string recorded for the most recently
// committed instruction, or "" if tracing is disabled.
func (h *Hart) LastTrace() string {
	if !h.TraceEnable {
		return ""
	}
	return h.trace
}

func (h *Hart) setTrace(format string, args ...any) {
	if h.TraceEnable {
		h.trace = fmt.Sprintf(format, args...)
	}
}

// SetTimerIRQ implements bus.IRQLines: it is how CLINT reports mtime >
// mtimecmp back to the hart without holding a direct reference to it.
func (h *Hart) SetTimerIRQ(pending bool) {
	h.setMIPBit(mipMTIP, pending)
	if pending {
		h.WFI = false
	}
}

// SetExternalIRQ implements bus.IRQLines for PLIC's SEIP line.
func (h *Hart) SetExternalIRQ(pending bool) {
	h.setMIPBit(mipSEIP, pending)
	if pending {
		h.WFI = false
	}
}

func (h *Hart) setMIPBit(bit uint32, set bool) {
	if set {
		h.CSR[csrMip] |= bit
	} else {
		h.CSR[csrMip] &^= bit
	}
	h.mirrorCSR()
}

// reg reads a register, respecting the wired-zero at x0.
func (h *Hart) reg(i uint32) int32 {
	if i == 0 {
		return 0
	}
	return h.Reg[i]
}

// setReg writes a register, then immediately re-zeroes x0 so any write to
// it never sticks. This mirrors the per-instruction "zero reg[0] once"
// policy rather than suppressing the write at every call site.
func (h *Hart) setReg(i uint32, v int32) {
	h.Reg[i] = v
	h.Reg[0] = 0
}
