/*
   syscon: single-register power-off/reboot control device.

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

// Package syscon implements the QEMU-virt-style power management register:
// a single 32-bit write at offset 0 requests power-off (1) or reboot (2).
package syscon

const (
	ValuePoweroff = 1
	ValueReboot   = 2
)

// Syscon is a one-register device. Requested latches the last write so
// the outer driver loop can observe and act on it after each Store call.
type Syscon struct {
	base, length uint32
	Requested    uint32
}

// New returns a SYSCON device at the standard window (base 0x01c00000,
// length 0x1000).
func New(base, length uint32) *Syscon {
	return &Syscon{base: base, length: length}
}

func (s *Syscon) Base() uint32 { return s.base }
func (s *Syscon) Size() uint32 { return s.length }

func (s *Syscon) Load(addr uint32, width int) (uint32, error) {
	return 0, nil
}

func (s *Syscon) Store(addr uint32, width int, val uint32) error {
	if addr-s.base == 0 {
		s.Requested = val
	}
	return nil
}
