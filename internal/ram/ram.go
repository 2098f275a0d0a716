/*
   ram: flat byte-addressable backing store for the emulated DRAM region.

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

// Package ram implements the RAM device attached to the physical memory
// bus: a per-instance byte slice, so multiple systems never share state
// through a package-level storage array.
package ram

import (
	"encoding/binary"
	"fmt"
)

// RAM is a contiguous little-endian memory window.
type RAM struct {
	base  uint32
	bytes []byte
}

// New allocates a RAM window of size bytes starting at base.
func New(base, size uint32) *RAM {
	return &RAM{base: base, bytes: make([]byte, size)}
}

func (r *RAM) Base() uint32 { return r.base }
func (r *RAM) Size() uint32 { return uint32(len(r.bytes)) }

// LoadSegment copies data into the window at guest physical address addr,
// used by the ELF loader to place PT_LOAD segments.
func (r *RAM) LoadSegment(addr uint32, data []byte) error {
	off := addr - r.base
	if uint64(off)+uint64(len(data)) > uint64(len(r.bytes)) {
		return fmt.Errorf("ram: segment at %#08x (len %d) overflows window", addr, len(data))
	}
	copy(r.bytes[off:], data)
	return nil
}

func (r *RAM) Load(addr uint32, width int) (uint32, error) {
	off := addr - r.base
	if uint64(off)+uint64(width) > uint64(len(r.bytes)) {
		return 0, fmt.Errorf("ram: load at %#08x out of range", addr)
	}
	switch width {
	case 1:
		return uint32(r.bytes[off]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(r.bytes[off:])), nil
	case 4:
		return binary.LittleEndian.Uint32(r.bytes[off:]), nil
	default:
		return 0, fmt.Errorf("ram: unsupported width %d", width)
	}
}

func (r *RAM) Store(addr uint32, width int, val uint32) error {
	off := addr - r.base
	if uint64(off)+uint64(width) > uint64(len(r.bytes)) {
		return fmt.Errorf("ram: store at %#08x out of range", addr)
	}
	switch width {
	case 1:
		r.bytes[off] = byte(val)
	case 2:
		binary.LittleEndian.PutUint16(r.bytes[off:], uint16(val))
	case 4:
		binary.LittleEndian.PutUint32(r.bytes[off:], val)
	default:
		return fmt.Errorf("ram: unsupported width %d", width)
	}
	return nil
}
