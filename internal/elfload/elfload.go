/*
   elfload: little-endian ELF32 RISC-V program image loader.

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

// Package elfload loads a little-endian ELF32 RISC-V program image into
// RAM: each PT_LOAD segment is copied to its (physical-as-virtual) segment
// address. This is an external collaborator to the core: it only needs a
// place to deposit bytes, expressed as the small RAM interface below
// rather than a dependency on internal/ram.
package elfload

import (
	"debug/elf"
	"fmt"
)

// RAM is the subset of ram.RAM this loader needs.
type RAM interface {
	LoadSegment(addr uint32, data []byte) error
}

// Load opens the ELF file at path, verifies it is a little-endian 32-bit
// RISC-V image, copies every PT_LOAD segment (including its zero-filled
// bss tail) into ram, and returns the entry point for the initial PC.
func Load(path string, ram RAM) (uint32, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("elfload: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return 0, fmt.Errorf("elfload: %s is not a 32-bit ELF image", path)
	}
	if f.Data != elf.ELFDATA2LSB {
		return 0, fmt.Errorf("elfload: %s is not little-endian", path)
	}
	if f.Machine != elf.EM_RISCV {
		return 0, fmt.Errorf("elfload: %s is not a RISC-V image", path)
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return 0, fmt.Errorf("elfload: reading segment at %#08x: %w", prog.Vaddr, err)
		}
		if err := ram.LoadSegment(uint32(prog.Vaddr), data); err != nil {
			return 0, fmt.Errorf("elfload: %w", err)
		}
		if prog.Memsz > prog.Filesz {
			bssLen := prog.Memsz - prog.Filesz
			bssAddr := uint32(prog.Vaddr + prog.Filesz)
			if err := ram.LoadSegment(bssAddr, make([]byte, bssLen)); err != nil {
				return 0, fmt.Errorf("elfload: %w", err)
			}
		}
	}

	return uint32(f.Entry), nil
}
