package elfload

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// fakeRAM is a minimal RAM double recording every LoadSegment call.
type fakeRAM struct {
	segments map[uint32][]byte
}

func newFakeRAM() *fakeRAM { return &fakeRAM{segments: map[uint32][]byte{}} }

func (r *fakeRAM) LoadSegment(addr uint32, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.segments[addr] = cp
	return nil
}

// buildELF32 hand-assembles a minimal little-endian ELF32 RISC-V executable
// with one PT_LOAD segment per entry in segs (vaddr, file bytes, memsz).
func buildELF32(t *testing.T, entry uint32, segs [][3]any) []byte {
	t.Helper()
	const ehsize, phentsize = 52, 32
	phoff := uint32(ehsize)
	dataOff := phoff + phentsize*uint32(len(segs))

	var blob []byte
	offsets := make([]uint32, len(segs))
	cur := dataOff
	for i, s := range segs {
		data := s[1].([]byte)
		offsets[i] = cur
		blob = append(blob, data...)
		cur += uint32(len(data))
	}

	ehdr := make([]byte, ehsize)
	copy(ehdr[0:4], []byte{0x7f, 'E', 'L', 'F'})
	ehdr[4] = 1 // ELFCLASS32
	ehdr[5] = 1 // ELFDATA2LSB
	ehdr[6] = 1 // EV_CURRENT
	binary.LittleEndian.PutUint16(ehdr[16:], 2)      // e_type ET_EXEC
	binary.LittleEndian.PutUint16(ehdr[18:], 0xf3)   // e_machine EM_RISCV
	binary.LittleEndian.PutUint32(ehdr[20:], 1)      // e_version
	binary.LittleEndian.PutUint32(ehdr[24:], entry)  // e_entry
	binary.LittleEndian.PutUint32(ehdr[28:], phoff)   // e_phoff
	binary.LittleEndian.PutUint16(ehdr[40:], ehsize)
	binary.LittleEndian.PutUint16(ehdr[42:], phentsize)
	binary.LittleEndian.PutUint16(ehdr[44:], uint16(len(segs)))

	var phdrs []byte
	for i, s := range segs {
		vaddr := s[0].(uint32)
		data := s[1].([]byte)
		memsz := s[2].(uint32)
		ph := make([]byte, phentsize)
		binary.LittleEndian.PutUint32(ph[0:], 1) // PT_LOAD
		binary.LittleEndian.PutUint32(ph[4:], offsets[i])
		binary.LittleEndian.PutUint32(ph[8:], vaddr)
		binary.LittleEndian.PutUint32(ph[12:], vaddr)
		binary.LittleEndian.PutUint32(ph[16:], uint32(len(data)))
		binary.LittleEndian.PutUint32(ph[20:], memsz)
		binary.LittleEndian.PutUint32(ph[24:], 7) // RWX
		binary.LittleEndian.PutUint32(ph[28:], 4)
		phdrs = append(phdrs, ph...)
	}

	out := append(ehdr, phdrs...)
	out = append(out, blob...)
	return out
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernel.elf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCopiesSegmentsAndReturnsEntry(t *testing.T) {
	text := []byte{0x13, 0x00, 0x00, 0x00} // addi x0, x0, 0
	elf := buildELF32(t, 0x80000000, [][3]any{
		{uint32(0x80000000), text, uint32(len(text))},
	})
	path := writeTemp(t, elf)

	ram := newFakeRAM()
	entry, err := Load(path, ram)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry != 0x80000000 {
		t.Errorf("entry = %#x, want %#x", entry, 0x80000000)
	}
	got, ok := ram.segments[0x80000000]
	if !ok {
		t.Fatal("text segment was not loaded")
	}
	if string(got) != string(text) {
		t.Errorf("segment bytes = %v, want %v", got, text)
	}
}

func TestLoadZeroFillsBssTail(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	elf := buildELF32(t, 0x80000000, [][3]any{
		{uint32(0x80001000), data, uint32(16)},
	})
	path := writeTemp(t, elf)

	ram := newFakeRAM()
	if _, err := Load(path, ram); err != nil {
		t.Fatalf("Load: %v", err)
	}
	bss, ok := ram.segments[0x80001000+uint32(len(data))]
	if !ok {
		t.Fatal("bss tail was not loaded")
	}
	if len(bss) != 12 {
		t.Errorf("bss tail length = %d, want 12", len(bss))
	}
	for _, b := range bss {
		if b != 0 {
			t.Fatal("bss tail was not zero-filled")
		}
	}
}

func TestLoadRejectsWrongMachine(t *testing.T) {
	elf := buildELF32(t, 0, [][3]any{{uint32(0), []byte{0}, uint32(1)}})
	elf[18] = 0x3e // EM_X86_64
	elf[19] = 0x00
	path := writeTemp(t, elf)

	if _, err := Load(path, newFakeRAM()); err == nil {
		t.Error("Load accepted a non-RISC-V ELF image")
	}
}
