package bus

import "testing"

type fakeDevice struct {
	base, size uint32
	ticked     int
	stored     uint32
}

func (d *fakeDevice) Base() uint32 { return d.base }
func (d *fakeDevice) Size() uint32 { return d.size }
func (d *fakeDevice) Load(addr uint32, width int) (uint32, error) {
	return addr - d.base, nil
}
func (d *fakeDevice) Store(addr uint32, width int, val uint32) error {
	d.stored = val
	return nil
}
func (d *fakeDevice) Tick() { d.ticked++ }

func TestAttachOrderWins(t *testing.T) {
	b := New()
	first := &fakeDevice{base: 0x1000, size: 0x100}
	second := &fakeDevice{base: 0x1000, size: 0x100}
	b.Attach(first)
	b.Attach(second)

	b.Store(0x1000, 4, 7)
	if first.stored != 7 {
		t.Error("store at an overlapping window did not reach the first-attached device")
	}
	if second.stored == 7 {
		t.Error("store reached the second-attached device; first-match-wins violated")
	}
}

func TestUnmappedAddress(t *testing.T) {
	b := New()
	b.Attach(&fakeDevice{base: 0x1000, size: 0x10})
	if _, err := b.Load(0x2000, 4); err == nil {
		t.Error("load at an unmapped address did not return an error")
	}
}

func TestTickCallsAttachedTicker(t *testing.T) {
	b := New()
	d := &fakeDevice{base: 0, size: 0x10}
	b.Attach(d)
	b.Tick()
	b.Tick()
	if d.ticked != 2 {
		t.Errorf("ticked = %d, want 2", d.ticked)
	}
}
