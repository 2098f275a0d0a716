package clint

import "testing"

type fakeIRQ struct {
	pending bool
	calls   int
}

func (f *fakeIRQ) SetTimerIRQ(pending bool) {
	f.pending = pending
	f.calls++
}

func TestTimerIRQFiresWhenMtimePassesCompare(t *testing.T) {
	irq := &fakeIRQ{}
	c := New(0x02000000, 0xc0000, irq)

	c.Store(0x02000000+regMtimeCmpLo, 4, 10)
	c.Store(0x02000000+regMtimeCmpHi, 4, 0)
	c.Tick()
	if irq.pending {
		t.Error("timer IRQ asserted before mtime reached mtimecmp")
	}

	c.AdvanceMtime(11)
	c.Tick()
	if !irq.pending {
		t.Error("timer IRQ not asserted once mtime passed mtimecmp")
	}
}

func TestMtimeRegisterSplit(t *testing.T) {
	irq := &fakeIRQ{}
	c := New(0x02000000, 0xc0000, irq)
	c.AdvanceMtime(0x100000001)

	lo, _ := c.Load(0x02000000+regMtimeLo, 4)
	hi, _ := c.Load(0x02000000+regMtimeHi, 4)
	if lo != 1 || hi != 1 {
		t.Errorf("mtime lo/hi = %#x/%#x, want 1/1", lo, hi)
	}
}

func TestNarrowAccessRejected(t *testing.T) {
	c := New(0x02000000, 0xc0000, &fakeIRQ{})
	if _, err := c.Load(0x02000000+regMtimeLo, 1); err == nil {
		t.Error("byte-wide load on CLINT did not return an error")
	}
}
