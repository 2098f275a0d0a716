package hart

import "testing"

// grantPMPAll configures PMP entry 0 as a TOR region covering the whole
// test address range with RWX, so S/U-mode accesses are not blocked by the
// no-match default.
func grantPMPAll(h *Hart) {
	h.CSR[csrPmpaddr0] = 0x3fffffff
	h.CSR[csrPmpcfg0] = pmpCfgR | pmpCfgW | pmpCfgX | pmpTOR<<3
}

func TestSv32BareIsIdentity(t *testing.T) {
	h := New(0)
	h.Mode = ModeSupervisor
	bus := newTestBus()

	pa, _, ok := h.Translate(bus, 0x80001000, AccessRead)
	if !ok {
		t.Fatal("bare-mode translation faulted")
	}
	if pa != 0x80001000 {
		t.Errorf("pa = %#x, want identity %#x", pa, 0x80001000)
	}
}

func TestSv32TwoLevelWalk(t *testing.T) {
	h := New(0)
	h.Mode = ModeSupervisor
	grantPMPAll(h)
	bus := newTestBus()

	// Root table at 0x10000, second level at 0x11000, leaf maps to
	// physical page 0x20000.
	h.CSR[csrSatp] = 1<<31 | 0x10
	// vpn1=1 points at the second-level table; vpn0=2 is the leaf.
	bus.Store(0x10000+1*4, 4, 0x11<<10|pteV)
	bus.Store(0x11000+2*4, 4, 0x20<<10|pteV|pteR|pteW|pteX)

	va := uint32(1<<22 | 2<<12 | 0x34)
	pa, _, ok := h.Translate(bus, va, AccessRead)
	if !ok {
		t.Fatal("two-level walk faulted")
	}
	if pa != 0x20034 {
		t.Errorf("pa = %#x, want %#x", pa, 0x20034)
	}
}

func TestSv32SuperpageTranslation(t *testing.T) {
	h := New(0)
	h.Mode = ModeSupervisor
	grantPMPAll(h)
	bus := newTestBus()

	// Level-1 leaf with ppn0=0: a 4 MiB superpage whose low 22 bits come
	// straight from the virtual address.
	h.CSR[csrSatp] = 1<<31 | 0x10
	bus.Store(0x10000+3*4, 4, uint32(5)<<20|pteV|pteR|pteW)

	va := uint32(3<<22 | 7<<12 | 0x10)
	pa, _, ok := h.Translate(bus, va, AccessRead)
	if !ok {
		t.Fatal("superpage walk faulted")
	}
	want := uint32(5<<22 | 7<<12 | 0x10)
	if pa != want {
		t.Errorf("pa = %#x, want %#x", pa, want)
	}
}

func TestSv32MisalignedSuperpage(t *testing.T) {
	h := New(0)
	h.Mode = ModeSupervisor
	grantPMPAll(h)
	bus := newTestBus()

	// A level-1 leaf with ppn0 != 0 is a misaligned superpage.
	h.CSR[csrSatp] = 1<<31 | 0x10
	bus.Store(0x10000+3*4, 4, uint32(5)<<20|uint32(1)<<10|pteV|pteR)

	_, exc, ok := h.Translate(bus, 3<<22, AccessRead)
	if ok {
		t.Fatal("misaligned superpage translated")
	}
	if exc != ExcLoadPageFault {
		t.Errorf("exception = %v, want load page fault", exc)
	}
}

func TestSv32UserPageSupervisorSUM(t *testing.T) {
	h := New(0)
	h.Mode = ModeSupervisor
	grantPMPAll(h)
	bus := newTestBus()

	h.CSR[csrSatp] = 1<<31 | 0x10
	bus.Store(0x10000+0*4, 4, 0x11<<10|pteV)
	bus.Store(0x11000+0*4, 4, 0x20<<10|pteV|pteR|pteU)

	// S-mode access to a U page faults without SUM, succeeds with it.
	if _, _, ok := h.Translate(bus, 0, AccessRead); ok {
		t.Error("S-mode read of a U page without SUM did not fault")
	}
	h.CSR[csrMstatus] |= mstatusSUM
	if _, _, ok := h.Translate(bus, 0, AccessRead); !ok {
		t.Error("S-mode read of a U page with SUM faulted")
	}
}

func TestSv32MXRMakesExecutableReadable(t *testing.T) {
	h := New(0)
	h.Mode = ModeSupervisor
	grantPMPAll(h)
	bus := newTestBus()

	h.CSR[csrSatp] = 1<<31 | 0x10
	bus.Store(0x10000+0*4, 4, 0x11<<10|pteV)
	bus.Store(0x11000+0*4, 4, 0x20<<10|pteV|pteX) // X-only leaf

	if _, _, ok := h.Translate(bus, 0, AccessRead); ok {
		t.Error("read of an X-only page without MXR did not fault")
	}
	h.CSR[csrMstatus] |= mstatusMXR
	if _, _, ok := h.Translate(bus, 0, AccessRead); !ok {
		t.Error("read of an X-only page with MXR faulted")
	}
}

func TestPMPNoEntries(t *testing.T) {
	h := New(0)

	h.Mode = ModeMachine
	if p := h.CheckPMP(0x80000000, 4); !p.R || !p.W || !p.X {
		t.Error("M-mode with no PMP entries did not get full RWX")
	}

	h.Mode = ModeSupervisor
	if p := h.CheckPMP(0x80000000, 4); p.R || p.W || p.X {
		t.Error("S-mode with no PMP entries got a permission")
	}
}

func TestPMPPartialOverlapFails(t *testing.T) {
	h := New(0)
	h.Mode = ModeMachine
	// NA4 region covering exactly [0x1000, 0x1004), locked so it applies
	// to M-mode too.
	h.CSR[csrPmpaddr0] = 0x1000 >> 2
	h.CSR[csrPmpcfg0] = pmpCfgLock | pmpCfgR | pmpCfgW | pmpCfgX | pmpNA4<<3

	// A 4-byte access straddling the region boundary partially overlaps.
	if p := h.CheckPMP(0x1002, 4); p.R || p.W || p.X {
		t.Error("partially overlapping access got a permission")
	}
}
