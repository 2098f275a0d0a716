package hart

import "testing"

func TestTimerInterruptDelivery(t *testing.T) {
	h := New(0x1000)
	bus := newTestBus()
	h.CSR[csrMtvec] = 0x2000
	h.CSR[csrMie] = mipMTIP
	h.CSR[csrMstatus] = mstatusMIE

	h.SetTimerIRQ(true)
	h.Step(bus)

	if h.CSR[csrMcause] != 1<<31|7 {
		t.Errorf("mcause = %#x, want %#x", h.CSR[csrMcause], uint32(1<<31|7))
	}
	if h.CSR[csrMepc] != 0x1000 {
		t.Errorf("mepc = %#x, want %#x", h.CSR[csrMepc], 0x1000)
	}
	if h.PC != 0x2000 {
		t.Errorf("pc = %#x, want mtvec base %#x", h.PC, 0x2000)
	}
	if h.Mode != ModeMachine {
		t.Errorf("mode = %d, want machine", h.Mode)
	}
	if h.CSR[csrMstatus]&mstatusMIE != 0 {
		t.Error("MIE still set after trap entry")
	}
	if h.CSR[csrMstatus]&mstatusMPIE == 0 {
		t.Error("MPIE not saved on trap entry")
	}
}

func TestTimerInterruptWakesWFI(t *testing.T) {
	h := New(0x1000)
	bus := newTestBus()
	h.CSR[csrMtvec] = 0x2000
	h.CSR[csrMie] = mipMTIP
	h.CSR[csrMstatus] = mstatusMIE
	h.WFI = true

	h.Step(bus) // nothing pending, stays parked
	if h.PC != 0x1000 {
		t.Fatalf("WFI hart advanced PC to %#x", h.PC)
	}

	h.SetTimerIRQ(true)
	h.Step(bus)
	if h.WFI {
		t.Error("pending timer interrupt did not clear WFI")
	}
	if h.PC != 0x2000 {
		t.Errorf("pc = %#x, want mtvec base %#x", h.PC, 0x2000)
	}
}

func TestVectoredInterruptDispatch(t *testing.T) {
	h := New(0x1000)
	bus := newTestBus()
	h.CSR[csrMtvec] = 0x2000 | 1 // vectored mode
	h.CSR[csrMie] = mipMTIP
	h.CSR[csrMstatus] = mstatusMIE

	h.SetTimerIRQ(true)
	h.Step(bus)
	if h.PC != 0x2000+4*7 {
		t.Errorf("pc = %#x, want base+4*cause %#x", h.PC, 0x2000+4*7)
	}
}

func TestEcallDelegatedToSupervisor(t *testing.T) {
	h := New(0)
	bus := newTestBus()
	h.Mode = ModeUser
	grantPMPAll(h)
	h.CSR[csrStvec] = 0x3000
	h.CSR[csrMedeleg] = 1 << uint(ExcEnvironmentCallFromUMode)
	bus.Store(0, 4, encodeI(opISys, 0, 0, 0, 0)) // ecall

	h.Step(bus)

	if h.Mode != ModeSupervisor {
		t.Fatalf("mode = %d, want supervisor", h.Mode)
	}
	if h.CSR[csrScause] != uint32(ExcEnvironmentCallFromUMode) {
		t.Errorf("scause = %#x, want %d", h.CSR[csrScause], ExcEnvironmentCallFromUMode)
	}
	if h.CSR[csrSepc] != 0 {
		t.Errorf("sepc = %#x, want 0", h.CSR[csrSepc])
	}
	if h.PC != 0x3000 {
		t.Errorf("pc = %#x, want stvec %#x", h.PC, 0x3000)
	}
}

func TestEcallNotDelegatedGoesToMachine(t *testing.T) {
	h := New(0)
	bus := newTestBus()
	h.Mode = ModeUser
	grantPMPAll(h)
	h.CSR[csrMtvec] = 0x2000
	bus.Store(0, 4, encodeI(opISys, 0, 0, 0, 0)) // ecall

	h.Step(bus)

	if h.Mode != ModeMachine {
		t.Fatalf("mode = %d, want machine", h.Mode)
	}
	if h.CSR[csrMcause] != uint32(ExcEnvironmentCallFromUMode) {
		t.Errorf("mcause = %#x, want %d", h.CSR[csrMcause], ExcEnvironmentCallFromUMode)
	}
	if h.CSR[csrMstatus]>>11&0b11 != ModeUser {
		t.Error("MPP does not record the interrupted mode")
	}
}

func TestMretRestoresMode(t *testing.T) {
	h := New(0)
	bus := newTestBus()
	h.CSR[csrMepc] = 0x4000
	// MPP=U, MPIE=1
	h.CSR[csrMstatus] = mstatusMPIE
	bus.Store(0, 4, 0x30200073) // mret

	h.Step(bus)

	if h.PC != 0x4000 {
		t.Errorf("pc = %#x, want mepc %#x", h.PC, 0x4000)
	}
	if h.Mode != ModeUser {
		t.Errorf("mode = %d, want user (from MPP)", h.Mode)
	}
	if h.CSR[csrMstatus]&mstatusMIE == 0 {
		t.Error("MIE not restored from MPIE")
	}
}

func TestMisalignedLoadRecordsTrapVal(t *testing.T) {
	h := New(0)
	bus := newTestBus()
	h.Reg[1] = 0x1001
	h.CSR[csrMtvec] = 0x2000
	bus.Store(0, 4, encodeI(opILoad, 0, 1, 0b010, 2)) // lw x2, 0(x1)

	h.Step(bus)

	if h.CSR[csrMcause] != uint32(ExcLoadAddrMisaligned) {
		t.Errorf("mcause = %#x, want load address misaligned", h.CSR[csrMcause])
	}
	if h.CSR[csrMtval] != 0x1001 {
		t.Errorf("mtval = %#x, want faulting address 0x1001", h.CSR[csrMtval])
	}
}
