package hart

// interruptBit returns the mip/mie bit for a given interrupt cause code.
func interruptBit(code uint32) uint32 {
	switch code {
	case 3:
		return mipMSIP
	case 7:
		return mipMTIP
	case 11:
		return mipMEIP
	case 1:
		return mipSSIP
	case 5:
		return mipSTIP
	case 9:
		return mipSEIP
	default:
		return 0
	}
}

// interruptPriority lists cause codes from highest to lowest priority, per
// the standard RISC-V privileged spec ordering.
var interruptPriority = []uint32{11, 3, 7, 9, 1, 5}

// pendingInterrupt returns the highest-priority interrupt that is both
// pending and enabled, honoring mstatus.MIE/SIE and delegation.
func (h *Hart) pendingInterrupt() (uint32, bool) {
	pending := h.CSR[csrMip] & h.CSR[csrMie]
	if pending == 0 {
		return 0, false
	}
	for _, code := range interruptPriority {
		bit := interruptBit(code)
		if pending&bit == 0 {
			continue
		}
		delegated := h.CSR[csrMideleg]&bit != 0
		if delegated && h.Mode <= ModeSupervisor {
			if h.Mode == ModeSupervisor && h.CSR[csrMstatus]&mstatusSIE == 0 {
				continue
			}
		} else if h.CSR[csrMstatus]&mstatusMIE == 0 && h.Mode == ModeMachine {
			continue
		}
		return code, true
	}
	return 0, false
}

// CheckInterrupt delivers the highest-priority pending, enabled interrupt
// if one exists, clearing WFI. Called by the outer step loop before every
// fetch, per §4.11.
func (h *Hart) CheckInterrupt() bool {
	code, ok := h.pendingInterrupt()
	if !ok {
		return false
	}
	h.WFI = false
	h.deliver(code, true, 0)
	return true
}

// RaiseException delivers a synchronous exception with the recorded
// TrapVal as mtval/stval.
func (h *Hart) RaiseException(exc Exception) {
	h.deliver(uint32(exc), false, h.TrapVal)
}

// deliver implements §4.11: decide M vs S delegation, then save/jump per
// the target mode's trap registers.
func (h *Hart) deliver(code uint32, isInterrupt bool, val uint32) {
	toSupervisor := false
	if h.Mode <= ModeSupervisor {
		if isInterrupt {
			toSupervisor = h.CSR[csrMideleg]&interruptBit(code) != 0
		} else {
			toSupervisor = h.CSR[csrMedeleg]&(1<<code) != 0
		}
	}

	cause := code
	if isInterrupt {
		cause |= 1 << 31
	}

	if toSupervisor {
		h.deliverSupervisor(cause, val)
	} else {
		h.deliverMachine(cause, val)
	}
}

func (h *Hart) deliverMachine(cause, val uint32) {
	mstatus := h.CSR[csrMstatus]
	curMIE := (mstatus >> 3) & 1

	mstatus &^= mstatusMPP0 | mstatusMPP1
	mstatus |= uint32(h.Mode) << 11
	if curMIE != 0 {
		mstatus |= mstatusMPIE
	} else {
		mstatus &^= mstatusMPIE
	}
	mstatus &^= mstatusMIE

	h.CSR[csrMstatus] = mstatus
	h.Mode = ModeMachine
	h.CSR[csrMepc] = h.PC
	h.CSR[csrMcause] = cause
	h.CSR[csrMtval] = val

	base := h.CSR[csrMtvec] &^ 0b11
	mode := h.CSR[csrMtvec] & 0b11
	if mode == 1 && cause&(1<<31) != 0 {
		base += 4 * (cause &^ (1 << 31))
	}
	h.PC = base
	h.mirrorCSR()
}

func (h *Hart) deliverSupervisor(cause, val uint32) {
	mstatus := h.CSR[csrMstatus]
	curSIE := (mstatus >> 1) & 1

	mstatus &^= mstatusSPP
	if h.Mode == ModeSupervisor {
		mstatus |= mstatusSPP
	}
	if curSIE != 0 {
		mstatus |= mstatusSPIE
	} else {
		mstatus &^= mstatusSPIE
	}
	mstatus &^= mstatusSIE

	h.CSR[csrMstatus] = mstatus
	h.Mode = ModeSupervisor
	h.CSR[csrSepc] = h.PC
	h.CSR[csrScause] = cause
	h.CSR[csrStval] = val

	base := h.CSR[csrStvec] &^ 0b11
	mode := h.CSR[csrStvec] & 0b11
	if mode == 1 && cause&(1<<31) != 0 {
		base += 4 * (cause &^ (1 << 31))
	}
	h.PC = base
	h.mirrorCSR()
}
