package hart

// Sv32 PTE bit layout.
const (
	pteV   = 1 << 0
	pteR   = 1 << 1
	pteW   = 1 << 2
	pteX   = 1 << 3
	pteU   = 1 << 4
	pteG   = 1 << 5
	pteA   = 1 << 6
	pteD   = 1 << 7
	pteppn0Shift = 10
	pteppn0Mask  = 0x3ff
	pteppn1Shift = 20
)

func pteIsPointer(pte uint32) bool {
	return pte&(pteR|pteX|pteW) == 0
}

func pteInvalid(pte uint32) bool {
	if pte&pteV == 0 {
		return true
	}
	if pte&pteR == 0 && pte&pteW != 0 {
		return true
	}
	return false
}

// Translate implements the two-level Sv32 walk described in §4.5: identity
// mapping when satp.MODE=0 or the hart is in M-mode, otherwise a walk
// through two levels of page tables with superpage and permission checks.
// Every failing path records TrapVal as the faulting virtual address
// before returning.
func (h *Hart) Translate(bus Bus, va uint32, kind AccessKind) (uint32, Exception, bool) {
	satp := h.CSR[csrSatp]
	mode := satp >> 31

	if mode == 0 || h.Mode == ModeMachine {
		return va, 0, true
	}

	ppn := satp & 0x3fffff
	vpn1 := (va >> 22) & 0x3ff
	vpn0 := (va >> 12) & 0x3ff
	offset := va & 0xfff

	a := ppn * 4096
	vpn := [2]uint32{vpn0, vpn1}

	var pte uint32
	i := 1
	for {
		ptAddr := a + vpn[i]*4
		if perm := h.CheckPMP(ptAddr, 4); !perm.R {
			h.TrapVal = va
			return 0, accessFaultFor(kind), false
		}
		word, err := bus.Load(ptAddr, 4)
		if err != nil {
			h.TrapVal = va
			return 0, accessFaultFor(kind), false
		}
		pte = word

		if pteInvalid(pte) {
			h.TrapVal = va
			return 0, pageFaultFor(kind), false
		}
		if pteIsPointer(pte) {
			i--
			if i < 0 {
				h.TrapVal = va
				return 0, pageFaultFor(kind), false
			}
			a = ((pte >> pteppn1Shift) << 10 | ((pte >> pteppn0Shift) & pteppn0Mask)) * 4096
			continue
		}
		break
	}

	ppn0 := (pte >> pteppn0Shift) & pteppn0Mask
	ppn1 := pte >> pteppn1Shift

	if i > 0 && ppn0 != 0 {
		// Misaligned superpage: a level-1 leaf must have ppn0 == 0.
		h.TrapVal = va
		return 0, pageFaultFor(kind), false
	}

	u := pte&pteU != 0
	if !u && h.Mode == ModeUser {
		h.TrapVal = va
		return 0, pageFaultFor(kind), false
	}
	if u && h.Mode == ModeSupervisor && h.CSR[csrMstatus]&mstatusSUM == 0 {
		h.TrapVal = va
		return 0, pageFaultFor(kind), false
	}

	r := pte&pteR != 0
	w := pte&pteW != 0
	x := pte&pteX != 0
	if h.CSR[csrMstatus]&mstatusMXR != 0 && x {
		r = true
	}

	var granted bool
	switch kind {
	case AccessRead:
		granted = r
	case AccessWrite:
		granted = w
	case AccessExec:
		granted = x
	}
	if !granted {
		h.TrapVal = va
		return 0, pageFaultFor(kind), false
	}

	var finalPPN0 uint32
	if i > 0 {
		finalPPN0 = vpn0
	} else {
		finalPPN0 = ppn0
	}
	pa := (ppn1 << 22) | (finalPPN0 << 12) | offset
	return pa, 0, true
}
