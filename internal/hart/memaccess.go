package hart

// virtAccess performs the full virtual-address access pipeline shared by
// loads, stores and instruction fetch: alignment check, Sv32 translation
// (a no-op identity map when disabled), then a PMP check on the resulting
// physical address.
func (h *Hart) virtAccess(bus Bus, va uint32, width int, kind AccessKind) (uint32, Exception, bool) {
	if width > 1 && va%uint32(width) != 0 {
		h.TrapVal = va
		return 0, misalignedFor(kind), false
	}

	pa, exc, ok := h.Translate(bus, va, kind)
	if !ok {
		return 0, exc, false
	}

	perm := h.CheckPMP(pa, uint32(width))
	granted := false
	switch kind {
	case AccessRead:
		granted = perm.R
	case AccessWrite:
		granted = perm.W
	case AccessExec:
		granted = perm.X
	}
	if !granted {
		h.TrapVal = va
		return 0, accessFaultFor(kind), false
	}
	return pa, 0, true
}

// FetchInstruction reads the 32-bit word at the virtual PC.
func (h *Hart) FetchInstruction(bus Bus, va uint32) (uint32, Exception, bool) {
	pa, exc, ok := h.virtAccess(bus, va, 4, AccessExec)
	if !ok {
		return 0, exc, false
	}
	word, err := bus.Load(pa, 4)
	if err != nil {
		h.TrapVal = va
		return 0, ExcInstructionAccessFault, false
	}
	return word, 0, true
}

// VirtLoad reads width bytes (1, 2 or 4) from a virtual address.
func (h *Hart) VirtLoad(bus Bus, va uint32, width int) (uint32, Exception, bool) {
	pa, exc, ok := h.virtAccess(bus, va, width, AccessRead)
	if !ok {
		return 0, exc, false
	}
	v, err := bus.Load(pa, width)
	if err != nil {
		h.TrapVal = va
		return 0, ExcLoadAccessFault, false
	}
	return v, 0, true
}

// VirtStore writes width bytes (1, 2 or 4) to a virtual address.
func (h *Hart) VirtStore(bus Bus, va uint32, width int, value uint32) (Exception, bool) {
	pa, exc, ok := h.virtAccess(bus, va, width, AccessWrite)
	if !ok {
		return exc, false
	}
	if err := bus.Store(pa, width, value); err != nil {
		h.TrapVal = va
		return ExcStoreAMOAccessFault, false
	}
	return 0, true
}
