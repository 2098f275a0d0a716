package hart

// Step advances the hart by exactly one unit of work: either delivering a
// pending interrupt, staying parked in WFI, or fetching/decoding/executing
// one instruction. It mirrors §5's ordering guarantee (decode → memory
// read → register/CSR write → memory write → PC update) by delegating to
// exec, which performs that sequence per family.
func (h *Hart) Step(bus Bus) {
	if h.CheckInterrupt() {
		return
	}
	if h.WFI {
		return
	}

	pc := h.PC
	word, exc, ok := h.FetchInstruction(bus, pc)
	if !ok {
		h.setTrace("pc=%08x fetch fault", pc)
		h.Reg[0] = 0
		h.RaiseException(exc)
		return
	}

	in := decode(word)
	_, exc, ok = h.exec(bus, in)
	// reg[0] is re-zeroed once per committed instruction here, rather than
	// suppressed at every write site.
	h.Reg[0] = 0
	if !ok {
		h.setTrace("pc=%08x instr=%08x trap=%s", pc, word, exc)
		h.RaiseException(exc)
		return
	}

	h.setTrace("pc=%08x instr=%08x", pc, word)
	h.CountStep()
}
