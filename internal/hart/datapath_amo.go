package hart

// execAmo implements the A extension: LR.W, SC.W and the AMO*.W family.
// Order of operations matches §4.2: read the old word, decide the new
// value, write it (unless suppressed), then commit the old value to rd.
func (h *Hart) execAmo(bus Bus, in instr) (bool, Exception, bool) {
	if in.funct3 != 0b010 {
		return false, ExcIllegalInstruction, false
	}
	addr := uint32(h.reg(in.rs1))
	if addr%4 != 0 {
		h.TrapVal = addr
		return false, ExcStoreAMOAddrMisaligned, false
	}

	old, exc, ok := h.VirtLoad(bus, addr, 4)
	if !ok {
		return false, exc, false
	}

	rs2 := uint32(h.reg(in.rs2))
	write := true
	var newVal uint32
	rdVal := int32(old)

	switch in.funct5 {
	case 0b00010: // LR.W
		h.Reservation = Reservation{Addr: addr, Value: old, Valid: true}
		write = false
	case 0b00011: // SC.W
		if h.Reservation.Valid && h.Reservation.Addr == addr && h.Reservation.Value == old {
			newVal = rs2
			rdVal = 0
		} else {
			write = false
			rdVal = 1
		}
		h.Reservation.Valid = false
	case 0b00001: // AMOSWAP
		newVal = rs2
	case 0b00000: // AMOADD
		newVal = old + rs2
	case 0b00100: // AMOXOR
		newVal = old ^ rs2
	case 0b01100: // AMOAND
		newVal = old & rs2
	case 0b01000: // AMOOR
		newVal = old | rs2
	case 0b10000: // AMOMIN
		if int32(old) < int32(rs2) {
			newVal = old
		} else {
			newVal = rs2
		}
	case 0b10100: // AMOMAX
		if int32(old) > int32(rs2) {
			newVal = old
		} else {
			newVal = rs2
		}
	case 0b11000: // AMOMINU
		if old < rs2 {
			newVal = old
		} else {
			newVal = rs2
		}
	case 0b11100: // AMOMAXU
		if old > rs2 {
			newVal = old
		} else {
			newVal = rs2
		}
	default:
		return false, ExcIllegalInstruction, false
	}

	if write {
		exc, ok := h.VirtStore(bus, addr, 4, newVal)
		if !ok {
			return false, exc, false
		}
	}
	h.setReg(in.rd, rdVal)
	h.PC += 4
	return false, 0, true
}
