package hart

// execSystem handles the opcode-1110011 instructions that are not Zicsr:
// ecall, ebreak, mret, sret, wfi and sfence.vma, selected by the raw
// immediate bits rather than the sign-extended decoded immediate (several
// of these encodings would otherwise read as negative).
func (h *Hart) execSystem(in instr) (bool, Exception, bool) {
	if in.funct3 != 0 {
		return h.execZicsr(in)
	}

	imm12 := (in.raw >> 20) & 0xfff
	funct7 := imm12 >> 5

	switch {
	case imm12 == 0: // ecall
		return false, ecallFor(h.Mode), false
	case imm12 == 1: // ebreak
		return false, ExcBreakpoint, false
	case imm12 == 0x302: // mret
		h.execMret()
		return false, 0, true
	case imm12 == 0x102: // sret
		h.execSret()
		return false, 0, true
	case imm12 == 0x105: // wfi
		h.WFI = true
		h.PC += 4
		return true, 0, true
	case funct7 == 0b0001001: // sfence.vma
		h.PC += 4
		return false, 0, true
	default:
		return false, ExcIllegalInstruction, false
	}
}

func (h *Hart) execMret() {
	mstatus := h.CSR[csrMstatus]
	mpp := int((mstatus >> 11) & 0b11)
	mpie := mstatus & mstatusMPIE

	newStatus := mstatus
	if mpie != 0 {
		newStatus |= mstatusMIE
	} else {
		newStatus &^= mstatusMIE
	}
	newStatus |= mstatusMPIE
	newStatus &^= mstatusMPP0 | mstatusMPP1
	if mpp < ModeMachine {
		newStatus &^= mstatusMPRV
	}

	h.CSR[csrMstatus] = newStatus
	h.Mode = mpp
	h.PC = h.CSR[csrMepc]
	h.mirrorCSR()
}

func (h *Hart) execSret() {
	mstatus := h.CSR[csrMstatus]
	spp := int((mstatus >> 8) & 1)
	spie := mstatus & mstatusSPIE

	newStatus := mstatus
	if spie != 0 {
		newStatus |= mstatusSIE
	} else {
		newStatus &^= mstatusSIE
	}
	newStatus |= mstatusSPIE
	newStatus &^= mstatusSPP
	newStatus &^= mstatusMPRV // SPP is always U or S, always below M

	h.CSR[csrMstatus] = newStatus
	h.Mode = spp
	h.PC = h.CSR[csrSepc]
	h.mirrorCSR()
}

// execZicsr handles csrrw/s/c and their immediate forms.
func (h *Hart) execZicsr(in instr) (bool, Exception, bool) {
	addr := (in.raw >> 20) & 0xfff

	switch in.funct3 {
	case 0b001, 0b101: // csrrw, csrrwi
		var writeVal uint32
		if in.funct3 == 0b001 {
			writeVal = uint32(h.reg(in.rs1))
		} else {
			writeVal = in.rs1
		}
		if in.rd != 0 {
			old, exc, ok := h.ReadCSR(addr)
			if !ok {
				return false, exc, false
			}
			h.setReg(in.rd, int32(old))
		} else if _, exc, ok := h.ReadCSR(addr); !ok {
			return false, exc, false
		}
		if exc, ok := h.WriteCSR(addr, writeVal); !ok {
			return false, exc, false
		}

	case 0b010, 0b011, 0b110, 0b111: // csrrs/csrrc/csrrsi/csrrci
		var src uint32
		if in.funct3 == 0b010 || in.funct3 == 0b011 {
			src = uint32(h.reg(in.rs1))
		} else {
			src = in.rs1
		}
		old, exc, ok := h.ReadCSR(addr)
		if !ok {
			return false, exc, false
		}
		h.setReg(in.rd, int32(old))

		if in.rs1 != 0 {
			var newVal uint32
			if in.funct3 == 0b010 || in.funct3 == 0b110 {
				newVal = old | src
			} else {
				newVal = old &^ src
			}
			if exc, ok := h.WriteCSR(addr, newVal); !ok {
				return false, exc, false
			}
		}

	default:
		return false, ExcIllegalInstruction, false
	}

	h.PC += 4
	return false, 0, true
}
