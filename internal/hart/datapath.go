package hart

// exec dispatches a decoded instruction to its family handler. It returns
// sleep=true only for wfi. On exception, pc is left untouched; the trap
// engine is the only place that mutates pc/mstatus/mcause afterward.
func (h *Hart) exec(bus Bus, in instr) (sleep bool, exc Exception, ok bool) {
	switch in.family {
	case familyR:
		return h.execR(bus, in)
	case familyI:
		return h.execI(bus, in)
	case familyS:
		return h.execS(bus, in)
	case familyB:
		return h.execB(in)
	case familyU:
		return h.execU(in)
	case familyJ:
		return h.execJ(in)
	default:
		return false, ExcIllegalInstruction, false
	}
}

func (h *Hart) execR(bus Bus, in instr) (bool, Exception, bool) {
	if in.opcode == opR2Amo {
		return h.execAmo(bus, in)
	}

	a := h.reg(in.rs1)
	b := h.reg(in.rs2)
	var result int32

	switch {
	case in.funct7 == 0x01: // M extension
		switch in.funct3 {
		case 0b000: // mul
			result = int32(int64(a) * int64(b))
		case 0b001: // mulh
			result = int32((int64(a) * int64(b)) >> 32)
		case 0b010: // mulhsu
			result = int32((int64(a) * int64(uint32(b))) >> 32)
		case 0b011: // mulhu
			result = int32((int64(uint32(a)) * int64(uint32(b))) >> 32)
		case 0b100: // div
			switch {
			case b == 0:
				result = -1
			case a == -(1<<31) && b == -1:
				result = a
			default:
				result = a / b
			}
		case 0b101: // divu
			if b == 0 {
				result = -1
			} else {
				result = int32(uint32(a) / uint32(b))
			}
		case 0b110: // rem
			switch {
			case b == 0:
				result = a
			case a == -(1<<31) && b == -1:
				result = 0
			default:
				result = a % b
			}
		case 0b111: // remu
			if b == 0 {
				result = a
			} else {
				result = int32(uint32(a) % uint32(b))
			}
		}
	case in.funct7 == 0x20:
		switch in.funct3 {
		case 0b000: // sub
			result = int32(int64(a) - int64(b))
		case 0b101: // sra
			result = a >> (uint32(b) & 0x1f)
		}
	default: // funct7 == 0x00
		switch in.funct3 {
		case 0b000: // add
			result = int32(int64(a) + int64(b))
		case 0b001: // sll
			result = int32(uint32(a) << (uint32(b) & 0x1f))
		case 0b010: // slt
			result = boolInt32(a < b)
		case 0b011: // sltu
			result = boolInt32(uint32(a) < uint32(b))
		case 0b100: // xor
			result = a ^ b
		case 0b101: // srl
			result = int32(uint32(a) >> (uint32(b) & 0x1f))
		case 0b110: // or
			result = a | b
		case 0b111: // and
			result = a & b
		}
	}

	h.setReg(in.rd, result)
	h.PC += 4
	return false, 0, true
}

func boolInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (h *Hart) execI(bus Bus, in instr) (bool, Exception, bool) {
	switch in.opcode {
	case opILoad:
		return h.execLoad(bus, in)
	case opIJalr:
		tmpPC := h.PC + 4
		target := uint32(h.reg(in.rs1)+in.imm) &^ 1
		h.setReg(in.rd, int32(tmpPC))
		h.PC = target
		return false, 0, true
	case opIFenc:
		h.PC += 4
		return false, 0, true
	case opISys:
		return h.execSystem(in)
	default: // opIAlu
		return h.execAluImm(in)
	}
}

func (h *Hart) execAluImm(in instr) (bool, Exception, bool) {
	a := h.reg(in.rs1)
	imm := in.imm
	var result int32

	switch in.funct3 {
	case 0b000: // addi
		result = int32(int64(a) + int64(imm))
	case 0b010: // slti
		result = boolInt32(a < imm)
	case 0b011: // sltiu
		result = boolInt32(uint32(a) < uint32(imm))
	case 0b100: // xori
		result = a ^ imm
	case 0b110: // ori
		result = a | imm
	case 0b111: // andi
		result = a & imm
	case 0b001: // slli
		result = int32(uint32(a) << (uint32(imm) & 0x1f))
	case 0b101: // srli/srai
		if (uint32(imm)>>5)&0x7f == 0x20 {
			result = a >> (uint32(imm) & 0x1f)
		} else {
			result = int32(uint32(a) >> (uint32(imm) & 0x1f))
		}
	}
	h.setReg(in.rd, result)
	h.PC += 4
	return false, 0, true
}

func (h *Hart) execLoad(bus Bus, in instr) (bool, Exception, bool) {
	addr := uint32(h.reg(in.rs1) + in.imm)
	var width int
	var signExtend, isWord bool
	switch in.funct3 {
	case 0b000: // lb
		width, signExtend = 1, true
	case 0b001: // lh
		width, signExtend = 2, true
	case 0b010: // lw
		width, isWord = 4, true
	case 0b100: // lbu
		width = 1
	case 0b101: // lhu
		width = 2
	default:
		return false, ExcIllegalInstruction, false
	}

	v, exc, ok := h.VirtLoad(bus, addr, width)
	if !ok {
		return false, exc, false
	}

	var result int32
	switch {
	case isWord:
		result = int32(v)
	case signExtend && width == 1:
		result = int32(int8(v))
	case signExtend && width == 2:
		result = int32(int16(v))
	default:
		result = int32(v)
	}
	h.setReg(in.rd, result)
	h.PC += 4
	return false, 0, true
}

func (h *Hart) execS(bus Bus, in instr) (bool, Exception, bool) {
	addr := uint32(h.reg(in.rs1) + in.imm)
	val := uint32(h.reg(in.rs2))
	var width int
	switch in.funct3 {
	case 0b000:
		width = 1
	case 0b001:
		width = 2
	case 0b010:
		width = 4
	default:
		return false, ExcIllegalInstruction, false
	}
	exc, ok := h.VirtStore(bus, addr, width, val)
	if !ok {
		return false, exc, false
	}
	h.PC += 4
	return false, 0, true
}

func (h *Hart) execB(in instr) (bool, Exception, bool) {
	a := h.reg(in.rs1)
	b := h.reg(in.rs2)
	var taken bool
	switch in.funct3 {
	case 0b000: // beq
		taken = a == b
	case 0b001: // bne
		taken = a != b
	case 0b100: // blt
		taken = a < b
	case 0b101: // bge
		taken = a >= b
	case 0b110: // bltu
		taken = uint32(a) < uint32(b)
	case 0b111: // bgeu
		taken = uint32(a) >= uint32(b)
	default:
		return false, ExcIllegalInstruction, false
	}
	if taken {
		h.PC = uint32(int32(h.PC) + in.imm)
	} else {
		h.PC += 4
	}
	return false, 0, true
}

func (h *Hart) execU(in instr) (bool, Exception, bool) {
	switch in.opcode {
	case opULui:
		h.setReg(in.rd, in.imm)
	case opUAuip:
		h.setReg(in.rd, int32(int64(int32(h.PC))+int64(in.imm)))
	}
	h.PC += 4
	return false, 0, true
}

func (h *Hart) execJ(in instr) (bool, Exception, bool) {
	h.setReg(in.rd, int32(h.PC+4))
	h.PC = uint32(int32(h.PC) + in.imm)
	return false, 0, true
}
