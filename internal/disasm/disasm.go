/*
   disasm: RV32IMA instruction mnemonic formatter.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package disasm formats a raw RV32IMA instruction word into its assembler
// mnemonic using a table-driven approach: a map from the bits that select
// an operation to a name and an operand-shape tag, with one formatting
// routine per shape.
package disasm

import "fmt"

const (
	opLoad   = 0b0000011
	opFence  = 0b0001111
	opImm    = 0b0010011
	opAuipc  = 0b0010111
	opStore  = 0b0100011
	opReg    = 0b0110011
	opLui    = 0b0110111
	opBranch = 0b1100011
	opJalr   = 0b1100111
	opJal    = 0b1101111
	opSystem = 0b1110011
	opAmo    = 0b0101111
)

// operand shapes: which fields of the word the formatter consumes.
const (
	shapeR = iota
	shapeI
	shapeIShift // rd, rs1, shamt (low 5 bits of imm), no sign
	shapeS
	shapeB
	shapeU
	shapeJ
	shapeAmo
	shapeSys // no operands: ecall/ebreak/mret/sret/wfi
	shapeFence
)

type entry struct {
	name  string
	shape int
}

// key packs the fields that select a mnemonic within an opcode family:
// funct3 in bits [2:0], funct7/funct5 in bits [9:3].
func key(funct3, funct7 uint32) uint32 { return funct3 | funct7<<3 }

var regOps = map[uint32]entry{
	key(0b000, 0b0000000): {"add", shapeR},
	key(0b000, 0b0100000): {"sub", shapeR},
	key(0b001, 0b0000000): {"sll", shapeR},
	key(0b010, 0b0000000): {"slt", shapeR},
	key(0b011, 0b0000000): {"sltu", shapeR},
	key(0b100, 0b0000000): {"xor", shapeR},
	key(0b101, 0b0000000): {"srl", shapeR},
	key(0b101, 0b0100000): {"sra", shapeR},
	key(0b110, 0b0000000): {"or", shapeR},
	key(0b111, 0b0000000): {"and", shapeR},
	key(0b000, 0b0000001): {"mul", shapeR},
	key(0b001, 0b0000001): {"mulh", shapeR},
	key(0b010, 0b0000001): {"mulhsu", shapeR},
	key(0b011, 0b0000001): {"mulhu", shapeR},
	key(0b100, 0b0000001): {"div", shapeR},
	key(0b101, 0b0000001): {"divu", shapeR},
	key(0b110, 0b0000001): {"rem", shapeR},
	key(0b111, 0b0000001): {"remu", shapeR},
}

var immOps = map[uint32]entry{
	0b000: {"addi", shapeI},
	0b010: {"slti", shapeI},
	0b011: {"sltiu", shapeI},
	0b100: {"xori", shapeI},
	0b110: {"ori", shapeI},
	0b111: {"andi", shapeI},
	0b001: {"slli", shapeIShift},
	0b101: {"srli", shapeIShift}, // srai distinguished by imm[10] in format
}

var loadOps = map[uint32]entry{
	0b000: {"lb", shapeI},
	0b001: {"lh", shapeI},
	0b010: {"lw", shapeI},
	0b100: {"lbu", shapeI},
	0b101: {"lhu", shapeI},
}

var storeOps = map[uint32]entry{
	0b000: {"sb", shapeS},
	0b001: {"sh", shapeS},
	0b010: {"sw", shapeS},
}

var branchOps = map[uint32]entry{
	0b000: {"beq", shapeB},
	0b001: {"bne", shapeB},
	0b100: {"blt", shapeB},
	0b101: {"bge", shapeB},
	0b110: {"bltu", shapeB},
	0b111: {"bgeu", shapeB},
}

var amoOps = map[uint32]entry{
	0b00001: {"amoswap.w", shapeAmo},
	0b00000: {"amoadd.w", shapeAmo},
	0b00100: {"amoxor.w", shapeAmo},
	0b01100: {"amoand.w", shapeAmo},
	0b01000: {"amoor.w", shapeAmo},
	0b10000: {"amomin.w", shapeAmo},
	0b10100: {"amomax.w", shapeAmo},
	0b11000: {"amominu.w", shapeAmo},
	0b11100: {"amomaxu.w", shapeAmo},
	0b00010: {"lr.w", shapeAmo},
	0b00011: {"sc.w", shapeAmo},
}

func regName(n uint32) string { return fmt.Sprintf("x%d", n) }

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// Format decodes one 32-bit instruction word at pc and returns its assembler
// text, or "unknown" for anything outside RV32IMA.
func Format(pc, word uint32) string {
	opcode := word & 0x7f
	rd := (word >> 7) & 0x1f
	rs1 := (word >> 15) & 0x1f
	rs2 := (word >> 20) & 0x1f
	funct3 := (word >> 12) & 0x7
	funct7 := (word >> 25) & 0x7f
	funct5 := (word >> 27) & 0x1f

	switch opcode {
	case opReg:
		if e, ok := regOps[key(funct3, funct7)]; ok {
			return fmt.Sprintf("%s %s, %s, %s", e.name, regName(rd), regName(rs1), regName(rs2))
		}
	case opImm:
		e, ok := immOps[funct3]
		if !ok {
			break
		}
		if e.shape == shapeIShift {
			shamt := rs2
			name := e.name
			if funct3 == 0b101 && funct7&0b0100000 != 0 {
				name = "srai"
			}
			return fmt.Sprintf("%s %s, %s, %d", name, regName(rd), regName(rs1), shamt)
		}
		imm := signExtend(word>>20, 12)
		return fmt.Sprintf("%s %s, %s, %d", e.name, regName(rd), regName(rs1), imm)
	case opLoad:
		if e, ok := loadOps[funct3]; ok {
			imm := signExtend(word>>20, 12)
			return fmt.Sprintf("%s %s, %d(%s)", e.name, regName(rd), imm, regName(rs1))
		}
	case opStore:
		if e, ok := storeOps[funct3]; ok {
			imm := signExtend(((word>>7)&0x1f)|(((word>>25)&0x7f)<<5), 12)
			return fmt.Sprintf("%s %s, %d(%s)", e.name, regName(rs2), imm, regName(rs1))
		}
	case opBranch:
		if e, ok := branchOps[funct3]; ok {
			imm := signExtend((((word>>8)&0xf)<<1)|(((word>>25)&0x3f)<<5)|(((word>>7)&0x1)<<11)|(((word>>31)&0x1)<<12), 13)
			return fmt.Sprintf("%s %s, %s, %#x", e.name, regName(rs1), regName(rs2), pc+uint32(imm))
		}
	case opLui:
		return fmt.Sprintf("lui %s, %#x", regName(rd), word>>12)
	case opAuipc:
		return fmt.Sprintf("auipc %s, %#x", regName(rd), word>>12)
	case opJal:
		imm := signExtend((((word>>21)&0x3ff)<<1)|(((word>>20)&0x1)<<11)|(((word>>12)&0xff)<<12)|(((word>>31)&0x1)<<20), 21)
		return fmt.Sprintf("jal %s, %#x", regName(rd), pc+uint32(imm))
	case opJalr:
		if funct3 == 0 {
			imm := signExtend(word>>20, 12)
			return fmt.Sprintf("jalr %s, %d(%s)", regName(rd), imm, regName(rs1))
		}
	case opFence:
		return "fence"
	case opAmo:
		if e, ok := amoOps[funct5]; ok {
			return fmt.Sprintf("%s %s, %s, (%s)", e.name, regName(rd), regName(rs2), regName(rs1))
		}
	case opSystem:
		if funct3 != 0 {
			return fmt.Sprintf("csr %s, %#x, %s", regName(rd), word>>20, regName(rs1))
		}
		switch word >> 20 {
		case 0:
			return "ecall"
		case 1:
			return "ebreak"
		case 0b001100000010:
			return "mret"
		case 0b000100000010:
			return "sret"
		case 0b000100000101:
			return "wfi"
		}
	}
	return "unknown"
}
