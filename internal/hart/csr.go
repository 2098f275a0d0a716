package hart

import "log/slog"

// CSR addresses this hart recognizes. Any other address is Illegal, per
// the closed legality list in the data model.
const (
	csrSstatus    = 0x100
	csrSie        = 0x104
	csrStvec      = 0x105
	csrSCounterEn = 0x106
	csrSscratch   = 0x140
	csrSepc       = 0x141
	csrScause     = 0x142
	csrStval      = 0x143
	csrSip        = 0x144
	csrSatp       = 0x180

	csrMstatus    = 0x300
	csrMisa       = 0x301
	csrMedeleg    = 0x302
	csrMideleg    = 0x303
	csrMie        = 0x304
	csrMtvec      = 0x305
	csrMCounterEn = 0x306
	csrMstatush   = 0x310
	csrMedelegh   = 0x312
	csrMscratch   = 0x340
	csrMepc       = 0x341
	csrMcause     = 0x342
	csrMtval      = 0x343
	csrMip        = 0x344

	csrPmpcfg0  = 0x3A0
	csrPmpcfg1  = 0x3A1
	csrPmpcfg2  = 0x3A2
	csrPmpcfg3  = 0x3A3
	csrPmpaddr0 = 0x3B0 // through csrPmpaddr0+15 = 0x3BF

	csrMcycle      = 0xB00
	csrMinstret    = 0xB02
	csrMcycleh     = 0xB80
	csrMinstreth   = 0xB82
	csrCycle       = 0xC00
	csrTime        = 0xC01
	csrInstret     = 0xC02
	csrCycleh      = 0xC80
	csrTimeh       = 0xC81
	csrInstreth    = 0xC82
	csrMcountInhib = 0x320

	csrMvendorID = 0xF11
	csrMarchID   = 0xF12
	csrMimpID    = 0xF13
	csrMhartID   = 0xF14
)

// mip/mstatus bit positions used outside the raw CSR cell.
const (
	mipMSIP = 1 << 3
	mipMTIP = 1 << 7
	mipMEIP = 1 << 11
	mipSSIP = 1 << 1
	mipSTIP = 1 << 5
	mipSEIP = 1 << 9

	mstatusMIE  = 1 << 3
	mstatusSIE  = 1 << 1
	mstatusMPIE = 1 << 7
	mstatusSPIE = 1 << 5
	mstatusMPP0 = 1 << 11
	mstatusMPP1 = 1 << 12
	mstatusSPP  = 1 << 8
	mstatusMPRV = 1 << 17
	mstatusSUM  = 1 << 18
	mstatusMXR  = 1 << 19

	// sstatusMask selects only the bits of mstatus visible through
	// sstatus (SIE, SPIE, UBE, SPP, VS, FS, XS, SUM, MXR, SD):
	// 0b10000000000011011110011101100010.
	sstatusMask = 0b10000000000011011110011101100010
)

func legalCSR(addr uint32) bool {
	switch addr {
	case csrSstatus, csrSie, csrStvec, csrSCounterEn, csrSscratch, csrSepc,
		csrScause, csrStval, csrSip, csrSatp,
		csrMstatus, csrMisa, csrMedeleg, csrMideleg, csrMie, csrMtvec,
		csrMCounterEn, csrMstatush, csrMedelegh, csrMscratch, csrMepc,
		csrMcause, csrMtval, csrMip,
		csrPmpcfg0, csrPmpcfg1, csrPmpcfg2, csrPmpcfg3,
		csrMcycle, csrMinstret, csrMcycleh, csrMinstreth,
		csrCycle, csrTime, csrInstret, csrCycleh, csrTimeh, csrInstreth,
		csrMcountInhib,
		csrMvendorID, csrMarchID, csrMimpID, csrMhartID:
		return true
	}
	if addr >= csrPmpaddr0 && addr <= csrPmpaddr0+15 {
		return true
	}
	return false
}

// csrMinMode returns the lowest privilege mode allowed to access addr,
// derived from the address itself (bits [9:8]) rather than a side table.
func csrMinMode(addr uint32) int {
	return int((addr >> 8) & 0b11)
}

// csrReadOnly reports whether addr's access-type field (bits [11:10])
// marks it read-only (0b11).
func csrReadOnly(addr uint32) bool {
	return (addr>>10)&0b11 == 0b11
}

// ReadCSR implements the CSR read path: mode check, legality check, then
// the raw cell.
func (h *Hart) ReadCSR(addr uint32) (uint32, Exception, bool) {
	if h.Mode < csrMinMode(addr) {
		slog.Debug("csr read: privilege too low", "addr", addr, "mode", h.Mode)
		return 0, ExcIllegalInstruction, false
	}
	if !legalCSR(addr) {
		slog.Debug("csr read: unrecognized address", "addr", addr)
		return 0, ExcIllegalInstruction, false
	}
	return h.CSR[addr], 0, true
}

// WriteCSR implements the CSR write path: mode and legality as above, plus
// the read-only check, followed by the mirror routine.
func (h *Hart) WriteCSR(addr, value uint32) (Exception, bool) {
	if h.Mode < csrMinMode(addr) {
		slog.Debug("csr write: privilege too low", "addr", addr, "mode", h.Mode)
		return ExcIllegalInstruction, false
	}
	if !legalCSR(addr) {
		slog.Debug("csr write: unrecognized address", "addr", addr)
		return ExcIllegalInstruction, false
	}
	if csrReadOnly(addr) {
		slog.Debug("csr write: address is read-only", "addr", addr)
		return ExcIllegalInstruction, false
	}
	h.CSR[addr] = value
	if addr == csrSstatus {
		// Writes to sstatus are permitted (S, read-write); fold the
		// S-visible bits back into mstatus before the shared mirror
		// pass re-derives sstatus, so both directions stay coherent.
		h.CSR[csrMstatus] = (h.CSR[csrMstatus] &^ sstatusMask) | (value & sstatusMask)
	}
	h.mirrorCSR()
	return 0, true
}

// mirrorCSR keeps the read-only shadow CSRs coherent. Called after every
// committed CSR write, after mip edge updates, and after CLINT ticks.
func (h *Hart) mirrorCSR() {
	h.CSR[csrSstatus] = h.CSR[csrMstatus] & sstatusMask
	h.CSR[csrSie] = h.CSR[csrMie] & h.CSR[csrMideleg]
	h.CSR[csrSip] = h.CSR[csrMip] & h.CSR[csrMideleg]

	h.CSR[csrCycle] = h.CSR[csrMcycle]
	h.CSR[csrCycleh] = h.CSR[csrMcycleh]
	h.CSR[csrInstret] = h.CSR[csrMinstret]
	h.CSR[csrInstreth] = h.CSR[csrMinstreth]
	// csrTime/csrTimeh are shadowed from the CLINT mtime by SyncTime,
	// called by the caller owning the bus each tick, since the hart has
	// no direct reference to CLINT (see Bus/IRQLines split).
}

// SyncTime copies the CLINT's 64-bit mtime into the time/timeh shadow
// CSRs.
func (h *Hart) SyncTime(mtime uint64) {
	h.CSR[csrTime] = uint32(mtime)
	h.CSR[csrTimeh] = uint32(mtime >> 32)
}

// PmpCfgByte extracts the configuration byte for PMP entry n from the
// correct lane of pmpcfg0..3: n/4 selects the word, n%4 selects the byte.
func (h *Hart) PmpCfgByte(n int) uint8 {
	word := h.CSR[csrPmpcfg0+uint32(n/4)]
	return uint8(word >> uint((n % 4) * 8))
}

// PmpAddr returns the raw pmpaddrN CSR value.
func (h *Hart) PmpAddr(n int) uint32 {
	return h.CSR[csrPmpaddr0+uint32(n)]
}

// CountStep advances the free-running machine cycle/instret counters by
// one and re-derives their shadows. Step calls this once per committed
// instruction.
func (h *Hart) CountStep() {
	c := uint64(h.CSR[csrMcycle]) | uint64(h.CSR[csrMcycleh])<<32
	c++
	h.CSR[csrMcycle] = uint32(c)
	h.CSR[csrMcycleh] = uint32(c >> 32)

	i := uint64(h.CSR[csrMinstret]) | uint64(h.CSR[csrMinstreth])<<32
	i++
	h.CSR[csrMinstret] = uint32(i)
	h.CSR[csrMinstreth] = uint32(i >> 32)

	h.mirrorCSR()
}
