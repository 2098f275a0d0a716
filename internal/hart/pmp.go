package hart

import "math/bits"

// PMP address-matching modes, decoded from cfg bits [4:3].
const (
	pmpOff   = 0
	pmpTOR   = 1
	pmpNA4   = 2
	pmpNAPOT = 3
)

const pmpEntries = 16

const (
	pmpCfgLock = 1 << 7
	pmpCfgX    = 1 << 2
	pmpCfgW    = 1 << 1
	pmpCfgR    = 1 << 0
)

// Perm is a resolved RWX permission triple.
type Perm struct {
	R, W, X bool
}

var permNone = Perm{}
var permAll = Perm{R: true, W: true, X: true}

// pmpRange decodes entry n's [bot, top) range given the previous entry's
// raw pmpaddr (needed for TOR's lower bound).
func (h *Hart) pmpRange(n int, prevAddr uint32) (bot, top uint32, mode int) {
	cfg := h.PmpCfgByte(n)
	mode = int((cfg >> 3) & 0b11)
	addr := h.PmpAddr(n)

	switch mode {
	case pmpTOR:
		bot = prevAddr << 2
		top = addr << 2
	case pmpNA4:
		bot = addr << 2
		top = bot + 4
	case pmpNAPOT:
		pow := bits.TrailingZeros32(^addr)
		bot = (addr >> uint(pow)) << uint(pow+2)
		top = bot + (1 << uint(pow+3))
	}
	return bot, top, mode
}

// CheckPMP resolves the effective RWX permission for [addr, addr+length)
// against the 16 PMP entries. First matching entry wins; partial overlap
// hard-fails to no permission; no match defaults to full RWX in M-mode and
// none otherwise.
func (h *Hart) CheckPMP(addr uint32, length uint32) Perm {
	var prevAddr uint32
	for n := 0; n < pmpEntries; n++ {
		cfg := h.PmpCfgByte(n)
		curAddr := h.PmpAddr(n)
		mode := int((cfg >> 3) & 0b11)
		if mode == pmpOff {
			prevAddr = curAddr
			continue
		}

		bot, top, _ := h.pmpRange(n, prevAddr)
		prevAddr = curAddr

		contained := addr >= bot && addr+length <= top
		overlaps := addr < top && addr+length > bot

		if contained {
			if cfg&pmpCfgLock == 0 && h.Mode == ModeMachine {
				return permAll
			}
			return Perm{R: cfg&pmpCfgR != 0, W: cfg&pmpCfgW != 0, X: cfg&pmpCfgX != 0}
		}
		if overlaps {
			return permNone
		}
	}
	if h.Mode == ModeMachine {
		return permAll
	}
	return permNone
}
