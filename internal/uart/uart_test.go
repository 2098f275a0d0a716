package uart

import "testing"

type fakeHost struct {
	rx     []byte
	tx     []byte
	cursor int
}

func (h *fakeHost) PollByte() (byte, bool) {
	if h.cursor >= len(h.rx) {
		return 0, false
	}
	b := h.rx[h.cursor]
	h.cursor++
	return b, true
}

func (h *fakeHost) PutByte(b byte) { h.tx = append(h.tx, b) }

func TestReceiveByteRaisesLSRDataReady(t *testing.T) {
	host := &fakeHost{rx: []byte{'A'}}
	u := New(0x10000000, 0x10, host)
	u.Tick()

	lsr, _ := u.Load(0x10000000+regLSR, 1)
	if lsr&1 == 0 {
		t.Fatal("LSR data-ready bit not set after a host byte arrived")
	}
	rhr, _ := u.Load(0x10000000+regRHR, 1)
	if rhr != 'A' {
		t.Errorf("RHR = %q, want 'A'", rune(rhr))
	}
	lsr, _ = u.Load(0x10000000+regLSR, 1)
	if lsr&1 != 0 {
		t.Error("LSR data-ready bit still set after RHR was read")
	}
}

func TestTransmitWritesThroughToHost(t *testing.T) {
	host := &fakeHost{}
	u := New(0x10000000, 0x10, host)
	u.Store(0x10000000+regRHR, 1, uint32('Z'))
	if len(host.tx) != 1 || host.tx[0] != 'Z' {
		t.Errorf("host received %v, want ['Z']", host.tx)
	}
}

func TestIIRPrioritizesRXOverTX(t *testing.T) {
	host := &fakeHost{rx: []byte{'Q'}}
	u := New(0x10000000, 0x10, host)
	u.Store(0x10000000+regIER, 1, 0b11) // enable both RX and TX interrupts
	u.Store(0x10000000+regRHR, 1, uint32('x'))
	u.Tick()

	iir, _ := u.Load(0x10000000+regIIR, 1)
	if iir != iirRX {
		t.Errorf("IIR = %#x, want RX priority %#x", iir, iirRX)
	}
}

func TestWideAccessRejected(t *testing.T) {
	u := New(0x10000000, 0x10, &fakeHost{})
	if _, err := u.Load(0x10000000, 4); err == nil {
		t.Error("word-wide load on the UART did not return an error")
	}
}

func TestCtrlAThenCtrlCRequestsEscape(t *testing.T) {
	host := &fakeHost{rx: []byte{1, 3}}
	u := New(0x10000000, 0x10, host)
	u.Tick()
	if u.EscapeRequested {
		t.Fatal("EscapeRequested set after Ctrl-A alone")
	}
	u.Tick()
	if !u.EscapeRequested {
		t.Error("EscapeRequested not set after Ctrl-A, Ctrl-C")
	}
	rhr, _ := u.Load(0x10000000+regRHR, 1)
	if rhr != 0 {
		t.Errorf("RHR = %#x, want 0: the escape sequence should not reach the guest", rhr)
	}
}

func TestCtrlAThenOtherByteDeliversCtrlA(t *testing.T) {
	host := &fakeHost{rx: []byte{1, 'x'}}
	u := New(0x10000000, 0x10, host)
	u.Tick()
	u.Tick()
	if u.EscapeRequested {
		t.Fatal("EscapeRequested set without a following Ctrl-C")
	}
	rhr, _ := u.Load(0x10000000+regRHR, 1)
	if rhr != 1 {
		t.Errorf("RHR = %#x, want 0x01 (the held Ctrl-A)", rhr)
	}
}
