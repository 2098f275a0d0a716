/*
   console: host terminal adapter feeding the UART's non-blocking poll.

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

// Package console is the host-side collaborator the UART polls: it puts
// the host terminal into raw mode so individual keystrokes reach the
// byte reader without host line buffering, and exposes a non-blocking
// byte reader plus a synchronous byte writer. It forwards every byte
// verbatim, including 0x01/0x03; recognizing the Ctrl-A/Ctrl-C escape
// sequence is the UART's job (it needs two successive polls to detect it).
package console

import (
	"os"

	"golang.org/x/term"
)

// Host implements the UART's {poll_byte, put_byte} external-collaborator
// contract.
type Host struct {
	fd       int
	oldState *term.State
	incoming chan byte
	stopped  chan struct{}
}

// Open puts stdin into raw mode (when it is a terminal) and starts a
// background reader goroutine feeding a small buffered channel, so
// PollByte never blocks.
func Open() (*Host, error) {
	h := &Host{
		fd:       int(os.Stdin.Fd()),
		incoming: make(chan byte, 16),
		stopped:  make(chan struct{}),
	}

	if term.IsTerminal(h.fd) {
		old, err := term.MakeRaw(h.fd)
		if err != nil {
			return nil, err
		}
		h.oldState = old
	}

	go h.readLoop()
	return h, nil
}

func (h *Host) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			close(h.stopped)
			return
		}
		select {
		case h.incoming <- buf[0]:
		case <-h.stopped:
			return
		}
	}
}

// PollByte returns the next byte typed at the host terminal, if any,
// without blocking.
func (h *Host) PollByte() (byte, bool) {
	select {
	case b := <-h.incoming:
		return b, true
	default:
		return 0, false
	}
}

// PutByte writes one byte to host stdout.
func (h *Host) PutByte(b byte) {
	os.Stdout.Write([]byte{b})
}

// Close restores the host terminal's original mode.
func (h *Host) Close() error {
	if h.oldState != nil {
		return term.Restore(h.fd, h.oldState)
	}
	return nil
}
