/*
   bus: physical memory bus routing RAM and memory-mapped device access.

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

// Package bus routes a physical address and access width to the owning
// device: RAM, CLINT, PLIC, SYSCON, UART or the virtio-mmio window, using
// a small Device interface keyed on width-based load/store.
package bus

import "fmt"

// IRQLines is how CLINT and PLIC report edge changes back to the hart
// without holding a direct reference to it, keeping hart/bus/device
// references disjoint per the cross-cutting design note.
type IRQLines interface {
	SetTimerIRQ(pending bool)
	SetExternalIRQ(pending bool)
}

// Device is the contract every bus-attached component implements.
// Load/Store widths are in bytes: 1, 2 or 4.
type Device interface {
	Base() uint32
	Size() uint32
	Load(addr uint32, width int) (uint32, error)
	Store(addr uint32, width int, val uint32) error
}

// Ticker is implemented by devices with time- or event-driven behavior
// (CLINT, PLIC, UART, the virtio transport).
type Ticker interface {
	Tick()
}

// ErrUnmapped is returned when no device claims an address.
type ErrUnmapped struct {
	Addr uint32
}

func (e ErrUnmapped) Error() string {
	return fmt.Sprintf("bus: no device mapped at %#08x", e.Addr)
}

// Bus is the aggregate physical address space. Devices are probed in the
// order they were attached; the first whose window contains the address
// wins.
type Bus struct {
	devices []Device
	tickers []Ticker
}

// New returns an empty bus. Attach devices with Attach in the order they
// should be probed (RAM last, so narrower special-purpose windows shadow
// it if they ever overlap).
func New() *Bus {
	return &Bus{}
}

// Attach registers a device for address routing. If the device also
// implements Ticker, it is included in Tick.
func (b *Bus) Attach(d Device) {
	b.devices = append(b.devices, d)
	if t, ok := d.(Ticker); ok {
		b.tickers = append(b.tickers, t)
	}
}

func (b *Bus) find(addr uint32) Device {
	for _, d := range b.devices {
		if addr >= d.Base() && addr < d.Base()+d.Size() {
			return d
		}
	}
	return nil
}

// Load reads width bytes at addr from whichever device claims it.
func (b *Bus) Load(addr uint32, width int) (uint32, error) {
	d := b.find(addr)
	if d == nil {
		return 0, ErrUnmapped{Addr: addr}
	}
	return d.Load(addr, width)
}

// Store writes width bytes at addr to whichever device claims it.
func (b *Bus) Store(addr uint32, width int, val uint32) error {
	d := b.find(addr)
	if d == nil {
		return ErrUnmapped{Addr: addr}
	}
	return d.Store(addr, width, val)
}

// Tick advances every tick-driven device once, in attach order.
func (b *Bus) Tick() {
	for _, t := range b.tickers {
		t.Tick()
	}
}
