/*
   virtio: virtio-mmio v2 transport, generic over a block-style backend.

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

// Package virtio implements the virtio-mmio version-2 transport shell: a
// generic register file and single virtqueue driving a pluggable Backend
// capability (today, virtio-blk; the shell itself knows nothing
// block-specific).
package virtio

import "fmt"

// Register offsets, relative to the device's base address.
const (
	regMagicValue        = 0x000
	regVersion           = 0x004
	regDeviceID          = 0x008
	regVendorID          = 0x00c
	regDeviceFeatures    = 0x010
	regDeviceFeaturesSel = 0x014
	regDriverFeatures    = 0x020
	regDriverFeaturesSel = 0x024
	regQueueSel          = 0x030
	regQueueSizeMax      = 0x034
	regQueueSize         = 0x038
	regQueueReady        = 0x044
	regQueueNotify       = 0x050
	regInterruptStatus   = 0x060
	regInterruptACK      = 0x064
	regStatus            = 0x070
	regQueueDescLow      = 0x080
	regQueueDriverLow    = 0x090
	regQueueDeviceLow    = 0x0a0
	regQueueReset        = 0x0c0
	regConfigGeneration  = 0x0fc
	regConfig            = 0x100
)

const (
	magicValue  = 0x74726976
	mmioVersion = 2
)

// Status register bits.
const (
	StatusAcknowledge = 1
	StatusDriver      = 2
	StatusDriverOK    = 4
	StatusFeaturesOK  = 8
	StatusNeedsReset  = 64
	StatusFailed      = 128
)

// Interrupt-status register bits.
const (
	IntUsedBufferNotification          = 0b01
	IntConfigurationChangeNotification = 0b10
)

const queueSizeMax = 256

// GuestMemory is the guest-physical memory the transport walks descriptor
// chains and rings over. ram.RAM satisfies this directly; it is kept as a
// small interface so the package has no hard dependency on internal/ram.
type GuestMemory interface {
	Load(addr uint32, width int) (uint32, error)
	Store(addr uint32, width int, val uint32) error
}

// IRQSource is how the transport reports its interrupt line's level to the
// PLIC, matching plic.Plic.SetActive without holding a concrete PLIC type.
type IRQSource interface {
	SetActive(source uint32, level bool)
}

// Queue is the single virtqueue's negotiated state: guest-physical ring
// addresses and the driver-side cursor.
type Queue struct {
	Size      uint16
	Ready     uint32
	DescLow   uint32
	DriverLow uint32
	DeviceLow uint32
	LastAvail uint16
}

// Backend is the per-device-type capability the generic MMIO shell drives:
// today only a Block backend exists, but nothing here is block-specific.
type Backend interface {
	DeviceID() uint32
	ConfigSize() uint32
	ConfigWord(offset uint32) uint32
	SetConfigWord(offset uint32, val uint32)
	ProcessChain(mem GuestMemory, q *Queue, headIdx uint16) (uint32, error)
}

// MMIO is the virtio-mmio v2 register file plus its single queue, wired to
// one Backend, one IRQSource and the guest memory it walks rings over.
type MMIO struct {
	base, length uint32
	irqLine      uint32
	irq          IRQSource
	mem          GuestMemory
	backend      Backend

	deviceFeatures    [2]uint32
	deviceFeaturesSel uint32
	driverFeatures    [2]uint32
	driverFeaturesSel uint32

	queue               Queue
	queueNotify         uint32
	queueNotifyPending  bool
	interruptStatus     uint32
	status              uint32
	configGeneration    uint32
}

// New returns a virtio-mmio device with its queue's capacity fixed at
// queueSizeMax, feature bit 32 (VIRTIO_F_VERSION_1, bit 0 of feature
// word 1) advertised, and IRQ
// events delivered to irq on source irqLine.
func New(base, length, irqLine uint32, irq IRQSource, mem GuestMemory, backend Backend) *MMIO {
	return &MMIO{
		base:           base,
		length:         length,
		irqLine:        irqLine,
		irq:            irq,
		mem:            mem,
		backend:        backend,
		deviceFeatures: [2]uint32{0, 1},
		queue:          Queue{Size: 0},
	}
}

func (m *MMIO) Base() uint32 { return m.base }
func (m *MMIO) Size() uint32 { return m.length }

// Tick reflects interrupt_status onto the PLIC input line and drains the
// queue if the driver rang the notify bell.
func (m *MMIO) Tick() {
	m.irq.SetActive(m.irqLine, m.interruptStatus > 0)

	if m.status&StatusNeedsReset != 0 {
		return
	}
	if m.queueNotifyPending {
		m.queueNotifyPending = false
		if err := m.handleNotify(); err != nil {
			m.setFail()
		}
	}
}

func (m *MMIO) setFail() {
	m.status |= StatusNeedsReset
	if m.status&StatusDriverOK != 0 {
		m.interruptStatus |= IntConfigurationChangeNotification
	}
}

func (m *MMIO) reset() {
	*m = MMIO{
		base: m.base, length: m.length, irqLine: m.irqLine, irq: m.irq,
		mem: m.mem, backend: m.backend,
		deviceFeatures: [2]uint32{0, 1},
	}
}

// Load implements bus.Device. Every register, including the config window,
// is word-addressed and four bytes wide; narrower accesses are rejected as
// an access fault, the conservative choice for MMIO windows.
func (m *MMIO) Load(addr uint32, width int) (uint32, error) {
	if width != 4 {
		return 0, fmt.Errorf("virtio: narrow load at %#08x", addr)
	}
	off := addr - m.base
	switch off {
	case regMagicValue:
		return magicValue, nil
	case regVersion:
		return mmioVersion, nil
	case regDeviceID:
		return m.backend.DeviceID(), nil
	case regVendorID:
		return 0, nil
	case regDeviceFeatures:
		return m.deviceFeatures[m.deviceFeaturesSel], nil
	case regQueueSizeMax:
		return queueSizeMax, nil
	case regQueueReady:
		return m.queue.Ready, nil
	case regInterruptStatus:
		return m.interruptStatus, nil
	case regStatus:
		return m.status, nil
	case regConfigGeneration:
		return m.configGeneration, nil
	default:
		if off >= regConfig && off < regConfig+m.backend.ConfigSize() {
			return m.backend.ConfigWord(off - regConfig), nil
		}
		return 0, fmt.Errorf("virtio: unmapped register at %#08x", addr)
	}
}

// Store implements bus.Device.
func (m *MMIO) Store(addr uint32, width int, val uint32) error {
	if width != 4 {
		return fmt.Errorf("virtio: narrow store at %#08x", addr)
	}
	off := addr - m.base
	switch off {
	case regDeviceFeaturesSel:
		if val > 1 {
			m.setFail()
		} else {
			m.deviceFeaturesSel = val
		}
	case regDriverFeatures:
		m.driverFeatures[m.driverFeaturesSel] = val
	case regDriverFeaturesSel:
		if val > 1 {
			m.setFail()
		} else {
			m.driverFeaturesSel = val
		}
	case regQueueSel:
		if val != 0 {
			m.setFail()
		}
	case regQueueSize:
		m.queue.Size = uint16(val)
	case regQueueReady:
		m.queue.Ready = val
	case regQueueNotify:
		m.queueNotify = val
		m.queueNotifyPending = true
	case regInterruptACK:
		m.interruptStatus &^= val
	case regStatus:
		if val == 0 {
			m.reset()
		} else {
			m.status |= val
		}
	case regQueueDescLow:
		m.queue.DescLow = val
	case regQueueDriverLow:
		m.queue.DriverLow = val
	case regQueueDeviceLow:
		m.queue.DeviceLow = val
	case regQueueReset:
		// A single fixed queue never needs a reset sequence of its own.
	default:
		if off >= regConfig && off < regConfig+m.backend.ConfigSize() {
			m.backend.SetConfigWord(off-regConfig, val)
		} else {
			m.setFail()
		}
	}
	return nil
}
