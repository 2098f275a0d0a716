package virtio

import "fmt"

// descFlagNext marks a descriptor as continuing into another descriptor
// via its Next field (VIRTQ_DESC_F_NEXT).
const descFlagNext = 0x1

// descriptor is one entry of the descriptor table: a guest-physical
// buffer, its length, chain flags and the index of the next descriptor in
// the chain.
type descriptor struct {
	addr  uint32
	len   uint32
	flags uint16
	next  uint16
}

func readDescriptor(mem GuestMemory, addr uint32) (descriptor, error) {
	lo, err := mem.Load(addr, 4)
	if err != nil {
		return descriptor{}, fmt.Errorf("virtio: descriptor addr at %#08x: %w", addr, err)
	}
	length, err := mem.Load(addr+8, 4)
	if err != nil {
		return descriptor{}, fmt.Errorf("virtio: descriptor len at %#08x: %w", addr, err)
	}
	flags, err := mem.Load(addr+12, 2)
	if err != nil {
		return descriptor{}, fmt.Errorf("virtio: descriptor flags at %#08x: %w", addr, err)
	}
	next, err := mem.Load(addr+14, 2)
	if err != nil {
		return descriptor{}, fmt.Errorf("virtio: descriptor next at %#08x: %w", addr, err)
	}
	return descriptor{addr: lo, len: length, flags: uint16(flags), next: uint16(next)}, nil
}

// handleNotify drains the available ring from queue.LastAvail up to the
// driver's current avail.idx, delegating each descriptor chain to the
// backend and appending a used-ring entry for it.
func (m *MMIO) handleNotify() error {
	q := &m.queue
	if q.Size == 0 {
		return fmt.Errorf("virtio: notify on unready queue")
	}

	availIdx, err := m.mem.Load(q.DriverLow+2, 2)
	if err != nil {
		return err
	}
	usedIdxRaw, err := m.mem.Load(q.DeviceLow+2, 2)
	if err != nil {
		return err
	}
	avail := uint16(availIdx)
	used := uint16(usedIdxRaw)

	for q.LastAvail != avail {
		ringIdx := q.LastAvail % q.Size
		headWord, err := m.mem.Load(q.DriverLow+4+2*uint32(ringIdx), 2)
		if err != nil {
			return err
		}
		headIdx := uint16(headWord)

		nbytes, err := m.backend.ProcessChain(m.mem, q, headIdx)
		if err != nil {
			return err
		}

		usedRingIdx := used % q.Size
		usedRingAddr := q.DeviceLow + 4 + 8*uint32(usedRingIdx)
		if err := m.mem.Store(usedRingAddr, 4, uint32(headIdx)); err != nil {
			return err
		}
		if err := m.mem.Store(usedRingAddr+4, 4, nbytes); err != nil {
			return err
		}

		q.LastAvail++
		used++
	}

	if err := m.mem.Store(q.DeviceLow, 2, 0); err != nil {
		return err
	}
	if err := m.mem.Store(q.DeviceLow+2, 2, uint32(used)); err != nil {
		return err
	}

	usedFlags, err := m.mem.Load(q.DeviceLow, 2)
	if err != nil {
		return err
	}
	if usedFlags != 1 {
		m.interruptStatus |= IntUsedBufferNotification
	}
	return nil
}
