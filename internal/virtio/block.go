package virtio

import (
	"encoding/binary"
	"fmt"
)

const (
	blkDeviceID = 2

	blkTypeIn  = 0
	blkTypeOut = 1

	blkStatusOK     = 0
	blkStatusIOErr  = 1
	blkStatusUnsupp = 2

	blkSectorSize = 512

	// blkConfigSize covers the virtio_blk_config fields this emulator
	// populates (capacity and blk_size) plus padding for the remaining
	// fields a guest driver may probe but this device leaves zeroed.
	blkConfigSize = 64
	blkConfigBlkSizeOffset = 20
)

// File is the host-side collaborator a Block device reads/writes sectors
// through: positioned reads and writes. The image size is passed to
// NewBlock separately. *os.File satisfies this directly via its
// ReadAt/WriteAt methods.
type File interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

// Block is a virtio-blk device backed by a host file image, processing one
// descriptor chain at a time.
type Block struct {
	file   File
	config []byte
}

// NewBlock returns a Block backend over file, whose capacity is reported
// as ceil(sizeBytes / 512) sectors.
func NewBlock(file File, sizeBytes int64) *Block {
	capacity := uint64((sizeBytes + blkSectorSize - 1) / blkSectorSize)
	cfg := make([]byte, blkConfigSize)
	binary.LittleEndian.PutUint64(cfg[0:8], capacity)
	binary.LittleEndian.PutUint32(cfg[blkConfigBlkSizeOffset:blkConfigBlkSizeOffset+4], blkSectorSize)
	return &Block{file: file, config: cfg}
}

func (b *Block) DeviceID() uint32  { return blkDeviceID }
func (b *Block) ConfigSize() uint32 { return uint32(len(b.config)) }

func (b *Block) ConfigWord(offset uint32) uint32 {
	if int(offset)+4 > len(b.config) {
		return 0
	}
	return binary.LittleEndian.Uint32(b.config[offset:])
}

func (b *Block) SetConfigWord(offset uint32, val uint32) {
	if int(offset)+4 > len(b.config) {
		return
	}
	binary.LittleEndian.PutUint32(b.config[offset:], val)
}

// ProcessChain walks the three descriptors of a virtio-blk request (header,
// data, status): reads type+sector from the header, performs the sector
// I/O for IN/OUT, and writes the result status byte.
func (b *Block) ProcessChain(mem GuestMemory, q *Queue, headIdx uint16) (uint32, error) {
	headAddr := q.DescLow + 16*uint32(headIdx)
	head, err := readDescriptor(mem, headAddr)
	if err != nil {
		return 0, err
	}
	if head.flags&descFlagNext == 0 {
		return 0, fmt.Errorf("virtio-blk: request chain too short")
	}

	dataAddr := q.DescLow + 16*uint32(head.next)
	data, err := readDescriptor(mem, dataAddr)
	if err != nil {
		return 0, err
	}
	if data.flags&descFlagNext == 0 {
		return 0, fmt.Errorf("virtio-blk: request chain missing status descriptor")
	}

	statusAddr := q.DescLow + 16*uint32(data.next)
	status, err := readDescriptor(mem, statusAddr)
	if err != nil {
		return 0, err
	}

	opType, err := mem.Load(head.addr, 4)
	if err != nil {
		return 0, err
	}
	sector, err := mem.Load(head.addr+8, 4)
	if err != nil {
		return 0, err
	}

	switch opType {
	case blkTypeIn:
		buf := make([]byte, data.len)
		if _, err := b.file.ReadAt(buf, int64(uint64(sector)*blkSectorSize)); err != nil {
			mem.Store(status.addr, 1, blkStatusIOErr)
			return 0, err
		}
		for i, v := range buf {
			if err := mem.Store(data.addr+uint32(i), 1, uint32(v)); err != nil {
				return 0, err
			}
		}
		mem.Store(status.addr, 1, blkStatusOK)
	case blkTypeOut:
		buf := make([]byte, data.len)
		for i := range buf {
			v, err := mem.Load(data.addr+uint32(i), 1)
			if err != nil {
				return 0, err
			}
			buf[i] = byte(v)
		}
		if _, err := b.file.WriteAt(buf, int64(uint64(sector)*blkSectorSize)); err != nil {
			mem.Store(status.addr, 1, blkStatusIOErr)
			return 0, err
		}
		mem.Store(status.addr, 1, blkStatusOK)
	default:
		mem.Store(status.addr, 1, blkStatusUnsupp)
		return 0, fmt.Errorf("virtio-blk: unsupported request type %d", opType)
	}

	return data.len, nil
}
