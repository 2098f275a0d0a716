package main

import (
	"fmt"
	"os"

	"github.com/rcornwell/rv32emu/internal/bus"
	"github.com/rcornwell/rv32emu/internal/clint"
	"github.com/rcornwell/rv32emu/internal/config"
	"github.com/rcornwell/rv32emu/internal/elfload"
	"github.com/rcornwell/rv32emu/internal/hart"
	"github.com/rcornwell/rv32emu/internal/plic"
	"github.com/rcornwell/rv32emu/internal/ram"
	"github.com/rcornwell/rv32emu/internal/syscon"
	"github.com/rcornwell/rv32emu/internal/uart"
	"github.com/rcornwell/rv32emu/internal/virtio"
)

// Physical memory map.
const (
	defaultRAMSize         = 128 * 1024 * 1024
	clintBase, clintSize   = 0x02000000, 0x000c0000
	plicBase, plicSize     = 0x0c000000, 0x01000000
	sysconBase, sysconSize = 0x01c00000, 0x00001000
	uartBase, uartSize     = 0x10000000, 0x10
	virtioBase, virtioSize = 0x04200000, 0x200
	virtioIRQLine          = 3
)

// System wires a Hart to its bus and devices and implements
// monitor.Machine so the CLI can either free-run it or drop into the
// interactive monitor.
type System struct {
	hart   *hart.Hart
	bus    *bus.Bus
	clint  *clint.Clint
	syscon *syscon.Syscon
	uart   *uart.Uart
}

// NewSystem builds the standard device set (CLINT, PLIC, SYSCON, UART,
// virtio-blk, RAM), loads kernelPath's entry segments into RAM, and
// returns a System ready to Step.
func NewSystem(cfg *config.Config, ramBase uint32, kernelPath string, host uart.Host) (*System, error) {
	h := hart.New(0)
	b := bus.New()

	cl := clint.New(clintBase, clintSize, h)
	pl := plic.New(plicBase, plicSize, h)
	sc := syscon.New(sysconBase, sysconSize)
	u := uart.New(uartBase, uartSize, host)

	ramSize := cfg.RAMSize
	if ramSize == 0 {
		ramSize = defaultRAMSize
	}
	r := ram.New(ramBase, ramSize)

	b.Attach(cl)
	b.Attach(pl)
	b.Attach(sc)
	b.Attach(u)
	b.Attach(r)

	if cfg.DiskPath != "" {
		disk, err := os.OpenFile(cfg.DiskPath, os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("system: opening disk image: %w", err)
		}
		info, err := disk.Stat()
		if err != nil {
			return nil, fmt.Errorf("system: stat disk image: %w", err)
		}
		blk := virtio.NewBlock(disk, info.Size())
		vio := virtio.New(virtioBase, virtioSize, virtioIRQLine, pl, r, blk)
		b.Attach(vio)
	}
	b.Attach(r)

	entry, err := elfload.Load(kernelPath, r)
	if err != nil {
		return nil, err
	}
	h.PC = entry

	return &System{hart: h, bus: b, clint: cl, syscon: sc, uart: u}, nil
}

// Step advances every tick-driven device once and, if the guest has not
// halted, executes one hart instruction (or delivers a pending interrupt,
// or stays parked in WFI).
func (s *System) Step() {
	s.bus.Tick()
	s.hart.SyncTime(s.clint.Mtime())
	s.clint.AdvanceMtime(1)
	if s.Halted() {
		return
	}
	s.hart.Step(s.bus)
}

// Halted reports whether the guest has requested power-off via SYSCON,
// jumped to PC 0, or the host has sent the Ctrl-A Ctrl-C escape through
// the UART.
func (s *System) Halted() bool {
	return s.syscon.Requested == syscon.ValuePoweroff ||
		s.uart.EscapeRequested ||
		s.hart.PC == 0
}

func (s *System) PC() uint32       { return s.hart.PC }
func (s *System) SetPC(pc uint32)  { s.hart.PC = pc }
func (s *System) Reg(i int) uint32 { return uint32(s.hart.Reg[i]) }

func (s *System) SetReg(i int, v uint32) {
	if i != 0 {
		s.hart.Reg[i] = int32(v)
	}
}

func (s *System) ReadMem(addr uint32, width int) (uint32, error) {
	return s.bus.Load(addr, width)
}

func (s *System) WriteMem(addr uint32, width int, val uint32) error {
	return s.bus.Store(addr, width, val)
}

func (s *System) LastTrace() string { return s.hart.LastTrace() }
func (s *System) SetTrace(enabled bool) {
	s.hart.TraceEnable = enabled
}
