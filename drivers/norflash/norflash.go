// drivers/norflash/norflash.go
package norflash

import (
	"tinygo.org/x/drivers"

	"bootcode-go/errcode"
	"bootcode-go/x/mathx"
)

// Serial NOR command set (25-series).
const (
	cmdWriteEnable  = 0x06
	cmdWriteDisable = 0x04
	cmdReadStatus   = 0x05
	cmdRead         = 0x03
	cmdPageProgram  = 0x02
	cmdSectorErase  = 0x20

	statusBusy = 0x01
	statusWEL  = 0x02
)

const (
	// SectorSize is the erase granularity of the part.
	SectorSize = 4096

	programPageSize = 256
)

// Config places a window of the chip behind the page-table interface. Addr is
// the address the window reports to callers, Offset is where it starts on the
// chip.
type Config struct {
	Addr       uint32
	Offset     uint32
	NumSectors int
}

// Device drives a serial NOR flash as an erase-page table. The write gate is
// enforced in software on top of the chip's own write-enable latch.
type Device struct {
	spi      drivers.SPI
	cs       func(level bool)
	cfg      Config
	unlocked bool
}

// New wires a device on spi with cs driving the chip-select line (low
// selects).
func New(spi drivers.SPI, cs func(level bool), cfg Config) *Device {
	return &Device{spi: spi, cs: cs, cfg: cfg}
}

func (d *Device) PageCount() int { return d.cfg.NumSectors }

func (d *Device) PageAddr(page int) uint32 {
	return d.cfg.Addr + uint32(page)*SectorSize
}

func (d *Device) PageSize(page int) uint32 {
	if page < 0 || page >= d.cfg.NumSectors {
		return 0
	}
	return SectorSize
}

func (d *Device) ErasePage(page int) error {
	if d.PageSize(page) == 0 {
		return &errcode.E{C: errcode.BadAddress, Op: "norflash.erase"}
	}
	if err := d.command([]byte{cmdWriteEnable}, nil); err != nil {
		return &errcode.E{C: errcode.EraseFailed, Op: "norflash.erase", Err: err}
	}
	chip := d.cfg.Offset + uint32(page)*SectorSize
	if err := d.command(addrFrame(cmdSectorErase, chip), nil); err != nil {
		return &errcode.E{C: errcode.EraseFailed, Op: "norflash.erase", Err: err}
	}
	return d.waitIdle()
}

func (d *Device) Write(addr uint32, p []byte) error {
	if !d.unlocked {
		return &errcode.E{C: errcode.FlashLocked, Op: "norflash.write"}
	}
	chip, err := d.chipAddr(addr, len(p))
	if err != nil {
		return err
	}
	// The chip programs within one 256-byte page per command; split writes at
	// page boundaries.
	for len(p) > 0 {
		n := mathx.Min(len(p), programPageSize-int(chip%programPageSize))
		if err := d.command([]byte{cmdWriteEnable}, nil); err != nil {
			return &errcode.E{C: errcode.WriteFailed, Op: "norflash.write", Err: err}
		}
		frame := append(addrFrame(cmdPageProgram, chip), p[:n]...)
		if err := d.command(frame, nil); err != nil {
			return &errcode.E{C: errcode.WriteFailed, Op: "norflash.write", Err: err}
		}
		if err := d.waitIdle(); err != nil {
			return err
		}
		chip += uint32(n)
		p = p[n:]
	}
	return nil
}

func (d *Device) Read(addr uint32, p []byte) error {
	chip, err := d.chipAddr(addr, len(p))
	if err != nil {
		return err
	}
	if err := d.command(addrFrame(cmdRead, chip), p); err != nil {
		return &errcode.E{C: errcode.Error, Op: "norflash.read", Err: err}
	}
	return nil
}

func (d *Device) SetWriteUnlocked(unlocked bool) {
	d.unlocked = unlocked
	if !unlocked {
		_ = d.command([]byte{cmdWriteDisable}, nil)
	}
}

// chipAddr maps a caller address onto the chip and bounds-checks the span.
func (d *Device) chipAddr(addr uint32, n int) (uint32, error) {
	size := uint32(d.cfg.NumSectors) * SectorSize
	if addr < d.cfg.Addr || uint64(addr-d.cfg.Addr)+uint64(n) > uint64(size) {
		return 0, &errcode.E{C: errcode.BadAddress, Op: "norflash"}
	}
	return d.cfg.Offset + (addr - d.cfg.Addr), nil
}

// command runs one chip-select frame: send out, then clock in len(in) bytes.
func (d *Device) command(out, in []byte) error {
	d.cs(false)
	defer d.cs(true)
	if err := d.spi.Tx(out, nil); err != nil {
		return err
	}
	if len(in) > 0 {
		return d.spi.Tx(nil, in)
	}
	return nil
}

// waitIdle polls the status register until the busy bit clears.
func (d *Device) waitIdle() error {
	var status [1]byte
	for {
		if err := d.command([]byte{cmdReadStatus}, status[:]); err != nil {
			return &errcode.E{C: errcode.Error, Op: "norflash.status", Err: err}
		}
		if status[0]&statusBusy == 0 {
			return nil
		}
	}
}

func addrFrame(cmd byte, addr uint32) []byte {
	return []byte{cmd, byte(addr >> 16), byte(addr >> 8), byte(addr)}
}
