// drivers/memflash/memflash.go
package memflash

import (
	"sync"

	"bootcode-go/errcode"
)

const align = 32

// Device is an in-memory flash with a page table, for host tests and demos.
// It enforces the write-protection gate and the 32-byte write granularity,
// and offers fail injection mirroring real transient faults.
type Device struct {
	mu       sync.Mutex
	base     uint32
	sizes    []uint32
	buf      []byte
	unlocked bool

	// Fail injection.
	FailWrites int  // fail this many Write calls before succeeding
	FailErase  bool // fail every ErasePage call

	// Call counters.
	EraseCalls int
	WriteCalls int
}

// New builds a device at base with the given page sizes, filled with the
// erased-cell value 0xff.
func New(base uint32, pageSizes ...uint32) *Device {
	total := uint32(0)
	for _, s := range pageSizes {
		total += s
	}
	buf := make([]byte, total)
	for i := range buf {
		buf[i] = 0xff
	}
	return &Device{base: base, sizes: append([]uint32(nil), pageSizes...), buf: buf}
}

func (d *Device) PageCount() int { return len(d.sizes) }

func (d *Device) PageAddr(page int) uint32 {
	a := d.base
	for i := 0; i < page && i < len(d.sizes); i++ {
		a += d.sizes[i]
	}
	return a
}

func (d *Device) PageSize(page int) uint32 {
	if page < 0 || page >= len(d.sizes) {
		return 0
	}
	return d.sizes[page]
}

func (d *Device) ErasePage(page int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.EraseCalls++
	if d.FailErase {
		return errcode.EraseFailed
	}
	size := d.PageSize(page)
	if size == 0 {
		return errcode.BadAddress
	}
	off := d.PageAddr(page) - d.base
	for i := off; i < off+size; i++ {
		d.buf[i] = 0xff
	}
	return nil
}

func (d *Device) Write(addr uint32, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.WriteCalls++
	if !d.unlocked {
		return errcode.FlashLocked
	}
	if d.FailWrites > 0 {
		d.FailWrites--
		return errcode.WriteFailed
	}
	if addr%align != 0 || len(p)%align != 0 {
		return errcode.BadAddress
	}
	off, ok := d.offset(addr, len(p))
	if !ok {
		return errcode.BadAddress
	}
	copy(d.buf[off:], p)
	return nil
}

func (d *Device) Read(addr uint32, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	off, ok := d.offset(addr, len(p))
	if !ok {
		return errcode.BadAddress
	}
	copy(p, d.buf[off:])
	return nil
}

func (d *Device) SetWriteUnlocked(unlocked bool) {
	d.mu.Lock()
	d.unlocked = unlocked
	d.mu.Unlock()
}

// Unlocked reports the current gate state (test hook).
func (d *Device) Unlocked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unlocked
}

// Bytes copies out the content window starting at addr (test hook).
func (d *Device) Bytes(addr uint32, n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	off, ok := d.offset(addr, n)
	if !ok {
		return nil
	}
	return append([]byte(nil), d.buf[off:off+uint32(n)]...)
}

// Preload writes raw content bypassing the gate and counters, to set up a
// resident state.
func (d *Device) Preload(addr uint32, p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if off, ok := d.offset(addr, len(p)); ok {
		copy(d.buf[off:], p)
	}
}

func (d *Device) offset(addr uint32, n int) (uint32, bool) {
	if addr < d.base {
		return 0, false
	}
	off := uint64(addr - d.base)
	if off+uint64(n) > uint64(len(d.buf)) {
		return 0, false
	}
	return uint32(off), true
}
