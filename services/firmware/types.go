// services/firmware/types.go
package firmware

import (
	"time"

	"bootcode-go/types"
)

// Device is the flash abstraction the engine drives. Page 0 hosts the
// bootloader image and, optionally, the persistent parameter blob.
type Device interface {
	// PageCount returns the number of pages in the erase table.
	PageCount() int
	// PageAddr returns the base address of page.
	PageAddr(page int) uint32
	// PageSize returns the byte size of page, 0 past the end of the table.
	PageSize(page int) uint32
	ErasePage(page int) error
	Write(addr uint32, p []byte) error
	Read(addr uint32, p []byte) error
	// SetWriteUnlocked opens or closes the write-protection gate.
	SetWriteUnlocked(unlocked bool)
}

// ImageStore locates and decompresses embedded images. Release must accept
// the nil slice and is called exactly once per FindDecompress call.
type ImageStore interface {
	FindDecompress(name string) ([]byte, bool)
	Release(b []byte)
}

// Scheduler is told before operations that block for a bounded time, so
// liveness supervision does not classify the stall as a hang.
type Scheduler interface {
	ExpectDelay(d time.Duration)
	Delay(d time.Duration)
}

// Diag receives human-readable progress lines. Fire-and-forget.
type Diag interface {
	Emit(s string)
}

// DiagFunc adapts a function to Diag.
type DiagFunc func(s string)

func (f DiagFunc) Emit(s string) { f(s) }

// ParamStore is the configuration store consulted for persistent parameters.
type ParamStore interface {
	// Persistable enumerates the parameters to store, in stable order.
	Persistable() []types.NamedValue
	// SetDefaultIfUnset injects v as a default unless name was set
	// explicitly. Reports whether the default was applied.
	SetDefaultIfUnset(name string, v float32) bool
}

// Result is the terminal outcome of one update attempt.
type Result uint8

const (
	ResultOK Result = iota
	ResultNoChange
	ResultNotAvailable
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultNoChange:
		return "no_change"
	case ResultNotAvailable:
		return "not_available"
	default:
		return "failed"
	}
}

// Wire maps a Result onto the bus-facing enum.
func (r Result) Wire() types.UpdateResult {
	switch r {
	case ResultOK:
		return types.UpdateOK
	case ResultNoChange:
		return types.UpdateNoChange
	case ResultNotAvailable:
		return types.UpdateNotAvailable
	default:
		return types.UpdateFailed
	}
}
