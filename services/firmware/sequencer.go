// services/firmware/sequencer.go
package firmware

import (
	"time"

	"bootcode-go/errcode"
	"bootcode-go/x/fmtx"
)

// Rewrite timing. Erase and write are hardware-timed and can block on the
// order of a second, so the scheduler is warned before every call.
const (
	maxWriteAttempts = 10
	writeBackoff     = 100 * time.Millisecond
	eraseTimeBound   = time.Second
	writeTimeBound   = time.Second
)

type seqState uint8

const (
	seqIdle seqState = iota
	seqErasing
	seqWriting
	seqDone
)

// sequencer performs the erase/write/retry sequence on the bootloader
// sector. One-shot: a fresh sequencer is built per attempt.
type sequencer struct {
	flash Device
	sched Scheduler
	diag  Diag
	name  string
	state seqState
}

// run erases enough pages to cover image, then writes image at the sector
// base and blob (if non-empty) at the tail of page 0. Erase problems and an
// exhausted page table are fatal without retry; writes are retried up to
// maxWriteAttempts with a fixed backoff.
func (s *sequencer) run(image, blob []byte) error {
	if s.state != seqIdle {
		return &errcode.E{C: errcode.Busy, Op: "flash"}
	}
	addr := s.flash.PageAddr(0)

	s.state = seqErasing
	s.diag.Emit("Erasing")
	erased := uint32(0)
	for page := 0; erased < uint32(len(image)); page++ {
		size := s.flash.PageSize(page)
		if size == 0 {
			s.state = seqDone
			return &errcode.E{C: errcode.PageTableExhausted, Op: "erase"}
		}
		s.sched.ExpectDelay(eraseTimeBound)
		if err := s.flash.ErasePage(page); err != nil {
			s.diag.Emit(fmtx.Sprintf("Erase %d failed", page))
			s.state = seqDone
			return &errcode.E{C: errcode.EraseFailed, Op: "erase", Err: err}
		}
		erased += size
	}

	s.state = seqWriting
	s.diag.Emit(fmtx.Sprintf("Flashing %s @%x", s.name, addr))
	s.flash.SetWriteUnlocked(true)
	defer s.flash.SetWriteUnlocked(false)

	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		s.sched.ExpectDelay(writeTimeBound)
		if err := s.flash.Write(addr, image); err != nil {
			s.diag.Emit(fmtx.Sprintf("Flash failed! (attempt=%d/%d)", attempt, maxWriteAttempts))
			lastErr = err
			s.sched.Delay(writeBackoff)
			continue
		}
		s.diag.Emit("Flash OK")
		if len(blob) > 0 {
			// Best effort: the image itself is already in place.
			ofs := s.flash.PageSize(0) - uint32(len(blob))
			_ = s.flash.Write(addr+ofs, blob)
		}
		s.state = seqDone
		return nil
	}

	s.state = seqDone
	s.diag.Emit(fmtx.Sprintf("Flash failed after %d attempts", maxWriteAttempts))
	return &errcode.E{C: errcode.WriteFailed, Op: "write", Err: lastErr}
}
