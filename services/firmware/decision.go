// services/firmware/decision.go
package firmware

import (
	"bytes"

	"bootcode-go/x/mathx"
)

// residentEqual compares p against the flash content at addr in small chunks
// so the resident side is never copied whole. A read failure counts as a
// mismatch.
func residentEqual(dev Device, addr uint32, p []byte) bool {
	var buf [256]byte
	for off := 0; off < len(p); {
		n := mathx.Min(len(buf), len(p)-off)
		if err := dev.Read(addr+uint32(off), buf[:n]); err != nil {
			return false
		}
		if !bytes.Equal(buf[:n], p[off:off+n]) {
			return false
		}
		off += n
	}
	return true
}

// needsUpdate decides whether the sector must be rewritten. image is already
// padded to the write granularity; candidate and resident are the serialized
// and the currently stored parameter blobs (either may be nil). This step
// never mutates flash.
func needsUpdate(dev Device, image, candidate, resident []byte) bool {
	if !residentEqual(dev, dev.PageAddr(0), image) {
		return true
	}
	if len(candidate) == 0 {
		return false
	}
	// Changed parameters only force a rewrite when the blob fits behind the
	// image.
	space := int64(dev.PageSize(0)) - int64(len(image))
	if int64(len(candidate)) > space {
		return false
	}
	return !bytes.Equal(candidate, resident)
}
