// services/firmware/persist.go
package firmware

import (
	"bytes"

	"bootcode-go/x/strconvx"
)

// persistentHeader marks the start of the parameter blob inside the
// bootloader sector. The blob must be locatable by scanning raw flash after
// an arbitrary reprogramming, so it carries a fixed self-describing literal
// instead of an external length field.
const persistentHeader = "{{PERSISTENT_START_V1}}\n"

// flashAlign is the write granularity: every write and erase span is a
// multiple of 32 bytes.
const flashAlign = 32

// serializeParams renders the persistent parameters as "name=value\n" lines
// behind the header, space-padded to a multiple of flashAlign. Returns nil
// when there is nothing to persist, so the result is always either empty or
// aligned and strictly longer than the header.
func serializeParams(store ParamStore) []byte {
	ps := store.Persistable()
	if len(ps) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(persistentHeader)+16*len(ps))
	buf = append(buf, persistentHeader...)
	for _, p := range ps {
		buf = append(buf, p.Name...)
		buf = append(buf, '=')
		buf = append(buf, strconvx.FormatFloat(float64(p.Value), 'f', -1, 32)...)
		buf = append(buf, '\n')
	}
	for len(buf)%flashAlign != 0 {
		buf = append(buf, ' ')
	}
	return buf
}

// locateParams scans a raw page for the parameter blob. Returns the bytes
// from the first header occurrence to the end of the page, or nil when
// absent.
func locateParams(page []byte) []byte {
	i := bytes.Index(page, []byte(persistentHeader))
	if i < 0 {
		return nil
	}
	return page[i:]
}

// paramIter walks the "name=value" records of a located blob. Restartable
// via Reset. Records without '=' (including the space padding) and records
// whose value does not parse are skipped, never fatal.
type paramIter struct {
	blob []byte
	rest []byte
}

func newParamIter(blob []byte) *paramIter {
	it := &paramIter{blob: blob}
	it.Reset()
	return it
}

func (it *paramIter) Reset() {
	if bytes.HasPrefix(it.blob, []byte(persistentHeader)) {
		it.rest = it.blob[len(persistentHeader):]
	} else {
		it.rest = nil
	}
}

func (it *paramIter) Next() (name string, value float32, ok bool) {
	for len(it.rest) > 0 {
		line := it.rest
		if nl := bytes.IndexByte(it.rest, '\n'); nl >= 0 {
			line = it.rest[:nl]
			it.rest = it.rest[nl+1:]
		} else {
			it.rest = nil
		}
		eq := bytes.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		v, err := strconvx.ParseFloat(string(line[eq+1:]), 32)
		if err != nil {
			continue
		}
		return string(line[:eq]), float32(v), true
	}
	return "", 0, false
}

// applyParams injects each record of blob into the store as a default and
// returns the number applied. Explicit values are never overwritten.
func applyParams(blob []byte, store ParamStore) int {
	count := 0
	it := newParamIter(blob)
	for {
		name, v, ok := it.Next()
		if !ok {
			return count
		}
		if store.SetDefaultIfUnset(name, v) {
			count++
		}
	}
}
