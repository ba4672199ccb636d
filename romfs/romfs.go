// romfs/romfs.go
package romfs

import (
	"bytes"
	"compress/gzip"
	"io"
	"sync"
)

// romfs is a read-only registry of gzip-compressed embedded files, the way a
// build embeds the bootloader image next to the application. Entries are
// registered once at init time and decompressed on demand.

var (
	mu    sync.RWMutex
	files = map[string][]byte{}
)

// Register adds a gzip-compressed entry under name. Later registrations of
// the same name replace earlier ones.
func Register(name string, gz []byte) {
	mu.Lock()
	files[name] = gz
	mu.Unlock()
}

// Pack gzip-compresses b, producing an entry suitable for Register.
func Pack(b []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil
	}
	if err := w.Close(); err != nil {
		return nil
	}
	return buf.Bytes()
}

// Store hands out decompressed entries. It satisfies the image-store contract
// of the firmware service.
type Store struct{}

// FindDecompress looks name up and inflates it. The checksum of the stream is
// verified before the bytes are handed out.
func (Store) FindDecompress(name string) ([]byte, bool) {
	mu.RLock()
	gz, ok := files[name]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	r, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, false
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, false
	}
	if err := r.Close(); err != nil {
		return nil, false
	}
	return out, true
}

// Release returns a buffer obtained from FindDecompress. Buffers here are
// garbage collected, so this is a no-op; nil is accepted.
func (Store) Release(b []byte) {}
