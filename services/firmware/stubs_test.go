// services/firmware/stubs_test.go
package firmware

import (
	"time"
)

// fakeStore implements ImageStore and counts releases.
type fakeStore struct {
	images   map[string][]byte
	releases int
}

func (f *fakeStore) FindDecompress(name string) ([]byte, bool) {
	b, ok := f.images[name]
	return b, ok
}

func (f *fakeStore) Release(b []byte) { f.releases++ }

// fakeSched records expect-delay hints and backoff sleeps without sleeping.
type fakeSched struct {
	expects []time.Duration
	delays  []time.Duration
}

func (f *fakeSched) ExpectDelay(d time.Duration) { f.expects = append(f.expects, d) }
func (f *fakeSched) Delay(d time.Duration)       { f.delays = append(f.delays, d) }

// diagBuf collects emitted lines.
type diagBuf struct{ lines []string }

func (d *diagBuf) Emit(s string) { d.lines = append(d.lines, s) }

func (d *diagBuf) contains(s string) bool {
	for _, l := range d.lines {
		if l == s {
			return true
		}
	}
	return false
}

func pattern(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}
