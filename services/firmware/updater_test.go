package firmware

import (
	"bytes"
	"testing"

	"bootcode-go/drivers/memflash"
	"bootcode-go/params"
)

func newUpdater(dev *memflash.Device, image []byte, st ParamStore) (*Updater, *fakeStore, *fakeSched, *diagBuf) {
	store := &fakeStore{images: map[string][]byte{}}
	if image != nil {
		store.images[DefaultImageName] = image
	}
	sched := &fakeSched{}
	diag := &diagBuf{}
	up := New(dev, store, sched, diag, Config{Params: st})
	return up, store, sched, diag
}

func TestUpdateNotAvailable(t *testing.T) {
	dev := memflash.New(base, 16384)
	up, store, _, diag := newUpdater(dev, nil, nil)

	if r := up.Update(); r != ResultNotAvailable {
		t.Fatalf("result = %v", r)
	}
	if store.releases != 1 {
		t.Fatalf("releases = %d", store.releases)
	}
	if !diag.contains("failed to find bootloader.bin") {
		t.Fatalf("diag lines: %v", diag.lines)
	}
	if dev.EraseCalls != 0 || dev.WriteCalls != 0 {
		t.Fatal("flash touched with no image")
	}
}

func TestUpdateFullRewrite(t *testing.T) {
	dev := memflash.New(base, 16384)
	raw := pattern(4100, 7) // deliberately unaligned
	up, store, sched, diag := newUpdater(dev, raw, nil)

	if r := up.Update(); r != ResultOK {
		t.Fatalf("result = %v", r)
	}
	if !bytes.Equal(dev.Bytes(base, len(raw)), raw) {
		t.Fatal("image content mismatch")
	}
	// Padding past the raw end is the erased value.
	pad := dev.Bytes(base+4100, 28)
	for _, c := range pad {
		if c != 0xff {
			t.Fatalf("padding byte %#x", c)
		}
	}
	if store.releases != 1 {
		t.Fatalf("releases = %d", store.releases)
	}
	if len(sched.expects) == 0 || sched.expects[0] != updateTimeBound {
		t.Fatalf("first expect = %v", sched.expects)
	}
	if !diag.contains("Flash OK") {
		t.Fatalf("diag lines: %v", diag.lines)
	}
}

func TestUpdateNoChangeOnSecondRun(t *testing.T) {
	dev := memflash.New(base, 16384)
	raw := pattern(4100, 7)
	up, store, _, diag := newUpdater(dev, raw, nil)

	if r := up.Update(); r != ResultOK {
		t.Fatalf("first result = %v", r)
	}
	erases, writes := dev.EraseCalls, dev.WriteCalls
	if r := up.Update(); r != ResultNoChange {
		t.Fatalf("second result = %v", r)
	}
	if dev.EraseCalls != erases || dev.WriteCalls != writes {
		t.Fatal("up-to-date run touched flash")
	}
	if store.releases != 2 {
		t.Fatalf("releases = %d", store.releases)
	}
	if !diag.contains("Bootloader up-to-date") {
		t.Fatalf("diag lines: %v", diag.lines)
	}
}

func TestUpdateParamsChangeForcesRewrite(t *testing.T) {
	dev := memflash.New(base, 16384)
	raw := pattern(4096, 7)
	st := params.NewStore()
	st.Set("INS_ACC1_CALTEMP", 37.5)
	st.SetPersistent("INS_ACC1_CALTEMP", true)
	up, _, _, _ := newUpdater(dev, raw, st)

	if r := up.Update(); r != ResultOK {
		t.Fatalf("first result = %v", r)
	}
	blob := serializeParams(st)
	tail := base + 16384 - uint32(len(blob))
	if !bytes.Equal(dev.Bytes(tail, len(blob)), blob) {
		t.Fatal("blob not stored at page tail")
	}

	if r := up.Update(); r != ResultNoChange {
		t.Fatalf("unchanged params result = %v", r)
	}

	st.Set("INS_ACC1_CALTEMP", 21.0)
	if r := up.Update(); r != ResultOK {
		t.Fatalf("changed params result = %v", r)
	}
	blob = serializeParams(st)
	if !bytes.Equal(dev.Bytes(base+16384-uint32(len(blob)), len(blob)), blob) {
		t.Fatal("updated blob not stored")
	}
}

func TestUpdateFailed(t *testing.T) {
	dev := memflash.New(base, 16384)
	dev.FailWrites = maxWriteAttempts
	up, store, _, _ := newUpdater(dev, pattern(4096, 7), nil)

	if r := up.Update(); r != ResultFailed {
		t.Fatalf("result = %v", r)
	}
	if store.releases != 1 {
		t.Fatalf("releases = %d", store.releases)
	}
}

func TestApplyPersistentParams(t *testing.T) {
	dev := memflash.New(base, 16384)
	src := params.NewStore()
	src.Set("a", 1)
	src.SetPersistent("a", true)
	src.Set("b", 2.5)
	src.SetPersistent("b", true)
	up, _, _, _ := newUpdater(dev, pattern(4096, 7), src)
	if r := up.Update(); r != ResultOK {
		t.Fatalf("seed result = %v", r)
	}

	// A fresh boot: new store, same flash.
	dst := params.NewStore()
	diag := &diagBuf{}
	up2 := New(dev, &fakeStore{images: map[string][]byte{}}, &fakeSched{}, diag, Config{Params: dst})
	if n := up2.ApplyPersistentParams(); n != 2 {
		t.Fatalf("applied %d", n)
	}
	if v, _ := dst.Get("a"); v != 1 {
		t.Fatalf("a = %v", v)
	}
	if v, _ := dst.Get("b"); v != 2.5 {
		t.Fatalf("b = %v", v)
	}
	if !diag.contains("Loaded 2 persistent parameters") {
		t.Fatalf("diag lines: %v", diag.lines)
	}
}

func TestApplyPersistentParamsEmptyFlash(t *testing.T) {
	dev := memflash.New(base, 16384)
	up, _, _, _ := newUpdater(dev, nil, params.NewStore())
	if n := up.ApplyPersistentParams(); n != 0 {
		t.Fatalf("applied %d from erased flash", n)
	}
}

func TestResultStrings(t *testing.T) {
	cases := map[Result]string{
		ResultOK:           "ok",
		ResultNoChange:     "no_change",
		ResultNotAvailable: "not_available",
		ResultFailed:       "failed",
	}
	for r, want := range cases {
		if r.String() != want {
			t.Fatalf("%d.String() = %s", r, r.String())
		}
		if string(r.Wire()) != want {
			t.Fatalf("%d.Wire() = %s", r, r.Wire())
		}
	}
}
