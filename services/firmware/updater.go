// services/firmware/updater.go
package firmware

import (
	"time"

	"bootcode-go/x/fmtx"
	"bootcode-go/x/mathx"
	"bootcode-go/x/strx"
)

// DefaultImageName is the embedded image flashed when none is configured.
const DefaultImageName = "bootloader.bin"

// updateTimeBound covers one whole update attempt.
const updateTimeBound = 11 * time.Second

// Config carries the construction-time options of an Updater. Capabilities
// are optional collaborators: a nil Params disables persistent-parameter
// preservation.
type Config struct {
	ImageName string
	Params    ParamStore
}

// Updater orchestrates bootloader updates on a single flash sector shared
// between the image and the persistent parameter blob.
type Updater struct {
	flash  Device
	images ImageStore
	sched  Scheduler
	diag   Diag
	params ParamStore
	name   string
}

func New(flash Device, images ImageStore, sched Scheduler, diag Diag, cfg Config) *Updater {
	cfg.ImageName = strx.Coalesce(cfg.ImageName, DefaultImageName)
	if diag == nil {
		diag = DiagFunc(func(string) {})
	}
	return &Updater{
		flash:  flash,
		images: images,
		sched:  sched,
		diag:   diag,
		params: cfg.Params,
		name:   cfg.ImageName,
	}
}

// Update runs one attempt: acquire the candidate image, decide whether the
// sector content differs, rewrite it if so. Every failure resolves into the
// returned Result; flash is only touched when content actually differs.
func (u *Updater) Update() Result {
	u.sched.ExpectDelay(updateTimeBound)

	raw, ok := u.images.FindDecompress(u.name)
	defer u.images.Release(raw)
	if !ok {
		u.diag.Emit(fmtx.Sprintf("failed to find %s", u.name))
		return ResultNotAvailable
	}

	// Pad to the write granularity with the erased-cell value so the padded
	// tail still compares equal on the next boot.
	image := raw
	if n := int(mathx.AlignUp(uint32(len(raw)), flashAlign)); n != len(raw) {
		image = make([]byte, n)
		copy(image, raw)
		for i := len(raw); i < n; i++ {
			image[i] = 0xff
		}
	}

	var candidate, resident []byte
	if u.params != nil {
		candidate = serializeParams(u.params)
		resident = u.loadResidentParams()
	}

	if !needsUpdate(u.flash, image, candidate, resident) {
		u.diag.Emit("Bootloader up-to-date")
		return ResultNoChange
	}

	// A blob that does not fit behind the image is dropped rather than
	// overlapped onto it.
	if int64(len(candidate)) > int64(u.flash.PageSize(0))-int64(len(image)) {
		candidate = nil
	}

	seq := &sequencer{flash: u.flash, sched: u.sched, diag: u.diag, name: u.name}
	if err := seq.run(image, candidate); err != nil {
		return ResultFailed
	}
	return ResultOK
}

// loadResidentParams reads page 0 and scans it for the stored blob.
func (u *Updater) loadResidentParams() []byte {
	size := u.flash.PageSize(0)
	if size == 0 {
		return nil
	}
	buf := make([]byte, size)
	if err := u.flash.Read(u.flash.PageAddr(0), buf); err != nil {
		return nil
	}
	return locateParams(buf)
}

// ApplyPersistentParams injects the parameter defaults stored in the
// bootloader sector into the configuration store. Meant to run once at
// startup, before explicit settings are loaded on top.
func (u *Updater) ApplyPersistentParams() int {
	if u.params == nil {
		return 0
	}
	blob := u.loadResidentParams()
	if blob == nil {
		return 0
	}
	n := applyParams(blob, u.params)
	if n > 0 {
		u.diag.Emit(fmtx.Sprintf("Loaded %d persistent parameters", n))
	}
	return n
}
