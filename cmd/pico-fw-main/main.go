//go:build rp2040

// Command pico-fw-main: firmware updater bring-up on RP2040/Pico. The
// bootloader sector lives at the start of the flash data area; progress is
// reported on UART0.
//
// Build/flash (TinyGo):
//   tinygo flash -target pico ./cmd/pico-fw-main

package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"bootcode-go/bus"
	"bootcode-go/errcode"
	"bootcode-go/params"
	"bootcode-go/romfs"
	"bootcode-go/services/config"
	"bootcode-go/services/firmware"
	"bootcode-go/services/supervisor"
	"bootcode-go/types"
)

// bootSectors is the number of erase blocks reserved for the bootloader
// image plus the persistent parameter blob.
const bootSectors = 4

// boardFlash exposes the RP2040 flash data area as an erase-page table.
// The chip has no hardware write gate, so the gate is kept in software.
type boardFlash struct {
	unlocked bool
}

func (f *boardFlash) PageCount() int { return bootSectors }

func (f *boardFlash) PageAddr(page int) uint32 {
	return uint32(machine.FlashDataStart()) + uint32(page)*f.blockSize()
}

func (f *boardFlash) PageSize(page int) uint32 {
	if page < 0 || page >= bootSectors {
		return 0
	}
	return f.blockSize()
}

func (f *boardFlash) blockSize() uint32 {
	return uint32(machine.Flash.EraseBlockSize())
}

func (f *boardFlash) ErasePage(page int) error {
	return machine.Flash.EraseBlocks(int64(page), 1)
}

func (f *boardFlash) Write(addr uint32, p []byte) error {
	if !f.unlocked {
		return &errcode.E{C: errcode.FlashLocked, Op: "flash.write"}
	}
	_, err := machine.Flash.WriteAt(p, int64(addr-uint32(machine.FlashDataStart())))
	return err
}

func (f *boardFlash) Read(addr uint32, p []byte) error {
	_, err := machine.Flash.ReadAt(p, int64(addr-uint32(machine.FlashDataStart())))
	return err
}

func (f *boardFlash) SetWriteUnlocked(unlocked bool) { f.unlocked = unlocked }

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	console := uartx.UART0
	_ = console.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	diag := firmware.DiagFunc(func(s string) {
		_, _ = console.Write([]byte(s))
		_, _ = console.Write([]byte("\r\n"))
		println(s)
	})

	st := params.NewStore()

	b := bus.NewBus(16)
	ctx := context.Background()

	sup := supervisor.New(types.SupervisorConfig{})
	sup.Start(ctx, b.NewConnection("supervisor"))

	dev := &boardFlash{}
	up := firmware.New(dev, romfs.Store{}, sup, diag, firmware.Config{Params: st})
	firmware.NewService(up).Start(ctx, b.NewConnection("firmware"))

	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, "pico-fw")
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	conn := b.NewConnection("main")
	stateSub := conn.Subscribe(bus.T("firmware", "state"))

	// Kick the updater once the services have settled.
	time.Sleep(100 * time.Millisecond)
	conn.Publish(&bus.Message{Topic: bus.T("firmware", "control", "update")})

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case msg := <-stateSub.Channel():
			if s, ok := msg.Payload.(types.FirmwareState); ok {
				diag.Emit("state: " + s.Level + "/" + s.Status)
			}
		case <-tick.C:
			sup.Kick()
		}
	}
}
