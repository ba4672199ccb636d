// Command fw-host-demo: full bring-up on the host against an in-memory
// flash. Seeds an embedded image and a persistent parameter, runs one update,
// then shows the second attempt resolving to up-to-date.
//
// Run:
//   go run ./cmd/fw-host-demo

package main

import (
	"context"
	"fmt"
	"time"

	"bootcode-go/bus"
	"bootcode-go/drivers/memflash"
	"bootcode-go/params"
	"bootcode-go/romfs"
	"bootcode-go/services/config"
	"bootcode-go/services/firmware"
	"bootcode-go/services/supervisor"
	"bootcode-go/types"
)

func main() {
	fmt.Println("\n== bootcode: host demo (firmware update + param preservation) ==")

	// Fake hardware: three 16 KiB sectors, bootloader in the first.
	dev := memflash.New(0x0800_0000, 16384, 16384, 16384)

	// Embedded image, as the build system would ship it.
	image := make([]byte, 4000)
	for i := range image {
		image[i] = byte(i * 7)
	}
	romfs.Register(firmware.DefaultImageName, romfs.Pack(image))

	// A calibration value worth keeping across reflashes.
	st := params.NewStore()
	st.Set("INS_ACC1_CALTEMP", 37.5)
	st.SetPersistent("INS_ACC1_CALTEMP", true)

	b := bus.NewBus(64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := supervisor.New(types.SupervisorConfig{})
	sup.Start(ctx, b.NewConnection("supervisor"))

	up := firmware.New(dev, romfs.Store{}, sup, firmware.DiagFunc(func(s string) {
		fmt.Println("[fw]", s)
	}), firmware.Config{Params: st})
	firmware.NewService(up).Start(ctx, b.NewConnection("firmware"))

	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, "pico-fw")
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	conn := b.NewConnection("main")
	stateSub := conn.Subscribe(bus.T("firmware", "state"))
	defer conn.Unsubscribe(stateSub)

	waitStatus(stateSub, "awaiting_update")

	fmt.Println("-- first attempt (sector erased)")
	fmt.Println("   result:", requestUpdate(conn))

	fmt.Println("-- second attempt (nothing changed)")
	fmt.Println("   result:", requestUpdate(conn))

	// A fresh boot would read the stored defaults back out of the sector.
	fresh := params.NewStore()
	up2 := firmware.New(dev, romfs.Store{}, sup, nil, firmware.Config{Params: fresh})
	up2.ApplyPersistentParams()
	v, _ := fresh.Get("INS_ACC1_CALTEMP")
	fmt.Println("-- preserved across reflash: INS_ACC1_CALTEMP =", v)
}

func requestUpdate(conn *bus.Connection) types.UpdateResult {
	replyTopic := bus.T("main", "reply")
	sub := conn.Subscribe(replyTopic)
	defer conn.Unsubscribe(sub)

	conn.Publish(&bus.Message{
		Topic:   bus.T("firmware", "control", "update"),
		ReplyTo: replyTopic,
	})
	select {
	case msg := <-sub.Channel():
		if rep, ok := msg.Payload.(types.UpdateReply); ok {
			return rep.Result
		}
	case <-time.After(15 * time.Second):
	}
	return types.UpdateFailed
}

func waitStatus(sub *bus.Subscription, status string) {
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-sub.Channel():
			if st, ok := msg.Payload.(types.FirmwareState); ok && st.Status == status {
				return
			}
		case <-deadline:
			return
		}
	}
}
