package firmware

import (
	"context"
	"testing"
	"time"

	"bootcode-go/bus"
	"bootcode-go/drivers/memflash"
	"bootcode-go/types"
)

func recvState(t *testing.T, sub *bus.Subscription) types.FirmwareState {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		st, ok := msg.Payload.(types.FirmwareState)
		if !ok {
			t.Fatalf("payload %T", msg.Payload)
		}
		return st
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
	}
	return types.FirmwareState{}
}

func TestServiceControlUpdate(t *testing.T) {
	b := bus.NewBus(16)
	dev := memflash.New(base, 16384)
	store := &fakeStore{images: map[string][]byte{DefaultImageName: pattern(4096, 7)}}
	up := New(dev, store, &fakeSched{}, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewService(up).Start(ctx, b.NewConnection("firmware"))

	client := b.NewConnection("test")
	stateSub := client.Subscribe(bus.T("firmware", "state"))
	if st := recvState(t, stateSub); st.Status != "awaiting_update" {
		t.Fatalf("initial state %+v", st)
	}

	replyTopic := bus.T("test", "reply", "1")
	replySub := client.Subscribe(replyTopic)
	client.Publish(&bus.Message{Topic: bus.T("firmware", "control", "update"), ReplyTo: replyTopic})

	if st := recvState(t, stateSub); st.Status != "in_progress" {
		t.Fatalf("state %+v", st)
	}
	st := recvState(t, stateSub)
	if st.Status != "done" || st.Result != types.UpdateOK {
		t.Fatalf("state %+v", st)
	}

	select {
	case msg := <-replySub.Channel():
		rep, ok := msg.Payload.(types.UpdateReply)
		if !ok || !rep.OK || rep.Result != types.UpdateOK {
			t.Fatalf("reply %+v", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}
}

func TestServiceReportsNotAvailable(t *testing.T) {
	b := bus.NewBus(16)
	dev := memflash.New(base, 16384)
	up := New(dev, &fakeStore{images: map[string][]byte{}}, &fakeSched{}, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewService(up).Start(ctx, b.NewConnection("firmware"))

	client := b.NewConnection("test")
	stateSub := client.Subscribe(bus.T("firmware", "state"))
	recvState(t, stateSub) // loop is listening once the first state is out

	replyTopic := bus.T("test", "reply", "2")
	replySub := client.Subscribe(replyTopic)
	client.Publish(&bus.Message{Topic: bus.T("firmware", "control", "update"), ReplyTo: replyTopic})

	select {
	case msg := <-replySub.Channel():
		rep := msg.Payload.(types.UpdateReply)
		if rep.OK || rep.Result != types.UpdateNotAvailable {
			t.Fatalf("reply %+v", rep)
		}
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}
}

func TestServiceConfigSetsImageAndAutoUpdates(t *testing.T) {
	b := bus.NewBus(16)
	dev := memflash.New(base, 16384)
	image := pattern(4096, 3)
	store := &fakeStore{images: map[string][]byte{"alt.bin": image}}
	up := New(dev, store, &fakeSched{}, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewService(up).Start(ctx, b.NewConnection("firmware"))

	client := b.NewConnection("test")
	stateSub := client.Subscribe(bus.T("firmware", "state"))
	recvState(t, stateSub) // initial

	client.Publish(&bus.Message{
		Topic:   bus.T("config", "firmware"),
		Payload: types.FirmwareConfig{ImageName: "alt.bin", AutoUpdate: true},
	})

	recvState(t, stateSub) // in_progress
	st := recvState(t, stateSub)
	if st.Result != types.UpdateOK {
		t.Fatalf("state %+v", st)
	}
	if got := dev.Bytes(base, len(image)); string(got) != string(image) {
		t.Fatal("configured image not flashed")
	}
}

func TestServiceRetainedStateForLateSubscriber(t *testing.T) {
	b := bus.NewBus(16)
	dev := memflash.New(base, 16384)
	up := New(dev, &fakeStore{images: map[string][]byte{}}, &fakeSched{}, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewService(up).Start(ctx, b.NewConnection("firmware"))

	// Give the loop a moment to publish its first retained state.
	deadline := time.Now().Add(time.Second)
	for {
		client := b.NewConnection("late")
		sub := client.Subscribe(bus.T("firmware", "state"))
		select {
		case msg := <-sub.Channel():
			if !msg.Retained {
				t.Fatal("state not retained")
			}
			client.Disconnect()
			return
		case <-time.After(10 * time.Millisecond):
		}
		client.Disconnect()
		if time.Now().After(deadline) {
			t.Fatal("no retained state")
		}
	}
}

func TestServiceStopsOnCancel(t *testing.T) {
	b := bus.NewBus(16)
	dev := memflash.New(base, 16384)
	up := New(dev, &fakeStore{images: map[string][]byte{}}, &fakeSched{}, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	NewService(up).Start(ctx, b.NewConnection("firmware"))

	client := b.NewConnection("test")
	stateSub := client.Subscribe(bus.T("firmware", "state"))
	recvState(t, stateSub) // initial

	cancel()
	if st := recvState(t, stateSub); st.Level != "stopped" {
		t.Fatalf("state %+v", st)
	}
}
