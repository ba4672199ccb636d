// services/supervisor/supervisor.go
package supervisor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"bootcode-go/bus"
	"bootcode-go/types"
	"bootcode-go/x/timex"
)

var (
	topicConfig = bus.T("config", "supervisor")
	topicState  = bus.T("supervisor", "state")
)

const (
	defaultTick  = time.Second
	defaultGrace = 2 * time.Second
)

// Service watches liveness of the workers it supervises. Workers call Kick
// periodically; before a long hardware-timed operation they call ExpectDelay
// so the stall is not misread as a hang. State transitions are published
// retained on supervisor/state.
type Service struct {
	mu       sync.Mutex
	deadline time.Time
	grace    time.Duration
	tick     time.Duration
}

func New(cfg types.SupervisorConfig) *Service {
	s := &Service{grace: defaultGrace, tick: defaultTick}
	if cfg.GraceMs > 0 {
		s.grace = time.Duration(cfg.GraceMs) * time.Millisecond
	}
	if cfg.TickMs > 0 {
		s.tick = time.Duration(cfg.TickMs) * time.Millisecond
	}
	s.Kick()
	return s
}

// Kick refreshes the liveness deadline.
func (s *Service) Kick() {
	s.mu.Lock()
	s.deadline = time.Now().Add(s.grace)
	s.mu.Unlock()
}

// ExpectDelay extends the deadline to cover an operation expected to block
// for up to d. A shorter expectation never shrinks an existing deadline.
func (s *Service) ExpectDelay(d time.Duration) {
	s.mu.Lock()
	if dl := time.Now().Add(d + s.grace); dl.After(s.deadline) {
		s.deadline = dl
	}
	s.mu.Unlock()
}

// Delay sleeps for d with the deadline already extended, so the sleep itself
// cannot trip the watchdog.
func (s *Service) Delay(d time.Duration) {
	s.ExpectDelay(d)
	time.Sleep(d)
}

func (s *Service) stalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().After(s.deadline)
}

func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.loop(ctx, conn)
}

func (s *Service) loop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)

	publish := func(level, status string) {
		conn.Publish(&bus.Message{
			Topic:    topicState,
			Payload:  types.SupervisorState{Level: level, Status: status, TS: timex.NowMs()},
			Retained: true,
		})
	}

	level := "live"
	publish(level, "started")

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			publish("stopped", "context_cancelled")
			return

		case msg := <-cfgSub.Channel():
			var cfg types.SupervisorConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				continue
			}
			s.mu.Lock()
			if cfg.GraceMs > 0 {
				s.grace = time.Duration(cfg.GraceMs) * time.Millisecond
			}
			s.mu.Unlock()
			if cfg.TickMs > 0 {
				s.mu.Lock()
				s.tick = time.Duration(cfg.TickMs) * time.Millisecond
				s.mu.Unlock()
				ticker.Reset(s.tick)
			}

		case <-ticker.C:
			next := "live"
			if s.stalled() {
				next = "stalled"
			}
			if next != level {
				level = next
				publish(level, "deadline_check")
			}
		}
	}
}

func decodeJSON(payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
