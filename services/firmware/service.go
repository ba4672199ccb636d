// services/firmware/service.go
package firmware

import (
	"context"
	"encoding/json"

	"bootcode-go/bus"
	"bootcode-go/types"
	"bootcode-go/x/timex"
)

var (
	topicConfig  = bus.T("config", "firmware")
	topicControl = bus.T("firmware", "control", "update")
	topicState   = bus.T("firmware", "state")
)

// Service exposes the updater over the bus: retained state on
// firmware/state, one update attempt per firmware/control/update message.
// Attempts run inside the service loop, so only one is ever in flight.
type Service struct {
	up *Updater
}

func NewService(up *Updater) *Service { return &Service{up: up} }

func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.loop(ctx, conn)
}

func (s *Service) loop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	ctrlSub := conn.Subscribe(topicControl)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(ctrlSub)

	// Stored defaults from the bootloader sector go in before any explicit
	// configuration arrives.
	s.up.ApplyPersistentParams()

	s.publishState(conn, "idle", "awaiting_update", "")

	for {
		select {
		case <-ctx.Done():
			s.publishState(conn, "stopped", "context_cancelled", "")
			return

		case msg := <-cfgSub.Channel():
			var cfg types.FirmwareConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState(conn, "error", "config_decode_failed", "")
				continue
			}
			if cfg.ImageName != "" {
				s.up.name = cfg.ImageName
			}
			if cfg.AutoUpdate {
				s.runUpdate(conn, nil)
			}

		case msg := <-ctrlSub.Channel():
			s.runUpdate(conn, msg)
		}
	}
}

func (s *Service) runUpdate(conn *bus.Connection, req *bus.Message) {
	s.publishState(conn, "updating", "in_progress", "")
	res := s.up.Update().Wire()
	s.publishState(conn, "idle", "done", res)
	if req != nil && req.ReplyTo != nil {
		conn.Publish(&bus.Message{
			Topic: req.ReplyTo,
			Payload: types.UpdateReply{
				OK:     res == types.UpdateOK || res == types.UpdateNoChange,
				Result: res,
			},
		})
	}
}

func (s *Service) publishState(conn *bus.Connection, level, status string, res types.UpdateResult) {
	conn.Publish(&bus.Message{
		Topic: topicState,
		Payload: types.FirmwareState{
			Level:  level,
			Status: status,
			Result: res,
			TS:     timex.NowMs(),
		},
		Retained: true,
	})
}

// decodeJSON round-trips a JSON-like bus payload into a typed struct.
func decodeJSON(payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
