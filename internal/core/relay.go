package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ephroom/internal/metrics"
	"github.com/vovakirdan/ephroom/internal/store"
)

// Engine drives the per-connection state machine and bridges bus deliveries to the
// guests registered in its Directory.
type Engine struct {
	registry RoomRegistry
	bus      store.Bus
	dir      *Directory
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewEngine wires an engine. A nil directory gets a fresh one; a nil logger
// disables logging; nil metrics record nothing.
func NewEngine(registry RoomRegistry, bus store.Bus, dir *Directory, m *metrics.Metrics, logger *zerolog.Logger) *Engine {
	if dir == nil {
		dir = NewDirectory()
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "relay").Logger()
	}
	return &Engine{
		registry: registry,
		bus:      bus,
		dir:      dir,
		metrics:  m,
		log:      log,
	}
}

// Directory returns the subscriber directory the engine delivers to.
func (e *Engine) Directory() *Directory { return e.dir }

// Handle applies one inbound command to the session. Calls for the same session
// must be sequential.
func (e *Engine) Handle(ctx context.Context, s *Session, cmd *Command) {
	if s.state == StateInvalid {
		s.Send(ErrorEvent(ErrCodeInvalid))
		return
	}

	switch {
	case cmd.Kind == CommandHostKeepAlive && s.state == StateUnauthenticated:
		e.keepAlive(ctx, s, cmd.Room, cmd.Body)
	case cmd.Kind == CommandHostKeepAlive && s.state == StateHost && cmd.Room == s.room:
		e.keepAlive(ctx, s, cmd.Room, cmd.Body)
	case cmd.Kind == CommandSendRoom && s.state == StateHost:
		e.publish(ctx, s, cmd.Body)
	case cmd.Kind == CommandConnectGuest && s.state == StateUnauthenticated && cmd.Room != "":
		e.joinGuest(s, cmd.Room)
	default:
		e.metrics.FrameIgnored()
		e.log.Debug().
			Str("conn_id", s.ID).
			Str("state", s.state.String()).
			Str("type", cmd.Kind.String()).
			Str("room_id", cmd.Room).
			Msg("ignoring frame")
	}
}

func (e *Engine) keepAlive(ctx context.Context, s *Session, roomID, token string) {
	ok, err := e.registry.ValidateAndRefresh(ctx, roomID, token)
	if err != nil {
		e.log.Warn().Err(err).Str("conn_id", s.ID).Str("room_id", roomID).Msg("keep-alive validation failed")
	}
	if !ok {
		if s.state == StateHost {
			e.metrics.HostLeft()
		}
		s.state = StateInvalid
		e.metrics.InvalidKey()
		s.Send(ErrorEvent(ErrCodeInvalidRoomKey))
		e.log.Info().Str("conn_id", s.ID).Str("room_id", roomID).Msg("invalid room key")
		return
	}

	if s.state == StateUnauthenticated {
		s.state = StateHost
		s.room = roomID
		e.metrics.HostJoined()
		e.log.Info().Str("conn_id", s.ID).Str("room_id", roomID).Msg("host authenticated")
		return
	}
	e.log.Debug().Str("conn_id", s.ID).Str("room_id", roomID).Msg("host keep-alive")
}

func (e *Engine) publish(ctx context.Context, s *Session, body string) {
	err := e.bus.Publish(ctx, RoomChannel(s.room), body)
	e.metrics.Published(err)
	if err != nil {
		e.log.Warn().Err(err).Str("conn_id", s.ID).Str("room_id", s.room).Msg("publish failed")
		return
	}
	e.log.Debug().Str("conn_id", s.ID).Str("room_id", s.room).Int("bytes", len(body)).Msg("published")
}

func (e *Engine) joinGuest(s *Session, roomID string) {
	s.state = StateGuest
	s.room = roomID
	if e.dir.Add(roomID, s) {
		e.metrics.GuestJoined()
	}
	e.log.Info().Str("conn_id", s.ID).Str("room_id", roomID).Msg("guest connected")
}

// Disconnect tears down the session: a host's room is deleted, a guest leaves the
// directory. It must be called once the connection stops reading.
func (e *Engine) Disconnect(ctx context.Context, s *Session) {
	s.close()

	switch s.state {
	case StateHost:
		e.metrics.HostLeft()
		if err := e.registry.DeleteRoom(ctx, s.room); err != nil {
			e.log.Warn().Err(err).Str("conn_id", s.ID).Str("room_id", s.room).Msg("failed to delete room")
			return
		}
		e.metrics.RoomDeleted()
		e.log.Info().Str("conn_id", s.ID).Str("room_id", s.room).Msg("host left, room closed")
	case StateGuest:
		if e.dir.Remove(s.room, s) {
			e.metrics.GuestLeft()
		}
		e.log.Debug().Str("conn_id", s.ID).Str("room_id", s.room).Msg("guest left")
	}
}

// Listen subscribes to every room channel on the bus. The subscription is live
// when Listen returns.
func (e *Engine) Listen(ctx context.Context) (<-chan store.Message, error) {
	deliveries, err := e.bus.PSubscribe(ctx, RoomChannelPattern())
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("pattern", RoomChannelPattern()).Msg("subscribed to room channels")
	return deliveries, nil
}

// Run fans bus deliveries out to guests until ctx is done. It returns ErrBusClosed
// if the subscription ends first.
func (e *Engine) Run(ctx context.Context, deliveries <-chan store.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrBusClosed
			}
			e.deliver(msg)
		}
	}
}

func (e *Engine) deliver(msg store.Message) {
	e.metrics.BusDelivery()

	roomID, ok := RoomFromChannel(msg.Channel)
	if !ok {
		e.log.Debug().Str("channel", msg.Channel).Msg("dropping delivery outside room namespace")
		return
	}

	ev := &Event{Kind: EventBroadcast, Body: msg.Payload}
	delivered, dropped := 0, 0
	e.dir.ForEach(roomID, func(s *Session) {
		if s.Send(ev) {
			delivered++
			return
		}
		dropped++
	})
	e.metrics.Fanout(delivered, dropped)

	if dropped > 0 {
		e.log.Warn().Str("room_id", roomID).Int("dropped", dropped).Msg("guest queues full, frames dropped")
	}
	e.log.Debug().Str("room_id", roomID).Int("guests", delivered).Msg("broadcast delivered")
}
