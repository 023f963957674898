package core

import "sync"

// SessionState is the role a connection has taken on.
type SessionState int

const (
	// StateUnauthenticated is the initial state of every connection.
	StateUnauthenticated SessionState = iota
	// StateHost is a connection that proved ownership of its room.
	StateHost
	// StateGuest is a connection subscribed to a room's broadcasts.
	StateGuest
	// StateInvalid is terminal: every further frame is rejected.
	StateInvalid
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateHost:
		return "host"
	case StateGuest:
		return "guest"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

const defaultSendQueueSize = 64

// Session is the per-connection state. State and room are owned by the goroutine
// that feeds the session to Engine.Handle; Send may be called from any goroutine.
type Session struct {
	ID string

	state SessionState
	room  string

	events    chan *Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession constructs an unauthenticated session with a bounded outbound queue.
func NewSession(id string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = defaultSendQueueSize
	}
	return &Session{
		ID:     id,
		events: make(chan *Event, queueSize),
		done:   make(chan struct{}),
	}
}

// State returns the current role of the session.
func (s *Session) State() SessionState { return s.state }

// Room returns the room the session is bound to, if any.
func (s *Session) Room() string { return s.room }

// Events is drained by the connection writer.
func (s *Session) Events() <-chan *Event { return s.events }

// Done is closed once the connection is gone.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send queues an event without blocking. It returns false if the queue is full or
// the session is closed.
func (s *Session) Send(ev *Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
