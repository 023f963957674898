// Package memory implements store.Store in process memory. It serves single-node
// deployments and tests; relay instances do not share anything through it.
package memory

import (
	"context"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/vovakirdan/ephroom/internal/store"
)

const defaultSubscriberBuffer = 256

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("memory store closed")

type entry struct {
	value     string
	expiresAt time.Time
}

// Store keeps keys in a map with lazy expiry and fans published messages out to
// in-process pattern subscribers.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	closed  bool

	subMu sync.RWMutex
	subs  map[*subscriber]struct{}

	now    func() time.Time
	buffer int
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, letting tests move expiry forward.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSubscriberBuffer sets the delivery buffer of each subscription.
func WithSubscriberBuffer(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		subs:    make(map[*subscriber]struct{}),
		now:     time.Now,
		buffer:  defaultSubscriberBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

// lookup returns the live entry for key, dropping it if expired. Caller holds s.mu.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

// Get implements store.KV.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	e, ok := s.lookup(key)
	if !ok {
		return "", store.ErrNotFound
	}
	return e.value, nil
}

// SetNX implements store.KV.
func (s *Store) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Expire implements store.KV.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	e, ok := s.lookup(key)
	if !ok {
		return false, nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.entries[key] = e
	return true, nil
}

// Delete implements store.KV.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.entries, key)
	return nil
}

// TTL returns the remaining lifetime of key, or false if it is absent.
func (s *Store) TTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return 0, false
	}
	return e.expiresAt.Sub(s.now()), true
}

// Publish implements store.Bus. Delivery blocks per subscriber until its buffer has
// room or the subscription ends, preserving per-channel order.
func (s *Store) Publish(ctx context.Context, channel, message string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	s.subMu.RLock()
	targets := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		if sub.matches(channel) {
			targets = append(targets, sub)
		}
	}
	s.subMu.RUnlock()

	msg := store.Message{Channel: channel, Payload: message}
	for _, sub := range targets {
		if err := sub.deliver(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// PSubscribe implements store.Bus. Patterns use path.Match glob syntax, which
// covers the `prefix:*` form used for room channels.
func (s *Store) PSubscribe(ctx context.Context, pattern string) (<-chan store.Message, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	sub := &subscriber{
		pattern: pattern,
		ch:      make(chan store.Message, s.buffer),
		done:    make(chan struct{}),
	}
	s.subMu.Lock()
	s.subs[sub] = struct{}{}
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.unsubscribe(sub)
	}()
	return sub.ch, nil
}

func (s *Store) unsubscribe(sub *subscriber) {
	s.subMu.Lock()
	delete(s.subs, sub)
	s.subMu.Unlock()
	sub.close()
}

// Ping implements store.Store.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close drops all keys and ends every subscription.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.entries = make(map[string]entry)
	s.mu.Unlock()

	s.subMu.Lock()
	subs := s.subs
	s.subs = make(map[*subscriber]struct{})
	s.subMu.Unlock()
	for sub := range subs {
		sub.close()
	}
	return nil
}

type subscriber struct {
	pattern string

	mu     sync.RWMutex
	closed bool
	ch     chan store.Message
	done   chan struct{}
	once   sync.Once
}

func (sub *subscriber) matches(channel string) bool {
	ok, err := path.Match(sub.pattern, channel)
	return err == nil && ok
}

func (sub *subscriber) deliver(ctx context.Context, msg store.Message) error {
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	if sub.closed {
		return nil
	}
	select {
	case sub.ch <- msg:
		return nil
	case <-sub.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close unblocks pending deliveries before closing the delivery channel.
func (sub *subscriber) close() {
	sub.once.Do(func() {
		close(sub.done)
		sub.mu.Lock()
		sub.closed = true
		close(sub.ch)
		sub.mu.Unlock()
	})
}
