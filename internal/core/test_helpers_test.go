package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/ephroom/internal/store"
	"github.com/vovakirdan/ephroom/internal/store/memory"
)

var errStoreDown = errors.New("connection refused")

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, wait time.Duration) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(wait):
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyStore wraps a memory store and fails every call while down is set.
type flakyStore struct {
	*memory.Store

	mu   sync.Mutex
	down bool
}

func (f *flakyStore) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *flakyStore) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errStoreDown
	}
	return nil
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	if err := f.err(); err != nil {
		return "", err
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := f.err(); err != nil {
		return false, err
	}
	return f.Store.SetNX(ctx, key, value, ttl)
}

func (f *flakyStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := f.err(); err != nil {
		return false, err
	}
	return f.Store.Expire(ctx, key, ttl)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if err := f.err(); err != nil {
		return err
	}
	return f.Store.Delete(ctx, key)
}

func (f *flakyStore) Publish(ctx context.Context, channel, message string) error {
	if err := f.err(); err != nil {
		return err
	}
	return f.Store.Publish(ctx, channel, message)
}

var _ store.Store = (*flakyStore)(nil)

type testRelay struct {
	engine   *Engine
	registry *Registry
	store    *flakyStore
	clock    *fakeClock
}

// startTestRelay runs an engine over a memory store until the test ends.
func startTestRelay(t *testing.T) *testRelay {
	t.Helper()

	clock := newFakeClock()
	st := &flakyStore{Store: memory.New(memory.WithClock(clock.Now))}
	registry := NewRegistry(st, DefaultRoomTTL)
	engine := NewEngine(registry, st, NewDirectory(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	deliveries, err := engine.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = engine.Run(ctx, deliveries) }()

	return &testRelay{engine: engine, registry: registry, store: st, clock: clock}
}

func (r *testRelay) createRoom(t *testing.T) (string, string) {
	t.Helper()

	roomID, token, err := r.registry.CreateRoom(context.Background())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return roomID, token
}

func (r *testRelay) host(t *testing.T, roomID, token string) *Session {
	t.Helper()

	s := NewSession("host-"+roomID, 8)
	r.engine.Handle(context.Background(), s, &Command{Kind: CommandHostKeepAlive, Room: roomID, Body: token})
	if s.State() != StateHost {
		t.Fatalf("expected host state, got %s", s.State())
	}
	return s
}

func (r *testRelay) guest(t *testing.T, id, roomID string) *Session {
	t.Helper()

	s := NewSession(id, 8)
	r.engine.Handle(context.Background(), s, &Command{Kind: CommandConnectGuest, Room: roomID})
	if s.State() != StateGuest {
		t.Fatalf("expected guest state, got %s", s.State())
	}
	return s
}
