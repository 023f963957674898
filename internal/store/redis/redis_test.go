package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vovakirdan/ephroom/internal/store"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	st, err := New(context.Background(), Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, mr
}

func TestKeyLifecycle(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	ok, err := st.SetNX(ctx, "eph:room:room-token:r1", "digest", 120*time.Second)
	if err != nil || !ok {
		t.Fatalf("SetNX: ok=%v err=%v", ok, err)
	}
	ok, err = st.SetNX(ctx, "eph:room:room-token:r1", "other", 120*time.Second)
	if err != nil || ok {
		t.Fatalf("SetNX on existing key: ok=%v err=%v", ok, err)
	}

	v, err := st.Get(ctx, "eph:room:room-token:r1")
	if err != nil || v != "digest" {
		t.Fatalf("Get: v=%q err=%v", v, err)
	}

	mr.FastForward(100 * time.Second)
	ok, err = st.Expire(ctx, "eph:room:room-token:r1", 120*time.Second)
	if err != nil || !ok {
		t.Fatalf("Expire: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL("eph:room:room-token:r1"); ttl != 120*time.Second {
		t.Fatalf("expected ttl reset to 120s, got %v", ttl)
	}

	mr.FastForward(121 * time.Second)
	if _, err := st.Get(ctx, "eph:room:room-token:r1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	ok, err = st.Expire(ctx, "eph:room:room-token:r1", time.Second)
	if err != nil || ok {
		t.Fatalf("Expire on expired key: ok=%v err=%v", ok, err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := st.SetNX(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("SetNX: %v", err)
	}
	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := st.Get(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPatternPublishSubscribe(t *testing.T) {
	st, _ := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	msgs, err := st.PSubscribe(ctx, "eph:room:*")
	if err != nil {
		t.Fatalf("PSubscribe: %v", err)
	}

	if err := st.Publish(ctx, "unrelated", "skip"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := st.Publish(ctx, "eph:room:r1", "hello"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Channel != "eph:room:r1" || msg.Payload != "hello" {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestSubscriptionClosesOnCancel(t *testing.T) {
	st, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := st.PSubscribe(ctx, "eph:room:*")
	if err != nil {
		t.Fatalf("PSubscribe: %v", err)
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel not closed")
		}
	}
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := New(ctx, Options{Addr: addr}); err == nil {
		t.Fatal("expected connection error")
	}
}
