package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vovakirdan/ephroom/internal/config"
	"github.com/vovakirdan/ephroom/internal/log"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Store = "memory"
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig()

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, &cfg, log.Nop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestNewWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Store = "redis"
	cfg.RedisAddr = mr.Addr()

	a, err := New(context.Background(), &cfg, log.Nop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	a.cleanup()
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := testConfig()
	cfg.Store = "etcd"

	if _, err := New(context.Background(), &cfg, log.Nop()); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Store = "redis"
	cfg.RedisAddr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := New(ctx, &cfg, log.Nop()); err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}
