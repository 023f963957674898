package store

import (
	"context"
	"errors"
	"time"
)

// Backend names accepted by configuration.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrNotFound is returned by KV.Get when the key is absent or expired.
var ErrNotFound = errors.New("key not found")

// KV is the key/value store with per-key expiry that backs the room registry.
type KV interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// SetNX stores value under key with the given ttl unless the key already exists.
	// It reports whether the value was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Expire resets the ttl of an existing key. It reports false if the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Message is a single delivery from the bus.
type Message struct {
	Channel string
	Payload string
}

// Bus is a pattern-subscribable publish/subscribe transport.
type Bus interface {
	// Publish sends message to every subscriber whose pattern matches channel.
	Publish(ctx context.Context, channel, message string) error
	// PSubscribe subscribes to all channels matching a glob pattern. The subscription
	// is active when PSubscribe returns; the returned channel is closed once ctx is
	// done or the underlying subscription ends.
	PSubscribe(ctx context.Context, pattern string) (<-chan Message, error)
}

// Store bundles the key/value and bus capabilities of one backend.
type Store interface {
	KV
	Bus
	Ping(ctx context.Context) error
	Close() error
}
