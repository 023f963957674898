// Package redis implements store.Store on top of Redis keys and pattern pub/sub,
// so several relay instances can share rooms and broadcasts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vovakirdan/ephroom/internal/store"
)

const defaultSubscriberBuffer = 256

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store is a store.Store backed by a single go-redis client.
type Store struct {
	rdb    *goredis.Client
	buffer int
}

var _ store.Store = (*Store)(nil)

// New connects to Redis and verifies connectivity.
func New(ctx context.Context, opts Options) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewFromClient(rdb), nil
}

// NewFromClient wraps an existing client. The store takes ownership of it.
func NewFromClient(rdb *goredis.Client) *Store {
	return &Store{rdb: rdb, buffer: defaultSubscriberBuffer}
}

// Get implements store.KV.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", store.ErrNotFound
	}
	return v, err
}

// SetNX implements store.KV.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Expire implements store.KV.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.Expire(ctx, key, ttl).Result()
}

// Delete implements store.KV.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Publish implements store.Bus.
func (s *Store) Publish(ctx context.Context, channel, message string) error {
	return s.rdb.Publish(ctx, channel, message).Err()
}

// PSubscribe implements store.Bus. It waits for the server to confirm the
// subscription before returning.
func (s *Store) PSubscribe(ctx context.Context, pattern string) (<-chan store.Message, error) {
	ps := s.rdb.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("psubscribe %s: %w", pattern, err)
	}

	out := make(chan store.Message, s.buffer)
	go func() {
		defer close(out)
		defer ps.Close()

		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- store.Message{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close shuts down the redis connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}
