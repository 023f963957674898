package core

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/vovakirdan/ephroom/internal/store"
	"github.com/vovakirdan/ephroom/internal/utils"
)

// Contract constants shared by the creation endpoint and the realtime handler.
const (
	RoomIDLength    = 12
	RoomTokenLength = 32
	DefaultRoomTTL  = 120 * time.Second
	RoomTokenPrefix = ChannelPrefix + ":room-token"

	createAttempts = 3
)

// RoomRegistry is the source of truth for which rooms exist and who hosts them.
type RoomRegistry interface {
	CreateRoom(ctx context.Context) (roomID, roomToken string, err error)
	ValidateAndRefresh(ctx context.Context, roomID, roomToken string) (bool, error)
	DeleteRoom(ctx context.Context, roomID string) error
}

// Registry keeps a digest of each room token under a TTL-bound key.
type Registry struct {
	kv       store.KV
	ttl      time.Duration
	newID    func() (string, error)
	newToken func() (string, error)
}

var _ RoomRegistry = (*Registry)(nil)

// NewRegistry builds a registry on kv. A non-positive ttl selects DefaultRoomTTL.
func NewRegistry(kv store.KV, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &Registry{
		kv:       kv,
		ttl:      ttl,
		newID:    func() (string, error) { return utils.RandomString(RoomIDLength) },
		newToken: func() (string, error) { return utils.RandomString(RoomTokenLength) },
	}
}

// TTL returns the lifetime a room gets on creation and on every keep-alive.
func (r *Registry) TTL() time.Duration { return r.ttl }

// CreateRoom mints a room id and token and stores the token with the room TTL.
func (r *Registry) CreateRoom(ctx context.Context) (string, string, error) {
	token, err := r.newToken()
	if err != nil {
		return "", "", fmt.Errorf("generate room token: %w", err)
	}
	digest := tokenDigest(token)

	for range createAttempts {
		roomID, err := r.newID()
		if err != nil {
			return "", "", fmt.Errorf("generate room id: %w", err)
		}
		stored, err := r.kv.SetNX(ctx, roomTokenKey(roomID), digest, r.ttl)
		if err != nil {
			return "", "", fmt.Errorf("%w: store room token: %w", ErrStoreUnavailable, err)
		}
		if stored {
			return roomID, token, nil
		}
	}
	return "", "", ErrRoomIDExhausted
}

// ValidateAndRefresh reports whether roomToken owns roomID and, if so, resets the
// room TTL. Missing, expired and mismatched rooms report false without side effects.
// A store failure reports false together with ErrStoreUnavailable.
func (r *Registry) ValidateAndRefresh(ctx context.Context, roomID, roomToken string) (bool, error) {
	if roomID == "" || roomToken == "" {
		return false, nil
	}

	key := roomTokenKey(roomID)
	stored, err := r.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read room token: %w", ErrStoreUnavailable, err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(tokenDigest(roomToken))) != 1 {
		return false, nil
	}

	refreshed, err := r.kv.Expire(ctx, key, r.ttl)
	if err != nil {
		return false, fmt.Errorf("%w: refresh room ttl: %w", ErrStoreUnavailable, err)
	}
	return refreshed, nil
}

// DeleteRoom removes the room immediately. Deleting an absent room is not an error.
func (r *Registry) DeleteRoom(ctx context.Context, roomID string) error {
	if roomID == "" {
		return nil
	}
	if err := r.kv.Delete(ctx, roomTokenKey(roomID)); err != nil {
		return fmt.Errorf("%w: delete room token: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func roomTokenKey(roomID string) string {
	return RoomTokenPrefix + ":" + roomID
}

func tokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
