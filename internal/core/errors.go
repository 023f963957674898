package core

import "errors"

// Error codes carried in the body of error frames.
const (
	ErrCodeInvalidRoomKey = "invalid-room-key"
	ErrCodeInvalid        = "invalid"
	ErrCodeRateLimited    = "rate-limited"
)

var (
	// ErrStoreUnavailable wraps any failure of the backing key/value store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRoomIDExhausted means every generated room id collided with a live room.
	ErrRoomIDExhausted = errors.New("could not allocate a unique room id")
	// ErrBusClosed means the bus subscription ended while the engine was running.
	ErrBusClosed = errors.New("bus subscription closed")
)
