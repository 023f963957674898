package utils

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewID returns a unique identifier for connections and log correlation.
func NewID() string {
	return uuid.NewString()
}

// RandomString returns a URL-safe random string of the given length drawn from
// the nanoid alphabet (A-Za-z0-9_-).
func RandomString(size int) (string, error) {
	return gonanoid.New(size)
}
