package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID string for stored records.
func NewID() string {
	return uuid.NewString()
}

// ShortID returns the first block of a random UUID. Used where the provider
// limits identifier length, such as RTMP output ids.
func ShortID() string {
	id := uuid.NewString()
	return id[:strings.IndexByte(id, '-')]
}

// NewRequestID generates a request correlation id
func NewRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
