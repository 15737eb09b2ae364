package crypto

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUIDv7 generates a time-ordered UUID v7.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewTxHash returns a sortable transaction id for a state-changing call.
func NewTxHash() string {
	return "0x" + strings.ToLower(ulid.MustNew(ulid.Now(), rand.Reader).String())
}
