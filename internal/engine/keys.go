package engine

import (
	"github.com/google/uuid"
)

// KeyGenerator supplies the idempotency key of a Create call that came
// without one. The reservation id is derived from that key, so a generator
// that repeats itself makes the engine treat distinct requests as replays.
// Implemented by UUIDv7Generator and testutil.SequenceKeys.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator issues time-ordered UUIDv7 keys. It is stateless and safe
// for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a fresh UUIDv7 in canonical hyphenated form. It panics
// only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
