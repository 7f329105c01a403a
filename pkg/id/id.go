// Package id generates time-ordered, lexically sortable entity
// identifiers. Unlike a random UUIDv4, a ULID's first 48 bits are a
// millisecond timestamp, so IDs generated close together sort the way
// they were created — useful for cursor-based message pagination and
// for picking a default channel ordering without a separate
// created_at column to sort by.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// entropy is shared and mutex-guarded; ulid.Reader already synchronizes
// internally via crypto/rand, but reusing one monotonic source keeps
// IDs minted within the same millisecond strictly increasing too.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new ULID string, e.g. "01HQZXJ5R1N3Y4K6T8V0W2X4Z6".
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewAt returns a new ULID string stamped with t instead of the
// current time, for backfilling or for deterministic test fixtures.
func NewAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Valid reports whether s parses as a well-formed ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
