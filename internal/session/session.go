// Package session tracks handshake-issued session ids from issuance until
// they expire or are promoted to connected, and from connection until release.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/amoylab/siogate/internal/common/cnst"

	"github.com/google/uuid"
)

// ID is an opaque 128-bit session identifier. It is comparable and safe to use
// as a map key.
type ID uuid.UUID

// NewID returns a fresh random session id
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the textual form produced by ID.String
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", cnst.ErrInvalidSessionID, s)
	}
	return ID(u), nil
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Stats is a point-in-time view of the registry size
type Stats struct {
	Pending   int `json:"pending"`
	Connected int `json:"connected"`
}

// Store is the session registry. An id is in at most one of the pending and
// connected sets at any time. All operations are atomic per id; operations on
// distinct ids never wait on each other beyond what the backend imposes.
type Store interface {
	// Issue records id as pending with the current time. A connected id is left
	// connected.
	Issue(ctx context.Context, id ID) error

	// IsAuthorized reports whether id is pending or connected.
	IsAuthorized(ctx context.Context, id ID) (bool, error)

	// Promote moves id from pending to connected. Promoting an unknown or
	// already connected id leaves it connected.
	Promote(ctx context.Context, id ID) error

	// Release removes id from the connected set and reports whether it was
	// there. Pending and unknown ids are left untouched.
	Release(ctx context.Context, id ID) (bool, error)

	// ReapStale removes every pending id issued more than maxAge ago and
	// returns them. Ids exactly maxAge old survive.
	ReapStale(ctx context.Context, maxAge time.Duration) ([]ID, error)

	// Stats returns the current pending and connected counts.
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources.
	Close() error
}

type options struct {
	now func() time.Time
}

// Option configures a Store
type Option func(*options)

// WithNow overrides the clock used for issue timestamps and reaping
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
