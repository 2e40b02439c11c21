package store

import (
	"context"
)

// DedupStore records the identities of lots that were already delivered.
// Read failures degrade to an empty view instead of surfacing an error.
type DedupStore interface {
	// IsKnown reports whether identity was delivered inside the retention window
	IsKnown(ctx context.Context, identity string) bool

	// MarkDelivered records identity. Marking twice is a no-op.
	MarkDelivered(ctx context.Context, identity string) error

	// AllKnown returns a snapshot of every recorded identity
	AllKnown(ctx context.Context) map[string]struct{}

	// Count returns the number of recorded identities
	Count(ctx context.Context) int

	// Reset clears every record
	Reset(ctx context.Context) error

	// Close releases the backing connection
	Close() error
}
