package publisher

import (
	"context"

	"sjsage522/lotwatcher/internal/crawler"
)

// Publisher mirrors delivered lots to a feed other services can consume
type Publisher interface {
	// Publish appends a delivered lot to the feed
	Publish(ctx context.Context, lot crawler.Lot) error

	// Close releases the publisher
	Close() error
}

// StreamKey returns the stream holding delivered lots of source
func StreamKey(source string) string {
	return source + ":delivered"
}
