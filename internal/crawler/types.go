package crawler

import (
	"context"
	"time"
)

// Sources handled by the watcher
const (
	SourceCopart = "copart"
	SourceIAAI   = "iaai"
)

// Lot represents one vehicle listing scraped from a search results page
type Lot struct {
	Identity  string `json:"identity"`
	Source    string `json:"source"`
	LotNumber string `json:"lot_number,omitempty"`
	Title     string `json:"title"`
	Year      string `json:"year,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	BuyNow    string `json:"buy_now,omitempty"`
	Odometer  string `json:"odometer,omitempty"`
	URL       string `json:"url"`
}

// Fetcher retrieves the raw HTML of a search page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor turns raw HTML into lots. Implementations never fail; missing
// fields are left empty.
type Extractor interface {
	Extract(html string) []Lot
}

// FetchOptions configures both fetcher variants
type FetchOptions struct {
	MaxRetries int

	// Browser only
	Headless    bool
	ScrollSteps int
	ScrollPause time.Duration
	Proxy       string
	ChromePath  string

	// Block window applied after a rate limited page fetch
	BlockTime time.Duration
}
