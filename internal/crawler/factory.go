package crawler

import (
	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/pkg/errors"
	"sjsage522/lotwatcher/services/cache"
)

// Source bundles the fetcher and extractor of one auction site
type Source struct {
	Name      string
	Fetcher   Fetcher
	Extractor Extractor
}

// NewSource wires the fetch and parse pipeline for name. Copart pages are
// rendered client side and need the browser; IAAI serves plain HTML.
func NewSource(name string, opts FetchOptions, cacheSvc cache.CacheService, proxies ProxyPicker) (*Source, error) {
	switch name {
	case SourceCopart:
		logger.ForSource(name).Info().
			Bool("headless", opts.Headless).
			Int("scroll_steps", opts.ScrollSteps).
			Msg("Using browser fetch")
		return &Source{
			Name:      name,
			Fetcher:   NewBrowserFetcher(name, opts, proxies),
			Extractor: NewCopartExtractor(),
		}, nil
	case SourceIAAI:
		logger.ForSource(name).Info().Msg("Using standard fetch")
		return &Source{
			Name:      name,
			Fetcher:   NewHTTPFetcher(name, cacheSvc, opts),
			Extractor: NewIAAIExtractor(),
		}, nil
	default:
		return nil, errors.NewConfiguration("unknown source "+name, nil)
	}
}
