package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"sjsage522/lotwatcher/helpers"
	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/pkg/errors"
	"sjsage522/lotwatcher/pkg/retry"
	"sjsage522/lotwatcher/services/cache"
)

// Page retry policy: 10s doubling up to 60s between attempts
const (
	fetchInitialWait = 10 * time.Second
	fetchMaxWait     = 60 * time.Second

	defaultMaxRetries = 3
	defaultBlockTime  = 5 * time.Minute
	httpFetchTimeout  = 60 * time.Second
)

// fetchRetrier applies the page retry policy to a single fetch attempt
type fetchRetrier struct {
	source     string
	maxRetries int
	sleep      retry.SleepFunc
}

func (r fetchRetrier) do(ctx context.Context, url string, attempt func(context.Context, string) (string, error)) (string, error) {
	log := logger.ForSource(r.source)
	return retry.Do(ctx, retry.Opts{
		MaxAttempts: r.maxRetries + 1,
		InitialWait: fetchInitialWait,
		MaxWait:     fetchMaxWait,
		Retryable:   errors.IsTransient,
		Sleep:       r.sleep,
		OnRetry: func(n int, wait time.Duration, err error) {
			log.Warn().
				Err(err).
				Str("url", url).
				Int("attempt", n).
				Int("max_retries", r.maxRetries).
				Dur("wait", wait).
				Msg("Fetch failed, retrying")
		},
	}, func(ctx context.Context) (string, error) {
		return attempt(ctx, url)
	})
}

// HTTPFetcher retrieves server rendered pages with a plain GET
type HTTPFetcher struct {
	Source    string
	Client    *http.Client
	CacheSvc  cache.CacheService
	CacheKey  string
	BlockTime time.Duration

	retrier fetchRetrier
}

// NewHTTPFetcher creates a fetcher for source. A rate limited answer blocks
// further fetches of the source for the block window through cacheSvc.
func NewHTTPFetcher(source string, cacheSvc cache.CacheService, opts FetchOptions) *HTTPFetcher {
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	blockTime := opts.BlockTime
	if blockTime <= 0 {
		blockTime = defaultBlockTime
	}

	return &HTTPFetcher{
		Source:    source,
		Client:    &http.Client{Timeout: httpFetchTimeout},
		CacheSvc:  cacheSvc,
		CacheKey:  source + "_rate_limited",
		BlockTime: blockTime,
		retrier:   fetchRetrier{source: source, maxRetries: maxRetries, sleep: retry.Sleep},
	}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.blocked() {
		return "", errors.New(errors.ErrorTypeRateLimit, f.Source,
			fmt.Sprintf("%s set, not sending requests for up to %v", f.CacheKey, f.BlockTime), nil)
	}
	return f.retrier.do(ctx, url, f.fetchOnce)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	body, err := helpers.FetchWithRandomHeaders(ctx, f.Client, f.Source, url)
	if err != nil {
		if wait, ok := errors.RetryAfter(err); ok {
			f.block(wait)
		}
		return "", err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", errors.NewNetwork(f.Source, "failed to read page", err)
	}
	return string(data), nil
}

func (f *HTTPFetcher) blocked() bool {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return false
	}
	_, err := f.CacheSvc.Get(f.CacheKey)
	return err == nil
}

func (f *HTTPFetcher) block(hint time.Duration) {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return
	}
	window := f.BlockTime
	if hint > window {
		window = hint
	}
	if err := f.CacheSvc.Set(f.CacheKey, []byte(strconv.Itoa(int(window/time.Second))), window); err != nil {
		logger.ForCache().Warn().Err(err).Str("key", f.CacheKey).Msg("Failed to set rate limit block")
		return
	}
	logger.ForSource(f.Source).Warn().Dur("block", window).Msg("Rate limited, blocking fetches")
}
