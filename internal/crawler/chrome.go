package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/pkg/retry"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	navigateTimeout = 120 * time.Second
	consentTimeout  = 5 * time.Second
	resultsTimeout  = 40 * time.Second
	renderSettle    = 3 * time.Second
	scrollSettle    = 2 * time.Second
	scrollJitter    = 500 * time.Millisecond

	consentButton = `#onetrust-accept-btn-handler`
	resultsReady  = `.p-datatable-tbody, .search_table_main_container, a[href*="/lot/"], tr[data-lotnumber], .p-selectable-row`
)

const hideAutomation = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
window.chrome = window.chrome || { runtime: {} };
`

// ProxyPicker chooses the proxy for the next browser session, "" meaning direct
type ProxyPicker interface {
	Pick(ctx context.Context) string
}

// BrowserFetcher renders client side pages in headless Chrome
type BrowserFetcher struct {
	Source  string
	opts    FetchOptions
	proxies ProxyPicker
	retrier fetchRetrier

	// render and run are swapped in tests
	render func(ctx context.Context, url string) (string, error)
	run    func(ctx context.Context, actions ...chromedp.Action) error
}

// NewBrowserFetcher creates a chromedp backed fetcher. proxies may be nil.
func NewBrowserFetcher(source string, opts FetchOptions, proxies ProxyPicker) *BrowserFetcher {
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	f := &BrowserFetcher{
		Source:  source,
		opts:    opts,
		proxies: proxies,
		retrier: fetchRetrier{source: source, maxRetries: maxRetries, sleep: retry.Sleep},
	}
	f.render = f.renderPage
	f.run = chromedp.Run
	return f
}

// Fetch implements Fetcher
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.retrier.do(ctx, url, f.render)
}

func (f *BrowserFetcher) allocatorOptions(proxy string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1366, 900),
		chromedp.UserAgent(browserUserAgent),
	)
	if f.opts.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}
	if f.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(f.opts.ChromePath))
	}
	return opts
}

func (f *BrowserFetcher) proxy(ctx context.Context) string {
	if f.opts.Proxy != "" {
		return f.opts.Proxy
	}
	if f.proxies != nil {
		return f.proxies.Pick(ctx)
	}
	return ""
}

// renderPage runs one browser session. Every context created here is
// cancelled on return, which shuts the browser down.
func (f *BrowserFetcher) renderPage(ctx context.Context, url string) (string, error) {
	log := logger.ForSource(f.Source)
	proxy := f.proxy(ctx)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions(proxy)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug().Msgf(format, args...)
	}))
	defer cancelBrowser()

	// The first run starts Chrome under its context, so it must not carry
	// the navigation deadline.
	if err := f.run(browserCtx); err != nil {
		return "", fmt.Errorf("start browser: %w", err)
	}

	navCtx, cancelNav := context.WithTimeout(browserCtx, navigateTimeout)
	defer cancelNav()

	log.Debug().Str("url", url).Str("proxy", proxy).Msg("Opening page")
	err := f.run(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideAutomation).Do(ctx)
			return err
		}),
		chromedp.Navigate(url),
	)
	if err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}

	f.acceptConsent(browserCtx)

	if err := f.run(browserCtx, chromedp.Sleep(renderSettle)); err != nil {
		return "", err
	}

	waitCtx, cancelWait := context.WithTimeout(browserCtx, resultsTimeout)
	err = f.run(waitCtx, chromedp.WaitReady(resultsReady, chromedp.ByQuery))
	cancelWait()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Str("url", url).Msg("No result markers before timeout, continuing")
	}

	actions := []chromedp.Action{chromedp.Sleep(scrollSettle)}
	for i := 0; i < f.opts.ScrollSteps; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(f.opts.ScrollPause+scrollJitter),
		)
	}
	actions = append(actions, chromedp.Sleep(scrollSettle))

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := f.run(browserCtx, actions...); err != nil {
		return "", fmt.Errorf("capture %s: %w", url, err)
	}

	log.Debug().Str("url", url).Int("bytes", len(html)).Msg("Page rendered")
	return html, nil
}

// acceptConsent clicks the cookie banner if it shows up; absence is fine
func (f *BrowserFetcher) acceptConsent(browserCtx context.Context) {
	ctx, cancel := context.WithTimeout(browserCtx, consentTimeout)
	defer cancel()

	err := f.run(ctx,
		chromedp.WaitVisible(consentButton, chromedp.ByQuery),
		chromedp.Click(consentButton, chromedp.ByQuery),
	)
	if err != nil {
		return
	}
	_ = f.run(browserCtx, chromedp.Sleep(time.Second))
}
