package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sjsage522/lotwatcher/internal/crawler"
	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/services/notifier"
	"sjsage522/lotwatcher/services/pacer"
	"sjsage522/lotwatcher/services/publisher"
	"sjsage522/lotwatcher/services/quote"
	"sjsage522/lotwatcher/services/store"
)

// Search is one listing page together with the destination it reports to
type Search struct {
	Label           string
	URL             string
	NotifyWhenEmpty bool
	Notifier        notifier.Notifier
}

// Result summarises one run
type Result struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Options wires a Runner. Quoter and Publisher may be nil.
type Options struct {
	Source    string
	Fetcher   crawler.Fetcher
	Extractor crawler.Extractor
	Store     store.DedupStore
	Quoter    quote.Quoter
	Auction   quote.Auction
	Pacer     *pacer.Pacer
	Publisher publisher.Publisher
	Footer    string
}

// Runner executes searches of one source. The in-process delivered set is
// shared by every search of the source and merged with the store on each run.
type Runner struct {
	source    string
	fetcher   crawler.Fetcher
	extractor crawler.Extractor
	store     store.DedupStore
	quoter    quote.Quoter
	auction   quote.Auction
	pacer     *pacer.Pacer
	publisher publisher.Publisher
	footer    string

	mu        sync.Mutex
	delivered map[string]struct{}
}

// New creates a runner
func New(opts Options) *Runner {
	p := opts.Pacer
	if p == nil {
		p = pacer.New(pacer.Options{})
	}
	return &Runner{
		source:    opts.Source,
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		store:     opts.Store,
		quoter:    opts.Quoter,
		auction:   opts.Auction,
		pacer:     p,
		publisher: opts.Publisher,
		footer:    opts.Footer,
		delivered: make(map[string]struct{}),
	}
}

// Run fetches the search page, delivers every lot not seen before and
// records each successful delivery. A fetch failure yields an empty result.
func (r *Runner) Run(ctx context.Context, s Search) Result {
	log := logger.ForSearch(r.source, s.Label).WithField("cycle_id", uuid.NewString())
	start := time.Now()

	known := r.reconcile(ctx)

	html, err := r.fetcher.Fetch(ctx, s.URL)
	if err != nil {
		log.Error().Err(err).Str("url", s.URL).Msg("Failed to fetch search page")
		return Result{}
	}

	lots := r.extractor.Extract(html)
	var fresh []crawler.Lot
	for _, lot := range lots {
		id := crawler.NormalizeIdentity(lot.Identity)
		if id == "" {
			continue
		}
		if _, ok := known[id]; ok {
			log.Debug().Str("identity", id).Msg("Lot already delivered, skipping")
			continue
		}
		fresh = append(fresh, lot)
	}

	log.Info().
		Int("total", len(lots)).
		Int("known", len(known)).
		Int("new", len(fresh)).
		Msg("Search page parsed")

	result := Result{Total: len(lots)}
	if len(fresh) == 0 {
		if s.NotifyWhenEmpty {
			if err := r.send(ctx, func(ctx context.Context) error {
				return s.Notifier.SendText(ctx, EmptyNotice(s.Label))
			}); err != nil {
				log.Warn().Err(err).Msg("Failed to send empty notice")
			}
		}
		return result
	}

	for _, lot := range fresh {
		if ctx.Err() != nil {
			break
		}
		lotLog := log.WithFields(logger.Fields{"identity": lot.Identity, "url": lot.URL})

		caption := r.caption(ctx, lot)
		err := r.send(ctx, func(ctx context.Context) error {
			return notifier.Deliver(ctx, s.Notifier, lot.ImageURL, caption)
		})
		if err != nil {
			result.Failed++
			lotLog.Error().Err(err).Msg("Failed to deliver lot")
			_ = r.pacer.After(ctx, false)
			continue
		}

		r.remember(ctx, lot, lotLog)
		result.Delivered++
		lotLog.Info().Msg("Lot delivered")
		_ = r.pacer.After(ctx, true)
	}

	log.Info().
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Search finished")
	return result
}

// reconcile merges the durable set with the in-process one
func (r *Runner) reconcile(ctx context.Context) map[string]struct{} {
	known := make(map[string]struct{})
	for id := range r.store.AllKnown(ctx) {
		if n := crawler.NormalizeIdentity(id); n != "" {
			known[n] = struct{}{}
		}
	}

	r.mu.Lock()
	for id := range r.delivered {
		known[id] = struct{}{}
	}
	r.mu.Unlock()
	return known
}

func (r *Runner) remember(ctx context.Context, lot crawler.Lot, log *logger.Logger) {
	id := crawler.NormalizeIdentity(lot.Identity)
	r.mu.Lock()
	r.delivered[id] = struct{}{}
	r.mu.Unlock()

	if err := r.store.MarkDelivered(ctx, id); err != nil {
		log.Warn().Err(err).Msg("Failed to record delivered lot, kept in memory only")
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, lot); err != nil {
			log.Warn().Err(err).Msg("Failed to publish delivered lot")
		}
	}
}

func (r *Runner) caption(ctx context.Context, lot crawler.Lot) string {
	if r.quoter == nil || lot.LotNumber == "" {
		return Caption(lot, 0, false, r.footer)
	}
	total, ok := r.quoter.Quote(ctx, lot.LotNumber, r.auction)
	return Caption(lot, total, ok, r.footer)
}

// send waits for the shared send rate before calling f
func (r *Runner) send(ctx context.Context, f func(context.Context) error) error {
	if err := r.pacer.Acquire(ctx); err != nil {
		return err
	}
	return f(ctx)
}

// Forget clears the in-process delivered set, used together with a store reset
func (r *Runner) Forget() {
	r.mu.Lock()
	r.delivered = make(map[string]struct{})
	r.mu.Unlock()
}
