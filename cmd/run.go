package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sjsage522/lotwatcher/config"
	"sjsage522/lotwatcher/internal/crawler"
	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/services/notifier"
	"sjsage522/lotwatcher/services/pacer"
	"sjsage522/lotwatcher/services/proxy"
	"sjsage522/lotwatcher/services/publisher"
	"sjsage522/lotwatcher/services/quote"
	"sjsage522/lotwatcher/services/runner"
	"sjsage522/lotwatcher/services/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the scheduler for one source",
	Long: `Start the cron scheduler for one source and keep running until
interrupted. Searches and timing are read from the search file.

Examples:
  lotwatcher run --source copart
  lotwatcher run --source iaai --config ./config/iaai.config.yaml`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("config", "c", "", "search file (default config/<source>.config.json)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	source, err := sourceFlag(cmd)
	if err != nil {
		return err
	}
	log := logger.ForSource(source)

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}
	creds, err := cfg.Credentials(source)
	if err != nil {
		log.Error().Err(err).Msg("Missing Telegram credentials")
		return err
	}

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultSearchFilePath(source)
	}
	sf, err := config.LoadSearchFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Invalid search file")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := initializeServices(ctx, cfg, source, false)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	picker, err := newProxyPicker(ctx, sf.Proxies, log)
	if err != nil {
		log.Error().Err(err).Msg("Invalid proxy list")
		return err
	}

	src, err := crawler.NewSource(source, crawler.FetchOptions{
		MaxRetries:  sf.MaxRetries,
		Headless:    sf.Headless,
		ScrollSteps: sf.MaxScrollSteps,
		ScrollPause: sf.ScrollPause(),
		Proxy:       sf.Proxy,
		ChromePath:  cfg.ChromePath,
	}, services.Cache, picker)
	if err != nil {
		return err
	}

	auction := quote.AuctionCopart
	if source == config.SourceIAAI {
		auction = quote.AuctionIAAI
	}

	var feed publisher.Publisher
	if services.Redis != nil && cfg.RedisStreamMaxLen > 0 {
		feed = publisher.NewRedisPublisher(services.Redis, publisher.StreamKey(source), cfg.RedisStreamMaxLen)
	}

	r := runner.New(runner.Options{
		Source:    source,
		Fetcher:   src.Fetcher,
		Extractor: src.Extractor,
		Store:     services.Store,
		Quoter:    quote.NewClient(cfg.EasyHaulURL, cfg.EasyHaulToken, services.Cache),
		Auction:   auction,
		Pacer:     pacer.New(pacer.Options{PerMinute: sf.MessagesPerMinute}),
		Publisher: feed,
		Footer:    sf.Footer,
	})

	// one cooldown per chat, shared by every thread of it
	cooldown := notifier.NewCooldown()
	jobs := make([]worker.Job, 0, len(sf.Searches))
	for _, s := range sf.Searches {
		jobs = append(jobs, worker.Job{
			Cron: s.Cron,
			Search: runner.Search{
				Label:           s.Label,
				URL:             s.URL,
				NotifyWhenEmpty: sf.ShouldNotifyWhenEmpty(s),
				Notifier: notifier.NewTelegram(notifier.Options{
					APIURL:   cfg.TelegramAPIURL,
					BotToken: creds.BotToken,
					ChatID:   creds.ChatID,
					ThreadID: s.MessageThreadID,
					Cooldown: cooldown,
				}),
			},
		})
	}

	scheduler := worker.NewScheduler(r, jobs, worker.Options{
		Source:       source,
		Location:     sf.Location(),
		Stagger:      sf.CronStagger(),
		RunOnStartup: sf.RunOnStartup,
		StartupDelay: sf.StartupDelay(),
		CleanupCron:  sf.CleanupCron,
		Cleanup: func(ctx context.Context) error {
			if err := services.Store.Reset(ctx); err != nil {
				return err
			}
			r.Forget()
			return nil
		},
	})

	log.Info().
		Str("environment", cfg.Environment).
		Str("search_file", path).
		Int("searches", len(jobs)).
		Str("timezone", sf.Timezone).
		Msg("Starting lot watcher")

	if err := scheduler.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler failed")
		return err
	}
	log.Info().Msg("Shut down gracefully")
	return nil
}

// newProxyPicker probes the configured proxies once. It returns a nil picker,
// not a nil *proxy.Pool, when no proxies are configured.
func newProxyPicker(ctx context.Context, specs []string, log *logger.Logger) (crawler.ProxyPicker, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	pool, err := proxy.NewPool(specs)
	if err != nil {
		return nil, err
	}
	pool.Refresh(ctx)
	for i, info := range pool.Top(3) {
		log.Debug().Int("rank", i+1).Str("proxy", info.URL).Dur("latency", info.Latency).Msg("Proxy ranked")
	}
	log.Info().Int("proxies", pool.Len()).Msg("Proxy pool ready")
	return pool, nil
}
