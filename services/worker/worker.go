package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/pkg/retry"
	"sjsage522/lotwatcher/services/runner"
)

// SearchRunner runs one search cycle
type SearchRunner interface {
	Run(ctx context.Context, s runner.Search) runner.Result
}

// Resetter clears the delivered history
type Resetter interface {
	Reset(ctx context.Context) error
}

// Job is a search bound to its cron expression
type Job struct {
	Search runner.Search
	Cron   string
}

// Options configures a Scheduler
type Options struct {
	Source   string
	Location *time.Location
	// Stagger delays the job at index i by Stagger*i when its trigger fires
	Stagger      time.Duration
	RunOnStartup bool
	StartupDelay time.Duration
	CleanupCron  string
	// Cleanup is called by the cleanup trigger, typically store reset plus runner forget
	Cleanup func(ctx context.Context) error
}

// Scheduler fires search cycles on their cron triggers
type Scheduler struct {
	opts   Options
	runner SearchRunner
	jobs   []Job
	cron   *cron.Cron

	sleep retry.SleepFunc
	log   *logger.Logger
}

// NewScheduler creates a scheduler. Cron expressions use the standard five fields.
func NewScheduler(r SearchRunner, jobs []Job, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	log := logger.ForWorker().WithField("source", opts.Source)
	return &Scheduler{
		opts:   opts,
		runner: r,
		jobs:   jobs,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cronLogger{log}),
		),
		sleep: retry.Sleep,
		log:   log,
	}
}

// Register adds every trigger to the cron table
func (s *Scheduler) Register(ctx context.Context) error {
	for i, job := range s.jobs {
		delay := s.opts.Stagger * time.Duration(i)
		run := s.searchJob(ctx, i, job, delay)
		wrapped := cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.log})).Then(cron.FuncJob(run))
		if _, err := s.cron.AddJob(job.Cron, wrapped); err != nil {
			return err
		}
		s.log.Info().
			Str("search", job.Search.Label).
			Str("cron", job.Cron).
			Str("timezone", s.opts.Location.String()).
			Dur("stagger", delay).
			Msg("Registered search trigger")
	}

	if s.opts.CleanupCron != "" && s.opts.Cleanup != nil {
		if _, err := s.cron.AddFunc(s.opts.CleanupCron, func() { s.cleanup(ctx) }); err != nil {
			return err
		}
		s.log.Info().Str("cron", s.opts.CleanupCron).Msg("Registered cleanup trigger")
	}
	return nil
}

func (s *Scheduler) searchJob(ctx context.Context, index int, job Job, delay time.Duration) func() {
	return func() {
		if delay > 0 {
			s.log.Debug().
				Str("search", job.Search.Label).
				Int("position", index+1).
				Dur("delay", delay).
				Msg("Waiting before run")
			if err := s.sleep(ctx, delay); err != nil {
				return
			}
		}
		s.runOne(ctx, job)
	}
}

func (s *Scheduler) runOne(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("search", job.Search.Label).Msg("Search run panicked")
		}
	}()

	s.log.Info().Str("search", job.Search.Label).Msg("Search triggered")
	res := s.runner.Run(ctx, job.Search)
	s.log.Info().
		Str("search", job.Search.Label).
		Int("total", res.Total).
		Int("delivered", res.Delivered).
		Int("failed", res.Failed).
		Msg("Search completed")
}

func (s *Scheduler) cleanup(ctx context.Context) {
	if err := s.opts.Cleanup(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear delivered history")
		return
	}
	s.log.Info().Str("cron", s.opts.CleanupCron).Msg("Delivered history cleared")
}

// StartupPass runs every search once, in order, with StartupDelay between them
func (s *Scheduler) StartupPass(ctx context.Context) {
	for i, job := range s.jobs {
		if i > 0 && s.opts.StartupDelay > 0 {
			if err := s.sleep(ctx, s.opts.StartupDelay); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		s.runOne(ctx, job)
	}
}

// Start registers the triggers, optionally runs the startup pass and blocks
// until ctx is done. Triggers only start firing once the startup pass is over,
// so a startup run never overlaps a triggered cycle of the same search.
// Running triggered cycles are awaited before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Register(ctx); err != nil {
		return err
	}

	if s.opts.RunOnStartup {
		s.StartupPass(ctx)
		if ctx.Err() != nil {
			s.log.Info().Msg("Stopped during startup pass")
			return nil
		}
	}

	s.cron.Start()
	s.log.Info().Int("searches", len(s.jobs)).Msg("Scheduler started")

	<-ctx.Done()
	s.log.Info().Msg("Stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger routes cron's internal logging through zerolog
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
