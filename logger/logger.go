package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog logger with component scoped helpers
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

var (
	// Default is the process wide logger
	Default *Logger
)

// Init configures the global zerolog settings and the Default logger
func Init() {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	Default = &Logger{logger: zerolog.New(output).With().Timestamp().Logger()}

	Default.Debug().
		Str("level", level.String()).
		Msg("Logger initialized")
}

func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("LOTWATCHER_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// New wraps an existing zerolog logger, mostly useful in tests
func New(l zerolog.Logger) *Logger {
	return &Logger{logger: l}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

func ensure() *Logger {
	if Default == nil {
		Init()
	}
	return Default
}

// ForSource creates a logger for an auction source (copart, iaai)
func ForSource(source string) *Logger {
	return ensure().WithField("source", source)
}

// ForSearch creates a logger scoped to one configured search
func ForSearch(source, label string) *Logger {
	return ensure().WithFields(Fields{"source": source, "search": label})
}

// ForWorker creates a logger for the scheduler
func ForWorker() *Logger {
	return ensure().WithField("component", "worker")
}

// ForNotifier creates a logger for the notification channel
func ForNotifier() *Logger {
	return ensure().WithField("component", "notifier")
}

// ForStore creates a logger for the dedup store
func ForStore() *Logger {
	return ensure().WithField("component", "store")
}

// ForCache creates a logger for the cache
func ForCache() *Logger {
	return ensure().WithField("component", "cache")
}

// ForQuote creates a logger for the delivery quote client
func ForQuote() *Logger {
	return ensure().WithField("component", "quote")
}

// ForProxy creates a logger for the proxy pool
func ForProxy() *Logger {
	return ensure().WithField("component", "proxy")
}

