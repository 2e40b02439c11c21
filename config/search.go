package config

import (
	"fmt"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"sjsage522/lotwatcher/pkg/errors"
)

// Search is one configured listing page to poll
type Search struct {
	Label           string `mapstructure:"label" validate:"required"`
	URL             string `mapstructure:"url" validate:"required,url"`
	Cron            string `mapstructure:"cron" validate:"required,cronspec"`
	MessageThreadID int64  `mapstructure:"messageThreadId" validate:"gte=0"`
	NotifyWhenEmpty *bool  `mapstructure:"notifyWhenEmpty"`
}

// SearchFile is the per-source schedule file
type SearchFile struct {
	Timezone                      string   `mapstructure:"timezone" validate:"required,timezone"`
	NotifyWhenEmpty               bool     `mapstructure:"notifyWhenEmpty"`
	RunOnStartup                  bool     `mapstructure:"runOnStartup"`
	CronDelayBetweenSearchesSec   int      `mapstructure:"cronDelayBetweenSearches" validate:"gte=0"`
	StartupDelayBetweenSearchesMs int      `mapstructure:"startupDelayBetweenSearches" validate:"gte=0"`
	CleanupCron                   string   `mapstructure:"cleanupCron" validate:"omitempty,cronspec"`
	Headless                      bool     `mapstructure:"headless"`
	MaxScrollSteps                int      `mapstructure:"maxScrollSteps" validate:"gte=0,lte=50"`
	ScrollPauseMs                 int      `mapstructure:"scrollPauseMs" validate:"gte=0"`
	MaxRetries                    int      `mapstructure:"maxRetries" validate:"gte=0,lte=10"`
	Proxy                         string   `mapstructure:"proxy"`
	Proxies                       []string `mapstructure:"proxies"`
	Footer                        string   `mapstructure:"footer"`
	MessagesPerMinute             int      `mapstructure:"messagesPerMinute" validate:"gte=0"`
	Searches                      []Search `mapstructure:"searches" validate:"required,min=1,dive"`
}

// DefaultSearchFilePath returns config/<source>.config.json
func DefaultSearchFilePath(source string) string {
	return filepath.Join("config", source+".config.json")
}

// LoadSearchFile reads a YAML or JSON schedule file and validates it
func LoadSearchFile(path string) (*SearchFile, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("timezone", "UTC")
	v.SetDefault("notifyWhenEmpty", true)
	v.SetDefault("runOnStartup", false)
	v.SetDefault("cronDelayBetweenSearches", 20)
	v.SetDefault("startupDelayBetweenSearches", 15000)
	v.SetDefault("headless", true)
	v.SetDefault("maxScrollSteps", 5)
	v.SetDefault("scrollPauseMs", 1200)
	v.SetDefault("maxRetries", 3)
	v.SetDefault("messagesPerMinute", 20)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.NewConfiguration("failed to read search file "+path, err)
	}

	var sf SearchFile
	if err := v.Unmarshal(&sf); err != nil {
		return nil, errors.NewConfiguration("failed to decode search file "+path, err)
	}

	if err := sf.Validate(); err != nil {
		return nil, err
	}
	return &sf, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the schedule file for missing or malformed entries
func (sf *SearchFile) Validate() error {
	if err := validate.Struct(sf); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			e := verrs[0]
			return errors.NewConfiguration(
				fmt.Sprintf("invalid search file: %s failed on %q", e.Namespace(), e.Tag()), err)
		}
		return errors.NewConfiguration("invalid search file", err)
	}
	return nil
}

// Location returns the configured timezone
func (sf *SearchFile) Location() *time.Location {
	loc, err := time.LoadLocation(sf.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CronStagger is the delay applied per search index on cron triggers
func (sf *SearchFile) CronStagger() time.Duration {
	return time.Duration(sf.CronDelayBetweenSearchesSec) * time.Second
}

// StartupDelay is the pause between searches of the startup pass
func (sf *SearchFile) StartupDelay() time.Duration {
	return time.Duration(sf.StartupDelayBetweenSearchesMs) * time.Millisecond
}

// ScrollPause is the base pause between scroll steps
func (sf *SearchFile) ScrollPause() time.Duration {
	return time.Duration(sf.ScrollPauseMs) * time.Millisecond
}

// ShouldNotifyWhenEmpty resolves the per-search override against the file default
func (sf *SearchFile) ShouldNotifyWhenEmpty(s Search) bool {
	if s.NotifyWhenEmpty != nil {
		return *s.NotifyWhenEmpty
	}
	return sf.NotifyWhenEmpty
}
