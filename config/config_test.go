package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/lotwatcher/pkg/errors"
)

func TestLoadConfig(t *testing.T) {
	for _, k := range []string{"REDIS_ADDR", "REDIS_HOST", "REDIS_PORT", "REDIS_DB", "REDIS_TTL_DAYS", "MEMCACHE_ADDR", "EASYHAUL_TOKEN", "REDIS_STREAM_MAXLEN"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 7*24*time.Hour, cfg.RedisTTL)
	assert.Equal(t, int64(1000), cfg.RedisStreamMaxLen)
	assert.Equal(t, "", cfg.MemcacheAddr)
	assert.Equal(t, "EHULCO", cfg.EasyHaulToken)
	assert.Equal(t, "https://api.telegram.org", cfg.TelegramAPIURL)
	assert.NoError(t, cfg.Validate())

	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TTL_DAYS", "3")
	t.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	t.Setenv("REDIS_STREAM_MAXLEN", "0")

	cfg = LoadConfig()
	assert.Zero(t, cfg.RedisStreamMaxLen)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 3*24*time.Hour, cfg.RedisTTL)
	assert.Equal(t, "memcache.example.com:11211", cfg.MemcacheAddr)

	t.Setenv("REDIS_ADDR", "10.0.0.1:6379")
	t.Setenv("REDIS_TTL_DAYS", "-1")
	cfg = LoadConfig()
	assert.Equal(t, "10.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.RedisTTL)
}

func TestCredentials(t *testing.T) {
	cfg := &Config{CopartBotToken: "tok", CopartChatID: "42"}

	creds, err := cfg.Credentials(SourceCopart)
	require.NoError(t, err)
	assert.Equal(t, Credentials{BotToken: "tok", ChatID: "42"}, creds)

	_, err = cfg.Credentials(SourceIAAI)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")

	_, err = cfg.Credentials("manheim")
	assert.Error(t, err)
}

func TestStoreKey(t *testing.T) {
	assert.Equal(t, "copart:seen:lots", StoreKey(SourceCopart))
	assert.Equal(t, "iaai:sent:lots", StoreKey(SourceIAAI))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSearchFileYAML(t *testing.T) {
	path := writeFile(t, "iaai.yaml", `
timezone: Europe/Moscow
runOnStartup: true
cleanupCron: "0 3 * * 1"
searches:
  - label: trucks
    url: https://www.iaai.com/Search?url=abc
    cron: "*/10 * * * *"
    messageThreadId: 17
  - label: sedans
    url: https://www.iaai.com/Search?url=def
    cron: "5,35 * * * *"
    notifyWhenEmpty: false
`)

	sf, err := LoadSearchFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Moscow", sf.Timezone)
	assert.True(t, sf.RunOnStartup)
	assert.True(t, sf.NotifyWhenEmpty)
	assert.True(t, sf.Headless)
	assert.Equal(t, 20*time.Second, sf.CronStagger())
	assert.Equal(t, 15*time.Second, sf.StartupDelay())
	assert.Equal(t, 1200*time.Millisecond, sf.ScrollPause())
	assert.Equal(t, 5, sf.MaxScrollSteps)
	assert.Equal(t, 3, sf.MaxRetries)
	assert.Equal(t, "Europe/Moscow", sf.Location().String())

	require.Len(t, sf.Searches, 2)
	assert.Equal(t, "trucks", sf.Searches[0].Label)
	assert.Equal(t, int64(17), sf.Searches[0].MessageThreadID)
	assert.True(t, sf.ShouldNotifyWhenEmpty(sf.Searches[0]))
	assert.False(t, sf.ShouldNotifyWhenEmpty(sf.Searches[1]))
}

func TestLoadSearchFileJSON(t *testing.T) {
	path := writeFile(t, "copart.config.json", `{
  "notifyWhenEmpty": false,
  "cronDelayBetweenSearches": 5,
  "maxScrollSteps": 8,
  "searches": [{"label": "all", "url": "https://www.copart.com/lotSearchResults?query=", "cron": "0 * * * *"}]
}`)

	sf, err := LoadSearchFile(path)
	require.NoError(t, err)
	assert.False(t, sf.NotifyWhenEmpty)
	assert.Equal(t, 5*time.Second, sf.CronStagger())
	assert.Equal(t, 8, sf.MaxScrollSteps)
	assert.Equal(t, "UTC", sf.Timezone)
}

func TestLoadSearchFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no searches", `{"timezone": "UTC", "searches": []}`},
		{"missing label", `{"searches": [{"url": "https://x.test", "cron": "* * * * *"}]}`},
		{"missing cron", `{"searches": [{"label": "a", "url": "https://x.test"}]}`},
		{"bad cron", `{"searches": [{"label": "a", "url": "https://x.test", "cron": "every minute"}]}`},
		{"bad url", `{"searches": [{"label": "a", "url": "not a url", "cron": "* * * * *"}]}`},
		{"bad timezone", `{"timezone": "Mars/Olympus", "searches": [{"label": "a", "url": "https://x.test", "cron": "* * * * *"}]}`},
		{"bad cleanup", `{"cleanupCron": "nope", "searches": [{"label": "a", "url": "https://x.test", "cron": "* * * * *"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSearchFile(writeFile(t, "s.json", tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
		})
	}
}

func TestLoadSearchFileMissing(t *testing.T) {
	_, err := LoadSearchFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestShippedSearchFiles(t *testing.T) {
	for _, source := range []string{SourceCopart, SourceIAAI} {
		sf, err := LoadSearchFile(source + ".config.json")
		require.NoError(t, err, source)
		assert.NotEmpty(t, sf.Searches, source)
		assert.Equal(t, "Europe/Kyiv", sf.Location().String(), source)
	}
}
