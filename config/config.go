package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/lotwatcher/pkg/errors"
)

// Supported auction sources
const (
	SourceCopart = "copart"
	SourceIAAI   = "iaai"
)

// Config represents the process configuration read from the environment
type Config struct {
	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// Delivered lot stream cap, 0 disables the stream
	RedisStreamMaxLen int64

	// Memcache configuration, empty means an in-process cache
	MemcacheAddr string

	// Telegram
	TelegramAPIURL string
	CopartBotToken string
	CopartChatID   string
	IAAIBotToken   string
	IAAIChatID     string

	// Delivery quotes
	EasyHaulURL   string
	EasyHaulToken string

	// Browser
	ChromePath string

	// Environment
	Environment string
}

// Credentials identifies the Telegram bot and chat a source reports to
type Credentials struct {
	BotToken string
	ChatID   string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttlDays, err := strconv.Atoi(getEnv("REDIS_TTL_DAYS", "7"))
	if err != nil || ttlDays <= 0 {
		ttlDays = 7
	}

	streamMaxLen, err := strconv.ParseInt(getEnv("REDIS_STREAM_MAXLEN", "1000"), 10, 64)
	if err != nil || streamMaxLen < 0 {
		streamMaxLen = 1000
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = net.JoinHostPort(getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379"))
	}

	return &Config{
		RedisAddr:      redisAddr,
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		RedisTTL:       time.Duration(ttlDays) * 24 * time.Hour,
		MemcacheAddr:   os.Getenv("MEMCACHE_ADDR"),
		TelegramAPIURL: strings.TrimRight(getEnv("TELEGRAM_API_URL", "https://api.telegram.org"), "/"),
		CopartBotToken: os.Getenv("COPART_TELEGRAM_BOT_TOKEN"),
		CopartChatID:   os.Getenv("COPART_TELEGRAM_CHAT_ID"),
		IAAIBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		IAAIChatID:     os.Getenv("TELEGRAM_CHAT_ID"),
		EasyHaulURL:    strings.TrimRight(getEnv("EASYHAUL_URL", "https://www.easyhaul.com/data/v1"), "/"),
		EasyHaulToken:  getEnv("EASYHAUL_TOKEN", "EHULCO"),
		ChromePath:     os.Getenv("CHROME_PATH"),
		Environment:    getEnv("LOTWATCHER_ENVIRONMENT", "development"),

		RedisStreamMaxLen: streamMaxLen,
	}
}

// Validate checks the settings every command relies on
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return errors.NewConfiguration("redis address is empty", nil)
	}
	if c.RedisDB < 0 {
		return errors.NewConfiguration(fmt.Sprintf("invalid redis db %d", c.RedisDB), nil)
	}
	if c.TelegramAPIURL == "" {
		return errors.NewConfiguration("telegram api url is empty", nil)
	}
	return nil
}

// Credentials returns the Telegram credentials for source. Missing values are
// a configuration error.
func (c *Config) Credentials(source string) (Credentials, error) {
	var creds Credentials
	var tokenKey, chatKey string

	switch source {
	case SourceCopart:
		creds = Credentials{BotToken: c.CopartBotToken, ChatID: c.CopartChatID}
		tokenKey, chatKey = "COPART_TELEGRAM_BOT_TOKEN", "COPART_TELEGRAM_CHAT_ID"
	case SourceIAAI:
		creds = Credentials{BotToken: c.IAAIBotToken, ChatID: c.IAAIChatID}
		tokenKey, chatKey = "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"
	default:
		return Credentials{}, errors.NewConfiguration("unknown source "+source, nil)
	}

	if creds.BotToken == "" || creds.ChatID == "" {
		return Credentials{}, errors.NewConfiguration(fmt.Sprintf("%s and %s must be set", tokenKey, chatKey), nil)
	}
	return creds, nil
}

// StoreKey returns the Redis key holding delivered identities for source
func StoreKey(source string) string {
	if source == SourceCopart {
		return "copart:seen:lots"
	}
	return source + ":sent:lots"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
