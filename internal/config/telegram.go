package config

import (
	"os"
	"time"
)

const (
	telegramBotTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramAPIBaseURLEnv  = "TELEGRAM_API_BASE_URL"
	telegramMaxRetriesEnv  = "TELEGRAM_MAX_RETRIES"
	telegramTimeoutSecsEnv = "TELEGRAM_TIMEOUT_SECONDS"

	defaultTelegramAPIBaseURL = "https://api.telegram.org"
	defaultTelegramMaxRetries = 3
	defaultTelegramTimeout    = 10
)

type TelegramConfig struct {
	BotToken   string
	APIBaseURL string
	// MaxRetries is the total number of attempts per message.
	MaxRetries int
	Timeout    time.Duration
}

func LoadTelegramConfig() *TelegramConfig {
	baseURL := os.Getenv(telegramAPIBaseURLEnv)
	if baseURL == "" {
		baseURL = defaultTelegramAPIBaseURL
	}

	return &TelegramConfig{
		BotToken:   os.Getenv(telegramBotTokenEnv),
		APIBaseURL: baseURL,
		MaxRetries: intFromEnv(telegramMaxRetriesEnv, defaultTelegramMaxRetries, positive),
		Timeout:    time.Duration(intFromEnv(telegramTimeoutSecsEnv, defaultTelegramTimeout, positive)) * time.Second,
	}
}

func (c *TelegramConfig) Validate() error {
	if c == nil || c.BotToken == "" {
		return ErrTelegramTokenMissing
	}
	return nil
}
