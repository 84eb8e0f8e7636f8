package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnv     = "PORT"
	logLevelEnv = "LOG_LEVEL"
	timezoneEnv = "TIMEZONE"

	defaultPort     = "8080"
	defaultTimezone = "Europe/Rome"
)

type Config struct {
	Port     string
	LogLevel slog.Level
	Location *time.Location
	Redis    *RedisConfig
	Telegram *TelegramConfig
	Dispatch *DispatchConfig
	Legacy   *LegacyConfig
	Calendar *CalendarConfig
	Schedule *ScheduleConfig
}

func Load() (*Config, error) {
	port := os.Getenv(portEnv)
	if port == "" {
		port = defaultPort
	}

	tz := os.Getenv(timezoneEnv)
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, tz)
	}

	redisConfig, err := LoadRedisConfig()
	if err != nil {
		return nil, err
	}

	legacyConfig, err := LoadLegacyConfig()
	if err != nil {
		return nil, err
	}

	calendarConfig, err := LoadCalendarConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     port,
		LogLevel: parseLogLevel(os.Getenv(logLevelEnv)),
		Location: loc,
		Redis:    redisConfig,
		Telegram: LoadTelegramConfig(),
		Dispatch: LoadDispatchConfig(),
		Legacy:   legacyConfig,
		Calendar: calendarConfig,
		Schedule: LoadScheduleConfig(),
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func intFromEnv(key string, def int, accept func(int) bool) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || !accept(parsed) {
		return def
	}
	return parsed
}

func positive(n int) bool    { return n > 0 }
func nonNegative(n int) bool { return n >= 0 }
