package config

import (
	"os"
	"strconv"
	"time"
)

const (
	reminderRetentionHoursEnv  = "REMINDER_RETENTION_HOURS"
	dispatchConcurrencyEnv     = "DISPATCH_CONCURRENCY"
	dispatchDescriptionEnv     = "DISPATCH_DESCRIPTION_LIMIT"
	dispatchLookbackMinutesEnv = "DISPATCH_LOOKBACK_MINUTES"
	dispatchLookaheadMinsEnv   = "DISPATCH_LOOKAHEAD_MINUTES"
	dispatchMorningStartEnv    = "DISPATCH_MORNING_START_HOUR"
	dispatchMorningEndEnv      = "DISPATCH_MORNING_END_HOUR"
	dispatchMorningCutoffEnv   = "DISPATCH_MORNING_CUTOFF_HOUR"
	manualErrorLimitEnv        = "DISPATCH_MANUAL_ERROR_LIMIT"
	allowVirtualNowEnv         = "DISPATCH_ALLOW_VIRTUAL_NOW"

	defaultReminderRetentionHours = 7 * 24
	defaultDispatchConcurrency    = 4
	defaultDescriptionLimit       = 800
	defaultLookbackMinutes        = 60
	defaultLookaheadMinutes       = 10
	defaultMorningStartHour       = 6
	defaultMorningEndHour         = 8
	defaultMorningCutoffHour      = 13
	defaultManualErrorLimit       = 10
)

type DispatchConfig struct {
	Retention        time.Duration
	Concurrency      int
	DescriptionLimit int
	LookbackMinutes  int
	LookaheadMinutes int
	// The morning catch-up window applies when the local hour is in
	// [MorningStartHour, MorningEndHour) and extends to MorningCutoffHour.
	MorningStartHour  int
	MorningEndHour    int
	MorningCutoffHour int
	ManualErrorLimit  int
	// AllowVirtualNow lets HTTP callers override the dispatch time.
	AllowVirtualNow bool
}

func LoadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		Retention:         time.Duration(intFromEnv(reminderRetentionHoursEnv, defaultReminderRetentionHours, positive)) * time.Hour,
		Concurrency:       intFromEnv(dispatchConcurrencyEnv, defaultDispatchConcurrency, positive),
		DescriptionLimit:  intFromEnv(dispatchDescriptionEnv, defaultDescriptionLimit, positive),
		LookbackMinutes:   intFromEnv(dispatchLookbackMinutesEnv, defaultLookbackMinutes, nonNegative),
		LookaheadMinutes:  intFromEnv(dispatchLookaheadMinsEnv, defaultLookaheadMinutes, nonNegative),
		MorningStartHour:  intFromEnv(dispatchMorningStartEnv, defaultMorningStartHour, validHour),
		MorningEndHour:    intFromEnv(dispatchMorningEndEnv, defaultMorningEndHour, validHour),
		MorningCutoffHour: intFromEnv(dispatchMorningCutoffEnv, defaultMorningCutoffHour, validHour),
		ManualErrorLimit:  intFromEnv(manualErrorLimitEnv, defaultManualErrorLimit, positive),
		AllowVirtualNow:   boolFromEnv(allowVirtualNowEnv),
	}
}

func validHour(h int) bool { return h >= 0 && h <= 24 }

func boolFromEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
