package config

import (
	"os"
	"time"
)

const (
	scheduleCronEnv        = "SCHEDULE_CRON"
	schedulerTokenEnv      = "SCHEDULER_TOKEN"
	scheduleTimeoutSecsEnv = "SCHEDULE_TIMEOUT_SECONDS"

	defaultScheduleTimeoutSecs = 240
)

type ScheduleConfig struct {
	// Cron is a five-field expression evaluated in the configured timezone.
	// Empty disables the in-process scheduler.
	Cron string
	// Token guards the scheduled HTTP trigger when set.
	Token string
	// Timeout bounds a single scheduled run.
	Timeout time.Duration
}

func LoadScheduleConfig() *ScheduleConfig {
	return &ScheduleConfig{
		Cron:    os.Getenv(scheduleCronEnv),
		Token:   os.Getenv(schedulerTokenEnv),
		Timeout: time.Duration(intFromEnv(scheduleTimeoutSecsEnv, defaultScheduleTimeoutSecs, positive)) * time.Second,
	}
}

func (c *ScheduleConfig) Enabled() bool {
	return c != nil && c.Cron != ""
}
