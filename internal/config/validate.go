package config

import (
	"errors"
	"fmt"
)

func ValidateForRun(cfg *Config) error {
	var errs []error

	if err := cfg.Redis.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Telegram.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Calendar.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePlatform(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(errs...))
	}

	return nil
}
