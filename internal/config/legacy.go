package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	legacyRoutingFileEnv = "LEGACY_ROUTING_FILE"
	telegramGroupIDEnv   = "TELEGRAM_GROUP_ID"
	telegramTopicRdBEnv  = "TELEGRAM_TOPIC_RDB"
	telegramTopicRdCEnv  = "TELEGRAM_TOPIC_RDC"
	defaultGroupEnv      = "REMINDER_DEFAULT_GROUP"

	defaultTopicRdB = 2
	defaultTopicRdC = 3
)

// Category names accepted in legacy routing configuration.
const (
	CategoryGeneral = "general"
	CategoryRdB     = "rdb"
	CategoryRdC     = "rdc"
)

// LegacyConfig drives single-tenant routing: one chat, a topic per category.
type LegacyConfig struct {
	ChatID          string            `yaml:"chat_id"`
	TopicRdB        int64             `yaml:"topic_rdb"`
	TopicRdC        int64             `yaml:"topic_rdc"`
	DefaultCategory string            `yaml:"default_category"`
	CalendarLabels  map[string]string `yaml:"calendar_labels"`
}

func DefaultCalendarLabels() map[string]string {
	return map[string]string{
		"Generale": CategoryGeneral,
		"RdB":      CategoryRdB,
		"RdC":      CategoryRdC,
	}
}

// LoadLegacyConfig reads the optional YAML routing file first, then lets
// environment variables override individual fields.
func LoadLegacyConfig() (*LegacyConfig, error) {
	cfg := &LegacyConfig{
		TopicRdB: defaultTopicRdB,
		TopicRdC: defaultTopicRdC,
	}

	if path := os.Getenv(legacyRoutingFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(telegramGroupIDEnv); v != "" {
		cfg.ChatID = strings.TrimSpace(v)
	}

	for env, dst := range map[string]*int64{
		telegramTopicRdBEnv: &cfg.TopicRdB,
		telegramTopicRdCEnv: &cfg.TopicRdC,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTopicID, env, v)
		}
		*dst = parsed
	}

	if v := os.Getenv(defaultGroupEnv); v != "" {
		cfg.DefaultCategory = strings.ToLower(strings.TrimSpace(v))
	}

	if len(cfg.CalendarLabels) == 0 {
		cfg.CalendarLabels = DefaultCalendarLabels()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *LegacyConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLegacyRoutingFile, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: %v", ErrLegacyRoutingFile, err)
	}
	return nil
}

func (c *LegacyConfig) Validate() error {
	if c.DefaultCategory != "" && !validCategory(c.DefaultCategory) {
		return fmt.Errorf("%w: default %q", ErrInvalidCategory, c.DefaultCategory)
	}
	for label, category := range c.CalendarLabels {
		if !validCategory(category) {
			return fmt.Errorf("%w: label %q maps to %q", ErrInvalidCategory, label, category)
		}
	}
	return nil
}

// Enabled reports whether a legacy destination chat is configured.
func (c *LegacyConfig) Enabled() bool {
	return c != nil && c.ChatID != ""
}

func validCategory(c string) bool {
	switch c {
	case CategoryGeneral, CategoryRdB, CategoryRdC:
		return true
	}
	return false
}
