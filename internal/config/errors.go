package config

import "errors"

var (
	ErrRedisAddrMissing       = errors.New("REDIS_ADDR is required")
	ErrInvalidRedisDB         = errors.New("REDIS_DB must be a valid integer")
	ErrInvalidTimezone        = errors.New("TIMEZONE is not a valid IANA zone")
	ErrTelegramTokenMissing   = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrInvalidTopicID         = errors.New("telegram topic id must be a valid integer")
	ErrInvalidCategory        = errors.New("category must be one of general, rdb, rdc")
	ErrLegacyRoutingFile      = errors.New("failed to read legacy routing file")
	ErrUnknownCalendarSource  = errors.New("CALENDAR_SOURCE must be google or ics")
	ErrInvalidICSFeed         = errors.New("ICS_FEEDS entries must look like id|name|url")
	ErrGoogleOAuthMissing     = errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for the google calendar source")
	ErrICSFeedsMissing        = errors.New("ICS_FEEDS is required for the ics calendar source")
	ErrPlatformProjectMissing = errors.New("GOOGLE_CLOUD_PROJECT is required")
)
