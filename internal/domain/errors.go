package domain

import "errors"

var (
	ErrCalendarFetch         = errors.New("failed to fetch calendar events")
	ErrMappingLoad           = errors.New("failed to load tenant mappings")
	ErrCredentialNotFound    = errors.New("credential not found")
	ErrTenantRequired        = errors.New("tenant id is required")
	ErrNoCalendarsConfigured = errors.New("no calendars configured")
	ErrInvalidMode           = errors.New("invalid dispatch mode")
)
