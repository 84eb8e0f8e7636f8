package googlecal

import "errors"

var (
	ErrCredentialLoad    = errors.New("failed to load google credential")
	ErrCalendarSelection = errors.New("failed to resolve calendars")
)
