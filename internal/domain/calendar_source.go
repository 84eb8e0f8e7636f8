package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=calendar_source.go -destination=calendar_source_mock.go -package=domain

// CalendarSource lists the events relevant to a dispatch run at now. Sources
// derive their query window from now, never from their own clock.
type CalendarSource interface {
	FetchEvents(ctx context.Context, tenantID string, now time.Time) ([]CalendarEvent, error)
}
