package domain

import (
	"context"
	"time"
)

type ReminderLogRecord struct {
	RunID       string
	TenantID    string
	Mode        Mode
	EventID     string
	EventTitle  string
	CalendarID  string
	EventStart  time.Time
	Minutes     int
	FireAt      time.Time
	ChatID      string
	SubThreadID *int64
	MessageID   int64
	Status      ItemStatus
	Error       string
	RecordedAt  time.Time
}

type ReminderLogRecorder interface {
	RecordReminders(ctx context.Context, records []ReminderLogRecord) error
	Flush(ctx context.Context) error
	Close() error
}
