package reminderlog

import (
	"context"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

type noopRecorder struct{}

func NewNoopRecorder() domain.ReminderLogRecorder {
	return &noopRecorder{}
}

func (n *noopRecorder) RecordReminders(_ context.Context, _ []domain.ReminderLogRecord) error {
	return nil
}

func (n *noopRecorder) Flush(_ context.Context) error {
	return nil
}

func (n *noopRecorder) Close() error {
	return nil
}
