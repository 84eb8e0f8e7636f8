package reminderlog

import (
	"strconv"
	"time"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

const measurement = "reminder_log"

func tenantTag(tenantID string) string {
	if tenantID == "" {
		return "legacy"
	}
	return tenantID
}

func subThreadTag(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func recordedAt(record domain.ReminderLogRecord) time.Time {
	if record.RecordedAt.IsZero() {
		return time.Now()
	}
	return record.RecordedAt
}
