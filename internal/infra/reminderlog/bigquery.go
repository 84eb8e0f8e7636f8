//go:build gcloud

package reminderlog

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

type bigQueryRecord struct {
	RecordedAt  time.Time           `bigquery:"recorded_at"`
	RunID       string              `bigquery:"run_id"`
	TenantID    string              `bigquery:"tenant_id"`
	Mode        string              `bigquery:"mode"`
	Status      string              `bigquery:"status"`
	EventID     string              `bigquery:"event_id"`
	EventTitle  string              `bigquery:"event_title"`
	CalendarID  string              `bigquery:"calendar_id"`
	EventStart  time.Time           `bigquery:"event_start"`
	Minutes     int64               `bigquery:"minutes"`
	FireAt      time.Time           `bigquery:"fire_at"`
	ChatID      string              `bigquery:"chat_id"`
	SubThreadID bigquery.NullInt64  `bigquery:"sub_thread_id"`
	MessageID   bigquery.NullInt64  `bigquery:"message_id"`
	Error       bigquery.NullString `bigquery:"error"`
}

type bigQueryRecorder struct {
	client   *bigquery.Client
	inserter *bigquery.Inserter
	dataset  string
	table    string
}

func NewRecorder(ctx context.Context, cfg *Config) (domain.ReminderLogRecorder, error) {
	if cfg.Disabled {
		slog.InfoContext(ctx, "reminder log recording disabled")
		return NewNoopRecorder(), nil
	}

	if cfg.BigQueryProjectID == "" {
		slog.WarnContext(ctx, "BigQuery project ID not configured, reminder log recording disabled")
		return NewNoopRecorder(), nil
	}

	client, err := bigquery.NewClient(ctx, cfg.BigQueryProjectID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create BigQuery client, reminder log recording disabled",
			slog.String("error", err.Error()),
			slog.String("project_id", cfg.BigQueryProjectID),
		)
		return NewNoopRecorder(), nil
	}

	table := client.Dataset(cfg.BigQueryDataset).Table(cfg.BigQueryTable)
	inserter := table.Inserter()

	slog.InfoContext(ctx, "reminder log recorder initialized",
		slog.String("type", "bigquery"),
		slog.String("project_id", cfg.BigQueryProjectID),
		slog.String("dataset", cfg.BigQueryDataset),
		slog.String("table", cfg.BigQueryTable),
	)

	return &bigQueryRecorder{
		client:   client,
		inserter: inserter,
		dataset:  cfg.BigQueryDataset,
		table:    cfg.BigQueryTable,
	}, nil
}

func (r *bigQueryRecorder) RecordReminders(ctx context.Context, records []domain.ReminderLogRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]*bigQueryRecord, 0, len(records))
	for _, record := range records {
		row := &bigQueryRecord{
			RecordedAt: recordedAt(record),
			RunID:      record.RunID,
			TenantID:   tenantTag(record.TenantID),
			Mode:       string(record.Mode),
			Status:     string(record.Status),
			EventID:    record.EventID,
			EventTitle: record.EventTitle,
			CalendarID: record.CalendarID,
			EventStart: record.EventStart,
			Minutes:    int64(record.Minutes),
			FireAt:     record.FireAt,
			ChatID:     record.ChatID,
		}
		if record.SubThreadID != nil {
			row.SubThreadID = bigquery.NullInt64{Int64: *record.SubThreadID, Valid: true}
		}
		if record.MessageID != 0 {
			row.MessageID = bigquery.NullInt64{Int64: record.MessageID, Valid: true}
		}
		if record.Error != "" {
			row.Error = bigquery.NullString{StringVal: record.Error, Valid: true}
		}
		rows = append(rows, row)
	}

	if err := r.inserter.Put(ctx, rows); err != nil {
		slog.WarnContext(ctx, "failed to insert reminder logs to BigQuery",
			slog.String("error", err.Error()),
			slog.Int("record_count", len(records)),
		)
	}

	return nil
}

func (r *bigQueryRecorder) Flush(ctx context.Context) error {
	return nil
}

func (r *bigQueryRecorder) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
