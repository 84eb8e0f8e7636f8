//go:build !gcloud

package reminderlog

import (
	"context"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

type influxDBRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

func NewRecorder(ctx context.Context, cfg *Config) (domain.ReminderLogRecorder, error) {
	if cfg.Disabled {
		slog.InfoContext(ctx, "reminder log recording disabled")
		return NewNoopRecorder(), nil
	}

	if cfg.InfluxDBToken == "" || cfg.InfluxDBOrg == "" {
		slog.WarnContext(ctx, "InfluxDB token or org not configured, reminder log recording disabled",
			slog.String("url", cfg.InfluxDBURL),
		)
		return NewNoopRecorder(), nil
	}

	client := influxdb2.NewClient(cfg.InfluxDBURL, cfg.InfluxDBToken)
	writeAPI := client.WriteAPIBlocking(cfg.InfluxDBOrg, cfg.InfluxDBBucket)

	slog.InfoContext(ctx, "reminder log recorder initialized",
		slog.String("type", "influxdb"),
		slog.String("url", cfg.InfluxDBURL),
		slog.String("bucket", cfg.InfluxDBBucket),
	)

	return &influxDBRecorder{
		client:   client,
		writeAPI: writeAPI,
		bucket:   cfg.InfluxDBBucket,
		org:      cfg.InfluxDBOrg,
	}, nil
}

// RecordReminders writes one point per dispatch item. Write failures are
// logged and never surfaced to the dispatch run.
func (r *influxDBRecorder) RecordReminders(ctx context.Context, records []domain.ReminderLogRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(records))
	for _, record := range records {
		points = append(points, newPoint(record))
	}

	if err := r.writeAPI.WritePoint(ctx, points...); err != nil {
		slog.WarnContext(ctx, "failed to write reminder logs to InfluxDB",
			slog.String("error", err.Error()),
			slog.Int("record_count", len(records)),
		)
	}

	return nil
}

func newPoint(record domain.ReminderLogRecord) *write.Point {
	fields := map[string]any{
		"event_id":    record.EventID,
		"event_title": record.EventTitle,
		"minutes":     record.Minutes,
		"fire_at":     record.FireAt.Unix(),
		"event_start": record.EventStart.Unix(),
		"message_id":  record.MessageID,
	}
	if record.Error != "" {
		fields["error"] = record.Error
	}

	return influxdb2.NewPoint(
		measurement,
		map[string]string{
			"run_id":        record.RunID,
			"tenant_id":     tenantTag(record.TenantID),
			"mode":          string(record.Mode),
			"status":        string(record.Status),
			"calendar_id":   record.CalendarID,
			"chat_id":       record.ChatID,
			"sub_thread_id": subThreadTag(record.SubThreadID),
		},
		fields,
		recordedAt(record),
	)
}

func (r *influxDBRecorder) Flush(ctx context.Context) error {
	return nil
}

func (r *influxDBRecorder) Close() error {
	if r.client != nil {
		r.client.Close()
	}
	return nil
}
