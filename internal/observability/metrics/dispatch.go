package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	dispatchMeterName = "reminder.dispatch"
)

type DispatchMetrics struct {
	itemsProcessed  metric.Int64Counter
	runsTotal       metric.Int64Counter
	runDuration     metric.Float64Histogram
	sendDuration    metric.Float64Histogram
	candidatesDue   metric.Int64Histogram
	droppedUnrouted metric.Int64Counter
}

func NewDispatchMetrics() (*DispatchMetrics, error) {
	meter := otel.Meter(dispatchMeterName)

	itemsProcessed, err := meter.Int64Counter(
		"reminder_dispatch_items_total",
		metric.WithDescription("Total number of (reminder, destination) pairs processed"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	runsTotal, err := meter.Int64Counter(
		"reminder_dispatch_runs_total",
		metric.WithDescription("Total number of dispatch cycles"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"reminder_dispatch_duration_seconds",
		metric.WithDescription("Dispatch cycle duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
		),
	)
	if err != nil {
		return nil, err
	}

	sendDuration, err := meter.Float64Histogram(
		"reminder_send_duration_seconds",
		metric.WithDescription("Time spent delivering one message, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
		),
	)
	if err != nil {
		return nil, err
	}

	candidatesDue, err := meter.Int64Histogram(
		"reminder_dispatch_due_pairs",
		metric.WithDescription("Number of due pairs per dispatch cycle"),
		metric.WithUnit("{item}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return nil, err
	}

	droppedUnrouted, err := meter.Int64Counter(
		"reminder_dispatch_unrouted_total",
		metric.WithDescription("Due reminders dropped because no destination resolved"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchMetrics{
		itemsProcessed:  itemsProcessed,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		sendDuration:    sendDuration,
		candidatesDue:   candidatesDue,
		droppedUnrouted: droppedUnrouted,
	}, nil
}

func (m *DispatchMetrics) RecordItem(ctx context.Context, mode, outcome string) {
	attrs := appendLoadtestLabels(ctx, []attribute.KeyValue{
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	})
	m.itemsProcessed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *DispatchMetrics) RecordRun(ctx context.Context, mode, result string, duration time.Duration, totalDue int) {
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("result", result),
	))
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
	m.candidatesDue.Record(ctx, int64(totalDue), attrs)
}

func (m *DispatchMetrics) RecordSendDuration(ctx context.Context, outcome string, duration time.Duration) {
	m.sendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *DispatchMetrics) RecordUnrouted(ctx context.Context, mode string, count int) {
	if count == 0 {
		return
	}
	m.droppedUnrouted.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("mode", mode),
	))
}
