package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dispatchTracerName = "github.com/namecoder1/calensync-bot/internal/service/dispatch"

func DispatchTracer() trace.Tracer {
	return otel.Tracer(dispatchTracerName)
}

func StartDispatchSpan(ctx context.Context, runID, mode, tenantID string) (context.Context, trace.Span) {
	return DispatchTracer().Start(ctx, "dispatch.run",
		trace.WithAttributes(
			attribute.String("dispatch.run_id", runID),
			attribute.String("dispatch.mode", mode),
			attribute.String("dispatch.tenant_id", tenantID),
		),
	)
}

func RecordWindow(span trace.Span, from, to time.Time) {
	span.SetAttributes(
		attribute.String("window.from", from.Format(time.RFC3339)),
		attribute.String("window.to", to.Format(time.RFC3339)),
		attribute.Int64("window.minutes", int64(to.Sub(from).Minutes())),
	)
}

func StartItemSpan(ctx context.Context, key, chatID string) (context.Context, trace.Span) {
	return DispatchTracer().Start(ctx, "dispatch.item",
		trace.WithAttributes(
			attribute.String("dispatch.key", key),
			attribute.String("chat.id", chatID),
		),
	)
}

func StartExternalAPISpan(ctx context.Context, operation, url string) (context.Context, trace.Span) {
	return DispatchTracer().Start(ctx, "dispatch.external_api."+operation,
		trace.WithAttributes(
			attribute.String("url", url),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func RecordDispatchResult(span trace.Span, sent, skipped, totalDue, failed int, err error) {
	span.SetAttributes(
		attribute.Int("dispatch.sent", sent),
		attribute.Int("dispatch.skipped", skipped),
		attribute.Int("dispatch.total_due", totalDue),
		attribute.Int("dispatch.failed", failed),
	)
	RecordResult(span, err)
}

func RecordItemResult(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String("dispatch.item.status", status))
	RecordResult(span, err)
}

func RecordResult(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
