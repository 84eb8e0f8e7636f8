//go:build !gcloud

package logging

import (
	"context"
	"log/slog"
)

// gcpTraceAttrs adds nothing outside Google Cloud; trace_id and span_id are
// already on every record.
func gcpTraceAttrs(_ context.Context, _ string) []slog.Attr {
	return nil
}
