package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestNewLogger_AddsServiceModuleAndTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Config{
		Service:       ServiceInfo{Name: "calensync", Version: "1.2.3"},
		Environment:   EnvProd,
		Level:         slog.LevelInfo,
		DefaultModule: Module("dispatcher"),
	})

	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = WithModule(ctx, Module("scheduler"))

	logger.InfoContext(ctx, "tick", slog.Int("count", 2))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}

	if got["module"] != "scheduler" {
		t.Errorf("module: got %v, want %v", got["module"], "scheduler")
	}
	if got["trace_id"] != traceID.String() {
		t.Errorf("trace_id: got %v, want %v", got["trace_id"], traceID.String())
	}
	if got["span_id"] != spanID.String() {
		t.Errorf("span_id: got %v, want %v", got["span_id"], spanID.String())
	}
	if got["env"] != "prod" {
		t.Errorf("env: got %v, want %v", got["env"], "prod")
	}
	service, _ := got["service"].(map[string]any)
	if service["name"] != "calensync" || service["version"] != "1.2.3" {
		t.Errorf("service: got %v", got["service"])
	}
}

func TestNewLogger_DefaultModuleWithoutTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Config{
		Service:       ServiceInfo{Name: "calensync"},
		Environment:   EnvProd,
		DefaultModule: Module("dispatcher"),
	})

	logger.Info("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["module"] != "dispatcher" {
		t.Errorf("module: got %v, want %v", got["module"], "dispatcher")
	}
	if _, ok := got["trace_id"]; ok {
		t.Errorf("trace_id should be absent without a span, got %v", got["trace_id"])
	}
}
