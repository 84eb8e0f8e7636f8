//go:build gcloud

package observability

import (
	"context"
	"fmt"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type exporters struct {
	span   sdktrace.SpanExporter
	metric sdkmetric.Exporter
}

func newExporters(_ context.Context, cfg Config) (exporters, error) {
	if cfg.GCPProjectID == "" {
		return exporters{}, fmt.Errorf("gcp project id is required for cloud exporters")
	}

	spanExp, err := texporter.New(texporter.WithProjectID(cfg.GCPProjectID))
	if err != nil {
		return exporters{}, fmt.Errorf("failed to create cloud trace exporter: %w", err)
	}

	metricExp, err := mexporter.New(mexporter.WithProjectID(cfg.GCPProjectID))
	if err != nil {
		return exporters{}, fmt.Errorf("failed to create cloud monitoring exporter: %w", err)
	}

	return exporters{span: spanExp, metric: metricExp}, nil
}
