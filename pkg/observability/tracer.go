// Package observability provides OpenTelemetry tracing and Prometheus
// metrics for benchmark runs.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/justjake/querybench/pkg/config"
)

// TracerProvider wraps the OpenTelemetry SDK TracerProvider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider creates a TracerProvider exporting over OTLP.
// Returns nil if tracing is not enabled or cfg is nil.
func NewTracerProvider(ctx context.Context, cfg *config.OpenTelemetryConfig, version string) (*TracerProvider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.GetOTLPProtocol() {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", cfg.OTLPProtocol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return newTracerProvider(cfg.GetServiceName(), version, sdktrace.WithBatcher(exporter))
}

func newTracerProvider(serviceName, version string, opts ...sdktrace.TracerProviderOption) (*TracerProvider, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(append(opts, sdktrace.WithResource(res))...)
	otel.SetTracerProvider(provider)

	return &TracerProvider{provider: provider}, nil
}

// Tracer returns a tracer with the given name.
func (tp *TracerProvider) Tracer(name string) trace.Tracer {
	if tp == nil || tp.provider == nil {
		return otel.Tracer(name) // no-op unless a provider was installed
	}
	return tp.provider.Tracer(name)
}

// Shutdown flushes pending spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// Enabled returns true if tracing is enabled.
func (tp *TracerProvider) Enabled() bool {
	return tp != nil && tp.provider != nil
}

// Span attribute keys used by the benchmark session.
const (
	AttrSessionID   = "querybench.session_id"
	AttrQueryIndex  = "querybench.query_index"
	AttrStatement   = "db.statement"
	AttrTableLength = "querybench.table_length"
	AttrPhase       = "querybench.phase"
)

// ScenarioAttributes returns common attributes for a scenario span.
func ScenarioAttributes(index int, statement string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrQueryIndex, index),
		attribute.String(AttrStatement, statement),
	}
}
