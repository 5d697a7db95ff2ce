// Package observability provides OpenTelemetry tracing, Prometheus metrics
// and an audit trail for linkscope.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
)

const (
	// TracerName is the name used for the linkscope tracer.
	TracerName = "github.com/linkscope/linkscope"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "linkscope")
	ServiceName string

	ServiceVersion string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "linkscope",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown flushes pending spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Span kinds for linkscope operations.
const (
	SpanKindQuery  = "query"
	SpanKindLoad   = "load"
	SpanKindStore  = "store"
	SpanKindReload = "reload"
)

// StartQuerySpan starts a span for a graph query of the given kind
// (paths, shortest, legacy, cycles, detailed_cycles).
func StartQuerySpan(ctx context.Context, kind, queryID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	base := []attribute.KeyValue{
		attribute.String("linkscope.span.kind", SpanKindQuery),
		attribute.String("query.kind", kind),
		attribute.String("query.id", queryID),
	}
	return tracer.Start(ctx, "query."+kind,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(base, attrs...)...),
	)
}

// RecordQueryResult records the outcome of a query on its span.
func RecordQueryResult(span trace.Span, results, candidates int, truncated bool) {
	span.SetAttributes(
		attribute.Int("query.results", results),
		attribute.Int("query.candidates", candidates),
		attribute.Bool("query.truncated", truncated),
	)
}

// StartLoadSpan starts a span for loading a snapshot from a source.
func StartLoadSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	return tracer.Start(ctx, "snapshot.load",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("linkscope.span.kind", SpanKindLoad),
			attribute.String("snapshot.source", source),
		),
	)
}

// StartStoreSpan starts a span for writing a snapshot to a store.
func StartStoreSpan(ctx context.Context, target string, nodes, edges int) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	return tracer.Start(ctx, "snapshot.store",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("linkscope.span.kind", SpanKindStore),
			attribute.String("snapshot.target", target),
			attribute.Int("snapshot.nodes", nodes),
			attribute.Int("snapshot.edges", edges),
		),
	)
}

// StartReloadSpan starts a span for a snapshot swap.
func StartReloadSpan(ctx context.Context, trigger string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	return tracer.Start(ctx, "snapshot.reload",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("linkscope.span.kind", SpanKindReload),
			attribute.String("reload.trigger", trigger),
		),
	)
}

// RecordSnapshotSize records node and edge counts on a span.
func RecordSnapshotSize(span trace.Span, nodes, edges int) {
	span.SetAttributes(
		attribute.Int("snapshot.nodes", nodes),
		attribute.Int("snapshot.edges", edges),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
