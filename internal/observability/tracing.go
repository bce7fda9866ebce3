// Package observability wires OpenTelemetry tracing for qabot.
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
)

// TracerName is the instrumentation scope for qabot spans.
const TracerName = "qabot"

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64
}

func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "qabot",
		ServiceVersion: "0.1.0",
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

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		// schemaless, so the SDK's default schema URL wins the merge
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
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

// Shutdown flushes and stops the exporter.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// StartCorpusSpan starts a span for building the corpus.
func StartCorpusSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "corpus.build",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("embedding.model", model)),
	)
}

// RecordCorpus records corpus size on a span.
func RecordCorpus(span trace.Span, entries, dimension int) {
	span.SetAttributes(
		attribute.Int("corpus.entries", entries),
		attribute.Int("corpus.dimension", dimension),
	)
}

func StartRetrieveSpan(ctx context.Context, corpusSize int) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "retrieve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("corpus.entries", corpusSize)),
	)
}

// RecordMatch records the nearest neighbour on a span.
func RecordMatch(span trace.Span, position int, distance float32) {
	span.SetAttributes(
		attribute.Int("retrieve.position", position),
		attribute.Float64("retrieve.distance", float64(distance)),
	)
}

// StartRephraseSpan starts a client span around the generative call.
func StartRephraseSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "rephrase",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", model)),
	)
}

func StartTurnSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "chat.turn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
