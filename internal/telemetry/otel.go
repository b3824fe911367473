// Package telemetry configures OpenTelemetry tracing for the API server.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationPrefix = "github.com/myeongseok-gwon/coex-search-temp/"

// ServiceName is the resource name reported by the server.
const ServiceName = "booth-recommender"

type tracerOptions struct {
	sampleRatio float64
	insecure    bool
	exporter    sdktrace.SpanExporter
}

// Option configures InitTracer.
type Option func(*tracerOptions)

// WithSampleRatio samples root spans at ratio in [0, 1]. Child spans follow their parent.
func WithSampleRatio(ratio float64) Option {
	return func(o *tracerOptions) { o.sampleRatio = ratio }
}

// WithTLS sends spans over HTTPS instead of plain HTTP.
func WithTLS() Option {
	return func(o *tracerOptions) { o.insecure = false }
}

// withExporter replaces the OTLP exporter; tests use an in-memory one.
func withExporter(exp sdktrace.SpanExporter) Option {
	return func(o *tracerOptions) { o.exporter = exp }
}

// InitTracer installs a global tracer provider exporting to an OTLP/HTTP collector
// at endpoint (host:port) and the W3C trace context propagator.
func InitTracer(ctx context.Context, serviceName, endpoint string, opts ...Option) (*sdktrace.TracerProvider, error) {
	o := tracerOptions{sampleRatio: 1, insecure: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sampleRatio < 0 || o.sampleRatio > 1 {
		return nil, fmt.Errorf("sample ratio must be between 0 and 1, got %v", o.sampleRatio)
	}

	exporter := o.exporter
	if exporter == nil {
		exporterOpts := []otlptracehttp.Option{}
		if o.insecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		if endpoint != "" {
			exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(endpoint))
		}
		exp, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = exp
	}

	if serviceName == "" {
		serviceName = ServiceName
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.sampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// Tracer returns a named tracer from the global provider. Until InitTracer
// runs the global provider is a no-op.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentationPrefix + component)
}

// Shutdown flushes pending spans and stops the provider. A nil provider is a no-op.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
