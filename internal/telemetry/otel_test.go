package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Tests in this file replace the global tracer provider and must not run in parallel.

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		opts        []Option
		wantErr     bool
	}{
		{name: "default sampling", serviceName: ServiceName},
		{name: "empty service name falls back", serviceName: ""},
		{name: "partial sampling", serviceName: ServiceName, opts: []Option{WithSampleRatio(0.25)}},
		{name: "tls exporter", serviceName: ServiceName, opts: []Option{WithTLS()}},
		{name: "ratio above one", serviceName: ServiceName, opts: []Option{WithSampleRatio(1.5)}, wantErr: true},
		{name: "negative ratio", serviceName: ServiceName, opts: []Option{WithSampleRatio(-0.1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{withExporter(tracetest.NewInMemoryExporter())}, tt.opts...)
			tp, err := InitTracer(context.Background(), tt.serviceName, "localhost:4318", opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InitTracer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err := Shutdown(context.Background(), tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown(nil) = %v", err)
	}
}

func TestTracer_Sampling(t *testing.T) {
	tests := []struct {
		name      string
		ratio     float64
		wantSpans int
	}{
		{name: "always", ratio: 1, wantSpans: 1},
		{name: "never", ratio: 0, wantSpans: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := tracetest.NewInMemoryExporter()
			tp, err := InitTracer(context.Background(), ServiceName, "", withExporter(exporter), WithSampleRatio(tt.ratio))
			if err != nil {
				t.Fatalf("InitTracer: %v", err)
			}

			_, span := Tracer("recommend").Start(context.Background(), "recommend.rag")
			span.End()
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Fatalf("ForceFlush: %v", err)
			}

			spans := exporter.GetSpans()
			if len(spans) != tt.wantSpans {
				t.Fatalf("got %d spans, want %d", len(spans), tt.wantSpans)
			}
			if tt.wantSpans > 0 {
				if got := spans[0].InstrumentationScope.Name; got != instrumentationPrefix+"recommend" {
					t.Errorf("instrumentation scope = %q", got)
				}
			}
			_ = Shutdown(context.Background(), tp)
		})
	}
}
