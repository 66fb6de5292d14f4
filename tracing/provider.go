package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
)

// Provider owns the exporter pipeline; call Shutdown to flush spans
type Provider struct {
	tp *sdktrace.TracerProvider
}

func newResource(version string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("nf-rangeland"),
		semconv.ServiceVersionKey.String(version),
	)
}

// NewProvider returns a provider that pretty prints every span to w
func NewProvider(w io.Writer, version string) (*Provider, error) {
	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(newResource(version)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exp),
	)
	return &Provider{tp: tp}, nil
}

// WithTracer stores the provider's tracer in ctx
func (p *Provider) WithTracer(ctx context.Context) context.Context {
	return SetTracer(ctx, p.tp.Tracer(InstrumentationName))
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}
