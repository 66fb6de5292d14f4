package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/uc-cdis/nf-rangeland/runerr"
)

type ctxKey struct{}

// TracerFromCtx returns the tracer set for ctx, or a no-op tracer.
func TracerFromCtx(ctx context.Context) trace.Tracer {
	tracer, ok := ctx.Value(ctxKey{}).(trace.Tracer)
	if !ok {
		return trace.NewNoopTracerProvider().Tracer("")
	}
	return tracer
}

// SetTracer returns a new context carrying tracer.
// A nil tracer is replaced by a no-op tracer.
func SetTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("")
	}
	if existing, ok := ctx.Value(ctxKey{}).(trace.Tracer); ok && existing == tracer {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tracer)
}

// Start is a shortcut for TracerFromCtx(ctx).Start
func Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return TracerFromCtx(ctx).Start(ctx, spanName, opts...)
}

// SetSpanError marks the span in ctx as failed.
// Errors from runerr also record their kind.
func SetSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	for _, kind := range []runerr.Kind{
		runerr.KindConfig,
		runerr.KindProvisioning,
		runerr.KindStaging,
		runerr.KindExecution,
		runerr.KindUpload,
	} {
		if runerr.Is(err, kind) {
			span.SetAttributes(attribute.String(AttrKeyErrorKind, string(kind)))
			break
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
