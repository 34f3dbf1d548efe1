package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of host spans.
const TracerName = "github.com/vango-dev/remoteui/pkg/server"

// Span names.
const (
	spanTick   = "remoteui.tick"
	spanRender = "remoteui.session.render"
)

// tracer resolves the tracer from the global provider. Without a configured
// provider every span is a no-op.
func tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

func startTick(ctx context.Context, t trace.Tracer, sessions int) (context.Context, trace.Span) {
	return t.Start(ctx, spanTick,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("remoteui.sessions", sessions)),
	)
}

func startRender(ctx context.Context, t trace.Tracer, sessionID string, forced bool) (context.Context, trace.Span) {
	return t.Start(ctx, spanRender,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Bool("render.forced", forced),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
