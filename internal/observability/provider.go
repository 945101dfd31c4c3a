package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// NewTracerProvider builds an always-sampling SDK provider tagged with
// serviceName. Ended spans are written to logger at debug level.
func NewTracerProvider(ctx context.Context, serviceName string, logger *Logger) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(spanLogger{logger: logger.With("component", "trace")}),
	), nil
}

type spanLogger struct {
	logger *Logger
}

func (spanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p spanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	args := []any{
		"span", s.Name(),
		"trace_id", s.SpanContext().TraceID().String(),
		"status", s.Status().Code.String(),
		"duration_ms", s.EndTime().Sub(s.StartTime()).Milliseconds(),
	}
	if desc := s.Status().Description; desc != "" {
		args = append(args, "error", desc)
	}
	p.logger.Debug("span ended", args...)
}

func (spanLogger) Shutdown(context.Context) error   { return nil }
func (spanLogger) ForceFlush(context.Context) error { return nil }
