package llm

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cupidx/internal/llmclient"
)

const tracerName = "cupidx/internal/llm"

// WithTracing opens one span per call, named after the call phase.
// A nil provider falls back to the global one.
func WithTracing(tp trace.TracerProvider) Middleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(tracerName)
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &traced{next: next, tracer: tracer}
	}
}

type traced struct {
	next   llmclient.LLMClient
	tracer trace.Tracer
}

func (t *traced) Name() string { return t.next.Name() }
func (t *traced) Close() error { return t.next.Close() }

func (t *traced) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	ctx, span := t.start(ctx, req)
	defer span.End()
	raw, err := t.next.GenerateJSON(ctx, req)
	record(span, err)
	return raw, err
}

func (t *traced) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	ctx, span := t.start(ctx, req)
	defer span.End()
	txt, err := t.next.GenerateText(ctx, req)
	record(span, err)
	return txt, err
}

func (t *traced) start(ctx context.Context, req llmclient.Request) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "llm."+PhaseFrom(ctx), trace.WithAttributes(
		attribute.String("llm.client", t.next.Name()),
		attribute.Int("llm.prompt_bytes", len(req.Prompt)),
		attribute.Bool("llm.has_image", req.Image != nil),
	))
}

func record(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
