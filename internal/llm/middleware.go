package llm

import (
	"context"
	"encoding/json"
	"log"

	"cupidx/internal/llmclient"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, retries, logging, metrics, tracing).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// -------- Logging --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	l.before(ctx, "json", req)
	raw, err := l.next.GenerateJSON(ctx, req)
	l.after(ctx, len(raw), err)
	return raw, err
}

func (l *logging) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	l.before(ctx, "text", req)
	txt, err := l.next.GenerateText(ctx, req)
	l.after(ctx, len(txt), err)
	return txt, err
}

func (l *logging) before(ctx context.Context, mode string, req llmclient.Request) {
	img := 0
	if req.Image != nil {
		img = len(req.Image.Data)
	}
	l.log.Printf("llm request (%s, %s via %s): prompt=%d bytes image=%d bytes",
		PhaseFrom(ctx), mode, l.next.Name(), len(req.Prompt), img)
}

func (l *logging) after(ctx context.Context, size int, err error) {
	if err != nil {
		l.log.Printf("llm error (%s): %v", PhaseFrom(ctx), err)
		return
	}
	l.log.Printf("llm response (%s): %d bytes", PhaseFrom(ctx), size)
}
