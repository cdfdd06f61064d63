package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"cupidx/internal/config"
	"cupidx/internal/gateway"
	"cupidx/internal/llm"
	"cupidx/internal/llmclient"
	"cupidx/internal/session"
)

// App holds the process-wide dependencies shared by the front-ends.
type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Gateway  *gateway.Gateway

	log     *log.Logger
	metrics *llm.Metrics
	tracer  *sdktrace.TracerProvider
	clients []llmclient.LLMClient
}

// New loads configuration and builds the model clients and gateway.
// A missing credential fails here, before any front-end starts.
func New(ctx context.Context, opts config.Options, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	reg := prometheus.NewRegistry()
	a := &App{
		Config:   cfg,
		Registry: reg,
		log:      logger,
		metrics:  llm.NewMetrics(reg),
	}
	if a.tracer, err = newTracerProvider(ctx, cfg.Tracing); err != nil {
		return nil, err
	}

	fast, err := a.client(ctx, cfg.Models.Fast)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	deep, err := a.client(ctx, cfg.Models.Deep)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Gateway = gateway.New(fast, deep, logger)
	if cfg.Offline {
		logger.Printf("app: offline mode, using scripted model responses")
	}
	if a.tracer != nil {
		logger.Printf("app: exporting traces via %s", cfg.Tracing.Exporter)
	}
	return a, nil
}

func (a *App) client(ctx context.Context, model string) (llmclient.LLMClient, error) {
	var base llmclient.LLMClient
	if a.Config.Offline {
		base = llm.NewFakeClient("FakeLLM:" + model)
	} else {
		g, err := llmclient.NewGeminiClient(ctx, a.Config.APIKey, model)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", model, err)
		}
		base = g
	}
	cli := llm.Wrap(base,
		llm.WithTracing(a.tracerProvider()),
		llm.WithMetrics(a.metrics),
		llm.WithLogging(a.log),
		llm.Retry(a.Config.Retry.Attempts, a.Config.Retry.BaseDelay),
		llm.RateLimit(a.Config.Rate.RPS, a.Config.Rate.Burst),
	)
	a.clients = append(a.clients, cli)
	return cli, nil
}

// NewSession returns a fresh session bound to the gateway.
func (a *App) NewSession() *session.Machine {
	return session.New(a.Gateway, a.log)
}

// MetricsSummary returns one line per recorded model-call series.
func (a *App) MetricsSummary() ([]string, error) {
	return llm.Summarize(a.Registry)
}

// tracerProvider returns the exporting provider, or nil for the global one.
func (a *App) tracerProvider() trace.TracerProvider {
	if a.tracer == nil {
		return nil
	}
	return a.tracer
}

// Close releases the clients and flushes pending spans.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
