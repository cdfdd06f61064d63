package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cupidx/internal/llmclient"
)

// Metrics holds the per-phase collectors recorded by WithMetrics.
type Metrics struct {
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupidx",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Model calls issued, by phase.",
		}, []string{"phase"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupidx",
			Subsystem: "llm",
			Name:      "failures_total",
			Help:      "Model calls that returned an error, by phase.",
		}, []string{"phase"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cupidx",
			Subsystem: "llm",
			Name:      "request_seconds",
			Help:      "Model call latency, by phase.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"phase"}),
	}
	reg.MustRegister(m.requests, m.failures, m.latency)
	return m
}

// WithMetrics records request counts, failures and latency per phase.
func WithMetrics(m *Metrics) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if m == nil {
			return next
		}
		return &metered{next: next, m: m}
	}
}

type metered struct {
	next llmclient.LLMClient
	m    *Metrics
}

func (c *metered) Name() string { return c.next.Name() }
func (c *metered) Close() error { return c.next.Close() }

func (c *metered) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	done := c.observe(ctx)
	raw, err := c.next.GenerateJSON(ctx, req)
	done(err)
	return raw, err
}

func (c *metered) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	done := c.observe(ctx)
	txt, err := c.next.GenerateText(ctx, req)
	done(err)
	return txt, err
}

func (c *metered) observe(ctx context.Context) func(error) {
	phase := PhaseFrom(ctx)
	start := time.Now()
	c.m.requests.WithLabelValues(phase).Inc()
	return func(err error) {
		c.m.latency.WithLabelValues(phase).Observe(time.Since(start).Seconds())
		if err != nil {
			c.m.failures.WithLabelValues(phase).Inc()
		}
	}
}

// Summarize renders the llm counters in g as sorted one-line entries,
// e.g. "cupidx_llm_requests_total{phase=blueprint} 1".
func Summarize(g prometheus.Gatherer) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			labels := ""
			for _, lp := range metric.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += lp.GetName() + "=" + lp.GetValue()
			}
			out = append(out, fmt.Sprintf("%s{%s} %g", mf.GetName(), labels, metric.GetCounter().GetValue()))
		}
	}
	sort.Strings(out)
	return out, nil
}
