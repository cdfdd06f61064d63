package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"cupidx/internal/llmclient"
	"cupidx/internal/types"
)

// flaky fails the first n calls with err, then succeeds.
type flaky struct {
	n     int
	err   error
	calls int
}

func (f *flaky) Name() string { return "flaky" }
func (f *flaky) Close() error { return nil }
func (f *flaky) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	f.calls++
	if f.calls <= f.n {
		return nil, f.err
	}
	return json.RawMessage(`[]`), nil
}
func (f *flaky) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	f.calls++
	if f.calls <= f.n {
		return "", f.err
	}
	return "ok", nil
}

// tagger appends its tag to the prompt so Wrap ordering is observable.
func tagger(tag string, seen *[]string) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &tagging{next: next, tag: tag, seen: seen}
	}
}

type tagging struct {
	next llmclient.LLMClient
	tag  string
	seen *[]string
}

func (t *tagging) Name() string { return t.next.Name() }
func (t *tagging) Close() error { return t.next.Close() }
func (t *tagging) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	*t.seen = append(*t.seen, t.tag)
	return t.next.GenerateJSON(ctx, req)
}
func (t *tagging) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	*t.seen = append(*t.seen, t.tag)
	return t.next.GenerateText(ctx, req)
}

func TestWrap_LeftToRight(t *testing.T) {
	var seen []string
	cli := Wrap(&flaky{}, tagger("A", &seen), nil, tagger("B", &seen))
	_, err := cli.GenerateJSON(context.Background(), llmclient.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestRetry_RetriesTransientErrors(t *testing.T) {
	inner := &flaky{n: 2, err: errors.New("503 overloaded")}
	cli := Retry(3, time.Millisecond)(inner)
	out, err := cli.GenerateText(context.Background(), llmclient.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, inner.calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	inner := &flaky{n: 10, err: boom}
	_, err := Retry(2, time.Millisecond)(inner).GenerateJSON(context.Background(), llmclient.Request{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, inner.calls)
}

func TestRetry_SingleAttemptMeansNoRetry(t *testing.T) {
	inner := &flaky{n: 1, err: errors.New("boom")}
	_, err := Retry(1, time.Millisecond)(inner).GenerateJSON(context.Background(), llmclient.Request{})
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	inner := &flaky{n: 10, err: llmclient.NewPermanentError(errors.New("401"))}
	_, err := Retry(5, time.Millisecond)(inner).GenerateJSON(context.Background(), llmclient.Request{})
	var perm *llmclient.PermanentError
	assert.True(t, errors.As(err, &perm))
	assert.Equal(t, 1, inner.calls)
}

func TestRetry_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inner := &flaky{n: 10, err: errors.New("boom")}
	_, err := Retry(5, time.Second)(inner).GenerateJSON(ctx, llmclient.Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimit_Burst1Spacing(t *testing.T) {
	// Expect ~>=500ms spacing after the first call when rps=2 and burst=1.
	cli := RateLimit(2, 1)(&flaky{})
	t.Cleanup(func() { _ = cli.Close() })

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := cli.GenerateText(ctx, llmclient.Request{}); err != nil {
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	assert.True(t, elapsed >= 450*time.Millisecond, "expected throttling >=450ms, got %v", elapsed)
}

func TestRateLimit_Disabled(t *testing.T) {
	inner := &flaky{}
	cli := RateLimit(0, 0)(inner)
	assert.Same(t, llmclient.LLMClient(inner), cli)
	_, err := cli.GenerateText(context.Background(), llmclient.Request{})
	require.NoError(t, err)
}

func TestRateLimit_WaitHonorsDeadline(t *testing.T) {
	inner := &flaky{}
	cli := RateLimit(0.1, 1)(inner)
	_, err := cli.GenerateJSON(context.Background(), llmclient.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = cli.GenerateJSON(ctx, llmclient.Request{})
	assert.Error(t, err, "next token is 10s away")
	assert.Equal(t, 1, inner.calls)
}

func TestWithLogging_LogsPhaseAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	cli := WithLogging(logger)(&flaky{n: 1, err: errors.New("boom")})

	ctx := WithPhase(context.Background(), PhaseBlueprint)
	_, _ = cli.GenerateJSON(ctx, llmclient.Request{Prompt: "abc"})
	_, _ = cli.GenerateJSON(ctx, llmclient.Request{Prompt: "abc"})

	out := buf.String()
	assert.Contains(t, out, "llm request (blueprint, json via flaky): prompt=3 bytes")
	assert.Contains(t, out, "llm error (blueprint): boom")
	assert.Contains(t, out, "llm response (blueprint): 2 bytes")
}

func TestWithMetrics_CountsPerPhase(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	cli := WithMetrics(m)(&flaky{n: 1, err: errors.New("boom")})

	ctx := WithPhase(context.Background(), PhaseVibeCheck)
	_, _ = cli.GenerateJSON(ctx, llmclient.Request{})
	_, _ = cli.GenerateJSON(ctx, llmclient.Request{})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(PhaseVibeCheck)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(PhaseVibeCheck)))

	lines, err := Summarize(reg)
	require.NoError(t, err)
	assert.Contains(t, lines, "cupidx_llm_requests_total{phase=vibe_check} 2")
	assert.Contains(t, lines, "cupidx_llm_failures_total{phase=vibe_check} 1")
}

func TestWithTracing_RecordsSpanPerCall(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	cli := WithTracing(tp)(&flaky{n: 1, err: errors.New("boom")})
	ctx := WithPhase(context.Background(), PhaseContextAnalysis)
	_, err := cli.GenerateText(ctx, llmclient.Request{Prompt: "recap"})
	assert.Error(t, err)
	out, err := cli.GenerateText(ctx, llmclient.Request{Prompt: "recap", Image: &types.Image{Name: "chat.png"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, "llm.context_analysis", span.Name())
	}
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1, "error recorded")
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[1].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "flaky", attrs["llm.client"].AsString())
	assert.Equal(t, int64(5), attrs["llm.prompt_bytes"].AsInt64())
	assert.True(t, attrs["llm.has_image"].AsBool())
}

func TestPhaseFrom_Default(t *testing.T) {
	assert.Equal(t, "unknown", PhaseFrom(context.Background()))
	assert.Equal(t, PhaseBlueprint, PhaseFrom(WithPhase(context.Background(), PhaseBlueprint)))
}

func TestFakeClient_ScriptsThenDemo(t *testing.T) {
	f := NewFakeClient("")
	f.Script(PhaseIntakeQuestions, FakeResponse{Body: `["only one"]`}, FakeResponse{Err: errors.New("down")})

	ctx := WithPhase(context.Background(), PhaseIntakeQuestions)
	raw, err := f.GenerateJSON(ctx, llmclient.Request{Prompt: "p1"})
	require.NoError(t, err)
	assert.JSONEq(t, `["only one"]`, string(raw))

	_, err = f.GenerateJSON(ctx, llmclient.Request{Prompt: "p2"})
	assert.EqualError(t, err, "down")

	raw, err = f.GenerateJSON(ctx, llmclient.Request{Prompt: "p3"})
	require.NoError(t, err)
	var qs []string
	require.NoError(t, json.Unmarshal(raw, &qs))
	assert.Len(t, qs, 10)

	calls := f.Calls(PhaseIntakeQuestions)
	require.Len(t, calls, 3)
	assert.Equal(t, "p2", calls[1].Request.Prompt)
	assert.Empty(t, f.Calls(PhaseBlueprint))

	_, err = f.GenerateText(context.Background(), llmclient.Request{})
	assert.True(t, strings.Contains(err.Error(), "unknown"), "got %v", err)
}

func TestFakeClient_GateHoldsCall(t *testing.T) {
	f := NewFakeClient("")
	gate := make(chan struct{})
	f.Script(PhaseContextAnalysis, FakeResponse{Body: "later", Gate: gate})

	done := make(chan string, 1)
	go func() {
		out, _ := f.GenerateText(WithPhase(context.Background(), PhaseContextAnalysis), llmclient.Request{})
		done <- out
	}()
	select {
	case <-done:
		t.Fatal("call returned before the gate opened")
	case <-time.After(20 * time.Millisecond):
	}
	close(gate)
	assert.Equal(t, "later", <-done)
}
