package llm

import "context"

// Call phases used by the gateway. They label logs, metrics, spans and
// select canned payloads in FakeClient.
const (
	PhaseIntakeQuestions = "intake_questions"
	PhaseBlueprint       = "blueprint"
	PhaseVibeCheck       = "vibe_check"
	PhaseContextAnalysis = "context_analysis"
)

type ctxKeyPhase struct{}

// WithPhase tags ctx with the call phase.
func WithPhase(ctx context.Context, phase string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if ctx != nil {
		if v := ctx.Value(ctxKeyPhase{}); v != nil {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return "unknown"
}
