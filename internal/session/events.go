package session

import (
	"context"

	"cupidx/internal/types"
)

// Gateway is the subset of the model gateway a session needs.
type Gateway interface {
	RequestIntakeQuestions(ctx context.Context, profile types.ScreeningProfile) ([]string, error)
	RequestBlueprint(ctx context.Context, profile types.ScreeningProfile, answers []types.IntakeAnswer) (types.Blueprint, error)
	RequestVibeCheck(ctx context.Context, summary string) ([]types.VibeCheckQuestion, error)
	RequestContextAnalysis(ctx context.Context, text string, img *types.Image) (string, error)
}

// Task performs the gateway call for an async transition. It touches no
// session state and may run on any goroutine; its Event is handed back to
// Apply on the goroutine that owns the session.
type Task func(ctx context.Context) Event

// Event is the outcome of a Task.
type Event interface {
	SessionID() string
}

// QuestionsReady carries the intake question set.
type QuestionsReady struct {
	Session   string
	Questions []string
	Err       error
}

// BlueprintReady carries the synthesized blueprint.
type BlueprintReady struct {
	Session   string
	Blueprint types.Blueprint
	Err       error
}

// VibeCheckReady carries a vibe-check batch.
type VibeCheckReady struct {
	Session   string
	Questions []types.VibeCheckQuestion
	Err       error
}

// AnalysisReady carries a context analysis.
type AnalysisReady struct {
	Session string
	Text    string
	Err     error
}

func (e QuestionsReady) SessionID() string { return e.Session }
func (e BlueprintReady) SessionID() string { return e.Session }
func (e VibeCheckReady) SessionID() string { return e.Session }
func (e AnalysisReady) SessionID() string { return e.Session }
