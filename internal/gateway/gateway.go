package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	genai "google.golang.org/genai"

	"cupidx/internal/llm"
	"cupidx/internal/llmclient"
	"cupidx/internal/types"
	"cupidx/internal/util/jsonutil"
)

// Target sizes requested from the model. They are hints to the provider and
// are not enforced on the response.
const (
	IntakeQuestionCount = 10
	VibeCheckCount      = 5
)

// Gateway is the single choke point for model calls. Light calls go to
// fast, synthesis calls go to deep.
type Gateway struct {
	fast llmclient.LLMClient
	deep llmclient.LLMClient
	log  *log.Logger
}

// New builds a Gateway. deep may be nil, in which case fast serves every call.
func New(fast, deep llmclient.LLMClient, logger *log.Logger) *Gateway {
	if deep == nil {
		deep = fast
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Gateway{fast: fast, deep: deep, log: logger}
}

// RequestIntakeQuestions asks for the ordered intake questions for profile.
func (g *Gateway) RequestIntakeQuestions(ctx context.Context, profile types.ScreeningProfile) ([]string, error) {
	const op = "intake questions"
	prompt, err := promptSpec{
		Purpose: "Generate 10 insightful, open-ended questions to help this user explore their emotional patterns, attachment style, and relationship needs.",
		Input:   map[string]any{"profile": profile},
		Rules: []string{
			"Cover conflict resolution, emotional expression, core values, and past relationship lessons.",
			"Ask one thing per question.",
		},
		Tone:   "Warm, curious, and non-judgmental.",
		Output: "Return the questions as a JSON array of strings.",
	}.render()
	if err != nil {
		return nil, err
	}
	var out []string
	if err := g.structured(ctx, g.fast, llm.PhaseIntakeQuestions, op, prompt, intakeQuestionsSchema, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestBlueprint synthesizes the Emotional Blueprint from profile and answers.
func (g *Gateway) RequestBlueprint(ctx context.Context, profile types.ScreeningProfile, answers []types.IntakeAnswer) (types.Blueprint, error) {
	const op = "blueprint"
	prompt, err := promptSpec{
		Purpose: "Analyze the user's responses through the lens of behavioral psychology and attachment theory and generate a comprehensive 'Emotional Blueprint' for them.",
		Input:   map[string]any{"profile": profile, "answers": answers},
		Rules: []string{
			"Ground every insight in what the user actually wrote.",
			"Keep partner archetypes positive and specific.",
		},
		Tone:   "Warm, insightful, and empowering.",
		Output: "A single JSON object with exactly the keys and structure of the response schema.",
	}.render()
	if err != nil {
		return types.Blueprint{}, err
	}
	var out types.Blueprint
	if err := g.structured(ctx, g.deep, llm.PhaseBlueprint, op, prompt, blueprintSchema, &out); err != nil {
		return types.Blueprint{}, err
	}
	return out, nil
}

// RequestVibeCheck asks for vibe-check questions derived from the blueprint summary.
func (g *Gateway) RequestVibeCheck(ctx context.Context, summary string) ([]types.VibeCheckQuestion, error) {
	const op = "vibe check"
	prompt, err := promptSpec{
		Purpose: "Generate 5 personalized 'Vibe Check' questions the user can ask a potential partner to gauge compatibility.",
		Input:   map[string]any{"emotionalBlueprintSummary": summary},
		Rules: []string{
			"For each question give an 'aligned answer' (a green flag) and a 'friction signal' (a red flag).",
			"Questions should be subtle and conversational.",
		},
		Output: "A JSON array of objects, each with 'question', 'alignedAnswer', and 'frictionSignal' keys.",
	}.render()
	if err != nil {
		return nil, err
	}
	var out []types.VibeCheckQuestion
	if err := g.structured(ctx, g.fast, llm.PhaseVibeCheck, op, prompt, vibeCheckSchema, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestContextAnalysis coaches the user on a recap and/or a chat screenshot.
// The screenshot, when present, is sent ahead of the instruction.
func (g *Gateway) RequestContextAnalysis(ctx context.Context, text string, img *types.Image) (string, error) {
	const op = "context analysis"
	input := map[string]any{"recap": text}
	rules := []string{
		"Identify potential communication patterns, emotional cues, and underlying dynamics.",
		"Offer one clear, actionable suggestion for how the user could respond or proceed.",
		"Keep the analysis concise.",
	}
	if img != nil {
		rules = append(rules, "The attached image is a screenshot from the user's dating life; read it before the recap.")
	}
	prompt, err := promptSpec{
		Purpose: "Analyze the following context from a user's dating life. It could be a chat screenshot or a recap of a date.",
		Input:   input,
		Rules:   rules,
		Tone:    "Warm, non-judgmental, and empathetic.",
	}.render()
	if err != nil {
		return "", err
	}
	ctx = llm.WithPhase(ctx, llm.PhaseContextAnalysis)
	out, err := g.deep.GenerateText(ctx, llmclient.Request{Prompt: prompt, Image: img})
	if err != nil {
		return "", g.classify(op, err)
	}
	return out, nil
}

// structured runs a schema-constrained call and decodes the validated
// payload into out.
func (g *Gateway) structured(ctx context.Context, cli llmclient.LLMClient, phase, op, prompt string, schema *genai.Schema, out any) error {
	ctx = llm.WithPhase(ctx, phase)
	raw, err := cli.GenerateJSON(ctx, llmclient.Request{Prompt: prompt, Schema: schema})
	if err != nil {
		return g.classify(op, err)
	}
	return g.decode(op, raw, schema, out)
}

func (g *Gateway) decode(op string, raw json.RawMessage, schema *genai.Schema, out any) error {
	v, err := jsonutil.Decode(raw)
	if err != nil {
		g.log.Printf("gateway: %s: undecodable payload (%d bytes): %v", op, len(raw), err)
		if fixed, ok := jsonutil.RepairCandidate(raw); ok {
			g.log.Printf("gateway: %s: rejected repair candidate: %.200s", op, fixed)
		}
		return malformed(op, err)
	}
	if err := validate(v, schema, ""); err != nil {
		g.log.Printf("gateway: %s: %v", op, err)
		return malformed(op, err)
	}
	if err := jsonutil.Remarshal(v, out); err != nil {
		return malformed(op, err)
	}
	return nil
}

func (g *Gateway) classify(op string, err error) error {
	if errors.Is(err, llmclient.ErrEmptyResponse) {
		return malformed(op, err)
	}
	return transport(op, err)
}
