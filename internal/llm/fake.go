package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cupidx/internal/llmclient"
)

// FakeResponse is one scripted answer. Gate, when non-nil, holds the call
// until it is closed or the context ends.
type FakeResponse struct {
	Body string
	Err  error
	Gate chan struct{}
}

// FakeCall records one request that reached the fake.
type FakeCall struct {
	Phase   string
	Request llmclient.Request
}

// FakeClient returns scripted responses per phase, falling back to
// deterministic demo payloads for offline runs and tests.
type FakeClient struct {
	name string

	mu      sync.Mutex
	scripts map[string][]FakeResponse
	calls   []FakeCall
}

func NewFakeClient(name string) *FakeClient {
	if name == "" {
		name = "FakeLLM"
	}
	return &FakeClient{name: name, scripts: map[string][]FakeResponse{}}
}

func (f *FakeClient) Name() string { return f.name }
func (f *FakeClient) Close() error { return nil }

// Script queues responses for phase; each call consumes one. Once the
// queue is empty the demo payload is used again.
func (f *FakeClient) Script(phase string, rs ...FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[phase] = append(f.scripts[phase], rs...)
}

// Calls returns the recorded calls for phase, or all calls when phase is "".
func (f *FakeClient) Calls(phase string) []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FakeCall
	for _, c := range f.calls {
		if phase == "" || c.Phase == phase {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeClient) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	body, err := f.next(ctx, req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (f *FakeClient) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	return f.next(ctx, req)
}

func (f *FakeClient) next(ctx context.Context, req llmclient.Request) (string, error) {
	phase := PhaseFrom(ctx)

	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Phase: phase, Request: req})
	var resp FakeResponse
	scripted := false
	if q := f.scripts[phase]; len(q) > 0 {
		resp, f.scripts[phase] = q[0], q[1:]
		scripted = true
	}
	f.mu.Unlock()

	if !scripted {
		body, ok := demoPayloads[phase]
		if !ok {
			return "", fmt.Errorf("llm: fake client has no payload for phase %q", phase)
		}
		return body, nil
	}
	if resp.Gate != nil {
		select {
		case <-resp.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Body, nil
}

var demoPayloads = map[string]string{
	PhaseIntakeQuestions: mustJSON([]string{
		"When a disagreement starts heating up, what do you usually do first?",
		"How do you show someone you care without saying it out loud?",
		"What does feeling emotionally safe with a partner look like for you?",
		"Which value would you never compromise on in a relationship?",
		"What is a lesson a past relationship taught you the hard way?",
		"How much time alone do you need to feel like yourself?",
		"When you feel hurt, how do you let the other person know?",
		"What small everyday gesture makes you feel most loved?",
		"How do you picture a healthy week together with a partner?",
		"What pattern in your dating life would you most like to change?",
	}),
	PhaseBlueprint: mustJSON(map[string]any{
		"emotionalBlueprint": "You lead with warmth and loyalty, and you read a room quickly. " +
			"Under stress you tend to pull inward to sort your feelings before talking them through.\n\n" +
			"Your attachment style leans secure with an anxious edge when communication goes quiet. " +
			"You thrive with partners who are consistent, curious, and direct about what they need.",
		"partnerFitProfile": map[string]any{
			"archetypes":        []string{"The Stable Anchor", "The Curious Explorer", "The Gentle Truth-Teller"},
			"greenFlags":        []string{"Follows through on small plans", "Names feelings without blame", "Makes space for your alone time"},
			"frictionPoints":    []string{"Long silences after conflict", "Mismatched pace of commitment"},
			"communicationTips": []string{"Say when you need a pause and when you'll come back", "Ask one curious question before offering advice"},
		},
		"actionKit": map[string]any{
			"bioRewrite":          "Loyal friend, slow-morning enthusiast, and honest conversationalist. Looking for someone who likes deep talks as much as spontaneous walks.",
			"conversationOpeners": []string{"What's a small thing that made your week better?", "What's your ideal lazy Sunday?", "Which friend would describe you best, and how?"},
			"microHabits":         "Day 1: Name one feeling out loud. Day 2: Send a check-in text without an agenda. Day 3: Notice when you withdraw. Day 4: Ask for what you need once. Day 5: Celebrate a small win. Day 6: Plan a low-pressure date. Day 7: Reflect on what felt easy.",
		},
	}),
	PhaseVibeCheck: mustJSON([]map[string]string{
		{"question": "How do you usually spend the day after a rough week?", "alignedAnswer": "I recharge, then I like to reconnect with people I trust.", "frictionSignal": "I disappear for a while and don't really tell anyone."},
		{"question": "What does a good apology look like to you?", "alignedAnswer": "Owning it, saying what you'll do differently, then doing it.", "frictionSignal": "Apologies are overrated, people should just move on."},
		{"question": "How do you like to plan time together?", "alignedAnswer": "A mix of plans and spontaneity, as long as we both have input.", "frictionSignal": "I'll text you if I'm free."},
		{"question": "What's something you're working on about yourself?", "alignedAnswer": "Getting better at saying what I need instead of hinting.", "frictionSignal": "Honestly, nothing. I'm good."},
		{"question": "How do you handle it when a friend disagrees with you?", "alignedAnswer": "I try to understand their side before I defend mine.", "frictionSignal": "I usually stop talking to them."},
	}),
	PhaseContextAnalysis: "It sounds like the conversation shifted when plans came up: their replies got shorter, " +
		"which often signals uncertainty rather than disinterest.\n\n" +
		"**Pattern:** you filled the silence with more questions, which can feel like pressure.\n\n" +
		"**Suggestion:** send one light, low-stakes message that leaves an easy opening, then let them meet you there.",
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
