package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cupidx/internal/gateway"
	"cupidx/internal/llm"
	"cupidx/internal/types"
)

var alex = types.ScreeningProfile{Name: "Alex", Gender: "Man", PartnerPreference: "Women", RelationshipStatus: "Single"}

const brokenBlueprint = `{
  "emotionalBlueprint": "You value steadiness.",
  "partnerFitProfile": {"archetypes": [], "greenFlags": [], "frictionPoints": [], "communicationTips": []},
  "actionKit": {"conversationOpeners": [], "microHabits": "Day 1"}
}`

type harness struct {
	m    *Machine
	fake *llm.FakeClient
	logs *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := llm.NewFakeClient("")
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	return &harness{m: New(gateway.New(fake, nil, logger), logger), fake: fake, logs: &buf}
}

// toIntake runs the machine from Welcome to a loaded question set.
func (h *harness) toIntake(t *testing.T) {
	t.Helper()
	require.NoError(t, h.m.Start())
	task, err := h.m.Submit(alex)
	require.NoError(t, err)
	h.m.Run(context.Background(), task)
	require.Nil(t, h.m.Fatal())
	require.NotEmpty(t, h.m.Snapshot().Answers)
}

// answerAll fills every answer and returns the task from the final Next.
func (h *harness) answerAll(t *testing.T) Task {
	t.Helper()
	n := len(h.m.Snapshot().Answers)
	for i := 0; i < n; i++ {
		require.NoError(t, h.m.SetAnswer(fmt.Sprintf("answer %d", i+1)))
		task, err := h.m.Next()
		require.NoError(t, err)
		if i < n-1 {
			require.Nil(t, task)
		} else {
			require.NotNil(t, task)
			return task
		}
	}
	return nil
}

func (h *harness) toResults(t *testing.T) *Explorer {
	t.Helper()
	h.toIntake(t)
	h.m.Run(context.Background(), h.answerAll(t))
	require.Equal(t, Results, h.m.Stage())
	require.NotNil(t, h.m.Explorer())
	return h.m.Explorer()
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "welcome", Welcome.String())
	assert.Equal(t, "results", Results.String())
	assert.Equal(t, "unknown", Stage(42).String())
}

func TestStart_OnlyFromWelcome(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, Welcome, h.m.Stage())
	require.NoError(t, h.m.Start())
	assert.Equal(t, Screening, h.m.Stage())
	assert.ErrorIs(t, h.m.Start(), ErrWrongStage)
}

func TestSubmit_IncompleteProfileBlocked(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Start())

	_, err := h.m.Submit(types.ScreeningProfile{Name: "  ", Gender: "Man"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name", "partnerPreference", "relationshipStatus"}, verr.Fields)
	assert.Equal(t, Screening, h.m.Stage())
	assert.Empty(t, h.fake.Calls(""), "validation never reaches the gateway")
}

func TestSubmit_PendingThenQuestions(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Start())
	task, err := h.m.Submit(alex)
	require.NoError(t, err)

	snap := h.m.Snapshot()
	assert.Equal(t, Intake, snap.Stage)
	assert.True(t, snap.Pending)
	assert.Empty(t, snap.Questions)
	assert.Equal(t, alex, *snap.Profile)
	assert.False(t, h.m.CanAdvance())
	assert.ErrorIs(t, h.m.SetAnswer("x"), ErrWrongStage)

	h.m.Run(context.Background(), task)
	snap = h.m.Snapshot()
	assert.False(t, snap.Pending)
	require.Len(t, snap.Questions, gateway.IntakeQuestionCount)
	require.Len(t, snap.Answers, len(snap.Questions))
	for i, a := range snap.Answers {
		assert.Equal(t, snap.Questions[i], a.Question)
		assert.Empty(t, a.Answer)
	}
	assert.Len(t, h.fake.Calls(llm.PhaseIntakeQuestions), 1)
}

func TestSubmit_QuestionFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.fake.Script(llm.PhaseIntakeQuestions, llm.FakeResponse{Err: errors.New("unavailable")})
	require.NoError(t, h.m.Start())
	task, err := h.m.Submit(alex)
	require.NoError(t, err)
	h.m.Run(context.Background(), task)

	f := h.m.Fatal()
	require.NotNil(t, f)
	assert.Equal(t, msgQuestionsFailed, f.Msg)
	assert.ErrorIs(t, f, gateway.ErrTransport)
	assert.False(t, h.m.Snapshot().Pending)

	assert.ErrorIs(t, h.m.SetAnswer("x"), ErrSessionFailed)
	_, err = h.m.Next()
	assert.ErrorIs(t, err, ErrSessionFailed)
	assert.ErrorIs(t, h.m.Start(), ErrSessionFailed)

	h.m.Reset()
	assert.Nil(t, h.m.Fatal())
	assert.Equal(t, Welcome, h.m.Stage())
}

func TestSubmit_NoQuestionsIsFatal(t *testing.T) {
	h := newHarness(t)
	h.fake.Script(llm.PhaseIntakeQuestions, llm.FakeResponse{Body: `[]`})
	require.NoError(t, h.m.Start())
	task, _ := h.m.Submit(alex)
	h.m.Run(context.Background(), task)
	require.NotNil(t, h.m.Fatal())
}

func TestIntake_AnswersStayAlignedWithQuestions(t *testing.T) {
	h := newHarness(t)
	h.toIntake(t)
	questions := h.m.Snapshot().Questions

	check := func() {
		snap := h.m.Snapshot()
		require.Len(t, snap.Answers, len(questions))
		for i, a := range snap.Answers {
			assert.Equal(t, questions[i], a.Question)
		}
	}

	require.NoError(t, h.m.SetAnswer("first"))
	check()
	_, err := h.m.Next()
	require.NoError(t, err)
	require.NoError(t, h.m.SetAnswer("second"))
	check()
	require.NoError(t, h.m.Back())
	check()

	snap := h.m.Snapshot()
	assert.Equal(t, 0, snap.Index)
	cur, ok := snap.Current()
	require.True(t, ok)
	assert.Equal(t, "first", cur.Answer)
	assert.Equal(t, "second", snap.Answers[1].Answer)
	for _, a := range snap.Answers[2:] {
		assert.Empty(t, a.Answer, "other indices untouched")
	}
}

func TestIntake_BackIsNoOpAtFirstQuestion(t *testing.T) {
	h := newHarness(t)
	h.toIntake(t)
	require.NoError(t, h.m.Back())
	assert.Equal(t, 0, h.m.Snapshot().Index)
}

func TestIntake_NextDisabledIffBlank(t *testing.T) {
	h := newHarness(t)
	h.toIntake(t)

	for _, tc := range []struct {
		answer string
		ok     bool
	}{
		{"", false},
		{"   ", false},
		{"\n\t", false},
		{" x ", true},
		{"I talk it out", true},
	} {
		require.NoError(t, h.m.SetAnswer(tc.answer))
		assert.Equal(t, tc.ok, h.m.CanAdvance(), "answer %q", tc.answer)
	}

	require.NoError(t, h.m.SetAnswer(" "))
	_, err := h.m.Next()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"answer 1"}, verr.Fields)
	assert.Equal(t, 0, h.m.Snapshot().Index)
}

func TestComplete_AlexScenario(t *testing.T) {
	h := newHarness(t)
	h.toIntake(t)
	task := h.answerAll(t)
	assert.Equal(t, Generating, h.m.Stage())

	_, err := h.m.Complete()
	assert.ErrorIs(t, err, ErrWrongStage, "only one blueprint call in flight")

	h.m.Run(context.Background(), task)
	require.Equal(t, Results, h.m.Stage())

	calls := h.fake.Calls(llm.PhaseBlueprint)
	require.Len(t, calls, 1)
	for i := 1; i <= gateway.IntakeQuestionCount; i++ {
		assert.Contains(t, calls[0].Request.Prompt, fmt.Sprintf(`"answer":"answer %d"`, i))
	}

	bp := h.m.Snapshot().Blueprint
	require.NotNil(t, bp)
	assert.NotEmpty(t, bp.Summary)
	assert.NotEmpty(t, bp.ActionKit.BioRewrite)

	ex := h.m.Explorer()
	vt, err := ex.GenerateVibeCheck()
	require.NoError(t, err)
	h.m.Run(context.Background(), vt)
	view := ex.View()
	require.Len(t, view.VibeCheck, gateway.VibeCheckCount)
	assert.Contains(t, h.fake.Calls(llm.PhaseVibeCheck)[0].Request.Prompt, bp.Summary)
}

func TestComplete_MalformedBlueprintReturnsToIntake(t *testing.T) {
	h := newHarness(t)
	h.fake.Script(llm.PhaseBlueprint, llm.FakeResponse{Body: brokenBlueprint})
	h.toIntake(t)
	task := h.answerAll(t)
	before := h.m.Snapshot().Answers

	h.m.Run(context.Background(), task)
	snap := h.m.Snapshot()
	assert.Equal(t, Intake, snap.Stage)
	assert.Nil(t, snap.Fatal)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, msgBlueprintFailed, snap.Notice.Msg)
	assert.ErrorIs(t, snap.Notice, gateway.ErrMalformed)
	assert.Equal(t, before, snap.Answers, "answers in equal answers out")
	assert.Equal(t, len(before)-1, snap.Index)
	assert.Contains(t, h.logs.String(), "actionKit.bioRewrite")

	// Retry with the same answers succeeds against the demo payload.
	task, err := h.m.Complete()
	require.NoError(t, err)
	assert.Nil(t, h.m.Notice())
	h.m.Run(context.Background(), task)
	assert.Equal(t, Results, h.m.Stage())
	assert.Len(t, h.fake.Calls(llm.PhaseBlueprint), 2)
}

func TestComplete_BlankAnswerRejected(t *testing.T) {
	h := newHarness(t)
	h.toIntake(t)
	require.NoError(t, h.m.SetAnswer("only the first"))

	_, err := h.m.Complete()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, gateway.IntakeQuestionCount-1)
	assert.Equal(t, Intake, h.m.Stage())
}

func TestComplete_MissingProfileIsInvariantViolation(t *testing.T) {
	h := newHarness(t)
	h.toIntake(t)
	h.m.profile = nil

	_, err := h.m.Complete()
	var iv *InvariantViolation
	require.ErrorAs(t, err, &iv)
	require.NotNil(t, h.m.Fatal())
	assert.Equal(t, msgInvariant, h.m.Fatal().Msg)
	assert.Empty(t, h.fake.Calls(llm.PhaseBlueprint))
}

func TestReset_ClearsEverything(t *testing.T) {
	h := newHarness(t)
	ex := h.toResults(t)
	ex.SetContext("we had coffee", nil)
	vt, _ := ex.GenerateVibeCheck()
	at, _ := ex.Analyze()
	h.m.Run(context.Background(), vt)
	h.m.Run(context.Background(), at)
	require.NotEmpty(t, ex.View().Analysis)

	oldID := h.m.ID()
	h.m.Reset()
	snap := h.m.Snapshot()
	assert.Equal(t, Welcome, snap.Stage)
	assert.NotEqual(t, oldID, snap.ID)
	assert.Nil(t, snap.Profile)
	assert.Empty(t, snap.Questions)
	assert.Empty(t, snap.Answers)
	assert.Nil(t, snap.Blueprint)
	assert.Nil(t, snap.Explorer)
	assert.Nil(t, h.m.Explorer())
}

func TestReset_FromEveryStage(t *testing.T) {
	for _, stage := range []Stage{Welcome, Screening, Intake, Generating, Results} {
		t.Run(stage.String(), func(t *testing.T) {
			h := newHarness(t)
			switch stage {
			case Screening:
				require.NoError(t, h.m.Start())
			case Intake:
				h.toIntake(t)
			case Generating:
				h.toIntake(t)
				h.answerAll(t)
			case Results:
				h.toResults(t)
			}
			require.Equal(t, stage, h.m.Stage())
			h.m.Reset()
			assert.Equal(t, Welcome, h.m.Stage())
			assert.Nil(t, h.m.Snapshot().Profile)
		})
	}
}

func TestApply_DropsEventsFromResetSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Start())
	task, err := h.m.Submit(alex)
	require.NoError(t, err)

	ev := task(context.Background())
	h.m.Reset()
	require.NoError(t, h.m.Start())
	h.m.Apply(ev)

	assert.Equal(t, Screening, h.m.Stage())
	assert.Empty(t, h.m.Snapshot().Questions)
	assert.True(t, strings.Contains(h.logs.String(), "dropping session.QuestionsReady"), h.logs.String())
}

func TestExplorer_ActionsAreIndependent(t *testing.T) {
	h := newHarness(t)
	ex := h.toResults(t)

	vibeGate, analysisGate := make(chan struct{}), make(chan struct{})
	h.fake.Script(llm.PhaseVibeCheck, llm.FakeResponse{Body: `[{"question":"q","alignedAnswer":"a","frictionSignal":"f"}]`, Gate: vibeGate})
	h.fake.Script(llm.PhaseContextAnalysis, llm.FakeResponse{Body: "analysis", Gate: analysisGate})

	ex.SetContext("recap", nil)
	vt, err := ex.GenerateVibeCheck()
	require.NoError(t, err)
	at, err := ex.Analyze()
	require.NoError(t, err)

	_, err = ex.GenerateVibeCheck()
	assert.ErrorIs(t, err, ErrBusy)
	_, err = ex.Analyze()
	assert.ErrorIs(t, err, ErrBusy)

	vibeDone, analysisDone := make(chan Event, 1), make(chan Event, 1)
	go func() { vibeDone <- vt(context.Background()) }()
	go func() { analysisDone <- at(context.Background()) }()

	close(analysisGate)
	h.m.Apply(<-analysisDone)
	view := ex.View()
	assert.Equal(t, "analysis", view.Analysis)
	assert.False(t, view.AnalysisPending)
	assert.True(t, view.VibePending, "vibe flag untouched by analysis")
	assert.Empty(t, view.VibeCheck)

	close(vibeGate)
	h.m.Apply(<-vibeDone)
	view = ex.View()
	assert.False(t, view.VibePending)
	assert.Len(t, view.VibeCheck, 1)
	assert.Equal(t, "analysis", view.Analysis, "analysis slot untouched by vibe check")
}

func TestExplorer_VibeFailureKeepsPriorBatch(t *testing.T) {
	h := newHarness(t)
	ex := h.toResults(t)

	vt, _ := ex.GenerateVibeCheck()
	h.m.Run(context.Background(), vt)
	prior := ex.View().VibeCheck
	require.Len(t, prior, gateway.VibeCheckCount)

	h.fake.Script(llm.PhaseVibeCheck, llm.FakeResponse{Body: `{"nope":true}`})
	vt, _ = ex.GenerateVibeCheck()
	h.m.Run(context.Background(), vt)

	view := ex.View()
	assert.Equal(t, prior, view.VibeCheck)
	assert.False(t, view.VibePending)
	require.NotNil(t, view.VibeErr)
	assert.ErrorIs(t, view.VibeErr, gateway.ErrMalformed)
	assert.Contains(t, h.logs.String(), "vibe check failed")
	assert.Equal(t, Results, h.m.Stage())
	assert.Nil(t, h.m.Fatal())

	ex.DismissErrors()
	assert.Nil(t, ex.View().VibeErr)
}

func TestExplorer_AnalysisRequiresInput(t *testing.T) {
	h := newHarness(t)
	ex := h.toResults(t)

	assert.False(t, ex.CanAnalyze())
	_, err := ex.Analyze()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	ex.SetContext("   ", nil)
	assert.False(t, ex.CanAnalyze())

	img := &types.Image{Name: "chat.png", MIMEType: "image/png", Data: []byte{1}}
	ex.SetContext("", img)
	assert.True(t, ex.CanAnalyze())
	at, err := ex.Analyze()
	require.NoError(t, err)
	h.m.Run(context.Background(), at)

	req := h.fake.Calls(llm.PhaseContextAnalysis)[0].Request
	assert.Same(t, img, req.Image)
	assert.Equal(t, "chat.png", ex.View().ImageName)
}

func TestExplorer_AnalysisFailureMarksStale(t *testing.T) {
	h := newHarness(t)
	ex := h.toResults(t)
	ex.SetContext("recap", nil)

	at, _ := ex.Analyze()
	h.m.Run(context.Background(), at)
	first := ex.View().Analysis
	require.NotEmpty(t, first)

	h.fake.Script(llm.PhaseContextAnalysis, llm.FakeResponse{Err: errors.New("timeout")})
	at, _ = ex.Analyze()
	h.m.Run(context.Background(), at)

	view := ex.View()
	assert.Equal(t, first, view.Analysis)
	assert.True(t, view.AnalysisStale)
	require.NotNil(t, view.AnalysisErr)
	assert.Equal(t, msgAnalysisFailed, view.AnalysisErr.Msg)

	at, _ = ex.Analyze()
	h.m.Run(context.Background(), at)
	assert.False(t, ex.View().AnalysisStale)
	assert.Nil(t, ex.View().AnalysisErr)
}
