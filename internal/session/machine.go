package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"

	"github.com/google/uuid"

	"cupidx/internal/types"
)

// Machine owns one coaching session: the screening profile, the intake
// question set with its answers, and the blueprint. It is not safe for
// concurrent use; all calls, Apply included, belong on one goroutine.
type Machine struct {
	gw  Gateway
	log *log.Logger

	id      string
	stage   Stage
	profile *types.ScreeningProfile

	questions []string
	answers   []types.IntakeAnswer
	index     int
	pending   bool

	blueprint *types.Blueprint
	explorer  *Explorer

	fatal  *Failure
	notice *Failure
}

// New returns a Machine at Welcome. A nil logger discards output.
func New(gw Gateway, logger *log.Logger) *Machine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Machine{gw: gw, log: logger}
	m.Reset()
	return m
}

// Reset discards every owned artifact and returns to Welcome under a new
// session id. Events from the old session are dropped by Apply.
func (m *Machine) Reset() {
	*m = Machine{gw: m.gw, log: m.log, id: uuid.NewString(), stage: Welcome}
}

// ID identifies the current session; it changes on Reset.
func (m *Machine) ID() string { return m.id }

// Stage is the current stage.
func (m *Machine) Stage() Stage { return m.stage }

// Fatal is the unrecoverable failure shown as an overlay, if any.
func (m *Machine) Fatal() *Failure { return m.fatal }

// Notice is the recoverable error left by a failed blueprint call, if any.
func (m *Machine) Notice() *Failure { return m.notice }

// Explorer is non-nil only in Results.
func (m *Machine) Explorer() *Explorer { return m.explorer }

// Start moves from Welcome to Screening.
func (m *Machine) Start() error {
	if err := m.expect(Welcome); err != nil {
		return err
	}
	m.stage = Screening
	return nil
}

// Submit stores profile, enters Intake and returns the question-generation
// task. Until its event is applied the question set is empty and pending.
func (m *Machine) Submit(profile types.ScreeningProfile) (Task, error) {
	if err := m.expect(Screening); err != nil {
		return nil, err
	}
	if missing := profile.MissingFields(); len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}
	m.profile = &profile
	m.stage = Intake
	m.questions, m.answers, m.index = nil, nil, 0
	m.pending = true

	id, gw := m.id, m.gw
	return func(ctx context.Context) Event {
		qs, err := gw.RequestIntakeQuestions(ctx, profile)
		return QuestionsReady{Session: id, Questions: qs, Err: err}
	}, nil
}

// SetAnswer replaces the answer at the current question.
func (m *Machine) SetAnswer(text string) error {
	if err := m.expectAnswering(); err != nil {
		return err
	}
	m.answers[m.index].Answer = text
	return nil
}

// CanAdvance reports whether Next is enabled: the current answer is
// non-blank after trimming.
func (m *Machine) CanAdvance() bool {
	return m.expectAnswering() == nil && strings.TrimSpace(m.answers[m.index].Answer) != ""
}

// Back moves to the previous question. It is a no-op at the first one.
func (m *Machine) Back() error {
	if err := m.expectAnswering(); err != nil {
		return err
	}
	if m.index > 0 {
		m.index--
	}
	return nil
}

// Next advances to the following question. At the last question it calls
// Complete and returns the blueprint task.
func (m *Machine) Next() (Task, error) {
	if err := m.expectAnswering(); err != nil {
		return nil, err
	}
	if !m.CanAdvance() {
		return nil, &ValidationError{Fields: []string{fmt.Sprintf("answer %d", m.index+1)}}
	}
	if m.index < len(m.answers)-1 {
		m.index++
		return nil, nil
	}
	return m.Complete()
}

// Complete enters Generating and returns the blueprint task. Every answer
// must be non-blank. A missing profile is fatal.
func (m *Machine) Complete() (Task, error) {
	if err := m.expectAnswering(); err != nil {
		return nil, err
	}
	if m.profile == nil {
		iv := &InvariantViolation{What: "screening profile missing at intake completion"}
		m.fail(&Failure{Msg: msgInvariant, Err: iv})
		return nil, iv
	}
	var blank []string
	for i, a := range m.answers {
		if strings.TrimSpace(a.Answer) == "" {
			blank = append(blank, fmt.Sprintf("answer %d", i+1))
		}
	}
	if len(blank) > 0 {
		return nil, &ValidationError{Fields: blank}
	}

	m.stage = Generating
	m.notice = nil

	id, gw, profile := m.id, m.gw, *m.profile
	answers := slices.Clone(m.answers)
	return func(ctx context.Context) Event {
		bp, err := gw.RequestBlueprint(ctx, profile, answers)
		return BlueprintReady{Session: id, Blueprint: bp, Err: err}
	}, nil
}

// Apply folds a task's event into the session. Events from an earlier
// session, or that no longer match the current stage, are dropped.
func (m *Machine) Apply(ev Event) {
	if ev == nil {
		return
	}
	if ev.SessionID() != m.id {
		m.log.Printf("session %s: dropping %T from session %s", m.id, ev, ev.SessionID())
		return
	}
	if m.fatal != nil {
		return
	}
	switch ev := ev.(type) {
	case QuestionsReady:
		m.applyQuestions(ev)
	case BlueprintReady:
		m.applyBlueprint(ev)
	case VibeCheckReady, AnalysisReady:
		if m.explorer != nil {
			m.explorer.apply(ev)
		}
	}
}

// Run executes task on the calling goroutine and applies its event.
func (m *Machine) Run(ctx context.Context, task Task) {
	if task == nil {
		return
	}
	m.Apply(task(ctx))
}

func (m *Machine) applyQuestions(ev QuestionsReady) {
	if m.stage != Intake || !m.pending {
		return
	}
	m.pending = false
	if ev.Err != nil {
		m.fail(&Failure{Msg: msgQuestionsFailed, Err: ev.Err})
		return
	}
	if len(ev.Questions) == 0 {
		m.fail(&Failure{Msg: msgQuestionsFailed, Err: errors.New("no questions returned")})
		return
	}
	m.questions = slices.Clone(ev.Questions)
	m.answers = make([]types.IntakeAnswer, len(ev.Questions))
	for i, q := range ev.Questions {
		m.answers[i] = types.IntakeAnswer{Question: q}
	}
	m.index = 0
	m.log.Printf("session %s: %d intake questions ready", m.id, len(m.questions))
}

func (m *Machine) applyBlueprint(ev BlueprintReady) {
	if m.stage != Generating {
		return
	}
	if ev.Err != nil {
		m.log.Printf("session %s: blueprint failed: %v", m.id, ev.Err)
		m.stage = Intake
		m.index = len(m.answers) - 1
		m.notice = &Failure{Msg: msgBlueprintFailed, Err: ev.Err}
		return
	}
	bp := ev.Blueprint
	m.blueprint = &bp
	m.stage = Results
	m.explorer = newExplorer(m.gw, m.log, m.id, bp.Summary)
	m.log.Printf("session %s: blueprint ready", m.id)
}

func (m *Machine) fail(f *Failure) {
	m.log.Printf("session %s: fatal: %v", m.id, f)
	m.fatal = f
	m.pending = false
}

func (m *Machine) expect(s Stage) error {
	if m.fatal != nil {
		return ErrSessionFailed
	}
	if m.stage != s {
		return fmt.Errorf("%w: %s is not %s", ErrWrongStage, m.stage, s)
	}
	return nil
}

// expectAnswering checks for Intake with the question set loaded.
func (m *Machine) expectAnswering() error {
	if err := m.expect(Intake); err != nil {
		return err
	}
	if m.pending || len(m.answers) == 0 {
		return fmt.Errorf("%w: intake questions not ready", ErrWrongStage)
	}
	return nil
}

// Snapshot is a value copy of the session for renderers.
type Snapshot struct {
	ID        string
	Stage     Stage
	Profile   *types.ScreeningProfile
	Questions []string
	Answers   []types.IntakeAnswer
	Index     int
	Pending   bool
	Blueprint *types.Blueprint
	Explorer  *ExplorerView
	Fatal     *Failure
	Notice    *Failure
}

// Current returns the question and answer at Index, if loaded.
func (s Snapshot) Current() (types.IntakeAnswer, bool) {
	if s.Index < 0 || s.Index >= len(s.Answers) {
		return types.IntakeAnswer{}, false
	}
	return s.Answers[s.Index], true
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		ID:        m.id,
		Stage:     m.stage,
		Questions: slices.Clone(m.questions),
		Answers:   slices.Clone(m.answers),
		Index:     m.index,
		Pending:   m.pending,
		Fatal:     m.fatal,
		Notice:    m.notice,
	}
	if m.profile != nil {
		p := *m.profile
		s.Profile = &p
	}
	if m.blueprint != nil {
		bp := *m.blueprint
		s.Blueprint = &bp
	}
	if m.explorer != nil {
		v := m.explorer.View()
		s.Explorer = &v
	}
	return s
}
