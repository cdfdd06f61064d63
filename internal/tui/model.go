package tui

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"cupidx/internal/render"
	"cupidx/internal/session"
	"cupidx/internal/types"
)

// Model is the interactive front-end. It owns the session Machine and is the
// only goroutine that mutates it: tasks run as commands and their events
// come back through Update.
type Model struct {
	ctx  context.Context
	sm   *session.Machine
	log  *log.Logger
	md   *render.Renderer
	exec func(session.Task) tea.Cmd

	width, height int
	spinner       spinner.Model

	form screeningForm

	answer     textarea.Model
	shownIndex int
	inputErr   string

	tab       render.Tab
	coachText textarea.Model
	imagePath textinput.Model
	onImage   bool
	coachErr  string

	quitting bool
}

// New builds a Model around sm. Tasks run with ctx.
func New(ctx context.Context, sm *session.Machine, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = stylePink

	m := &Model{
		ctx:        ctx,
		sm:         sm,
		log:        logger,
		spinner:    sp,
		shownIndex: -1,
	}
	m.exec = m.runTask
	m.resetInputs()
	return m
}

func (m *Model) resetInputs() {
	m.form = newScreeningForm()

	ta := textarea.New()
	ta.Placeholder = "Take your time... (Enter: next, Alt+Enter: newline, Ctrl+B: back)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(5)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	m.answer = ta
	m.shownIndex = -1
	m.inputErr = ""

	ct := textarea.New()
	ct.Placeholder = "Describe the date or conversation..."
	ct.ShowLineNumbers = false
	ct.CharLimit = 8000
	ct.SetHeight(4)
	m.coachText = ct

	ip := textinput.New()
	ip.Placeholder = "path/to/screenshot.png (optional)"
	ip.CharLimit = 1024
	m.imagePath = ip
	m.onImage = false
	m.coachErr = ""

	m.tab = render.TabBlueprint
	m.resize()
}

func (m *Model) runTask(task session.Task) tea.Cmd {
	if task == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg { return task(ctx) }
}

func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.md = nil
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case session.Event:
		before := m.sm.Stage()
		m.sm.Apply(msg)
		return m, m.afterTransition(before)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "ctrl+r":
			return m, m.reset()
		}
		if m.sm.Fatal() != nil {
			return m, m.updateFatal(msg)
		}
		switch m.sm.Stage() {
		case session.Welcome:
			return m, m.updateWelcome(msg)
		case session.Screening:
			return m, m.updateScreening(msg)
		case session.Intake:
			return m, m.updateIntake(msg)
		case session.Results:
			return m, m.updateResults(msg)
		}
	}
	return m, nil
}

func (m *Model) reset() tea.Cmd {
	m.sm.Reset()
	m.resetInputs()
	return nil
}

func (m *Model) updateFatal(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "r":
		return m.reset()
	case "q":
		m.quitting = true
		return tea.Quit
	}
	return nil
}

func (m *Model) updateWelcome(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", " ":
		if err := m.sm.Start(); err != nil {
			m.log.Printf("tui: start: %v", err)
			return nil
		}
		return m.form.focus()
	case "q", "esc":
		m.quitting = true
		return tea.Quit
	}
	return nil
}

func (m *Model) updateScreening(msg tea.KeyMsg) tea.Cmd {
	submit, cmd := m.form.update(msg)
	if !submit {
		return cmd
	}
	before := m.sm.Stage()
	task, err := m.sm.Submit(m.form.profile())
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		m.form.err = "Please fill in: " + strings.Join(verr.Fields, ", ")
		return cmd
	case err != nil:
		m.log.Printf("tui: submit: %v", err)
		return cmd
	}
	m.form.err = ""
	return tea.Batch(cmd, m.exec(task), m.afterTransition(before))
}

func (m *Model) updateIntake(msg tea.KeyMsg) tea.Cmd {
	snap := m.sm.Snapshot()
	if snap.Pending || len(snap.Answers) == 0 {
		return nil
	}
	switch msg.String() {
	case "enter":
		before := m.sm.Stage()
		task, err := m.sm.Next()
		var verr *session.ValidationError
		switch {
		case errors.As(err, &verr):
			m.inputErr = "Share a little something before moving on."
			return nil
		case err != nil:
			m.log.Printf("tui: next: %v", err)
			return nil
		}
		m.inputErr = ""
		return tea.Batch(m.exec(task), m.afterTransition(before))
	case "ctrl+b":
		if err := m.sm.Back(); err != nil {
			m.log.Printf("tui: back: %v", err)
		}
		m.inputErr = ""
		return m.syncAnswer()
	}
	var cmd tea.Cmd
	m.answer, cmd = m.answer.Update(msg)
	if err := m.sm.SetAnswer(m.answer.Value()); err != nil {
		m.log.Printf("tui: set answer: %v", err)
	}
	return cmd
}

func (m *Model) updateResults(msg tea.KeyMsg) tea.Cmd {
	ex := m.sm.Explorer()
	if ex == nil {
		return nil
	}
	switch msg.String() {
	case "tab":
		return m.selectTab((m.tab + 1) % render.Tab(len(render.Tabs)))
	case "shift+tab":
		return m.selectTab((m.tab + render.Tab(len(render.Tabs)) - 1) % render.Tab(len(render.Tabs)))
	}
	if m.tab == render.TabCoach {
		return m.updateCoach(msg, ex)
	}
	switch s := msg.String(); s {
	case "1", "2", "3", "4", "5":
		return m.selectTab(render.Tab(s[0] - '1'))
	case "g":
		if m.tab != render.TabVibeCheck {
			return nil
		}
		task, err := ex.GenerateVibeCheck()
		if err != nil {
			return nil
		}
		return m.exec(task)
	case "x":
		ex.DismissErrors()
	case "q":
		m.quitting = true
		return tea.Quit
	}
	return nil
}

func (m *Model) updateCoach(msg tea.KeyMsg, ex *session.Explorer) tea.Cmd {
	switch msg.String() {
	case "ctrl+s":
		var img *types.Image
		if p := strings.TrimSpace(m.imagePath.Value()); p != "" {
			loaded, err := types.LoadImage(p)
			if err != nil {
				m.coachErr = err.Error()
				return nil
			}
			img = loaded
		}
		ex.SetContext(m.coachText.Value(), img)
		task, err := ex.Analyze()
		var verr *session.ValidationError
		switch {
		case errors.As(err, &verr):
			m.coachErr = "Add a recap or a screenshot first."
			return nil
		case err != nil:
			return nil
		}
		m.coachErr = ""
		return m.exec(task)
	case "ctrl+o":
		m.onImage = !m.onImage
		return m.focusCoach()
	case "esc":
		ex.DismissErrors()
		m.coachErr = ""
		return nil
	}
	var cmd tea.Cmd
	if m.onImage {
		m.imagePath, cmd = m.imagePath.Update(msg)
	} else {
		m.coachText, cmd = m.coachText.Update(msg)
	}
	return cmd
}

func (m *Model) selectTab(t render.Tab) tea.Cmd {
	m.tab = t
	if t == render.TabCoach {
		return m.focusCoach()
	}
	m.coachText.Blur()
	m.imagePath.Blur()
	return nil
}

func (m *Model) focusCoach() tea.Cmd {
	if m.onImage {
		m.coachText.Blur()
		return m.imagePath.Focus()
	}
	m.imagePath.Blur()
	return m.coachText.Focus()
}

// afterTransition aligns the inputs with the session after a stage change.
func (m *Model) afterTransition(before session.Stage) tea.Cmd {
	after := m.sm.Stage()
	switch {
	case after == session.Intake:
		return m.syncAnswer()
	case after == session.Results && before != session.Results:
		m.tab = render.TabBlueprint
		m.answer.Blur()
	}
	return nil
}

// syncAnswer loads the current answer into the editor when the question
// index moved.
func (m *Model) syncAnswer() tea.Cmd {
	snap := m.sm.Snapshot()
	cur, ok := snap.Current()
	if !ok || snap.Pending {
		return nil
	}
	if snap.Index != m.shownIndex {
		m.answer.SetValue(cur.Answer)
		m.shownIndex = snap.Index
	}
	return m.answer.Focus()
}

func (m *Model) resize() {
	w := m.width - 4
	if w <= 0 {
		w = 76
	}
	m.answer.SetWidth(w)
	m.coachText.SetWidth(w)
	m.imagePath.Width = w - 2
	m.form.name.Width = w - 24
}

func (m *Model) renderer() *render.Renderer {
	if m.md == nil {
		w := m.width - 4
		if w <= 0 {
			w = 76
		}
		m.md = render.NewRenderer("", w)
	}
	return m.md
}

// Quitting reports whether the user asked to leave.
func (m *Model) Quitting() bool { return m.quitting }
