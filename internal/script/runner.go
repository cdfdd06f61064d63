package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"cupidx/internal/render"
	"cupidx/internal/session"
	"cupidx/internal/types"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures a scripted run.
type Options struct {
	Input     Input
	VibeCheck bool
	Format    string
	// Prompt is read for values missing from Input; nil disables prompting.
	Prompt io.Reader
	// Out receives prompts, progress and the final report.
	Out io.Writer
	// Markdown renders the text report; nil prints raw markdown.
	Markdown *render.Renderer
	Logger   *log.Logger
}

// Report is the outcome of a run, also the JSON output shape.
type Report struct {
	Session      string                    `json:"session"`
	Profile      types.ScreeningProfile    `json:"profile"`
	Answers      []types.IntakeAnswer      `json:"answers"`
	Blueprint    types.Blueprint           `json:"blueprint"`
	VibeCheck    []types.VibeCheckQuestion `json:"vibeCheck,omitempty"`
	Analysis     string                    `json:"analysis,omitempty"`
	VibeCheckErr string                    `json:"vibeCheckError,omitempty"`
	AnalysisErr  string                    `json:"analysisError,omitempty"`
}

// Runner walks one session from Welcome to Results without a TUI.
type Runner struct {
	sm   *session.Machine
	opts Options
	p    *prompter
	log  *log.Logger

	info *color.Color
	warn *color.Color
	head *color.Color
}

func NewRunner(sm *session.Machine, opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Format == "" {
		opts.Format = FormatText
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	// Prompts go to Out only in text mode so JSON output stays clean.
	promptOut := opts.Out
	if opts.Format == FormatJSON {
		promptOut = io.Discard
	}
	return &Runner{
		sm:   sm,
		opts: opts,
		p:    newPrompter(opts.Prompt, promptOut),
		log:  logger,
		info: color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		head: color.New(color.FgMagenta, color.Bold),
	}
}

// Run executes the whole flow and writes the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.opts.Format != FormatText && r.opts.Format != FormatJSON {
		return nil, fmt.Errorf("script: unknown format %q", r.opts.Format)
	}
	img, err := r.loadImage()
	if err != nil {
		return nil, err
	}

	if err := r.sm.Start(); err != nil {
		return nil, err
	}
	profile, err := r.profile()
	if err != nil {
		return nil, err
	}
	task, err := r.sm.Submit(profile)
	if err != nil {
		return nil, err
	}
	r.progress("Crafting your questions...")
	r.sm.Run(ctx, task)
	if f := r.sm.Fatal(); f != nil {
		return nil, f
	}

	if err := r.intake(ctx); err != nil {
		return nil, err
	}
	if err := r.explore(ctx, img); err != nil {
		return nil, err
	}

	rep := r.report()
	if err := r.write(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *Runner) loadImage() (*types.Image, error) {
	path := strings.TrimSpace(r.opts.Input.Context.Image)
	if path == "" {
		return nil, nil
	}
	return types.LoadImage(path)
}

// profile fills blank profile fields from the prompt.
func (r *Runner) profile() (types.ScreeningProfile, error) {
	p := r.opts.Input.Profile
	var err error
	for _, f := range []struct {
		dst     *string
		label   string
		options []string
	}{
		{&p.Name, "What should I call you?", nil},
		{&p.Gender, "I am a...", types.GenderOptions},
		{&p.PartnerPreference, "I'm interested in...", types.PartnerPreferenceOptions},
		{&p.RelationshipStatus, "Relationship status:", types.RelationshipStatusOptions},
	} {
		if strings.TrimSpace(*f.dst) != "" {
			continue
		}
		if f.options == nil {
			*f.dst, err = r.p.line(f.label)
		} else {
			*f.dst, err = r.p.choose(f.label, f.options)
		}
		if errors.Is(err, ErrNoInput) {
			// Submit reports every missing field at once.
			return p, nil
		}
		if err != nil {
			return p, err
		}
	}
	return p, nil
}

func (r *Runner) intake(ctx context.Context) error {
	snap := r.sm.Snapshot()
	r.progress(fmt.Sprintf("%d questions ready.", len(snap.Questions)))
	for i, q := range snap.Questions {
		answer := ""
		if i < len(r.opts.Input.Answers) {
			answer = r.opts.Input.Answers[i]
		}
		if strings.TrimSpace(answer) == "" {
			r.head.Fprintf(r.p.out, "\n%d/%d %s\n", i+1, len(snap.Questions), q)
			var err error
			if answer, err = r.p.line(">"); err != nil {
				return err
			}
		}
		if err := r.sm.SetAnswer(answer); err != nil {
			return err
		}
		task, err := r.sm.Next()
		if err != nil {
			return err
		}
		if task != nil {
			return r.generate(ctx, task)
		}
	}
	return nil
}

// generate runs the blueprint task, offering a retry with the same answers
// while it fails.
func (r *Runner) generate(ctx context.Context, task session.Task) error {
	for {
		r.progress("Crafting your Emotional Blueprint...")
		r.sm.Run(ctx, task)
		if r.sm.Stage() == session.Results {
			return nil
		}
		notice := r.sm.Notice()
		if notice == nil {
			return fmt.Errorf("script: blueprint generation ended in %s", r.sm.Stage())
		}
		r.warn.Fprintln(r.p.out, notice.Msg)
		if !r.p.confirm("Try again with the same answers?") {
			return notice
		}
		var err error
		if task, err = r.sm.Complete(); err != nil {
			return err
		}
	}
}

// explore runs the requested explorer actions concurrently and applies
// their events once both are back.
func (r *Runner) explore(ctx context.Context, img *types.Image) error {
	ex := r.sm.Explorer()
	if ex == nil {
		return fmt.Errorf("script: no results to explore")
	}
	var tasks []session.Task
	if r.opts.VibeCheck {
		t, err := ex.GenerateVibeCheck()
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}
	ex.SetContext(r.opts.Input.Context.Text, img)
	if ex.CanAnalyze() {
		t, err := ex.Analyze()
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}
	if len(tasks) == 0 {
		return nil
	}

	r.progress("Exploring your results...")
	events := make([]session.Event, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			events[i] = task(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, ev := range events {
		r.sm.Apply(ev)
	}
	return nil
}

func (r *Runner) report() *Report {
	snap := r.sm.Snapshot()
	rep := &Report{Session: snap.ID, Answers: snap.Answers}
	if snap.Profile != nil {
		rep.Profile = *snap.Profile
	}
	if snap.Blueprint != nil {
		rep.Blueprint = *snap.Blueprint
	}
	if ex := snap.Explorer; ex != nil {
		rep.VibeCheck = ex.VibeCheck
		rep.Analysis = ex.Analysis
		if ex.VibeErr != nil {
			rep.VibeCheckErr = ex.VibeErr.Msg
		}
		if ex.AnalysisErr != nil {
			rep.AnalysisErr = ex.AnalysisErr.Msg
		}
	}
	return rep
}

func (r *Runner) write(rep *Report) error {
	out := r.opts.Out
	if r.opts.Format == FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	md := render.Document(rep.Blueprint, rep.VibeCheck, rep.Analysis)
	fmt.Fprintln(out)
	fmt.Fprintln(out, r.opts.Markdown.Render(md))
	if rep.VibeCheckErr != "" {
		r.warn.Fprintln(out, rep.VibeCheckErr)
	}
	if rep.AnalysisErr != "" {
		r.warn.Fprintln(out, rep.AnalysisErr)
	}
	return nil
}

func (r *Runner) progress(msg string) {
	r.log.Printf("script: %s", msg)
	r.info.Fprintln(r.p.out, "» "+msg)
}
