package session

import (
	"context"
	"log"
	"slices"
	"strings"

	"cupidx/internal/types"
)

// Explorer runs the two Results-stage actions: vibe-check generation and
// context analysis. Each has its own pending flag and result slot.
type Explorer struct {
	gw      Gateway
	log     *log.Logger
	session string
	summary string

	contextText string
	image       *types.Image

	vibe        []types.VibeCheckQuestion
	vibePending bool
	vibeErr     *Failure

	analysis        string
	analysisStale   bool
	analysisPending bool
	analysisErr     *Failure
}

func newExplorer(gw Gateway, logger *log.Logger, session, summary string) *Explorer {
	return &Explorer{gw: gw, log: logger, session: session, summary: summary}
}

// SetContext replaces the coach input. img may be nil.
func (e *Explorer) SetContext(text string, img *types.Image) {
	e.contextText = text
	e.image = img
}

// CanAnalyze reports whether there is text or an image to analyze.
func (e *Explorer) CanAnalyze() bool {
	return strings.TrimSpace(e.contextText) != "" || e.image != nil
}

// GenerateVibeCheck marks the vibe action pending and returns its task.
func (e *Explorer) GenerateVibeCheck() (Task, error) {
	if e.vibePending {
		return nil, ErrBusy
	}
	e.vibePending = true
	e.vibeErr = nil

	id, gw, summary := e.session, e.gw, e.summary
	return func(ctx context.Context) Event {
		qs, err := gw.RequestVibeCheck(ctx, summary)
		return VibeCheckReady{Session: id, Questions: qs, Err: err}
	}, nil
}

// Analyze marks the analysis pending and returns its task.
func (e *Explorer) Analyze() (Task, error) {
	if e.analysisPending {
		return nil, ErrBusy
	}
	if !e.CanAnalyze() {
		return nil, &ValidationError{Fields: []string{"context text or image"}}
	}
	e.analysisPending = true
	e.analysisErr = nil

	id, gw, text, img := e.session, e.gw, e.contextText, e.image
	return func(ctx context.Context) Event {
		out, err := gw.RequestContextAnalysis(ctx, text, img)
		return AnalysisReady{Session: id, Text: out, Err: err}
	}, nil
}

// DismissErrors clears both inline errors.
func (e *Explorer) DismissErrors() {
	e.vibeErr = nil
	e.analysisErr = nil
}

func (e *Explorer) apply(ev Event) {
	switch ev := ev.(type) {
	case VibeCheckReady:
		if !e.vibePending {
			return
		}
		e.vibePending = false
		if ev.Err != nil {
			e.log.Printf("session %s: vibe check failed: %v", e.session, ev.Err)
			e.vibeErr = &Failure{Msg: msgVibeFailed, Err: ev.Err}
			return
		}
		e.vibe = slices.Clone(ev.Questions)
	case AnalysisReady:
		if !e.analysisPending {
			return
		}
		e.analysisPending = false
		if ev.Err != nil {
			e.log.Printf("session %s: context analysis failed: %v", e.session, ev.Err)
			e.analysisErr = &Failure{Msg: msgAnalysisFailed, Err: ev.Err}
			e.analysisStale = e.analysis != ""
			return
		}
		e.analysis = ev.Text
		e.analysisStale = false
	}
}

// ExplorerView is a value copy of the explorer for renderers.
type ExplorerView struct {
	VibeCheck   []types.VibeCheckQuestion
	VibePending bool
	VibeErr     *Failure

	ContextText string
	ImageName   string
	CanAnalyze  bool

	Analysis        string
	AnalysisStale   bool
	AnalysisPending bool
	AnalysisErr     *Failure
}

func (e *Explorer) View() ExplorerView {
	v := ExplorerView{
		VibeCheck:       slices.Clone(e.vibe),
		VibePending:     e.vibePending,
		VibeErr:         e.vibeErr,
		ContextText:     e.contextText,
		CanAnalyze:      e.CanAnalyze(),
		Analysis:        e.analysis,
		AnalysisStale:   e.analysisStale,
		AnalysisPending: e.analysisPending,
		AnalysisErr:     e.analysisErr,
	}
	if e.image != nil {
		v.ImageName = e.image.Name
	}
	return v
}
