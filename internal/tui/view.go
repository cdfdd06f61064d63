package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cupidx/internal/render"
	"cupidx/internal/session"
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var body, help string
	snap := m.sm.Snapshot()
	switch {
	case snap.Fatal != nil:
		body = styleBox.Render(styleError.Render(snap.Fatal.Msg))
		help = "enter: start over • ctrl+c: quit"
	case snap.Stage == session.Welcome:
		body = m.viewWelcome()
		help = "enter: let's begin • q: quit"
	case snap.Stage == session.Screening:
		body = m.form.view()
		help = "tab/↑↓: move • ←/→: choose • enter: continue • ctrl+r: start over"
	case snap.Stage == session.Intake:
		body = m.viewIntake(snap)
		help = "enter: next • alt+enter: newline • ctrl+b: back • ctrl+r: start over"
	case snap.Stage == session.Generating:
		body = m.spinner.View() + " Crafting your Emotional Blueprint..."
		help = "ctrl+c: quit"
	case snap.Stage == session.Results:
		body = m.viewResults(snap)
		help = m.resultsHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styleHeader.Render("CupidX ♥ the science of your heart"),
		"",
		body,
		"",
		styleMuted.Render(help),
	)
}

func (m *Model) viewWelcome() string {
	return styleBox.Render(styleTitle.Render("Hey, I'm CupidX") + "\n\n" +
		"I help you understand the science of your heart. Let's map your\n" +
		"Emotional Blueprint and find out who truly matches your vibe.\n\n" +
		styleButton.Render(" Let's Begin "))
}

func (m *Model) viewIntake(snap session.Snapshot) string {
	if snap.Pending || len(snap.Answers) == 0 {
		return m.spinner.View() + " Crafting your questions..."
	}
	var b strings.Builder
	if snap.Notice != nil {
		b.WriteString(styleNotice.Render(snap.Notice.Msg) + "\n\n")
	}
	fmt.Fprintf(&b, "%s\n\n", styleMuted.Render(fmt.Sprintf("Question %d of %d", snap.Index+1, len(snap.Answers))))
	cur, _ := snap.Current()
	b.WriteString(styleTitle.Render(cur.Question) + "\n\n")
	b.WriteString(m.answer.View())
	if m.inputErr != "" {
		b.WriteString("\n" + styleError.Render(m.inputErr))
	}
	b.WriteString("\n\n")
	next := "Next"
	if snap.Index == len(snap.Answers)-1 {
		next = "Generate My Blueprint"
	}
	if m.sm.CanAdvance() {
		b.WriteString(styleButton.Render(" " + next + " "))
	} else {
		b.WriteString(styleMuted.Render("[ " + next + " ]"))
	}
	return b.String()
}

func (m *Model) viewResults(snap session.Snapshot) string {
	var tabs []string
	for i, t := range render.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Title())
		if t == m.tab {
			tabs = append(tabs, styleTabOn.Render(label))
		} else {
			tabs = append(tabs, styleTab.Render(label))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if snap.Blueprint == nil || snap.Explorer == nil {
		return bar
	}
	bp, ex := *snap.Blueprint, *snap.Explorer

	var content string
	switch m.tab {
	case render.TabBlueprint:
		content = m.renderer().Render(render.BlueprintMarkdown(bp))
	case render.TabPartnerFit:
		content = m.renderer().Render(render.PartnerFitMarkdown(bp.PartnerFitProfile))
	case render.TabActionKit:
		content = m.renderer().Render(render.ActionKitMarkdown(bp.ActionKit))
	case render.TabVibeCheck:
		content = m.viewVibe(ex)
	case render.TabCoach:
		content = m.viewCoach(ex)
	}
	return bar + "\n\n" + content
}

func (m *Model) viewVibe(ex session.ExplorerView) string {
	var b strings.Builder
	b.WriteString(m.renderer().Render(render.VibeCheckMarkdown(ex.VibeCheck)))
	b.WriteString("\n\n")
	switch {
	case ex.VibePending:
		b.WriteString(m.spinner.View() + " Generating...")
	case ex.VibeCheck == nil:
		b.WriteString(styleButton.Render(" g: Generate Vibe Check Questions "))
	default:
		b.WriteString(styleMuted.Render("g: regenerate"))
	}
	if ex.VibeErr != nil {
		b.WriteString("\n" + styleError.Render(ex.VibeErr.Msg+" (x to dismiss)"))
	}
	return b.String()
}

func (m *Model) viewCoach(ex session.ExplorerView) string {
	var b strings.Builder
	b.WriteString(styleMuted.Render("Paste a chat recap or describe a date. I'll help you interpret the situation.") + "\n\n")
	b.WriteString(m.coachText.View() + "\n\n")
	b.WriteString(styleLabel.Render("Screenshot") + "\n" + m.imagePath.View() + "\n\n")
	switch {
	case ex.AnalysisPending:
		b.WriteString(m.spinner.View() + " Analyzing...")
	default:
		b.WriteString(styleButton.Render(" ctrl+s: Get Coaching "))
	}
	if m.coachErr != "" {
		b.WriteString("\n" + styleError.Render(m.coachErr))
	}
	if ex.AnalysisErr != nil {
		b.WriteString("\n" + styleError.Render(ex.AnalysisErr.Msg+" (esc to dismiss)"))
	}
	if ex.Analysis != "" {
		b.WriteString("\n\n" + m.renderer().Render(render.AnalysisMarkdown(ex.Analysis, ex.AnalysisStale)))
	}
	return b.String()
}

func (m *Model) resultsHelp() string {
	if m.tab == render.TabCoach {
		return "tab: next view • ctrl+o: switch field • ctrl+s: analyze • ctrl+r: start over"
	}
	return "1-5/tab: switch view • g: vibe check • ctrl+r: start over • q: quit"
}
