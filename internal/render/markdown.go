package render

import (
	"fmt"
	"strings"

	"cupidx/internal/types"
)

// Tab is one view of the results explorer.
type Tab int

const (
	TabBlueprint Tab = iota
	TabPartnerFit
	TabActionKit
	TabVibeCheck
	TabCoach
)

// Tabs lists the result views in display order.
var Tabs = []Tab{TabBlueprint, TabPartnerFit, TabActionKit, TabVibeCheck, TabCoach}

func (t Tab) Title() string {
	switch t {
	case TabBlueprint:
		return "Blueprint"
	case TabPartnerFit:
		return "Partner Fit"
	case TabActionKit:
		return "Action Kit"
	case TabVibeCheck:
		return "Vibe Check"
	case TabCoach:
		return "Context Coach"
	default:
		return "?"
	}
}

const emptyList = "_Nothing here yet._"

// BlueprintMarkdown renders the summary section.
func BlueprintMarkdown(bp types.Blueprint) string {
	var b strings.Builder
	section(&b, "Your Emotional Blueprint", paragraph(bp.Summary))
	return b.String()
}

// PartnerFitMarkdown renders the partner-fit lists.
func PartnerFitMarkdown(p types.PartnerFitProfile) string {
	var b strings.Builder
	section(&b, "Compatible Partner Archetypes", bullets(p.Archetypes))
	section(&b, "Green Flags to Look For", bullets(p.GreenFlags))
	section(&b, "Potential Friction Points", bullets(p.FrictionPoints))
	section(&b, "Communication Tips", bullets(p.CommunicationTips))
	return b.String()
}

// ActionKitMarkdown renders the action kit.
func ActionKitMarkdown(k types.ActionKit) string {
	var b strings.Builder
	section(&b, "Dating Bio Refresh", paragraph(k.BioRewrite))
	section(&b, "Conversation Openers", bullets(k.ConversationOpeners))
	section(&b, "7-Day Micro-Habits Plan", paragraph(k.MicroHabits))
	return b.String()
}

// VibeCheckMarkdown renders a vibe-check batch. A nil batch means none was
// generated yet.
func VibeCheckMarkdown(qs []types.VibeCheckQuestion) string {
	var b strings.Builder
	if qs == nil {
		section(&b, "Vibe Check", "Generate personalized questions to check alignment with a potential partner, based on your Blueprint.")
		return b.String()
	}
	var body strings.Builder
	if len(qs) == 0 {
		body.WriteString(emptyList)
	}
	for i, q := range qs {
		if i > 0 {
			body.WriteString("\n\n")
		}
		fmt.Fprintf(&body, "%d. **%s**\n", i+1, quoteOrDash(q.Question))
		fmt.Fprintf(&body, "   - Aligned answer: %s\n", orDash(q.AlignedAnswer))
		fmt.Fprintf(&body, "   - Friction signal: %s", orDash(q.FrictionSignal))
	}
	section(&b, "Vibe Check", body.String())
	return b.String()
}

// AnalysisMarkdown renders the coach output. stale marks text kept from an
// earlier run after a failed retry.
func AnalysisMarkdown(text string, stale bool) string {
	var b strings.Builder
	body := paragraph(text)
	if strings.TrimSpace(text) == "" {
		body = "Paste a chat recap or attach a screenshot and I'll help you interpret the situation."
	} else if stale {
		body = "_From your previous request._\n\n" + body
	}
	section(&b, "Context Coach", body)
	return b.String()
}

// Document renders the whole blueprint, plus any explorer output, as one
// markdown document.
func Document(bp types.Blueprint, vibe []types.VibeCheckQuestion, analysis string) string {
	parts := []string{
		BlueprintMarkdown(bp),
		PartnerFitMarkdown(bp.PartnerFitProfile),
		ActionKitMarkdown(bp.ActionKit),
	}
	if vibe != nil {
		parts = append(parts, VibeCheckMarkdown(vibe))
	}
	if strings.TrimSpace(analysis) != "" {
		parts = append(parts, AnalysisMarkdown(analysis, false))
	}
	return strings.Join(parts, "\n")
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, strings.TrimRight(body, "\n"))
}

func bullets(items []string) string {
	var b strings.Builder
	for _, it := range items {
		if it = strings.TrimSpace(it); it == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return emptyList
	}
	return b.String()
}

func paragraph(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyList
	}
	return strings.TrimSpace(s)
}

func quoteOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return `"` + s + `"`
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
