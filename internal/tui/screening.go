package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"cupidx/internal/types"
)

// Screening form rows. The last row is the submit button.
const (
	rowName = iota
	rowGender
	rowPreference
	rowStatus
	rowSubmit
	rowCount
)

type choiceRow struct {
	label   string
	options []string
	index   int // -1 until chosen
}

func (c *choiceRow) value() string {
	if c.index < 0 || c.index >= len(c.options) {
		return ""
	}
	return c.options[c.index]
}

func (c *choiceRow) cycle(step int) {
	n := len(c.options)
	if n == 0 {
		return
	}
	if c.index < 0 {
		if step > 0 {
			c.index = 0
		} else {
			c.index = n - 1
		}
		return
	}
	c.index = (c.index + step + n) % n
}

type screeningForm struct {
	name    textinput.Model
	choices [3]choiceRow
	row     int
	err     string
}

func newScreeningForm() screeningForm {
	ti := textinput.New()
	ti.Placeholder = "What should I call you?"
	ti.CharLimit = 80
	return screeningForm{
		name: ti,
		choices: [3]choiceRow{
			{label: "I am a...", options: types.GenderOptions, index: -1},
			{label: "I'm interested in...", options: types.PartnerPreferenceOptions, index: -1},
			{label: "Relationship status", options: types.RelationshipStatusOptions, index: -1},
		},
	}
}

func (f *screeningForm) profile() types.ScreeningProfile {
	return types.ScreeningProfile{
		Name:               strings.TrimSpace(f.name.Value()),
		Gender:             f.choices[0].value(),
		PartnerPreference:  f.choices[1].value(),
		RelationshipStatus: f.choices[2].value(),
	}
}

func (f *screeningForm) focus() tea.Cmd {
	if f.row == rowName {
		return f.name.Focus()
	}
	f.name.Blur()
	return nil
}

func (f *screeningForm) move(step int) tea.Cmd {
	f.row = (f.row + step + rowCount) % rowCount
	return f.focus()
}

// update handles one key and reports whether the form was submitted.
func (f *screeningForm) update(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return false, f.move(1)
	case "shift+tab", "up":
		return false, f.move(-1)
	case "enter":
		if f.row == rowSubmit {
			return true, nil
		}
		return false, f.move(1)
	}
	switch f.row {
	case rowName:
		var cmd tea.Cmd
		f.name, cmd = f.name.Update(msg)
		return false, cmd
	case rowGender, rowPreference, rowStatus:
		c := &f.choices[f.row-rowGender]
		switch msg.String() {
		case "right", "l", " ":
			c.cycle(1)
		case "left", "h":
			c.cycle(-1)
		}
	}
	return false, nil
}

func (f *screeningForm) view() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("First, a few basics"))
	b.WriteString("\n\n")

	b.WriteString(f.cursor(rowName) + styleLabel.Render("Name") + "\n")
	b.WriteString("  " + f.name.View() + "\n\n")

	for i := range f.choices {
		c := &f.choices[i]
		val := c.value()
		if val == "" {
			val = styleMuted.Render("(use ←/→ to choose)")
		} else {
			val = stylePink.Render("‹ " + val + " ›")
		}
		fmt.Fprintf(&b, "%s%s\n  %s\n\n", f.cursor(rowGender+i), styleLabel.Render(c.label), val)
	}

	button := "[ Continue ]"
	if f.row == rowSubmit {
		button = styleButton.Render(" Continue ")
	}
	b.WriteString(f.cursor(rowSubmit) + button + "\n")
	if f.err != "" {
		b.WriteString("\n" + styleError.Render(f.err) + "\n")
	}
	return b.String()
}

func (f *screeningForm) cursor(row int) string {
	if f.row == row {
		return stylePink.Render("› ")
	}
	return "  "
}
