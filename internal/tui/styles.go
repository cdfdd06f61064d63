package tui

import "github.com/charmbracelet/lipgloss"

var (
	stylePink   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	styleLabel  = lipgloss.NewStyle().Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleNotice = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleButton = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("205"))
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	styleTab    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("7"))
	styleTabOn  = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("205"))
	styleBox    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205")).Padding(1, 2)
)
