package theme

import "github.com/charmbracelet/lipgloss"

// Light uses the Nord Snow Storm palette with traffic-light
// priority colors
var Light = Theme{
	Name:    "light",
	Glamour: "light",

	// Snow Storm
	Background: lipgloss.Color("#ECEFF4"),
	Foreground: lipgloss.Color("#2E3440"),
	Subtle:     lipgloss.Color("#6B7385"),
	Highlight:  lipgloss.Color("#D8DEE9"),
	Border:     lipgloss.Color("#B5BDCB"),

	Primary:   lipgloss.Color("#5E81AC"),
	Secondary: lipgloss.Color("#667EEA"),
	Info:      lipgloss.Color("#4C6A92"),

	Success: lipgloss.Color("#2ED573"),
	Warning: lipgloss.Color("#FFA502"),
	Error:   lipgloss.Color("#FF4757"),

	PriorityLow:    lipgloss.Color("#2ED573"),
	PriorityMedium: lipgloss.Color("#FFA502"),
	PriorityHigh:   lipgloss.Color("#FF4757"),

	StatusPending:   lipgloss.Color("#D08700"),
	StatusProgress:  lipgloss.Color("#3867D6"),
	StatusCompleted: lipgloss.Color("#20BF6B"),
}
