package theme

import "github.com/charmbracelet/lipgloss"

// Dark is built on the Nord Polar Night palette
// https://www.nordtheme.com/
var Dark = Theme{
	Name:    "dark",
	Glamour: "dark",

	// Polar Night
	Background: lipgloss.Color("#2E3440"),
	Foreground: lipgloss.Color("#ECEFF4"),
	Subtle:     lipgloss.Color("#7B88A1"),
	Highlight:  lipgloss.Color("#3B4252"),
	Border:     lipgloss.Color("#4C566A"),

	// Frost
	Primary:   lipgloss.Color("#88C0D0"), // Nord8
	Secondary: lipgloss.Color("#81A1C1"), // Nord9
	Info:      lipgloss.Color("#5E81AC"), // Nord10

	// Aurora
	Success: lipgloss.Color("#A3BE8C"), // Nord14
	Warning: lipgloss.Color("#EBCB8B"), // Nord13
	Error:   lipgloss.Color("#BF616A"), // Nord11

	PriorityLow:    lipgloss.Color("#A3BE8C"),
	PriorityMedium: lipgloss.Color("#EBCB8B"),
	PriorityHigh:   lipgloss.Color("#BF616A"),

	StatusPending:   lipgloss.Color("#EBCB8B"),
	StatusProgress:  lipgloss.Color("#88C0D0"),
	StatusCompleted: lipgloss.Color("#A3BE8C"),
}
