package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	// Unit status colors
	StatusActiveColor  = lipgloss.Color("#10B981") // Green
	StatusCrashedColor = lipgloss.Color("#F87171") // Red
	StatusGoneColor    = lipgloss.Color("#9CA3AF") // Gray

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(MutedColor)

	Value = lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true)

	Good = lipgloss.NewStyle().
		Foreground(SecondaryColor)

	Warn = lipgloss.NewStyle().
		Foreground(WarningColor)

	Bad = lipgloss.NewStyle().
		Foreground(ErrorColor)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	Help = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)
)

// stateStyle returns the style for a pool lifecycle state badge.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "running":
		return Good
	case "draining":
		return Warn
	case "terminated":
		return Bad
	default:
		return Label
	}
}
