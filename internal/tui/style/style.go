// Package style defines lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Styles are package-level values; lipgloss styles are value types and safe
// for concurrent use. Names omit the "Style" suffix since they read better
// through the package name (style.Title, not style.TitleStyle).
var (
	// Title is used for phase titles and headers.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for secondary text.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// Success is used for success messages.
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	// Error is used for error messages.
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	// Help is used for keyboard shortcut hints.
	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key is used for highlighting keyboard keys.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Label is used for inline labels (e.g., "Audio:", "Category:").
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	// Muted is used for de-emphasized text (e.g., file paths).
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	// Selected marks the field under the cursor in the review list.
	Selected = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	// Viewport is used for the transcript viewport border.
	Viewport = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)
