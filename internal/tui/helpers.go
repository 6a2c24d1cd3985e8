package tui

import (
	"strings"

	"github.com/sobandev/docflow/internal/tui/style"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

func renderKeyHelp(keyBinding key.Binding, suffix ...string) string {
	s := style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)

	s += strings.Join(suffix, "")

	return s
}

// wrapText wraps text to the given width for viewport display.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	return lipgloss.NewStyle().Width(width).Render(text)
}
