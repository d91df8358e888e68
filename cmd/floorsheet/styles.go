package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	buyStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sellStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	holdStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	unavailableStyle = lipgloss.NewStyle().Faint(true)
)

// FormatSignal renders a signal with its color and an arrow.
func FormatSignal(s types.Signal) string {
	switch s {
	case types.SignalBuy:
		return buyStyle.Render("▲ " + string(s))
	case types.SignalSell:
		return sellStyle.Render("▼ " + string(s))
	case types.SignalHold:
		return holdStyle.Render("■ " + string(s))
	default:
		return unavailableStyle.Render(string(s))
	}
}
