package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorPurple  = "#bd93f9"
	colorPink    = "#ff79c6"
	colorGreen   = "#50fa7b"
	colorRed     = "#ff5555"
	colorComment = "#6272a4"
	colorFg      = "#f8f8f2"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPurple)).
			MarginBottom(1)
	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorFg)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorPink)).
			Padding(0, 2)
	busyButtonStyle = buttonStyle.
			BorderForeground(lipgloss.Color(colorComment)).
			Foreground(lipgloss.Color(colorComment))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorComment))
	appStyle      = lipgloss.NewStyle().Padding(1, 2)
)
