package tui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the chat window.
var (
	ColorRed     = lipgloss.Color("#EF4444")
	ColorGreen   = lipgloss.Color("#22C55E")
	ColorBlue    = lipgloss.Color("#3B82F6")
	ColorYellow  = lipgloss.Color("#EAB308")
	ColorCyan    = lipgloss.Color("#06B6D4")
	ColorGray    = lipgloss.Color("#71717A")
	ColorDimGray = lipgloss.Color("#3F3F46")
	ColorWhite   = lipgloss.Color("#FAFAFA")
)

// Base styles reused by the view.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	ModeStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorDimGray).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	RecordingStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	WorkingStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	DoneStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	UserLabelStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	AssistantLabelStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	CollapsedStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)
)
