// ABOUTME: Shared lipgloss styles for the bootstrap screen and command output
// ABOUTME: Maps session strategies to colors so outcomes read at a glance

package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - Core palette
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Danger    = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Text      = lipgloss.Color("#F9FAFB") // Light
	Accent    = lipgloss.Color("#8B5CF6")
	Info      = lipgloss.Color("#3B82F6")

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted)

	StatusOK = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusCritical = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(0, 2)

	// WarningPanel frames the soft warning shown for emergency sessions.
	WarningPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Warning).
			Padding(0, 2)

	Help = lipgloss.NewStyle().
		Foreground(Muted).
		MarginTop(1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true)

	Spinner = lipgloss.NewStyle().
		Foreground(Primary)
)

// Strategy renders a session strategy name in its status color.
func Strategy(name string) string {
	style := lipgloss.NewStyle().Bold(true)
	switch name {
	case "existing":
		style = style.Foreground(Info)
	case "platform", "fallback":
		style = style.Foreground(Secondary)
	case "emergency":
		style = style.Foreground(Warning)
	default:
		style = style.Foreground(Muted)
	}
	return style.Render(name)
}

// Field renders a "label: value" row with aligned labels.
func Field(label, value string) string {
	return KeyStyle.Width(12).Render(label) + ValueStyle.Render(value)
}
