package report

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("#7C3AED")
	Success = lipgloss.Color("#10B981")
	Error   = lipgloss.Color("#EF4444")
	Border  = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#333333"}

	HeaderStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	OwnerStyle = CellStyle.
			Bold(true)

	// OvershootStyle marks more points than the exercise is worth.
	OvershootStyle = CellStyle.
			Foreground(Error).
			Bold(true)

	YesStyle = CellStyle.Foreground(Success)
	NoStyle  = CellStyle.Foreground(Error)
)
