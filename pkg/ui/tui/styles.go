package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	swatchTeal   = lipgloss.Color("#2EC4B6")
	swatchCoral  = lipgloss.Color("#FF6B6B")
	swatchLime   = lipgloss.Color("#A7E22E")
	swatchAmber  = lipgloss.Color("#FFB627")
	swatchViolet = lipgloss.Color("#9B5DE5")
	inkDark      = lipgloss.Color("#11131A")
	inkPanel     = lipgloss.Color("#1B1F2A")
	inkMuted     = lipgloss.Color("#8A8F9C")
	inkFaint     = lipgloss.Color("#555A66")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	baseStyle = lipgloss.NewStyle().Background(inkDark).Foreground(inkMuted)

	logoStyle = fg(swatchTeal).Bold(true).Padding(1, 0).Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(swatchViolet).
			Background(inkPanel).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(swatchViolet).
			Foreground(inkDark).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = fg(swatchTeal).Bold(true)
	statsValueStyle = fg(swatchAmber)
	queryStyle      = fg(swatchAmber).Italic(true)

	successStyle = fg(swatchLime).Bold(true)
	warningStyle = fg(swatchAmber).Bold(true)
	errorStyle   = fg(swatchCoral).Bold(true)

	// Label list rows, one per LabelState
	labelItemStyle       = lipgloss.NewStyle().PaddingLeft(2)
	activeLabelStyle     = fg(swatchLime).Bold(true)
	labelItemDoneStyle   = fg(inkMuted).Faint(true).PaddingLeft(2)
	labelItemFailedStyle = fg(swatchCoral).PaddingLeft(2)

	logTimestampStyle = fg(inkFaint)
	logMessageStyle   = fg(inkMuted)

	helpStyle = fg(inkFaint).Padding(1, 0, 0, 2)
)
