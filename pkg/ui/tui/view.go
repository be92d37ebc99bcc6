package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
 ╦╔╦╗╔═╗╦ ╦╔═╗╦═╗╦  ╦╔═╗╔═╗╔╦╗
 ║║║║║ ╦╠═╣╠═╣╠╦╝╚╗╔╝║╣ ╚═╗ ║
 ╩╩ ╩╚═╝╩ ╩╩ ╩╩╚═ ╚╝ ╚═╝╚═╝ ╩ `

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, logoStyle.Width(m.width).Render(logo))

	half := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(half),
		m.renderCurrentPanel(half),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderLabelsPanel(half),
		m.renderLogsPanel(half),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

// renderStatsPanel renders the run counters and the overall bar
func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" RUN STATS ")
	stats := m.Stats()

	lines := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Run:"), statsValueStyle.Render(stats.RunID)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(stats.Elapsed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Labels:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", stats.Finished, stats.Labels))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Saved:"), successStyle.Render(fmt.Sprintf("%d", stats.Saved))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Skipped:"), warningStyle.Render(fmt.Sprintf("%d", stats.Failed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("ETA:"), statsValueStyle.Render(formatDuration(stats.ETA()))),
	}
	if stats.SearchErrs > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("%d searches failed", stats.SearchErrs)))
	}

	bar := m.overall
	bar.Width = max(width-8, 10)
	lines = append(lines, "", bar.ViewAs(stats.OverallProgress()))

	if stats.RunDone {
		lines = append(lines, successStyle.Render("✓ COMPLETE"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderCurrentPanel renders the label being harvested
func (m *Model) renderCurrentPanel(width int) string {
	title := titleStyle.Render(" CURRENT LABEL ")

	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()

	item, ok := m.Label(current)
	if current == "" || !ok {
		content := fg(inkMuted).Render("Idle")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	bar := m.labelBar
	bar.Width = max(width-8, 10)
	lines := []string{
		fmt.Sprintf("%s %s", m.spinner.View(), activeLabelStyle.Render(item.Label)),
		queryStyle.Render(item.Query),
		fmt.Sprintf("%d/%d saved, %d skipped", item.Saved, item.Target, item.Failed),
		bar.ViewAs(item.Progress()),
	}
	if item.LastImage != "" {
		lines = append(lines, fg(inkMuted).Render(item.LastImage))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderLabelsPanel renders pending and finished labels
func (m *Model) renderLabelsPanel(width int) string {
	title := titleStyle.Render(" LABELS ")

	pending := m.LabelsIn(LabelPending)
	done := append(m.LabelsIn(LabelDone), m.LabelsIn(LabelFailed)...)

	var items []string
	if len(pending) > 0 {
		items = append(items, warningStyle.Render(fmt.Sprintf("⏳ %d pending", len(pending))))
		for i := 0; i < 3 && i < len(pending); i++ {
			items = append(items, labelItemStyle.Render("• "+pending[i].Label))
		}
		if len(pending) > 3 {
			items = append(items, fg(inkMuted).Render(fmt.Sprintf("  ... and %d more", len(pending)-3)))
		}
	}

	if len(done) > 0 {
		items = append(items, "", successStyle.Render(fmt.Sprintf("✓ %d finished", len(done))))
		start := max(len(done)-5, 0)
		for _, item := range done[start:] {
			line := fmt.Sprintf("✓ %s %d/%d", item.Label, item.Saved, item.Target)
			style := labelItemDoneStyle
			if item.State == LabelFailed {
				line = fmt.Sprintf("✗ %s %d/%d", item.Label, item.Saved, item.Target)
				style = labelItemFailedStyle
			}
			items = append(items, style.Render(line))
		}
	}

	if len(items) == 0 {
		items = append(items, fg(inkMuted).Render("No labels yet"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" EVENTS ")

	start := max(len(m.logMessages)-10, 0)
	maxMsgLen := max(width-25, 10)

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		text := log.Message
		if len([]rune(text)) > maxMsgLen {
			text = string([]rune(text)[:maxMsgLen-3]) + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(text)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = fg(inkMuted).Render("No events yet...")
	}

	return panelStyle.Width(width).Height(max(m.height-30, 5)).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop the run and quit
    ctrl+l   - Clear events
    ?        - Toggle this help

  Labels:
    ` + successStyle.Render("✓") + `        - Finished
    ` + errorStyle.Render("✗") + `        - Search failed
    ` + warningStyle.Render("⏳") + `       - Pending
`
	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration as clock time
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
