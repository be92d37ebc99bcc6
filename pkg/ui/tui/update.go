package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// RunStartedMsg announces the labels of a run
type RunStartedMsg struct {
	RunID    string
	Labels   []string
	PerLabel int
}

// LabelStartedMsg is sent when a label's search begins
type LabelStartedMsg struct {
	Label string
	Query string
}

// ImageSavedMsg is sent when an image is stored
type ImageSavedMsg struct {
	Label string
	Index int
	Title string
	Path  string
}

// ImageFailedMsg is sent when a result is skipped
type ImageFailedMsg struct {
	Label string
	Index int
	Error error
}

// LabelFinishedMsg is sent when a label is done
type LabelFinishedMsg struct {
	Label     string
	Dir       string
	Saved     int
	SearchErr error
	Duration  time.Duration
}

// RunFinishedMsg is sent once the run is over
type RunFinishedMsg struct {
	Saved  int
	Failed int
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case RunStartedMsg:
		m.StartRun(msg.RunID, msg.Labels, msg.PerLabel)
		m.AddLogMessage("INFO", fmt.Sprintf("Run %s started with %d labels", msg.RunID, len(msg.Labels)))
		return m, nil

	case LabelStartedMsg:
		m.StartLabel(msg.Label, msg.Query)
		m.AddLogMessage("INFO", "Searching: "+msg.Query)
		return m, nil

	case ImageSavedMsg:
		m.RecordSaved(msg.Label, msg.Path)
		return m, nil

	case ImageFailedMsg:
		m.RecordFailed(msg.Label)
		if msg.Error != nil {
			m.AddLogMessage("WARN", fmt.Sprintf("%s #%d skipped: %v", msg.Label, msg.Index, msg.Error))
		}
		return m, nil

	case LabelFinishedMsg:
		m.FinishLabel(msg.Label, msg.Dir, msg.SearchErr, msg.Duration)
		if msg.SearchErr != nil {
			m.AddLogMessage("ERROR", fmt.Sprintf("%s: search failed: %v", msg.Label, msg.SearchErr))
		} else {
			m.AddLogMessage("SUCCESS", fmt.Sprintf("%s: %d saved", msg.Label, msg.Saved))
		}
		return m, nil

	case RunFinishedMsg:
		m.FinishRun()
		m.AddLogMessage("SUCCESS", fmt.Sprintf("Run finished: %d saved, %d failed", msg.Saved, msg.Failed))
		return m, tea.Quit

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
