// Package tui renders a live per-label dashboard for a harvesting run.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"imgharvest/pkg/pipeline"
	"imgharvest/pkg/search"
)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// Option customises the TUI
type Option func(*TUI, *[]tea.ProgramOption)

// WithQuit registers the function called when the user quits, typically a
// context cancel func
func WithQuit(fn func()) Option {
	return func(t *TUI, _ *[]tea.ProgramOption) { t.model.onQuit = fn }
}

// WithProgramOptions passes options through to bubbletea
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(_ *TUI, popts *[]tea.ProgramOption) { *popts = append(*popts, opts...) }
}

// NewTUI creates a new TUI instance
func NewTUI(opts ...Option) *TUI {
	t := &TUI{model: NewModel()}
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	for _, opt := range opts {
		opt(t, &programOpts)
	}
	t.program = tea.NewProgram(t.model, programOpts...)
	return t
}

// Start runs the TUI until the run finishes or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Model exposes the dashboard state
func (t *TUI) Model() *Model {
	return t.model
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

var _ pipeline.Observer = (*TUI)(nil)

func (t *TUI) RunStarted(runID string, labels []string, perLabel int) {
	t.Send(RunStartedMsg{RunID: runID, Labels: labels, PerLabel: perLabel})
}

func (t *TUI) LabelStarted(label, query string) {
	t.Send(LabelStartedMsg{Label: label, Query: query})
}

func (t *TUI) ImageSaved(label string, index int, result search.ImageResult, path string) {
	t.Send(ImageSavedMsg{Label: label, Index: index, Title: result.Title, Path: path})
}

func (t *TUI) ImageFailed(label string, index int, result search.ImageResult, err error) {
	t.Send(ImageFailedMsg{Label: label, Index: index, Error: err})
}

func (t *TUI) LabelFinished(report pipeline.LabelReport) {
	labelErr := report.SearchErr
	if labelErr == nil {
		labelErr = report.DirErr
	}
	t.Send(LabelFinishedMsg{
		Label:     report.Label,
		Dir:       report.Dir,
		Saved:     report.Saved,
		SearchErr: labelErr,
		Duration:  report.Duration,
	})
}

func (t *TUI) RunFinished(summary *pipeline.Summary) {
	t.Send(RunFinishedMsg{Saved: summary.Saved, Failed: summary.Failed})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
