package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelTracksLabels(t *testing.T) {
	model := NewModel()

	model.Update(RunStartedMsg{RunID: "run-1", Labels: []string{"blue", "red"}, PerLabel: 2})
	assert.Len(t, model.LabelsIn(LabelPending), 2)

	model.Update(LabelStartedMsg{Label: "blue", Query: "interer_v_tsvete_blue"})
	model.Update(ImageSavedMsg{Label: "blue", Index: 0, Path: "out/1.jpg"})
	model.Update(ImageFailedMsg{Label: "blue", Index: 1, Error: errors.New("gone")})

	item, ok := model.Label("blue")
	require.True(t, ok)
	assert.Equal(t, LabelActive, item.State)
	assert.Equal(t, 1, item.Saved)
	assert.Equal(t, 1, item.Failed)
	assert.Equal(t, "out/1.jpg", item.LastImage)
	assert.InDelta(t, 0.5, item.Progress(), 0.001)

	model.Update(LabelFinishedMsg{Label: "blue", Saved: 1, Duration: time.Second})
	model.Update(LabelStartedMsg{Label: "red", Query: "interer_v_tsvete_red"})
	model.Update(LabelFinishedMsg{Label: "red", SearchErr: errors.New("captcha")})

	stats := model.Stats()
	assert.Equal(t, "run-1", stats.RunID)
	assert.Equal(t, 2, stats.Labels)
	assert.Equal(t, 2, stats.Finished)
	assert.Equal(t, 1, stats.Saved)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.SearchErrs)
	assert.Equal(t, 1.0, stats.OverallProgress())

	red, _ := model.Label("red")
	assert.Equal(t, LabelFailed, red.State)
}

func TestRunFinishedQuits(t *testing.T) {
	model := NewModel()
	_, cmd := model.Update(RunFinishedMsg{Saved: 3})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, model.Stats().RunDone)
}

func TestQuitKeyCallsHook(t *testing.T) {
	called := false
	model := NewModel()
	model.onQuit = func() { called = true }

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, called)
}

func TestEventsForUnknownLabel(t *testing.T) {
	model := NewModel()
	model.Update(ImageSavedMsg{Label: "green", Path: "x.jpg"})

	item, ok := model.Label("green")
	require.True(t, ok)
	assert.Equal(t, 1, item.Saved)
}

func TestLogMessagesAreBounded(t *testing.T) {
	model := NewModel()
	for i := 0; i < 80; i++ {
		model.AddLogMessage("INFO", "tick")
	}
	assert.Len(t, model.logMessages, model.maxLogMessages)

	model.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, model.logMessages)
}

func TestViewRendersDashboard(t *testing.T) {
	model := NewModel()
	assert.Equal(t, "Initializing...", model.View())

	model.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	model.Update(RunStartedMsg{RunID: "run-1", Labels: []string{"blue", "red"}, PerLabel: 2})
	model.Update(LabelStartedMsg{Label: "blue", Query: "interer_v_tsvete_blue"})

	view := model.View()
	assert.Contains(t, view, "RUN STATS")
	assert.Contains(t, view, "interer_v_tsvete_blue")
	assert.Contains(t, view, "1 pending")
}

func TestStatsETA(t *testing.T) {
	stats := Stats{Labels: 4, Finished: 2, Elapsed: 10 * time.Second}
	assert.Equal(t, 10*time.Second, stats.ETA())
	assert.Zero(t, Stats{Labels: 4}.ETA())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:05", formatDuration(5*time.Second))
	assert.Equal(t, "02:03", formatDuration(2*time.Minute+3*time.Second))
	assert.Equal(t, "01:00:00", formatDuration(time.Hour))
	assert.Equal(t, "00:00", formatDuration(-time.Second))
}
