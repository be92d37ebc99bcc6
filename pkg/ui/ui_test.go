package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/config"
	"imgharvest/pkg/pipeline"
	"imgharvest/pkg/search"
)

type fakeSender struct {
	titles   []string
	messages []string
}

func (f *fakeSender) Send(title, message string) error {
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	return errors.New("no display")
}

func TestStatusTracker(t *testing.T) {
	tracker := NewStatusTracker(4, 10)
	tracker.IncrementSaved()
	tracker.IncrementSaved()
	tracker.IncrementFailed()

	assert.Equal(t, "[████░░░░░░░░░░░░░░░░] 2/10", tracker.GetLabelProgress())
	tracker.NextLabel()
	assert.Equal(t, 0, tracker.LabelSaved)
	assert.Equal(t, 2, tracker.TotalSaved)
	assert.Equal(t, "[█████░░░░░░░░░░░░░░░] 1/4", tracker.GetRunProgress())
}

func TestRenderBarClamps(t *testing.T) {
	assert.Equal(t, "[████████████████████] 12/10", renderBar(12, 10))
	assert.Equal(t, "[░░░░░░░░░░░░░░░░░░░░] 0/0", renderBar(0, 0))
}

func TestConsoleObserver(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(&out, true)

	result := search.ImageResult{PreviewURL: "https://cdn.example.com/1.jpg", Width: 10, Height: 20}
	console.RunStarted("run-1", []string{"red"}, 2)
	console.LabelStarted("red", "interer_v_tsvete_red")
	console.ImageSaved("red", 0, result, "out/1.jpg")
	console.ImageFailed("red", 1, result, errors.New("404"))
	console.LabelFinished(pipeline.LabelReport{Label: "red", Saved: 1, Failed: 1})
	console.RunFinished(&pipeline.Summary{Saved: 1, Failed: 1, Labels: []pipeline.LabelReport{{Label: "red"}}})

	text := out.String()
	assert.Contains(t, text, "interer_v_tsvete_red")
	assert.Contains(t, text, "out/1.jpg")
	assert.Contains(t, text, "10x20")
	assert.Contains(t, text, "404")
	assert.Contains(t, text, "1 saved, 1 skipped")
	assert.Equal(t, 1, console.Tracker().TotalSaved)
	assert.Equal(t, 1, console.Tracker().LabelsDone)
}

func TestNotifierTypes(t *testing.T) {
	summary := &pipeline.Summary{Saved: 3, Failed: 1, Labels: []pipeline.LabelReport{{Label: "red"}}}

	tests := []struct {
		name       string
		cfg        config.NotificationConfig
		wantOutput bool
		wantSent   int
	}{
		{"terminal", config.NotificationConfig{Enabled: true, OnComplete: true, NotificationType: "terminal"}, true, 0},
		{"desktop", config.NotificationConfig{Enabled: true, OnComplete: true, NotificationType: "desktop"}, true, 1},
		{"none", config.NotificationConfig{Enabled: true, OnComplete: true, NotificationType: "none"}, false, 0},
		{"disabled", config.NotificationConfig{Enabled: false, OnComplete: true, NotificationType: "desktop"}, false, 0},
		{"not on complete", config.NotificationConfig{Enabled: true, OnComplete: false, NotificationType: "terminal"}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			opts := []NotifierOption{WithOutput(&out)}
			sender := &fakeSender{}
			if tt.cfg.NotificationType == "desktop" {
				opts = append(opts, WithSender(sender))
			}

			NewNotifier(tt.cfg, opts...).NotifyRunComplete(summary)

			if tt.wantOutput {
				assert.Contains(t, out.String(), "3 images saved for 1 labels, 1 skipped")
			} else {
				assert.Empty(t, out.String())
			}
			require.Len(t, sender.titles, tt.wantSent)
		})
	}
}

func TestSummaryMessage(t *testing.T) {
	msg := SummaryMessage(&pipeline.Summary{Saved: 0, SearchErrors: 2, Labels: make([]pipeline.LabelReport, 2)})
	assert.Equal(t, "0 images saved for 2 labels, 2 searches failed", msg)
}
