package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LabelState is the lifecycle of one label in the dashboard
type LabelState int

const (
	LabelPending LabelState = iota
	LabelActive
	LabelDone
	LabelFailed
)

func (s LabelState) String() string {
	switch s {
	case LabelActive:
		return "active"
	case LabelDone:
		return "done"
	case LabelFailed:
		return "failed"
	default:
		return "pending"
	}
}

// LabelItem is the dashboard row of one label
type LabelItem struct {
	Label     string
	Query     string
	Dir       string
	State     LabelState
	Saved     int
	Failed    int
	Target    int
	LastImage string
	Err       error
	StartTime time.Time
	Duration  time.Duration
}

// Progress returns the saved share of the target in [0,1]
func (l *LabelItem) Progress() float64 {
	if l.Target <= 0 {
		return 0
	}
	p := float64(l.Saved) / float64(l.Target)
	if p > 1 {
		p = 1
	}
	return p
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Stats is a point-in-time copy of the run counters
type Stats struct {
	RunID      string
	Labels     int
	Finished   int
	Saved      int
	Failed     int
	PerLabel   int
	Elapsed    time.Duration
	RunDone    bool
	SearchErrs int
}

// Model is the label dashboard state
type Model struct {
	spinner  spinner.Model
	overall  progress.Model
	labelBar progress.Model

	runID    string
	perLabel int
	labels   map[string]*LabelItem
	order    []string
	current  string

	totalSaved   int
	totalFailed  int
	searchErrors int
	startTime    time.Time
	runDone      bool

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	// onQuit runs when the user asks to quit
	onQuit func()

	mu sync.RWMutex
}

// NewModel creates an empty dashboard
func NewModel() *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = fg(swatchTeal)

	overall := progress.New(progress.WithDefaultGradient())
	overall.Width = 40
	labelBar := progress.New(progress.WithSolidFill(string(swatchLime)))
	labelBar.Width = 20

	return &Model{
		spinner:        s,
		overall:        overall,
		labelBar:       labelBar,
		labels:         make(map[string]*LabelItem),
		startTime:      time.Now(),
		maxLogMessages: 50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// StartRun registers every label as pending
func (m *Model) StartRun(runID string, labels []string, perLabel int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runID = runID
	m.perLabel = perLabel
	m.startTime = time.Now()
	for _, label := range labels {
		if _, ok := m.labels[label]; ok {
			continue
		}
		m.labels[label] = &LabelItem{Label: label, Target: perLabel}
		m.order = append(m.order, label)
	}
}

// StartLabel marks a label as active
func (m *Model) StartLabel(label, query string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.item(label)
	item.Query = query
	item.State = LabelActive
	item.StartTime = time.Now()
	m.current = label
}

// RecordSaved counts a stored image
func (m *Model) RecordSaved(label, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.item(label)
	item.Saved++
	item.LastImage = path
	m.totalSaved++
}

// RecordFailed counts a skipped image
func (m *Model) RecordFailed(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.item(label).Failed++
	m.totalFailed++
}

// FinishLabel closes a label with its final outcome
func (m *Model) FinishLabel(label, dir string, searchErr error, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.item(label)
	item.Dir = dir
	item.Duration = duration
	item.Err = searchErr
	item.State = LabelDone
	if searchErr != nil {
		item.State = LabelFailed
		m.searchErrors++
	}
	if m.current == label {
		m.current = ""
	}
}

// FinishRun marks the run as complete
func (m *Model) FinishRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runDone = true
}

// item returns the row for label, creating it when events arrive for an
// unannounced label. Callers hold mu.
func (m *Model) item(label string) *LabelItem {
	item, ok := m.labels[label]
	if !ok {
		item = &LabelItem{Label: label, Target: m.perLabel}
		m.labels[label] = item
		m.order = append(m.order, label)
	}
	return item
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := inkMuted
	switch level {
	case "ERROR":
		color = swatchCoral
	case "WARN":
		color = swatchAmber
	case "SUCCESS":
		color = swatchLime
	case "INFO":
		color = swatchTeal
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Label returns a copy of the row for label
func (m *Model) Label(label string) (LabelItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.labels[label]
	if !ok {
		return LabelItem{}, false
	}
	return *item, true
}

// LabelsIn returns copies of the rows in the given state, in run order
func (m *Model) LabelsIn(state LabelState) []LabelItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []LabelItem
	for _, label := range m.order {
		if item := m.labels[label]; item.State == state {
			items = append(items, *item)
		}
	}
	return items
}

// Stats returns the run counters
func (m *Model) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	finished := 0
	for _, item := range m.labels {
		if item.State == LabelDone || item.State == LabelFailed {
			finished++
		}
	}
	return Stats{
		RunID:      m.runID,
		Labels:     len(m.order),
		Finished:   finished,
		Saved:      m.totalSaved,
		Failed:     m.totalFailed,
		PerLabel:   m.perLabel,
		Elapsed:    time.Since(m.startTime),
		RunDone:    m.runDone,
		SearchErrs: m.searchErrors,
	}
}

// OverallProgress returns the share of finished labels in [0,1]
func (s Stats) OverallProgress() float64 {
	if s.Labels == 0 {
		return 0
	}
	return float64(s.Finished) / float64(s.Labels)
}

// ETA estimates the time left from the average label duration
func (s Stats) ETA() time.Duration {
	if s.Finished == 0 || s.Finished >= s.Labels {
		return 0
	}
	perLabel := s.Elapsed / time.Duration(s.Finished)
	return perLabel * time.Duration(s.Labels-s.Finished)
}
