package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"imgharvest/pkg/pipeline"
	"imgharvest/pkg/search"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker keeps track of label and image counts across a run
type StatusTracker struct {
	LabelsTotal int
	LabelsDone  int
	PerLabel    int
	LabelSaved  int
	TotalSaved  int
	TotalFailed int
	StartTime   time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker(labels, perLabel int) *StatusTracker {
	return &StatusTracker{
		LabelsTotal: labels,
		PerLabel:    perLabel,
		StartTime:   time.Now(),
	}
}

// IncrementSaved counts a stored image for the current label
func (st *StatusTracker) IncrementSaved() {
	st.TotalSaved++
	st.LabelSaved++
}

// IncrementFailed counts a skipped image
func (st *StatusTracker) IncrementFailed() {
	st.TotalFailed++
}

// NextLabel closes the current label
func (st *StatusTracker) NextLabel() {
	st.LabelsDone++
	st.LabelSaved = 0
}

// GetLabelProgress returns a formatted progress bar for the current label
func (st *StatusTracker) GetLabelProgress() string {
	return renderBar(st.LabelSaved, st.PerLabel)
}

// GetRunProgress returns a formatted progress bar over labels
func (st *StatusTracker) GetRunProgress() string {
	return renderBar(st.LabelsDone, st.LabelsTotal)
}

func renderBar(n, total int) string {
	filled := 0
	if total > 0 {
		filled = min(n*barWidth/total, barWidth)
	}
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, n, total)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetSaveRate returns the average number of images saved per minute
func (st *StatusTracker) GetSaveRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.TotalSaved) / elapsed
}

// Console prints run progress as plain terminal lines
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	tracker *StatusTracker
	verbose bool
	label   string
}

// NewConsole creates a console observer. With verbose set every image is
// printed on its own line.
func NewConsole(out io.Writer, verbose bool) *Console {
	return &Console{
		out:     out,
		tracker: NewStatusTracker(0, 0),
		verbose: verbose,
	}
}

var _ pipeline.Observer = (*Console)(nil)

// Tracker returns the underlying counters
func (c *Console) Tracker() *StatusTracker {
	return c.tracker
}

func (c *Console) RunStarted(runID string, labels []string, perLabel int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracker = NewStatusTracker(len(labels), perLabel)
	fmt.Fprintf(c.out, "%s %s %s\n", Magenta("[RUN]"), Dim(runID), Yellow(fmt.Sprintf("%d labels x %d images", len(labels), perLabel)))
}

func (c *Console) LabelStarted(label, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.label = label
	fmt.Fprintf(c.out, "\n%s %s %s\n", Magenta("[SEARCHING]"), Cyan(label), Dim(query))
}

func (c *Console) ImageSaved(label string, index int, result search.ImageResult, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracker.IncrementSaved()
	if c.verbose {
		fmt.Fprintf(c.out, "%s #%d %s %s\n", Green("✓"), index, path, Dim(result.Size()))
		return
	}
	c.printProgress()
}

func (c *Console) ImageFailed(label string, index int, result search.ImageResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracker.IncrementFailed()
	if c.verbose {
		fmt.Fprintf(c.out, "%s #%d %s - %v\n", Red("✗"), index, result.PreviewURL, err)
		return
	}
	c.printProgress()
}

func (c *Console) LabelFinished(report pipeline.LabelReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracker.NextLabel()
	if !c.verbose {
		fmt.Fprintln(c.out)
	}
	if report.SearchErr != nil {
		fmt.Fprintf(c.out, "%s %s: %v\n", Red("[SEARCH FAILED]"), report.Label, report.SearchErr)
	}
	if report.DirErr != nil {
		fmt.Fprintf(c.out, "%s %s: %v\n", Red("[SKIPPED]"), report.Label, report.DirErr)
	}
	fmt.Fprintf(c.out, "%s %s %d saved, %d skipped %s\n",
		Green("[DONE]"), report.Label, report.Saved, report.Failed, Dim(c.tracker.GetRunProgress()))
}

func (c *Console) RunFinished(summary *pipeline.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n%s %d images saved, %d skipped across %d labels in %s\n",
		Green("[COMPLETE]"), summary.Saved, summary.Failed, len(summary.Labels), summary.Duration.Round(time.Millisecond))
	if summary.SearchErrors > 0 {
		fmt.Fprintf(c.out, "%s %d searches ended early\n", Yellow("[WARN]"), summary.SearchErrors)
	}
}

// printProgress rewrites the current progress line
func (c *Console) printProgress() {
	line := fmt.Sprintf("%s %s %s", Green("[SAVED]"), Cyan(c.label), c.tracker.GetLabelProgress())
	if c.tracker.TotalFailed > 0 {
		line += " " + Red(fmt.Sprintf("%d skipped", c.tracker.TotalFailed))
	}
	fmt.Fprintf(c.out, "\r%s", line)
}
