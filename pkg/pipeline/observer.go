package pipeline

import "imgharvest/pkg/search"

// Observer receives progress events from a run. Calls happen on the
// goroutine executing Run, in order.
type Observer interface {
	RunStarted(runID string, labels []string, perLabel int)
	LabelStarted(label, query string)
	ImageSaved(label string, index int, result search.ImageResult, path string)
	ImageFailed(label string, index int, result search.ImageResult, err error)
	LabelFinished(report LabelReport)
	RunFinished(summary *Summary)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) RunStarted(string, []string, int)                   {}
func (NopObserver) LabelStarted(string, string)                        {}
func (NopObserver) ImageSaved(string, int, search.ImageResult, string) {}
func (NopObserver) ImageFailed(string, int, search.ImageResult, error) {}
func (NopObserver) LabelFinished(LabelReport)                          {}
func (NopObserver) RunFinished(*Summary)                               {}

// Observers fans events out to several observers
type Observers []Observer

func (o Observers) RunStarted(runID string, labels []string, perLabel int) {
	for _, obs := range o {
		obs.RunStarted(runID, labels, perLabel)
	}
}

func (o Observers) LabelStarted(label, query string) {
	for _, obs := range o {
		obs.LabelStarted(label, query)
	}
}

func (o Observers) ImageSaved(label string, index int, result search.ImageResult, path string) {
	for _, obs := range o {
		obs.ImageSaved(label, index, result, path)
	}
}

func (o Observers) ImageFailed(label string, index int, result search.ImageResult, err error) {
	for _, obs := range o {
		obs.ImageFailed(label, index, result, err)
	}
}

func (o Observers) LabelFinished(report LabelReport) {
	for _, obs := range o {
		obs.LabelFinished(report)
	}
}

func (o Observers) RunFinished(summary *Summary) {
	for _, obs := range o {
		obs.RunFinished(summary)
	}
}
