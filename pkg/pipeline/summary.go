package pipeline

import (
	"time"

	"imgharvest/pkg/storage"
)

// LabelReport is the outcome of processing one label
type LabelReport struct {
	Label string
	Query string
	Dir   string
	// DirStatus is the last provisioning outcome for Dir
	DirStatus storage.DirStatus
	// Searched is false when the cap left nothing to fetch
	Searched bool
	// Consumed counts results pulled from the search sequence
	Consumed int
	Saved    int
	Failed   int
	// SearchErr is set when the search sequence ended with an error
	SearchErr error
	// DirErr is set when the query cannot name a directory, so no search ran
	DirErr   error
	Duration time.Duration
}

// Summary aggregates a whole run
type Summary struct {
	RunID    string
	Labels   []LabelReport
	Saved    int
	Failed   int
	Searches int
	// SearchErrors counts labels whose search ended early with an error
	SearchErrors int
	// DirErrors counts labels skipped because their query is not a directory name
	DirErrors int
	Duration  time.Duration
}

func (s *Summary) add(r LabelReport) {
	s.Labels = append(s.Labels, r)
	s.Saved += r.Saved
	s.Failed += r.Failed
	if r.Searched {
		s.Searches++
	}
	if r.SearchErr != nil {
		s.SearchErrors++
	}
	if r.DirErr != nil {
		s.DirErrors++
	}
}

// Report returns the report for label, if it was processed
func (s *Summary) Report(label string) (LabelReport, bool) {
	for _, r := range s.Labels {
		if r.Label == label {
			return r, true
		}
	}
	return LabelReport{}, false
}
