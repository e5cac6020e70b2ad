// Package progress counts completed pages for progress fragments.
package progress

import "github.com/spherical/pdf-converter/internal/domain"

// State is a progress snapshot.
type State struct {
	Processed int
	Total     int
}

// Event renders s as the body of a progress fragment.
func (s State) Event() domain.ProgressEvent {
	return domain.ProgressEvent{
		Children: domain.ProgressCounts{NProcessed: s.Processed, NTotal: s.Total},
	}
}

// Tracker holds the (processed, total) counters of one run. Total is fixed at
// construction; Processed moves forward one milestone at a time and is capped
// at Total.
type Tracker struct {
	processed int
	total     int
}

// New returns a tracker for total pages.
func New(total int) *Tracker {
	if total < 0 {
		total = 0
	}
	return &Tracker{total: total}
}

// Advance records one completed milestone and returns the new state.
func (t *Tracker) Advance() State {
	if t.processed < t.total {
		t.processed++
	}
	return t.State()
}

// State returns the current counters.
func (t *Tracker) State() State {
	return State{Processed: t.processed, Total: t.total}
}
