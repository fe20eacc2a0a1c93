// Package traffic keeps a sliding window of weather request outcomes. The health
// handler derives the degraded state from it.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one request.
type Outcome int

const (
	Success Outcome = iota
	Error
	Denied
)

// DefaultRetention is how long outcomes are kept by the package-level tracker.
const DefaultRetention = 5 * time.Minute

var defaultTracker = NewTracker(DefaultRetention, nil)

// RecordSuccess records a weather load that produced a report.
func RecordSuccess() { defaultTracker.Record(Success) }

// RecordError records a weather load that failed upstream.
func RecordError() { defaultTracker.Record(Error) }

// RecordDenied records a rate-limit denial (429).
func RecordDenied() { defaultTracker.Record(Denied) }

// ErrorRate returns (errorCount, totalCount) within the window. Denials are excluded.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return defaultTracker.Count(window, Denied)
}

// Reset clears the package-level tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker records timestamped outcomes and prunes those older than its retention.
type Tracker struct {
	mu        sync.Mutex
	events    []event
	retention time.Duration
	now       func() time.Time
}

// NewTracker creates a Tracker. A nil now uses time.Now.
func NewTracker(retention time.Duration, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{retention: retention, now: now}
}

// Record appends an outcome stamped with the current time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

// Count returns how many outcomes of kind o fall within the window.
func (t *Tracker) Count(window time.Duration, o Outcome) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	n := 0
	for _, e := range t.events {
		if e.outcome == o && !e.at.Before(cutoff) {
			n++
		}
	}
	return n
}

// ErrorRate returns (errorCount, successCount+errorCount) within the window.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	for _, e := range t.events {
		if e.at.Before(cutoff) {
			continue
		}
		switch e.outcome {
		case Error:
			errors++
			total++
		case Success:
			total++
		}
	}
	return errors, total
}

// Reset drops all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// pruneLocked drops events older than the retention. Events are in time order.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	i := 0
	for i < len(t.events) && t.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
