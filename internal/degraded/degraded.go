// Package degraded decides whether recent forecast failures should mark the service degraded.
package degraded

import (
	"time"

	"github.com/kjstillabower/clima-service/internal/traffic"
)

// Threshold is the error-rate rule: degraded when errors/total within Window reaches Pct percent.
// A zero Window or Pct disables the rule.
type Threshold struct {
	Window time.Duration
	Pct    int
}

// Enabled reports whether the rule is active.
func (t Threshold) Enabled() bool {
	return t.Window > 0 && t.Pct > 0
}

// Breached evaluates the rule against the package-level traffic tracker.
func (t Threshold) Breached() bool {
	if !t.Enabled() {
		return false
	}
	errs, total := traffic.ErrorRate(t.Window)
	return breached(errs, total, t.Pct)
}

// BreachedBy evaluates the rule against tr.
func (t Threshold) BreachedBy(tr *traffic.Tracker) bool {
	if !t.Enabled() {
		return false
	}
	errs, total := tr.ErrorRate(t.Window)
	return breached(errs, total, t.Pct)
}

func breached(errs, total, pct int) bool {
	if total == 0 {
		return false
	}
	return errs*100 >= pct*total
}
