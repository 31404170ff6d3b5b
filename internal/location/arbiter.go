// Package location decides which of several location fixes is the best one to
// hold, and whether a held fix is still fresh enough to trust.
package location

import (
	"time"

	"github.com/pkordes/trackbook/backend/internal/domain"
)

// Default thresholds.
const (
	DefaultSignificantlyNewer        = 2 * time.Minute
	DefaultSignificantlyLessAccurate = 200 // meters
	DefaultFreshness                 = 5 * time.Minute
)

// Thresholds tune the arbiter. Zero fields fall back to the defaults.
type Thresholds struct {
	// SignificantlyNewer is the age difference beyond which the newer fix
	// wins (or the older fix loses) regardless of accuracy.
	SignificantlyNewer time.Duration

	// SignificantlyLessAccurate is the accuracy loss in meters that a
	// candidate from the same provider may have and still replace the
	// current fix.
	SignificantlyLessAccurate int

	// Freshness is the maximum age of a fix that IsCurrent accepts.
	Freshness time.Duration
}

func (t Thresholds) withDefaults() Thresholds {
	if t.SignificantlyNewer <= 0 {
		t.SignificantlyNewer = DefaultSignificantlyNewer
	}
	if t.SignificantlyLessAccurate <= 0 {
		t.SignificantlyLessAccurate = DefaultSignificantlyLessAccurate
	}
	if t.Freshness <= 0 {
		t.Freshness = DefaultFreshness
	}
	return t
}

// Clock returns the monotonic time since boot, in the same time base as
// domain.Fix.ElapsedRealtime.
type Clock func() time.Duration

// ProcessClock returns a Clock that measures time since the call, using the
// runtime's monotonic clock.
func ProcessClock() Clock {
	boot := time.Now()
	return func() time.Duration { return time.Since(boot) }
}

// Arbiter compares fixes. It holds no state besides its configuration and is
// safe for concurrent use.
type Arbiter struct {
	thresholds Thresholds
	now        Clock
}

// NewArbiter returns an Arbiter using the given thresholds and clock.
// A nil clock means ProcessClock.
func NewArbiter(th Thresholds, now Clock) *Arbiter {
	if now == nil {
		now = ProcessClock()
	}
	return &Arbiter{thresholds: th.withDefaults(), now: now}
}

// Thresholds returns the effective thresholds.
func (a *Arbiter) Thresholds() Thresholds {
	return a.thresholds
}

// Now returns the arbiter's current monotonic reading.
func (a *Arbiter) Now() time.Duration {
	return a.now()
}

// IsBetterLocation reports whether candidate should replace current.
//
// An absent current fix always loses. Otherwise, in priority order: a
// significantly newer candidate wins, a significantly older one loses; then
// the candidate wins if it is more accurate, equally accurate and not older,
// or less accurate within the threshold and from the same provider.
// Ties favor staying with the current provider.
//
// A nil candidate is a caller error and yields false.
func (a *Arbiter) IsBetterLocation(candidate, current *domain.Fix) bool {
	if candidate == nil {
		return false
	}
	if current == nil {
		return true
	}

	timeDelta := candidate.ElapsedRealtime - current.ElapsedRealtime
	switch {
	case timeDelta > a.thresholds.SignificantlyNewer:
		return true
	case timeDelta < -a.thresholds.SignificantlyNewer:
		return false
	}

	accuracyDelta := candidate.Accuracy - current.Accuracy
	switch {
	case accuracyDelta < 0:
		return true
	case accuracyDelta == 0:
		return timeDelta >= 0
	case accuracyDelta <= float64(a.thresholds.SignificantlyLessAccurate):
		return candidate.Provider == current.Provider
	}
	return false
}

// IsCurrent reports whether fix is younger than the freshness threshold.
// A nil fix is never current.
func (a *Arbiter) IsCurrent(fix *domain.Fix) bool {
	if fix == nil {
		return false
	}
	return a.Age(fix) < a.thresholds.Freshness
}

// Age returns how long ago fix was observed, by the arbiter's clock.
func (a *Arbiter) Age(fix *domain.Fix) time.Duration {
	return a.now() - fix.ElapsedRealtime
}
