package catalog

import (
	"log"
	"time"

	"watchvault/internal/prefs"
)

// DailyAllowance is the nominal number of provider calls per calendar day.
// It is advisory telemetry for display only; exceeding it never blocks a
// call.
const DailyAllowance = 50

const (
	apiCallCountKey  = "apiCallCount"
	lastResetDateKey = "lastResetDate"
)

// UsageTracker counts provider calls per calendar day. The count and the
// last-reset timestamp survive restarts through the preference store; the
// count rolls back to zero the first time the tracker is touched on a new
// day.
type UsageTracker struct {
	store *prefs.Store
	now   func() time.Time
}

// NewUsageTracker creates a tracker on the given preference store and
// performs the new-day check immediately.
func NewUsageTracker(store *prefs.Store) *UsageTracker {
	t := &UsageTracker{store: store, now: time.Now}
	t.resetIfNewDay()
	return t
}

// Used returns the number of calls counted so far today.
func (t *UsageTracker) Used() int {
	t.resetIfNewDay()
	return t.store.Int(apiCallCountKey)
}

// Remaining returns how many calls are left of the daily allowance, floored
// at zero.
func (t *UsageTracker) Remaining() int {
	remaining := DailyAllowance - t.Used()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Increment records one provider call.
func (t *UsageTracker) Increment() {
	t.resetIfNewDay()
	count := t.store.Int(apiCallCountKey) + 1
	if err := t.store.SetInt(apiCallCountKey, count); err != nil {
		log.Printf("[catalog] failed to persist call count: %v", err)
	}
}

func (t *UsageTracker) resetIfNewDay() {
	lastReset := t.store.Time(lastResetDateKey)
	now := t.now()
	if sameCalendarDay(lastReset, now) {
		return
	}

	if err := t.store.SetInt(apiCallCountKey, 0); err != nil {
		log.Printf("[catalog] failed to reset call count: %v", err)
	}
	if err := t.store.SetTime(lastResetDateKey, now); err != nil {
		log.Printf("[catalog] failed to persist reset date: %v", err)
	}
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
