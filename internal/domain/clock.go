package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic
// event timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for reading timestamps. Pass nil to reset to
// real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// NowUTC returns the current time from the package clock in UTC. Reading
// event times are assigned from here at ingestion.
func NowUTC() time.Time {
	return clock.Now().UTC()
}
