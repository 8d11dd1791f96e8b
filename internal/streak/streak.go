// Package streak maintains the per-user consecutive-day logging counter.
package streak

import "budget/internal/core"

// Outcome describes how a log event changed the streak.
type Outcome int

const (
	// Started is the first ever log event.
	Started Outcome = iota
	// Continued means the event fell on the day after the last log.
	Continued
	// Reset means one or more days were skipped.
	Reset
	// Unchanged means the user already logged on the event day.
	Unchanged
	// Backdated means the event day precedes the last log day and was ignored.
	Backdated
)

func (o Outcome) String() string {
	switch o {
	case Started:
		return "started"
	case Continued:
		return "continued"
	case Reset:
		return "reset"
	case Unchanged:
		return "unchanged"
	case Backdated:
		return "backdated"
	default:
		return "unknown"
	}
}

// Changed reports whether the profile needs to be persisted.
func (o Outcome) Changed() bool {
	return o == Started || o == Continued || o == Reset
}

// Record applies a log event on eventDate to the profile's streak fields.
// Gaps are measured in calendar days.
func Record(p *core.Profile, eventDate core.Date) Outcome {
	if p.LastLogDate.IsZero() {
		p.StreakCount = 1
		p.LastLogDate = eventDate
		return Started
	}

	gap := eventDate.DaysSince(p.LastLogDate)
	switch {
	case gap < 0:
		return Backdated
	case gap == 0:
		return Unchanged
	case gap == 1:
		p.StreakCount++
		p.LastLogDate = eventDate
		return Continued
	default:
		p.StreakCount = 1
		p.LastLogDate = eventDate
		return Reset
	}
}

// Current returns the streak as of today: a streak whose last log is older
// than yesterday is already broken even though the stored counter is not
// reset until the next log event.
func Current(p core.Profile, today core.Date) int {
	if p.LastLogDate.IsZero() {
		return 0
	}
	if today.DaysSince(p.LastLogDate) > 1 {
		return 0
	}
	return p.StreakCount
}
