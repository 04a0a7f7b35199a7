package scheduler

import (
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
)

const (
	adjustStep    = 30 * time.Minute
	shortEntry    = time.Hour
	longEntry     = 4 * time.Hour
	dayStartHour  = 9
	dayEndHour    = 18
	coreStartHour = 9
	coreEndHour   = 16
)

// Resolution reports what a resolution pass did for one conflicted entry.
type Resolution struct {
	EntryID  string
	Rule     Rule
	Strategy Strategy
	// Adjusted is true when the strategy changed the entry's interval.
	Adjusted bool
	// Resolved is true when the entry no longer matches any active rule.
	Resolved bool
}

// ResolveAll runs one resolution pass and reports whether the conflict set is
// empty afterwards.
func (t *Tracker) ResolveAll() bool {
	t.ResolvePass()
	return t.Clean()
}

// ResolvePass tries to fix every conflicted snapshot entry, re-checks each one
// and drops those that no longer match any active rule. Entries without a fix
// strategy stay tracked. Profiles are not recomputed during the pass, so a fix
// that changes an owner's booked hours only clears the conflict after
// RefreshWorkingHours and a new scan.
func (t *Tracker) ResolvePass() []Resolution {
	ids := t.conflictIDs()
	results := make([]Resolution, 0, len(ids))
	resolved := make([]string, 0, len(ids))

	for _, id := range ids {
		rule := t.conflicts[id]
		entry, ok := t.index[id]
		if !ok || entry == nil {
			continue
		}

		result := Resolution{EntryID: id, Rule: rule, Strategy: rule.Strategy()}
		switch result.Strategy {
		case StrategyWorkingHoursLess:
			result.Adjusted = t.widen(entry)
		case StrategyWorkingHoursGreater:
			result.Adjusted = t.narrow(entry)
		}

		if !t.HasConflict(entry) {
			result.Resolved = true
			resolved = append(resolved, id)
		}
		results = append(results, result)
	}

	for _, id := range resolved {
		t.forget(id)
	}
	return results
}

// widen stretches an entry by thirty minutes on each side when it is short,
// unusually long, or reaches outside the 09:00-18:00 working day.
func (t *Tracker) widen(entry *calendar.Entry) bool {
	d := entry.Duration()
	eligible := d <= shortEntry ||
		d > longEntry ||
		entry.Start.Before(t.clock(entry.Start, dayStartHour)) ||
		entry.End.After(t.clock(entry.Start, dayEndHour))
	if !eligible {
		return false
	}
	return entry.SetInterval(entry.Start.Add(-adjustStep), entry.End.Add(adjustStep)) == nil
}

// narrow trims an entry by thirty minutes on each side when it is short or sits
// inside the 09:00-16:00 core window. An entry too short to lose an hour
// collapses to its midpoint instead of inverting.
func (t *Tracker) narrow(entry *calendar.Entry) bool {
	d := entry.Duration()
	eligible := d <= shortEntry ||
		(!entry.Start.Before(t.clock(entry.Start, coreStartHour)) &&
			!entry.End.After(t.clock(entry.Start, coreEndHour)))
	if !eligible {
		return false
	}
	if d < 2*adjustStep {
		if d == 0 {
			return false
		}
		mid := entry.Start.Add(d / 2)
		return entry.SetInterval(mid, mid) == nil
	}
	return entry.SetInterval(entry.Start.Add(adjustStep), entry.End.Add(-adjustStep)) == nil
}

// clock returns hour:00 on the calendar day of ref, in the tracker's location
// when one is configured.
func (t *Tracker) clock(ref time.Time, hour int) time.Time {
	loc := ref.Location()
	if t.location != nil {
		loc = t.location
	}
	day := ref.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc)
}
