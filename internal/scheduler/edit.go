package scheduler

import (
	"errors"

	"github.com/example/shift-scheduler/internal/calendar"
)

// ErrNoSchedule is returned by edits made before a schedule was installed.
var ErrNoSchedule = errors.New("scheduler: no schedule installed")

// EnsureCalendar creates the named calendar on the live schedule and the
// snapshot when it does not exist yet.
func (t *Tracker) EnsureCalendar(name string) error {
	if t.live == nil {
		return ErrNoSchedule
	}
	if _, err := t.live.EnsureCalendar(name); err != nil {
		return err
	}
	_, err := t.snapshot.EnsureCalendar(name)
	return err
}

// RemoveCalendar drops the named calendar from both schedules and forgets
// every conflict recorded for its entries.
func (t *Tracker) RemoveCalendar(name string) error {
	if t.live == nil {
		return ErrNoSchedule
	}
	if cal := t.snapshot.Calendar(name); cal != nil {
		for _, entry := range cal.Entries {
			t.forget(entry.ID)
		}
		if err := t.snapshot.RemoveCalendar(name); err != nil {
			return err
		}
	}
	return t.live.RemoveCalendar(name)
}

// AddEntry stores entry on the live schedule, mirrors it into the snapshot and
// checks the snapshot copy. It returns the stored entry and whether it
// conflicts.
func (t *Tracker) AddEntry(calendarName string, entry calendar.Entry) (calendar.Entry, bool, error) {
	if t.live == nil {
		return calendar.Entry{}, false, ErrNoSchedule
	}
	entry.Annotation = ""
	stored, err := t.live.AddEntry(calendarName, entry)
	if err != nil {
		return calendar.Entry{}, false, err
	}
	if _, err := t.snapshot.EnsureCalendar(calendarName); err != nil {
		return calendar.Entry{}, false, err
	}
	mirror, err := t.snapshot.AddEntry(calendarName, *stored)
	if err != nil {
		return calendar.Entry{}, false, err
	}
	return *stored, t.HasConflict(mirror), nil
}

// RemoveEntry deletes the entry from both schedules and forgets its conflict.
func (t *Tracker) RemoveEntry(id string) error {
	if t.live == nil {
		return ErrNoSchedule
	}
	t.forget(id)
	snapErr := t.snapshot.RemoveEntry(id)
	liveErr := t.live.RemoveEntry(id)
	if liveErr != nil && snapErr != nil {
		return liveErr
	}
	return nil
}
