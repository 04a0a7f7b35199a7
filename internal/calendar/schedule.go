// Package calendar holds the schedule model consumed by the conflict engine:
// named calendars that own time-boxed entries. Calendars and entries are plain
// value records with stable identifiers so that a schedule can be copied without
// aliasing.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidInterval is returned when an entry would end before it starts.
	ErrInvalidInterval = errors.New("calendar: end must not be before start")
	// ErrCalendarNotFound is returned when a named calendar does not exist.
	ErrCalendarNotFound = errors.New("calendar: calendar not found")
	// ErrCalendarExists is returned when a calendar name is already taken.
	ErrCalendarExists = errors.New("calendar: calendar already exists")
	// ErrEntryExists is returned when an entry id is already present in the schedule.
	ErrEntryExists = errors.New("calendar: entry already exists")
	// ErrEntryNotFound is returned when no entry carries the requested id.
	ErrEntryNotFound = errors.New("calendar: entry not found")
)

// Entry is a single timed event on a calendar.
type Entry struct {
	ID         string
	Calendar   string
	Title      string
	Location   string
	Start      time.Time
	End        time.Time
	FullDay    bool
	Annotation string
}

// NewEntryID returns a fresh identifier for entries created by the store.
func NewEntryID() string {
	return uuid.NewString()
}

// Duration reports how long the entry lasts.
func (e *Entry) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// SetInterval replaces start and end together, rejecting inverted intervals.
func (e *Entry) SetInterval(start, end time.Time) error {
	if end.Before(start) {
		return ErrInvalidInterval
	}
	e.Start = start
	e.End = end
	return nil
}

// Description renders the entry the way the conflict table shows it:
// title, start date and time, end date and time.
func (e *Entry) Description() string {
	return fmt.Sprintf("%s %s %s %s %s",
		e.Title,
		e.Start.Format(time.DateOnly),
		e.Start.Format("15:04"),
		e.End.Format(time.DateOnly),
		e.End.Format("15:04"),
	)
}

func (e *Entry) clone() *Entry {
	c := *e
	return &c
}

// Calendar is a named collection of entries, usually one per person.
type Calendar struct {
	Name    string
	Entries []*Entry
}

// Find returns the entry with the given id, or nil.
func (c *Calendar) Find(id string) *Entry {
	for _, entry := range c.Entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

// Hours sums the duration of every entry on the calendar.
func (c *Calendar) Hours() float64 {
	var total time.Duration
	for _, entry := range c.Entries {
		total += entry.Duration()
	}
	return total.Hours()
}

// Schedule is the set of calendars the engine works on.
type Schedule struct {
	Calendars []*Calendar
}

// NewSchedule returns an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{}
}

// Calendar returns the calendar with the given name, or nil.
func (s *Schedule) Calendar(name string) *Calendar {
	if s == nil {
		return nil
	}
	for _, cal := range s.Calendars {
		if cal.Name == name {
			return cal
		}
	}
	return nil
}

// AddCalendar creates an empty calendar.
func (s *Schedule) AddCalendar(name string) (*Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("calendar: name is required")
	}
	if s.Calendar(name) != nil {
		return nil, ErrCalendarExists
	}
	cal := &Calendar{Name: name}
	s.Calendars = append(s.Calendars, cal)
	return cal, nil
}

// EnsureCalendar returns the named calendar, creating it when absent.
func (s *Schedule) EnsureCalendar(name string) (*Calendar, error) {
	if cal := s.Calendar(name); cal != nil {
		return cal, nil
	}
	return s.AddCalendar(name)
}

// RemoveCalendar drops a calendar and every entry on it.
func (s *Schedule) RemoveCalendar(name string) error {
	for i, cal := range s.Calendars {
		if cal.Name == name {
			s.Calendars = append(s.Calendars[:i], s.Calendars[i+1:]...)
			return nil
		}
	}
	return ErrCalendarNotFound
}

// AddEntry stores a copy of entry on the named calendar. An empty id is
// replaced with a generated one. The stored entry is returned.
func (s *Schedule) AddEntry(calendarName string, entry Entry) (*Entry, error) {
	cal := s.Calendar(calendarName)
	if cal == nil {
		return nil, ErrCalendarNotFound
	}
	if entry.End.Before(entry.Start) {
		return nil, ErrInvalidInterval
	}
	if entry.ID == "" {
		entry.ID = NewEntryID()
	} else if s.FindEntry(entry.ID) != nil {
		return nil, ErrEntryExists
	}
	entry.Calendar = cal.Name
	stored := entry.clone()
	cal.Entries = append(cal.Entries, stored)
	return stored, nil
}

// RemoveEntry deletes the entry with the given id from whichever calendar owns it.
func (s *Schedule) RemoveEntry(id string) error {
	for _, cal := range s.Calendars {
		for i, entry := range cal.Entries {
			if entry.ID == id {
				cal.Entries = append(cal.Entries[:i], cal.Entries[i+1:]...)
				return nil
			}
		}
	}
	return ErrEntryNotFound
}

// FindEntry looks an entry up by id across all calendars.
func (s *Schedule) FindEntry(id string) *Entry {
	if s == nil {
		return nil
	}
	for _, cal := range s.Calendars {
		if entry := cal.Find(id); entry != nil {
			return entry
		}
	}
	return nil
}

// Entries returns every entry ordered by calendar name, start time and id.
// The returned slice is new but the entries are the schedule's own.
func (s *Schedule) Entries() []*Entry {
	if s == nil {
		return nil
	}
	out := make([]*Entry, 0)
	for _, cal := range s.Calendars {
		out = append(out, cal.Entries...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Calendar != out[j].Calendar {
			return out[i].Calendar < out[j].Calendar
		}
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CalendarNames lists calendar names in schedule order.
func (s *Schedule) CalendarNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Calendars))
	for _, cal := range s.Calendars {
		names = append(names, cal.Name)
	}
	return names
}
