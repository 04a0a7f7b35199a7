package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/shift-scheduler/internal/calendar"
)

// AddEntry stores a new entry on a live calendar and mirrors it into the
// snapshot, where it is checked against the active rules.
func (s *ConflictService) AddEntry(ctx context.Context, calendarName string, input EntryInput) (entry calendar.Entry, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddEntry", "calendar", calendarName)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("entry_id", entry.ID).InfoContext(ctx, "entry added")
	}()

	vErr := validateEntryInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker.Live().Calendar(calendarName) == nil {
		err = ErrNotFound
		return
	}

	var conflicted bool
	entry, conflicted, err = s.tracker.AddEntry(calendarName, calendar.Entry{
		ID:       s.newID(calendar.NewEntryID),
		Title:    strings.TrimSpace(input.Title),
		Location: strings.TrimSpace(input.Location),
		Start:    input.Start,
		End:      input.End,
		FullDay:  input.FullDay,
	})
	if err != nil {
		err = mapCalendarError(err)
		return
	}
	if conflicted {
		s.state = StateConflicted
	}
	s.metrics.ConflictsTracked(s.tracker.Len())
	return
}

// RemoveEntry deletes an entry from the live schedule and the snapshot.
func (s *ConflictService) RemoveEntry(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("ConflictService is nil")
	}

	logger := s.loggerWith(ctx, "RemoveEntry", "entry_id", id)

	s.mu.Lock()
	err := mapCalendarError(s.tracker.RemoveEntry(id))
	if err == nil && s.state != StateUnscanned {
		s.state = stateFor(s.tracker.Len())
	}
	if err == nil {
		s.metrics.ConflictsTracked(s.tracker.Len())
	}
	s.mu.Unlock()

	if err != nil {
		logger.ErrorContext(ctx, "failed to remove entry", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "entry removed")
	return nil
}

// ImportEntries adds entries to the named calendar, creating it when needed.
// Entries whose id is already present are skipped so that importing the same
// feed twice is harmless. It returns the number of entries added.
func (s *ConflictService) ImportEntries(ctx context.Context, calendarName string, entries []calendar.Entry) (added int, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ImportEntries", "calendar", calendarName)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import entries", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("received", len(entries), "added", added).InfoContext(ctx, "entries imported")
	}()

	if strings.TrimSpace(calendarName) == "" {
		vErr := &ValidationError{}
		vErr.add("calendar", "calendar is required")
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.tracker.EnsureCalendar(calendarName); err != nil {
		err = mapCalendarError(err)
		return
	}
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = s.newID(calendar.NewEntryID)
		}
		_, conflicted, addErr := s.tracker.AddEntry(calendarName, entry)
		if errors.Is(addErr, calendar.ErrEntryExists) {
			continue
		}
		if addErr != nil {
			err = mapCalendarError(addErr)
			return
		}
		added++
		if conflicted {
			s.state = StateConflicted
		}
	}
	s.metrics.ConflictsTracked(s.tracker.Len())
	return
}

func validateEntryInput(input EntryInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	} else if input.End.Before(input.Start) {
		vErr.add("end", "end must not be before start")
	}

	return vErr
}
