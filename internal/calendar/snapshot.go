package calendar

// Copy returns a deep copy of the schedule. Entry ids, titles, timestamps and
// annotations are preserved; no calendar or entry is shared with the source.
func Copy(s *Schedule) *Schedule {
	out := NewSchedule()
	if s == nil {
		return out
	}
	out.Calendars = make([]*Calendar, 0, len(s.Calendars))
	for _, cal := range s.Calendars {
		copied := &Calendar{Name: cal.Name, Entries: make([]*Entry, 0, len(cal.Entries))}
		for _, entry := range cal.Entries {
			clone := entry.clone()
			clone.Calendar = cal.Name
			copied.Entries = append(copied.Entries, clone)
		}
		out.Calendars = append(out.Calendars, copied)
	}
	return out
}

// Apply replaces the calendars of live with a fresh copy of snapshot. The two
// schedules are value-equal afterwards but remain independently owned.
func Apply(live, snapshot *Schedule) {
	if live == nil {
		return
	}
	live.Calendars = Copy(snapshot).Calendars
}

// Equal reports whether two schedules hold the same calendars and entries by value.
func Equal(a, b *Schedule) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Calendars) != len(b.Calendars) {
		return false
	}
	for i, cal := range a.Calendars {
		other := b.Calendars[i]
		if cal.Name != other.Name || len(cal.Entries) != len(other.Entries) {
			return false
		}
		for j, entry := range cal.Entries {
			if !entryEqual(entry, other.Entries[j]) {
				return false
			}
		}
	}
	return true
}

func entryEqual(a, b *Entry) bool {
	return a.ID == b.ID &&
		a.Calendar == b.Calendar &&
		a.Title == b.Title &&
		a.Location == b.Location &&
		a.Start.Equal(b.Start) &&
		a.End.Equal(b.End) &&
		a.FullDay == b.FullDay &&
		a.Annotation == b.Annotation
}
