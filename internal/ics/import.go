// Package ics converts iCalendar (.ics) data into calendar entries.
//
// Recurring VEVENTs are expanded with their RRULE and EXDATE properties into
// one entry per occurrence inside a bounded window; RECURRENCE-ID overrides
// replace the occurrence they name.
package ics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/example/shift-scheduler/internal/calendar"
)

const defaultMaxOccurrences = 1000

// ErrInvalidWindow is returned when the import window ends before it starts.
var ErrInvalidWindow = errors.New("ics: window end is before start")

// Options bound an import.
type Options struct {
	// Location is used for floating times and all-day dates. Nil means UTC.
	Location *time.Location
	// From and Until bound the occurrences of recurring events. Single events
	// are imported regardless of the window.
	From  time.Time
	Until time.Time
	// MaxOccurrences caps the expansion of one recurring event. Zero means 1000.
	MaxOccurrences int
	Logger         *slog.Logger
}

type event struct {
	uid        string
	summary    string
	location   string
	start      time.Time
	end        time.Time
	allDay     bool
	rrule      string
	exDates    []time.Time
	recurrence *time.Time
}

// Parse reads an iCalendar stream and returns its events as entries ordered
// by start. Entry ids are the event UID, suffixed with the occurrence start
// for expanded recurrences. The Calendar field is left empty.
func Parse(r io.Reader, opts Options) ([]calendar.Entry, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Until.Before(opts.From) {
		return nil, ErrInvalidWindow
	}

	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	var (
		bases     []event
		overrides = make(map[string][]event)
	)
	for _, component := range cal.Events() {
		ev, err := parseEvent(component, opts.Location)
		if err != nil {
			opts.Logger.Warn("skipping event", "error", err)
			continue
		}
		if ev.recurrence != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var entries []calendar.Entry
	for _, ev := range bases {
		if ev.rrule == "" {
			entries = append(entries, ev.entry(ev.uid, ev.start, ev.end))
			continue
		}
		expanded, err := expand(ev, overrides[ev.uid], opts)
		if err != nil {
			opts.Logger.Warn("skipping recurring event", "uid", ev.uid, "error", err)
			continue
		}
		entries = append(entries, expanded...)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start.Before(entries[j].Start) })
	return entries, nil
}

func (ev event) entry(id string, start, end time.Time) calendar.Entry {
	title := ev.summary
	if title == "" {
		title = "(untitled)"
	}
	return calendar.Entry{
		ID:       id,
		Title:    title,
		Location: ev.location,
		Start:    start,
		End:      end,
		FullDay:  ev.allDay,
	}
}

func parseEvent(ve *ical.VEvent, loc *time.Location) (event, error) {
	var ev event

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.uid = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, fmt.Errorf("event %s: missing DTSTART", ev.uid)
	}
	ev.allDay = isDate(dtStart)

	var err error
	if ev.allDay {
		if ev.start, err = parseTime(dtStart.Value, loc); err != nil {
			return ev, fmt.Errorf("event %s: DTSTART: %w", ev.uid, err)
		}
	} else if ev.start, err = ve.GetStartAt(); err != nil {
		return ev, fmt.Errorf("event %s: DTSTART: %w", ev.uid, err)
	}

	switch dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case dtEnd != nil && ev.allDay:
		ev.end, err = parseTime(dtEnd.Value, loc)
	case dtEnd != nil:
		ev.end, err = ve.GetEndAt()
	case ev.allDay:
		ev.end = ev.start.AddDate(0, 0, 1)
	default:
		ev.end = ev.start
	}
	if err != nil {
		return ev, fmt.Errorf("event %s: DTEND: %w", ev.uid, err)
	}
	if ev.end.Before(ev.start) {
		return ev, fmt.Errorf("event %s: %w", ev.uid, calendar.ErrInvalidInterval)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTime(part, propertyLocation(p, loc)); err == nil {
				ev.exDates = append(ev.exDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		t, err := parseTime(p.Value, propertyLocation(p, loc))
		if err != nil {
			return ev, fmt.Errorf("event %s: RECURRENCE-ID: %w", ev.uid, err)
		}
		ev.recurrence = &t
	}
	return ev, nil
}

func expand(ev event, overrides []event, opts Options) ([]calendar.Entry, error) {
	rule, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		return nil, err
	}
	rule.DTStart(ev.start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	starts := set.Between(opts.From.In(ev.start.Location()), opts.Until.In(ev.start.Location()), true)
	if len(starts) > opts.MaxOccurrences {
		opts.Logger.Warn("truncating recurring event", "uid", ev.uid, "cap", opts.MaxOccurrences)
		starts = starts[:opts.MaxOccurrences]
	}

	duration := ev.end.Sub(ev.start)
	entries := make([]calendar.Entry, 0, len(starts))
	for _, start := range starts {
		id := fmt.Sprintf("%s@%s", ev.uid, start.UTC().Format("20060102T150405Z"))
		occurrence := ev.entry(id, start, start.Add(duration))
		for _, ov := range overrides {
			if ov.recurrence.Equal(start) {
				occurrence = ov.entry(id, ov.start, ov.end)
				break
			}
		}
		entries = append(entries, occurrence)
	}
	return entries, nil
}

func isDate(p *ical.IANAProperty) bool {
	if values, ok := p.ICalParameters["VALUE"]; ok && len(values) > 0 && strings.EqualFold(values[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func propertyLocation(p *ical.IANAProperty, fallback *time.Location) *time.Location {
	if tzids, ok := p.ICalParameters["TZID"]; ok && len(tzids) > 0 {
		if loc, err := time.LoadLocation(tzids[0]); err == nil {
			return loc
		}
	}
	return fallback
}

// parseTime reads the DATE and DATE-TIME forms; floating values are placed in loc.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(value, "Z"):
		return time.Parse("20060102T150405Z", value)
	case strings.Contains(value, "T"):
		return time.ParseInLocation("20060102T150405", value, loc)
	default:
		return time.ParseInLocation("20060102", value, loc)
	}
}
