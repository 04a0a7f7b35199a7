package ics

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func icsDocument(events ...string) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//shift-scheduler//test//EN\r\n")
	for _, ev := range events {
		b.WriteString("BEGIN:VEVENT\r\n")
		b.WriteString(strings.ReplaceAll(strings.TrimSpace(ev), "\n", "\r\n"))
		b.WriteString("\r\nEND:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func window() Options {
	return Options{
		From:  time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseSingleEvents(t *testing.T) {
	doc := icsDocument(
		`UID:late
SUMMARY:Night shift
LOCATION:Ward 3
DTSTART:20250304T220000Z
DTEND:20250305T060000Z`,
		`UID:early
SUMMARY:Briefing
DTSTART:20250303T080000Z
DTEND:20250303T083000Z`,
		`UID:holiday
SUMMARY:Holiday
DTSTART;VALUE=DATE:20250307`,
	)

	entries, err := Parse(strings.NewReader(doc), window())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "early" || entries[1].ID != "late" || entries[2].ID != "holiday" {
		t.Fatalf("expected entries ordered by start, got %s, %s, %s", entries[0].ID, entries[1].ID, entries[2].ID)
	}
	if entries[1].Location != "Ward 3" || entries[1].Duration() != 8*time.Hour {
		t.Errorf("unexpected night shift %+v", entries[1])
	}
	holiday := entries[2]
	if !holiday.FullDay || holiday.Duration() != 24*time.Hour {
		t.Errorf("expected a full day entry, got %+v", holiday)
	}
}

func TestParseExpandsRecurrences(t *testing.T) {
	doc := icsDocument(
		`UID:standup
SUMMARY:Stand-up
DTSTART:20250303T090000Z
DTEND:20250303T091500Z
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20250305T090000Z`,
		`UID:standup
SUMMARY:Stand-up (moved)
RECURRENCE-ID:20250306T090000Z
DTSTART:20250306T100000Z
DTEND:20250306T101500Z`,
	)

	entries, err := Parse(strings.NewReader(doc), window())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 occurrences after EXDATE, got %d", len(entries))
	}

	ids := make(map[string]bool)
	for _, entry := range entries {
		if ids[entry.ID] {
			t.Fatalf("duplicate id %s", entry.ID)
		}
		ids[entry.ID] = true
		if entry.Start.Day() == 5 {
			t.Errorf("excluded occurrence present: %+v", entry)
		}
	}

	moved := entries[2]
	if moved.ID != "standup@20250306T090000Z" || moved.Title != "Stand-up (moved)" || moved.Start.Hour() != 10 {
		t.Errorf("expected override to replace the occurrence, got %+v", moved)
	}
}

func TestParseRespectsWindowAndCap(t *testing.T) {
	doc := icsDocument(`UID:forever
SUMMARY:Rounds
DTSTART:20250101T070000Z
DTEND:20250101T080000Z
RRULE:FREQ=DAILY`)

	opts := window()
	entries, err := Parse(strings.NewReader(doc), opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 30 {
		t.Fatalf("expected 30 occurrences in March window, got %d", len(entries))
	}

	opts.MaxOccurrences = 3
	entries, err = Parse(strings.NewReader(doc), opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(entries))
	}
}

func TestParseSkipsInvalidEvents(t *testing.T) {
	doc := icsDocument(
		`SUMMARY:No uid
DTSTART:20250303T080000Z
DTEND:20250303T090000Z`,
		`UID:inverted
DTSTART:20250303T100000Z
DTEND:20250303T090000Z`,
		`UID:ok
DTSTART:20250303T100000Z
DTEND:20250303T110000Z`,
	)

	entries, err := Parse(strings.NewReader(doc), window())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "ok" || entries[0].Title != "(untitled)" {
		t.Fatalf("expected only the valid event, got %+v", entries)
	}
}

func TestParseRejectsInvertedWindow(t *testing.T) {
	opts := window()
	opts.From, opts.Until = opts.Until, opts.From
	if _, err := Parse(strings.NewReader(icsDocument()), opts); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestParseTimeForms(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	tests := []struct {
		value string
		want  time.Time
	}{
		{"20250303T090000Z", time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{"20250303T090000", time.Date(2025, 3, 3, 9, 0, 0, 0, tokyo)},
		{"20250303", time.Date(2025, 3, 3, 0, 0, 0, 0, tokyo)},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseTime(tt.value, tokyo)
			if err != nil {
				t.Fatalf("parseTime: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
