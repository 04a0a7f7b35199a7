package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/scheduler"
)

func TestConflictService_AddEntry(t *testing.T) {
	store := &storeStub{
		rules:    []scheduler.Rule{{ID: "r1", Field: scheduler.FieldOwnerName, Operator: scheduler.OperatorEquals, Value: "Bob", Active: true}},
		schedule: bobSchedule(t),
	}
	ctx := context.Background()

	t.Run("validates input", func(t *testing.T) {
		svc := loadedService(t, store)
		_, err := svc.AddEntry(ctx, "Bob", EntryInput{Title: " ", Start: at(11, 0), End: at(10, 0)})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["title"]; !ok {
			t.Fatalf("expected title error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["end"]; !ok {
			t.Fatalf("expected end error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects unknown calendars", func(t *testing.T) {
		svc := loadedService(t, store)
		_, err := svc.AddEntry(ctx, "Nobody", EntryInput{Title: "x", Start: at(9, 0), End: at(10, 0)})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("adds to both schedules and flags conflicts", func(t *testing.T) {
		svc := loadedService(t, store)
		entry, err := svc.AddEntry(ctx, "Bob", EntryInput{Title: "Review", Start: at(14, 0), End: at(15, 0)})
		if err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
		if entry.ID != "id-1" || entry.Calendar != "Bob" {
			t.Fatalf("unexpected entry %+v", entry)
		}
		if svc.LiveSchedule(ctx).FindEntry(entry.ID) == nil || svc.SnapshotSchedule(ctx).FindEntry(entry.ID) == nil {
			t.Fatal("entry must be present on both schedules")
		}
		table, _ := svc.Conflicts(ctx)
		if len(table.Rows) != 2 {
			t.Fatalf("expected both entries flagged, got %d", len(table.Rows))
		}

		if err := svc.RemoveEntry(ctx, entry.ID); err != nil {
			t.Fatalf("RemoveEntry: %v", err)
		}
		if err := svc.RemoveEntry(ctx, entry.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestConflictService_ImportEntries(t *testing.T) {
	svc := NewConflictService(Repositories{}, sequence("gen"), nil)
	ctx := context.Background()
	entries := []calendar.Entry{
		{ID: "uid-1", Title: "Night", Start: at(22, 0), End: at(23, 0)},
		{Title: "Morning", Start: at(6, 0), End: at(7, 0)},
	}

	added, err := svc.ImportEntries(ctx, "Dana", entries)
	if err != nil {
		t.Fatalf("ImportEntries: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 entries added, got %d", added)
	}

	added, err = svc.ImportEntries(ctx, "Dana", entries[:1])
	if err != nil {
		t.Fatalf("ImportEntries: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected re-import to skip existing ids, got %d", added)
	}

	cal := svc.LiveSchedule(ctx).Calendar("Dana")
	if cal == nil || len(cal.Entries) != 2 {
		t.Fatalf("expected calendar with 2 entries, got %+v", cal)
	}

	if _, err := svc.ImportEntries(ctx, " ", entries); err == nil {
		t.Fatal("expected validation error for blank calendar")
	}
}
