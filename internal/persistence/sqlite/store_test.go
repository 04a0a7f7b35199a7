package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/sqlite"
	"github.com/example/shift-scheduler/internal/scheduler"
	"github.com/example/shift-scheduler/internal/testfixtures"
)

func TestRuleRepository(t *testing.T) {
	t.Parallel()

	t.Run("replaces and lists rules in order", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		first := testfixtures.NewRuleFixture(testfixtures.WithRuleID("r-b"))
		second := testfixtures.NewRuleFixture(
			testfixtures.WithRuleID("r-a"),
			testfixtures.WithRuleCondition(scheduler.FieldWorkingHours, scheduler.OperatorGreater, "40"),
			testfixtures.WithRuleInactive(),
		)
		if err := harness.Rules.ReplaceRules(ctx, []persistence.Rule{first.Persistence(0), second.Persistence(1)}); err != nil {
			t.Fatalf("ReplaceRules failed: %v", err)
		}

		rules, err := harness.Rules.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(rules) != 2 || rules[0].ID != "r-b" || rules[1].ID != "r-a" {
			t.Fatalf("expected insertion order to survive, got %+v", rules)
		}
		if rules[1].Active || rules[1].Field != "working-hours" || rules[1].Value != "40" {
			t.Fatalf("unexpected second rule %+v", rules[1])
		}

		if err := harness.Rules.ReplaceRules(ctx, []persistence.Rule{second.Persistence(0)}); err != nil {
			t.Fatalf("second ReplaceRules failed: %v", err)
		}
		rules, err = harness.Rules.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(rules) != 1 || rules[0].ID != "r-a" {
			t.Fatalf("expected only r-a after replace, got %+v", rules)
		}
	})

	t.Run("rejects duplicate ids and keeps previous rules", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		kept := testfixtures.NewRuleFixture(testfixtures.WithRuleID("kept"))
		if err := harness.Rules.ReplaceRules(ctx, []persistence.Rule{kept.Persistence(0)}); err != nil {
			t.Fatalf("ReplaceRules failed: %v", err)
		}

		dup := testfixtures.NewRuleFixture(testfixtures.WithRuleID("dup"))
		err := harness.Rules.ReplaceRules(ctx, []persistence.Rule{dup.Persistence(0), dup.Persistence(1)})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}

		rules, err := harness.Rules.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(rules) != 1 || rules[0].ID != "kept" {
			t.Fatalf("expected rollback to keep previous rules, got %+v", rules)
		}
	})

	t.Run("rejects blank values", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		blank := testfixtures.NewRuleFixture(testfixtures.WithRuleCondition(scheduler.FieldEmail, scheduler.OperatorEquals, ""))
		err := harness.Rules.ReplaceRules(context.Background(), []persistence.Rule{blank.Persistence(0)})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})
}

func TestProfileRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	carol := testfixtures.NewProfileFixture(testfixtures.WithProfileName("Carol"), testfixtures.WithProfileWorkingHours(12))
	bob := testfixtures.NewProfileFixture(testfixtures.WithProfileName("Bob"), testfixtures.WithProfileJob("porter"))
	if err := harness.Profiles.ReplaceProfiles(ctx, []persistence.Profile{carol.Persistence(), bob.Persistence()}); err != nil {
		t.Fatalf("ReplaceProfiles failed: %v", err)
	}

	profiles, err := harness.Profiles.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(profiles) != 2 || profiles[0].Name != "Bob" || profiles[1].Name != "Carol" {
		t.Fatalf("expected profiles sorted by name, got %+v", profiles)
	}
	if profiles[0] != bob.Persistence() || profiles[1].WorkingHours != 12 {
		t.Fatalf("unexpected profile data %+v", profiles)
	}

	err = harness.Profiles.ReplaceProfiles(ctx, []persistence.Profile{bob.Persistence(), bob.Persistence()})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCalendarRepository(t *testing.T) {
	t.Parallel()

	t.Run("round trips calendars and entries", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		tokyo := time.FixedZone("JST", 9*60*60)
		late := testfixtures.NewEntryFixture(
			testfixtures.WithEntryID("b2"),
			testfixtures.WithEntryInterval(testfixtures.At(15, 0), testfixtures.At(17, 30)),
			testfixtures.WithEntryLocation("Ward 3"),
		)
		early := testfixtures.NewEntryFixture(
			testfixtures.WithEntryID("b1"),
			testfixtures.WithEntryInterval(testfixtures.At(8, 0).In(tokyo), testfixtures.At(9, 0).In(tokyo)),
		)
		calendars := []persistence.Calendar{
			{Name: "Carol"},
			{Name: "Bob", Entries: []persistence.Entry{late.Persistence(), early.Persistence()}},
		}
		if err := harness.Calendars.ReplaceCalendars(ctx, calendars); err != nil {
			t.Fatalf("ReplaceCalendars failed: %v", err)
		}

		loaded, err := harness.Calendars.ListCalendars(ctx)
		if err != nil {
			t.Fatalf("ListCalendars failed: %v", err)
		}
		if len(loaded) != 2 || loaded[0].Name != "Carol" || loaded[1].Name != "Bob" {
			t.Fatalf("expected calendar order to survive, got %+v", loaded)
		}
		if len(loaded[0].Entries) != 0 {
			t.Fatalf("expected Carol to have no entries, got %+v", loaded[0].Entries)
		}
		entries := loaded[1].Entries
		if len(entries) != 2 || entries[0].ID != "b2" || entries[1].ID != "b1" {
			t.Fatalf("expected entry order to survive, got %+v", entries)
		}
		if entries[0].Location != "Ward 3" || !entries[0].End.Equal(testfixtures.At(17, 30)) {
			t.Fatalf("unexpected first entry %+v", entries[0])
		}
		if !entries[1].Start.Equal(testfixtures.At(8, 0)) {
			t.Fatalf("expected instant to be preserved across zones, got %v", entries[1].Start)
		}
	})

	t.Run("keeps sub-second instants", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		start := testfixtures.At(9, 0).Add(250 * time.Millisecond)
		end := testfixtures.At(9, 30).Add(time.Nanosecond)
		entry := testfixtures.NewEntryFixture(
			testfixtures.WithEntryID("precise"),
			testfixtures.WithEntryInterval(start, end),
		)
		if err := harness.Calendars.ReplaceCalendars(ctx, []persistence.Calendar{{Name: "Bob", Entries: []persistence.Entry{entry.Persistence()}}}); err != nil {
			t.Fatalf("ReplaceCalendars failed: %v", err)
		}

		loaded, err := harness.Calendars.ListCalendars(ctx)
		if err != nil {
			t.Fatalf("ListCalendars failed: %v", err)
		}
		got := loaded[0].Entries[0]
		if !got.Start.Equal(start) || !got.End.Equal(end) {
			t.Fatalf("expected %v-%v, got %v-%v", start, end, got.Start, got.End)
		}
	})

	t.Run("replacing drops removed calendars with their entries", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		entry := testfixtures.NewEntryFixture(testfixtures.WithEntryID("gone"))
		if err := harness.Calendars.ReplaceCalendars(ctx, []persistence.Calendar{{Name: "Bob", Entries: []persistence.Entry{entry.Persistence()}}}); err != nil {
			t.Fatalf("ReplaceCalendars failed: %v", err)
		}
		if err := harness.Calendars.ReplaceCalendars(ctx, []persistence.Calendar{{Name: "Carol", Entries: []persistence.Entry{entry.Persistence()}}}); err != nil {
			t.Fatalf("second ReplaceCalendars failed: %v", err)
		}

		loaded, err := harness.Calendars.ListCalendars(ctx)
		if err != nil {
			t.Fatalf("ListCalendars failed: %v", err)
		}
		if len(loaded) != 1 || loaded[0].Name != "Carol" || len(loaded[0].Entries) != 1 {
			t.Fatalf("unexpected calendars %+v", loaded)
		}
	})

	t.Run("rejects inverted intervals and duplicate entry ids", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		inverted := testfixtures.NewEntryFixture(testfixtures.WithEntryInterval(testfixtures.At(12, 0), testfixtures.At(11, 0)))
		err := harness.Calendars.ReplaceCalendars(ctx, []persistence.Calendar{{Name: "Bob", Entries: []persistence.Entry{inverted.Persistence()}}})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}

		dup := testfixtures.NewEntryFixture(testfixtures.WithEntryID("dup")).Persistence()
		err = harness.Calendars.ReplaceCalendars(ctx, []persistence.Calendar{
			{Name: "Bob", Entries: []persistence.Entry{dup}},
			{Name: "Carol", Entries: []persistence.Entry{dup}},
		})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestStoreMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scheduler.db")

	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 2; i++ {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("Migrate #%d failed: %v", i+1, err)
		}
	}

	rules, err := store.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected empty rules, got %+v", rules)
	}
}

func TestStoreMigrationStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "scheduler.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	before, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if before.CurrentVersion != "" || len(before.Applied) != 0 || len(before.Pending) != 1 || before.Pending[0].Version != "001" {
		t.Fatalf("expected 001 pending on a fresh database, got %+v", before)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	after, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if after.CurrentVersion != "001" || len(after.Applied) != 1 || len(after.Pending) != 0 {
		t.Fatalf("expected 001 applied, got %+v", after)
	}
}
