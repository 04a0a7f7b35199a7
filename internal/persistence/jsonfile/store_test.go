package jsonfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/jsonfile"
	"github.com/example/shift-scheduler/internal/testfixtures"
)

func openStore(t *testing.T) (*jsonfile.Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	store, err := jsonfile.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store, dir
}

func TestMissingFilesYieldEmptyLists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := openStore(t)

	rules, err := store.ListRules(ctx)
	if err != nil || len(rules) != 0 {
		t.Fatalf("expected no rules, got %v, %v", rules, err)
	}
	profiles, err := store.ListProfiles(ctx)
	if err != nil || len(profiles) != 0 {
		t.Fatalf("expected no profiles, got %v, %v", profiles, err)
	}
	calendars, err := store.ListCalendars(ctx)
	if err != nil || len(calendars) != 0 {
		t.Fatalf("expected no calendars, got %v, %v", calendars, err)
	}
}

func TestStoreWritesOneFilePerType(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, dir := openStore(t)

	rule := testfixtures.NewRuleFixture(testfixtures.WithRuleID("r1"))
	if err := store.ReplaceRules(ctx, []persistence.Rule{rule.Persistence(7)}); err != nil {
		t.Fatalf("ReplaceRules failed: %v", err)
	}
	profile := testfixtures.NewProfileFixture(testfixtures.WithProfileName("Bob"))
	if err := store.ReplaceProfiles(ctx, []persistence.Profile{profile.Persistence()}); err != nil {
		t.Fatalf("ReplaceProfiles failed: %v", err)
	}
	entry := testfixtures.NewEntryFixture(testfixtures.WithEntryID("b1"))
	if err := store.ReplaceCalendars(ctx, []persistence.Calendar{{Name: "Bob", Entries: []persistence.Entry{entry.Persistence()}}}); err != nil {
		t.Fatalf("ReplaceCalendars failed: %v", err)
	}

	for _, name := range []string{"Rule.json", "Profile.json", "Calendar.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}

	reopened, err := jsonfile.Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	rules, err := reopened.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "r1" || rules[0].Position != 0 {
		t.Fatalf("unexpected rules %+v", rules)
	}
	calendars, err := reopened.ListCalendars(ctx)
	if err != nil {
		t.Fatalf("ListCalendars failed: %v", err)
	}
	if len(calendars) != 1 || len(calendars[0].Entries) != 1 || !calendars[0].Entries[0].Start.Equal(entry.Start) {
		t.Fatalf("unexpected calendars %+v", calendars)
	}
}

func TestStoreRejectsInvalidRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := openStore(t)
	bob := testfixtures.NewProfileFixture(testfixtures.WithProfileName("Bob")).Persistence()
	dupEntry := testfixtures.NewEntryFixture(testfixtures.WithEntryID("dup")).Persistence()

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "duplicate rule id",
			run: func() error {
				rule := testfixtures.NewRuleFixture(testfixtures.WithRuleID("same"))
				return store.ReplaceRules(ctx, []persistence.Rule{rule.Persistence(0), rule.Persistence(1)})
			},
			wantErr: persistence.ErrDuplicate,
		},
		{
			name: "blank rule value",
			run: func() error {
				return store.ReplaceRules(ctx, []persistence.Rule{{ID: "x", Field: "email", Operator: "equals"}})
			},
			wantErr: persistence.ErrConstraintViolation,
		},
		{
			name: "duplicate profile",
			run: func() error {
				return store.ReplaceProfiles(ctx, []persistence.Profile{bob, bob})
			},
			wantErr: persistence.ErrDuplicate,
		},
		{
			name: "duplicate entry across calendars",
			run: func() error {
				return store.ReplaceCalendars(ctx, []persistence.Calendar{
					{Name: "Bob", Entries: []persistence.Entry{dupEntry}},
					{Name: "Carol", Entries: []persistence.Entry{dupEntry}},
				})
			},
			wantErr: persistence.ErrDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
