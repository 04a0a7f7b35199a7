package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/config"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/jsonfile"
	"github.com/example/shift-scheduler/internal/scheduler"
	"github.com/example/shift-scheduler/internal/testfixtures"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

const rosterICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//shift-scheduler//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:early\r\n" +
	"SUMMARY:Ward round\r\n" +
	"DTSTART:20250303T100000Z\r\n" +
	"DTEND:20250303T150000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:late\r\n" +
	"SUMMARY:Handover\r\n" +
	"DTSTART:20250304T100000Z\r\n" +
	"DTEND:20250304T120000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

// isolateEnv keeps the developer's configuration out of the command tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCHEDULER_CONFIG_FILE",
		"SCHEDULER_HTTP_PORT",
		"SCHEDULER_STORE",
		"SCHEDULER_SQLITE_DSN",
		"SCHEDULER_DATA_DIR",
		"SCHEDULER_API_KEY_HASH",
		"SCHEDULER_REFRESH_CRON",
		"SCHEDULER_LOG_LEVEL",
		"SCHEDULER_TIMEZONE",
		"SCHEDULER_ICS_HORIZON_DAYS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func runCommand(t *testing.T, dataDir, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--store", "json", "--data-dir", dataDir, "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, dataDir, stdin string, args ...string) string {
	t.Helper()
	out, err := runCommand(t, dataDir, stdin, args...)
	if err != nil {
		t.Fatalf("scheduler %s: %v", strings.Join(args, " "), err)
	}
	return out
}

type resolveOutput struct {
	Passes  []passJSON `json:"passes"`
	Applied bool       `json:"applied"`
	Table   tableJSON  `json:"table"`
}

func TestConflictWorkflow(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	mustRun(t, dir, "", "profiles", "add", "Bob", "--job", "porter")
	mustRun(t, dir, "", "rules", "add", "working-hours", "greater", "5")

	out := mustRun(t, dir, rosterICS, "import-ics", "-", "--calendar", "Bob", "--from", "2025-03-01", "--days", "31")
	if !strings.Contains(out, "2 entries imported into Bob") {
		t.Fatalf("unexpected import output %q", out)
	}
	out = mustRun(t, dir, rosterICS, "import-ics", "-", "--calendar", "Bob", "--from", "2025-03-01")
	if !strings.Contains(out, "0 entries imported") || !strings.Contains(out, "2 already present") {
		t.Fatalf("expected a repeated import to skip known entries, got %q", out)
	}

	mustRun(t, dir, "", "profiles", "refresh")

	var scan tableJSON
	out = mustRun(t, dir, "", "--json", "scan")
	if err := json.Unmarshal([]byte(out), &scan); err != nil {
		t.Fatalf("decode scan output: %v\n%s", err, out)
	}
	if scan.State != application.StateConflicted || len(scan.Conflicts) != 2 {
		t.Fatalf("expected two conflicted entries, got %+v", scan)
	}
	if scan.Conflicts[0].Rule != "working-hours greater 5" {
		t.Errorf("unexpected rule description %q", scan.Conflicts[0].Rule)
	}

	var resolved resolveOutput
	out = mustRun(t, dir, "", "--json", "resolve", "--passes", "3", "--refresh", "--apply")
	if err := json.Unmarshal([]byte(out), &resolved); err != nil {
		t.Fatalf("decode resolve output: %v\n%s", err, out)
	}
	if len(resolved.Passes) != 2 {
		t.Fatalf("expected the loop to stop after the clean pass, got %+v", resolved.Passes)
	}
	first := resolved.Passes[0]
	if first.Adjusted != 2 || first.Resolved != 0 || first.Results[0].Strategy != "narrow" {
		t.Fatalf("unexpected first pass %+v", first)
	}
	if resolved.Passes[1].State != application.StateClean || !resolved.Applied || resolved.Table.State != application.StateClean {
		t.Fatalf("expected a clean applied schedule, got %+v", resolved)
	}

	out = mustRun(t, dir, "", "scan")
	if !strings.Contains(out, "no conflicts") {
		t.Fatalf("expected the applied schedule to stay clean, got %q", out)
	}

	var profiles []persistence.Profile
	out = mustRun(t, dir, "", "--json", "profiles", "list")
	if err := json.Unmarshal([]byte(out), &profiles); err != nil {
		t.Fatalf("decode profiles output: %v\n%s", err, out)
	}
	if len(profiles) != 1 || profiles[0].WorkingHours != 5 || profiles[0].Job != "porter" {
		t.Fatalf("expected Bob with 5 working hours, got %+v", profiles)
	}
}

func TestRulesCommands(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	mustRun(t, dir, "", "rules", "add", "NAME", "equals", "Bob")
	mustRun(t, dir, "", "rules", "add", "job", "not-equals", "night", "--inactive")

	var rules []persistence.Rule
	out := mustRun(t, dir, "", "--json", "rules", "list")
	if err := json.Unmarshal([]byte(out), &rules); err != nil {
		t.Fatalf("decode rules output: %v\n%s", err, out)
	}
	if len(rules) != 2 || rules[0].Field != "owner-name" || rules[1].Active {
		t.Fatalf("unexpected rules %+v", rules)
	}

	mustRun(t, dir, "", "rules", "toggle", rules[1].ID)
	mustRun(t, dir, "", "rules", "duplicate", rules[0].ID)
	mustRun(t, dir, "", "rules", "rm", rules[0].ID)

	exported := mustRun(t, dir, "", "rules", "export")
	if !strings.Contains(exported, "field: job-title") || strings.Count(exported, "- id:") != 2 {
		t.Fatalf("unexpected export %q", exported)
	}

	other := t.TempDir()
	file := filepath.Join(other, "rules.yaml")
	if err := os.WriteFile(file, []byte(exported), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	out = mustRun(t, other, "", "rules", "import", file)
	if !strings.Contains(out, "2 rules imported") {
		t.Fatalf("unexpected import output %q", out)
	}

	listed := mustRun(t, other, "", "rules", "list")
	if !strings.Contains(listed, "job-title not-equals night") || !strings.Contains(listed, "owner-name equals Bob") {
		t.Fatalf("expected imported rules in the listing, got %q", listed)
	}
}

func TestUnreadableCollectionIsKept(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	mustRun(t, dir, rosterICS, "import-ics", "-", "--calendar", "Bob", "--from", "2025-03-01")
	mustRun(t, dir, "", "profiles", "add", "Bob", "--job", "porter")

	corrupt := []byte("{not json")
	rulesPath := filepath.Join(dir, "Rule.json")
	if err := os.WriteFile(rulesPath, corrupt, 0o644); err != nil {
		t.Fatalf("corrupt rules: %v", err)
	}

	_, err := runCommand(t, dir, "", "rules", "add", "owner-name", "equals", "Alice")
	if err == nil || !strings.Contains(err.Error(), "changed after failing to load") {
		t.Fatalf("expected the save to be refused, got %v", err)
	}

	mustRun(t, dir, "", "profiles", "add", "Carol")

	if got, err := os.ReadFile(rulesPath); err != nil || !bytes.Equal(got, corrupt) {
		t.Fatalf("expected Rule.json to be left as stored, got %q (%v)", got, err)
	}
	store, err := jsonfile.Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	profiles, err := store.ListProfiles(context.Background())
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 2 || profiles[0].Name != "Bob" || profiles[0].Job != "porter" || profiles[1].Name != "Carol" {
		t.Fatalf("expected Bob and Carol to survive, got %+v", profiles)
	}
	calendars, err := store.ListCalendars(context.Background())
	if err != nil {
		t.Fatalf("ListCalendars: %v", err)
	}
	if len(calendars) != 2 || calendars[0].Name != "Bob" || len(calendars[0].Entries) != 2 {
		t.Fatalf("expected Bob's imported entries to survive, got %+v", calendars)
	}
}

func TestMigrateStatusCommand(t *testing.T) {
	isolateEnv(t)
	dsn := filepath.Join(t.TempDir(), "scheduler.db")

	var records []migrationRecord
	out := mustRun(t, t.TempDir(), "", "--store", "sqlite", "--dsn", dsn, "--json", "migrate", "status")
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode migrate output: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].Version != "001" || records[0].State != "pending" {
		t.Fatalf("expected 001 pending on a fresh database, got %+v", records)
	}

	mustRun(t, t.TempDir(), "", "--store", "sqlite", "--dsn", dsn, "rules", "list")

	out = mustRun(t, t.TempDir(), "", "--store", "sqlite", "--dsn", dsn, "migrate", "status")
	if !strings.Contains(out, "schema up to date at version 001") || !strings.Contains(out, "applied") {
		t.Fatalf("expected 001 applied after a command opened the store, got %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown field", []string{"rules", "add", "height", "equals", "2"}, "field"},
		{"missing rule", []string{"rules", "rm", "nope"}, "not found"},
		{"zero passes", []string{"resolve", "--passes", "0"}, "--passes"},
		{"bad from date", []string{"import-ics", "x.ics", "--calendar", "Bob", "--from", "March"}, "--from"},
		{"missing calendar flag", []string{"import-ics", "x.ics"}, "calendar"},
		{"unknown store", []string{"--store", "mongo", "scan"}, "unknown store"},
		{"migrations on the json store", []string{"migrate", "status"}, "sqlite store only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, dir, "", tt.args...)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestHashKeyCommand(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{name: "argument", args: []string{"hash-key", "s3cret"}},
		{name: "stdin", args: []string{"hash-key"}, stdin: "s3cret\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetIn(strings.NewReader(tt.stdin))
			root.SetArgs(tt.args)
			if err := root.Execute(); err != nil {
				t.Fatalf("hash-key: %v", err)
			}
			if err := application.VerifyAPIKey(strings.TrimSpace(out.String()), "s3cret"); err != nil {
				t.Fatalf("printed hash does not verify: %v", err)
			}
		})
	}
}

func TestServerHandlerRequiresAPIKey(t *testing.T) {
	hash, err := application.HashAPIKey("s3cret", application.DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}

	cfg := config.Config{
		Store:      config.StoreJSON,
		DataDir:    t.TempDir(),
		APIKeyHash: hash,
		TimeZone:   time.UTC,
		ICSHorizon: 30 * 24 * time.Hour,
	}
	env, err := setupWith(context.Background(), cfg, newLogger(io.Discard, cfg.LogLevel))
	if err != nil {
		t.Fatalf("setupWith: %v", err)
	}
	defer env.Close()

	handler, err := newServerHandler(env, nil)
	if err != nil {
		t.Fatalf("newServerHandler: %v", err)
	}

	tests := []struct {
		name string
		path string
		key  string
		want int
	}{
		{"health is public", "/health", "", http.StatusOK},
		{"rules need a key", "/rules", "", http.StatusUnauthorized},
		{"wrong key", "/rules", "guess", http.StatusUnauthorized},
		{"valid key", "/rules", "s3cret", http.StatusOK},
		{"metrics disabled", "/metrics", "s3cret", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	cfg.APIKeyHash = "not-a-hash"
	env.cfg = cfg
	if _, err := newServerHandler(env, nil); err == nil {
		t.Fatalf("expected a malformed hash to be rejected")
	}
}

func TestAdaptersRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	repos := newRepositories(store, newLogger(io.Discard, 0))

	stale := persistence.Rule{ID: "stale", Field: "height", Operator: "equals", Value: "2", Active: true}
	valid := testfixtures.NewRuleFixture(testfixtures.WithRuleID("valid"))
	if err := store.ReplaceRules(ctx, []persistence.Rule{stale, valid.Persistence(1)}); err != nil {
		t.Fatalf("ReplaceRules: %v", err)
	}
	rules, err := repos.Rules.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 1 || rules[0] != valid.Domain() {
		t.Fatalf("expected only the valid rule, got %+v", rules)
	}

	entry := testfixtures.NewEntryFixture(testfixtures.WithEntryID("e1"), testfixtures.WithEntryLocation("Ward 3"))
	schedule := testfixtures.NewSchedule(map[string][]testfixtures.EntryFixture{
		"Bob":   {entry},
		"Carol": nil,
	})
	if err := repos.Calendars.SaveSchedule(ctx, schedule); err != nil {
		t.Fatalf("SaveSchedule: %v", err)
	}
	loaded, err := repos.Calendars.LoadSchedule(ctx)
	if err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if names := loaded.CalendarNames(); len(names) != 2 || names[0] != "Bob" || names[1] != "Carol" {
		t.Fatalf("unexpected calendars %v", names)
	}
	got := loaded.FindEntry("e1")
	if got == nil || got.Calendar != "Bob" || got.Location != "Ward 3" || !got.Start.Equal(entry.Start) {
		t.Fatalf("unexpected entry %+v", got)
	}

	profile := testfixtures.NewProfileFixture(testfixtures.WithProfileName("Bob"), testfixtures.WithProfileWorkingHours(7))
	if err := repos.Profiles.ReplaceProfiles(ctx, []scheduler.Profile{profile.Domain()}); err != nil {
		t.Fatalf("ReplaceProfiles: %v", err)
	}
	profiles, err := repos.Profiles.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0] != profile.Domain() {
		t.Fatalf("unexpected profiles %+v", profiles)
	}
}
