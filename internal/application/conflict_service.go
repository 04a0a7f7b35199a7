package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/scheduler"
)

// RuleRepository loads and stores the full rule list.
type RuleRepository interface {
	ListRules(ctx context.Context) ([]scheduler.Rule, error)
	ReplaceRules(ctx context.Context, rules []scheduler.Rule) error
}

// ProfileRepository loads and stores the full profile list.
type ProfileRepository interface {
	ListProfiles(ctx context.Context) ([]scheduler.Profile, error)
	ReplaceProfiles(ctx context.Context, profiles []scheduler.Profile) error
}

// CalendarRepository loads and stores the live schedule.
type CalendarRepository interface {
	LoadSchedule(ctx context.Context) (*calendar.Schedule, error)
	SaveSchedule(ctx context.Context, schedule *calendar.Schedule) error
}

// Repositories groups the stores the service persists to. Nil members are skipped.
type Repositories struct {
	Rules     RuleRepository
	Profiles  ProfileRepository
	Calendars CalendarRepository
}

// MetricsRecorder receives counters about scans and resolution passes.
type MetricsRecorder interface {
	ScanCompleted(conflicts int, elapsed time.Duration)
	ResolveCompleted(adjusted, resolved, remaining int, elapsed time.Duration)
	SnapshotApplied()
	ConflictsTracked(conflicts int)
}

type noopMetrics struct{}

func (noopMetrics) ScanCompleted(int, time.Duration)              {}
func (noopMetrics) ResolveCompleted(int, int, int, time.Duration) {}
func (noopMetrics) SnapshotApplied()                              {}
func (noopMetrics) ConflictsTracked(int)                          {}

// ServiceOption customises a ConflictService.
type ServiceOption func(*ConflictService)

// WithTimeZone sets the location of the working-day windows used by the resolver.
func WithTimeZone(loc *time.Location) ServiceOption {
	return func(s *ConflictService) {
		s.location = loc
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(recorder MetricsRecorder) ServiceOption {
	return func(s *ConflictService) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

type collection string

const (
	collectionRules     collection = "rules"
	collectionProfiles  collection = "profiles"
	collectionCalendars collection = "calendars"
)

// ConflictService owns the live schedule, its snapshot, the rules and the
// profiles, and serialises every operation on them behind one mutex.
type ConflictService struct {
	mu       sync.Mutex
	tracker  *scheduler.Tracker
	profiles []scheduler.Profile
	state    State
	// unreadable marks stored collections the last Load could not read.
	unreadable map[collection]bool

	repos       Repositories
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	metrics     MetricsRecorder
	logger      *slog.Logger
}

// NewConflictService constructs a service with an empty schedule installed.
func NewConflictService(repos Repositories, idGenerator func() string, now func() time.Time, opts ...ServiceOption) *ConflictService {
	return NewConflictServiceWithLogger(repos, idGenerator, now, nil, opts...)
}

// NewConflictServiceWithLogger constructs a service with a specified logger.
func NewConflictServiceWithLogger(repos Repositories, idGenerator func() string, now func() time.Time, logger *slog.Logger, opts ...ServiceOption) *ConflictService {
	if now == nil {
		now = time.Now
	}
	s := &ConflictService{
		repos:       repos,
		idGenerator: idGenerator,
		now:         now,
		metrics:     noopMetrics{},
		logger:      defaultLogger(logger),
		state:       StateUnscanned,
	}
	for _, opt := range opts {
		opt(s)
	}

	var trackerOpts []scheduler.Option
	if s.location != nil {
		trackerOpts = append(trackerOpts, scheduler.WithLocation(s.location))
	}
	s.tracker = scheduler.NewTracker(nil, nil, trackerOpts...)
	s.tracker.Install(calendar.NewSchedule())
	return s
}

func (s *ConflictService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ConflictService", operation, attrs...)
}

func (s *ConflictService) newID(fallback func() string) string {
	if s.idGenerator != nil {
		if id := s.idGenerator(); id != "" {
			return id
		}
	}
	return fallback()
}

// Load replaces rules, profiles and the live schedule with the repository
// contents and scans the fresh snapshot. Each collection is read on its own:
// one that cannot be read is installed empty, reported in the returned error
// and left untouched by Save until it is repaired.
func (s *ConflictService) Load(ctx context.Context) (result ScanResult, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Load")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load part of the schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conflicts", result.Conflicts, "state", result.State).InfoContext(ctx, "schedule loaded")
	}()

	var (
		rules      []scheduler.Rule
		profiles   []scheduler.Profile
		schedule   = calendar.NewSchedule()
		unreadable = make(map[collection]bool)
		errs       []error
	)
	fail := func(name collection, loadErr error) {
		unreadable[name] = true
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrStoreUnreadable, name, mapRepoError(loadErr)))
	}

	if s.repos.Rules != nil {
		loaded, loadErr := s.repos.Rules.ListRules(ctx)
		if loadErr != nil {
			fail(collectionRules, loadErr)
		} else {
			rules = loaded
		}
	}
	if s.repos.Profiles != nil {
		loaded, loadErr := s.repos.Profiles.ListProfiles(ctx)
		if loadErr != nil {
			fail(collectionProfiles, loadErr)
		} else {
			profiles = loaded
		}
	}
	if s.repos.Calendars != nil {
		loaded, loadErr := s.repos.Calendars.LoadSchedule(ctx)
		if loadErr != nil {
			fail(collectionCalendars, loadErr)
		} else if loaded != nil {
			schedule = loaded
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unreadable = unreadable
	s.profiles = append([]scheduler.Profile(nil), profiles...)
	s.tracker.SetRules(rules)
	s.tracker.SetProfiles(s.profiles)
	s.tracker.Install(schedule)
	result = s.scanLocked()
	logger = logger.With("rules", len(rules), "profiles", len(profiles), "calendars", len(schedule.Calendars))
	err = errors.Join(errs...)
	return
}

// Save persists rules, profiles and the live schedule. Uncommitted snapshot
// edits are not saved.
func (s *ConflictService) Save(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("ConflictService is nil")
	}

	logger := s.loggerWith(ctx, "Save")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule saved")
	}()

	s.mu.Lock()
	rules := s.tracker.Rules()
	profiles := append([]scheduler.Profile(nil), s.profiles...)
	live := calendar.Copy(s.tracker.Live())
	unreadable := s.unreadable
	s.mu.Unlock()

	// A collection that could not be read is only ever kept as stored. Once
	// it holds data again, saving would replace records nobody has seen.
	changed := map[collection]bool{
		collectionRules:     len(rules) > 0,
		collectionProfiles:  len(profiles) > 0,
		collectionCalendars: len(live.Calendars) > 0,
	}
	var blocked []string
	for _, name := range []collection{collectionRules, collectionProfiles, collectionCalendars} {
		if unreadable[name] && changed[name] {
			blocked = append(blocked, string(name))
		}
	}
	if len(blocked) > 0 {
		err = fmt.Errorf("%w: %s changed after failing to load; repair or remove the stored data and retry", ErrStoreUnreadable, strings.Join(blocked, ", "))
		return
	}
	for name := range unreadable {
		logger.WarnContext(ctx, "keeping unreadable stored collection", "collection", string(name))
	}

	if s.repos.Rules != nil && !unreadable[collectionRules] {
		if err = s.repos.Rules.ReplaceRules(ctx, rules); err != nil {
			err = mapRepoError(err)
			return
		}
	}
	if s.repos.Profiles != nil && !unreadable[collectionProfiles] {
		if err = s.repos.Profiles.ReplaceProfiles(ctx, profiles); err != nil {
			err = mapRepoError(err)
			return
		}
	}
	if s.repos.Calendars != nil && !unreadable[collectionCalendars] {
		if err = s.repos.Calendars.SaveSchedule(ctx, live); err != nil {
			err = mapRepoError(err)
			return
		}
	}
	return
}

// Scan discards the conflict state and checks every snapshot entry again.
func (s *ConflictService) Scan(ctx context.Context) (ScanResult, error) {
	if s == nil {
		return ScanResult{}, fmt.Errorf("ConflictService is nil")
	}

	s.mu.Lock()
	result := s.scanLocked()
	s.mu.Unlock()

	s.loggerWith(ctx, "Scan").InfoContext(ctx, "snapshot scanned", "conflicts", result.Conflicts, "state", result.State)
	return result, nil
}

func (s *ConflictService) scanLocked() ScanResult {
	start := s.now()
	conflicts := s.tracker.ScanAll()
	s.state = stateFor(conflicts)
	s.metrics.ScanCompleted(conflicts, s.now().Sub(start))
	return ScanResult{State: s.state, Conflicts: conflicts}
}

func stateFor(conflicts int) State {
	if conflicts == 0 {
		return StateClean
	}
	return StateConflicted
}

// Resolve runs one resolution pass over the snapshot. A snapshot that was
// never scanned is scanned first.
func (s *ConflictService) Resolve(ctx context.Context) (report ResolveReport, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	s.mu.Lock()
	if s.state == StateUnscanned {
		s.scanLocked()
	}
	start := s.now()
	results := s.tracker.ResolvePass()
	remaining := s.tracker.Len()
	s.state = stateFor(remaining)
	elapsed := s.now().Sub(start)
	s.mu.Unlock()

	report = ResolveReport{State: stateFor(remaining), Results: results, Remaining: remaining}
	for _, result := range results {
		if result.Adjusted {
			report.Adjusted++
		}
		if result.Resolved {
			report.Resolved++
		}
	}
	s.metrics.ResolveCompleted(report.Adjusted, report.Resolved, report.Remaining, elapsed)

	s.loggerWith(ctx, "Resolve").InfoContext(ctx, "resolution pass finished",
		"attempted", len(results),
		"adjusted", report.Adjusted,
		"resolved", report.Resolved,
		"remaining", report.Remaining,
	)
	return
}

// ApplySnapshot commits the snapshot to the live schedule.
func (s *ConflictService) ApplySnapshot(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("ConflictService is nil")
	}

	s.mu.Lock()
	s.tracker.ApplySnapshot()
	s.metrics.ConflictsTracked(s.tracker.Len())
	s.mu.Unlock()

	s.metrics.SnapshotApplied()
	s.loggerWith(ctx, "ApplySnapshot").InfoContext(ctx, "snapshot applied to live schedule")
	return nil
}

// ResetSnapshot discards snapshot edits. The conflict state is cleared until
// the next scan.
func (s *ConflictService) ResetSnapshot(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("ConflictService is nil")
	}

	s.mu.Lock()
	s.tracker.ResetSnapshot()
	s.state = StateUnscanned
	s.metrics.ConflictsTracked(s.tracker.Len())
	s.mu.Unlock()

	s.loggerWith(ctx, "ResetSnapshot").InfoContext(ctx, "snapshot reset from live schedule")
	return nil
}

// RefreshWorkingHours recomputes every profile's working hours from the
// snapshot. Conflicts are not re-evaluated until the next scan.
func (s *ConflictService) RefreshWorkingHours(ctx context.Context) ([]scheduler.Profile, error) {
	if s == nil {
		return nil, fmt.Errorf("ConflictService is nil")
	}

	s.mu.Lock()
	s.profiles = scheduler.RefreshWorkingHours(s.profiles, s.tracker.Snapshot())
	s.tracker.SetProfiles(s.profiles)
	profiles := append([]scheduler.Profile(nil), s.profiles...)
	s.mu.Unlock()

	s.loggerWith(ctx, "RefreshWorkingHours").InfoContext(ctx, "working hours refreshed", "profiles", len(profiles))
	return profiles, nil
}

// Conflicts returns the conflict table for the current snapshot.
func (s *ConflictService) Conflicts(ctx context.Context) (ConflictTable, error) {
	if s == nil {
		return ConflictTable{}, fmt.Errorf("ConflictService is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conflicts := s.tracker.Conflicts()
	table := ConflictTable{State: s.state, Rows: make([]ConflictRow, 0, len(conflicts))}
	for _, conflict := range conflicts {
		entry := conflict.Entry
		table.Rows = append(table.Rows, ConflictRow{
			EntryID:  conflict.EntryID,
			Calendar: entry.Calendar,
			Entry:    entry.Description(),
			Rule:     conflict.Rule.Description(),
			RuleID:   conflict.Rule.ID,
			Start:    entry.Start,
			End:      entry.End,
		})
	}
	return table, nil
}

// LiveSchedule returns a copy of the schedule of record.
func (s *ConflictService) LiveSchedule(ctx context.Context) *calendar.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calendar.Copy(s.tracker.Live())
}

// SnapshotSchedule returns a copy of the working snapshot.
func (s *ConflictService) SnapshotSchedule(ctx context.Context) *calendar.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calendar.Copy(s.tracker.Snapshot())
}

// State reports the conflict state after the last scan or pass.
func (s *ConflictService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}

func mapCalendarError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, calendar.ErrCalendarNotFound), errors.Is(err, calendar.ErrEntryNotFound):
		return ErrNotFound
	case errors.Is(err, calendar.ErrCalendarExists), errors.Is(err, calendar.ErrEntryExists):
		return ErrAlreadyExists
	case errors.Is(err, scheduler.ErrNoSchedule):
		return ErrNoSchedule
	case errors.Is(err, calendar.ErrInvalidInterval):
		vErr := &ValidationError{}
		vErr.add("end", "end must not be before start")
		return vErr
	}
	return err
}
