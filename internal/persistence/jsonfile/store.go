// Package jsonfile stores rules, profiles and calendars as JSON documents,
// one file per record type (data/Rule.json, data/Profile.json,
// data/Calendar.json).
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/example/shift-scheduler/internal/persistence"
)

const (
	ruleFile     = "Rule.json"
	profileFile  = "Profile.json"
	calendarFile = "Calendar.json"
)

// Store is a persistence.Store backed by JSON files in one directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

var _ persistence.Store = (*Store)(nil)

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op; every write is flushed when it returns.
func (s *Store) Close() error {
	return nil
}

// ListRules returns the stored rules in saved order.
func (s *Store) ListRules(ctx context.Context) ([]persistence.Rule, error) {
	var rules []persistence.Rule
	if err := s.load(ctx, ruleFile, &rules); err != nil {
		return nil, err
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Position < rules[j].Position })
	return rules, nil
}

// ReplaceRules overwrites Rule.json. The slice order becomes the stored position.
func (s *Store) ReplaceRules(ctx context.Context, rules []persistence.Rule) error {
	seen := make(map[string]bool, len(rules))
	out := make([]persistence.Rule, len(rules))
	for i, rule := range rules {
		if rule.ID == "" || rule.Value == "" {
			return fmt.Errorf("%w: rule %d needs an id and a value", persistence.ErrConstraintViolation, i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("%w: rule %s", persistence.ErrDuplicate, rule.ID)
		}
		seen[rule.ID] = true
		rule.Position = i
		out[i] = rule
	}
	return s.save(ctx, ruleFile, out)
}

// ListProfiles returns the stored profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]persistence.Profile, error) {
	var profiles []persistence.Profile
	if err := s.load(ctx, profileFile, &profiles); err != nil {
		return nil, err
	}
	sort.SliceStable(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// ReplaceProfiles overwrites Profile.json.
func (s *Store) ReplaceProfiles(ctx context.Context, profiles []persistence.Profile) error {
	seen := make(map[string]bool, len(profiles))
	for _, profile := range profiles {
		if profile.Name == "" || profile.Age < 0 {
			return fmt.Errorf("%w: profile %q", persistence.ErrConstraintViolation, profile.Name)
		}
		if seen[profile.Name] {
			return fmt.Errorf("%w: profile %s", persistence.ErrDuplicate, profile.Name)
		}
		seen[profile.Name] = true
	}
	if profiles == nil {
		profiles = []persistence.Profile{}
	}
	return s.save(ctx, profileFile, profiles)
}

// ListCalendars returns the stored calendars in saved order.
func (s *Store) ListCalendars(ctx context.Context) ([]persistence.Calendar, error) {
	var calendars []persistence.Calendar
	if err := s.load(ctx, calendarFile, &calendars); err != nil {
		return nil, err
	}
	return calendars, nil
}

// ReplaceCalendars overwrites Calendar.json. Calendar names and entry ids must
// be unique.
func (s *Store) ReplaceCalendars(ctx context.Context, calendars []persistence.Calendar) error {
	names := make(map[string]bool, len(calendars))
	ids := make(map[string]bool)
	for _, cal := range calendars {
		if cal.Name == "" {
			return fmt.Errorf("%w: calendar without a name", persistence.ErrConstraintViolation)
		}
		if names[cal.Name] {
			return fmt.Errorf("%w: calendar %s", persistence.ErrDuplicate, cal.Name)
		}
		names[cal.Name] = true
		for _, entry := range cal.Entries {
			if ids[entry.ID] {
				return fmt.Errorf("%w: entry %s", persistence.ErrDuplicate, entry.ID)
			}
			if entry.End.Before(entry.Start) {
				return fmt.Errorf("%w: entry %s ends before it starts", persistence.ErrConstraintViolation, entry.ID)
			}
			ids[entry.ID] = true
		}
	}
	if calendars == nil {
		calendars = []persistence.Calendar{}
	}
	return s.save(ctx, calendarFile, calendars)
}

// load decodes name into out. A missing file leaves out untouched.
func (s *Store) load(ctx context.Context, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jsonfile: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("jsonfile: decode %s: %w", name, err)
	}
	return nil
}

// save writes value to a temporary file and renames it over name.
func (s *Store) save(ctx context.Context, name string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("jsonfile: replace %s: %w", name, err)
	}
	return nil
}
