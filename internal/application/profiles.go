package application

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/example/shift-scheduler/internal/scheduler"
)

// ListProfiles returns the profiles ordered by name.
func (s *ConflictService) ListProfiles(ctx context.Context) ([]scheduler.Profile, error) {
	if s == nil {
		return nil, fmt.Errorf("ConflictService is nil")
	}
	s.mu.Lock()
	profiles := append([]scheduler.Profile(nil), s.profiles...)
	s.mu.Unlock()

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

// CreateProfile adds a profile and an empty calendar named after it.
func (s *ConflictService) CreateProfile(ctx context.Context, input ProfileInput) (profile scheduler.Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateProfile")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("profile", profile.Name).InfoContext(ctx, "profile created")
	}()

	vErr := validateProfileInput(input)
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	profile = scheduler.Profile{
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.TrimSpace(input.Email),
		Job:            strings.TrimSpace(input.Job),
		PreferredShift: strings.TrimSpace(input.PreferredShift),
		Age:            input.Age,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOfProfile(s.profiles, profile.Name) >= 0 {
		err = ErrAlreadyExists
		return
	}
	if err = s.tracker.EnsureCalendar(profile.Name); err != nil {
		err = mapCalendarError(err)
		return
	}
	profile.WorkingHours = scheduler.WorkingHours(s.tracker.Snapshot().Calendar(profile.Name))
	s.profiles = append(s.profiles, profile)
	s.setProfilesLocked()
	return
}

// UpdateProfile replaces the mutable attributes of a profile. The name and
// the recorded working hours are kept.
func (s *ConflictService) UpdateProfile(ctx context.Context, name string, input ProfileInput) (profile scheduler.Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "profile", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	vErr := validateProfileInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOfProfile(s.profiles, name)
	if idx < 0 {
		err = ErrNotFound
		return
	}
	profile = s.profiles[idx]
	profile.Email = strings.TrimSpace(input.Email)
	profile.Job = strings.TrimSpace(input.Job)
	profile.PreferredShift = strings.TrimSpace(input.PreferredShift)
	profile.Age = input.Age
	s.profiles[idx] = profile
	s.setProfilesLocked()
	return
}

// DeleteProfile removes a profile. The owner's calendar and entries stay in
// place; rules on profile fields simply stop matching them.
func (s *ConflictService) DeleteProfile(ctx context.Context, name string) error {
	if s == nil {
		return fmt.Errorf("ConflictService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteProfile", "profile", name)

	s.mu.Lock()
	idx := indexOfProfile(s.profiles, name)
	if idx < 0 {
		s.mu.Unlock()
		logger.ErrorContext(ctx, "failed to delete profile", "error", ErrNotFound, "error_kind", ErrorKind(ErrNotFound))
		return ErrNotFound
	}
	s.profiles = append(s.profiles[:idx], s.profiles[idx+1:]...)
	s.setProfilesLocked()
	s.mu.Unlock()

	logger.InfoContext(ctx, "profile deleted")
	return nil
}

func (s *ConflictService) setProfilesLocked() {
	s.tracker.SetProfiles(s.profiles)
	s.scanLocked()
}

func indexOfProfile(profiles []scheduler.Profile, name string) int {
	for i, profile := range profiles {
		if profile.Name == name {
			return i
		}
	}
	return -1
}

func validateProfileInput(input ProfileInput) *ValidationError {
	vErr := &ValidationError{}

	if email := strings.TrimSpace(input.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			vErr.add("email", "email must be a valid address")
		}
	}
	if input.Age < 0 {
		vErr.add("age", "age must not be negative")
	}

	return vErr
}
