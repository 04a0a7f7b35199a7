package persistence

import "context"

// RuleRepository stores the ordered rule list as a whole.
type RuleRepository interface {
	ListRules(ctx context.Context) ([]Rule, error)
	ReplaceRules(ctx context.Context, rules []Rule) error
}

// ProfileRepository stores the profile list as a whole.
type ProfileRepository interface {
	ListProfiles(ctx context.Context) ([]Profile, error)
	ReplaceProfiles(ctx context.Context, profiles []Profile) error
}

// CalendarRepository stores every calendar and its entries as a whole.
type CalendarRepository interface {
	ListCalendars(ctx context.Context) ([]Calendar, error)
	ReplaceCalendars(ctx context.Context, calendars []Calendar) error
}

// Store bundles the repositories of one backend.
type Store interface {
	RuleRepository
	ProfileRepository
	CalendarRepository
	Close() error
}
