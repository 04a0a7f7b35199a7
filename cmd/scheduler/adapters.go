package main

import (
	"context"
	"log/slog"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/scheduler"
)

func newRepositories(store persistence.Store, logger *slog.Logger) application.Repositories {
	return application.Repositories{
		Rules:     &ruleRepositoryAdapter{repo: store, logger: logger},
		Profiles:  &profileRepositoryAdapter{repo: store},
		Calendars: &calendarRepositoryAdapter{repo: store, logger: logger},
	}
}

type ruleRepositoryAdapter struct {
	repo   persistence.RuleRepository
	logger *slog.Logger
}

// ListRules converts stored rules, skipping records whose field or operator
// is no longer understood.
func (a *ruleRepositoryAdapter) ListRules(ctx context.Context) ([]scheduler.Rule, error) {
	models, err := a.repo.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	rules := make([]scheduler.Rule, 0, len(models))
	for _, model := range models {
		rule, err := toSchedulerRule(model)
		if err != nil {
			a.logger.WarnContext(ctx, "skipping stored rule", "rule_id", model.ID, "error", err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (a *ruleRepositoryAdapter) ReplaceRules(ctx context.Context, rules []scheduler.Rule) error {
	models := make([]persistence.Rule, 0, len(rules))
	for i, rule := range rules {
		models = append(models, toPersistenceRule(rule, i))
	}
	return a.repo.ReplaceRules(ctx, models)
}

type profileRepositoryAdapter struct {
	repo persistence.ProfileRepository
}

func (a *profileRepositoryAdapter) ListProfiles(ctx context.Context) ([]scheduler.Profile, error) {
	models, err := a.repo.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]scheduler.Profile, 0, len(models))
	for _, model := range models {
		profiles = append(profiles, toSchedulerProfile(model))
	}
	return profiles, nil
}

func (a *profileRepositoryAdapter) ReplaceProfiles(ctx context.Context, profiles []scheduler.Profile) error {
	models := make([]persistence.Profile, 0, len(profiles))
	for _, profile := range profiles {
		models = append(models, toPersistenceProfile(profile))
	}
	return a.repo.ReplaceProfiles(ctx, models)
}

type calendarRepositoryAdapter struct {
	repo   persistence.CalendarRepository
	logger *slog.Logger
}

// LoadSchedule rebuilds the schedule. Entries that cannot be added, such as
// a duplicated id, are logged and dropped.
func (a *calendarRepositoryAdapter) LoadSchedule(ctx context.Context) (*calendar.Schedule, error) {
	models, err := a.repo.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	schedule := calendar.NewSchedule()
	for _, model := range models {
		if _, err := schedule.EnsureCalendar(model.Name); err != nil {
			a.logger.WarnContext(ctx, "skipping stored calendar", "calendar", model.Name, "error", err)
			continue
		}
		for _, entry := range model.Entries {
			if _, err := schedule.AddEntry(model.Name, toCalendarEntry(model.Name, entry)); err != nil {
				a.logger.WarnContext(ctx, "skipping stored entry", "calendar", model.Name, "entry_id", entry.ID, "error", err)
			}
		}
	}
	return schedule, nil
}

func (a *calendarRepositoryAdapter) SaveSchedule(ctx context.Context, schedule *calendar.Schedule) error {
	var models []persistence.Calendar
	if schedule != nil {
		models = make([]persistence.Calendar, 0, len(schedule.Calendars))
		for _, cal := range schedule.Calendars {
			model := persistence.Calendar{Name: cal.Name, Entries: make([]persistence.Entry, 0, len(cal.Entries))}
			for _, entry := range cal.Entries {
				model.Entries = append(model.Entries, toPersistenceEntry(entry))
			}
			models = append(models, model)
		}
	}
	return a.repo.ReplaceCalendars(ctx, models)
}

func toSchedulerRule(model persistence.Rule) (scheduler.Rule, error) {
	field, err := scheduler.ParseField(model.Field)
	if err != nil {
		return scheduler.Rule{}, err
	}
	op, err := scheduler.ParseOperator(model.Operator)
	if err != nil {
		return scheduler.Rule{}, err
	}
	return scheduler.Rule{
		ID:       model.ID,
		Field:    field,
		Operator: op,
		Value:    model.Value,
		Active:   model.Active,
	}, nil
}

func toPersistenceRule(rule scheduler.Rule, position int) persistence.Rule {
	return persistence.Rule{
		ID:       rule.ID,
		Field:    string(rule.Field),
		Operator: string(rule.Operator),
		Value:    rule.Value,
		Active:   rule.Active,
		Position: position,
	}
}

func toSchedulerProfile(model persistence.Profile) scheduler.Profile {
	return scheduler.Profile{
		Name:           model.Name,
		WorkingHours:   model.WorkingHours,
		Email:          model.Email,
		Job:            model.Job,
		PreferredShift: model.PreferredShift,
		Age:            model.Age,
	}
}

func toPersistenceProfile(profile scheduler.Profile) persistence.Profile {
	return persistence.Profile{
		Name:           profile.Name,
		WorkingHours:   profile.WorkingHours,
		Email:          profile.Email,
		Job:            profile.Job,
		PreferredShift: profile.PreferredShift,
		Age:            profile.Age,
	}
}

func toCalendarEntry(calendarName string, model persistence.Entry) calendar.Entry {
	return calendar.Entry{
		ID:       model.ID,
		Calendar: calendarName,
		Title:    model.Title,
		Location: model.Location,
		Start:    model.Start,
		End:      model.End,
		FullDay:  model.FullDay,
	}
}

func toPersistenceEntry(entry *calendar.Entry) persistence.Entry {
	return persistence.Entry{
		ID:       entry.ID,
		Title:    entry.Title,
		Location: entry.Location,
		Start:    entry.Start,
		End:      entry.End,
		FullDay:  entry.FullDay,
	}
}
