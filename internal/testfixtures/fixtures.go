package testfixtures

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/scheduler"
)

var (
	ruleCounter    uint64
	profileCounter uint64
	entryCounter   uint64
)

// referenceTime is a Monday at midnight UTC.
var referenceTime = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns the reference day at hour:minute UTC.
func At(hour, minute int) time.Time {
	return referenceTime.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ----------------------------- Rule fixtures -----------------------------

// RuleFixture represents a deterministic conflict rule.
type RuleFixture struct {
	ID       string
	Field    scheduler.Field
	Operator scheduler.Operator
	Value    string
	Active   bool
}

// RuleOption configures the generated rule fixture.
type RuleOption func(*RuleFixture)

// NewRuleFixture returns an active "owner-name equals <name>" rule.
func NewRuleFixture(opts ...RuleOption) RuleFixture {
	idx := atomic.AddUint64(&ruleCounter, 1)
	fixture := RuleFixture{
		ID:       fmt.Sprintf("rule-%03d", idx),
		Field:    scheduler.FieldOwnerName,
		Operator: scheduler.OperatorEquals,
		Value:    fmt.Sprintf("Owner %03d", idx),
		Active:   true,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRuleID overrides the generated rule ID.
func WithRuleID(id string) RuleOption {
	return func(f *RuleFixture) {
		f.ID = id
	}
}

// WithRuleCondition sets the field, operator and value of the rule.
func WithRuleCondition(field scheduler.Field, operator scheduler.Operator, value string) RuleOption {
	return func(f *RuleFixture) {
		f.Field = field
		f.Operator = operator
		f.Value = value
	}
}

// WithRuleInactive disables the rule.
func WithRuleInactive() RuleOption {
	return func(f *RuleFixture) {
		f.Active = false
	}
}

// Domain converts the fixture into a scheduler.Rule.
func (f RuleFixture) Domain() scheduler.Rule {
	return scheduler.Rule{ID: f.ID, Field: f.Field, Operator: f.Operator, Value: f.Value, Active: f.Active}
}

// Persistence converts the fixture into a stored rule at the given position.
func (f RuleFixture) Persistence(position int) persistence.Rule {
	return persistence.Rule{
		ID:       f.ID,
		Field:    string(f.Field),
		Operator: string(f.Operator),
		Value:    f.Value,
		Active:   f.Active,
		Position: position,
	}
}

// Input converts the fixture into application input.
func (f RuleFixture) Input() application.RuleInput {
	active := f.Active
	return application.RuleInput{
		Field:    string(f.Field),
		Operator: string(f.Operator),
		Value:    f.Value,
		Active:   &active,
	}
}

// ---------------------------- Profile fixtures ----------------------------

// ProfileFixture represents a deterministic employee profile.
type ProfileFixture struct {
	Name           string
	WorkingHours   int
	Email          string
	Job            string
	PreferredShift string
	Age            int
}

// ProfileOption configures the generated profile fixture.
type ProfileOption func(*ProfileFixture)

// NewProfileFixture returns a deterministic profile with optional overrides.
func NewProfileFixture(opts ...ProfileOption) ProfileFixture {
	idx := atomic.AddUint64(&profileCounter, 1)
	fixture := ProfileFixture{
		Name:           fmt.Sprintf("Owner %03d", idx),
		Email:          fmt.Sprintf("owner-%03d@example.com", idx),
		Job:            "nurse",
		PreferredShift: "day",
		Age:            30,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProfileName overrides the generated owner name.
func WithProfileName(name string) ProfileOption {
	return func(f *ProfileFixture) {
		f.Name = name
	}
}

// WithProfileWorkingHours sets the recorded working hours.
func WithProfileWorkingHours(hours int) ProfileOption {
	return func(f *ProfileFixture) {
		f.WorkingHours = hours
	}
}

// WithProfileJob sets the job title.
func WithProfileJob(job string) ProfileOption {
	return func(f *ProfileFixture) {
		f.Job = job
	}
}

// WithProfileEmail sets the email address.
func WithProfileEmail(email string) ProfileOption {
	return func(f *ProfileFixture) {
		f.Email = email
	}
}

// Domain converts the fixture into a scheduler.Profile.
func (f ProfileFixture) Domain() scheduler.Profile {
	return scheduler.Profile{
		Name:           f.Name,
		WorkingHours:   f.WorkingHours,
		Email:          f.Email,
		Job:            f.Job,
		PreferredShift: f.PreferredShift,
		Age:            f.Age,
	}
}

// Persistence converts the fixture into a stored profile.
func (f ProfileFixture) Persistence() persistence.Profile {
	return persistence.Profile{
		Name:           f.Name,
		WorkingHours:   f.WorkingHours,
		Email:          f.Email,
		Job:            f.Job,
		PreferredShift: f.PreferredShift,
		Age:            f.Age,
	}
}

// Input converts the fixture into application input.
func (f ProfileFixture) Input() application.ProfileInput {
	return application.ProfileInput{
		Name:           f.Name,
		Email:          f.Email,
		Job:            f.Job,
		PreferredShift: f.PreferredShift,
		Age:            f.Age,
	}
}

// ----------------------------- Entry fixtures -----------------------------

// EntryFixture represents a deterministic calendar entry on the reference day.
type EntryFixture struct {
	ID       string
	Title    string
	Location string
	Start    time.Time
	End      time.Time
	FullDay  bool
}

// EntryOption configures the generated entry fixture.
type EntryOption func(*EntryFixture)

// NewEntryFixture returns a 10:00-11:00 entry on the reference day.
func NewEntryFixture(opts ...EntryOption) EntryFixture {
	idx := atomic.AddUint64(&entryCounter, 1)
	fixture := EntryFixture{
		ID:    fmt.Sprintf("entry-%03d", idx),
		Title: fmt.Sprintf("Shift %03d", idx),
		Start: At(10, 0),
		End:   At(11, 0),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEntryID overrides the generated entry ID.
func WithEntryID(id string) EntryOption {
	return func(f *EntryFixture) {
		f.ID = id
	}
}

// WithEntryTitle overrides the generated title.
func WithEntryTitle(title string) EntryOption {
	return func(f *EntryFixture) {
		f.Title = title
	}
}

// WithEntryInterval sets the start and end of the entry.
func WithEntryInterval(start, end time.Time) EntryOption {
	return func(f *EntryFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEntryLocation sets the entry location.
func WithEntryLocation(location string) EntryOption {
	return func(f *EntryFixture) {
		f.Location = location
	}
}

// Domain converts the fixture into a calendar.Entry owned by calendarName.
func (f EntryFixture) Domain(calendarName string) calendar.Entry {
	return calendar.Entry{
		ID:       f.ID,
		Calendar: calendarName,
		Title:    f.Title,
		Location: f.Location,
		Start:    f.Start,
		End:      f.End,
		FullDay:  f.FullDay,
	}
}

// Persistence converts the fixture into a stored entry.
func (f EntryFixture) Persistence() persistence.Entry {
	return persistence.Entry{
		ID:       f.ID,
		Title:    f.Title,
		Location: f.Location,
		Start:    f.Start,
		End:      f.End,
		FullDay:  f.FullDay,
	}
}

// Input converts the fixture into application input.
func (f EntryFixture) Input() application.EntryInput {
	return application.EntryInput{
		Title:    f.Title,
		Location: f.Location,
		Start:    f.Start,
		End:      f.End,
		FullDay:  f.FullDay,
	}
}

// NewSchedule builds a schedule holding one calendar per key of entries, in
// name order. It panics on invalid input since fixtures are static test data.
func NewSchedule(entries map[string][]EntryFixture) *calendar.Schedule {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	schedule := calendar.NewSchedule()
	for _, name := range names {
		if _, err := schedule.EnsureCalendar(name); err != nil {
			panic(err)
		}
		for _, fixture := range entries[name] {
			if _, err := schedule.AddEntry(name, fixture.Domain(name)); err != nil {
				panic(err)
			}
		}
	}
	return schedule
}
