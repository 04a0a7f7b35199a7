package http

import (
	"context"
	"log/slog"

	"github.com/example/shift-scheduler/internal/logging"
)

type contextKey string

const (
	ruleIDContextKey       contextKey = "rule_id"
	profileNameContextKey  contextKey = "profile_name"
	calendarNameContextKey contextKey = "calendar_name"
	entryIDContextKey      contextKey = "entry_id"
)

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithRuleID injects the rule identifier resolved from the request path.
func ContextWithRuleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ruleIDContextKey, id)
}

// RuleIDFromContext extracts a rule identifier previously associated with the context.
func RuleIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ruleIDContextKey).(string)
	return id, ok
}

// ContextWithProfileName injects the profile name resolved from the request path.
func ContextWithProfileName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, profileNameContextKey, name)
}

// ProfileNameFromContext extracts a profile name previously associated with the context.
func ProfileNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(profileNameContextKey).(string)
	return name, ok
}

// ContextWithCalendarName injects the calendar name resolved from the request path.
func ContextWithCalendarName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, calendarNameContextKey, name)
}

// CalendarNameFromContext extracts a calendar name previously associated with the context.
func CalendarNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(calendarNameContextKey).(string)
	return name, ok
}

// ContextWithEntryID injects the entry identifier resolved from the request path.
func ContextWithEntryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, entryIDContextKey, id)
}

// EntryIDFromContext extracts an entry identifier previously associated with the context.
func EntryIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(entryIDContextKey).(string)
	return id, ok
}
