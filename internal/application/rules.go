package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/shift-scheduler/internal/scheduler"
)

// ListRules returns the rules in evaluation order.
func (s *ConflictService) ListRules(ctx context.Context) ([]scheduler.Rule, error) {
	if s == nil {
		return nil, fmt.Errorf("ConflictService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Rules(), nil
}

// DefineRule validates input and appends a new rule. Rules are active unless
// the input says otherwise.
func (s *ConflictService) DefineRule(ctx context.Context, input RuleInput) (rule scheduler.Rule, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DefineRule")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to define rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("rule_id", rule.ID, "rule", rule.Description()).InfoContext(ctx, "rule defined")
	}()

	rule, vErr := parseRuleInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	rule.Active = true
	if input.Active != nil {
		rule.Active = *input.Active
	}
	rule.ID = s.newID(scheduler.NewRuleID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRulesLocked(append(s.tracker.Rules(), rule))
	return
}

// UpdateRule replaces field, operator and value of an existing rule. The
// active flag only changes when the input carries one.
func (s *ConflictService) UpdateRule(ctx context.Context, id string, input RuleInput) (rule scheduler.Rule, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRule", "rule_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("rule", rule.Description()).InfoContext(ctx, "rule updated")
	}()

	parsed, vErr := parseRuleInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.tracker.Rules()
	idx := indexOfRule(rules, id)
	if idx < 0 {
		err = ErrNotFound
		return
	}
	rule = rules[idx]
	rule.Field = parsed.Field
	rule.Operator = parsed.Operator
	rule.Value = parsed.Value
	if input.Active != nil {
		rule.Active = *input.Active
	}
	rules[idx] = rule
	s.setRulesLocked(rules)
	return
}

// DeleteRule removes a rule.
func (s *ConflictService) DeleteRule(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("ConflictService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteRule", "rule_id", id)

	s.mu.Lock()
	rules := s.tracker.Rules()
	idx := indexOfRule(rules, id)
	if idx < 0 {
		s.mu.Unlock()
		logger.ErrorContext(ctx, "failed to delete rule", "error", ErrNotFound, "error_kind", ErrorKind(ErrNotFound))
		return ErrNotFound
	}
	s.setRulesLocked(append(rules[:idx], rules[idx+1:]...))
	s.mu.Unlock()

	logger.InfoContext(ctx, "rule deleted")
	return nil
}

// DuplicateRule inserts a copy of a rule with a fresh id right after it.
func (s *ConflictService) DuplicateRule(ctx context.Context, id string) (rule scheduler.Rule, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DuplicateRule", "rule_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to duplicate rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("copy_id", rule.ID).InfoContext(ctx, "rule duplicated")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.tracker.Rules()
	idx := indexOfRule(rules, id)
	if idx < 0 {
		err = ErrNotFound
		return
	}
	rule = rules[idx]
	rule.ID = s.newID(scheduler.NewRuleID)

	out := make([]scheduler.Rule, 0, len(rules)+1)
	out = append(out, rules[:idx+1]...)
	out = append(out, rule)
	out = append(out, rules[idx+1:]...)
	s.setRulesLocked(out)
	return
}

// ToggleRule flips the active flag of a rule.
func (s *ConflictService) ToggleRule(ctx context.Context, id string) (rule scheduler.Rule, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ToggleRule", "rule_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to toggle rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("active", rule.Active).InfoContext(ctx, "rule toggled")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.tracker.Rules()
	idx := indexOfRule(rules, id)
	if idx < 0 {
		err = ErrNotFound
		return
	}
	rules[idx].Active = !rules[idx].Active
	rule = rules[idx]
	s.setRulesLocked(rules)
	return
}

// setRulesLocked installs rules and rescans so the conflict table never
// reflects a rule set that no longer exists.
func (s *ConflictService) setRulesLocked(rules []scheduler.Rule) {
	s.tracker.SetRules(rules)
	s.scanLocked()
}

func indexOfRule(rules []scheduler.Rule, id string) int {
	for i, rule := range rules {
		if rule.ID == id {
			return i
		}
	}
	return -1
}

func parseRuleInput(input RuleInput) (scheduler.Rule, *ValidationError) {
	vErr := &ValidationError{}
	var rule scheduler.Rule

	field, err := scheduler.ParseField(input.Field)
	if err != nil {
		vErr.add("field", "field must be one of "+joinFields())
	}
	op, err := scheduler.ParseOperator(input.Operator)
	if err != nil {
		vErr.add("operator", "operator must be one of "+joinOperators())
	}
	value := strings.TrimSpace(input.Value)
	if value == "" {
		vErr.add("value", "value is required")
	}
	if vErr.HasErrors() {
		return rule, vErr
	}

	if op.Ordered() && !field.Numeric() {
		vErr.add("operator", fmt.Sprintf("%s only applies to numeric fields", op))
	}
	if field.Numeric() {
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			vErr.add("value", "value must be a number")
		}
	}

	rule.Field = field
	rule.Operator = op
	rule.Value = value
	return rule, vErr
}

func joinFields() string {
	names := make([]string, 0, len(scheduler.Fields))
	for _, field := range scheduler.Fields {
		names = append(names, string(field))
	}
	return strings.Join(names, ", ")
}

func joinOperators() string {
	names := make([]string, 0, len(scheduler.Operators))
	for _, op := range scheduler.Operators {
		names = append(names, string(op))
	}
	return strings.Join(names, ", ")
}
