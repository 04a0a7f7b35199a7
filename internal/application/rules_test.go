package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/shift-scheduler/internal/scheduler"
)

func TestConflictService_DefineRule(t *testing.T) {
	t.Run("validates input", func(t *testing.T) {
		svc := NewConflictService(Repositories{}, nil, nil)

		tests := map[string]struct {
			input RuleInput
			field string
		}{
			"unknown field":           {RuleInput{Field: "salary", Operator: "equals", Value: "1"}, "field"},
			"unknown operator":        {RuleInput{Field: "email", Operator: "contains", Value: "x"}, "operator"},
			"blank value":             {RuleInput{Field: "email", Operator: "equals", Value: "   "}, "value"},
			"ordered on text field":   {RuleInput{Field: "job-title", Operator: "greater", Value: "3"}, "operator"},
			"non numeric working hrs": {RuleInput{Field: "working-hours", Operator: "less", Value: "eight"}, "value"},
		}
		for name, tc := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := svc.DefineRule(context.Background(), tc.input)
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if _, ok := vErr.FieldErrors[tc.field]; !ok {
					t.Fatalf("expected %s error, got %v", tc.field, vErr.FieldErrors)
				}
			})
		}
	})

	t.Run("appends an active rule and rescans", func(t *testing.T) {
		store := &storeStub{schedule: bobSchedule(t)}
		svc := loadedService(t, store)

		rule, err := svc.DefineRule(context.Background(), RuleInput{Field: "NAME", Operator: "EQUALS", Value: " Bob "})
		if err != nil {
			t.Fatalf("DefineRule: %v", err)
		}
		if rule.ID != "id-1" || !rule.Active || rule.Field != scheduler.FieldOwnerName || rule.Value != "Bob" {
			t.Fatalf("unexpected rule %+v", rule)
		}
		if svc.State() != StateConflicted {
			t.Fatalf("expected the new rule to flag Bob, got %s", svc.State())
		}
	})

	t.Run("respects an explicit inactive flag", func(t *testing.T) {
		svc := NewConflictService(Repositories{}, nil, nil)
		inactive := false
		rule, err := svc.DefineRule(context.Background(), RuleInput{Field: "email", Operator: "equals", Value: "a@b.c", Active: &inactive})
		if err != nil {
			t.Fatalf("DefineRule: %v", err)
		}
		if rule.Active {
			t.Fatal("expected inactive rule")
		}
		if rule.ID == "" {
			t.Fatal("expected a generated id without an id generator")
		}
	})
}

func TestConflictService_RuleLifecycle(t *testing.T) {
	store := &storeStub{schedule: bobSchedule(t)}
	svc := loadedService(t, store)
	ctx := context.Background()

	first, err := svc.DefineRule(ctx, RuleInput{Field: "owner-name", Operator: "equals", Value: "Bob"})
	if err != nil {
		t.Fatalf("DefineRule: %v", err)
	}
	second, err := svc.DefineRule(ctx, RuleInput{Field: "working-hours", Operator: "less", Value: "8"})
	if err != nil {
		t.Fatalf("DefineRule: %v", err)
	}

	copyRule, err := svc.DuplicateRule(ctx, first.ID)
	if err != nil {
		t.Fatalf("DuplicateRule: %v", err)
	}
	rules, _ := svc.ListRules(ctx)
	if len(rules) != 3 || rules[1].ID != copyRule.ID || rules[2].ID != second.ID {
		t.Fatalf("expected duplicate right after its source, got %+v", rules)
	}
	if copyRule.Description() != first.Description() {
		t.Fatalf("duplicate must keep the rule body, got %q", copyRule.Description())
	}

	toggled, err := svc.ToggleRule(ctx, first.ID)
	if err != nil {
		t.Fatalf("ToggleRule: %v", err)
	}
	if toggled.Active {
		t.Fatal("expected rule to be deactivated")
	}

	updated, err := svc.UpdateRule(ctx, second.ID, RuleInput{Field: "working-hours", Operator: "greater", Value: "40"})
	if err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	if updated.Operator != scheduler.OperatorGreater || updated.Value != "40" || !updated.Active {
		t.Fatalf("unexpected updated rule %+v", updated)
	}

	if err := svc.DeleteRule(ctx, copyRule.ID); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	// The remaining owner-name rule is inactive and Bob has no profile.
	if svc.State() != StateClean {
		t.Fatalf("expected clean state, got %s", svc.State())
	}

	if err := svc.DeleteRule(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ToggleRule(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.DuplicateRule(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateRule(ctx, "missing", RuleInput{Field: "email", Operator: "equals", Value: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
