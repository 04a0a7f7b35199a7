package scheduler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Field selects the attribute a rule inspects.
type Field string

const (
	// FieldOwnerName compares against the owning calendar's name; no profile needed.
	FieldOwnerName Field = "owner-name"
	// FieldWorkingHours compares against the owner's recorded working hours.
	FieldWorkingHours Field = "working-hours"
	// FieldPreferredShift compares against the owner's preferred shift.
	FieldPreferredShift Field = "preferred-shift"
	// FieldJobTitle compares against the owner's job title.
	FieldJobTitle Field = "job-title"
	// FieldEmail compares against the owner's email address.
	FieldEmail Field = "email"
)

// Fields lists every supported field in display order.
var Fields = []Field{FieldOwnerName, FieldWorkingHours, FieldPreferredShift, FieldJobTitle, FieldEmail}

var fieldAliases = map[string]Field{
	"owner-name":      FieldOwnerName,
	"name":            FieldOwnerName,
	"working-hours":   FieldWorkingHours,
	"preferred-shift": FieldPreferredShift,
	"job-title":       FieldJobTitle,
	"job":             FieldJobTitle,
	"email":           FieldEmail,
}

// ParseField accepts the canonical field names as well as the upper-case
// constants used by older rule files (NAME, WORKING_HOURS, JOB, ...).
func ParseField(value string) (Field, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), "_", "-"))
	if field, ok := fieldAliases[key]; ok {
		return field, nil
	}
	return "", fmt.Errorf("scheduler: unknown rule field %q", value)
}

// Valid reports whether f is a supported field.
func (f Field) Valid() bool {
	switch f {
	case FieldOwnerName, FieldWorkingHours, FieldPreferredShift, FieldJobTitle, FieldEmail:
		return true
	}
	return false
}

// Numeric reports whether greater/less comparisons are meaningful for f.
func (f Field) Numeric() bool {
	return f == FieldWorkingHours
}

// NeedsProfile reports whether evaluating f requires the owner's profile.
func (f Field) NeedsProfile() bool {
	return f != FieldOwnerName
}

// Operator is the comparison applied between an attribute and a rule value.
type Operator string

const (
	OperatorEquals    Operator = "equals"
	OperatorNotEquals Operator = "not-equals"
	OperatorGreater   Operator = "greater"
	OperatorLess      Operator = "less"
)

// Operators lists every supported operator in display order.
var Operators = []Operator{OperatorEquals, OperatorNotEquals, OperatorGreater, OperatorLess}

var operatorAliases = map[string]Operator{
	"equals":     OperatorEquals,
	"eq":         OperatorEquals,
	"not-equals": OperatorNotEquals,
	"ne":         OperatorNotEquals,
	"greater":    OperatorGreater,
	"gt":         OperatorGreater,
	"less":       OperatorLess,
	"lesser":     OperatorLess,
	"lt":         OperatorLess,
}

// ParseOperator accepts canonical operator names and the legacy upper-case forms.
func ParseOperator(value string) (Operator, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), "_", "-"))
	if op, ok := operatorAliases[key]; ok {
		return op, nil
	}
	return "", fmt.Errorf("scheduler: unknown rule operator %q", value)
}

// Valid reports whether o is a supported operator.
func (o Operator) Valid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorGreater, OperatorLess:
		return true
	}
	return false
}

// Ordered reports whether o compares numerically.
func (o Operator) Ordered() bool {
	return o == OperatorGreater || o == OperatorLess
}

// Rule is a user-defined conflict criterion.
type Rule struct {
	ID       string
	Field    Field
	Operator Operator
	Value    string
	Active   bool
}

// NewRuleID returns a fresh rule identifier.
func NewRuleID() string {
	return uuid.NewString()
}

// Description renders the rule as "field operator value".
func (r Rule) Description() string {
	return fmt.Sprintf("%s %s %s", r.Field, r.Operator, r.Value)
}

// Strategy classifies how the resolver may try to clear a conflict.
type Strategy int

const (
	// StrategyUnresolvable means no automated fix exists.
	StrategyUnresolvable Strategy = iota
	// StrategyWorkingHoursLess widens entries of an owner with too few hours.
	StrategyWorkingHoursLess
	// StrategyWorkingHoursGreater narrows entries of an owner with too many hours.
	StrategyWorkingHoursGreater
)

func (s Strategy) String() string {
	switch s {
	case StrategyWorkingHoursLess:
		return "widen"
	case StrategyWorkingHoursGreater:
		return "narrow"
	default:
		return "unresolvable"
	}
}

// Strategy returns the fix the resolver applies to entries flagged by r.
func (r Rule) Strategy() Strategy {
	if r.Field != FieldWorkingHours {
		return StrategyUnresolvable
	}
	switch r.Operator {
	case OperatorLess:
		return StrategyWorkingHoursLess
	case OperatorGreater:
		return StrategyWorkingHoursGreater
	default:
		return StrategyUnresolvable
	}
}
