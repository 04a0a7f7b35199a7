package application

import (
	"time"

	"github.com/example/shift-scheduler/internal/scheduler"
)

// State summarises the conflict state machine after the last scan or pass.
type State string

const (
	// StateUnscanned means no scan ran since the schedule was loaded or reset.
	StateUnscanned State = "unscanned"
	// StateClean means the last scan or pass left no conflicted entry.
	StateClean State = "clean"
	// StateConflicted means at least one entry is still flagged.
	StateConflicted State = "conflicted"
)

// RuleInput captures caller provided rule fields. Field and Operator accept
// the same aliases as scheduler.ParseField and scheduler.ParseOperator.
type RuleInput struct {
	Field    string
	Operator string
	Value    string
	Active   *bool
}

// ProfileInput captures caller provided profile attributes. Name is only
// read on creation; it is the immutable join key to the owner's calendar.
type ProfileInput struct {
	Name           string
	Email          string
	Job            string
	PreferredShift string
	Age            int
}

// EntryInput captures a new live calendar entry.
type EntryInput struct {
	Title    string
	Location string
	Start    time.Time
	End      time.Time
	FullDay  bool
}

// ConflictRow is one line of the conflict table.
type ConflictRow struct {
	EntryID  string
	Calendar string
	// Entry is the entry description: title, start date and time, end date and time.
	Entry string
	// Rule is the description of the rule that last flagged the entry.
	Rule   string
	RuleID string
	Start  time.Time
	End    time.Time
}

// ConflictTable is the conflict table together with the state it was read in.
type ConflictTable struct {
	State State
	Rows  []ConflictRow
}

// ScanResult reports the outcome of a full rescan.
type ScanResult struct {
	State     State
	Conflicts int
}

// ResolveReport reports the outcome of a single resolution pass.
type ResolveReport struct {
	State     State
	Results   []scheduler.Resolution
	Adjusted  int
	Resolved  int
	Remaining int
}
