// Package scheduler detects entries that violate user-defined conflict rules
// and tries to clear them by adjusting an isolated snapshot of the schedule.
//
// A Tracker owns three structures that must stay consistent with each other:
// the conflict map (entry id to the last rule that flagged it), the entry
// index (entry id to the snapshot entry) and the snapshot itself. An id is in
// the conflict map if and only if it is in the entry index. The tracker is not
// safe for concurrent use; callers that share one must serialise access.
package scheduler

import (
	"sort"
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
)

// annotationPrefix marks snapshot entries currently flagged by a rule.
const annotationPrefix = "conflict: "

// Conflict pairs a flagged snapshot entry with the rule that flagged it.
type Conflict struct {
	EntryID string
	Entry   calendar.Entry
	Rule    Rule
}

// Tracker records which snapshot entries violate which rules.
type Tracker struct {
	rules    []Rule
	profiles map[string]Profile
	location *time.Location

	live     *calendar.Schedule
	snapshot *calendar.Schedule

	conflicts map[string]Rule
	index     map[string]*calendar.Entry
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithLocation sets the time zone used for the working-day windows of the
// resolver. Without it each entry's own location is used.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		t.location = loc
	}
}

// NewTracker builds a tracker for the given rules and profiles.
func NewTracker(rules []Rule, profiles []Profile, opts ...Option) *Tracker {
	t := &Tracker{
		snapshot:  calendar.NewSchedule(),
		conflicts: make(map[string]Rule),
		index:     make(map[string]*calendar.Entry),
	}
	t.SetRules(rules)
	t.SetProfiles(profiles)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetRules replaces the rule set read by the next scan.
func (t *Tracker) SetRules(rules []Rule) {
	t.rules = append([]Rule(nil), rules...)
}

// SetProfiles replaces the profiles read by the next scan.
func (t *Tracker) SetProfiles(profiles []Profile) {
	t.profiles = indexProfiles(profiles)
}

// Rules returns a copy of the tracked rules.
func (t *Tracker) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Install records live as the schedule of record, takes a fresh snapshot of it
// and discards any previous conflict state.
func (t *Tracker) Install(live *calendar.Schedule) {
	t.live = live
	t.snapshot = calendar.Copy(live)
	t.clear()
}

// Live returns the schedule passed to Install.
func (t *Tracker) Live() *calendar.Schedule {
	return t.live
}

// Snapshot returns the isolated working copy. Callers must treat it as read only.
func (t *Tracker) Snapshot() *calendar.Schedule {
	return t.snapshot
}

// HasConflict evaluates every active rule against entry. Each matching rule is
// recorded for the entry id, overwriting whatever was recorded before, and the
// id is indexed to the snapshot entry with the same id. It reports whether any
// active rule matched.
func (t *Tracker) HasConflict(entry *calendar.Entry) bool {
	if entry == nil || len(t.rules) == 0 {
		return false
	}

	owner := entry.Calendar
	profile, hasProfile := t.profiles[owner]

	conflicted := false
	for _, rule := range t.rules {
		if !rule.Active {
			continue
		}
		if !t.ruleMatches(rule, owner, profile, hasProfile) {
			continue
		}
		conflicted = true
		t.record(entry.ID, rule)
	}
	return conflicted
}

func (t *Tracker) ruleMatches(rule Rule, owner string, profile Profile, hasProfile bool) bool {
	if rule.Field == FieldOwnerName {
		return Matches(owner, rule.Operator, rule.Value)
	}
	if !hasProfile {
		return false
	}
	value, ok := profile.attribute(rule.Field)
	if !ok {
		return false
	}
	return Matches(value, rule.Operator, rule.Value)
}

// record stores rule for id. Ids that have no snapshot counterpart are not
// recorded so the conflict map never holds an id the index cannot resolve.
func (t *Tracker) record(id string, rule Rule) {
	target := t.snapshot.FindEntry(id)
	if target == nil {
		return
	}
	t.conflicts[id] = rule
	t.index[id] = target
	target.Annotation = annotationPrefix + rule.Description()
}

func (t *Tracker) forget(id string) {
	if entry, ok := t.index[id]; ok && entry != nil {
		entry.Annotation = ""
	}
	delete(t.conflicts, id)
	delete(t.index, id)
}

func (t *Tracker) clear() {
	t.conflicts = make(map[string]Rule)
	t.index = make(map[string]*calendar.Entry)
}

// ScanAll discards the current conflict state and checks every snapshot entry.
// It returns the number of conflicted entries.
func (t *Tracker) ScanAll() int {
	t.clear()
	for _, entry := range t.snapshot.Entries() {
		entry.Annotation = ""
		t.HasConflict(entry)
	}
	return len(t.conflicts)
}

// Len returns the number of conflicted entries.
func (t *Tracker) Len() int {
	return len(t.conflicts)
}

// Clean reports whether no entry is currently flagged.
func (t *Tracker) Clean() bool {
	return len(t.conflicts) == 0
}

// ConflictRule returns the rule recorded for the entry id.
func (t *Tracker) ConflictRule(id string) (Rule, bool) {
	rule, ok := t.conflicts[id]
	return rule, ok
}

// Conflicts lists the current conflicts ordered by entry id. Entries are copies.
func (t *Tracker) Conflicts() []Conflict {
	ids := t.conflictIDs()
	out := make([]Conflict, 0, len(ids))
	for _, id := range ids {
		conflict := Conflict{EntryID: id, Rule: t.conflicts[id]}
		if entry := t.index[id]; entry != nil {
			conflict.Entry = *entry
		}
		out = append(out, conflict)
	}
	return out
}

func (t *Tracker) conflictIDs() []string {
	ids := make([]string, 0, len(t.conflicts))
	for id := range t.conflicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplySnapshot commits the snapshot to the live schedule by copy.
func (t *Tracker) ApplySnapshot() {
	calendar.Apply(t.live, t.snapshot)
}

// ResetSnapshot discards uncommitted snapshot edits by copying the live
// schedule again. Conflict state is cleared; run ScanAll to rebuild it.
func (t *Tracker) ResetSnapshot() {
	t.snapshot = calendar.Copy(t.live)
	t.clear()
}
