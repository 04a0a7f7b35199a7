package persistence

import "time"

// Rule is a stored conflict rule. Position keeps the user-defined order.
type Rule struct {
	ID       string `json:"id" yaml:"id"`
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    string `json:"value" yaml:"value"`
	Active   bool   `json:"active" yaml:"active"`
	Position int    `json:"position" yaml:"position"`
}

// Profile is a stored employee profile, keyed by the owner name.
type Profile struct {
	Name           string `json:"name" yaml:"name"`
	WorkingHours   int    `json:"workingHours" yaml:"working_hours"`
	Email          string `json:"email,omitempty" yaml:"email,omitempty"`
	Job            string `json:"job,omitempty" yaml:"job,omitempty"`
	PreferredShift string `json:"preferredShift,omitempty" yaml:"preferred_shift,omitempty"`
	Age            int    `json:"age" yaml:"age"`
}

// Calendar is a stored calendar together with its entries.
type Calendar struct {
	Name    string  `json:"name" yaml:"name"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Entry is a stored calendar entry.
type Entry struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Location string    `json:"location,omitempty" yaml:"location,omitempty"`
	Start    time.Time `json:"start" yaml:"start"`
	End      time.Time `json:"end" yaml:"end"`
	FullDay  bool      `json:"fullDay" yaml:"full_day"`
}
