package scheduler

import (
	"math"
	"strconv"

	"github.com/example/shift-scheduler/internal/calendar"
)

// Profile holds the per-owner attributes that profile-dependent rules read.
// Name is the join key to the calendar of the same name.
type Profile struct {
	Name           string
	WorkingHours   int
	Email          string
	Job            string
	PreferredShift string
	Age            int
}

// attribute returns the textual value a rule field compares against. The
// boolean is false when the profile has nothing to compare for the field.
func (p Profile) attribute(field Field) (string, bool) {
	switch field {
	case FieldWorkingHours:
		return strconv.Itoa(p.WorkingHours), true
	case FieldPreferredShift:
		return p.PreferredShift, p.PreferredShift != ""
	case FieldJobTitle:
		return p.Job, p.Job != ""
	case FieldEmail:
		return p.Email, p.Email != ""
	default:
		return "", false
	}
}

// indexProfiles keys profiles by name. When names repeat the first one wins.
func indexProfiles(profiles []Profile) map[string]Profile {
	index := make(map[string]Profile, len(profiles))
	for _, profile := range profiles {
		if _, ok := index[profile.Name]; ok {
			continue
		}
		index[profile.Name] = profile
	}
	return index
}

// RefreshWorkingHours returns a copy of profiles whose WorkingHours is the
// whole number of hours booked on the calendar named after each profile.
// Owners without a calendar get zero.
func RefreshWorkingHours(profiles []Profile, schedule *calendar.Schedule) []Profile {
	out := make([]Profile, len(profiles))
	for i, profile := range profiles {
		profile.WorkingHours = WorkingHours(schedule.Calendar(profile.Name))
		out[i] = profile
	}
	return out
}

// WorkingHours is the whole number of hours booked on cal, rounded down.
// A nil calendar books nothing.
func WorkingHours(cal *calendar.Calendar) int {
	if cal == nil {
		return 0
	}
	return int(math.Floor(cal.Hours()))
}
