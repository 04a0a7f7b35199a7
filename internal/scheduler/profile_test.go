package scheduler

import "testing"

func TestWorkingHours(t *testing.T) {
	schedule := buildSchedule(t,
		entrySpec{"b1", "Bob", clockAt(9, 0), clockAt(10, 0)},
		entrySpec{"b2", "Bob", clockAt(13, 0), clockAt(14, 50)},
		entrySpec{"c1", "Carol", clockAt(9, 0), clockAt(9, 40)},
	)

	tests := []struct {
		name  string
		owner string
		want  int
	}{
		{"rounds partial hours down", "Bob", 2},
		{"less than an hour", "Carol", 0},
		{"no calendar", "Dave", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorkingHours(schedule.Calendar(tt.owner)); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}

	refreshed := RefreshWorkingHours([]Profile{{Name: "Bob"}, {Name: "Dave", WorkingHours: 7}}, schedule)
	if refreshed[0].WorkingHours != 2 || refreshed[1].WorkingHours != 0 {
		t.Fatalf("RefreshWorkingHours disagrees with WorkingHours: %+v", refreshed)
	}
}
