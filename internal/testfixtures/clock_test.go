package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		clock *Clock
		want  []time.Time
	}{
		{
			name:  "defaults to reference time",
			clock: NewClock(time.Time{}),
			want:  []time.Time{ReferenceTime(), ReferenceTime()},
		},
		{
			name:  "stands still without a step",
			clock: NewClock(start),
			want:  []time.Time{start, start},
		},
		{
			name:  "advances one step per reading",
			clock: NewSteppingClock(start, 5*time.Millisecond),
			want:  []time.Time{start, start.Add(5 * time.Millisecond), start.Add(10 * time.Millisecond)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.clock.NowFunc()
			for i, want := range tt.want {
				if got := now(); !got.Equal(want) {
					t.Fatalf("reading %d: expected %v, got %v", i, want, got)
				}
			}
		})
	}
}

func TestNilClockFallsBackToWallTime(t *testing.T) {
	var clock *Clock
	before := time.Now()
	if got := clock.NowFunc()(); got.Before(before) {
		t.Fatalf("expected wall time, got %v", got)
	}
}
