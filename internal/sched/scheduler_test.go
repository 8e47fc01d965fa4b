package sched

import (
	"testing"
	"time"

	"doorman/internal/config"
)

func testSchedule() config.Schedule {
	return config.Schedule{
		PollInterval:       3600,
		Jitter:             0.3,
		MinInterval:        60,
		WorkingHoursStart:  6,
		WorkingHoursEnd:    22,
		ErrorRetryInterval: 300,
	}
}

func TestNextDelayBounds(t *testing.T) {
	// Drive the jitter through its extremes and a sweep in between.
	values := []float64{0, 0.25, 0.5, 0.75, 0.999999}
	index := 0
	scheduler := New(testSchedule(), WithRandom(func() float64 {
		v := values[index%len(values)]
		index++
		return v
	}))

	low := 2520 * time.Second
	high := 4680 * time.Second
	for i := 0; i < len(values); i++ {
		delay := scheduler.NextDelay()
		if delay < low || delay > high {
			t.Errorf("delay %v outside [%v, %v]", delay, low, high)
		}
	}
}

func TestNextDelayExtremes(t *testing.T) {
	scheduler := New(testSchedule(), WithRandom(func() float64 { return 0 }))
	if delay := scheduler.NextDelay(); delay != 2520*time.Second {
		t.Errorf("minimum jitter delay %v, want %v", delay, 2520*time.Second)
	}

	scheduler = New(testSchedule(), WithRandom(func() float64 { return 1 }))
	if delay := scheduler.NextDelay(); delay != 4680*time.Second {
		t.Errorf("maximum jitter delay %v, want %v", delay, 4680*time.Second)
	}
}

func TestNextDelayClampedToMinimum(t *testing.T) {
	schedule := testSchedule()
	schedule.PollInterval = 30 // below the 60s floor
	scheduler := New(schedule, WithRandom(func() float64 { return 0 }))
	if delay := scheduler.NextDelay(); delay != 60*time.Second {
		t.Errorf("delay %v, want clamp to 60s", delay)
	}
}

func TestWorkingHoursGate(t *testing.T) {
	scheduler := New(testSchedule())
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		hour int
		want bool
	}{
		{hour: 3, want: false},
		{hour: 5, want: false},
		{hour: 6, want: true},
		{hour: 12, want: true},
		{hour: 21, want: true},
		{hour: 22, want: false},
		{hour: 23, want: false},
	}
	for _, tc := range cases {
		at := day.Add(time.Duration(tc.hour) * time.Hour)
		if got := scheduler.InWorkingHours(at); got != tc.want {
			t.Errorf("hour %d: in working hours = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestUntilWorkingHours(t *testing.T) {
	scheduler := New(testSchedule())

	threeAM := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	if got := scheduler.UntilWorkingHours(threeAM); got != 3*time.Hour {
		t.Errorf("from 03:00 got %v, want 3h", got)
	}

	elevenPM := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	if got := scheduler.UntilWorkingHours(elevenPM); got != 6*time.Hour+30*time.Minute {
		t.Errorf("from 23:30 got %v, want 6h30m", got)
	}

	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := scheduler.UntilWorkingHours(noon); got != 0 {
		t.Errorf("inside window got %v, want 0", got)
	}
}

func TestErrorRetryDelay(t *testing.T) {
	scheduler := New(testSchedule())
	if got := scheduler.ErrorRetryDelay(); got != 300*time.Second {
		t.Errorf("error retry %v, want 300s", got)
	}

	schedule := testSchedule()
	schedule.ErrorRetryInterval = 0
	scheduler = New(schedule)
	if got := scheduler.ErrorRetryDelay(); got != 60*time.Second {
		t.Errorf("fallback retry %v, want min interval", got)
	}
}

func TestPauseResume(t *testing.T) {
	scheduler := New(testSchedule())
	if scheduler.Paused() {
		t.Fatal("new scheduler must not start paused")
	}
	scheduler.Pause()
	if !scheduler.Paused() {
		t.Fatal("expected paused")
	}
	scheduler.Resume()
	if scheduler.Paused() {
		t.Fatal("expected resumed")
	}
}
