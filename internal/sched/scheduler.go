package sched

import (
	"math/rand"
	"sync"
	"time"

	"doorman/internal/config"
)

// Scheduler computes cycle delays and tracks pause state.
type Scheduler struct {
	schedule config.Schedule

	mu     sync.Mutex
	paused bool
	random func() float64
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithRandom injects the jitter source (primarily for tests). The function
// must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(s *Scheduler) {
		if random != nil {
			s.random = random
		}
	}
}

// New constructs a Scheduler from schedule configuration.
func New(schedule config.Schedule, opts ...Option) *Scheduler {
	scheduler := &Scheduler{
		schedule: schedule,
		random:   rand.Float64,
	}
	for _, opt := range opts {
		opt(scheduler)
	}
	return scheduler
}

// NextDelay returns the jittered wait before the next cycle: the poll
// interval scaled by a uniform factor in [1-jitter, 1+jitter], never below
// the configured minimum.
func (s *Scheduler) NextDelay() time.Duration {
	s.mu.Lock()
	factor := 1 + s.schedule.Jitter*(2*s.random()-1)
	s.mu.Unlock()

	seconds := float64(s.schedule.PollInterval) * factor
	minimum := float64(s.schedule.MinInterval)
	if seconds < minimum {
		seconds = minimum
	}
	return time.Duration(seconds * float64(time.Second))
}

// ErrorRetryDelay returns the shortened wait used after a failed cycle.
func (s *Scheduler) ErrorRetryDelay() time.Duration {
	seconds := s.schedule.ErrorRetryInterval
	if seconds <= 0 {
		seconds = s.schedule.MinInterval
	}
	return time.Duration(seconds) * time.Second
}

// InWorkingHours reports whether cycles may run at the given local time.
func (s *Scheduler) InWorkingHours(t time.Time) bool {
	hour := t.Hour()
	return hour >= s.schedule.WorkingHoursStart && hour < s.schedule.WorkingHoursEnd
}

// UntilWorkingHours returns how long to sleep from t until the window
// opens. Zero when already inside the window.
func (s *Scheduler) UntilWorkingHours(t time.Time) time.Duration {
	if s.InWorkingHours(t) {
		return 0
	}
	opening := time.Date(t.Year(), t.Month(), t.Day(), s.schedule.WorkingHoursStart, 0, 0, 0, t.Location())
	if !opening.After(t) {
		opening = opening.AddDate(0, 0, 1)
	}
	return opening.Sub(t)
}

// Pause suspends cycle execution until Resume is called.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume lifts a pause.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Paused reports whether cycles are suspended.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
