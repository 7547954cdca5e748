// Package alarm implements a persistent named-timer service: callers
// register alarms by name with an absolute fire time and an optional fixed
// period, and a single loop delivers them when due.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// idleWait bounds how long Run sleeps when no alarm is registered.
const idleWait = time.Hour

// Alarm is a named timer registration.
type Alarm struct {
	Name          string    `json:"name"`
	ScheduledTime time.Time `json:"scheduledTime"`
	PeriodMinutes int       `json:"periodInMinutes,omitempty"`
}

// Periodic reports whether the alarm re-arms itself after firing.
func (a Alarm) Periodic() bool {
	return a.PeriodMinutes > 0
}

// Period returns the re-arm interval, zero for one-shot alarms.
func (a Alarm) Period() time.Duration {
	return time.Duration(a.PeriodMinutes) * time.Minute
}

// Handler receives fired alarms. It runs on the Run goroutine.
type Handler func(ctx context.Context, a Alarm)

// Journal persists registrations so they survive restarts.
type Journal interface {
	Load(ctx context.Context) ([]Alarm, error)
	Upsert(ctx context.Context, a Alarm) error
	Delete(ctx context.Context, name string) error
}

// Option configures a Service.
type Option func(*Service)

// WithJournal makes registrations durable.
func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service owns the alarm set. All methods are safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	alarms  map[string]Alarm
	journal Journal
	now     func() time.Time
	logger  *slog.Logger
	wake    chan struct{}
}

// New creates a Service and loads any journaled alarms.
func New(ctx context.Context, opts ...Option) (*Service, error) {
	s := &Service{
		alarms: make(map[string]Alarm),
		now:    time.Now,
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.journal != nil {
		loaded, err := s.journal.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("alarm: load journal: %w", err)
		}
		for _, a := range loaded {
			s.alarms[a.Name] = a
		}
		s.logger.Info("alarm: journal loaded", slog.Int("alarms", len(loaded)))
	}
	return s, nil
}

// Create registers (or replaces) the alarm called name. A zero when fires
// immediately; periodMinutes > 0 makes it recur at that interval measured
// from when.
func (s *Service) Create(ctx context.Context, name string, when time.Time, periodMinutes int) error {
	if name == "" {
		return errors.New("alarm: name is required")
	}
	if periodMinutes < 0 {
		return fmt.Errorf("alarm: negative period %d", periodMinutes)
	}
	if when.IsZero() {
		when = s.now()
	}
	a := Alarm{Name: name, ScheduledTime: when, PeriodMinutes: periodMinutes}

	s.mu.Lock()
	if s.journal != nil {
		if err := s.journal.Upsert(ctx, a); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("alarm: create %s: %w", name, err)
		}
	}
	s.alarms[name] = a
	s.mu.Unlock()

	s.poke()
	return nil
}

// Clear removes the alarm called name and reports whether one existed.
func (s *Service) Clear(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.alarms[name]
	if !ok {
		return false, nil
	}
	if s.journal != nil {
		if err := s.journal.Delete(ctx, name); err != nil {
			return false, fmt.Errorf("alarm: clear %s: %w", name, err)
		}
	}
	delete(s.alarms, name)
	s.poke()
	return true, nil
}

// Get returns the alarm called name.
func (s *Service) Get(_ context.Context, name string) (Alarm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alarms[name]
	return a, ok
}

// All returns every registered alarm ordered by scheduled time.
func (s *Service) All(_ context.Context) []Alarm {
	s.mu.Lock()
	out := make([]Alarm, 0, len(s.alarms))
	for _, a := range s.alarms {
		out = append(out, a)
	}
	s.mu.Unlock()
	sortAlarms(out)
	return out
}

// FireDue delivers every alarm whose scheduled time is not after now, in
// scheduled order, and returns how many fired. One-shot alarms are removed
// before h runs. Periodic alarms advance by whole periods until they lie in
// the future, so a backlog of missed periods fires once.
func (s *Service) FireDue(ctx context.Context, h Handler) int {
	s.mu.Lock()
	now := s.now()
	var due []Alarm
	for name, a := range s.alarms {
		if a.ScheduledTime.After(now) {
			continue
		}
		due = append(due, a)
		if a.Periodic() {
			next := a
			next.ScheduledTime = advance(a.ScheduledTime, a.Period(), now)
			s.alarms[name] = next
			s.journalUpsert(ctx, next)
		} else {
			delete(s.alarms, name)
			s.journalDelete(ctx, name)
		}
	}
	s.mu.Unlock()

	sortAlarms(due)
	for _, a := range due {
		s.logger.Debug("alarm: fired", slog.String("name", a.Name), slog.Time("scheduled", a.ScheduledTime))
		if h != nil {
			h(ctx, a)
		}
	}
	return len(due)
}

// Run delivers alarms to h until ctx is cancelled. Alarms already overdue
// when Run starts fire immediately.
func (s *Service) Run(ctx context.Context, h Handler) error {
	s.logger.Info("alarm: loop started")
	for {
		s.FireDue(ctx, h)

		wait := idleWait
		if next, ok := s.nextDue(); ok {
			wait = next.Sub(s.now())
			if wait < 0 {
				wait = 0
			}
		}
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("alarm: loop stopped")
			return nil
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *Service) nextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Time
	found := false
	for _, a := range s.alarms {
		if !found || a.ScheduledTime.Before(next) {
			next = a.ScheduledTime
			found = true
		}
	}
	return next, found
}

// poke wakes Run so it recomputes its deadline.
func (s *Service) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) journalUpsert(ctx context.Context, a Alarm) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Upsert(ctx, a); err != nil {
		s.logger.Warn("alarm: journal upsert failed", slog.String("name", a.Name), slog.String("error", err.Error()))
	}
}

func (s *Service) journalDelete(ctx context.Context, name string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Delete(ctx, name); err != nil {
		s.logger.Warn("alarm: journal delete failed", slog.String("name", name), slog.String("error", err.Error()))
	}
}

// advance moves t forward by whole periods until it is strictly after now.
func advance(t time.Time, period time.Duration, now time.Time) time.Time {
	if period <= 0 || t.After(now) {
		return t
	}
	n := now.Sub(t)/period + 1
	return t.Add(n * period)
}

func sortAlarms(list []Alarm) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].ScheduledTime.Equal(list[j].ScheduledTime) {
			return list[i].Name < list[j].Name
		}
		return list[i].ScheduledTime.Before(list[j].ScheduledTime)
	})
}
