// Package schedule maps reminders onto named wake-ups of the platform timer
// service and computes when the next one should fire.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/mindpulse/internal/alarm"
	"github.com/starford/mindpulse/internal/models"
)

// DefaultGrace is the delay before a periodic reminder whose anchor already
// passed fires again.
const DefaultGrace = time.Minute

// NamePrefix marks wake-ups owned by the reminder engine.
const NamePrefix = "reminder:"

// WakeupName derives the wake-up name for a reminder id.
func WakeupName(id string) string {
	return NamePrefix + id
}

// IDFromName recovers the reminder id from a wake-up name. It reports false
// for names that do not belong to the engine.
func IDFromName(name string) (string, bool) {
	id, ok := strings.CutPrefix(name, NamePrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Plan is a wake-up registration to make.
type Plan struct {
	FireAt        time.Time
	PeriodMinutes int
}

// NextFireTime decides the next registration for r at instant now.
//
// An anchor at or after now fires at the anchor, so a reminder created for
// the current millisecond still fires. A past one-shot anchor has no next
// fire time. A past periodic anchor fires at now+grace; it does not replay
// the period boundaries that elapsed.
func NextFireTime(r models.Reminder, now time.Time, grace time.Duration) (Plan, bool) {
	anchor := r.Anchor()
	period := r.Repeat.PeriodMinutes()
	if !anchor.Before(now) {
		return Plan{FireAt: anchor, PeriodMinutes: period}, true
	}
	if period == 0 {
		return Plan{}, false
	}
	return Plan{FireAt: now.Add(grace), PeriodMinutes: period}, true
}

// Platform is the persistent named-timer API wake-ups are registered with.
type Platform interface {
	Create(ctx context.Context, name string, when time.Time, periodMinutes int) error
	Clear(ctx context.Context, name string) (bool, error)
	Get(ctx context.Context, name string) (alarm.Alarm, bool)
	All(ctx context.Context) []alarm.Alarm
}

// Manager owns the reminder id to wake-up mapping. It keeps no state of its
// own; the platform is the only record.
type Manager struct {
	platform Platform
	grace    time.Duration
	logger   *slog.Logger
}

// NewManager creates a Manager. A non-positive grace selects DefaultGrace.
func NewManager(platform Platform, grace time.Duration, logger *slog.Logger) *Manager {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{platform: platform, grace: grace, logger: logger}
}

// Grace returns the catch-up delay.
func (m *Manager) Grace() time.Duration {
	return m.grace
}

// ScheduleWakeup registers or replaces the wake-up for id. periodMinutes of
// zero means fire once.
func (m *Manager) ScheduleWakeup(ctx context.Context, id string, fireAt time.Time, periodMinutes int) error {
	if err := m.platform.Create(ctx, WakeupName(id), fireAt, periodMinutes); err != nil {
		return fmt.Errorf("schedule: register %s: %w", id, err)
	}
	m.logger.Debug("schedule: wake-up registered",
		slog.String("id", id),
		slog.Time("fire_at", fireAt),
		slog.Int("period_minutes", periodMinutes),
	)
	return nil
}

// ClearWakeup removes any wake-up for id. Absence is not an error.
func (m *Manager) ClearWakeup(ctx context.Context, id string) error {
	removed, err := m.platform.Clear(ctx, WakeupName(id))
	if err != nil {
		return fmt.Errorf("schedule: clear %s: %w", id, err)
	}
	if removed {
		m.logger.Debug("schedule: wake-up cleared", slog.String("id", id))
	}
	return nil
}

// HasWakeup reports whether a wake-up exists for id.
func (m *Manager) HasWakeup(ctx context.Context, id string) bool {
	_, ok := m.platform.Get(ctx, WakeupName(id))
	return ok
}

// Wakeup returns the registration for id.
func (m *Manager) Wakeup(ctx context.Context, id string) (alarm.Alarm, bool) {
	return m.platform.Get(ctx, WakeupName(id))
}

// WakeupIDs returns the reminder ids of every engine-owned wake-up.
func (m *Manager) WakeupIDs(ctx context.Context) []string {
	var ids []string
	for _, a := range m.platform.All(ctx) {
		if id, ok := IDFromName(a.Name); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Schedule computes the next fire time for r and registers it. It reports
// false when r has nothing left to schedule.
func (m *Manager) Schedule(ctx context.Context, r models.Reminder, now time.Time) (Plan, bool, error) {
	plan, ok := NextFireTime(r, now, m.grace)
	if !ok {
		return Plan{}, false, nil
	}
	if err := m.ScheduleWakeup(ctx, r.ID, plan.FireAt, plan.PeriodMinutes); err != nil {
		return Plan{}, false, err
	}
	return plan, true, nil
}
