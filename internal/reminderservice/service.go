// Package reminderservice is the command surface of the reminder engine and
// the consumer of fired wake-ups. It is the only writer of the collection.
package reminderservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/mindpulse/internal/alarm"
	"github.com/starford/mindpulse/internal/apperr"
	"github.com/starford/mindpulse/internal/eventloop"
	"github.com/starford/mindpulse/internal/metrics"
	"github.com/starford/mindpulse/internal/models"
	"github.com/starford/mindpulse/internal/notify"
	"github.com/starford/mindpulse/internal/reconcile"
	"github.com/starford/mindpulse/internal/schedule"
	"github.com/starford/mindpulse/internal/sse"
)

// Store reads and writes the whole reminder collection.
type Store interface {
	Load(ctx context.Context) ([]models.Reminder, error)
	Save(ctx context.Context, list []models.Reminder) error
}

// EventSink receives change notifications for presentation clients.
type EventSink interface {
	PublishReminderEvent(kind, id string)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides id generation.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithNotifier sets the alert sink for fired reminders.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithEvents sets the change sink.
func WithEvents(e EventSink) Option {
	return func(s *Service) { s.events = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service runs every command and every firing as a job on one queue, each
// against a freshly loaded snapshot of the collection.
type Service struct {
	store    Store
	schedule *schedule.Manager
	queue    *eventloop.Queue
	notifier notify.Notifier
	events   EventSink
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// New creates a Service.
func New(store Store, mgr *schedule.Manager, queue *eventloop.Queue, opts ...Option) *Service {
	s := &Service{
		store:    store,
		schedule: mgr,
		queue:    queue,
		now:      time.Now,
		newID:    newID,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewLog(s.logger)
	}
	return s
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Create validates in, appends a new reminder, persists the collection and
// registers its wake-up. A past one-shot is stored but left unscheduled.
func (s *Service) Create(ctx context.Context, in models.NewReminderInput) (models.Reminder, error) {
	var created models.Reminder
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
		}
		repeat, err := models.ParseRepeat(in.Repeat)
		if err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
		}

		list, err := s.store.Load(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		r := models.Reminder{
			ID:        s.newID(),
			Title:     strings.TrimSpace(in.Title),
			Note:      in.Note,
			Time:      in.Time,
			Repeat:    repeat,
			Emoji:     in.Emoji,
			Done:      false,
			CreatedAt: models.EpochMillis(now),
		}
		if r.Emoji == "" {
			r.Emoji = models.DefaultEmoji
		}
		if indexOf(list, r.ID) >= 0 {
			return fmt.Errorf("reminder %s: %w", r.ID, apperr.ErrAlreadyExists)
		}

		list = append(list, r)
		if err := s.store.Save(ctx, list); err != nil {
			return err
		}
		metrics.SetReminders(len(list))

		if _, ok, err := s.schedule.Schedule(ctx, r, now); err != nil {
			s.logger.Warn("reminder: wake-up registration failed, reconciliation will retry",
				slog.String("id", r.ID), slog.String("error", err.Error()))
		} else if !ok {
			s.logger.Info("reminder: anchor already passed, not scheduled", slog.String("id", r.ID))
		}

		created = r
		s.publish(sse.KindCreated, r.ID)
		return nil
	})
	s.record("create", err)
	return created, err
}

// Delete removes the reminder with id and clears its wake-up. Deleting an
// unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		list, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		if i := indexOf(list, id); i >= 0 {
			list = append(list[:i:i], list[i+1:]...)
			if err := s.store.Save(ctx, list); err != nil {
				return err
			}
			metrics.SetReminders(len(list))
			s.publish(sse.KindDeleted, id)
		}
		if err := s.schedule.ClearWakeup(ctx, id); err != nil {
			s.logger.Warn("reminder: clear wake-up failed, reconciliation will prune it",
				slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil
	})
	s.record("delete", err)
	return err
}

// ToggleDone flips the done flag of id. It never touches the schedule, so a
// periodic reminder keeps firing whatever its flag says.
func (s *Service) ToggleDone(ctx context.Context, id string) error {
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		list, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		i := indexOf(list, id)
		if i < 0 {
			return nil
		}
		list[i].Done = !list[i].Done
		if err := s.store.Save(ctx, list); err != nil {
			return err
		}
		s.publish(sse.KindUpdated, id)
		return nil
	})
	s.record("toggle", err)
	return err
}

// List returns the collection in insertion order, unfiltered.
func (s *Service) List(ctx context.Context) ([]models.Reminder, error) {
	var out []models.Reminder
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		list, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		out = list
		return nil
	})
	s.record("list", err)
	return out, err
}

// Fire handles a wake-up for id: notify, then complete a one-shot. An
// unknown id is ignored.
func (s *Service) Fire(ctx context.Context, id string) error {
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		list, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		i := indexOf(list, id)
		if i < 0 {
			s.logger.Debug("reminder: wake-up for unknown reminder ignored", slog.String("id", id))
			return nil
		}
		r := list[i]

		s.notifier.Notify(ctx, r.Title, notify.Body(r.Title, r.Note), r.Emoji)
		metrics.RecordWakeupFired(r.Repeat.String())
		s.publish(sse.KindFired, id)

		if r.Repeat.Periodic() {
			return nil
		}
		list[i].Done = true
		if err := s.store.Save(ctx, list); err != nil {
			return err
		}
		s.publish(sse.KindUpdated, id)
		return nil
	})
	s.record("fire", err)
	return err
}

// HandleWakeup is an alarm.Handler. Alarms not owned by the engine are
// ignored; failures are logged because the platform expects no reply.
func (s *Service) HandleWakeup(ctx context.Context, a alarm.Alarm) {
	id, ok := schedule.IDFromName(a.Name)
	if !ok {
		s.logger.Debug("reminder: ignoring foreign alarm", slog.String("name", a.Name))
		return
	}
	if err := s.Fire(ctx, id); err != nil {
		s.logger.Error("reminder: fire failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Reconcile runs a reconciliation pass on the queue, so it never interleaves
// with a command or a firing.
func (s *Service) Reconcile(ctx context.Context, opts reconcile.Options) (reconcile.Report, error) {
	var rep reconcile.Report
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		rep, err = reconcile.Run(ctx, s.store, s.schedule, s.now(), opts, s.logger)
		return err
	})
	s.record("reconcile", err)
	return rep, err
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishReminderEvent(kind, id)
	}
}

func (s *Service) record(command string, err error) {
	switch {
	case err == nil:
		metrics.RecordCommand(command, metrics.ResultOK)
	case errors.Is(err, apperr.ErrValidation):
		metrics.RecordCommand(command, metrics.ResultInvalid)
	default:
		metrics.RecordCommand(command, metrics.ResultError)
	}
}

func indexOf(list []models.Reminder, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
