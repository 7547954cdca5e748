// Package reconcile rebuilds the wake-up set from the persisted reminder
// collection.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/mindpulse/internal/metrics"
	"github.com/starford/mindpulse/internal/models"
	"github.com/starford/mindpulse/internal/schedule"
)

// Loader reads the reminder collection.
type Loader interface {
	Load(ctx context.Context) ([]models.Reminder, error)
}

// Options tunes a reconciliation pass.
type Options struct {
	// PruneOrphans clears engine-owned wake-ups whose reminder is gone or
	// terminal.
	PruneOrphans bool
}

// Report summarises one pass.
type Report struct {
	Scanned   int `json:"scanned"`
	Scheduled int `json:"scheduled"`
	Present   int `json:"present"`
	Skipped   int `json:"skipped"`
	Stale     int `json:"stale"`
	Pruned    int `json:"pruned"`
	Failed    int `json:"failed"`
}

// Changed reports whether the pass registered or cleared anything.
func (r Report) Changed() bool {
	return r.Scheduled > 0 || r.Pruned > 0
}

// Run brings mgr in line with the collection in store:
//   - terminal reminders (done, not recurring) are skipped
//   - reminders that already have a wake-up are left alone
//   - the rest get the registration schedule.NextFireTime yields, if any
//   - with PruneOrphans, wake-ups without an active reminder are cleared
//
// Run is idempotent: a second pass over unchanged state reports no changes.
func Run(ctx context.Context, store Loader, mgr *schedule.Manager, now time.Time, opts Options, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rep Report

	list, err := store.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("reconcile: %w", err)
	}
	metrics.SetReminders(len(list))

	active := make(map[string]struct{}, len(list))
	for _, r := range list {
		rep.Scanned++
		if r.Terminal() {
			rep.Skipped++
			continue
		}
		active[r.ID] = struct{}{}

		if mgr.HasWakeup(ctx, r.ID) {
			rep.Present++
			continue
		}

		plan, ok, err := mgr.Schedule(ctx, r, now)
		switch {
		case err != nil:
			rep.Failed++
			logger.Warn("reconcile: schedule failed", slog.String("id", r.ID), slog.String("error", err.Error()))
		case !ok:
			rep.Stale++
			logger.Debug("reconcile: stale one-shot left unscheduled", slog.String("id", r.ID))
		default:
			rep.Scheduled++
			logger.Debug("reconcile: scheduled",
				slog.String("id", r.ID),
				slog.Time("fire_at", plan.FireAt),
				slog.Int("period_minutes", plan.PeriodMinutes),
			)
		}
	}

	if opts.PruneOrphans {
		for _, id := range mgr.WakeupIDs(ctx) {
			if _, ok := active[id]; ok {
				continue
			}
			if err := mgr.ClearWakeup(ctx, id); err != nil {
				rep.Failed++
				logger.Warn("reconcile: prune failed", slog.String("id", id), slog.String("error", err.Error()))
				continue
			}
			rep.Pruned++
			logger.Debug("reconcile: pruned orphan wake-up", slog.String("id", id))
		}
	}

	metrics.RecordReconcile(rep.Scheduled, rep.Pruned)
	logger.Info("reconcile: done",
		slog.Int("scanned", rep.Scanned),
		slog.Int("scheduled", rep.Scheduled),
		slog.Int("present", rep.Present),
		slog.Int("skipped", rep.Skipped),
		slog.Int("stale", rep.Stale),
		slog.Int("pruned", rep.Pruned),
		slog.Int("failed", rep.Failed),
	)
	return rep, nil
}
