// Package metrics holds the Prometheus collectors of the reminder engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// commandsTotal counts handled commands.
	// Labels: command (create, delete, toggle, list, fire, reconcile), result (ok, invalid, error)
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindpulse",
		Name:      "commands_total",
		Help:      "Commands processed by the reminder service",
	}, []string{"command", "result"})

	// wakeupsFiredTotal counts wake-ups that matched an existing reminder.
	// Labels: repeat
	wakeupsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindpulse",
		Name:      "wakeups_fired_total",
		Help:      "Wake-ups delivered to a reminder",
	}, []string{"repeat"})

	reconcileScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mindpulse",
		Name:      "reconcile_scheduled_total",
		Help:      "Wake-ups registered by reconciliation",
	})

	reconcilePrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mindpulse",
		Name:      "reconcile_pruned_total",
		Help:      "Orphan wake-ups cleared by reconciliation",
	})

	remindersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mindpulse",
		Name:      "reminders",
		Help:      "Reminders in the persisted collection after the last command",
	})
)

// Command results.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// RecordCommand counts a handled command.
func RecordCommand(command, result string) {
	commandsTotal.WithLabelValues(command, result).Inc()
}

// RecordWakeupFired counts a delivered wake-up by recurrence policy.
func RecordWakeupFired(repeat string) {
	wakeupsFiredTotal.WithLabelValues(repeat).Inc()
}

// RecordReconcile adds one reconciliation pass.
func RecordReconcile(scheduled, pruned int) {
	reconcileScheduledTotal.Add(float64(scheduled))
	reconcilePrunedTotal.Add(float64(pruned))
}

// SetReminders records the collection size.
func SetReminders(n int) {
	remindersGauge.Set(float64(n))
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
