package api

import (
	"github.com/starford/mindpulse/internal/models"
	"github.com/starford/mindpulse/internal/reminderservice"
	"github.com/starford/mindpulse/internal/view"
)

// CreateReminderRequest is the request body for creating a reminder.
type CreateReminderRequest = models.NewReminderInput

// Reminder is the persisted reminder shape.
type Reminder = models.Reminder

// ReminderItem is a reminder annotated with its overdue flag.
type ReminderItem = view.Item

// StatsResponse counts reminders by completion.
type StatsResponse = view.Stats

// CommandRequest is one message of the command protocol.
type CommandRequest = reminderservice.Command

// CommandResult is the reply to a mutating command.
type CommandResult = reminderservice.Result

// ReconcileResponse summarises a reconciliation pass.
type ReconcileResponse struct {
	Success   bool `json:"success" example:"true"`
	Scanned   int  `json:"scanned" example:"12"`
	Scheduled int  `json:"scheduled" example:"2"`
	Present   int  `json:"present" example:"9"`
	Skipped   int  `json:"skipped" example:"1"`
	Stale     int  `json:"stale" example:"0"`
	Pruned    int  `json:"pruned" example:"0"`
	Failed    int  `json:"failed" example:"0"`
}
