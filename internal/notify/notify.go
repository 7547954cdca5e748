// Package notify turns fired reminders into user-visible alerts.
package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/mindpulse/internal/sse"
)

// Notifier produces an alert. It is fire-and-forget: delivery failures are
// the implementation's to log, never the caller's to handle.
type Notifier interface {
	Notify(ctx context.Context, title, body, emoji string)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, title, body, emoji string)

// Notify calls f.
func (f Func) Notify(ctx context.Context, title, body, emoji string) {
	f(ctx, title, body, emoji)
}

// Headline is the alert title shown to the user: the glyph then the title.
func Headline(title, emoji string) string {
	if emoji == "" {
		return title
	}
	return emoji + " " + title
}

// Body is the alert text: the note, or the title when there is no note.
func Body(title, note string) string {
	if strings.TrimSpace(note) == "" {
		return title
	}
	return note
}

// Log writes alerts to a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify logs the alert at info level.
func (l *Log) Notify(_ context.Context, title, body, emoji string) {
	l.logger.Info("reminder", slog.String("title", Headline(title, emoji)), slog.String("body", body))
}

// Publisher is the subset of the SSE broker Broker needs.
type Publisher interface {
	Publish(event sse.Event)
}

// Broker pushes alerts to presentation clients as reminder.alert events.
type Broker struct {
	pub Publisher
}

// NewBroker creates a Broker notifier.
func NewBroker(pub Publisher) *Broker {
	return &Broker{pub: pub}
}

// Notify publishes the alert.
func (b *Broker) Notify(_ context.Context, title, body, emoji string) {
	b.pub.Publish(sse.Event{
		Type: "reminder.alert",
		Data: map[string]string{
			"title": Headline(title, emoji),
			"body":  body,
			"emoji": emoji,
		},
	})
}

// Multi fans an alert out to every notifier in order.
type Multi []Notifier

// Notify calls every notifier.
func (m Multi) Notify(ctx context.Context, title, body, emoji string) {
	for _, n := range m {
		n.Notify(ctx, title, body, emoji)
	}
}
