// Package models defines the domain types for MindPulse.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultEmoji is used when a reminder is created without a glyph.
const DefaultEmoji = "🔔"

// Repeat is the recurrence policy of a reminder.
type Repeat uint8

// Recurrence policies. The zero value is RepeatNone.
const (
	RepeatNone Repeat = iota
	RepeatHourly
	RepeatDaily
	RepeatWeekly
)

var repeatNames = [...]string{
	RepeatNone:   "none",
	RepeatHourly: "hourly",
	RepeatDaily:  "daily",
	RepeatWeekly: "weekly",
}

// RepeatNames lists every accepted wire value, in declaration order.
func RepeatNames() []string {
	return repeatNames[:]
}

// ParseRepeat converts a wire value into a Repeat. An empty string is RepeatNone.
func ParseRepeat(s string) (Repeat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RepeatNone, nil
	}
	for i, name := range repeatNames {
		if name == s {
			return Repeat(i), nil
		}
	}
	return RepeatNone, fmt.Errorf("unknown repeat %q", s)
}

// String returns the wire value.
func (r Repeat) String() string {
	if int(r) < len(repeatNames) {
		return repeatNames[r]
	}
	return fmt.Sprintf("Repeat(%d)", uint8(r))
}

// Periodic reports whether the policy fires more than once.
func (r Repeat) Periodic() bool {
	return r.PeriodMinutes() > 0
}

// PeriodMinutes maps the policy to its fixed firing interval.
// RepeatNone (and anything unknown) has no period and returns 0.
func (r Repeat) PeriodMinutes() int {
	switch r {
	case RepeatHourly:
		return 60
	case RepeatDaily:
		return 1440
	case RepeatWeekly:
		return 10080
	default:
		return 0
	}
}

// Period is PeriodMinutes as a duration.
func (r Repeat) Period() time.Duration {
	return time.Duration(r.PeriodMinutes()) * time.Minute
}

// MarshalText implements encoding.TextMarshaler.
func (r Repeat) MarshalText() ([]byte, error) {
	if int(r) >= len(repeatNames) {
		return nil, fmt.Errorf("invalid repeat %d", uint8(r))
	}
	return []byte(repeatNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Repeat) UnmarshalText(text []byte) error {
	v, err := ParseRepeat(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Reminder is the sole persisted entity. Time and CreatedAt are epoch
// milliseconds, matching the persisted layout and the command protocol.
type Reminder struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Note      string `json:"note"`
	Time      int64  `json:"time"`
	Repeat    Repeat `json:"repeat"`
	Emoji     string `json:"emoji"`
	Done      bool   `json:"done"`
	CreatedAt int64  `json:"createdAt"`
}

// Anchor returns the first (or only) fire instant.
func (r Reminder) Anchor() time.Time {
	return time.UnixMilli(r.Time)
}

// Terminal reports whether the reminder can never fire again:
// completed and not recurring.
func (r Reminder) Terminal() bool {
	return r.Done && !r.Repeat.Periodic()
}

// NewReminderInput is the CREATE_REMINDER payload.
type NewReminderInput struct {
	Title  string `json:"title"`
	Note   string `json:"note,omitempty"`
	Time   int64  `json:"time"`
	Repeat string `json:"repeat,omitempty"`
	Emoji  string `json:"emoji,omitempty"`
}

// EpochMillis converts t to the wire representation.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
