// Package view holds presentation helpers over a reminder collection. The
// core commands never filter or sort; adapters that render lists use these.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/mindpulse/internal/models"
)

// Filter selects a subset of the collection.
type Filter string

// Filters.
const (
	FilterAll     Filter = "all"
	FilterPending Filter = "pending"
	FilterDone    Filter = "done"
)

// ParseFilter accepts all, pending or done. Empty means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending, FilterDone:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Apply returns the reminders matching f in their original order. The input
// is not modified.
func Apply(list []models.Reminder, f Filter) []models.Reminder {
	out := make([]models.Reminder, 0, len(list))
	for _, r := range list {
		switch f {
		case FilterPending:
			if r.Done {
				continue
			}
		case FilterDone:
			if !r.Done {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Sort orders a copy of list: pending before done, then by time, then by
// creation.
func Sort(list []models.Reminder) []models.Reminder {
	out := append([]models.Reminder(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Done != b.Done {
			return !a.Done
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.CreatedAt < b.CreatedAt
	})
	return out
}

// Stats counts the collection.
type Stats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Done    int `json:"done"`
}

// Count computes Stats.
func Count(list []models.Reminder) Stats {
	s := Stats{Total: len(list)}
	for _, r := range list {
		if r.Done {
			s.Done++
		} else {
			s.Pending++
		}
	}
	return s
}

// Overdue reports whether a one-shot reminder passed without being done.
func Overdue(r models.Reminder, now time.Time) bool {
	return !r.Done && r.Repeat == models.RepeatNone && r.Time < now.UnixMilli()
}

// Item is a reminder annotated for display.
type Item struct {
	models.Reminder
	Overdue bool `json:"overdue"`
}

// Decorate annotates every reminder.
func Decorate(list []models.Reminder, now time.Time) []Item {
	out := make([]Item, len(list))
	for i, r := range list {
		out[i] = Item{Reminder: r, Overdue: Overdue(r, now)}
	}
	return out
}
