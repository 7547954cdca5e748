// Package testutil provides shared test helpers for stores, clocks and the
// alarm platform.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/mindpulse/internal/alarm"
	"github.com/starford/mindpulse/internal/reminderstore"
	"github.com/starford/mindpulse/internal/storage"
)

// Epoch is the fixed starting instant of test clocks.
var Epoch = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestStore creates a reminder store over an in-memory provider.
func TestStore(t *testing.T) (*reminderstore.Store, storage.Provider) {
	t.Helper()
	p := storage.NewMemory()
	t.Cleanup(func() { p.Close() })
	return reminderstore.New(p, "", Logger()), p
}

// TestFileStore creates a reminder store over a temporary directory.
func TestFileStore(t *testing.T) (*reminderstore.Store, *storage.FS) {
	t.Helper()
	fs, err := storage.NewFS(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}
	return reminderstore.New(fs, "", Logger()), fs
}

// TestAlarms creates an in-memory alarm service driven by clock.
func TestAlarms(t *testing.T, clock *Clock) *alarm.Service {
	t.Helper()
	svc, err := alarm.New(context.Background(), alarm.WithClock(clock.Now), alarm.WithLogger(Logger()))
	if err != nil {
		t.Fatal(err)
	}
	return svc
}
