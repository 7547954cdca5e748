package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatchFile_ReportsExternalChange(t *testing.T) {
	s := tempFS(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = s.Put(ctx, "reminders", []byte(`[]`))
	path, _ := s.Path("reminders")
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	var calls atomic.Int32
	go WatchFile(ctx, path, 50*time.Millisecond, logger, func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	_ = s.Put(ctx, "reminders", []byte(`[{"id":"x"}]`))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "expected change callback")
}

func TestWatchFile_IgnoresSameContentAndOtherFiles(t *testing.T) {
	s := tempFS(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = s.Put(ctx, "reminders", []byte(`[]`))
	path, _ := s.Path("reminders")
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	var calls atomic.Int32
	go WatchFile(ctx, path, 50*time.Millisecond, logger, func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	_ = s.Put(ctx, "reminders", []byte(`[]`))
	_ = os.WriteFile(filepath.Join(s.root, "other.json"), []byte("{}"), 0o644)

	time.Sleep(400 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callbacks = %d, want 0", n)
	}
}
