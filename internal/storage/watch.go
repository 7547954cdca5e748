package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after the watched file settled with new content.
type ChangeCallback func()

// WatchFile watches a single data file for changes made by other writers
// until ctx is cancelled. The parent directory is watched because atomic
// writes replace the file's inode. Bursts of events are debounced, and a
// change is reported only when the file's checksum differs from the last
// one seen (so content rewritten byte-for-byte is ignored).
func WatchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	lastSum := fileSum(abs)
	logger.Info("watcher: started", slog.String("path", abs))

	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			settleCh = nil
			sum := fileSum(abs)
			if sum == lastSum {
				continue
			}
			lastSum = sum
			logger.Debug("watcher: data file changed", slog.String("path", abs))
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if settleTimer == nil {
				settleTimer = time.NewTimer(debounce)
			} else {
				settleTimer.Reset(debounce)
			}
			settleCh = settleTimer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// fileSum returns the hex SHA-256 of the file, or "" when it cannot be read.
func fileSum(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
