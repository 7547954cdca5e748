// Package reminderstore persists the whole reminder collection as a single
// record of a durable key-value store.
package reminderstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/mindpulse/internal/apperr"
	"github.com/starford/mindpulse/internal/models"
	"github.com/starford/mindpulse/internal/storage"
)

// DefaultKey is the record the collection lives under.
const DefaultKey = "reminders"

// corruptSuffix names the backup record of a collection that failed to parse.
const corruptSuffix = ".corrupt"

// Store reads and writes the reminder collection. It holds no reminder
// cache: every Load goes to the provider. Entries the last Load could not
// decode are kept verbatim and written back by Save.
type Store struct {
	provider storage.Provider
	key      string
	logger   *slog.Logger

	mu         sync.Mutex
	unreadable []json.RawMessage
}

// New creates a Store over provider. An empty key selects DefaultKey.
func New(provider storage.Provider, key string, logger *slog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{provider: provider, key: key, logger: logger}
}

// Key returns the record key.
func (s *Store) Key() string {
	return s.key
}

// Load returns the collection in insertion order. A missing record is an
// empty collection. A malformed record is copied to key+".corrupt" and read
// as empty. Entries that cannot be decoded are skipped here and preserved
// by the next Save. Only provider failures are reported, wrapped in
// apperr.ErrPersistence.
func (s *Store) Load(ctx context.Context) ([]models.Reminder, error) {
	data, err := s.provider.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.setUnreadable(nil)
			return []models.Reminder{}, nil
		}
		return nil, fmt.Errorf("reminderstore: load: %w: %w", apperr.ErrPersistence, err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.backupCorrupt(ctx, data, err)
		s.setUnreadable(nil)
		return []models.Reminder{}, nil
	}
	list, skipped := s.decode(raw)
	s.setUnreadable(skipped)
	return list, nil
}

// Save replaces the persisted collection with list. Entries the last Load
// skipped follow the reminders unchanged.
func (s *Store) Save(ctx context.Context, list []models.Reminder) error {
	if list == nil {
		list = []models.Reminder{}
	}
	var payload any = list
	s.mu.Lock()
	if len(s.unreadable) > 0 {
		items := make([]any, 0, len(list)+len(s.unreadable))
		for _, r := range list {
			items = append(items, r)
		}
		for _, raw := range s.unreadable {
			items = append(items, raw)
		}
		payload = items
	}
	s.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("reminderstore: encode: %w", err)
	}
	if err := s.provider.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("reminderstore: save: %w: %w", apperr.ErrPersistence, err)
	}
	return nil
}

func (s *Store) setUnreadable(raw []json.RawMessage) {
	s.mu.Lock()
	s.unreadable = raw
	s.mu.Unlock()
}

// backupCorrupt keeps the unparsable record so the next Save cannot lose it.
func (s *Store) backupCorrupt(ctx context.Context, data []byte, cause error) {
	backup := s.key + corruptSuffix
	attrs := []any{
		slog.String("key", s.key),
		slog.String("backup", backup),
		slog.String("error", cause.Error()),
	}
	if err := s.provider.Put(ctx, backup, data); err != nil {
		attrs = append(attrs, slog.String("backup_error", err.Error()))
	}
	s.logger.Error("reminderstore: malformed collection, treating as empty", attrs...)
}

func (s *Store) decode(raw []json.RawMessage) (list []models.Reminder, skipped []json.RawMessage) {
	list = make([]models.Reminder, 0, len(raw))
	for i, item := range raw {
		var r models.Reminder
		if err := json.Unmarshal(item, &r); err != nil || r.ID == "" {
			reason := "missing id"
			if err != nil {
				reason = err.Error()
			}
			s.logger.Error("reminderstore: skipping undecodable entry, it will be kept on save",
				slog.String("key", s.key), slog.Int("index", i), slog.String("error", reason))
			skipped = append(skipped, item)
			continue
		}
		list = append(list, r)
	}
	return list, skipped
}
