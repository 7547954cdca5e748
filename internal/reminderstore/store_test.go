package reminderstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/mindpulse/internal/apperr"
	"github.com/starford/mindpulse/internal/models"
	"github.com/starford/mindpulse/internal/storage"
)

type brokenProvider struct{}

func (brokenProvider) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}
func (brokenProvider) Put(context.Context, string, []byte) error { return errors.New("disk on fire") }
func (brokenProvider) Close() error                              { return nil }

func TestLoadMissingIsEmpty(t *testing.T) {
	s := New(storage.NewMemory(), "", nil)
	list, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("list = %#v, want empty non-nil", list)
	}
	if s.Key() != DefaultKey {
		t.Errorf("key = %q", s.Key())
	}
}

func TestSaveLoadKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory(), "", nil)
	in := []models.Reminder{
		{ID: "b", Title: "second", Time: 2},
		{ID: "a", Title: "first", Time: 1, Repeat: models.RepeatWeekly},
	}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "a" || out[1].Repeat != models.RepeatWeekly {
		t.Errorf("out = %+v", out)
	}
}

func TestLoadMalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	p := storage.NewMemory()
	_ = p.Put(ctx, DefaultKey, []byte(`{"not":"a list"}`))
	out, err := New(p, "", nil).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %+v, want empty", out)
	}
}

func TestLoadSkipsBadEntries(t *testing.T) {
	ctx := context.Background()
	p := storage.NewMemory()
	_ = p.Put(ctx, DefaultKey, []byte(`[{"id":"ok","title":"a"},{"id":"bad","repeat":"yearly"},{"title":"no id"},42]`))
	out, err := New(p, "", nil).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0].ID != "ok" {
		t.Errorf("out = %+v", out)
	}
}

func TestProviderFailureIsPersistenceError(t *testing.T) {
	s := New(brokenProvider{}, "", nil)
	if _, err := s.Load(context.Background()); !errors.Is(err, apperr.ErrPersistence) {
		t.Errorf("Load err = %v, want ErrPersistence", err)
	}
	if err := s.Save(context.Background(), nil); !errors.Is(err, apperr.ErrPersistence) {
		t.Errorf("Save err = %v, want ErrPersistence", err)
	}
}

func TestSaveKeepsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	p := storage.NewMemory()
	_ = p.Put(ctx, DefaultKey, []byte(`[{"id":"ok","title":"a"},{"id":"bad","repeat":"yearly"}]`))
	s := New(p, "", nil)

	list, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	list = append(list, models.Reminder{ID: "new", Title: "b"})
	if err := s.Save(ctx, list); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := p.Get(ctx, DefaultKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	ids := make([]any, 0, len(raw))
	for _, item := range raw {
		ids = append(ids, item["id"])
	}
	if len(ids) != 3 || ids[0] != "ok" || ids[1] != "new" || ids[2] != "bad" {
		t.Fatalf("persisted ids = %v, want [ok new bad]", ids)
	}
	if raw[2]["repeat"] != "yearly" {
		t.Errorf("skipped entry rewritten: %s", data)
	}

	again, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(again) != 2 {
		t.Errorf("again = %+v", again)
	}
}

func TestLoadMalformedBacksUpRecord(t *testing.T) {
	ctx := context.Background()
	p := storage.NewMemory()
	corrupt := []byte(`[{"id":"ok"`)
	_ = p.Put(ctx, DefaultKey, corrupt)
	s := New(p, "", nil)

	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Save(ctx, []models.Reminder{{ID: "fresh"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	backup, err := p.Get(ctx, DefaultKey+".corrupt")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if string(backup) != string(corrupt) {
		t.Errorf("backup = %q, want %q", backup, corrupt)
	}
}
