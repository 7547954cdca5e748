package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mindpulse/internal/apperr"
)

// runProviderTests exercises the Provider contract shared by every backend.
func runProviderTests(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	_, err := p.Get(ctx, "reminders")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, p.Put(ctx, "reminders", []byte(`[{"id":"a"}]`)))
	got, err := p.Get(ctx, "reminders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(got))

	require.NoError(t, p.Put(ctx, "reminders", []byte(`[]`)))
	got, err = p.Get(ctx, "reminders")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	// Mutating the returned slice must not affect stored data.
	got[0] = 'X'
	again, err := p.Get(ctx, "reminders")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(again))
}

func TestMemoryProvider(t *testing.T) {
	runProviderTests(t, NewMemory())
}

func TestFSProvider(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	runProviderTests(t, fs)
}

func TestSQLiteProvider(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	runProviderTests(t, s)
}

func TestBadgerProvider_InMemory(t *testing.T) {
	b, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	runProviderTests(t, b)
}

func TestBadgerProvider_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	ctx := context.Background()

	b, err := OpenBadger(BadgerConfig{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, "reminders", []byte(`["persisted"]`)))
	require.NoError(t, b.Close())

	b2, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer b2.Close()

	got, err := b2.Get(ctx, "reminders")
	require.NoError(t, err)
	assert.Equal(t, `["persisted"]`, string(got))
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestSQLiteProvider_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}
