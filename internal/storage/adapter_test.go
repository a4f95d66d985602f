package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[string]Adapter {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileAdapter(filepath.Join(dir, "files"))
	require.NoError(t, err)
	bolt, err := OpenBolt(filepath.Join(dir, "history.bolt"))
	require.NoError(t, err)
	sqlite, err := OpenSQLite(filepath.Join(dir, "history.db"))
	require.NoError(t, err)

	adapters := map[string]Adapter{
		DriverMemory: NewMemoryAdapter(),
		DriverFile:   file,
		DriverBolt:   bolt,
		DriverSQLite: sqlite,
	}
	t.Cleanup(func() {
		for _, a := range adapters {
			_ = a.Close()
		}
	})
	return adapters
}

func TestAdaptersSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	for name, adapter := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := adapter.Load(ctx, "legalChatHistory")
			require.NoError(t, err)
			assert.False(t, ok, "fresh key must be absent")

			require.NoError(t, adapter.Save(ctx, "legalChatHistory", []byte(`[{"id":"a"}]`)))
			require.NoError(t, adapter.Save(ctx, "legalChatHistory", []byte(`[{"id":"b"}]`)))

			data, ok, err := adapter.Load(ctx, "legalChatHistory")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `[{"id":"b"}]`, string(data))

			keys, err := adapter.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"legalChatHistory"}, keys)

			require.NoError(t, adapter.Clear(ctx, "legalChatHistory"))
			require.NoError(t, adapter.Clear(ctx, "legalChatHistory"), "clearing twice is fine")

			_, ok, err = adapter.Load(ctx, "legalChatHistory")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestAdaptersRejectPathLikeKeys(t *testing.T) {
	ctx := context.Background()
	for name, adapter := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			err := adapter.Save(ctx, "../escape", []byte("x"))
			assert.True(t, errors.Is(err, ErrInvalidKey))
		})
	}
}

func TestMemoryAdapterFailSaves(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	m.SetFailSaves(true)

	err := m.Save(ctx, "summaryHistory", []byte("[]"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 1, m.Saves())
	assert.False(t, m.Has("summaryHistory"))
}

func TestFileAdapterSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileAdapter(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "citationChatHistory", []byte(`[]`)))

	second, err := NewFileAdapter(dir)
	require.NoError(t, err)
	data, ok, err := second.Load(ctx, "citationChatHistory")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(data))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis"})
	assert.Error(t, err)

	a, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryAdapter{}, a)
}
