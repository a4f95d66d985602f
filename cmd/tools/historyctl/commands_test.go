package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lexdesk/backend/internal/service/assistant"
	"github.com/zhouzirui/lexdesk/backend/internal/storage"
)

const seeded = `[
 {"id":"a","createdAt":"2025-01-02T10:00:00Z","inputPayload":"older question","inputKind":"text","result":{"response":"x"},"derivedMetrics":{},"liked":null,"bookmarked":false},
 {"id":"b","createdAt":"2025-01-03T10:00:00Z","inputPayload":"newer question","inputKind":"text","result":{"response":"y"},"derivedMetrics":{},"liked":true,"bookmarked":true}
]`

func memoryOpener(m *storage.MemoryAdapter) opener {
	return func() (storage.Adapter, error) { return m, nil }
}

func TestListNewestFirst(t *testing.T) {
	m := storage.NewMemoryAdapter()
	m.Seed(assistant.ChatKey, []byte(seeded))

	var out bytes.Buffer
	require.NoError(t, runList(context.Background(), memoryOpener(m), "chat", 0, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "b "))
	assert.Contains(t, lines[1], "liked")
	assert.True(t, strings.HasPrefix(lines[2], "a "))
}

func TestListEmptyAndUnknown(t *testing.T) {
	m := storage.NewMemoryAdapter()

	var out bytes.Buffer
	require.NoError(t, runList(context.Background(), memoryOpener(m), "summary", 5, &out))
	assert.Equal(t, "no summary history\n", out.String())

	err := runList(context.Background(), memoryOpener(m), "speech", 5, &out)
	assert.ErrorContains(t, err, "unknown feature")
}

func TestExportWritesFile(t *testing.T) {
	m := storage.NewMemoryAdapter()
	m.Seed(assistant.ChatKey, []byte(seeded))
	dest := filepath.Join(t.TempDir(), "chat.json")

	var out bytes.Buffer
	require.NoError(t, runExport(context.Background(), memoryOpener(m), "chat", dest, &out))
	assert.Contains(t, out.String(), "exported 2 records")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": "b"`)
}

func TestExportEmptyToStdout(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runExport(context.Background(), memoryOpener(storage.NewMemoryAdapter()), "citation", "-", &out))
	assert.Equal(t, "[]\n", out.String())
}

func TestClearRemovesKey(t *testing.T) {
	m := storage.NewMemoryAdapter()
	m.Seed(assistant.AnalysisKey, []byte(seeded))

	var out bytes.Buffer
	require.NoError(t, runClear(context.Background(), memoryOpener(m), "analysis", &out))
	assert.False(t, m.Has(assistant.AnalysisKey))

	out.Reset()
	require.NoError(t, runKeys(context.Background(), memoryOpener(m), &out))
	assert.Empty(t, out.String())
}
