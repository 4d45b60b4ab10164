package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/adorun/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	d := sqlite.NewDialect()
	db, err := d.Connect(ctx, ":memory:")
	require.NoError(t, err)
	st := New(db, d, Config{}.Tables())
	require.NoError(t, st.Ensure(ctx))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleRun(resource, op string, started time.Time) Run {
	return Run{
		Resource:   resource,
		Operation:  op,
		ItemCount:  2,
		Failed:     1,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Items: []RunItem{
			{Index: 0, Output: map[string]any{"id": "a1", "name": "Repo"}},
			{Index: 0, Output: map[string]any{"id": "a2", "name": "Other"}},
			{Index: 1, Failed: true, Output: map[string]any{"error": "repository \"x\" not found"}},
		},
	}
}

func TestStore_RecordAndListRuns(t *testing.T) {
	ctx := context.Background()
	st := openMemory(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	id1, err := st.RecordRun(ctx, sampleRun("git", "getRepository", start))
	require.NoError(t, err)
	aborted := sampleRun("wiki", "updatePage", start.Add(time.Hour))
	aborted.Aborted = true
	aborted.Error = "item 1: precondition failed"
	id2, err := st.RecordRun(ctx, aborted)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, id2, runs[0].ID)
	assert.Equal(t, "wiki", runs[0].Resource)
	assert.True(t, runs[0].Aborted)
	assert.Equal(t, "item 1: precondition failed", runs[0].Error)

	assert.Equal(t, "getRepository", runs[1].Operation)
	assert.False(t, runs[1].Aborted)
	assert.Empty(t, runs[1].Error)
	assert.Equal(t, 2, runs[1].ItemCount)
	assert.Equal(t, 1, runs[1].Failed)
	assert.True(t, start.Equal(runs[1].StartedAt))
	assert.True(t, start.Add(1500*time.Millisecond).Equal(runs[1].FinishedAt))

	limited, err := st.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, id2, limited[0].ID)
}

func TestStore_RunItems(t *testing.T) {
	ctx := context.Background()
	st := openMemory(t)
	id, err := st.RecordRun(ctx, sampleRun("git", "getRepository", time.Now()))
	require.NoError(t, err)

	items, err := st.RunItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 0, items[0].Index)
	assert.False(t, items[0].Failed)
	assert.Equal(t, "a1", items[0].Output["id"])
	assert.Equal(t, 0, items[1].Index)
	assert.Equal(t, 1, items[1].Seq)
	assert.True(t, items[2].Failed)
	assert.Equal(t, 1, items[2].Index)
	assert.Contains(t, items[2].Output["error"], "not found")

	none, err := st.RunItems(ctx, id+100)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_EnsureIsIdempotent(t *testing.T) {
	st := openMemory(t)
	require.NoError(t, st.Ensure(context.Background()))
}

func TestOpen_SQLiteFileWithPrefix(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")
	cfg := Config{Type: "sqlite", SQLite: sqlite.Config{Path: path}, TablePrefix: "nightly"}

	st, err := Open(ctx, cfg)
	require.NoError(t, err)
	_, err = st.RecordRun(ctx, sampleRun("board", "getAll", time.Now()))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	runs, err := reopened.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "board", runs[0].Resource)

	var n int
	require.NoError(t, reopened.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nightly_run_items").Scan(&n))
	assert.Equal(t, 3, n)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "mongo"})
	assert.ErrorContains(t, err, "invalid store config")

	_, err = Open(context.Background(), Config{Type: "postgres"})
	assert.ErrorContains(t, err, "requires dsn or host")
}

func TestStore_CloseNil(t *testing.T) {
	var st *Store
	assert.NoError(t, st.Close())
}

func TestStore_RunItemsKeepLargeIntegers(t *testing.T) {
	ctx := context.Background()
	st := openMemory(t)
	run := sampleRun("workItem", "get", time.Now())
	run.Items = []RunItem{{Index: 0, Output: map[string]any{"id": json.Number("9007199254740993")}}}
	id, err := st.RecordRun(ctx, run)
	require.NoError(t, err)

	items, err := st.RunItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, json.Number("9007199254740993"), items[0].Output["id"])
}
