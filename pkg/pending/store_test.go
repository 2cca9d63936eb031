package pending

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)

func action(id string, ttl time.Duration) Action {
	return Action{
		ID:        id,
		Action:    Defer,
		TaskID:    "task-" + id,
		UserID:    "u1",
		Details:   Details{Days: 3},
		CreatedAt: base,
		ExpiresAt: base.Add(ttl),
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "nested", "state.json")),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, got)

			want := action("pa_1", 30*time.Minute)
			require.NoError(t, s.Put(ctx, want))

			got, err = s.Get(ctx, "pa_1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, want.TaskID, got.TaskID)
			assert.Equal(t, want.Action, got.Action)
			assert.Equal(t, 3, got.Details.Days)
			assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

			require.NoError(t, s.Delete(ctx, "pa_1"))
			got, err = s.Get(ctx, "pa_1")
			require.NoError(t, err)
			assert.Nil(t, got)

			require.NoError(t, s.Delete(ctx, "pa_1"))
		})
	}
}

func TestStorePruneExpired(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, action("old", time.Minute)))
			require.NoError(t, s.Put(ctx, action("edge", 5*time.Minute)))
			require.NoError(t, s.Put(ctx, action("fresh", 30*time.Minute)))

			now := base.Add(5 * time.Minute)

			got, err := s.Get(ctx, "old")
			require.NoError(t, err)
			assert.NotNil(t, got, "expired entries stay visible until pruned")

			n, err := s.PruneExpired(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			for _, id := range []string{"old", "edge"} {
				got, err := s.Get(ctx, id)
				require.NoError(t, err)
				assert.Nil(t, got, id)
			}
			got, err = s.Get(ctx, "fresh")
			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}
}

func TestStorePruneMatchesExpiredBoundary(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := action("sub_ms", 500*time.Microsecond)
			require.NoError(t, s.Put(ctx, a))

			require.False(t, a.Expired(base))
			n, err := s.PruneExpired(ctx, base)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
			got, err := s.Get(ctx, "sub_ms")
			require.NoError(t, err)
			assert.NotNil(t, got)

			now := base.Add(500 * time.Microsecond)
			require.True(t, a.Expired(now))
			n, err = s.PruneExpired(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, NewFileStore(path).Put(ctx, action("pa_1", time.Hour)))

	got, err := NewFileStore(path).Get(ctx, "pa_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pending"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileStoreToleratesMissingPendingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	s := NewFileStore(path)
	require.NoError(t, s.Put(context.Background(), action("pa_1", time.Hour)))
	got, err := s.Get(context.Background(), "pa_1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0600))

	_, err := NewFileStore(path).Get(context.Background(), "x")
	assert.Error(t, err)
}

func TestActionExpired(t *testing.T) {
	a := action("x", time.Minute)
	assert.False(t, a.Expired(base))
	assert.True(t, a.Expired(base.Add(time.Minute)))
	assert.True(t, a.Expired(base.Add(time.Hour)))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("file", filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open("sqlite", filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", "")
	assert.Error(t, err)
}
