package storage

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/esoteric-daily/internal/domain"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFile(filepath.Join(t.TempDir(), "daily"))
	require.NoError(t, err)

	lite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "esoteric.db"), "daily_entries")
	require.NoError(t, err)

	t.Cleanup(func() { _ = lite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": lite,
	}
}

func TestStores_Contract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "daily_esoteric_2024-06-01")
			require.Error(t, err)
			assert.True(t, domain.IsNotFound(err))

			require.NoError(t, store.Put(ctx, "daily_esoteric_2024-06-01", []byte(`{"v":1}`)))
			require.NoError(t, store.Put(ctx, "daily_esoteric_2024-06-01", []byte(`{"v":2}`)))
			require.NoError(t, store.Put(ctx, "daily_esoteric_2024-05-31", []byte(`{"v":3}`)))
			require.NoError(t, store.Put(ctx, "other_2024-06-01", []byte(`{}`)))

			got, err := store.Get(ctx, "daily_esoteric_2024-06-01")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":2}`, string(got))

			keys, err := store.Keys(ctx, "daily_esoteric_")
			require.NoError(t, err)
			slices.Sort(keys)
			assert.Equal(t, []string{"daily_esoteric_2024-05-31", "daily_esoteric_2024-06-01"}, keys)

			require.NoError(t, store.Delete(ctx, "daily_esoteric_2024-06-01"))
			require.NoError(t, store.Delete(ctx, "daily_esoteric_2024-06-01"))

			_, err = store.Get(ctx, "daily_esoteric_2024-06-01")
			assert.True(t, domain.IsNotFound(err))

			assert.NoError(t, store.Check(ctx))
			assert.NotEmpty(t, store.Name())
		})
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	value := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", value))
	value[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[0] = 'y'
	again, _ := store.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestFile_RejectsUnsafeKeys(t *testing.T) {
	store, err := NewFile(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "nested/key", ".hidden"} {
		err := store.Put(context.Background(), key, []byte("x"))
		require.Error(t, err, key)
		assert.True(t, domain.IsValidation(err), key)
	}
}

func TestFile_IgnoresTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "daily_esoteric_2024-06-01", []byte("{}")))

	matches, err := filepath.Glob(filepath.Join(dir, ".esoteric-tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files are renamed into place")
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "esoteric.db")

	first, err := OpenSQLite(ctx, path, "daily_entries")
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "daily_esoteric_2024-06-01", []byte(`{"date":"2024-06-01"}`)))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path, "daily_entries")
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.Get(ctx, "daily_esoteric_2024-06-01")
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-06-01"}`, string(got))
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, config.CacheConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, mem)

	file, err := Open(ctx, config.CacheConfig{Driver: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, file)

	lite, err := Open(ctx, config.CacheConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "x.db"), Table: "daily_entries"})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, lite)
	require.NoError(t, lite.Close())

	_, err = Open(ctx, config.CacheConfig{Driver: "redis"})
	assert.ErrorContains(t, err, "unknown driver")
}
