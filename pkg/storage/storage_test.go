package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "walletAddress")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "walletAddress", "0xabc"))
	v, ok, err := s.Get(ctx, "walletAddress")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0xabc", v)

	require.NoError(t, s.Set(ctx, "walletAddress", "0xdef"))
	v, _, err = s.Get(ctx, "walletAddress")
	require.NoError(t, err)
	assert.Equal(t, "0xdef", v)

	require.NoError(t, s.Delete(ctx, "walletAddress"))
	_, ok, err = s.Get(ctx, "walletAddress")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, "never-set"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	f, err := NewFile(path)
	require.NoError(t, err)
	exerciseStore(t, f)
}

func TestFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	f, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Set(ctx, "walletConnected", "true"))

	reopened, err := NewFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "walletConnected")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestFileRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFile(path)
	assert.Error(t, err)
}

func TestNamespacedIsolation(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	a := Namespaced(base, "session-a")
	b := Namespaced(base, "session-b")

	exerciseStore(t, a)

	require.NoError(t, a.Set(ctx, "walletConnected", "true"))
	_, ok, err := b.Get(ctx, "walletConnected")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := base.Get(ctx, "session-a:walletConnected")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), Config{Driver: "redis"})
	assert.Error(t, err)
}

func TestOpenMemoryDefault(t *testing.T) {
	s, closeFn, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &Memory{}, s)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("ARMADEX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ARMADEX_TEST_POSTGRES_DSN not set")
	}

	pg, err := NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer pg.Close()

	exerciseStore(t, Namespaced(pg, "test-"+t.Name()))
}
