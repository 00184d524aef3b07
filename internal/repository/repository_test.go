package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, KeyCart)
	require.True(t, errors.Is(err, ErrNotFound), "Get on missing key = %v, want ErrNotFound", err)

	_, ok, err := Load[[]cartLine](ctx, s, KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []cartLine{{ID: "7", Quantity: 2}}
	require.NoError(t, Save(ctx, s, KeyCart, want))

	got, ok, err := Load[[]cartLine](ctx, s, KeyCart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, Save(ctx, s, KeyCart, []cartLine{}))
	got, ok, err = Load[[]cartLine](ctx, s, KeyCart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got)

	require.NoError(t, Remove(ctx, s, KeyCart))
	require.NoError(t, Remove(ctx, s, KeyCart))

	_, ok, err = Load[[]cartLine](ctx, s, KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestFileStoragePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, Save(ctx, first, KeyAccessToken, "token-1"))

	second, err := NewFileStorage(dir)
	require.NoError(t, err)
	token, ok, err := Load[string](ctx, second, KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "token-1", token)
}

func TestFileStorageRejectsPathKeys(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	err = s.Set(context.Background(), "../escape", []byte(`{}`))
	assert.Error(t, err)
}

func TestLoadReportsCorruptValue(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, s.Set(context.Background(), KeyOrders, []byte("{not-json")))

	_, _, err := Load[[]cartLine](context.Background(), s, KeyOrders)
	assert.Error(t, err)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "sqlite"})
	assert.Error(t, err)
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI not set")
	}
	s, err := NewPostgresStorage(dsn, t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStorage(t, s)
}
