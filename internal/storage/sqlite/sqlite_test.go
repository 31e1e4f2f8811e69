package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/ButyrinIA/yatube/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		store, err := New(context.Background(), ":memory:")
		require.NoError(t, err, "Не удалось открыть sqlite в памяти")
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "yatube.db")

	store, err := New(ctx, path)
	require.NoError(t, err)
	user := storagetest.NewUser(t, store, "persisted")
	require.NoError(t, store.Close())

	store, err = New(ctx, path)
	require.NoError(t, err, "Повторное открытие базы со схемой завершилось ошибкой")
	defer store.Close()

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, got.Username)
}
