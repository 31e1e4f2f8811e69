package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/ButyrinIA/yatube/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return New()
	})
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()
	author := storagetest.NewUser(t, store, "author")

	post := &models.Post{Text: "Оригинал", AuthorID: author.ID, CreatedAt: time.Now()}
	require.NoError(t, store.CreatePost(ctx, post))

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	got.Text = "Изменено без UpdatePost"

	again, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Оригинал", again.Text, "Хранилище не должно отдавать внутренние указатели")
}

func TestMemoryStorage_Close(t *testing.T) {
	store := New()
	ctx := context.Background()
	author := storagetest.NewUser(t, store, "author")

	post := &models.Post{Text: "Тестовый пост", AuthorID: author.ID, CreatedAt: time.Now()}
	require.NoError(t, store.CreatePost(ctx, post))

	assert.NoError(t, store.Close(), "Ошибка при закрытии хранилища")

	_, err := store.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "Ожидалась ошибка после очистки хранилища")
}
