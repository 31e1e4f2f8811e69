// Package storagetest содержит общие тесты для реализаций storage.Storage.
package storagetest

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewUser создает пользователя с уникальным именем
func NewUser(t *testing.T, store storage.Storage, prefix string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     prefix + "_" + uuid.New().String()[:8],
		PasswordHash: "hash",
	}
	require.NoError(t, store.CreateUser(context.Background(), user), "Ошибка при создании пользователя")
	return user
}

// Run прогоняет набор тестов на хранилище, которое возвращает newStore.
// Хранилище может быть общим для всех подтестов, поэтому данные не пересекаются.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	ctx := context.Background()

	t.Run("Users", func(t *testing.T) {
		store := newStore(t)
		alice := NewUser(t, store, "alice")

		got, err := store.GetUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.Username, got.Username)
		assert.Equal(t, "hash", got.PasswordHash)

		got, err = store.GetUserByUsername(ctx, alice.Username)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		dup := &models.User{ID: uuid.New().String(), Username: alice.Username}
		assert.ErrorIs(t, store.CreateUser(ctx, dup), storage.ErrAlreadyExists)

		_, err = store.GetUser(ctx, uuid.New().String())
		assert.ErrorIs(t, err, storage.ErrNotFound)

		bob := NewUser(t, store, "bob")
		users, err := store.GetUsers(ctx, []string{alice.ID, bob.ID, uuid.New().String()})
		require.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, bob.Username, users[bob.ID].Username)
	})

	t.Run("Groups", func(t *testing.T) {
		store := newStore(t)
		slug := "cats-" + uuid.New().String()[:8]
		group := &models.Group{Title: "Коты", Slug: slug, Description: "Про котов"}
		require.NoError(t, store.CreateGroup(ctx, group))
		assert.NotZero(t, group.ID)

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, group, got)

		assert.ErrorIs(t, store.CreateGroup(ctx, &models.Group{Title: "x", Slug: slug}), storage.ErrAlreadyExists)

		groups, err := store.ListGroups(ctx)
		require.NoError(t, err)
		assert.Contains(t, groups, group)

		_, err = store.GetGroup(ctx, group.ID+100000)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Posts", func(t *testing.T) {
		store := newStore(t)
		author := NewUser(t, store, "author")
		group := &models.Group{Title: "g", Slug: "g-" + uuid.New().String()[:8]}
		require.NoError(t, store.CreateGroup(ctx, group))

		image := "posts/cat.png"
		post := &models.Post{
			Text:      "Тестовый пост",
			AuthorID:  author.ID,
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
			GroupID:   &group.ID,
			Image:     &image,
		}
		require.NoError(t, store.CreatePost(ctx, post), "Ошибка при создании поста")
		assert.NotZero(t, post.ID)

		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err, "Ошибка при получении поста")
		assert.Equal(t, post.Text, got.Text)
		assert.Equal(t, post.AuthorID, got.AuthorID)
		assert.True(t, post.CreatedAt.Equal(got.CreatedAt), "Время создания не совпадает")
		require.NotNil(t, got.GroupID)
		assert.Equal(t, group.ID, *got.GroupID)
		require.NotNil(t, got.Image)
		assert.Equal(t, image, *got.Image)

		got.Text = "Обновленный текст"
		got.GroupID = nil
		require.NoError(t, store.UpdatePost(ctx, got))
		updated, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Обновленный текст", updated.Text)
		assert.Nil(t, updated.GroupID)

		missing := int64(100000)
		bad := &models.Post{Text: "x", AuthorID: author.ID, CreatedAt: time.Now(), GroupID: &missing}
		assert.ErrorIs(t, store.CreatePost(ctx, bad), storage.ErrInvalidReference)

		require.NoError(t, store.DeletePost(ctx, post.ID))
		_, err = store.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeletePost(ctx, post.ID), storage.ErrNotFound)
	})

	t.Run("ListPosts", func(t *testing.T) {
		store := newStore(t)
		author := NewUser(t, store, "lister")

		before, err := store.ListPosts(ctx, 0, 0)
		require.NoError(t, err)

		// Посты в будущем, чтобы быть первыми в общем хранилище
		base := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
		post1 := &models.Post{Text: "Пост 1", AuthorID: author.ID, CreatedAt: base}
		post2 := &models.Post{Text: "Пост 2", AuthorID: author.ID, CreatedAt: base.Add(time.Minute)}
		require.NoError(t, store.CreatePost(ctx, post1))
		require.NoError(t, store.CreatePost(ctx, post2))

		result, err := store.ListPosts(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, result.Posts, 1, "Ожидался один пост")
		assert.Equal(t, post2.ID, result.Posts[0].ID, "Ожидался более новый пост")
		assert.Equal(t, before.TotalCount+2, result.TotalCount, "Неверное общее количество постов")

		result, err = store.ListPosts(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, result.Posts, 1)
		assert.Equal(t, post1.ID, result.Posts[0].ID, "Ожидался более старый пост")

		result, err = store.ListPosts(ctx, 0, 0)
		require.NoError(t, err)
		assert.Len(t, result.Posts, before.TotalCount+2)

		result, err = store.ListPosts(ctx, math.MaxInt, 1)
		require.NoError(t, err)
		assert.Len(t, result.Posts, before.TotalCount+1, "Огромный limit не должен ломать выборку")

		result, err = store.ListPosts(ctx, 10, result.TotalCount+5)
		require.NoError(t, err)
		assert.Empty(t, result.Posts)
	})

	t.Run("Comments", func(t *testing.T) {
		store := newStore(t)
		author := NewUser(t, store, "commenter")
		post := &models.Post{Text: "Пост", AuthorID: author.ID, CreatedAt: time.Now().UTC()}
		other := &models.Post{Text: "Другой", AuthorID: author.ID, CreatedAt: time.Now().UTC()}
		require.NoError(t, store.CreatePost(ctx, post))
		require.NoError(t, store.CreatePost(ctx, other))

		comment := &models.Comment{
			PostID:    post.ID,
			AuthorID:  author.ID,
			Text:      "Тестовый комментарий",
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		require.NoError(t, store.CreateComment(ctx, comment), "Ошибка при создании комментария")
		assert.NotZero(t, comment.ID)

		comments, err := store.ListComments(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1, "Ожидался один комментарий")
		assert.Equal(t, comment.ID, comments[0].ID)

		comments, err = store.ListComments(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)

		_, err = store.GetComment(ctx, other.ID, comment.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound, "Комментарий чужого поста не должен находиться")

		got, err := store.GetComment(ctx, post.ID, comment.ID)
		require.NoError(t, err)
		got.Text = "Исправлено"
		require.NoError(t, store.UpdateComment(ctx, got))
		got, err = store.GetComment(ctx, post.ID, comment.ID)
		require.NoError(t, err)
		assert.Equal(t, "Исправлено", got.Text)

		bad := &models.Comment{PostID: other.ID + 100000, AuthorID: author.ID, Text: "x", CreatedAt: time.Now()}
		assert.ErrorIs(t, store.CreateComment(ctx, bad), storage.ErrInvalidReference)

		require.NoError(t, store.DeleteComment(ctx, comment.ID))
		_, err = store.GetComment(ctx, post.ID, comment.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Удаление поста удаляет его комментарии
		cascade := &models.Comment{PostID: other.ID, AuthorID: author.ID, Text: "c", CreatedAt: time.Now().UTC()}
		require.NoError(t, store.CreateComment(ctx, cascade))
		require.NoError(t, store.DeletePost(ctx, other.ID))
		_, err = store.GetComment(ctx, other.ID, cascade.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Follows", func(t *testing.T) {
		store := newStore(t)
		alice := NewUser(t, store, "alice")
		bob := NewUser(t, store, "bob")
		carol := NewUser(t, store, "carol")

		exists, err := store.FollowExists(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, store.CreateFollow(ctx, &models.Follow{UserID: alice.ID, FollowingID: bob.ID}))
		require.NoError(t, store.CreateFollow(ctx, &models.Follow{UserID: alice.ID, FollowingID: carol.ID}))
		require.NoError(t, store.CreateFollow(ctx, &models.Follow{UserID: bob.ID, FollowingID: alice.ID}))

		exists, err = store.FollowExists(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		err = store.CreateFollow(ctx, &models.Follow{UserID: alice.ID, FollowingID: bob.ID})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		err = store.CreateFollow(ctx, &models.Follow{UserID: alice.ID, FollowingID: alice.ID})
		assert.ErrorIs(t, err, storage.ErrSelfFollow)

		follows, err := store.ListFollows(ctx, alice.ID, "")
		require.NoError(t, err)
		assert.Len(t, follows, 2)
		for _, f := range follows {
			assert.Equal(t, alice.ID, f.UserID)
		}

		follows, err = store.ListFollows(ctx, alice.ID, "CAROL")
		require.NoError(t, err)
		require.Len(t, follows, 1)
		assert.Equal(t, carol.ID, follows[0].FollowingID)

		// Поиск по имени подписчика совпадает со всеми подписками пользователя
		follows, err = store.ListFollows(ctx, alice.ID, alice.Username)
		require.NoError(t, err)
		assert.Len(t, follows, 2)

		// Символы шаблонов LIKE ищутся буквально
		for _, search := range []string{"%", "c_rol", `\`} {
			follows, err = store.ListFollows(ctx, alice.ID, search)
			require.NoError(t, err)
			assert.Empty(t, follows, "Поиск %q должен быть буквальным", search)
		}
	})

	t.Run("ConcurrentFollow", func(t *testing.T) {
		store := newStore(t)
		alice := NewUser(t, store, "alice")
		bob := NewUser(t, store, "bob")

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.CreateFollow(ctx, &models.Follow{UserID: alice.ID, FollowingID: bob.ID})
			}()
		}
		wg.Wait()
		close(errs)

		created := 0
		for err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, storage.ErrAlreadyExists)
		}
		assert.Equal(t, 1, created, "Ожидалась ровно одна подписка")

		follows, err := store.ListFollows(ctx, alice.ID, "")
		require.NoError(t, err)
		assert.Len(t, follows, 1)
	})
}
