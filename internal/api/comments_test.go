package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments(t *testing.T) {
	a := newTestAPI(t)
	alice := a.user("alice")
	bob := a.user("bob")

	rr := a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": "пост"})
	require.Equal(t, http.StatusCreated, rr.Code)
	post := decode[postView](t, rr)
	rr = a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": "другой пост"})
	require.Equal(t, http.StatusCreated, rr.Code)
	other := decode[postView](t, rr)

	base := fmt.Sprintf("/api/v1/posts/%d/comments/", post.ID)

	t.Run("create ignores post and author in body", func(t *testing.T) {
		rr := a.do(http.MethodPost, base, bob, map[string]any{
			"text":   "комментарий",
			"post":   other.ID,
			"author": "alice",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		view := decode[commentView](t, rr)
		assert.Equal(t, post.ID, view.Post, "Пост берется из пути запроса")
		assert.Equal(t, "bob", view.Author)
		assert.Equal(t, "2024-05-01T12:00:00Z", view.Created)

		stored, err := a.store.GetComment(context.Background(), post.ID, view.ID)
		require.NoError(t, err)
		assert.Equal(t, bob.ID, stored.AuthorID)
	})

	t.Run("create requires auth and text", func(t *testing.T) {
		rr := a.do(http.MethodPost, base, nil, map[string]any{"text": "аноним"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = a.do(http.MethodPost, base, bob, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = a.do(http.MethodPost, "/api/v1/posts/999/comments/", bob, map[string]any{"text": "x"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("list by post", func(t *testing.T) {
		rr := a.do(http.MethodGet, base, nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		comments := decode[[]commentView](t, rr)
		require.Len(t, comments, 1)
		assert.Equal(t, "комментарий", comments[0].Text)

		rr = a.do(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments/", other.ID), nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decode[[]commentView](t, rr))

		rr = a.do(http.MethodGet, "/api/v1/posts/999/comments/", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decode[[]commentView](t, rr))
	})

	t.Run("ownership", func(t *testing.T) {
		rr := a.do(http.MethodPost, base, bob, map[string]any{"text": "мой комментарий"})
		require.Equal(t, http.StatusCreated, rr.Code)
		comment := decode[commentView](t, rr)
		path := fmt.Sprintf("%s%d/", base, comment.ID)

		rr = a.do(http.MethodPatch, path, alice, map[string]any{"text": "чужая правка"})
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "modifying someone else's content is forbidden", decode[detail](t, rr).Detail)

		rr = a.do(http.MethodDelete, path, alice, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "you cannot delete someone else's comment", decode[detail](t, rr).Detail)

		rr = a.do(http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "мой комментарий", decode[commentView](t, rr).Text)

		rr = a.do(http.MethodPut, path, bob, map[string]any{"text": "исправлено", "post": other.ID})
		require.Equal(t, http.StatusOK, rr.Code)
		updated := decode[commentView](t, rr)
		assert.Equal(t, "исправлено", updated.Text)
		assert.Equal(t, post.ID, updated.Post)

		// Комментарий недоступен по пути другого поста
		rr = a.do(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments/%d/", other.ID, comment.ID), nil, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = a.do(http.MethodDelete, path, bob, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = a.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestComments_PathPostIDWins(t *testing.T) {
	a := newTestAPI(t)
	alice := a.user("alice")

	// Посты 1..5, комментарий создается под пятым
	var last postView
	for i := 0; i < 5; i++ {
		rr := a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": fmt.Sprintf("пост %d", i)})
		require.Equal(t, http.StatusCreated, rr.Code)
		last = decode[postView](t, rr)
	}
	require.Equal(t, int64(5), last.ID)

	rr := a.do(http.MethodPost, "/api/v1/posts/5/comments/", alice, map[string]any{"text": "к пятому", "post": 1})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, int64(5), decode[commentView](t, rr).Post)
}
