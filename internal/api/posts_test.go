package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	a := newTestAPI(t)
	alice := a.user("alice")
	mallory := a.user("mallory")
	group := a.group("cats")

	rr := a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{
		"text":   "Первый пост",
		"group":  group.ID,
		"author": mallory.Username,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	view := decode[postView](t, rr)
	assert.Equal(t, "Первый пост", view.Text)
	assert.Equal(t, "alice", view.Author, "Автор должен совпадать с отправителем запроса")
	require.NotNil(t, view.Group)
	assert.Equal(t, group.ID, *view.Group)
	assert.Nil(t, view.Image)
	assert.Equal(t, "2024-05-01T12:00:00Z", view.PubDate)

	stored, err := a.store.GetPost(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, stored.AuthorID)
}

func TestCreatePost_Validation(t *testing.T) {
	a := newTestAPI(t)
	alice := a.user("alice")

	rr := a.do(http.MethodPost, "/api/v1/posts/", nil, map[string]any{"text": "аноним"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"This field is required."}, decode[FieldErrors](t, rr)["text"])

	rr = a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": "x", "group": 999})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[FieldErrors](t, rr), "group")

	rr = a.do(http.MethodPost, "/api/v1/posts/", alice, "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	result, err := a.store.ListPosts(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount, "Некорректные запросы не должны создавать посты")
}

type postPage struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []postView `json:"results"`
}

func TestListPosts_Pagination(t *testing.T) {
	a := newTestAPI(t)
	alice := a.user("alice")
	for i := 0; i < 5; i++ {
		rr := a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": fmt.Sprintf("пост %d", i)})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := a.do(http.MethodGet, "/api/v1/posts/", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]postView](t, rr), 5, "Без limit список не разбивается на страницы")

	rr = a.do(http.MethodGet, "/api/v1/posts/?limit=2&offset=2", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[postPage](t, rr)
	assert.Equal(t, 5, page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/api/v1/posts/?limit=2&offset=4", *page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/api/v1/posts/?limit=2", *page.Previous)

	rr = a.do(http.MethodGet, "/api/v1/posts/?limit=2&offset=4", nil, nil)
	page = decode[postPage](t, rr)
	assert.Len(t, page.Results, 1)
	assert.Nil(t, page.Next)
}

func TestListPosts_HugeLimit(t *testing.T) {
	a := newTestAPI(t)
	alice := a.user("alice")
	for i := 0; i < 3; i++ {
		rr := a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": fmt.Sprintf("пост %d", i)})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := a.do(http.MethodGet, "/api/v1/posts/?limit=9223372036854775807&offset=1", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := decode[postPage](t, rr)
	assert.Equal(t, 3, page.Count)
	assert.Len(t, page.Results, 2)
	assert.Nil(t, page.Next, "Следующей страницы нет")
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/api/v1/posts/?limit=9223372036854775807", *page.Previous)
}

func TestGetPost_NotFound(t *testing.T) {
	a := newTestAPI(t)

	rr := a.do(http.MethodGet, "/api/v1/posts/42/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = a.do(http.MethodGet, "/api/v1/posts/abc/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdatePost_Ownership(t *testing.T) {
	a := newTestAPI(t)
	alice := a.user("alice")
	bob := a.user("bob")

	group := a.group("cats")

	rr := a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": "оригинал", "image": "cat.png", "group": group.ID})
	require.Equal(t, http.StatusCreated, rr.Code)
	post := decode[postView](t, rr)
	path := fmt.Sprintf("/api/v1/posts/%d/", post.ID)

	rr = a.do(http.MethodPatch, path, bob, map[string]any{"text": "взлом"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "modifying someone else's content is forbidden", decode[detail](t, rr).Detail)

	rr = a.do(http.MethodPut, path, bob, map[string]any{"text": "взлом"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = a.do(http.MethodPatch, path, nil, map[string]any{"text": "аноним"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	stored, err := a.store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "оригинал", stored.Text, "Пост не должен измениться")

	// PATCH сохраняет неуказанные поля
	rr = a.do(http.MethodPatch, path, alice, map[string]any{"text": "исправлено"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[postView](t, rr)
	assert.Equal(t, "исправлено", updated.Text)
	require.NotNil(t, updated.Image)
	assert.Equal(t, "cat.png", *updated.Image)

	// PUT требует text, но не трогает неуказанные необязательные поля
	rr = a.do(http.MethodPut, path, alice, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(http.MethodPut, path, alice, map[string]any{"text": "заново"})
	require.Equal(t, http.StatusOK, rr.Code)
	updated = decode[postView](t, rr)
	assert.Equal(t, "заново", updated.Text)
	require.NotNil(t, updated.Image)
	assert.Equal(t, "cat.png", *updated.Image)
	require.NotNil(t, updated.Group)
	assert.Equal(t, group.ID, *updated.Group)
	assert.Equal(t, "alice", updated.Author)

	stored, err = a.store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GroupID)
	assert.Equal(t, group.ID, *stored.GroupID)

	// явный null очищает поле
	rr = a.do(http.MethodPut, path, alice, map[string]any{"text": "без картинки", "image": nil, "group": nil})
	require.Equal(t, http.StatusOK, rr.Code)
	updated = decode[postView](t, rr)
	assert.Nil(t, updated.Image)
	assert.Nil(t, updated.Group)
}

func TestDeletePost_Ownership(t *testing.T) {
	a := newTestAPI(t)
	alice := a.user("alice")
	bob := a.user("bob")

	rr := a.do(http.MethodPost, "/api/v1/posts/", alice, map[string]any{"text": "пост"})
	require.Equal(t, http.StatusCreated, rr.Code)
	post := decode[postView](t, rr)
	path := fmt.Sprintf("/api/v1/posts/%d/", post.ID)

	rr = a.do(http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "you cannot delete someone else's post", decode[detail](t, rr).Detail)

	_, err := a.store.GetPost(context.Background(), post.ID)
	require.NoError(t, err, "Пост не должен быть удален")

	rr = a.do(http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = a.do(http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = a.do(http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGroups(t *testing.T) {
	a := newTestAPI(t)
	cats := a.group("cats")
	a.group("travel")

	rr := a.do(http.MethodGet, "/api/v1/groups/", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	groups := decode[[]groupView](t, rr)
	require.Len(t, groups, 2)
	assert.Equal(t, "cats", groups[0].Slug)

	rr = a.do(http.MethodGet, fmt.Sprintf("/api/v1/groups/%d/", cats.ID), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, renderGroup(cats), decode[groupView](t, rr))

	rr = a.do(http.MethodGet, "/api/v1/groups/999/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	alice := a.user("alice")
	rr = a.do(http.MethodPost, "/api/v1/groups/", alice, map[string]any{"title": "x", "slug": "x"})
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, "Группы доступны только для чтения")
}
