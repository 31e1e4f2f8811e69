package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/ButyrinIA/yatube/internal/storage/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t       *testing.T
	store   storage.Storage
	hub     *CommentHub
	handler http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWith(t, memory.New(), NewCommentHub())
}

// newTestAPIWith собирает обработчики поверх переданного хранилища
func newTestAPIWith(t *testing.T, store storage.Storage, hub *CommentHub) *testAPI {
	t.Helper()
	h := New(store, hub)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	mux := http.NewServeMux()
	h.Register(mux)
	return &testAPI{t: t, store: store, hub: hub, handler: Loaders(store, mux)}
}

func (a *testAPI) user(username string) *models.User {
	a.t.Helper()
	user := &models.User{ID: uuid.New().String(), Username: username, PasswordHash: "hash"}
	require.NoError(a.t, a.store.CreateUser(context.Background(), user))
	return user
}

func (a *testAPI) group(slug string) *models.Group {
	a.t.Helper()
	group := &models.Group{Title: slug, Slug: slug, Description: "описание " + slug}
	require.NoError(a.t, a.store.CreateGroup(context.Background(), group))
	return group
}

// do выполняет запрос от имени user; nil означает анонимный запрос
func (a *testAPI) do(method, path string, user *models.User, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(WithRequester(req.Context(), user.ID))
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "Некорректный JSON: %s", rr.Body.String())
	return v
}
