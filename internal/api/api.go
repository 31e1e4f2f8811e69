// Package api реализует REST API блога: посты, группы, комментарии и подписки.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ButyrinIA/yatube/internal/storage"
)

type Handler struct {
	storage storage.Storage
	hub     *CommentHub
	now     func() time.Time
}

func New(storage storage.Storage, hub *CommentHub) *Handler {
	if hub == nil {
		hub = NewCommentHub()
	}
	return &Handler{
		storage: storage,
		hub:     hub,
		now:     time.Now,
	}
}

// Register регистрирует маршруты /api/v1/ в mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/posts/{$}", h.listPosts)
	mux.HandleFunc("POST /api/v1/posts/{$}", h.createPost)
	mux.HandleFunc("GET /api/v1/posts/{id}/{$}", h.getPost)
	mux.HandleFunc("PUT /api/v1/posts/{id}/{$}", h.updatePost(false))
	mux.HandleFunc("PATCH /api/v1/posts/{id}/{$}", h.updatePost(true))
	mux.HandleFunc("DELETE /api/v1/posts/{id}/{$}", h.deletePost)

	mux.HandleFunc("GET /api/v1/groups/{$}", h.listGroups)
	mux.HandleFunc("GET /api/v1/groups/{id}/{$}", h.getGroup)

	mux.HandleFunc("GET /api/v1/posts/{post_id}/comments/{$}", h.listComments)
	mux.HandleFunc("POST /api/v1/posts/{post_id}/comments/{$}", h.createComment)
	mux.HandleFunc("GET /api/v1/posts/{post_id}/comments/stream", h.streamComments)
	mux.HandleFunc("GET /api/v1/posts/{post_id}/comments/{id}/{$}", h.getComment)
	mux.HandleFunc("PUT /api/v1/posts/{post_id}/comments/{id}/{$}", h.updateComment(false))
	mux.HandleFunc("PATCH /api/v1/posts/{post_id}/comments/{id}/{$}", h.updateComment(true))
	mux.HandleFunc("DELETE /api/v1/posts/{post_id}/comments/{id}/{$}", h.deleteComment)

	mux.HandleFunc("GET /api/v1/follow/{$}", h.listFollows)
	mux.HandleFunc("POST /api/v1/follow/{$}", h.createFollow)
}

type requesterKey struct{}

// WithRequester сохраняет идентификатор аутентифицированного пользователя в контексте
func WithRequester(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, requesterKey{}, userID)
}

// RequesterFrom возвращает идентификатор пользователя или "" для анонимного запроса
func RequesterFrom(ctx context.Context) string {
	userID, _ := ctx.Value(requesterKey{}).(string)
	return userID
}

// pathID разбирает числовой параметр пути. Нечисловой идентификатор
// ведет себя как несуществующий объект.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, storage.ErrNotFound
	}
	return id, nil
}
