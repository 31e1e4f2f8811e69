package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/graph-gophers/dataloader/v7"
)

// Ответы API

type postView struct {
	ID      int64   `json:"id"`
	Text    string  `json:"text"`
	Author  string  `json:"author"`
	Image   *string `json:"image"`
	Group   *int64  `json:"group"`
	PubDate string  `json:"pub_date"`
}

type commentView struct {
	ID      int64  `json:"id"`
	Author  string `json:"author"`
	Post    int64  `json:"post"`
	Text    string `json:"text"`
	Created string `json:"created"`
}

type groupView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type followView struct {
	User      string `json:"user"`
	Following string `json:"following"`
}

// optional различает отсутствующее поле и явный null
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type loaderKey struct{}

type userLoader = dataloader.Loader[string, *models.User]

// newUserLoader группирует запросы пользователей за время одного запроса API
func newUserLoader(store storage.Storage) *userLoader {
	batch := func(ctx context.Context, ids []string) []*dataloader.Result[*models.User] {
		results := make([]*dataloader.Result[*models.User], len(ids))
		users, err := store.GetUsers(ctx, ids)
		for i, id := range ids {
			switch {
			case err != nil:
				results[i] = &dataloader.Result[*models.User]{Error: err}
			case users[id] == nil:
				results[i] = &dataloader.Result[*models.User]{Error: fmt.Errorf("user %s: %w", id, storage.ErrNotFound)}
			default:
				results[i] = &dataloader.Result[*models.User]{Data: users[id]}
			}
		}
		return results
	}
	return dataloader.NewBatchedLoader(batch, dataloader.WithWait[string, *models.User](time.Millisecond))
}

// Loaders добавляет в контекст загрузчик пользователей, живущий один запрос
func Loaders(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), loaderKey{}, newUserLoader(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) loader(ctx context.Context) *userLoader {
	if l, ok := ctx.Value(loaderKey{}).(*userLoader); ok {
		return l
	}
	return newUserLoader(h.storage)
}

// usernames загружает имена пользователей одним пакетом
func (h *Handler) usernames(ctx context.Context, ids ...string) (map[string]string, error) {
	l := h.loader(ctx)
	thunks := make([]dataloader.Thunk[*models.User], len(ids))
	for i, id := range ids {
		thunks[i] = l.Load(ctx, id)
	}
	names := make(map[string]string, len(ids))
	for i, thunk := range thunks {
		user, err := thunk()
		if err != nil {
			return nil, fmt.Errorf("load user %s: %w", ids[i], err)
		}
		names[user.ID] = user.Username
	}
	return names, nil
}

func (h *Handler) renderPosts(ctx context.Context, posts []*models.Post) ([]postView, error) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.AuthorID
	}
	names, err := h.usernames(ctx, ids...)
	if err != nil {
		return nil, err
	}
	views := make([]postView, len(posts))
	for i, p := range posts {
		views[i] = postView{
			ID:      p.ID,
			Text:    p.Text,
			Author:  names[p.AuthorID],
			Image:   p.Image,
			Group:   p.GroupID,
			PubDate: formatTime(p.CreatedAt),
		}
	}
	return views, nil
}

func (h *Handler) renderPost(ctx context.Context, post *models.Post) (postView, error) {
	views, err := h.renderPosts(ctx, []*models.Post{post})
	if err != nil {
		return postView{}, err
	}
	return views[0], nil
}

func (h *Handler) renderComments(ctx context.Context, comments []*models.Comment) ([]commentView, error) {
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.AuthorID
	}
	names, err := h.usernames(ctx, ids...)
	if err != nil {
		return nil, err
	}
	views := make([]commentView, len(comments))
	for i, c := range comments {
		views[i] = commentView{
			ID:      c.ID,
			Author:  names[c.AuthorID],
			Post:    c.PostID,
			Text:    c.Text,
			Created: formatTime(c.CreatedAt),
		}
	}
	return views, nil
}

func (h *Handler) renderComment(ctx context.Context, comment *models.Comment) (commentView, error) {
	views, err := h.renderComments(ctx, []*models.Comment{comment})
	if err != nil {
		return commentView{}, err
	}
	return views[0], nil
}

func (h *Handler) renderFollows(ctx context.Context, follows []*models.Follow) ([]followView, error) {
	ids := make([]string, 0, len(follows)*2)
	for _, f := range follows {
		ids = append(ids, f.UserID, f.FollowingID)
	}
	names, err := h.usernames(ctx, ids...)
	if err != nil {
		return nil, err
	}
	views := make([]followView, len(follows))
	for i, f := range follows {
		views[i] = followView{User: names[f.UserID], Following: names[f.FollowingID]}
	}
	return views, nil
}

func renderGroup(g *models.Group) groupView {
	return groupView{ID: g.ID, Title: g.Title, Slug: g.Slug, Description: g.Description}
}
