package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ButyrinIA/yatube/internal/guard"
	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

// postInput - тело запроса для поста. Поле author игнорируется.
type postInput struct {
	Text  optional[string] `json:"text"`
	Group optional[int64]  `json:"group"`
	Image optional[string] `json:"image"`
}

// apply переносит поля запроса в пост. partial разрешает отсутствие text,
// необязательные поля без значения в теле не трогаются и при PUT.
func (in postInput) apply(ctx context.Context, store storage.Storage, post *models.Post, partial bool) error {
	errs := FieldErrors{}
	switch {
	case in.Text.Set && in.Text.Value == nil:
		errs.add("text", "This field may not be null.")
	case in.Text.Set && strings.TrimSpace(*in.Text.Value) == "":
		errs.add("text", "This field may not be blank.")
	case in.Text.Set:
		post.Text = *in.Text.Value
	case !partial:
		errs.add("text", "This field is required.")
	}

	if in.Group.Set {
		if in.Group.Value != nil {
			if _, err := store.GetGroup(ctx, *in.Group.Value); err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				errs.add("group", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *in.Group.Value))
			}
		}
		post.GroupID = in.Group.Value
	}

	if in.Image.Set {
		post.Image = in.Image.Value
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	p, paginated := parsePage(r)
	result, err := h.storage.ListPosts(r.Context(), p.limit, p.offset)
	if err != nil {
		WriteError(w, fmt.Errorf("failed to list posts: %w", err))
		return
	}

	views, err := h.renderPosts(r.Context(), result.Posts)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !paginated {
		WriteJSON(w, http.StatusOK, views)
		return
	}
	WriteJSON(w, http.StatusOK, p.response(r, result.TotalCount, views))
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	post := &models.Post{CreatedAt: h.now()}
	if err := guard.AssignPostAuthor(post, RequesterFrom(r.Context())); err != nil {
		WriteError(w, err)
		return
	}

	var in postInput
	if err := DecodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	if err := in.apply(r.Context(), h.storage, post, false); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.storage.CreatePost(r.Context(), post); err != nil {
		WriteError(w, fmt.Errorf("failed to create post: %w", err))
		return
	}
	log.Printf("Пост %d создан пользователем %s", post.ID, post.AuthorID)

	view, err := h.renderPost(r.Context(), post)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) loadPost(r *http.Request, name string) (*models.Post, error) {
	id, err := pathID(r, name)
	if err != nil {
		return nil, err
	}
	return h.storage.GetPost(r.Context(), id)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.loadPost(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	view, err := h.renderPost(r.Context(), post)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) updatePost(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester := RequesterFrom(r.Context())
		if requester == "" {
			WriteError(w, guard.NotAuthenticated())
			return
		}
		post, err := h.loadPost(r, "id")
		if err != nil {
			WriteError(w, err)
			return
		}
		if err := guard.AuthorizeUpdate(post, requester); err != nil {
			WriteError(w, err)
			return
		}

		var in postInput
		if err := DecodeJSON(r, &in); err != nil {
			WriteError(w, err)
			return
		}
		if err := in.apply(r.Context(), h.storage, post, partial); err != nil {
			WriteError(w, err)
			return
		}
		if err := h.storage.UpdatePost(r.Context(), post); err != nil {
			WriteError(w, fmt.Errorf("failed to update post: %w", err))
			return
		}

		view, err := h.renderPost(r.Context(), post)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFrom(r.Context())
	if requester == "" {
		WriteError(w, guard.NotAuthenticated())
		return
	}
	post, err := h.loadPost(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := guard.AuthorizeDelete(post, requester); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.storage.DeletePost(r.Context(), post.ID); err != nil {
		WriteError(w, fmt.Errorf("failed to delete post: %w", err))
		return
	}
	h.hub.ClosePost(post.ID)
	log.Printf("Пост %d удален пользователем %s", post.ID, requester)
	w.WriteHeader(http.StatusNoContent)
}
