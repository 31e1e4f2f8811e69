package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ButyrinIA/yatube/internal/guard"
	"github.com/ButyrinIA/yatube/internal/models"
)

// commentInput - тело запроса для комментария. Поля post и author игнорируются.
type commentInput struct {
	Text optional[string] `json:"text"`
}

func (in commentInput) apply(comment *models.Comment, partial bool) error {
	errs := FieldErrors{}
	switch {
	case in.Text.Set && in.Text.Value == nil:
		errs.add("text", "This field may not be null.")
	case in.Text.Set && strings.TrimSpace(*in.Text.Value) == "":
		errs.add("text", "This field may not be blank.")
	case in.Text.Set:
		comment.Text = *in.Text.Value
	case !partial:
		errs.add("text", "This field is required.")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// listComments фильтрует по post_id из пути, несуществующий пост дает пустой список
func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "post_id")
	if err != nil {
		WriteError(w, err)
		return
	}
	comments, err := h.storage.ListComments(r.Context(), postID)
	if err != nil {
		WriteError(w, fmt.Errorf("failed to list comments: %w", err))
		return
	}
	views, err := h.renderComments(r.Context(), comments)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFrom(r.Context())
	if requester == "" {
		WriteError(w, guard.NotAuthenticated())
		return
	}
	post, err := h.loadPost(r, "post_id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var in commentInput
	if err := DecodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	comment := &models.Comment{CreatedAt: h.now()}
	if err := guard.AssignCommentAuthor(comment, requester, post.ID); err != nil {
		WriteError(w, err)
		return
	}
	if err := in.apply(comment, false); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.storage.CreateComment(r.Context(), comment); err != nil {
		WriteError(w, fmt.Errorf("failed to create comment: %w", err))
		return
	}

	view, err := h.renderComment(r.Context(), comment)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.hub.Publish(post.ID, CommentEvent{Event: EventCreated, Comment: view})
	WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) loadComment(r *http.Request) (*models.Comment, error) {
	postID, err := pathID(r, "post_id")
	if err != nil {
		return nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.storage.GetComment(r.Context(), postID, id)
}

func (h *Handler) getComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.loadComment(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	view, err := h.renderComment(r.Context(), comment)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) updateComment(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester := RequesterFrom(r.Context())
		if requester == "" {
			WriteError(w, guard.NotAuthenticated())
			return
		}
		comment, err := h.loadComment(r)
		if err != nil {
			WriteError(w, err)
			return
		}
		if err := guard.AuthorizeUpdate(comment, requester); err != nil {
			WriteError(w, err)
			return
		}

		var in commentInput
		if err := DecodeJSON(r, &in); err != nil {
			WriteError(w, err)
			return
		}
		if err := in.apply(comment, partial); err != nil {
			WriteError(w, err)
			return
		}
		if err := h.storage.UpdateComment(r.Context(), comment); err != nil {
			WriteError(w, fmt.Errorf("failed to update comment: %w", err))
			return
		}

		view, err := h.renderComment(r.Context(), comment)
		if err != nil {
			WriteError(w, err)
			return
		}
		h.hub.Publish(comment.PostID, CommentEvent{Event: EventUpdated, Comment: view})
		WriteJSON(w, http.StatusOK, view)
	}
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFrom(r.Context())
	if requester == "" {
		WriteError(w, guard.NotAuthenticated())
		return
	}
	comment, err := h.loadComment(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := guard.AuthorizeDelete(comment, requester); err != nil {
		WriteError(w, err)
		return
	}
	// Имя автора нужно для события до удаления
	view, err := h.renderComment(r.Context(), comment)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := h.storage.DeleteComment(r.Context(), comment.ID); err != nil {
		WriteError(w, fmt.Errorf("failed to delete comment: %w", err))
		return
	}
	h.hub.Publish(comment.PostID, CommentEvent{Event: EventDeleted, Comment: view})
	w.WriteHeader(http.StatusNoContent)
}
