package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ButyrinIA/yatube/internal/guard"
	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

type followInput struct {
	Following optional[string] `json:"following"`
}

func (h *Handler) listFollows(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFrom(r.Context())
	if requester == "" {
		WriteError(w, guard.NotAuthenticated())
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	follows, err := h.storage.ListFollows(r.Context(), requester, search)
	if err != nil {
		WriteError(w, fmt.Errorf("failed to list follows: %w", err))
		return
	}
	views, err := h.renderFollows(r.Context(), follows)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) createFollow(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFrom(r.Context())
	if requester == "" {
		WriteError(w, guard.NotAuthenticated())
		return
	}

	var in followInput
	if err := DecodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	if !in.Following.Set || in.Following.Value == nil || *in.Following.Value == "" {
		WriteError(w, FieldErrors{"following": {"This field is required."}})
		return
	}
	username := *in.Following.Value
	target, err := h.storage.GetUserByUsername(r.Context(), username)
	if errors.Is(err, storage.ErrNotFound) {
		WriteError(w, FieldErrors{"following": {fmt.Sprintf("Object with username=%s does not exist.", username)}})
		return
	}
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := guard.AuthorizeFollow(r.Context(), h.storage, requester, target.ID); err != nil {
		WriteError(w, err)
		return
	}
	follow := &models.Follow{UserID: requester, FollowingID: target.ID}
	err = h.storage.CreateFollow(r.Context(), follow)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		// Параллельный запрос успел создать подписку после проверки
		WriteError(w, guard.AlreadyFollowing())
		return
	case errors.Is(err, storage.ErrSelfFollow):
		WriteError(w, guard.SelfFollow())
		return
	case err != nil:
		WriteError(w, fmt.Errorf("failed to create follow: %w", err))
		return
	}

	views, err := h.renderFollows(r.Context(), []*models.Follow{follow})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, views[0])
}
