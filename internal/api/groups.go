package api

import (
	"fmt"
	"net/http"
)

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.storage.ListGroups(r.Context())
	if err != nil {
		WriteError(w, fmt.Errorf("failed to list groups: %w", err))
		return
	}
	views := make([]groupView, len(groups))
	for i, g := range groups {
		views[i] = renderGroup(g)
	}
	WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	group, err := h.storage.GetGroup(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, renderGroup(group))
}
