package handler

import (
	"net/http"

	"github.com/Dan9191/card-transfer-service/internal/service"
)

// ListUsers lists all users (admin only)
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.users.ListUsers(r.Context(), pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetUser fetches one user (admin only)
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid user id")
		return
	}

	resp, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// UpdateUser changes a user's email and/or name (admin only)
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid user id")
		return
	}

	var req service.UserUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.users.UpdateUser(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ToggleUserStatus flips a user's enabled flag (admin only)
func (h *Handler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid user id")
		return
	}

	resp, err := h.users.ToggleUserStatus(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteUser removes a user (admin only)
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid user id")
		return
	}

	if err := h.users.DeleteUser(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}
