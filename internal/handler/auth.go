package handler

import (
	"net/http"

	"github.com/Dan9191/card-transfer-service/internal/service"
)

// Register creates a new user account and returns a JWT token
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// Login authenticates a user and returns a JWT token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
