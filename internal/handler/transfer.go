package handler

import (
	"net/http"

	"github.com/Dan9191/card-transfer-service/internal/middleware"
	"github.com/Dan9191/card-transfer-service/internal/service"
)

// CreateTransfer executes a transfer between two cards of the caller
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}

	var req service.TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.transfers.ExecuteTransfer(r.Context(), req, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// GetMyTransfers lists the caller's transfers, newest first
func (h *Handler) GetMyTransfers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}

	resp, err := h.transfers.GetUserTransfers(r.Context(), userID, pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetTransfer fetches one transfer owned by the caller
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}
	transferID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid transfer id")
		return
	}

	resp, err := h.transfers.GetTransferByID(r.Context(), transferID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetCardTransfers lists the caller's transfers touching one card
func (h *Handler) GetCardTransfers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}
	cardID, err := pathID(r, "cardId")
	if err != nil {
		h.badRequest(w, "Invalid card id")
		return
	}

	resp, err := h.transfers.GetCardTransfers(r.Context(), cardID, userID, pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
