package handler

import (
	"net/http"

	"github.com/Dan9191/card-transfer-service/internal/middleware"
	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/service"
)

// GetMyCards lists the caller's cards, optionally filtered by status
func (h *Handler) GetMyCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}

	resp, err := h.cards.ListUserCards(r.Context(), userID, r.URL.Query().Get("status"), pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetMyCard fetches one of the caller's cards
func (h *Handler) GetMyCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid card id")
		return
	}

	resp, err := h.cards.GetCard(r.Context(), cardID, userID, middleware.Role(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// BlockMyCard is the self-service block endpoint for a card owner
func (h *Handler) BlockMyCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid card id")
		return
	}

	resp, err := h.cards.BlockCard(r.Context(), cardID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateCard issues a new card for a user (admin only)
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}

	var req service.CardCreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.cards.CreateCard(r.Context(), req, actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// ListCards lists all cards (admin only)
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	resp, err := h.cards.ListAllCards(r.Context(), r.URL.Query().Get("status"), pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// UpdateCard changes the holder name and/or expiry date (admin only)
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid card id")
		return
	}

	var req service.CardUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.cards.UpdateCard(r.Context(), cardID, req, actorID, models.RoleAdmin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// cardStatusRequest carries a status-change command
type cardStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// UpdateCardStatus changes the card status (admin only)
func (h *Handler) UpdateCardStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid card id")
		return
	}

	var req cardStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.cards.UpdateCardStatus(r.Context(), cardID, req.Status, req.Reason, actorID, models.RoleAdmin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteCard removes a card (admin only)
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, service.ErrUnauthorized)
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid card id")
		return
	}

	if err := h.cards.DeleteCard(r.Context(), cardID, actorID, models.RoleAdmin); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// GetCardEvents lists the audit history of a card, oldest first (admin only)
func (h *Handler) GetCardEvents(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, "Invalid card id")
		return
	}

	resp, err := h.events.GetCardEvents(r.Context(), cardID, pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
