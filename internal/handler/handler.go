package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/card-transfer-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler exposes the services over HTTP
type Handler struct {
	auth      *service.AuthService
	transfers *service.TransferService
	cards     *service.CardService
	events    *service.CardEventService
	users     *service.UserService
	log       *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(auth *service.AuthService, transfers *service.TransferService,
	cards *service.CardService, events *service.CardEventService,
	users *service.UserService, log *logrus.Logger) *Handler {
	return &Handler{
		auth:      auth,
		transfers: transfers,
		cards:     cards,
		events:    events,
		users:     users,
		log:       log,
	}
}

// errorResponse is the JSON error body returned to clients
type errorResponse struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.log.Errorf("Failed to encode response: %v", err)
		}
	}
}

// writeError maps each service error kind to a stable HTTP status. Internal
// details are logged, never exposed.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "An unexpected error occurred"

	switch {
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrTransferNotFound),
		errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, service.ErrInsufficientBalance):
		status = http.StatusNotAcceptable
		message = err.Error()
	case errors.Is(err, service.ErrCardNotActive),
		errors.Is(err, service.ErrInvalidCard):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrInvalidTransfer),
		errors.Is(err, service.ErrDuplicateResource),
		errors.Is(err, service.ErrConcurrencyConflict):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, service.ErrBadCredentials):
		status = http.StatusUnauthorized
		message = err.Error()
	default:
		h.log.Errorf("Internal error: %v", err)
	}

	h.writeJSON(w, status, errorResponse{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, message string) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{
		Status:    http.StatusBadRequest,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.badRequest(w, "Invalid request body")
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func pageFrom(r *http.Request) service.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	return service.Page{Number: number, Size: size}
}
