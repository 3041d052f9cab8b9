package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/motoshop/installment-service/internal/models"
	"github.com/motoshop/installment-service/internal/service"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles operator registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request payload")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		h.badRequest(w, "username, email and password are required")
		return
	}

	user, err := h.svc.Register(req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// Login handles operator authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request payload")
		return
	}

	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// SuggestedRate returns the proposed periodic interest rate for new plans
func (h *Handler) SuggestedRate(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]float64{"periodic_rate": h.svc.SuggestedRate()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("Failed to encode response")
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps domain sentinels to HTTP statuses. Anything unrecognized is
// treated as a store failure and not echoed to the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "code": "validation"})
	case errors.Is(err, models.ErrInvalidAmount):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "code": "invalid_amount"})
	case errors.Is(err, models.ErrInvalidState):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "code": "plan_closed"})
	case errors.Is(err, models.ErrConflict):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "code": "conflict"})
	case errors.Is(err, models.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error(), "code": "not_found"})
	default:
		h.log.WithError(err).Error("Request failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error", "code": "store_unavailable"})
	}
}
