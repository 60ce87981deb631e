package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/otzivi/authcore/internal/models"
	pkghttp "github.com/otzivi/authcore/pkg/http"
)

// ChallengeServiceInterface defines the interface for security question management
type ChallengeServiceInterface interface {
	SetChallenge(ctx context.Context, accountID, question, answer string) error
	SetGating(ctx context.Context, accountID string, enabled bool) error
	IsEnabled(ctx context.Context, accountID string) bool
	Question(ctx context.Context, accountID string) (string, error)
}

// ChallengeHandler handles security question management requests
type ChallengeHandler struct {
	service ChallengeServiceInterface
}

// NewChallengeHandler creates a new ChallengeHandler
func NewChallengeHandler(service ChallengeServiceInterface) *ChallengeHandler {
	return &ChallengeHandler{service: service}
}

// SetChallengeRequest represents the request body for configuring the question
type SetChallengeRequest struct {
	Question string `json:"question" validate:"required,min=4,max=256"`
	Answer   string `json:"answer" validate:"required,min=1,max=256"`
}

// SetGatingRequest represents the request body for toggling gating
type SetGatingRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ChallengeStatusResponse represents the account's challenge state. The
// answer hash is never exposed.
type ChallengeStatusResponse struct {
	Enabled  bool   `json:"enabled"`
	Question string `json:"question,omitempty"`
}

// Set configures or replaces the account's security question
func (h *ChallengeHandler) Set(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	var req SetChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.SetChallenge(r.Context(), accountID, req.Question, req.Answer); err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			pkghttp.WriteBadRequest(w, "Invalid question or answer")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetGating enables or disables sign-in gating without touching the question
func (h *ChallengeHandler) SetGating(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	var req SetGatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.SetGating(r.Context(), accountID, *req.Enabled); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "No security question configured")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Status reports whether the account's sign-in is gated and by which question
func (h *ChallengeHandler) Status(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	resp := ChallengeStatusResponse{Enabled: h.service.IsEnabled(r.Context(), accountID)}
	if question, err := h.service.Question(r.Context(), accountID); err == nil {
		resp.Question = question
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
