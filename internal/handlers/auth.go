package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/otzivi/authcore/internal/models"
	"github.com/otzivi/authcore/internal/services"
	pkghttp "github.com/otzivi/authcore/pkg/http"
)

// AuthServiceInterface defines the interface for the sign-in decision logic
type AuthServiceInterface interface {
	AttemptLogin(ctx context.Context, clientKey, userAgent string, creds services.Credentials) (*models.AuthDecision, error)
	ResolveChallenge(ctx context.Context, pendingToken, answer, clientKey, userAgent string) (*models.AuthDecision, error)
	Logout(ctx context.Context, accountID, clientKey, userAgent string)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
	ReturnTo   string `json:"return_to" validate:"max=512"`
}

// ChallengeRequest represents the request body for completing a pending sign-in
type ChallengeRequest struct {
	PendingToken string `json:"pending_token" validate:"required"`
	Answer       string `json:"answer" validate:"required"`
}

// LogoutRequest represents the request body for logout
type LogoutRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

// Response DTOs

// AccountResponse is the public projection of an account
type AccountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// DecisionResponse represents the outcome of a login or challenge attempt
type DecisionResponse struct {
	State        string           `json:"state"`
	Reason       string           `json:"reason,omitempty"`
	Account      *AccountResponse `json:"account,omitempty"`
	PendingToken string           `json:"pending_token,omitempty"`
	Question     string           `json:"question,omitempty"`
	RetryIn      int              `json:"retry_in,omitempty"`
}

// Login handles a primary credential sign-in attempt
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientKey := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	decision, err := h.service.AttemptLogin(r.Context(), clientKey, userAgent, services.Credentials{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		ReturnTo:   req.ReturnTo,
	})
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeDecision(w, decision)
}

// Challenge completes a sign-in left pending behind the security question
func (h *AuthHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req ChallengeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientKey := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	decision, err := h.service.ResolveChallenge(r.Context(), req.PendingToken, req.Answer, clientKey, userAgent)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeDecision(w, decision)
}

// Logout records the sign-out event
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientKey := pkghttp.ExtractClientIP(r, h.ipConfig)
	h.service.Logout(r.Context(), req.AccountID, clientKey, r.Header.Get("User-Agent"))

	w.WriteHeader(http.StatusNoContent)
}

// writeDecision maps a sign-in decision to its HTTP shape. Allowed and
// ChallengeRequired are 200 (the caller inspects state), Denied is 401, and
// Blocked is 429 with a Retry-After hint.
func writeDecision(w http.ResponseWriter, decision *models.AuthDecision) {
	body := DecisionResponse{
		State:        string(decision.State),
		Reason:       decision.Reason,
		PendingToken: decision.PendingToken,
		Question:     decision.Question,
		RetryIn:      decision.RetryInSeconds,
	}
	if decision.State == models.DecisionAllowed && decision.Account != nil {
		body.Account = &AccountResponse{
			ID:    decision.Account.ID,
			Email: decision.Account.Email,
			Name:  decision.Account.Name,
		}
	}

	status := http.StatusOK
	switch decision.State {
	case models.DecisionDenied:
		status = http.StatusUnauthorized
	case models.DecisionBlocked:
		status = http.StatusTooManyRequests
		if decision.RetryInSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryInSeconds))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
