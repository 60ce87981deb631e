package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/otzivi/authcore/internal/models"
	pkghttp "github.com/otzivi/authcore/pkg/http"
)

// EventServiceInterface defines the interface for reading the event ledger
type EventServiceInterface interface {
	Recent(ctx context.Context, accountID string, limit int) ([]*models.SecurityEvent, error)
	RecentAll(ctx context.Context, limit int) ([]*models.SecurityEvent, error)
}

// EventsHandler exposes read access to the security event ledger
type EventsHandler struct {
	service EventServiceInterface
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(service EventServiceInterface) *EventsHandler {
	return &EventsHandler{service: service}
}

// EventResponse is the public projection of a security event
type EventResponse struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"account_id"`
	EventType     string     `json:"event_type"`
	Severity      string     `json:"severity"`
	Description   string     `json:"description"`
	ClientAddress *string    `json:"client_address,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Notified      bool       `json:"notified"`
	NotifiedAt    *time.Time `json:"notified_at,omitempty"`
}

// ListByAccount returns the account's newest security events
func (h *EventsHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	events, err := h.service.Recent(r.Context(), accountID, parseLimit(r))
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeEvents(w, events)
}

// ListAll returns the newest security events across all accounts
func (h *EventsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.RecentAll(r.Context(), parseLimit(r))
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeEvents(w, events)
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0 // service applies its default
	}
	return limit
}

func writeEvents(w http.ResponseWriter, events []*models.SecurityEvent) {
	out := make([]EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, EventResponse{
			ID:            event.ID.String(),
			AccountID:     event.AccountID,
			EventType:     string(event.EventType),
			Severity:      event.Severity.String(),
			Description:   event.Description,
			ClientAddress: event.ClientAddress,
			CreatedAt:     event.CreatedAt,
			Notified:      event.Notified,
			NotifiedAt:    event.NotifiedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}
