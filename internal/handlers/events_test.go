package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otzivi/authcore/internal/handlers"
	"github.com/otzivi/authcore/internal/models"
)

func TestListEventsByAccount(t *testing.T) {
	addr := "10.0.0.1"
	mockService := &handlers.MockEventService{
		RecentFunc: func(ctx context.Context, accountID string, limit int) ([]*models.SecurityEvent, error) {
			assert.Equal(t, "acct-1", accountID)
			assert.Equal(t, 5, limit)
			return []*models.SecurityEvent{{
				ID:            uuid.New(),
				AccountID:     accountID,
				EventType:     models.EventFailedLogin,
				Severity:      models.SeverityMedium,
				Description:   "failed login attempt",
				ClientAddress: &addr,
				CreatedAt:     time.Now(),
			}}, nil
		},
	}

	handler := handlers.NewEventsHandler(mockService)
	req := handlers.NewTestRequest(t, "GET", "/accounts/acct-1/events?limit=5", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acct-1"})

	w := httptest.NewRecorder()
	handler.ListByAccount(w, req)

	var resp []handlers.EventResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "failed_login", resp[0].EventType)
	assert.Equal(t, "medium", resp[0].Severity)
	require.NotNil(t, resp[0].ClientAddress)
	assert.Equal(t, "10.0.0.1", *resp[0].ClientAddress)
}

func TestListAllEvents_EmptyLedger(t *testing.T) {
	mockService := &handlers.MockEventService{
		RecentAllFunc: func(ctx context.Context, limit int) ([]*models.SecurityEvent, error) {
			return nil, nil
		},
	}

	handler := handlers.NewEventsHandler(mockService)
	req := handlers.NewTestRequest(t, "GET", "/events", nil)

	w := httptest.NewRecorder()
	handler.ListAll(w, req)

	var resp []handlers.EventResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Empty(t, resp)
}
