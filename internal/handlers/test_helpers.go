package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/otzivi/authcore/internal/models"
	"github.com/otzivi/authcore/internal/services"
	pkghttp "github.com/otzivi/authcore/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	AttemptLoginFunc     func(ctx context.Context, clientKey, userAgent string, creds services.Credentials) (*models.AuthDecision, error)
	ResolveChallengeFunc func(ctx context.Context, pendingToken, answer, clientKey, userAgent string) (*models.AuthDecision, error)
	LogoutFunc           func(ctx context.Context, accountID, clientKey, userAgent string)
}

func (m *MockAuthService) AttemptLogin(ctx context.Context, clientKey, userAgent string, creds services.Credentials) (*models.AuthDecision, error) {
	if m.AttemptLoginFunc == nil {
		return &models.AuthDecision{State: models.DecisionDenied, Reason: models.ErrInvalidCredentials.Error()}, nil
	}
	return m.AttemptLoginFunc(ctx, clientKey, userAgent, creds)
}

func (m *MockAuthService) ResolveChallenge(ctx context.Context, pendingToken, answer, clientKey, userAgent string) (*models.AuthDecision, error) {
	if m.ResolveChallengeFunc == nil {
		return &models.AuthDecision{State: models.DecisionDenied, Reason: models.ErrUnauthorized.Error()}, nil
	}
	return m.ResolveChallengeFunc(ctx, pendingToken, answer, clientKey, userAgent)
}

func (m *MockAuthService) Logout(ctx context.Context, accountID, clientKey, userAgent string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, accountID, clientKey, userAgent)
	}
}

// MockChallengeService implements ChallengeServiceInterface for testing
type MockChallengeService struct {
	SetChallengeFunc func(ctx context.Context, accountID, question, answer string) error
	SetGatingFunc    func(ctx context.Context, accountID string, enabled bool) error
	IsEnabledFunc    func(ctx context.Context, accountID string) bool
	QuestionFunc     func(ctx context.Context, accountID string) (string, error)
}

func (m *MockChallengeService) SetChallenge(ctx context.Context, accountID, question, answer string) error {
	if m.SetChallengeFunc == nil {
		return nil
	}
	return m.SetChallengeFunc(ctx, accountID, question, answer)
}

func (m *MockChallengeService) SetGating(ctx context.Context, accountID string, enabled bool) error {
	if m.SetGatingFunc == nil {
		return nil
	}
	return m.SetGatingFunc(ctx, accountID, enabled)
}

func (m *MockChallengeService) IsEnabled(ctx context.Context, accountID string) bool {
	if m.IsEnabledFunc == nil {
		return false
	}
	return m.IsEnabledFunc(ctx, accountID)
}

func (m *MockChallengeService) Question(ctx context.Context, accountID string) (string, error) {
	if m.QuestionFunc == nil {
		return "", models.ErrNotFound
	}
	return m.QuestionFunc(ctx, accountID)
}

// MockEventService implements EventServiceInterface for testing
type MockEventService struct {
	RecentFunc    func(ctx context.Context, accountID string, limit int) ([]*models.SecurityEvent, error)
	RecentAllFunc func(ctx context.Context, limit int) ([]*models.SecurityEvent, error)
}

func (m *MockEventService) Recent(ctx context.Context, accountID string, limit int) ([]*models.SecurityEvent, error) {
	if m.RecentFunc == nil {
		return nil, nil
	}
	return m.RecentFunc(ctx, accountID, limit)
}

func (m *MockEventService) RecentAll(ctx context.Context, limit int) ([]*models.SecurityEvent, error) {
	if m.RecentAllFunc == nil {
		return nil, nil
	}
	return m.RecentAllFunc(ctx, limit)
}
