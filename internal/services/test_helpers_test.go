package services_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otzivi/authcore/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordedEvent captures one Record call for assertions.
type recordedEvent struct {
	AccountID     string
	EventType     models.EventType
	Description   string
	ClientAddress *string
	UserAgent     *string
}

// mockEventSink implements services.EventSink. Guarded by a mutex because
// the attempt ledger emits from detached goroutines.
type mockEventSink struct {
	mu              sync.Mutex
	events          []recordedEvent
	suspicious      bool
	suspiciousCalls int
}

func newMockEventSink() *mockEventSink {
	return &mockEventSink{}
}

func (m *mockEventSink) Record(_ context.Context, accountID string, eventType models.EventType, description string, clientAddress, userAgent *string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{
		AccountID:     accountID,
		EventType:     eventType,
		Description:   description,
		ClientAddress: clientAddress,
		UserAgent:     userAgent,
	})
}

func (m *mockEventSink) CheckSuspicious(_ context.Context, _, _ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspiciousCalls++
	return m.suspicious
}

func (m *mockEventSink) snapshot() []recordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *mockEventSink) countOfType(eventType models.EventType) int {
	count := 0
	for _, e := range m.snapshot() {
		if e.EventType == eventType {
			count++
		}
	}
	return count
}

func (m *mockEventSink) suspiciousCheckCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspiciousCalls
}

// waitForEvent polls until the sink holds at least want events of the type.
func (m *mockEventSink) waitForEvent(t *testing.T, eventType models.EventType, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.countOfType(eventType) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q events, have %d", want, eventType, m.countOfType(eventType))
}

// mockChallengeRepo implements services.ChallengeRepository in memory.
type mockChallengeRepo struct {
	mu         sync.Mutex
	challenges map[string]*models.Challenge
	failWith   error
}

func newMockChallengeRepo() *mockChallengeRepo {
	return &mockChallengeRepo{challenges: make(map[string]*models.Challenge)}
}

func (m *mockChallengeRepo) Get(_ context.Context, accountID string) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	challenge, ok := m.challenges[accountID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *challenge
	return &copied, nil
}

func (m *mockChallengeRepo) Upsert(_ context.Context, challenge *models.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	copied := *challenge
	m.challenges[challenge.AccountID] = &copied
	return nil
}

func (m *mockChallengeRepo) SetEnabled(_ context.Context, accountID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	challenge, ok := m.challenges[accountID]
	if !ok {
		return models.ErrNotFound
	}
	challenge.Enabled = enabled
	return nil
}

// mockDirectory implements services.LoginDirectory and
// services.AccountDirectory.
type mockDirectory struct {
	accounts []*models.Account
}

func (m *mockDirectory) GetByID(_ context.Context, id string) (*models.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *mockDirectory) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *mockDirectory) ListByRole(_ context.Context, role string) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range m.accounts {
		if a.Role == role {
			out = append(out, a)
		}
	}
	return out, nil
}

// mockVerifier implements services.CredentialVerifier.
type mockVerifier struct {
	mu       sync.Mutex
	ok       bool
	err      error
	password string // when set, only this secret verifies
	calls    int
}

func (m *mockVerifier) Verify(_ context.Context, _, secret string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	if m.password != "" {
		return secret == m.password, nil
	}
	return m.ok, nil
}

func (m *mockVerifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEventRepo implements services.EventRepository in memory.
type mockEventRepo struct {
	mu             sync.Mutex
	events         []*models.SecurityEvent
	createErr      error
	markErr        error
	markedNotified []uuid.UUID
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{}
}

func (m *mockEventRepo) Create(_ context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	created := *event
	created.ID = uuid.New()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}
	m.events = append(m.events, &created)
	copied := created
	return &copied, nil
}

func (m *mockEventRepo) MarkNotified(_ context.Context, eventID uuid.UUID, notifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	for _, e := range m.events {
		if e.ID == eventID {
			e.Notified = true
			at := notifiedAt
			e.NotifiedAt = &at
			m.markedNotified = append(m.markedNotified, eventID)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *mockEventRepo) CountByAccountSince(_ context.Context, accountID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.events {
		if e.AccountID == accountID && e.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockEventRepo) RecentByAccount(_ context.Context, accountID string, limit int) ([]*models.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SecurityEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].AccountID == accountID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *mockEventRepo) RecentAll(_ context.Context, limit int) ([]*models.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SecurityEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *mockEventRepo) all() []*models.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.SecurityEvent, len(m.events))
	copy(out, m.events)
	return out
}

// mockNotifier implements services.Notifier and records deliveries.
type mockNotifier struct {
	mu       sync.Mutex
	sends    []mockSend
	failWith error
}

type mockSend struct {
	Address string
	Subject string
	Body    string
}

func (m *mockNotifier) Send(_ context.Context, address, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, mockSend{Address: address, Subject: subject, Body: body})
	return m.failWith
}

func (m *mockNotifier) deliveries() []mockSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockSend, len(m.sends))
	copy(out, m.sends)
	return out
}
