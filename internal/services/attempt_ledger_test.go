package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otzivi/authcore/internal/config"
	"github.com/otzivi/authcore/internal/models"
	"github.com/otzivi/authcore/internal/services"
	"github.com/otzivi/authcore/internal/throttle"
)

func throttleConfig() config.ThrottleConfig {
	return config.ThrottleConfig{
		MaxAttempts:   5,
		WarnThreshold: 3,
		BlockWindow:   30 * time.Second,
		Retention:     time.Hour,
	}
}

func newLedger(t *testing.T) (*services.AttemptLedger, *throttle.MemoryStore, *mockEventSink) {
	t.Helper()
	store := throttle.NewMemoryStore()
	sink := newMockEventSink()
	ledger := services.NewAttemptLedger(store, sink, throttleConfig(), testLogger())
	return ledger, store, sink
}

func TestAttemptLedger_NotBlockedBelowThreshold(t *testing.T) {
	ledger, _, _ := newLedger(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		ledger.RecordFailure(ctx, "10.0.0.1")
		assert.False(t, ledger.IsBlocked(ctx, "10.0.0.1"))
	}
	assert.Equal(t, 1, ledger.RemainingAttempts(ctx, "10.0.0.1"))
}

func TestAttemptLedger_BlocksAtThreshold(t *testing.T) {
	ledger, _, _ := newLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ledger.RecordFailure(ctx, "10.0.0.1")
	}

	assert.True(t, ledger.IsBlocked(ctx, "10.0.0.1"))
	assert.Equal(t, 0, ledger.RemainingAttempts(ctx, "10.0.0.1"))

	// Another address is unaffected.
	assert.False(t, ledger.IsBlocked(ctx, "10.0.0.2"))
}

func TestAttemptLedger_WarningAndCriticalEvents(t *testing.T) {
	ledger, _, sink := newLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ledger.RecordFailure(ctx, "198.51.100.7")
	}

	sink.waitForEvent(t, models.EventSuspiciousActivity, 1)
	sink.waitForEvent(t, models.EventMultipleFailedAttempts, 1)

	// Exactly one of each across the five failures.
	assert.Equal(t, 1, sink.countOfType(models.EventSuspiciousActivity))
	assert.Equal(t, 1, sink.countOfType(models.EventMultipleFailedAttempts))

	for _, event := range sink.snapshot() {
		assert.Equal(t, models.SystemAccountID, event.AccountID)
		require.NotNil(t, event.ClientAddress)
		assert.Equal(t, "198.51.100.7", *event.ClientAddress)
	}
}

func TestAttemptLedger_SuccessClearsAndEmits(t *testing.T) {
	ledger, _, sink := newLedger(t)
	ctx := context.Background()

	ledger.RecordFailure(ctx, "10.0.0.1")
	ledger.RecordFailure(ctx, "10.0.0.1")
	ledger.RecordSuccess(ctx, "10.0.0.1")

	assert.False(t, ledger.IsBlocked(ctx, "10.0.0.1"))
	assert.Equal(t, 5, ledger.RemainingAttempts(ctx, "10.0.0.1"))
	sink.waitForEvent(t, models.EventSuccessfulLogin, 1)
}

func TestAttemptLedger_SuccessWithoutFailuresIsSilent(t *testing.T) {
	ledger, _, sink := newLedger(t)

	ledger.RecordSuccess(context.Background(), "10.0.0.1")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}

func TestAttemptLedger_BlockWindowSlidesWithLastFailure(t *testing.T) {
	store := throttle.NewMemoryStore()
	sink := newMockEventSink()
	ledger := services.NewAttemptLedger(store, sink, throttleConfig(), testLogger())
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		ledger.RecordFailure(ctx, "10.0.0.1")
	}

	deadline := ledger.BlockDeadline(ctx, "10.0.0.1")
	require.NotNil(t, deadline)
	assert.WithinDuration(t, now.Add(30*time.Second), *deadline, time.Second)

	// A further failure while blocked pushes the deadline out.
	now = now.Add(20 * time.Second)
	ledger.RecordFailure(ctx, "10.0.0.1")

	slid := ledger.BlockDeadline(ctx, "10.0.0.1")
	require.NotNil(t, slid)
	assert.True(t, slid.After(*deadline))
}

func TestAttemptLedger_BlockDeadlineNilWhenNotBlocked(t *testing.T) {
	ledger, _, _ := newLedger(t)
	ctx := context.Background()

	assert.Nil(t, ledger.BlockDeadline(ctx, "10.0.0.1"))

	ledger.RecordFailure(ctx, "10.0.0.1")
	assert.Nil(t, ledger.BlockDeadline(ctx, "10.0.0.1"))
}

// failingStore returns an error from every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (*models.AttemptRecord, error) {
	return nil, errors.New("store down")
}

func (failingStore) IncrementFailure(context.Context, string, time.Duration) (*models.AttemptRecord, error) {
	return nil, errors.New("store down")
}

func (failingStore) Clear(context.Context, string) (*models.AttemptRecord, error) {
	return nil, errors.New("store down")
}

func TestAttemptLedger_FailsOpenOnStoreErrors(t *testing.T) {
	sink := newMockEventSink()
	ledger := services.NewAttemptLedger(failingStore{}, sink, throttleConfig(), testLogger())
	ctx := context.Background()

	assert.False(t, ledger.IsBlocked(ctx, "10.0.0.1"))
	assert.Equal(t, 5, ledger.RemainingAttempts(ctx, "10.0.0.1"))
	assert.Nil(t, ledger.BlockDeadline(ctx, "10.0.0.1"))

	ledger.RecordFailure(ctx, "10.0.0.1")
	ledger.RecordSuccess(ctx, "10.0.0.1")
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}
