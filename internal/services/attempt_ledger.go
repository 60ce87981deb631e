package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otzivi/authcore/internal/config"
	"github.com/otzivi/authcore/internal/models"
	"github.com/otzivi/authcore/internal/throttle"
)

// EventRecorder is the slice of the event ledger the attempt ledger needs.
type EventRecorder interface {
	Record(ctx context.Context, accountID string, eventType models.EventType, description string, clientAddress, userAgent *string)
}

// AttemptLedger tracks failed authentication attempts per client network
// address and enforces a sliding block window. Throttling by address is
// deliberately coarse: clients behind shared NAT egress share one budget.
type AttemptLedger struct {
	store  throttle.Store
	events EventRecorder
	config config.ThrottleConfig
	logger *slog.Logger
}

func NewAttemptLedger(store throttle.Store, events EventRecorder, cfg config.ThrottleConfig, logger *slog.Logger) *AttemptLedger {
	return &AttemptLedger{
		store:  store,
		events: events,
		config: cfg,
		logger: logger,
	}
}

// IsBlocked reports whether the client key is currently inside its block
// window. Store errors fail open: an unavailable store must not lock every
// user out.
func (l *AttemptLedger) IsBlocked(ctx context.Context, clientKey string) bool {
	record, err := l.store.Get(ctx, clientKey)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to read attempt record", slog.Any("error", err))
		return false
	}
	if record == nil {
		return false
	}

	blocked := record.Blocked(time.Now(), l.config.MaxAttempts, l.config.BlockWindow)
	if blocked {
		l.logger.WarnContext(ctx, "client blocked",
			slog.String("client_key", clientKey),
			slog.Time("until", record.BlockDeadline(l.config.BlockWindow)),
		)
	}
	return blocked
}

// RecordFailure counts a failed attempt for the client key. Reaching the
// warning threshold emits a suspicious-activity event; reaching the block
// threshold emits a critical one. Both emissions are fire-and-forget.
func (l *AttemptLedger) RecordFailure(ctx context.Context, clientKey string) {
	record, err := l.store.IncrementFailure(ctx, clientKey, l.config.Retention)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to record login failure",
			slog.String("client_key", clientKey),
			slog.Any("error", err),
		)
		return
	}
	if record.FailureCount < 0 {
		// Should never happen; the stores only ever increment.
		l.logger.ErrorContext(ctx, "negative failure count",
			slog.String("client_key", clientKey),
			slog.Int("count", record.FailureCount),
		)
		return
	}

	l.logger.InfoContext(ctx, "login failure recorded",
		slog.String("client_key", clientKey),
		slog.Int("count", record.FailureCount),
		slog.Int("max", l.config.MaxAttempts),
	)

	switch record.FailureCount {
	case l.config.MaxAttempts:
		l.emit(clientKey, models.EventMultipleFailedAttempts,
			fmt.Sprintf("address %s blocked after %d failed login attempts", clientKey, record.FailureCount))
	case l.config.WarnThreshold:
		l.emit(clientKey, models.EventSuspiciousActivity,
			fmt.Sprintf("suspicious activity: %d failed login attempts from address %s", record.FailureCount, clientKey))
	}
}

// RecordSuccess clears the record for the client key. A success after
// recorded failures is itself worth an event.
func (l *AttemptLedger) RecordSuccess(ctx context.Context, clientKey string) {
	removed, err := l.store.Clear(ctx, clientKey)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to clear attempt record",
			slog.String("client_key", clientKey),
			slog.Any("error", err),
		)
		return
	}
	if removed == nil || removed.FailureCount == 0 {
		return
	}

	l.logger.InfoContext(ctx, "attempt counter reset",
		slog.String("client_key", clientKey),
		slog.Int("previous_failures", removed.FailureCount),
	)
	l.emit(clientKey, models.EventSuccessfulLogin,
		fmt.Sprintf("successful login after %d failed attempts from address %s", removed.FailureCount, clientKey))
}

// RemainingAttempts returns how many attempts are left before blocking.
func (l *AttemptLedger) RemainingAttempts(ctx context.Context, clientKey string) int {
	record, err := l.store.Get(ctx, clientKey)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to read attempt record", slog.Any("error", err))
		return l.config.MaxAttempts
	}
	if record == nil {
		return l.config.MaxAttempts
	}
	return record.Remaining(l.config.MaxAttempts)
}

// BlockDeadline returns when the current block window ends, or nil if the
// client key is not blocked.
func (l *AttemptLedger) BlockDeadline(ctx context.Context, clientKey string) *time.Time {
	record, err := l.store.Get(ctx, clientKey)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to read attempt record", slog.Any("error", err))
		return nil
	}
	if record == nil || !record.Blocked(time.Now(), l.config.MaxAttempts, l.config.BlockWindow) {
		return nil
	}

	deadline := record.BlockDeadline(l.config.BlockWindow)
	return &deadline
}

// emit records a throttling event on a detached context so a slow or failing
// event ledger can neither block nor fail the login path.
func (l *AttemptLedger) emit(clientKey string, eventType models.EventType, description string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("panic while emitting throttle event", slog.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		addr := clientKey
		l.events.Record(ctx, models.SystemAccountID, eventType, description, &addr, nil)
	}()
}
