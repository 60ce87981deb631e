package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/otzivi/authcore/internal/config"
	"github.com/otzivi/authcore/internal/models"
)

// EventRepository defines the interface for security event persistence
type EventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error)
	MarkNotified(ctx context.Context, eventID uuid.UUID, notifiedAt time.Time) error
	CountByAccountSince(ctx context.Context, accountID string, since time.Time) (int, error)
	RecentByAccount(ctx context.Context, accountID string, limit int) ([]*models.SecurityEvent, error)
	RecentAll(ctx context.Context, limit int) ([]*models.SecurityEvent, error)
}

// AccountDirectory resolves accounts to notification recipients
type AccountDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	ListByRole(ctx context.Context, role string) ([]*models.Account, error)
}

// Notifier is the external notification transport
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// EventService is the append-only security event ledger. Record persists the
// event and, for Medium severity and above, hands the notification to a
// worker over a buffered channel so the login path never waits on the
// transport.
type EventService struct {
	repo      EventRepository
	directory AccountDirectory
	notifier  Notifier
	config    config.EventsConfig
	logger    *slog.Logger
	queue     chan *models.SecurityEvent
	done      chan struct{}
}

func NewEventService(repo EventRepository, directory AccountDirectory, notifier Notifier, cfg config.EventsConfig, logger *slog.Logger) *EventService {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &EventService{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
		config:    cfg,
		logger:    logger,
		queue:     make(chan *models.SecurityEvent, queueSize),
		done:      make(chan struct{}),
	}
}

// Start runs the notification worker until ctx is cancelled. Worker failures
// are logged and never propagate to the callers of Record.
func (s *EventService) Start(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case event := <-s.queue:
			s.Notify(ctx, event)
		case <-ctx.Done():
			s.drain()
			s.logger.Info("event notification worker stopped")
			return
		}
	}
}

// drain attempts delivery for anything still queued at shutdown, with a
// bounded grace period per event.
func (s *EventService) drain() {
	for {
		select {
		case event := <-s.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.Notify(ctx, event)
			cancel()
		default:
			return
		}
	}
}

// Stopped returns a channel closed once the worker has exited.
func (s *EventService) Stopped() <-chan struct{} {
	return s.done
}

// Record classifies, persists, and (for Medium and above) dispatches a
// security event. Severity is derived from the type alone. Failures are
// logged and swallowed: a ledger outage must never fail the operation that
// observed the event.
func (s *EventService) Record(ctx context.Context, accountID string, eventType models.EventType, description string, clientAddress, userAgent *string) {
	if accountID == "" {
		accountID = models.SystemAccountID
	}

	event := &models.SecurityEvent{
		AccountID:     accountID,
		EventType:     eventType,
		Severity:      models.SeverityFor(eventType),
		Description:   description,
		ClientAddress: clientAddress,
		UserAgent:     userAgent,
	}

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist security event",
			slog.String("event_type", string(eventType)),
			slog.Any("error", err),
		)
		return
	}

	s.logger.InfoContext(ctx, "security event recorded",
		slog.String("event_type", string(eventType)),
		slog.String("severity", created.Severity.String()),
		slog.String("account_id", accountID),
	)

	if created.Severity >= models.SeverityMedium {
		s.enqueue(created)
	}
}

// enqueue hands an event to the notification worker without blocking. A full
// queue drops the notification (the event itself is already persisted).
func (s *EventService) enqueue(event *models.SecurityEvent) {
	select {
	case s.queue <- event:
	default:
		s.logger.Warn("notification queue full, dropping dispatch",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", string(event.EventType)),
		)
	}
}

// Notify resolves the event's account to a contact address and attempts
// delivery; High severity and above additionally fans out to all accounts
// holding the admin role. The event is marked notified after the attempt even
// when delivery failed, so a persistently broken transport cannot cause a
// notification storm.
func (s *EventService) Notify(ctx context.Context, event *models.SecurityEvent) {
	account, err := s.directory.GetByID(ctx, event.AccountID)
	if err != nil || account.Email == "" {
		// Sentinel "system" events have no recipient.
		s.logger.InfoContext(ctx, "no recipient for security event",
			slog.String("event_id", event.ID.String()),
			slog.String("account_id", event.AccountID),
		)
		return
	}

	subject := notifySubject(event.EventType, event.Severity)
	body := notifyBody(event, account)
	if err := s.notifier.Send(ctx, account.Email, subject, body); err != nil {
		s.logger.ErrorContext(ctx, "failed to deliver security alert",
			slog.String("event_id", event.ID.String()),
			slog.Any("error", err),
		)
	}

	if event.Severity >= models.SeverityHigh {
		s.notifyAdmins(ctx, event, account)
	}

	now := time.Now()
	if err := s.repo.MarkNotified(ctx, event.ID, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark event notified",
			slog.String("event_id", event.ID.String()),
			slog.Any("error", err),
		)
		return
	}
	event.Notified = true
	event.NotifiedAt = &now
}

func (s *EventService) notifyAdmins(ctx context.Context, event *models.SecurityEvent, account *models.Account) {
	admins, err := s.directory.ListByRole(ctx, "admin")
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list admin recipients", slog.Any("error", err))
		return
	}

	subject := adminSubject(event.EventType)
	body := adminBody(event, account)
	for _, admin := range admins {
		if admin.Email == "" {
			continue
		}
		if err := s.notifier.Send(ctx, admin.Email, subject, body); err != nil {
			s.logger.ErrorContext(ctx, "failed to deliver admin alert",
				slog.String("event_id", event.ID.String()),
				slog.Any("error", err),
			)
		}
	}
}

// CheckSuspicious counts the account's events inside the trailing window and
// records an extra suspicious-activity event when the count exceeds the
// threshold.
func (s *EventService) CheckSuspicious(ctx context.Context, accountID, clientAddress string) bool {
	since := time.Now().Add(-s.config.SuspiciousWindow)

	count, err := s.repo.CountByAccountSince(ctx, accountID, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count recent events", slog.Any("error", err))
		return false
	}

	if count <= s.config.SuspiciousThreshold {
		return false
	}

	var addr *string
	if clientAddress != "" {
		addr = &clientAddress
	}
	s.Record(ctx, accountID, models.EventSuspiciousActivity,
		describeSuspiciousActivity(count, s.config.SuspiciousWindow), addr, nil)
	return true
}

// Recent returns the account's newest events, capped at limit.
func (s *EventService) Recent(ctx context.Context, accountID string, limit int) ([]*models.SecurityEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.RecentByAccount(ctx, accountID, limit)
}

// RecentAll returns the newest events across all accounts, capped at limit.
func (s *EventService) RecentAll(ctx context.Context, limit int) ([]*models.SecurityEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.repo.RecentAll(ctx, limit)
}
