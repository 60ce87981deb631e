package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/otzivi/authcore/internal/database"
	"github.com/otzivi/authcore/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// EventRepository handles security event data access. Events are append-only:
// the only permitted update is marking an event notified.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{pool: db.Pool}
}

func scanEventRow(row rowScanner) (*models.SecurityEvent, error) {
	var event models.SecurityEvent

	err := row.Scan(
		&event.ID, &event.AccountID, &event.EventType, &event.Severity,
		&event.Description, &event.ClientAddress, &event.UserAgent,
		&event.CreatedAt, &event.Notified, &event.NotifiedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &event, nil
}

func scanEventRows(rows pgx.Rows) ([]*models.SecurityEvent, error) {
	defer rows.Close()

	events := make([]*models.SecurityEvent, 0)
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security event rows: %w", err)
	}

	return events, nil
}

// Create persists a new security event and returns it with id and timestamp.
func (r *EventRepository) Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error) {
	query := `
		INSERT INTO security_events (
			account_id, event_type, severity, description, client_address, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, account_id, event_type, severity, description, client_address,
		          user_agent, created_at, notified, notified_at
	`

	result, err := scanEventRow(r.pool.QueryRow(
		ctx, query,
		event.AccountID, event.EventType, event.Severity,
		event.Description, event.ClientAddress, event.UserAgent,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create security event: %w", err)
	}

	return result, nil
}

// MarkNotified sets the notified flag and timestamp for an event. This is the
// only mutation the store permits after insert.
func (r *EventRepository) MarkNotified(ctx context.Context, eventID uuid.UUID, notifiedAt time.Time) error {
	query := `
		UPDATE security_events
		SET notified = true, notified_at = $2
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, eventID, notifiedAt)
	if err != nil {
		return fmt.Errorf("failed to mark event notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountByAccountSince counts events recorded for an account after the given
// instant. Drives the suspicious-activity check.
func (r *EventRepository) CountByAccountSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM security_events
		WHERE account_id = $1 AND created_at > $2
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, accountID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count security events: %w", err)
	}

	return count, nil
}

// RecentByAccount retrieves an account's events, newest first.
func (r *EventRepository) RecentByAccount(ctx context.Context, accountID string, limit int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT id, account_id, event_type, severity, description, client_address,
		       user_agent, created_at, notified, notified_at
		FROM security_events
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanEventRows(rows)
}

// RecentAll retrieves the newest events across all accounts.
func (r *EventRepository) RecentAll(ctx context.Context, limit int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT id, account_id, event_type, severity, description, client_address,
		       user_agent, created_at, notified, notified_at
		FROM security_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanEventRows(rows)
}
