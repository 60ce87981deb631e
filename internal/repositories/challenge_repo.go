package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/otzivi/authcore/internal/database"
	"github.com/otzivi/authcore/internal/models"
)

// ChallengeRepository stores per-account challenge secrets (security
// question, hashed answer, gating flag).
type ChallengeRepository struct {
	pool *pgxpool.Pool
}

func NewChallengeRepository(db *database.DB) *ChallengeRepository {
	return &ChallengeRepository{pool: db.Pool}
}

func (r *ChallengeRepository) Get(ctx context.Context, accountID string) (*models.Challenge, error) {
	query := `
		SELECT account_id, question, answer_hash, enabled, set_at
		FROM account_challenges
		WHERE account_id = $1
	`

	var challenge models.Challenge
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&challenge.AccountID, &challenge.Question, &challenge.AnswerHash,
		&challenge.Enabled, &challenge.SetAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &challenge, nil
}

// Upsert creates or overwrites the challenge for an account. Only the
// account owner path reaches this; authorization happens above.
func (r *ChallengeRepository) Upsert(ctx context.Context, challenge *models.Challenge) error {
	query := `
		INSERT INTO account_challenges (account_id, question, answer_hash, enabled, set_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE
		SET question = EXCLUDED.question,
		    answer_hash = EXCLUDED.answer_hash,
		    enabled = EXCLUDED.enabled,
		    set_at = EXCLUDED.set_at
	`

	_, err := r.pool.Exec(ctx, query,
		challenge.AccountID, challenge.Question, challenge.AnswerHash,
		challenge.Enabled, challenge.SetAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert challenge: %w", err)
	}

	return nil
}

// SetEnabled flips the gating flag. The question text persists when gating
// is switched off; it just stops gating sign-in.
func (r *ChallengeRepository) SetEnabled(ctx context.Context, accountID string, enabled bool) error {
	query := `UPDATE account_challenges SET enabled = $2 WHERE account_id = $1`

	tag, err := r.pool.Exec(ctx, query, accountID, enabled)
	if err != nil {
		return fmt.Errorf("failed to update challenge gating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
