package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/otzivi/authcore/internal/database"
	"github.com/otzivi/authcore/internal/models"
)

// AccountRepository is the account directory: the core resolves accounts and
// admin recipients through it but does not own account lifecycle.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

const accountColumns = `id, email, name, role, created_at`

func scanAccountRow(row rowScanner) (*models.Account, error) {
	var account models.Account
	err := row.Scan(&account.ID, &account.Email, &account.Name, &account.Role, &account.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

// ListByRole returns all accounts holding the given role. Used for admin
// fan-out on high-severity events.
func (r *AccountRepository) ListByRole(ctx context.Context, role string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by role: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

// GetPasswordHash fetches the stored credential hash for an email. Serves
// the bundled bcrypt credential verifier; a missing account surfaces as
// models.ErrNotFound, which the caller folds into a plain credential failure.
func (r *AccountRepository) GetPasswordHash(ctx context.Context, email string) (accountID, passwordHash string, err error) {
	query := `SELECT id, password_hash FROM accounts WHERE email = $1`

	if err := r.pool.QueryRow(ctx, query, email).Scan(&accountID, &passwordHash); err != nil {
		return "", "", database.MapPostgresError(err)
	}

	return accountID, passwordHash, nil
}
