package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/otzivi/authcore/internal/models"
	pkgauth "github.com/otzivi/authcore/pkg/auth"
)

// PasswordHashFetcher exposes stored credential hashes to the verifier.
type PasswordHashFetcher interface {
	GetPasswordHash(ctx context.Context, email string) (accountID, passwordHash string, err error)
}

// BcryptVerifier is the bundled CredentialVerifier: bcrypt comparison against
// the account directory's stored hash. The core treats the verifier as an
// external collaborator, so deployments may substitute their own.
type BcryptVerifier struct {
	repo   PasswordHashFetcher
	logger *slog.Logger
}

func NewBcryptVerifier(repo PasswordHashFetcher, logger *slog.Logger) *BcryptVerifier {
	return &BcryptVerifier{repo: repo, logger: logger}
}

// Verify reports whether the secret matches the stored credential for the
// identifier. An unknown identifier is a plain negative result, not an error.
func (v *BcryptVerifier) Verify(ctx context.Context, identifier, secret string) (bool, error) {
	_, hash, err := v.repo.GetPasswordHash(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return pkgauth.ComparePassword(hash, secret) == nil, nil
}
