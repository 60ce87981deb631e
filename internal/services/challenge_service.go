package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/otzivi/authcore/internal/models"
	pkgauth "github.com/otzivi/authcore/pkg/auth"
)

// ChallengeRepository defines the interface for challenge secret persistence
type ChallengeRepository interface {
	Get(ctx context.Context, accountID string) (*models.Challenge, error)
	Upsert(ctx context.Context, challenge *models.Challenge) error
	SetEnabled(ctx context.Context, accountID string, enabled bool) error
}

// ChallengeService manages the knowledge-based second factor: a security
// question whose answer is stored only as a bcrypt hash of its normalized
// form. Verification fails closed.
type ChallengeService struct {
	repo   ChallengeRepository
	events EventRecorder
	logger *slog.Logger
}

func NewChallengeService(repo ChallengeRepository, events EventRecorder, logger *slog.Logger) *ChallengeService {
	return &ChallengeService{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

// SetChallenge creates or overwrites the account's challenge and turns
// gating on. The question is stored verbatim; the answer is normalized and
// hashed before any store mutation.
func (s *ChallengeService) SetChallenge(ctx context.Context, accountID, question, answer string) error {
	question = strings.TrimSpace(question)
	if accountID == "" || question == "" || strings.TrimSpace(answer) == "" {
		return models.ErrValidation
	}

	answerHash, err := pkgauth.HashAnswer(answer)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash challenge answer", slog.Any("error", err))
		return models.ErrInternalServer
	}

	challenge := &models.Challenge{
		AccountID:  accountID,
		Question:   question,
		AnswerHash: answerHash,
		Enabled:    true,
		SetAt:      time.Now(),
	}
	if err := s.repo.Upsert(ctx, challenge); err != nil {
		s.logger.ErrorContext(ctx, "failed to store challenge",
			slog.String("account_id", accountID),
			slog.Any("error", err),
		)
		return models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "challenge set", slog.String("account_id", accountID))
	s.events.Record(ctx, accountID, models.EventChallengeChanged, "security question changed", nil, nil)
	return nil
}

// Verify reports whether the supplied answer matches the account's stored
// challenge. No configured challenge, disabled gating, or an empty answer
// all return false rather than an error, so callers cannot distinguish
// "wrong answer" from "nothing to answer".
func (s *ChallengeService) Verify(ctx context.Context, accountID, answer string) bool {
	if accountID == "" || strings.TrimSpace(answer) == "" {
		return false
	}

	challenge, err := s.repo.Get(ctx, accountID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load challenge",
				slog.String("account_id", accountID),
				slog.Any("error", err),
			)
		}
		return false
	}
	if !challenge.Enabled || challenge.AnswerHash == "" {
		return false
	}

	return pkgauth.CompareAnswer(challenge.AnswerHash, answer)
}

// IsEnabled reports whether the challenge currently gates sign-in for the
// account. Distinct from "a question is configured": gating may be switched
// off while the question text persists.
func (s *ChallengeService) IsEnabled(ctx context.Context, accountID string) bool {
	challenge, err := s.repo.Get(ctx, accountID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load challenge",
				slog.String("account_id", accountID),
				slog.Any("error", err),
			)
		}
		return false
	}
	return challenge.Enabled && challenge.AnswerHash != ""
}

// Question returns the account's stored question text.
func (s *ChallengeService) Question(ctx context.Context, accountID string) (string, error) {
	challenge, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	return challenge.Question, nil
}

// SetGating toggles whether the challenge gates sign-in. Disabling keeps the
// stored question but stops requiring an answer.
func (s *ChallengeService) SetGating(ctx context.Context, accountID string, enabled bool) error {
	if err := s.repo.SetEnabled(ctx, accountID, enabled); err != nil {
		return err
	}

	eventType := models.EventTwoFactorDisabled
	description := "security question gating disabled"
	if enabled {
		eventType = models.EventTwoFactorEnabled
		description = "security question gating enabled"
	}
	s.events.Record(ctx, accountID, eventType, description, nil, nil)
	return nil
}
