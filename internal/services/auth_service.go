package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/otzivi/authcore/internal/auth"
	"github.com/otzivi/authcore/internal/models"
	pkglogger "github.com/otzivi/authcore/pkg/logger"
)

// CredentialVerifier is the external primary credential check.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, secret string) (bool, error)
}

// LoginDirectory resolves accounts during sign-in.
type LoginDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// Throttler is the attempt ledger slice the orchestrator consumes.
type Throttler interface {
	IsBlocked(ctx context.Context, clientKey string) bool
	RecordFailure(ctx context.Context, clientKey string)
	RecordSuccess(ctx context.Context, clientKey string)
	BlockDeadline(ctx context.Context, clientKey string) *time.Time
}

// ChallengeGate is the second-factor slice the orchestrator consumes.
type ChallengeGate interface {
	IsEnabled(ctx context.Context, accountID string) bool
	Verify(ctx context.Context, accountID, answer string) bool
	Question(ctx context.Context, accountID string) (string, error)
}

// EventSink extends the event recorder with the suspicion check run after a
// completed sign-in.
type EventSink interface {
	EventRecorder
	CheckSuspicious(ctx context.Context, accountID, clientAddress string) bool
}

// Credentials carry one login request into the orchestrator.
type Credentials struct {
	Email      string
	Password   string
	RememberMe bool
	ReturnTo   string
}

// AuthService composes the attempt ledger, the challenge gate, and the
// external credential verifier into a single sign-in decision.
type AuthService struct {
	verifier  CredentialVerifier
	directory LoginDirectory
	ledger    Throttler
	challenge ChallengeGate
	events    EventSink
	pending   *auth.PendingTokenManager
	timing    *auth.TimingDelay
	logger    *slog.Logger
	env       string

	// Pending tokens are consumed on successful challenge resolution. The
	// guard only needs to remember a JTI for the token's own lifetime.
	usedMu   sync.Mutex
	usedJTIs map[string]time.Time
}

func NewAuthService(
	verifier CredentialVerifier,
	directory LoginDirectory,
	ledger Throttler,
	challenge ChallengeGate,
	events EventSink,
	pending *auth.PendingTokenManager,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	env string,
) *AuthService {
	return &AuthService{
		verifier:  verifier,
		directory: directory,
		ledger:    ledger,
		challenge: challenge,
		events:    events,
		pending:   pending,
		timing:    timing,
		logger:    logger,
		env:       env,
		usedJTIs:  make(map[string]time.Time),
	}
}

// AttemptLogin runs the primary sign-in state machine for one request.
//
//	Start -> Blocked             throttled address, no credential check
//	Start -> Denied              verifier rejects (or unknown account)
//	Start -> ChallengeRequired   credentials pass, second factor gates sign-in
//	Start -> Allowed             credentials pass, no second factor
func (s *AuthService) AttemptLogin(ctx context.Context, clientKey, userAgent string, creds Credentials) (*models.AuthDecision, error) {
	start := time.Now()

	if s.ledger.IsBlocked(ctx, clientKey) {
		// The block itself is the denial: no credential check runs and no
		// extra failure is recorded.
		return s.blockedDecision(ctx, clientKey), nil
	}

	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		s.denyCredentials(ctx, nil, clientKey, userAgent)
		s.timing.WaitFrom(start, false)
		return deniedDecision(models.ErrInvalidCredentials.Error()), nil
	}

	account, err := s.directory.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown account: same outcome and wording as a wrong password.
			s.denyCredentials(ctx, nil, clientKey, userAgent)
			s.timing.WaitFrom(start, false)
			return deniedDecision(models.ErrInvalidCredentials.Error()), nil
		}
		s.logger.ErrorContext(ctx, "failed to resolve account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	ok, err := s.verifier.Verify(ctx, email, creds.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "credential verifier failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !ok {
		s.denyCredentials(ctx, account, clientKey, userAgent)
		s.timing.WaitFrom(start, false)
		return deniedDecision(models.ErrInvalidCredentials.Error()), nil
	}

	// Primary credentials passed. This counts as a throttling success even
	// when a challenge still gates completion of the sign-in.
	s.ledger.RecordSuccess(ctx, clientKey)

	if s.challenge.IsEnabled(ctx, account.ID) {
		return s.challengeDecision(ctx, account, creds)
	}

	s.logger.Info("login allowed",
		slog.String("account_id", account.ID),
		slog.String("email", pkglogger.SanitizedEmail(account.Email)),
	)
	s.events.Record(ctx, account.ID, models.EventSuccessfulLogin,
		fmt.Sprintf("successful login from address %s", clientKey), &clientKey, optional(userAgent))
	s.events.CheckSuspicious(ctx, account.ID, clientKey)

	return &models.AuthDecision{State: models.DecisionAllowed, Account: account}, nil
}

// ResolveChallenge finishes a sign-in left pending by AttemptLogin. A wrong
// answer leaves the pending token usable until its expiry; a correct answer
// consumes it.
func (s *AuthService) ResolveChallenge(ctx context.Context, pendingToken, answer, clientKey, userAgent string) (*models.AuthDecision, error) {
	claims, err := s.pending.Validate(pendingToken)
	if err != nil {
		if errors.Is(err, models.ErrPendingExpired) {
			return deniedDecision(models.ErrPendingExpired.Error()), nil
		}
		return deniedDecision(models.ErrUnauthorized.Error()), nil
	}

	if s.isConsumed(claims.ID) {
		return deniedDecision(models.ErrUnauthorized.Error()), nil
	}

	if !s.challenge.Verify(ctx, claims.AccountID, answer) {
		s.logger.Info("challenge answer rejected", slog.String("account_id", claims.AccountID))
		s.events.Record(ctx, claims.AccountID, models.EventTwoFactorFailed,
			fmt.Sprintf("wrong security question answer from address %s", clientKey), &clientKey, optional(userAgent))
		return deniedDecision(models.ErrInvalidAnswer.Error()), nil
	}

	account, err := s.directory.GetByID(ctx, claims.AccountID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve pending account",
			slog.String("account_id", claims.AccountID),
			slog.Any("error", err),
		)
		return nil, models.ErrInternalServer
	}

	s.consume(claims.ID, claims.ExpiresAt.Time)

	s.logger.Info("challenge passed", slog.String("account_id", account.ID))
	s.events.Record(ctx, account.ID, models.EventTwoFactorSucceeded,
		fmt.Sprintf("security question passed from address %s", clientKey), &clientKey, optional(userAgent))
	s.events.CheckSuspicious(ctx, account.ID, clientKey)

	return &models.AuthDecision{State: models.DecisionAllowed, Account: account}, nil
}

// Logout records the sign-out. A distinct event type: sign-out is not a
// successful login.
func (s *AuthService) Logout(ctx context.Context, accountID, clientKey, userAgent string) {
	s.events.Record(ctx, accountID, models.EventLogout,
		fmt.Sprintf("signed out from address %s", clientKey), &clientKey, optional(userAgent))
}

func (s *AuthService) blockedDecision(ctx context.Context, clientKey string) *models.AuthDecision {
	decision := &models.AuthDecision{
		State:  models.DecisionBlocked,
		Reason: models.ErrTooManyAttempts.Error(),
	}
	if deadline := s.ledger.BlockDeadline(ctx, clientKey); deadline != nil {
		if remaining := time.Until(*deadline); remaining > 0 {
			decision.RetryInSeconds = int(remaining.Round(time.Second) / time.Second)
		}
	}
	return decision
}

func (s *AuthService) challengeDecision(ctx context.Context, account *models.Account, creds Credentials) (*models.AuthDecision, error) {
	question, err := s.challenge.Question(ctx, account.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load challenge question",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
		return nil, models.ErrInternalServer
	}

	token, err := s.pending.Generate(account.ID, creds.ReturnTo, creds.RememberMe)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate pending token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("challenge required", slog.String("account_id", account.ID))
	return &models.AuthDecision{
		State:        models.DecisionChallengeRequired,
		Account:      account,
		PendingToken: token,
		Question:     question,
	}, nil
}

func (s *AuthService) denyCredentials(ctx context.Context, account *models.Account, clientKey, userAgent string) {
	s.ledger.RecordFailure(ctx, clientKey)

	accountID := models.SystemAccountID
	if account != nil {
		accountID = account.ID
	}
	s.logger.Info("login failed: invalid credentials")
	s.events.Record(ctx, accountID, models.EventFailedLogin,
		fmt.Sprintf("failed login attempt from address %s", clientKey), &clientKey, optional(userAgent))
}

func (s *AuthService) isConsumed(jti string) bool {
	s.usedMu.Lock()
	defer s.usedMu.Unlock()
	_, used := s.usedJTIs[jti]
	return used
}

func (s *AuthService) consume(jti string, expiresAt time.Time) {
	s.usedMu.Lock()
	defer s.usedMu.Unlock()

	now := time.Now()
	for id, expiry := range s.usedJTIs {
		if now.After(expiry) {
			delete(s.usedJTIs, id)
		}
	}
	s.usedJTIs[jti] = expiresAt
}

func deniedDecision(reason string) *models.AuthDecision {
	return &models.AuthDecision{State: models.DecisionDenied, Reason: reason}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
