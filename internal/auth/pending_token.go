package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otzivi/authcore/internal/models"
)

const pendingTokenType = "challenge_pending"

// PendingClaims bind an account to an in-progress second-factor challenge.
// The token is the hand-off value the web layer carries between the primary
// credential check and the challenge answer; the core only validates what it
// is given back.
type PendingClaims struct {
	Type       string `json:"type"`
	AccountID  string `json:"account_id"`
	ReturnTo   string `json:"return_to,omitempty"`
	RememberMe bool   `json:"remember_me,omitempty"`
	jwt.RegisteredClaims
}

// PendingTokenManager signs and validates short-lived pending challenge
// tokens.
type PendingTokenManager struct {
	secret string
	ttl    time.Duration
}

func NewPendingTokenManager(secret string, ttl time.Duration) *PendingTokenManager {
	return &PendingTokenManager{secret: secret, ttl: ttl}
}

// TTL returns the validity window applied to generated tokens.
func (m *PendingTokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate creates a signed pending token for an account that passed the
// primary credential check but still owes a challenge answer.
func (m *PendingTokenManager) Generate(accountID, returnTo string, rememberMe bool) (string, error) {
	now := time.Now()
	claims := &PendingClaims{
		Type:       pendingTokenType,
		AccountID:  accountID,
		ReturnTo:   returnTo,
		RememberMe: rememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign pending token: %w", err)
	}

	return tokenString, nil
}

// Validate parses a pending token and returns its claims. An expired token
// maps to models.ErrPendingExpired; any other defect maps to
// models.ErrUnauthorized.
func (m *PendingTokenManager) Validate(tokenString string) (*PendingClaims, error) {
	claims := &PendingClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrPendingExpired
		}
		return nil, models.ErrUnauthorized
	}

	if !token.Valid || claims.Type != pendingTokenType || claims.AccountID == "" {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
