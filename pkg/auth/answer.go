package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AnswerBcryptCost is lower than the password cost: answers gate an already
// password-authenticated sign-in, and Verify sits on the interactive path.
const AnswerBcryptCost = 12

// NormalizeAnswer canonicalizes a challenge answer before hashing or
// comparison: surrounding whitespace is ignored and case is folded, so
// "Blue" and "  blue " are the same answer.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashAnswer hashes a normalized challenge answer with bcrypt. The answer is
// never stored or compared in plaintext.
func HashAnswer(answer string) (string, error) {
	normalized := NormalizeAnswer(answer)
	if normalized == "" {
		return "", fmt.Errorf("answer cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(normalized), AnswerBcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash answer: %w", err)
	}
	return string(hashedBytes), nil
}

// CompareAnswer reports whether answer matches the stored hash. bcrypt's
// comparison is constant-time with respect to the supplied answer.
func CompareAnswer(hashedAnswer, answer string) bool {
	normalized := NormalizeAnswer(answer)
	if normalized == "" || hashedAnswer == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedAnswer), []byte(normalized)) == nil
}
