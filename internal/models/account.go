package models

import (
	"time"
)

type Account struct {
	ID        string
	Email     string
	Name      string
	Role      string // e.g. "user", "admin"
	CreatedAt time.Time
}

// Challenge holds the knowledge-based second factor for an account. The
// answer is never stored in plaintext; AnswerHash is a bcrypt hash of the
// normalized answer.
type Challenge struct {
	AccountID  string
	Question   string
	AnswerHash string
	Enabled    bool
	SetAt      time.Time
}
