package models

import "time"

// AttemptRecord tracks failed login attempts for a single client key
// (the requester's network address). Created lazily on the first failure.
type AttemptRecord struct {
	ClientKey      string
	FailureCount   int
	FirstFailureAt time.Time
	LastFailureAt  time.Time
}

// Blocked reports whether the record is within its block window at the given
// instant. The window slides forward on every additional failure.
func (r *AttemptRecord) Blocked(now time.Time, maxAttempts int, blockWindow time.Duration) bool {
	return r.FailureCount >= maxAttempts && now.Before(r.LastFailureAt.Add(blockWindow))
}

// BlockDeadline returns the instant the block window ends.
func (r *AttemptRecord) BlockDeadline(blockWindow time.Duration) time.Time {
	return r.LastFailureAt.Add(blockWindow)
}

// Remaining returns how many attempts are left before blocking, floored at 0.
func (r *AttemptRecord) Remaining(maxAttempts int) int {
	if left := maxAttempts - r.FailureCount; left > 0 {
		return left
	}
	return 0
}
